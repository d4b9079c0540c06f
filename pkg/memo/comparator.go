package memo

import (
	"fmt"
	"reflect"
)

// Comparator decides whether next may reuse the result computed for prev.
// It must be pure and deterministic: no side effects, and the same answer
// for the same pair of arguments.
type Comparator[T any] func(prev, next T) bool

// ShallowEqual returns the default comparator for props records.
//
// For a struct type the tracked field set is computed once, here, from the
// type's declaration; exported and unexported fields are all tracked. The
// record is unchanged iff every field is Same as before. For any other type
// the whole value is compared with Same.
func ShallowEqual[T any]() Comparator[T] {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return func(prev, next T) bool {
			return Same(prev, next)
		}
	}
	fields := make([]int, t.NumField())
	for i := range fields {
		fields[i] = i
	}
	return fieldComparator[T](fields)
}

// ShallowFields returns a comparator that tracks only the named fields of the
// struct type T. Changes to any other field do not count as a change, which is
// how a component opts out of re-rendering for a prop it does not display.
//
// It panics if T is not a struct or a name is not a field of T, so a typo
// surfaces when the cache is constructed rather than as a silent cache hit.
func ShallowFields[T any](names ...string) Comparator[T] {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("memo: ShallowFields requires a struct type, got %s", t))
	}
	fields := make([]int, 0, len(names))
	for _, name := range names {
		f, ok := t.FieldByName(name)
		if !ok || len(f.Index) != 1 {
			panic(fmt.Sprintf("memo: %s has no field %q", t, name))
		}
		fields = append(fields, f.Index[0])
	}
	return fieldComparator[T](fields)
}

// Custom wraps a caller-supplied predicate. The predicate replaces the
// default comparison entirely: whatever it does not examine cannot cause a
// recomputation.
func Custom[T any](fn func(prev, next T) bool) Comparator[T] {
	return Comparator[T](fn)
}

// ReferenceEqual compares by identity only. For reference kinds this is
// pointer identity, for functions closure identity, for everything else ==.
// Types that cannot be compared that way never count as equal.
func ReferenceEqual[T any]() Comparator[T] {
	return func(prev, next T) bool {
		return Same(prev, next)
	}
}

// DepsEqual compares two dependency lists element by element with Same.
// Lists of different length are malformed and return ErrDepsLength.
// Two empty lists are always equal.
func DepsEqual(prev, next []any) (bool, error) {
	if len(prev) != len(next) {
		return false, fmt.Errorf("%w: %d -> %d", ErrDepsLength, len(prev), len(next))
	}
	for i := range prev {
		if !Same(prev[i], next[i]) {
			return false, nil
		}
	}
	return true, nil
}

func fieldComparator[T any](fields []int) Comparator[T] {
	return func(prev, next T) bool {
		pv := addressable(reflect.ValueOf(&prev).Elem())
		nv := addressable(reflect.ValueOf(&next).Elem())
		for _, i := range fields {
			if !sameValue(pv.Field(i), nv.Field(i), 1) {
				return false
			}
		}
		return true
	}
}
