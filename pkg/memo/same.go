package memo

import (
	"reflect"
	"unsafe"
)

// Same reports whether a and b are the same value without looking into
// nested structures.
//
// Comparable values are compared with ==. Slices are the same when they share
// backing array, length and capacity; maps, channels and pointers when they
// point at the same object; functions when they are the same closure (see
// FuncID). A struct or array that cannot be compared with == is compared one
// level deep with the same rules; anything deeper counts as changed.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	return sameValue(addressable(va), addressable(vb), 0)
}

// FuncID returns the identity of a function value: two calls return the same
// ID for the same closure instance, and different IDs for two closures created
// by separate evaluations of the same function literal. It returns 0 for nil
// and for non-function values.
func FuncID(f any) uintptr {
	v := reflect.ValueOf(f)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return 0
	}
	// Function types are pointer-shaped, so the interface data word holds the
	// closure pointer itself.
	words := (*[2]unsafe.Pointer)(unsafe.Pointer(&f))
	return uintptr(words[1])
}

// maxSameDepth bounds the one-level walk into non-comparable aggregates.
const maxSameDepth = 1

func sameValue(a, b reflect.Value, depth int) bool {
	switch a.Kind() {
	case reflect.Func:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		ida, oka := funcWord(a)
		idb, okb := funcWord(b)
		return oka && okb && ida == idb

	case reflect.Slice:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return a.Pointer() == b.Pointer() && a.Len() == b.Len() && a.Cap() == b.Cap()

	case reflect.Map, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()

	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		ea, eb := a.Elem(), b.Elem()
		if ea.Type() != eb.Type() {
			return false
		}
		return sameValue(addressable(ea), addressable(eb), depth)

	case reflect.Struct:
		if a.Type().Comparable() {
			return equal(a, b)
		}
		if depth >= maxSameDepth {
			return false
		}
		for i := 0; i < a.NumField(); i++ {
			if !sameValue(a.Field(i), b.Field(i), depth+1) {
				return false
			}
		}
		return true

	case reflect.Array:
		if a.Type().Comparable() {
			return equal(a, b)
		}
		if depth >= maxSameDepth {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !sameValue(a.Index(i), b.Index(i), depth+1) {
				return false
			}
		}
		return true

	default:
		return equal(a, b)
	}
}

// equal is reflect.Value.Equal for comparable types. An interface field
// holding an uncomparable dynamic value panics inside Equal exactly as == would;
// such values count as changed.
func equal(a, b reflect.Value) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a.Equal(b)
}

// addressable returns v itself when it is addressable, otherwise an
// addressable copy. Values read through unexported fields cannot be copied
// and are returned unchanged.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() || !v.CanInterface() {
		return v
	}
	p := reflect.New(v.Type()).Elem()
	p.Set(v)
	return p
}

// funcWord reads the closure pointer of a function value. It reports false
// when the value can be neither addressed nor converted to an interface.
func funcWord(v reflect.Value) (uintptr, bool) {
	if v.CanAddr() {
		return *(*uintptr)(unsafe.Pointer(v.UnsafeAddr())), true
	}
	if v.CanInterface() {
		return FuncID(v.Interface()), true
	}
	return 0, false
}
