package memo

// ValueCache caches the result of an expensive pure computation and reruns
// it only when its dependencies change.
//
// Because a cached call does not run compute at all, the returned value is
// the same value, reference types included, until a dependency changes.
// Consumers can rely on that for their own identity-based memoization.
type ValueCache[R any] struct {
	compute func() (R, error)
	cell    *Cell[[]any, R]
}

// NewValueCache creates a cache around compute.
func NewValueCache[R any](compute func() (R, error)) *ValueCache[R] {
	return &ValueCache[R]{
		compute: compute,
		cell:    NewDepsCell[R](),
	}
}

// Pure adapts a computation that cannot fail for use with NewValueCache.
func Pure[R any](fn func() R) func() (R, error) {
	return func() (R, error) {
		return fn(), nil
	}
}

// Invoke returns the value computed for deps. With an empty dependency list
// compute runs on the first successful call only.
//
// A compute error is returned and not cached. A dependency list whose length
// differs from the previous call returns an error wrapping ErrDepsLength.
func (c *ValueCache[R]) Invoke(deps ...any) (R, error) {
	return c.cell.Evaluate(cloneDeps(deps), c.compute)
}

// Stats returns the cache's counters.
func (c *ValueCache[R]) Stats() Stats {
	return c.cell.Stats()
}

// Reset forgets the cached value.
func (c *ValueCache[R]) Reset() {
	c.cell.Reset()
}
