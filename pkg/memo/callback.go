package memo

import "fmt"

// CallbackCache keeps a function value referentially stable across calls
// while its dependencies are unchanged.
//
// Consumers that compare received callbacks by identity, such as a child
// ComponentCache using ShallowEqual, see a change only when one of the
// declared dependencies changed.
//
// The closure returned by build must not read anything that is not in the
// dependency list. The cache cannot detect such reads; a closure that
// breaks the rule keeps observing the values it captured when it was built.
type CallbackCache[F any] struct {
	build func() F
	cell  *Cell[[]any, F]
}

// NewCallbackCache creates a cache around the function constructor build.
func NewCallbackCache[F any](build func() F) *CallbackCache[F] {
	return &CallbackCache[F]{
		build: build,
		cell:  NewDepsCell[F](),
	}
}

// Invoke returns the callback built for deps. While deps are element-wise
// identical to the previous call's, the same function value is returned
// and build is not called.
//
// It panics if the length of deps differs from the previous call.
func (c *CallbackCache[F]) Invoke(deps ...any) F {
	fn, err := c.cell.Evaluate(cloneDeps(deps), func() (F, error) {
		return c.build(), nil
	})
	if err != nil {
		panic(fmt.Sprintf("memo: callback cache: %v", err))
	}
	return fn
}

// Stats returns the cache's counters.
func (c *CallbackCache[F]) Stats() Stats {
	return c.cell.Stats()
}

// Reset forgets the cached callback.
func (c *CallbackCache[F]) Reset() {
	c.cell.Reset()
}

// cloneDeps copies a dependency list so a caller reusing its slice cannot
// rewrite the stored snapshot.
func cloneDeps(deps []any) []any {
	if deps == nil {
		return []any{}
	}
	return append([]any(nil), deps...)
}
