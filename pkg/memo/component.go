package memo

// ComponentCache wraps a render function of props and skips it while the
// props are unchanged under the cache's comparator.
//
// The default comparator is ShallowEqual over the props type's declared
// fields. Supplying one with WithComparator replaces the default entirely.
// Every cached Invoke still pays for one comparator call, so memoizing a
// render that is cheap, or whose props change on nearly every call, is
// rarely worth it. That trade-off is the caller's decision.
type ComponentCache[P, V any] struct {
	render func(P) (V, error)
	cell   *Cell[P, V]
}

// ComponentOption configures a ComponentCache.
type ComponentOption[P any] func(*componentConfig[P])

type componentConfig[P any] struct {
	cmp Comparator[P]
}

// WithComparator replaces the default props comparator.
func WithComparator[P any](cmp Comparator[P]) ComponentOption[P] {
	return func(c *componentConfig[P]) {
		c.cmp = cmp
	}
}

// NewComponentCache creates a cache for render.
func NewComponentCache[P, V any](render func(P) (V, error), opts ...ComponentOption[P]) *ComponentCache[P, V] {
	cfg := componentConfig[P]{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cmp == nil {
		cfg.cmp = ShallowEqual[P]()
	}
	return &ComponentCache[P, V]{
		render: render,
		cell:   NewCell[P, V](cfg.cmp),
	}
}

// Invoke returns the view for props, rendering only when props differ from
// the last successfully rendered props. A render error is returned and
// nothing is cached for that attempt, so the next Invoke with the same
// props renders again.
func (c *ComponentCache[P, V]) Invoke(props P) (V, error) {
	return c.cell.Evaluate(props, func() (V, error) {
		return c.render(props)
	})
}

// Refresh renders props unconditionally and caches the result.
func (c *ComponentCache[P, V]) Refresh(props P) (V, error) {
	return c.cell.Recompute(props, func() (V, error) {
		return c.render(props)
	})
}

// Rendered reports whether the last Invoke or Refresh called render.
func (c *ComponentCache[P, V]) Rendered() bool {
	return c.cell.Ran()
}

// Props returns the props of the last successful render.
func (c *ComponentCache[P, V]) Props() (P, bool) {
	return c.cell.inputs, c.cell.primed
}

// Stats returns the cache's counters.
func (c *ComponentCache[P, V]) Stats() Stats {
	return c.cell.Stats()
}

// Reset forgets the cached view.
func (c *ComponentCache[P, V]) Reset() {
	c.cell.Reset()
}
