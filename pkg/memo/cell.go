package memo

import "fmt"

// Stats counts what a cell has done since it was created.
type Stats struct {
	// Evaluations is the number of Evaluate and Recompute calls.
	Evaluations uint64 `json:"evaluations"`

	// Hits is the number of evaluations answered from the stored result.
	Hits uint64 `json:"hits"`

	// Misses is the number of evaluations that ran the producer successfully.
	Misses uint64 `json:"misses"`

	// Failures is the number of evaluations whose producer returned an error.
	Failures uint64 `json:"failures"`
}

// Add returns the element-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Evaluations: s.Evaluations + o.Evaluations,
		Hits:        s.Hits + o.Hits,
		Misses:      s.Misses + o.Misses,
		Failures:    s.Failures + o.Failures,
	}
}

// Cell is a single-slot memoization cell. It stores the inputs and result of
// the last successful evaluation and reuses the result while the comparator
// reports new inputs equal to the stored ones.
//
// The stored inputs and result are always replaced together, and only after
// the producer has returned without error, so a failed evaluation never
// leaves a partial or stale snapshot behind.
type Cell[I, R any] struct {
	eq func(prev, next I) (bool, error)

	inputs I
	result R
	primed bool

	// ran reports whether the last evaluation invoked the producer.
	ran bool

	stats Stats
}

// NewCell creates an empty cell comparing inputs with cmp.
// A nil cmp means ShallowEqual.
func NewCell[I, R any](cmp Comparator[I]) *Cell[I, R] {
	if cmp == nil {
		cmp = ShallowEqual[I]()
	}
	return &Cell[I, R]{
		eq: func(prev, next I) (bool, error) {
			return cmp(prev, next), nil
		},
	}
}

// NewDepsCell creates an empty cell keyed by a dependency list, compared
// with DepsEqual.
func NewDepsCell[R any]() *Cell[[]any, R] {
	return &Cell[[]any, R]{eq: DepsEqual}
}

// Evaluate returns the stored result if the cell holds a snapshot equal to
// inputs. Otherwise it invokes produce, stores (inputs, result) and returns
// the new result.
//
// When produce returns an error, the error is returned and the cell keeps
// whatever it held before the call. A panic in produce propagates with the
// cell likewise untouched. A panic in the comparator is returned as
// ErrComparator.
func (c *Cell[I, R]) Evaluate(inputs I, produce func() (R, error)) (R, error) {
	c.stats.Evaluations++
	c.ran = false

	if c.primed {
		same, err := c.compare(inputs)
		if err != nil {
			var zero R
			return zero, err
		}
		if same {
			c.stats.Hits++
			return c.result, nil
		}
	}

	return c.produce(inputs, produce)
}

// Recompute invokes produce unconditionally and stores the result, as if the
// stored snapshot had compared unequal. It is used when something other than
// the inputs (such as the owner's own state) requires a fresh result.
func (c *Cell[I, R]) Recompute(inputs I, produce func() (R, error)) (R, error) {
	c.stats.Evaluations++
	c.ran = false
	return c.produce(inputs, produce)
}

// Peek returns the stored result and whether the cell holds one.
func (c *Cell[I, R]) Peek() (R, bool) {
	return c.result, c.primed
}

// Primed reports whether the cell holds a snapshot.
func (c *Cell[I, R]) Primed() bool {
	return c.primed
}

// Ran reports whether the most recent Evaluate or Recompute invoked the
// producer, whether or not the producer succeeded.
func (c *Cell[I, R]) Ran() bool {
	return c.ran
}

// Stats returns the cell's counters.
func (c *Cell[I, R]) Stats() Stats {
	return c.stats
}

// Reset drops the stored snapshot. The next evaluation always produces.
func (c *Cell[I, R]) Reset() {
	var (
		zeroI I
		zeroR R
	)
	c.inputs, c.result, c.primed = zeroI, zeroR, false
}

func (c *Cell[I, R]) produce(inputs I, produce func() (R, error)) (R, error) {
	c.ran = true
	result, err := produce()
	if err != nil {
		c.stats.Failures++
		var zero R
		return zero, err
	}
	c.stats.Misses++
	c.inputs, c.result, c.primed = inputs, result, true
	return result, nil
}

// compare runs the comparator, reporting a panic as ErrComparator.
func (c *Cell[I, R]) compare(next I) (same bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			same, err = false, fmt.Errorf("%w: %v", ErrComparator, r)
		}
	}()
	return c.eq(c.inputs, next)
}
