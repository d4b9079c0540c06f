package compose

import (
	"sync"

	"github.com/vango-dev/memo/pkg/memo"
)

// State holds a value owned by a call site. Setting it schedules an update
// cycle that re-renders the owning site.
//
// State is safe to set from any goroutine. A value set outside Dispatch
// becomes its own update cycle; values set inside one Dispatch call share
// a cycle. Get returns the value committed by the most recent cycle, so a
// render never observes a value that its cycle was not started for.
type State[T any] struct {
	site *CallSite

	mu     sync.Mutex
	value  T // committed
	latest T // last requested
	seq    uint64
	commit uint64
}

// Get returns the committed value.
func (s *State[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set requests v. A value identical to the last requested one is ignored
// and schedules nothing.
func (s *State[T]) Set(v T) {
	s.request(func(T) T { return v })
}

// Update applies fn to the last requested value and sets the result.
// fn runs with the state locked and must not touch s.
func (s *State[T]) Update(fn func(T) T) {
	s.request(fn)
}

func (s *State[T]) request(fn func(T) T) {
	s.mu.Lock()
	v := fn(s.latest)
	if memo.Same(s.latest, v) {
		s.mu.Unlock()
		return
	}
	s.latest = v
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	// Commits can reach the queue out of request order when several
	// goroutines set the same state; the newest request wins.
	s.site.sched.enqueueChange(s.site, func() {
		s.mu.Lock()
		if seq > s.commit {
			s.value, s.commit = v, seq
		}
		s.mu.Unlock()
	})
}
