// Package profile records update cycle reports and exports them as JSON
// documents, to local disk or to S3.
package profile

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/memo/pkg/compose"
)

// DefaultLimit is the number of cycles a Recorder keeps when created with
// a non-positive limit.
const DefaultLimit = 256

// Profile is an exported recording.
type Profile struct {
	ID      uuid.UUID             `json:"id"`
	Created time.Time             `json:"created"`
	Summary Summary               `json:"summary"`
	Cycles  []compose.CycleReport `json:"cycles"`
	Sites   []compose.SiteStats   `json:"sites"`
}

// Summary aggregates the cycles of a profile.
type Summary struct {
	Cycles   int `json:"cycles"`
	Failures int `json:"failures"`
	Renders  int `json:"renders"`
	Skips    int `json:"skips"`

	// SkipRatio is Skips over Renders+Skips: the share of child
	// evaluations cut off by unchanged props.
	SkipRatio float64 `json:"skipRatio"`
}

// Summarize computes the summary of cycles.
func Summarize(cycles []compose.CycleReport) Summary {
	var s Summary
	for _, c := range cycles {
		s.Cycles++
		if c.Failed() {
			s.Failures++
		}
		s.Renders += len(c.Rendered)
		s.Skips += len(c.Skipped)
	}
	if total := s.Renders + s.Skips; total > 0 {
		s.SkipRatio = float64(s.Skips) / float64(total)
	}
	return s
}

// Recorder is a compose.Observer keeping the most recent cycle reports.
// It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	cycles []compose.CycleReport
	subs   map[chan compose.CycleReport]struct{}
}

// NewRecorder creates a recorder keeping up to limit cycles.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Recorder{
		limit: limit,
		subs:  make(map[chan compose.CycleReport]struct{}),
	}
}

// ObserveCycle implements compose.Observer.
func (r *Recorder) ObserveCycle(report compose.CycleReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cycles = append(r.cycles, report)
	if over := len(r.cycles) - r.limit; over > 0 {
		r.cycles = append(r.cycles[:0:0], r.cycles[over:]...)
	}

	for ch := range r.subs {
		select {
		case ch <- report:
		default:
			// Subscriber is behind; drop rather than block the scheduler.
		}
	}
}

// Cycles returns a copy of the recorded reports, oldest first.
func (r *Recorder) Cycles() []compose.CycleReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]compose.CycleReport(nil), r.cycles...)
}

// Subscribe returns a channel receiving every report observed after the
// call, and a function that ends the subscription.
func (r *Recorder) Subscribe(buffer int) (<-chan compose.CycleReport, func()) {
	ch := make(chan compose.CycleReport, buffer)

	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, ch)
			r.mu.Unlock()
			close(ch)
		})
	}
}

// Profile builds a profile of the recorded cycles and the given site
// snapshot.
func (r *Recorder) Profile(sites []compose.SiteStats) *Profile {
	cycles := r.Cycles()
	return &Profile{
		ID:      uuid.New(),
		Created: time.Now().UTC(),
		Summary: Summarize(cycles),
		Cycles:  cycles,
		Sites:   sites,
	}
}
