package compose

import (
	"time"

	"github.com/vango-dev/memo/pkg/memo"
)

// SiteRef identifies a call site in a cycle report.
type SiteRef struct {
	Path        string `json:"path"`
	Component   string `json:"component"`
	Fingerprint uint64 `json:"fingerprint"`
}

// CycleReport describes one update cycle.
type CycleReport struct {
	ID       uint64        `json:"id"`
	Cause    string        `json:"cause"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`

	// Rendered lists the sites whose component ran, in render order.
	Rendered []SiteRef `json:"rendered"`

	// Skipped lists the sites whose parent rendered but whose props
	// compared equal, so the site and its subtree were cut off.
	Skipped []SiteRef `json:"skipped"`

	// Unmounted lists the sites removed from the tree.
	Unmounted []SiteRef `json:"unmounted"`

	// Error is the cycle's failure, if any. A failed cycle publishes no
	// view.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the cycle aborted.
func (r CycleReport) Failed() bool {
	return r.Error != ""
}

// Observer receives a report after every update cycle. Observers run on
// the goroutine that ran the cycle, after the scheduler lock is released,
// so they may call back into the scheduler. They must not block.
type Observer interface {
	ObserveCycle(CycleReport)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(CycleReport)

// ObserveCycle calls f(r).
func (f ObserverFunc) ObserveCycle(r CycleReport) {
	f(r)
}

// SiteStats is a snapshot of one mounted call site.
type SiteStats struct {
	SiteRef
	Depth   int        `json:"depth"`
	Renders uint64     `json:"renders"`
	Skips   uint64     `json:"skips"`
	Cache   memo.Stats `json:"cache"`
}
