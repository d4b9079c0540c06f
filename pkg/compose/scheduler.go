package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/memo/pkg/vdom"
)

const (
	defaultTracerName = "github.com/vango-dev/memo/pkg/compose"
	defaultMaxCycles  = 100
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithTracer sets the tracer used for cycle and render spans.
// Default: the global provider's tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Scheduler) {
		s.tracer = tracer
	}
}

// WithObserver adds an observer of cycle reports.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observers = append(s.observers, o)
	}
}

// WithMaxCycles limits the number of update cycles one Flush may run.
func WithMaxCycles(n int) Option {
	return func(s *Scheduler) {
		s.maxCycles = n
	}
}

// trigger is one queued change. Each trigger becomes one update cycle.
type trigger struct {
	cause string
	sites []*CallSite
	apply []func()
}

// cycleState is the bookkeeping of the running update cycle.
type cycleState struct {
	ctx    context.Context
	report *CycleReport
	dirty  map[*CallSite]struct{}
}

func (c *cycleState) mark(s *CallSite) {
	if s.disposed.Load() {
		return
	}
	s.dirty = true
	c.dirty[s] = struct{}{}
}

func (c *cycleState) rendered(s *CallSite) {
	delete(c.dirty, s)
	c.report.Rendered = append(c.report.Rendered, s.ref())
}

func (c *cycleState) skipped(s *CallSite) {
	c.report.Skipped = append(c.report.Skipped, s.ref())
}

// Scheduler owns a composition tree and runs its update cycles.
//
// Changes arrive from any goroutine through State, CallSite.Invalidate and
// Dispatch. They are queued and applied one trigger per cycle, each cycle
// running to completion before the next starts. Renders run on the
// goroutine calling Mount, Flush or Run.
//
// The result of each successful cycle is published as a single immutable
// view; View never returns a tree with some sites updated and others not.
type Scheduler struct {
	root      Component[struct{}]
	logger    *slog.Logger
	tracer    trace.Tracer
	observers []Observer
	maxCycles int

	mu    sync.Mutex
	queue []trigger
	wake  chan struct{}

	// cycleMu serializes cycles and guards everything below it.
	cycleMu  sync.Mutex
	rootSite *CallSite
	cycle    *cycleState
	pending  map[*CallSite]struct{}
	mounted  bool
	closed   bool
	outbox   []CycleReport

	// deliverMu keeps reports in cycle order across callers.
	deliverMu sync.Mutex

	siteIDs atomic.Uint64
	cycles  atomic.Uint64
	view    atomic.Pointer[vdom.VNode]

	// batches maps goroutine ids to the Dispatch running on them.
	batches sync.Map
}

// NewScheduler creates a scheduler for the tree rooted at root.
func NewScheduler(root Component[struct{}], opts ...Option) *Scheduler {
	s := &Scheduler{
		root:      root,
		maxCycles: defaultMaxCycles,
		wake:      make(chan struct{}, 1),
		pending:   make(map[*CallSite]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(defaultTracerName)
	}
	return s
}

// Logger returns the scheduler's logger.
func (s *Scheduler) Logger() *slog.Logger {
	return s.logger
}

// Observe adds an observer. It receives the reports of cycles that end
// after it was added, and may be called from inside another observer.
func (s *Scheduler) Observe(o Observer) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	s.observers = append(s.observers, o)
}

// Mount creates the root call site and runs the first update cycle.
// Once a mount cycle has succeeded, Mount is a no-op; after a failed one,
// the next Mount renders the root again.
func (s *Scheduler) Mount(ctx context.Context) error {
	s.cycleMu.Lock()
	defer s.unlock()

	if s.closed {
		return ErrUnmounted
	}
	if s.rootSite == nil {
		code := funcPC(s.root)
		s.rootSite = newSite(s, nil, "", componentName(code))
		b := newBoundary[struct{}](s.rootSite, code, nil)
		b.comp = s.root
	} else if s.mounted {
		return nil
	}

	return s.runCycle(ctx, trigger{cause: "mount", sites: []*CallSite{s.rootSite}})
}

// Flush runs an update cycle for every queued trigger, including triggers
// queued by the cycles themselves, and returns when the queue is empty.
//
// The first failing cycle stops the flush and its error is returned. The
// view published before the failure stays current, and the sites left
// dirty by it are re-rendered by the next cycle. When the queue is empty
// but such sites remain, Flush runs one retry cycle for them.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.cycleMu.Lock()
	defer s.unlock()

	if s.closed {
		return ErrUnmounted
	}
	if s.rootSite == nil {
		return ErrNotMounted
	}

	retried := false
	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, ok := s.dequeue()
		if !ok {
			if len(s.pending) == 0 || retried {
				return nil
			}
			retried = true
			t = trigger{cause: "retry"}
		}
		if n >= s.maxCycles {
			s.requeue(t)
			return fmt.Errorf("%w: %d cycles", ErrCycleLimit, s.maxCycles)
		}
		if err := s.runCycle(ctx, t); err != nil {
			return err
		}
	}
}

// Run mounts the tree if needed and then runs cycles as triggers arrive,
// until ctx is done. Cycle failures are logged and do not stop Run.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Mount(ctx); err != nil {
		s.logger.Error("mount failed", "error", err)
	}

	for {
		if err := s.Flush(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrUnmounted) {
				return err
			}
			s.logger.Error("update cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		}
	}
}

// View returns the view published by the last successful cycle, or nil
// before the first one. The returned tree contains no component
// placeholders and is never modified.
func (s *Scheduler) View() *vdom.VNode {
	return s.view.Load()
}

// Cycles returns the number of update cycles started so far.
func (s *Scheduler) Cycles() uint64 {
	return s.cycles.Load()
}

// Pending returns the number of queued triggers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Sites returns a snapshot of every mounted call site in depth-first
// order.
func (s *Scheduler) Sites() []SiteStats {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	var out []SiteStats
	var walk func(*CallSite)
	walk = func(site *CallSite) {
		out = append(out, site.stats())
		for _, c := range site.children {
			walk(c)
		}
	}
	if s.rootSite != nil && !s.rootSite.Disposed() {
		walk(s.rootSite)
	}
	return out
}

// Unmount disposes the whole tree. Later changes are dropped and a running
// Run returns ErrUnmounted.
func (s *Scheduler) Unmount() {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.rootSite != nil {
		s.rootSite.dispose()
	}
	s.view.Store(nil)

	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Dispatch runs fn and collects every State change it makes on the calling
// goroutine into a single trigger, queued when fn returns. Nested calls
// join the outermost one.
func (s *Scheduler) Dispatch(cause string, fn func()) {
	gid := getGoroutineID()
	if _, ok := s.batches.Load(gid); ok {
		fn()
		return
	}

	b := &trigger{cause: cause}
	s.batches.Store(gid, b)
	defer func() {
		s.batches.Delete(gid)
		if len(b.apply) > 0 || len(b.sites) > 0 {
			s.enqueue(*b)
		}
	}()
	fn()
}

// enqueueChange queues a state commit for site, joining the goroutine's
// Dispatch if one is running.
func (s *Scheduler) enqueueChange(site *CallSite, apply func()) {
	if site.disposed.Load() {
		return
	}
	if v, ok := s.batches.Load(getGoroutineID()); ok {
		b := v.(*trigger)
		b.sites = append(b.sites, site)
		b.apply = append(b.apply, apply)
		return
	}
	s.enqueue(trigger{
		cause: "state " + site.path,
		sites: []*CallSite{site},
		apply: []func(){apply},
	})
}

func (s *Scheduler) enqueue(t trigger) {
	s.mu.Lock()
	s.queue = append(s.queue, t)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) dequeue() (trigger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return trigger{}, false
	}
	t := s.queue[0]
	s.queue[0] = trigger{}
	s.queue = s.queue[1:]
	return t, true
}

func (s *Scheduler) requeue(t trigger) {
	s.mu.Lock()
	s.queue = append([]trigger{t}, s.queue...)
	s.mu.Unlock()
}

func (s *Scheduler) nextSiteID() uint64 {
	return s.siteIDs.Add(1)
}

// unmounted records a disposed site in the running cycle's report.
func (s *Scheduler) unmounted(site *CallSite) {
	delete(s.pending, site)
	if s.cycle != nil {
		delete(s.cycle.dirty, site)
		s.cycle.report.Unmounted = append(s.cycle.report.Unmounted, site.ref())
	}
	s.logger.Debug("call site unmounted", "site", site.path)
}

// runCycle applies t and re-renders every dirty site. Must hold cycleMu.
func (s *Scheduler) runCycle(ctx context.Context, t trigger) (err error) {
	id := s.cycles.Add(1)
	ctx, span := s.tracer.Start(ctx, "compose.cycle",
		trace.WithAttributes(
			attribute.Int64("memo.cycle", int64(id)),
			attribute.String("memo.cause", t.cause),
		),
	)
	defer span.End()

	report := CycleReport{ID: id, Cause: t.cause, Started: time.Now()}
	cyc := &cycleState{ctx: ctx, report: &report, dirty: make(map[*CallSite]struct{})}
	s.cycle = cyc
	defer func() { s.cycle = nil }()

	for _, apply := range t.apply {
		apply()
	}
	for site := range s.pending {
		cyc.mark(site)
	}
	for _, site := range t.sites {
		cyc.mark(site)
	}

	s.logger.Debug("update cycle started", "cycle", id, "cause", t.cause, "dirty", len(cyc.dirty))

	err = s.walk(cyc)
	report.Duration = time.Since(report.Started)

	if err != nil {
		// Sites still dirty, the failed one included, retry next cycle.
		s.pending = cyc.dirty
		report.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("update cycle failed", "cycle", id, "cause", t.cause, "error", err)
	} else {
		s.pending = make(map[*CallSite]struct{})
		s.mounted = true
		s.view.Store(materialize(s.rootSite.view))
		span.SetAttributes(
			attribute.Int("memo.rendered", len(report.Rendered)),
			attribute.Int("memo.skipped", len(report.Skipped)),
		)
		s.logger.Debug("update cycle finished",
			"cycle", id,
			"rendered", len(report.Rendered),
			"skipped", len(report.Skipped),
			"unmounted", len(report.Unmounted),
			"duration", report.Duration,
		)
	}

	s.outbox = append(s.outbox, report)
	return err
}

// unlock releases cycleMu and then hands the reports of the cycles run
// under it to the observers, in cycle order.
func (s *Scheduler) unlock() {
	reports := s.outbox
	s.outbox = nil
	observers := s.observers

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.cycleMu.Unlock()

	for _, r := range reports {
		for _, o := range observers {
			o.ObserveCycle(r)
		}
	}
}

// walk re-renders the topmost dirty site until none is left. A dirty site
// below a dirty ancestor is reached by the ancestor's render, or disposed
// by it.
func (s *Scheduler) walk(cyc *cycleState) error {
	for len(cyc.dirty) > 0 {
		next := topmost(cyc.dirty)
		if next.disposed.Load() || next.boundary == nil {
			delete(cyc.dirty, next)
			continue
		}
		if err := next.boundary.refresh(); err != nil {
			return err
		}
		delete(cyc.dirty, next)
	}
	return nil
}

func topmost(dirty map[*CallSite]struct{}) *CallSite {
	sites := make([]*CallSite, 0, len(dirty))
	for site := range dirty {
		sites = append(sites, site)
	}
	sort.Slice(sites, func(i, j int) bool {
		if sites[i].depth != sites[j].depth {
			return sites[i].depth < sites[j].depth
		}
		return sites[i].id < sites[j].id
	})
	return sites[0]
}

// materialize returns n with every component placeholder replaced by the
// component's current view. Subtrees without placeholders are shared, not
// copied.
func materialize(n *vdom.VNode) *vdom.VNode {
	if n == nil {
		return nil
	}
	if n.Kind == vdom.KindComponent {
		if n.Comp == nil {
			return nil
		}
		return materialize(n.Comp.Render())
	}

	var children []*vdom.VNode
	for i, c := range n.Children {
		m := materialize(c)
		if m == c && children == nil {
			continue
		}
		if children == nil {
			children = make([]*vdom.VNode, i, len(n.Children))
			copy(children, n.Children[:i])
		}
		if m != nil {
			children = append(children, m)
		}
	}
	if children == nil {
		return n
	}
	out := *n
	out.Children = children
	return &out
}
