package compose

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/memo/pkg/memo"
	"github.com/vango-dev/memo/pkg/vdom"
)

// CallSite is one position in the composition tree. It owns the memoization
// state of the component rendered there: the component's props cell, one
// slot per hook, and the call sites of its children.
//
// A CallSite is created the first time its parent renders a child at that
// key and lives until a render of the parent no longer produces it, or the
// child's component changes. Disposing a site disposes its children, runs
// its cleanups in reverse order and drops every cached value it held.
//
// CallSite methods other than Path, Component, Fingerprint and Disposed
// must only be used from the scheduler's update cycle.
type CallSite struct {
	id          uint64
	key         string
	name        string
	path        string
	fingerprint uint64
	depth       int

	parent *CallSite
	sched  *Scheduler

	// children in the order the last render produced them.
	children []*CallSite
	byKey    map[string]*CallSite

	boundary boundary
	cleanups []func()
	disposed atomic.Bool

	// dirty marks a site whose own state changed. A dirty site renders
	// even when its props compare equal.
	dirty bool

	// Hook slot storage for stable identity across renders.
	hookSlots   []any
	hookSlotIdx int

	// Dev-mode hook order tracking (only used when memo.DebugMode is true)
	hookOrder   []HookType
	hookIndex   int
	renderCount int

	renders uint64
	skips   uint64
	view    *vdom.VNode
}

// boundary is the props-typed part of a call site: the component and the
// cache that decides whether it needs to run.
type boundary interface {
	refresh() error
	reset()
	stats() memo.Stats
}

func newSite(sched *Scheduler, parent *CallSite, key, name string) *CallSite {
	s := &CallSite{
		id:    sched.nextSiteID(),
		key:   key,
		name:  name,
		sched: sched,
		byKey: make(map[string]*CallSite),
	}
	if parent == nil {
		s.path = name
	} else {
		s.parent = parent
		s.depth = parent.depth + 1
		s.path = fmt.Sprintf("%s/%s[%s]", parent.path, name, key)
	}
	s.fingerprint = xxhash.Sum64String(s.path)
	return s
}

// Path returns the site's position as a slash-separated list of
// component[key] segments from the root.
func (s *CallSite) Path() string { return s.path }

// Component returns the name of the component rendered at this site.
func (s *CallSite) Component() string { return s.name }

// Fingerprint returns a stable hash of the site's path.
func (s *CallSite) Fingerprint() uint64 { return s.fingerprint }

// Disposed reports whether the site has been removed from the tree.
func (s *CallSite) Disposed() bool { return s.disposed.Load() }

// Render returns the view produced by the site's last successful render.
// It lets a site stand in for its view inside a parent's VNode tree.
func (s *CallSite) Render() *vdom.VNode { return s.view }

// Invalidate schedules an update cycle that re-renders the site, for
// changes that do not go through State.
func (s *CallSite) Invalidate(cause string) {
	s.sched.enqueue(trigger{cause: cause, sites: []*CallSite{s}})
}

func (s *CallSite) ref() SiteRef {
	return SiteRef{Path: s.path, Component: s.name, Fingerprint: s.fingerprint}
}

func (s *CallSite) stats() SiteStats {
	st := SiteStats{
		SiteRef: s.ref(),
		Depth:   s.depth,
		Renders: s.renders,
		Skips:   s.skips,
	}
	if s.boundary != nil {
		st.Cache = s.boundary.stats()
	}
	return st
}

// render runs one component render at this site. Panics are recovered into
// a *RenderError. On success the site adopts the children visited by the
// render, disposes the rest and stores view.
func (s *CallSite) render(fn func(r *Render) (*vdom.VNode, error)) (view *vdom.VNode, err error) {
	if s.disposed.Load() {
		return nil, fmt.Errorf("%w: %s", ErrSiteDisposed, s.path)
	}

	cyc := s.sched.cycle
	parentCtx := cyc.ctx
	ctx, span := s.sched.tracer.Start(parentCtx, "compose.render",
		trace.WithAttributes(
			attribute.String("memo.site", s.path),
			attribute.String("memo.component", s.name),
		),
	)
	cyc.ctx = ctx
	defer func() {
		cyc.ctx = parentCtx
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	r := &Render{site: s, visited: make(map[string]bool)}
	s.startRender()

	defer func() {
		if rec := recover(); rec != nil {
			view, err = nil, &RenderError{
				Site:      s.path,
				Component: s.name,
				Err:       panicError(rec),
				Stack:     debug.Stack(),
			}
		}
		if err != nil {
			s.abortRender()
		}
	}()

	view, err = fn(r)
	if err == nil {
		err = s.endRender()
	}
	if err != nil {
		return nil, wrapRenderError(s, err)
	}

	s.adopt(r.order)
	s.view = view
	s.dirty = false
	s.renders++
	cyc.rendered(s)
	return view, nil
}

func wrapRenderError(s *CallSite, err error) error {
	var re *RenderError
	if errors.As(err, &re) {
		return err
	}
	return &RenderError{Site: s.path, Component: s.name, Err: err}
}

// adopt makes order the site's children and disposes every previous child
// not in it, last first.
func (s *CallSite) adopt(order []*CallSite) {
	keep := make(map[*CallSite]bool, len(order))
	for _, c := range order {
		keep[c] = true
	}
	for i := len(s.children) - 1; i >= 0; i-- {
		if c := s.children[i]; !keep[c] {
			c.dispose()
		}
	}
	s.children = order
	s.byKey = make(map[string]*CallSite, len(order))
	for _, c := range order {
		s.byKey[c.key] = c
	}
}

// attach registers a newly created child so it is disposed with s even if
// the render creating it fails.
func (s *CallSite) attach(c *CallSite) {
	if old, ok := s.byKey[c.key]; ok {
		s.detach(old)
		old.dispose()
	}
	s.children = append(s.children, c)
	s.byKey[c.key] = c
}

func (s *CallSite) detach(c *CallSite) {
	for i, child := range s.children {
		if child == c {
			s.children = append(s.children[:i:i], s.children[i+1:]...)
			break
		}
	}
	if s.byKey[c.key] == c {
		delete(s.byKey, c.key)
	}
}

// dispose removes the site and its subtree. Children are disposed in
// reverse order, then the site's cleanups run in reverse registration
// order.
func (s *CallSite) dispose() {
	if s.disposed.Swap(true) {
		return
	}

	children := s.children
	s.children, s.byKey = nil, nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].dispose()
	}

	cleanups := s.cleanups
	s.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	if s.boundary != nil {
		s.boundary.reset()
	}
	s.hookSlots = nil
	s.view = nil
	s.sched.unmounted(s)
}

// =============================================================================
// Dev-mode Hook Order Validation
// =============================================================================

// startRender resets the hook slot index, and in debug mode the order
// validation index.
func (s *CallSite) startRender() {
	s.hookSlotIdx = 0
	if memo.DebugMode {
		s.hookIndex = 0
		if s.renderCount == 0 {
			s.hookOrder = s.hookOrder[:0]
		}
	}
}

// endRender validates that all expected hooks were called.
func (s *CallSite) endRender() error {
	if !memo.DebugMode {
		return nil
	}
	if s.renderCount == 0 {
		// First render complete, lock in hook order
		s.renderCount = 1
		return nil
	}
	if s.hookIndex < len(s.hookOrder) {
		return fmt.Errorf("%w: %s expected %d hooks, got %d",
			ErrHookOrder, s.path, len(s.hookOrder), s.hookIndex)
	}
	return nil
}

func (s *CallSite) abortRender() {
	s.hookSlotIdx = 0
}

// trackHook records a hook call during render for order validation.
func (s *CallSite) trackHook(ht HookType) {
	if !memo.DebugMode {
		return
	}

	if s.renderCount == 0 {
		s.hookOrder = append(s.hookOrder, ht)
		return
	}
	if s.hookIndex >= len(s.hookOrder) {
		panic(fmt.Errorf("%w: %s called an extra %s hook at index %d",
			ErrHookOrder, s.path, ht, s.hookIndex))
	}
	if want := s.hookOrder[s.hookIndex]; want != ht {
		panic(fmt.Errorf("%w: %s hook at index %d was %s, now %s",
			ErrHookOrder, s.path, s.hookIndex, want, ht))
	}
	s.hookIndex++
}
