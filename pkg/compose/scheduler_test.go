package compose

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/memo/pkg/memo"
	"github.com/vango-dev/memo/pkg/render"
	"github.com/vango-dev/memo/pkg/vdom"
)

type labelProps struct {
	Label string
}

func html(t *testing.T, s *Scheduler) string {
	t.Helper()
	out, err := render.NewRenderer(render.RendererConfig{}).RenderToString(s.View())
	if err != nil {
		t.Fatalf("render view: %v", err)
	}
	return out
}

func mount(t *testing.T, s *Scheduler) {
	t.Helper()
	if err := s.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
}

func flush(t *testing.T, s *Scheduler) {
	t.Helper()
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestChildCutoff(t *testing.T) {
	var rootRuns, childRuns int
	var count *State[int]

	label := func(r *Render, p labelProps) (*vdom.VNode, error) {
		childRuns++
		return vdom.Span(p.Label), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		rootRuns++
		count = UseState(r, 0)
		c, err := Child(r, "label", label, labelProps{Label: "static"})
		if err != nil {
			return nil, err
		}
		return vdom.Div(vdom.Textf("%d", count.Get()), c), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	if got := html(t, s); got != "<div>0<span>static</span></div>" {
		t.Fatalf("initial view = %q", got)
	}

	var reports []CycleReport
	s.Observe(ObserverFunc(func(r CycleReport) { reports = append(reports, r) }))

	count.Set(1)
	flush(t, s)

	if rootRuns != 2 {
		t.Errorf("root rendered %d times, want 2", rootRuns)
	}
	if childRuns != 1 {
		t.Errorf("child rendered %d times, want 1 (props unchanged)", childRuns)
	}
	if got := html(t, s); got != "<div>1<span>static</span></div>" {
		t.Errorf("view = %q", got)
	}

	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	if len(reports[0].Rendered) != 1 || len(reports[0].Skipped) != 1 {
		t.Errorf("report rendered=%v skipped=%v", reports[0].Rendered, reports[0].Skipped)
	}
	if !strings.HasSuffix(reports[0].Skipped[0].Path, "[label]") {
		t.Errorf("skipped path = %q", reports[0].Skipped[0].Path)
	}
}

func TestChildRerendersOnPropsChange(t *testing.T) {
	var childRuns int
	var text *State[string]

	label := func(r *Render, p labelProps) (*vdom.VNode, error) {
		childRuns++
		return vdom.Span(p.Label), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		text = UseState(r, "a")
		c, err := Child(r, "label", label, labelProps{Label: text.Get()})
		if err != nil {
			return nil, err
		}
		return vdom.Div(c), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	text.Set("b")
	flush(t, s)

	if childRuns != 2 {
		t.Errorf("child rendered %d times, want 2", childRuns)
	}
	if got := html(t, s); got != "<div><span>b</span></div>" {
		t.Errorf("view = %q", got)
	}
}

func TestChildStateRendersOnlyChild(t *testing.T) {
	var rootRuns, childRuns int
	var likes *State[int]

	counter := func(r *Render, p labelProps) (*vdom.VNode, error) {
		childRuns++
		likes = UseState(r, 0)
		return vdom.Span(vdom.Textf("%s %d", p.Label, likes.Get())), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		rootRuns++
		c, err := Child(r, "", counter, labelProps{Label: "likes"})
		if err != nil {
			return nil, err
		}
		return vdom.Div(c), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	likes.Update(func(n int) int { return n + 1 })
	flush(t, s)

	if rootRuns != 1 || childRuns != 2 {
		t.Errorf("root=%d child=%d renders, want 1 and 2", rootRuns, childRuns)
	}
	if got := html(t, s); got != "<div><span>likes 1</span></div>" {
		t.Errorf("view = %q", got)
	}
}

func TestUnmountRunsCleanups(t *testing.T) {
	var show *State[bool]
	var events []string

	item := func(r *Render, p labelProps) (*vdom.VNode, error) {
		OnCleanup(r, func() { events = append(events, "first "+p.Label) })
		OnCleanup(r, func() { events = append(events, "second "+p.Label) })
		return vdom.Li(p.Label), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		show = UseState(r, true)
		if !show.Get() {
			return vdom.Ul(), nil
		}
		c, err := Child(r, "x", item, labelProps{Label: "x"})
		if err != nil {
			return nil, err
		}
		return vdom.Ul(c), nil
	}

	var last CycleReport
	s := NewScheduler(root, WithObserver(ObserverFunc(func(r CycleReport) { last = r })))
	mount(t, s)
	if len(s.Sites()) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(s.Sites()))
	}

	show.Set(false)
	flush(t, s)

	want := []string{"second x", "first x"}
	if len(events) != 2 || events[0] != want[0] || events[1] != want[1] {
		t.Errorf("cleanups ran as %v, want %v", events, want)
	}
	if len(last.Unmounted) != 1 {
		t.Errorf("report unmounted = %v", last.Unmounted)
	}
	if len(s.Sites()) != 1 {
		t.Errorf("expected only the root site, got %d", len(s.Sites()))
	}
	if got := html(t, s); got != "<ul></ul>" {
		t.Errorf("view = %q", got)
	}
}

func TestFailedCycleKeepsView(t *testing.T) {
	var childRuns int
	var text *State[string]
	var rootSite *CallSite
	fail := true

	label := func(r *Render, p labelProps) (*vdom.VNode, error) {
		childRuns++
		if p.Label == "bad" && fail {
			return nil, errors.New("boom")
		}
		return vdom.Span(p.Label), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		rootSite = r.Site()
		text = UseState(r, "ok")
		c, err := Child(r, "label", label, labelProps{Label: text.Get()})
		if err != nil {
			return nil, err
		}
		return vdom.Div(c), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	before := s.View()

	text.Set("bad")
	err := s.Flush(context.Background())
	var re *RenderError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RenderError, got %v", err)
	}
	if !strings.HasSuffix(re.Site, "[label]") {
		t.Errorf("error names site %q, want the child", re.Site)
	}
	if s.View() != before {
		t.Error("failed cycle must not publish a view")
	}

	// The failed props were not cached: the retry renders again.
	fail = false
	rootSite.Invalidate("retry")
	flush(t, s)

	if childRuns != 3 {
		t.Errorf("child rendered %d times, want 3", childRuns)
	}
	if got := html(t, s); got != "<div><span>bad</span></div>" {
		t.Errorf("view = %q", got)
	}
}

func TestRenderPanicIsRecovered(t *testing.T) {
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		panic("kaboom")
	}

	s := NewScheduler(root)
	err := s.Mount(context.Background())
	if !errors.Is(err, ErrRenderPanic) {
		t.Fatalf("expected ErrRenderPanic, got %v", err)
	}
	var re *RenderError
	if !errors.As(err, &re) || len(re.Stack) == 0 {
		t.Error("expected a RenderError with a stack")
	}
	if s.View() != nil {
		t.Error("no view should be published")
	}
}

func TestDuplicateKey(t *testing.T) {
	label := func(r *Render, p labelProps) (*vdom.VNode, error) {
		return vdom.Span(p.Label), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		if _, err := Child(r, "k", label, labelProps{}); err != nil {
			return nil, err
		}
		if _, err := Child(r, "k", label, labelProps{}); err != nil {
			return nil, err
		}
		return vdom.Div(), nil
	}

	err := NewScheduler(root).Mount(context.Background())
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestDispatchBatchesChanges(t *testing.T) {
	var a, b *State[int]
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		a = UseState(r, 0)
		b = UseState(r, 0)
		return vdom.Textf("%d %d", a.Get(), b.Get()), nil
	}

	s := NewScheduler(root)
	mount(t, s)

	s.Dispatch("click", func() {
		a.Set(1)
		s.Dispatch("nested", func() { b.Set(2) })
	})
	if s.Pending() != 1 {
		t.Fatalf("expected 1 queued trigger, got %d", s.Pending())
	}
	flush(t, s)
	if s.Cycles() != 2 {
		t.Errorf("expected 2 cycles, got %d", s.Cycles())
	}

	a.Set(3)
	b.Set(4)
	flush(t, s)
	if s.Cycles() != 4 {
		t.Errorf("expected 4 cycles, got %d", s.Cycles())
	}
	if got := html(t, s); got != "3 4" {
		t.Errorf("view = %q", got)
	}
}

func TestStateSetSameValue(t *testing.T) {
	var n *State[int]
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		n = UseState(r, 5)
		return vdom.Textf("%d", n.Get()), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	n.Set(5)
	if s.Pending() != 0 {
		t.Errorf("setting an identical value queued %d triggers", s.Pending())
	}
}

func TestStateCommittedPerCycle(t *testing.T) {
	var n *State[int]
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		n = UseState(r, 0)
		return vdom.Textf("%d", n.Get()), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	n.Set(1)
	if n.Get() != 0 {
		t.Error("Get must return the committed value until the cycle runs")
	}
	flush(t, s)
	if n.Get() != 1 {
		t.Errorf("Get = %d after flush, want 1", n.Get())
	}
}

func TestConcurrentUpdates(t *testing.T) {
	var n *State[int]
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		n = UseState(r, 0)
		return vdom.Textf("%d", n.Get()), nil
	}

	s := NewScheduler(root)
	mount(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Update(func(v int) int { return v + 1 })
		}()
	}
	wg.Wait()
	flush(t, s)

	if got := html(t, s); got != "10" {
		t.Errorf("view = %q, want 10", got)
	}
	if s.Cycles() != 11 {
		t.Errorf("expected one cycle per update, got %d cycles", s.Cycles())
	}
}

func TestRunServesTriggers(t *testing.T) {
	var n *State[int]
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		n = UseState(r, 0)
		return vdom.Textf("%d", n.Get()), nil
	}

	reports := make(chan CycleReport, 4)
	s := NewScheduler(root, WithObserver(ObserverFunc(func(r CycleReport) { reports <- r })))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	next := func() CycleReport {
		select {
		case r := <-reports:
			return r
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for a cycle")
			return CycleReport{}
		}
	}

	if r := next(); r.Cause != "mount" {
		t.Fatalf("first cycle cause = %q", r.Cause)
	}
	n.Set(7)
	if r := next(); r.Failed() || len(r.Rendered) != 1 {
		t.Fatalf("unexpected report %+v", r)
	}
	if got := html(t, s); got != "7" {
		t.Errorf("view = %q", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func TestCycleLimit(t *testing.T) {
	var n *State[int]
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		n = UseState(r, 0)
		n.Set(n.Get() + 1)
		return vdom.Textf("%d", n.Get()), nil
	}

	s := NewScheduler(root, WithMaxCycles(3))
	mount(t, s)
	if err := s.Flush(context.Background()); !errors.Is(err, ErrCycleLimit) {
		t.Fatalf("expected ErrCycleLimit, got %v", err)
	}
}

func TestFlushBeforeMount(t *testing.T) {
	s := NewScheduler(func(r *Render, _ struct{}) (*vdom.VNode, error) { return nil, nil })
	if err := s.Flush(context.Background()); !errors.Is(err, ErrNotMounted) {
		t.Errorf("expected ErrNotMounted, got %v", err)
	}
	mount(t, s)
	s.Unmount()
	if err := s.Flush(context.Background()); !errors.Is(err, ErrUnmounted) {
		t.Errorf("expected ErrUnmounted, got %v", err)
	}
}

func TestUnmountDisposesTree(t *testing.T) {
	var cleaned []string
	var n *State[int]
	leaf := func(r *Render, p labelProps) (*vdom.VNode, error) {
		OnCleanup(r, func() { cleaned = append(cleaned, p.Label) })
		return vdom.Li(p.Label), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		n = UseState(r, 0)
		OnCleanup(r, func() { cleaned = append(cleaned, "root") })
		a, err := Child(r, "a", leaf, labelProps{Label: "a"})
		if err != nil {
			return nil, err
		}
		b, err := Child(r, "b", leaf, labelProps{Label: "b"})
		if err != nil {
			return nil, err
		}
		return vdom.Ul(a, b), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	s.Unmount()

	want := "b a root"
	if got := strings.Join(cleaned, " "); got != want {
		t.Errorf("cleanup order %q, want %q", got, want)
	}
	if s.View() != nil {
		t.Error("view should be cleared")
	}

	n.Set(1)
	if s.Pending() != 0 {
		t.Error("changes after Unmount must be dropped")
	}
}

func TestHookOrderValidation(t *testing.T) {
	memo.DebugMode = true
	defer func() { memo.DebugMode = false }()

	var flag *State[bool]
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		flag = UseState(r, true)
		if flag.Get() {
			UseMemo(r, func() int { return 1 })
		}
		return vdom.Div(), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	flag.Set(false)
	if err := s.Flush(context.Background()); !errors.Is(err, ErrHookOrder) {
		t.Fatalf("expected ErrHookOrder, got %v", err)
	}
}

func TestHookKindMismatch(t *testing.T) {
	var flag *State[bool]
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		flag = UseState(r, true)
		if flag.Get() {
			UseMemo(r, func() int { return 1 })
		} else {
			UseState(r, "x")
		}
		return vdom.Div(), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	flag.Set(false)
	if err := s.Flush(context.Background()); !errors.Is(err, ErrHookOrder) {
		t.Fatalf("expected ErrHookOrder, got %v", err)
	}
}

func TestRemountOnComponentChange(t *testing.T) {
	var which *State[bool]
	var cleaned int
	first := func(r *Render, p labelProps) (*vdom.VNode, error) {
		OnCleanup(r, func() { cleaned++ })
		return vdom.Span("first"), nil
	}
	second := func(r *Render, p labelProps) (*vdom.VNode, error) {
		return vdom.Span("second"), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		which = UseState(r, true)
		comp := first
		if !which.Get() {
			comp = second
		}
		c, err := Child(r, "slot", comp, labelProps{})
		if err != nil {
			return nil, err
		}
		return vdom.Div(c), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	which.Set(false)
	flush(t, s)

	if cleaned != 1 {
		t.Errorf("first component cleaned %d times, want 1", cleaned)
	}
	if got := html(t, s); got != "<div><span>second</span></div>" {
		t.Errorf("view = %q", got)
	}
}

func TestViewHasNoPlaceholders(t *testing.T) {
	label := func(r *Render, p labelProps) (*vdom.VNode, error) {
		return vdom.Span(p.Label), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		c, err := Child(r, "", label, labelProps{Label: "x"})
		if err != nil {
			return nil, err
		}
		return vdom.Div(c), nil
	}

	s := NewScheduler(root)
	mount(t, s)

	var check func(*vdom.VNode)
	check = func(n *vdom.VNode) {
		if n.Kind == vdom.KindComponent {
			t.Fatal("published view contains a component placeholder")
		}
		for _, c := range n.Children {
			check(c)
		}
	}
	check(s.View())
}

func TestFailedMountIsRetried(t *testing.T) {
	var runs int
	fail := true
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		runs++
		if fail {
			return nil, errors.New("boom")
		}
		return vdom.Span("up"), nil
	}

	t.Run("Mount", func(t *testing.T) {
		runs, fail = 0, true
		s := NewScheduler(root)
		if err := s.Mount(context.Background()); err == nil {
			t.Fatal("expected the first mount to fail")
		}
		fail = false
		mount(t, s)
		if runs != 2 {
			t.Errorf("root rendered %d times, want 2", runs)
		}
		if got := html(t, s); got != "<span>up</span>" {
			t.Errorf("view = %q", got)
		}

		mount(t, s)
		if runs != 2 {
			t.Errorf("mounting a mounted tree rendered the root again")
		}
	})

	t.Run("Flush", func(t *testing.T) {
		runs, fail = 0, true
		s := NewScheduler(root)
		if err := s.Mount(context.Background()); err == nil {
			t.Fatal("expected the first mount to fail")
		}
		fail = false
		flush(t, s)
		if got := html(t, s); got != "<span>up</span>" {
			t.Errorf("view = %q", got)
		}

		flush(t, s)
		if runs != 2 {
			t.Errorf("root rendered %d times, want 2", runs)
		}
	})
}

func TestFlushRetriesFailedChild(t *testing.T) {
	fail := true
	label := func(r *Render, p labelProps) (*vdom.VNode, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return vdom.Span(p.Label), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		c, err := Child(r, "label", label, labelProps{Label: "ok"})
		if err != nil {
			return nil, err
		}
		return vdom.Div(c), nil
	}

	s := NewScheduler(root)
	if err := s.Mount(context.Background()); err == nil {
		t.Fatal("expected mount to fail")
	}
	if s.Pending() != 0 {
		t.Fatalf("queue should be empty, has %d triggers", s.Pending())
	}

	fail = false
	flush(t, s)
	if got := html(t, s); got != "<div><span>ok</span></div>" {
		t.Errorf("view = %q", got)
	}
}

func TestRunReturnsOnUnmount(t *testing.T) {
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		return vdom.Text("x"), nil
	}

	mounted := make(chan struct{}, 1)
	s := NewScheduler(root, WithObserver(ObserverFunc(func(r CycleReport) {
		if r.Cause == "mount" {
			mounted <- struct{}{}
		}
	})))

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case <-mounted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mount")
	}

	s.Unmount()
	select {
	case err := <-done:
		if !errors.Is(err, ErrUnmounted) {
			t.Errorf("Run returned %v, want ErrUnmounted", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Unmount")
	}
}

func TestObserverCallsBackIntoScheduler(t *testing.T) {
	var rootSite *CallSite
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		rootSite = r.Site()
		return vdom.Text("x"), nil
	}

	var s *Scheduler
	var sites []SiteStats
	var later []CycleReport
	s = NewScheduler(root, WithObserver(ObserverFunc(func(r CycleReport) {
		sites = s.Sites()
		if r.Cause == "mount" {
			s.Observe(ObserverFunc(func(r CycleReport) { later = append(later, r) }))
		}
	})))

	done := make(chan error, 1)
	go func() {
		if err := s.Mount(context.Background()); err != nil {
			done <- err
			return
		}
		rootSite.Invalidate("again")
		done <- s.Flush(context.Background())
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("observer calling the scheduler deadlocked")
	}

	if len(sites) != 1 {
		t.Errorf("observer saw %d sites, want 1", len(sites))
	}
	if len(later) != 1 || later[0].Cause == "mount" {
		t.Errorf("late observer got %+v, want only the second cycle", later)
	}
}

func TestExplicitKeysDoNotClashWithPositional(t *testing.T) {
	label := func(r *Render, p labelProps) (*vdom.VNode, error) {
		return vdom.Span(p.Label), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		a, err := Child(r, "#0", label, labelProps{Label: "explicit"})
		if err != nil {
			return nil, err
		}
		b, err := Child(r, "", label, labelProps{Label: "positional"})
		if err != nil {
			return nil, err
		}
		return vdom.Div(a, b), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	if got := html(t, s); got != "<div><span>explicit</span><span>positional</span></div>" {
		t.Errorf("view = %q", got)
	}

	sites := s.Sites()
	if len(sites) != 3 {
		t.Fatalf("got %d sites, want 3", len(sites))
	}
	if !strings.HasSuffix(sites[1].Path, "[##0]") || !strings.HasSuffix(sites[2].Path, "[#0]") {
		t.Errorf("paths = %q, %q", sites[1].Path, sites[2].Path)
	}

	twice := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		for range 2 {
			if _, err := Child(r, "#0", label, labelProps{}); err != nil {
				return nil, err
			}
		}
		return vdom.Div(), nil
	}
	err := NewScheduler(twice).Mount(context.Background())
	if !errors.Is(err, ErrDuplicateKey) || !strings.Contains(err.Error(), `"#0"`) {
		t.Errorf("expected ErrDuplicateKey naming \"#0\", got %v", err)
	}
}
