package compose

import (
	"errors"
	"testing"

	"github.com/vango-dev/memo/pkg/memo"
	"github.com/vango-dev/memo/pkg/vdom"
)

type buttonProps struct {
	Label   string
	OnClick func()
}

func TestUseCallbackKeepsChildCutOff(t *testing.T) {
	var buttonRuns int
	var ticks, step *State[int]

	button := func(r *Render, p buttonProps) (*vdom.VNode, error) {
		buttonRuns++
		return vdom.Button(p.Label), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		ticks = UseState(r, 0)
		step = UseState(r, 1)
		n := step.Get()
		onClick := UseCallback(r, func() { ticks.Update(func(v int) int { return v + n }) }, n)
		c, err := Child(r, "btn", button, buttonProps{Label: "add", OnClick: onClick})
		if err != nil {
			return nil, err
		}
		return vdom.Div(vdom.Textf("%d", ticks.Get()), c), nil
	}

	s := NewScheduler(root)
	mount(t, s)

	ticks.Set(10)
	flush(t, s)
	if buttonRuns != 1 {
		t.Errorf("button rendered %d times, want 1 while the callback is stable", buttonRuns)
	}

	step.Set(2)
	flush(t, s)
	if buttonRuns != 2 {
		t.Errorf("button rendered %d times, want 2 after a dependency changed", buttonRuns)
	}
}

func TestFreshClosureDefeatsCutoff(t *testing.T) {
	var buttonRuns int
	var ticks *State[int]

	button := func(r *Render, p buttonProps) (*vdom.VNode, error) {
		buttonRuns++
		return vdom.Button(p.Label), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		ticks = UseState(r, 0)
		n := ticks.Get()
		c, err := Child(r, "btn", button, buttonProps{Label: "add", OnClick: func() { ticks.Set(n + 1) }})
		if err != nil {
			return nil, err
		}
		return vdom.Div(c), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	ticks.Set(1)
	flush(t, s)

	if buttonRuns != 2 {
		t.Errorf("button rendered %d times, want 2 with a new closure each render", buttonRuns)
	}
}

func TestCustomComparatorOption(t *testing.T) {
	type postProps struct {
		SignedIn bool
		Title    string
	}

	var postRuns int
	var signedIn *State[bool]

	post := func(r *Render, p postProps) (*vdom.VNode, error) {
		postRuns++
		return vdom.Article(p.Title), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		signedIn = UseState(r, true)
		c, err := Child(r, "p1", post, postProps{SignedIn: signedIn.Get(), Title: "P1"},
			memo.WithComparator(memo.Custom(func(prev, next postProps) bool {
				return prev.Title == next.Title
			})),
		)
		if err != nil {
			return nil, err
		}
		return vdom.Main(c), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	signedIn.Set(false)
	flush(t, s)

	if postRuns != 1 {
		t.Errorf("post rendered %d times, want 1 (signed-in flag ignored)", postRuns)
	}
}

func TestUseMemoRecomputesOnDeps(t *testing.T) {
	var computes int
	var key, other *State[string]

	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		key = UseState(r, "a")
		other = UseState(r, "x")
		k := key.Get()
		upper := UseMemo(r, func() string {
			computes++
			return k + k
		}, k)
		return vdom.Textf("%s %s", upper, other.Get()), nil
	}

	s := NewScheduler(root)
	mount(t, s)

	other.Set("y")
	flush(t, s)
	if computes != 1 {
		t.Errorf("computed %d times, want 1 while deps are unchanged", computes)
	}

	key.Set("b")
	flush(t, s)
	if computes != 2 {
		t.Errorf("computed %d times, want 2", computes)
	}
	if got := html(t, s); got != "bb y" {
		t.Errorf("view = %q", got)
	}
}

func TestUseMemoErrIsNotCached(t *testing.T) {
	var attempts int
	var bump *State[int]
	fail := true

	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		bump = UseState(r, 0)
		_ = bump.Get()
		v, err := UseMemoErr(r, func() (int, error) {
			attempts++
			if fail {
				return 0, errors.New("not yet")
			}
			return 42, nil
		})
		if err != nil {
			return vdom.Text("loading"), nil
		}
		return vdom.Textf("%d", v), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	if got := html(t, s); got != "loading" {
		t.Fatalf("view = %q", got)
	}

	fail = false
	bump.Set(1)
	flush(t, s)
	if attempts != 2 {
		t.Errorf("compute attempted %d times, want 2", attempts)
	}
	if got := html(t, s); got != "42" {
		t.Errorf("view = %q", got)
	}
}

func TestUseMemoDepsLengthFailsRender(t *testing.T) {
	var flip *State[bool]
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		flip = UseState(r, false)
		if flip.Get() {
			UseMemo(r, func() int { return 1 }, 1, 2)
		} else {
			UseMemo(r, func() int { return 1 }, 1)
		}
		return vdom.Div(), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	flip.Set(true)

	var re *RenderError
	err := s.Flush(t.Context())
	if !errors.Is(err, memo.ErrDepsLength) || !errors.As(err, &re) {
		t.Fatalf("expected a RenderError wrapping ErrDepsLength, got %v", err)
	}
}

func TestSiteStats(t *testing.T) {
	var n *State[int]
	leaf := func(r *Render, p labelProps) (*vdom.VNode, error) {
		return vdom.Li(p.Label), nil
	}
	root := func(r *Render, _ struct{}) (*vdom.VNode, error) {
		n = UseState(r, 0)
		_ = n.Get()
		c, err := Child(r, "leaf", leaf, labelProps{Label: "l"})
		if err != nil {
			return nil, err
		}
		return vdom.Ul(c), nil
	}

	s := NewScheduler(root)
	mount(t, s)
	n.Set(1)
	flush(t, s)

	sites := s.Sites()
	if len(sites) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(sites))
	}
	if sites[0].Depth != 0 || sites[0].Renders != 2 {
		t.Errorf("root stats %+v", sites[0])
	}
	leafStats := sites[1]
	if leafStats.Depth != 1 || leafStats.Renders != 1 || leafStats.Skips != 1 {
		t.Errorf("leaf stats %+v", leafStats)
	}
	if leafStats.Cache.Hits != 1 || leafStats.Fingerprint == 0 {
		t.Errorf("leaf cache stats %+v", leafStats)
	}
}
