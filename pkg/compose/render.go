package compose

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/vango-dev/memo/pkg/memo"
	"github.com/vango-dev/memo/pkg/vdom"
)

// Component renders a view from props. Components are called only by the
// scheduler, through Child or as the root.
//
// A component must produce the same hook calls in the same order on every
// render, and must not retain r after returning.
type Component[P any] func(r *Render, props P) (*vdom.VNode, error)

// Render is the handle a component receives for one render.
type Render struct {
	site *CallSite

	visited  map[string]bool
	order    []*CallSite
	unkeyedN int
}

// Site returns the call site being rendered.
func (r *Render) Site() *CallSite {
	return r.site
}

// Context returns the context of the update cycle, carrying its trace span.
func (r *Render) Context() context.Context {
	return r.site.sched.cycle.ctx
}

// Scheduler returns the scheduler running the render.
func (r *Render) Scheduler() *Scheduler {
	return r.site.sched
}

// componentBoundary binds a call site to a component of props type P.
type componentBoundary[P any] struct {
	site  *CallSite
	code  uintptr
	comp  Component[P]
	props P
	cache *memo.ComponentCache[P, *vdom.VNode]
}

func newBoundary[P any](site *CallSite, code uintptr, opts []memo.ComponentOption[P]) *componentBoundary[P] {
	b := &componentBoundary[P]{site: site, code: code}
	b.cache = memo.NewComponentCache(b.run, opts...)
	site.boundary = b
	return b
}

func (b *componentBoundary[P]) run(props P) (*vdom.VNode, error) {
	return b.site.render(func(r *Render) (*vdom.VNode, error) {
		return b.comp(r, props)
	})
}

// refresh re-renders with the props of the latest parent render.
func (b *componentBoundary[P]) refresh() error {
	_, err := b.cache.Refresh(b.props)
	return err
}

func (b *componentBoundary[P]) reset()            { b.cache.Reset() }
func (b *componentBoundary[P]) stats() memo.Stats { return b.cache.Stats() }

// Child renders comp with props at the position key among the children of
// the current render, and returns a placeholder standing for its view.
//
// The child's site keeps a component cache for props. When the child has
// no pending state change and props compare equal to the props of its last
// render, neither comp nor anything below it runs. The default comparison
// is memo.ShallowEqual; opts take effect when the site is created.
//
// An empty key gets a positional key among the render's unkeyed children,
// written "#0", "#1" and so on in site paths. An explicit key starting with
// "#" is stored with one more "#" in front, so it never takes the place of
// a positional one. Passing a different component at an existing key
// remounts the child.
func Child[P any](r *Render, key string, comp Component[P], props P, opts ...memo.ComponentOption[P]) (*vdom.VNode, error) {
	parent := r.site
	given := key
	switch {
	case key == "":
		key = "#" + strconv.Itoa(r.unkeyedN)
		r.unkeyedN++
	case strings.HasPrefix(key, "#"):
		key = "#" + key
	}
	if r.visited[key] {
		return nil, fmt.Errorf("%w: %q in %s", ErrDuplicateKey, given, parent.path)
	}
	r.visited[key] = true

	code := funcPC(comp)
	site := parent.byKey[key]
	b, ok := boundaryOf[P](site)
	if !ok || b.code != code {
		site = newSite(parent.sched, parent, key, componentName(code))
		parent.attach(site)
		b = newBoundary(site, code, opts)
	}
	r.order = append(r.order, site)

	b.comp = comp
	b.props = props

	var err error
	if site.dirty {
		_, err = b.cache.Refresh(props)
	} else {
		_, err = b.cache.Invoke(props)
	}
	if err != nil {
		return nil, err
	}
	if !b.cache.Rendered() {
		site.skips++
		parent.sched.cycle.skipped(site)
	}
	return vdom.Placeholder(site), nil
}

func funcPC[P any](comp Component[P]) uintptr {
	return reflect.ValueOf(comp).Pointer()
}

func boundaryOf[P any](site *CallSite) (*componentBoundary[P], bool) {
	if site == nil || site.disposed.Load() {
		return nil, false
	}
	b, ok := site.boundary.(*componentBoundary[P])
	return b, ok
}

// componentName returns the package-qualified name of the function at pc,
// such as "blog.PostList".
func componentName(pc uintptr) string {
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "component"
	}
	name := fn.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
