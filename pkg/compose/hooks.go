package compose

import (
	"fmt"

	"github.com/vango-dev/memo/pkg/memo"
)

// HookType identifies the kind of hook occupying a slot.
type HookType uint8

const (
	HookState HookType = iota + 1
	HookMemo
	HookCallback
	HookCleanup
)

// String returns a human-readable name for the hook type.
func (h HookType) String() string {
	switch h {
	case HookState:
		return "State"
	case HookMemo:
		return "Memo"
	case HookCallback:
		return "Callback"
	case HookCleanup:
		return "Cleanup"
	default:
		return "Unknown"
	}
}

// slot returns the value stored in the next hook slot of r's site,
// creating it with init on the first render. A slot holding a different
// type panics with ErrHookOrder; the render recovers it into a
// RenderError.
func slot[T any](r *Render, ht HookType, init func() T) T {
	s := r.site
	s.trackHook(ht)

	idx := s.hookSlotIdx
	s.hookSlotIdx++

	if idx < len(s.hookSlots) {
		v, ok := s.hookSlots[idx].(T)
		if !ok {
			var want T
			panic(fmt.Errorf("%w: slot %d of %s holds %T, got %s hook of %T",
				ErrHookOrder, idx, s.path, s.hookSlots[idx], ht, want))
		}
		return v
	}

	v := init()
	s.hookSlots = append(s.hookSlots, v)
	return v
}

// UseState returns the state cell at this hook position. The initial value
// is used on the first render only.
func UseState[T any](r *Render, initial T) *State[T] {
	return slot(r, HookState, func() *State[T] {
		return &State[T]{site: r.site, value: initial, latest: initial}
	})
}

type memoHook[R any] struct {
	compute func() (R, error)
	cache   *memo.ValueCache[R]
}

// UseMemoErr returns the result of compute, rerunning it only when deps
// change. An error from compute is returned and not cached.
//
// deps must list every value compute reads that can change between
// renders, in the same order on every render.
func UseMemoErr[R any](r *Render, compute func() (R, error), deps ...any) (R, error) {
	h := slot(r, HookMemo, func() *memoHook[R] {
		h := &memoHook[R]{}
		h.cache = memo.NewValueCache(func() (R, error) {
			return h.compute()
		})
		return h
	})
	h.compute = compute
	return h.cache.Invoke(deps...)
}

// UseMemo is UseMemoErr for computations that cannot fail. A malformed
// dependency list fails the render.
func UseMemo[R any](r *Render, compute func() R, deps ...any) R {
	v, err := UseMemoErr(r, memo.Pure(compute), deps...)
	if err != nil {
		panic(err)
	}
	return v
}

type callbackHook[F any] struct {
	latest F
	cache  *memo.CallbackCache[F]
}

// UseCallback returns fn as it was on the last render where deps changed.
// While deps are unchanged the returned function is the identical value,
// so children comparing it by identity are not re-rendered.
//
// A returned function only sees the values it captured when it was kept,
// so every captured value that can change must be listed in deps.
func UseCallback[F any](r *Render, fn F, deps ...any) F {
	h := slot(r, HookCallback, func() *callbackHook[F] {
		h := &callbackHook[F]{}
		h.cache = memo.NewCallbackCache(func() F {
			return h.latest
		})
		return h
	})
	h.latest = fn
	return h.cache.Invoke(deps...)
}

type cleanupHook struct {
	fn func()
}

// OnCleanup registers fn to run when the call site is unmounted. Each
// render may pass a new function; the one passed by the latest render
// runs.
func OnCleanup(r *Render, fn func()) {
	created := false
	h := slot(r, HookCleanup, func() *cleanupHook {
		created = true
		return &cleanupHook{}
	})
	h.fn = fn
	if created {
		r.site.cleanups = append(r.site.cleanups, func() {
			if h.fn != nil {
				h.fn()
			}
		})
	}
}
