package compose

import (
	"errors"
	"fmt"
)

var (
	// ErrHookOrder is returned when a component calls its hooks in a
	// different order or number than on its first render. Kind mismatches
	// are always detected; count changes only with memo.DebugMode.
	ErrHookOrder = errors.New("compose: hook order changed")

	// ErrDuplicateKey is returned by Child when two children of one render
	// share a key.
	ErrDuplicateKey = errors.New("compose: duplicate child key")

	// ErrSiteDisposed is returned when rendering a call site that has been
	// removed from the tree.
	ErrSiteDisposed = errors.New("compose: call site disposed")

	// ErrRenderPanic wraps a value recovered from a panicking component.
	ErrRenderPanic = errors.New("compose: component panicked")

	// ErrNotMounted is returned by Flush before Mount.
	ErrNotMounted = errors.New("compose: scheduler not mounted")

	// ErrUnmounted is returned by Mount and Flush after Unmount.
	ErrUnmounted = errors.New("compose: scheduler unmounted")

	// ErrCycleLimit is returned when one Flush would run more update
	// cycles than the configured limit, which usually means a render sets
	// state unconditionally.
	ErrCycleLimit = errors.New("compose: update cycle limit exceeded")
)

// RenderError reports a failed component render. It names the innermost
// call site that failed; enclosing sites that propagate the error return
// the same value.
type RenderError struct {
	// Site is the path of the failing call site.
	Site string

	// Component is the component's function name.
	Component string

	// Err is the error returned by the component, or an error wrapping
	// ErrRenderPanic.
	Err error

	// Stack is the goroutine stack captured when the component panicked.
	Stack []byte
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s (%s): %v", e.Site, e.Component, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// panicError converts a recovered value into an error wrapping
// ErrRenderPanic.
func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("%w: %w", ErrRenderPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrRenderPanic, rec)
}
