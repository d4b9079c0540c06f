package errors

import (
	"errors"
	"fmt"

	"github.com/vango-dev/memo/pkg/compose"
	"github.com/vango-dev/memo/pkg/memo"
)

// Category represents the type of error.
type Category string

const (
	CategoryEngine Category = "engine"
	CategoryRender Category = "render"
	CategoryConfig Category = "config"
	CategoryCLI    Category = "cli"
)

// MemoError is a structured error with an explanation and a suggestion.
type MemoError struct {
	// Code is a unique error identifier (e.g., "M001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Site is the path of the call site involved, if any.
	Site string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *MemoError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *MemoError) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion adds a fix suggestion to the error.
func (e *MemoError) WithSuggestion(s string) *MemoError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *MemoError) WithDetail(d string) *MemoError {
	e.Detail = d
	return e
}

// WithSite records the call site involved.
func (e *MemoError) WithSite(path string) *MemoError {
	e.Site = path
	return e
}

// Wrap wraps another error.
func (e *MemoError) Wrap(err error) *MemoError {
	e.Wrapped = err
	return e
}

// New creates a MemoError from a registered error code.
func New(code string) *MemoError {
	template, ok := registry[code]
	if !ok {
		return &MemoError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &MemoError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new MemoError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *MemoError {
	return &MemoError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// sentinels maps engine errors to their codes, most specific first.
var sentinels = []struct {
	err  error
	code string
}{
	{memo.ErrComparator, "M001"},
	{memo.ErrDepsLength, "M002"},
	{compose.ErrHookOrder, "M003"},
	{compose.ErrDuplicateKey, "M004"},
	{compose.ErrRenderPanic, "M005"},
	{compose.ErrCycleLimit, "M006"},
	{compose.ErrSiteDisposed, "M007"},
	{compose.ErrNotMounted, "M009"},
	{compose.ErrUnmounted, "M009"},
}

// FromError converts err into a MemoError. Known engine errors get their
// registered code; a render failure also records the failing site. Other
// errors are wrapped under fallback, or returned without a code when
// fallback is empty.
func FromError(err error, fallback ...string) *MemoError {
	if err == nil {
		return nil
	}
	var me *MemoError
	if errors.As(err, &me) {
		return me
	}

	var site string
	var re *compose.RenderError
	if errors.As(err, &re) {
		site = re.Site
	}

	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return New(s.code).WithSite(site).Wrap(err)
		}
	}
	if re != nil {
		return New("M008").WithSite(site).Wrap(err)
	}
	if len(fallback) > 0 {
		return New(fallback[0]).Wrap(err)
	}
	return &MemoError{Category: CategoryCLI, Message: err.Error()}
}
