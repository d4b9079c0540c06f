// Package errors provides structured, actionable error messages for the
// vango-memo CLI.
//
// Errors from the engine are sentinel values and *compose.RenderError.
// FromError maps them to a coded MemoError carrying an explanation and a
// suggestion, which the CLI prints with Format:
//
//	if err := sched.Mount(ctx); err != nil {
//	    errors.PrintError(errors.FromError(err))
//	}
//
// # Error Codes
//
//   - M001-M099: engine errors (comparators, dependency lists, hooks, renders)
//   - M100-M199: configuration errors
//   - M200-M299: CLI and export errors
package errors
