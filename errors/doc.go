// Package errors provides structured error types for the luastack library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: value path, Go type and dynamic stack kind
// names, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhasePull, errors.KindTypeMismatch).
//		Path("rows", "id").
//		GoType("int16").
//		StackKind("table").
//		Detail("cannot read table slot as integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhasePull, path, "int16", "table")
//	err := errors.BadIndex(errors.PhasePush, 12, 3)
//
// Errors raised by functions running on a state are reported as *RuntimeError,
// which carries the raised value and a traceback of frames.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
