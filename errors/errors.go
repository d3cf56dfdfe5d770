package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhasePush       Phase = "push"       // Go value onto the stack
	PhasePull       Phase = "pull"       // stack slot into a Go value
	PhaseCall       Phase = "call"       // function invocation
	PhaseLoad       Phase = "load"       // chunk loading
	PhaseDump       Phase = "dump"       // chunk dumping
	PhaseThread     Phase = "thread"     // coroutine control
	PhaseIntrospect Phase = "introspect" // frame inspection
	PhaseTranscode  Phase = "transcode"  // interchange encoding
	PhaseHost       Phase = "host"       // host library functions
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch   Kind = "type_mismatch"
	KindBadIndex       Kind = "bad_index"
	KindStackOverflow  Kind = "stack_overflow"
	KindStackUnderflow Kind = "stack_underflow"
	KindNotFunction    Kind = "not_function"
	KindNotTable       Kind = "not_table"
	KindBadArgument    Kind = "bad_argument"
	KindInvalidMode    Kind = "invalid_mode"
	KindNoCompiler     Kind = "no_compiler"
	KindBadChunk       Kind = "bad_chunk"
	KindRuntimeFault   Kind = "runtime_fault"
	KindDeadThread     Kind = "dead_thread"
	KindNotYieldable   Kind = "not_yieldable"
	KindDepthExceeded  Kind = "depth_exceeded"
	KindCycle          Kind = "cycle"
	KindUnsupported    Kind = "unsupported"
	KindNotFound       Kind = "not_found"
	KindIO             Kind = "io"
	KindOpenFailed     Kind = "open_failed"
	KindQueryFailed    Kind = "query_failed"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	GoType    string
	StackKind string
	Detail    string
	Path      []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.StackKind != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.StackKind != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", stack kind ")
			b.WriteString(e.StackKind)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("stack kind ")
			b.WriteString(e.StackKind)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.StackKind != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// StackKind sets the dynamic kind of the offending stack slot
func (b *Builder) StackKind(k string) *Builder {
	b.err.StackKind = k
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, stackKind string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindTypeMismatch,
		Path:      path,
		GoType:    goType,
		StackKind: stackKind,
	}
}

// BadIndex creates an error for a stack index outside the current frame
func BadIndex(phase Phase, index, top int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindBadIndex,
		Detail: fmt.Sprintf("index %d not valid (top %d)", index, top),
		Value:  index,
	}
}

// StackOverflow creates an error for a stack that cannot grow further
func StackOverflow(phase Phase, need, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStackOverflow,
		Detail: fmt.Sprintf("cannot grow stack by %d slots (limit %d)", need, limit),
	}
}

// StackUnderflow creates an error for an operation that needs more slots than exist
func StackUnderflow(phase Phase, need, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStackUnderflow,
		Detail: fmt.Sprintf("operation needs %d stack slots, have %d", need, have),
	}
}

// NotFunction creates an error for calling a non-function slot
func NotFunction(phase Phase, index int, stackKind string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindNotFunction,
		StackKind: stackKind,
		Detail:    fmt.Sprintf("slot %d is not callable", index),
		Value:     index,
	}
}

// NotTable creates an error for indexing a non-table slot
func NotTable(phase Phase, index int, stackKind string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindNotTable,
		StackKind: stackKind,
		Detail:    fmt.Sprintf("slot %d is not a table", index),
		Value:     index,
	}
}

// BadArgument creates an error for a host function argument check
func BadArgument(fn string, arg int, detail string) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindBadArgument,
		Path:   []string{fn},
		Detail: fmt.Sprintf("argument #%d: %s", arg, detail),
		Value:  arg,
	}
}

// InvalidMode creates an error for an unrecognized chunk load mode
func InvalidMode(mode string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidMode,
		Detail: fmt.Sprintf("mode %q not one of \"b\", \"t\", \"bt\"", mode),
		Value:  mode,
	}
}

// NoCompiler creates an error for loading a text chunk with no compiler configured
func NoCompiler(chunkName string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindNoCompiler,
		Detail: fmt.Sprintf("no compiler configured for text chunk %s", chunkName),
	}
}

// BadChunk creates a malformed chunk error
func BadChunk(chunkName, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindBadChunk,
		Path:   []string{chunkName},
		Detail: detail,
		Cause:  cause,
	}
}

// DeadThread creates an error for resuming a finished or failed coroutine
func DeadThread(status string) *Error {
	return &Error{
		Phase:  PhaseThread,
		Kind:   KindDeadThread,
		Detail: fmt.Sprintf("cannot resume %s coroutine", status),
	}
}

// NotYieldable creates an error for yielding outside a coroutine
func NotYieldable() *Error {
	return &Error{
		Phase:  PhaseThread,
		Kind:   KindNotYieldable,
		Detail: "attempt to yield from outside a coroutine",
	}
}

// DepthExceeded creates an error for exceeding a nesting limit
func DepthExceeded(phase Phase, depth int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDepthExceeded,
		Detail: fmt.Sprintf("nesting depth exceeds %d", depth),
		Value:  depth,
	}
}

// CycleDetected creates an error for a self-referential table
func CycleDetected(path []string) *Error {
	return &Error{
		Phase: PhaseTranscode,
		Kind:  KindCycle,
		Path:  path,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// ReadFailed creates an error for a failed chunk read
func ReadFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindIO,
		Detail: fmt.Sprintf("read %s", what),
		Cause:  cause,
	}
}

// OpenFailed creates an error for a failed database open
func OpenFailed(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindOpenFailed,
		Detail: fmt.Sprintf("open %s", path),
		Cause:  cause,
	}
}

// QueryFailed creates an error for a failed database statement
func QueryFailed(query string, cause error) *Error {
	preview := query
	if len(preview) > 64 {
		preview = preview[:64] + "..."
	}
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindQueryFailed,
		Detail: preview,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
		Cause:  cause,
	}
}

// Frame is one level of a runtime traceback
type Frame struct {
	Name   string // function name, or "?" if unknown
	Source string // chunk name, e.g. "=[Go]" or "@script.lua"
	Line   int    // current line, -1 for Go functions
}

// RuntimeError is produced when a function running on a state raises an error.
// Value holds the error value the function produced (commonly a string);
// Frames holds the call chain at the point of failure, innermost first.
type RuntimeError struct {
	Value  any
	Frames []Frame
}

// NewRuntimeError creates a runtime error from a raised value
func NewRuntimeError(value any) *RuntimeError {
	return &RuntimeError{Value: value}
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString("[call] ")
	b.WriteString(string(KindRuntimeFault))
	b.WriteString(": ")
	b.WriteString(fmt.Sprintf("%v", e.Value))

	if len(e.Frames) > 0 {
		b.WriteString("\ntraceback:")
		for _, f := range e.Frames {
			name := f.Name
			if name == "" {
				name = "?"
			}
			if f.Line >= 0 {
				b.WriteString(fmt.Sprintf("\n  %s (%s:%d)", name, f.Source, f.Line))
			} else {
				b.WriteString(fmt.Sprintf("\n  %s (%s)", name, f.Source))
			}
		}
	}

	return b.String()
}

// Is reports whether target matches this error type
func (e *RuntimeError) Is(target error) bool {
	_, ok := target.(*RuntimeError)
	return ok
}
