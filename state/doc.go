// Package state implements the value-stack runtime that the rest of the
// library marshals against: a Lua-style state with 1-indexed stacks,
// tables, closures, coroutines, and a pluggable chunk compiler.
//
// # The Stack
//
// Every State owns an ordered sequence of dynamically typed slots,
// 1-indexed from the bottom of the current frame; negative indices count
// from the top (-1 is the topmost slot). Two pseudo-indices address values
// that live off the stack: RegistryIndex resolves to the universe's
// registry table, and UpvalueIndex(i) to the running closure's i-th
// upvalue.
//
//	Kind       Slot holds
//	--------   -------------------------------
//	nil        absence
//	boolean    true / false
//	number     integer (int64) or float (float64) subkind
//	string     immutable byte string, NUL-safe
//	table      mutable map with stable pair iteration
//	function   native function plus captured upvalues
//	userdata   boxed Go value
//	thread     coroutine
//
// Push operations append exactly one slot. Read operations never remove
// slots and apply the runtime's coercion rules: numeric strings convert to
// numbers, integral floats convert to integers, and reads of a mismatched
// kind report (zero, false) rather than failing.
//
// # Contract Violations vs Runtime Errors
//
// Structural misuse (indices outside the frame, popping more slots than
// exist, rotating a pseudo-index) is a programming error and panics with a
// structured *errors.Error. Conditions a correct program can encounter at
// runtime (a failing call, an unloadable chunk, resuming a dead coroutine)
// return errors instead.
//
// # Calls
//
// A Function receives its arguments as a fresh frame (argument 1 at index
// 1), pushes results, and returns how many of its top slots are results.
// Call replaces function and arguments with the adjusted results; on
// failure it replaces them with the raised error value and returns a
// *errors.RuntimeError carrying a traceback. Closures capture upvalues from
// the stack at creation time via PushClosure.
//
// # Coroutines
//
// NewThread creates a coroutine sharing the universe's registry and
// globals. The body runs on its own goroutine, but control transfers
// synchronously: Resume blocks until the body yields, finishes, or fails,
// so exactly one goroutine touches any stack at a time. Values move between
// threads with XMove.
//
// # Chunks
//
// Load reads a chunk (text, or binary when prefixed with Signature) and
// delegates compilation to the Compiler installed with SetCompiler; the
// result is an ordinary function value. Dump writes back the binary image a
// compiler attached. No interpreter lives in this package.
//
// # Thread Safety
//
// A State and the threads of its universe must be driven by one goroutine
// at a time. That is a caller contract: nothing here locks.
package state
