// Package luastack provides an embeddable Lua-style value stack runtime with
// a compile-time-checked marshalling layer between Go values and stack slots.
//
// The runtime keeps dynamically typed values on a per-state stack; Go code
// exchanges values with it through typed push and pull operations whose
// accepted types are closed generic sets, so passing an unsupported type is
// a compile error rather than a runtime surprise.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	luastack/            Root package with architecture documentation
//	├── state/           Value stack runtime: types, stack ops, tables,
//	│                    globals, closures, calls, coroutines, debug frames
//	├── marshal/         Typed Go <-> slot conversion with generic type sets
//	├── introspect/      Debug-field bitmask and query-string codec
//	├── errors/          Structured error types with phase/kind taxonomy
//	├── transcode/       Canonical CBOR interchange for stack values
//	├── lib/baselib/     Base functions: print, type, pairs, error, raw access
//	├── lib/sqlitelib/   SQLite host library: open, exec, query
//	└── cmd/stackpad/    Interactive stack inspector and script runner
//
// # Quick Start
//
// Create a state, move values through the stack, call a function:
//
//	l := state.New()
//	defer l.Close()
//
//	marshal.SetGlobalFunc(l, "add", func(l *state.State) (int, error) {
//	    a, _ := l.ToInteger(1)
//	    b, _ := l.ToInteger(2)
//	    marshal.Push(l, a+b)
//	    return 1, nil
//	})
//
//	l.Global("add")
//	marshal.Push(l, int64(5))
//	marshal.Push(l, int64(3))
//	if err := l.Call(2, 1, 0); err != nil {
//	    log.Fatal(err)
//	}
//	sum := marshal.Pull[int64](l, -1) // 8
//
// # Type Bindings
//
// The marshalling layer accepts exactly these Go type families:
//
//   - Integers: int, int8-int64, uint, uint8-uint64, uintptr, and any
//     named type over them
//   - Floats: float32, float64
//   - Booleans: bool
//   - Text: string and []byte, byte-exact including embedded NUL
//   - Sentinels: marshal.Nil and the push-only marshal.Fail
//   - Functions: state.Function values, plain or with captured upvalues
//
// Types that marshal themselves implement marshal.Pusher or marshal.Puller.
//
// # Host Functions
//
// A host function reads its arguments from slots 1..n and returns how many
// result slots it pushed. Returning an error raises it to the protected
// caller:
//
//	marshal.SetGlobalFunc(l, "divide", func(l *state.State) (int, error) {
//	    a, _ := l.ToNumber(1)
//	    b, _ := l.ToNumber(2)
//	    if b == 0 {
//	        return 0, errors.NewRuntimeError("division by zero")
//	    }
//	    marshal.Push(l, a/b)
//	    return 1, nil
//	})
//
// # Thread Safety
//
// A State and everything reached through it belong to one goroutine at a
// time. Coroutine threads created with NewThread hand control back and
// forth explicitly through Resume and Yield; the handoff guarantees only
// one side runs at once. Distinct states created with state.New share
// nothing and may be used concurrently.
//
// # Wire Form
//
// The transcode package renders stack values as canonical CBOR: the same
// logical value always encodes to the same bytes, regardless of table
// insertion order. Strings travel as byte strings, tables as arrays or
// maps, and the integer/float subkind of a number survives the round trip.
package luastack
