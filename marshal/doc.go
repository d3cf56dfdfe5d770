// Package marshal moves Go values on and off the value stack, with the
// set of accepted Go types closed at compile time.
//
// # The Kind Set
//
// Every marshallable Go type maps to exactly one slot kind:
//
//	Go types                                    slot kind
//	----------------------------------------    ---------
//	int int8 int16 int32 int64                  number (integer)
//	uint uint8 uint16 uint32 uint64 uintptr     number (integer)
//	float32 float64                             number (float)
//	bool                                        boolean
//	string []byte                               string
//	marshal.Nil                                 nil
//	marshal.Fail                                boolean (false)
//	state.Function                              function
//
// Named types whose underlying type is in the set participate too:
// a type ID uint32 pushes as an integer, a type Blob []byte as a string.
// The one exception is state.Function, which is matched exactly.
//
// # Capability Is the Type Checker
//
// There is no runtime "unsupported type" error for plain values. Push
// and Pull are constrained by the Pushable and Pullable type sets, so
//
//	marshal.Push(l, time.Now())
//
// does not compile. A type either has a slot mapping or the program
// never builds.
//
// # Pushing and Pulling
//
//	marshal.Push(l, 42)                  // number slot
//	marshal.Push(l, []byte{0x61, 0x00})  // string slot, NUL kept
//	marshal.Push(l, marshal.Nil)         // nil slot
//	marshal.Push(l, marshal.Fail)        // failure sentinel
//
//	n := marshal.Pull[int64](l, -1)
//	var short int16
//	marshal.To(l, -1, &short)            // truncates two's-complement
//
// Pulls follow the runtime's coercion rules: numeric strings read as
// numbers, numbers read as strings, everything has a truth value. A slot
// that cannot coerce leaves the target's zero value; To reports whether
// the coercion produced one.
//
// # Functions
//
// Push accepts a value already typed as state.Function. Bare literals go
// through PushFunc, and captures through PushClosure:
//
//	marshal.PushFunc(l, func(l *state.State) (int, error) {
//		marshal.Push(l, marshal.Pull[int64](l, 1)*2)
//		return 1, nil
//	})
//
//	marshal.Push(l, int64(10))
//	marshal.PushClosure(l, 1, step)      // closure takes the 10's slot
//
// # Custom Types
//
// Types outside the kind set marshal themselves through the Pusher and
// Puller interfaces. PushCustom and PullCustom run them and enforce the
// one-slot contract: a push adds exactly one slot, a pull leaves the
// stack height unchanged.
package marshal
