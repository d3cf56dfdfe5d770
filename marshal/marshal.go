package marshal

import (
	"github.com/moonstack/luastack/state"
)

// Integer is the set of Go integer types a stack slot can hold. Named
// types with an integer underlying type are included.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Float is the set of Go floating-point types a stack slot can hold.
type Float interface {
	~float32 | ~float64
}

// Boolean is the set of Go boolean types a stack slot can hold.
type Boolean interface {
	~bool
}

// Text is the set of Go types a string slot can hold. Byte slices push
// and pull byte-for-byte; embedded NUL bytes survive.
type Text interface {
	~string | ~[]byte
}

// NilValue is the marshalled form of the nil slot. Use the Nil variable.
type NilValue struct{}

// FailValue is the marshalled form of the conventional failure result: a
// distinct sentinel that currently pushes as boolean false. It is
// push-only. Use the Fail variable.
type FailValue struct{}

var (
	// Nil pushes the nil slot: marshal.Push(l, marshal.Nil).
	Nil NilValue

	// Fail pushes the failure sentinel: marshal.Push(l, marshal.Fail).
	Fail FailValue
)

// Pushable is the closed set of Go types Push accepts. Passing any type
// outside the set fails to compile, which is the capability check: there
// is no runtime "unsupported type" path for plain values.
//
// state.Function appears exactly, not by underlying type: a bare func
// literal must either be converted or pushed with PushFunc, which
// accepts anything assignable to state.Function.
type Pushable interface {
	Integer | Float | Boolean | Text | NilValue | FailValue | state.Function
}

// Pullable is the closed set of Go types To and Pull produce. Functions
// and the failure sentinel are push-only; NilValue pulls as a nil check.
type Pullable interface {
	Integer | Float | Boolean | Text | NilValue
}

// Pusher is implemented by types that marshal themselves. PushOnto must
// leave exactly one new slot on the stack; PushCustom enforces that.
type Pusher interface {
	PushOnto(l *state.State) error
}

// Puller is implemented by types that unmarshal themselves from a slot.
// PullFrom reads the slot at idx and must leave the stack height
// unchanged; PullCustom enforces that.
type Puller interface {
	PullFrom(l *state.State, idx int) error
}
