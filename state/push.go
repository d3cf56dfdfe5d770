package state

import (
	"slices"

	"github.com/moonstack/luastack/errors"
)

// PushNil pushes the nil value.
func (l *State) PushNil() {
	l.push(nil)
}

// PushBoolean pushes b.
func (l *State) PushBoolean(b bool) {
	l.push(b)
}

// PushInteger pushes n as an integer number.
func (l *State) PushInteger(n int64) {
	l.push(n)
}

// PushNumber pushes f as a float number.
func (l *State) PushNumber(f float64) {
	l.push(f)
}

// PushString pushes s as a byte string. Embedded NUL bytes are preserved;
// the slot holds exactly len(s) bytes.
func (l *State) PushString(s string) {
	l.push(s)
}

// PushClosure pops the top n slots into a new closure's upvalues (the slot
// pushed first becomes upvalue 1) and pushes the closure where the first of
// them was. With n = 0 it pushes a plain function value.
func (l *State) PushClosure(n int, fn Function) {
	if fn == nil {
		panic(errors.New(errors.PhasePush, errors.KindNotFunction).
			Detail("nil function").Build())
	}
	if n < 0 || n > maxUpvalues {
		panic(errors.New(errors.PhasePush, errors.KindBadArgument).
			Detail("upvalue count %d out of range", n).Build())
	}
	if l.Top() < n {
		panic(errors.StackUnderflow(errors.PhasePush, n, l.Top()))
	}
	f := &function{
		id:   l.nextID(),
		fn:   fn,
		info: goFuncInfo,
	}
	if n > 0 {
		from := len(l.stack) - n
		f.upvalues = slices.Clone(l.stack[from:])
		clear(l.stack[from:])
		l.stack = l.stack[:from]
	}
	l.push(f)
}

// NameFunction records a debug name for the function at idx, as reported by
// the introspection surface. It reports false if the slot is not a function.
func (l *State) NameFunction(idx int, name string) bool {
	v, _ := l.valueAt(idx)
	f, ok := v.(*function)
	if !ok {
		return false
	}
	f.name = name
	return true
}

// PushUserdata boxes v on the stack as a userdata slot.
func (l *State) PushUserdata(v any) {
	l.push(&userdata{value: v})
}
