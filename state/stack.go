package state

import (
	"slices"

	"github.com/moonstack/luastack/errors"
)

// SetTop sets the top of the current frame to idx: new slots read as nil,
// slots above are dropped. A negative idx counts from the top (-1 keeps the
// stack unchanged).
func (l *State) SetTop(idx int) {
	base := l.base()
	var target int
	switch {
	case idx >= 0:
		target = base + idx
	default:
		target = len(l.stack) + idx + 1
	}
	if target < base || target > maxStack {
		panic(errors.BadIndex(errors.PhasePush, idx, l.Top()))
	}
	for len(l.stack) < target {
		l.stack = append(l.stack, nil)
	}
	if target < len(l.stack) {
		clear(l.stack[target:])
		l.stack = l.stack[:target]
	}
}

// Pop removes the top n slots.
func (l *State) Pop(n int) {
	l.SetTop(-n - 1)
}

// PushValue pushes a copy of the value at idx.
func (l *State) PushValue(idx int) {
	v, _ := l.valueAt(idx)
	l.push(v)
}

// Rotate rotates the slots between idx and the top by n positions: positive
// n rotates toward the top, negative toward the bottom. idx must be a real
// index.
func (l *State) Rotate(idx, n int) {
	s, ok := l.absSlot(idx)
	if !ok || isPseudo(idx) {
		panic(errors.BadIndex(errors.PhasePush, idx, l.Top()))
	}
	seg := l.stack[s:]
	if n < 0 {
		n = len(seg) + n
	}
	if n < 0 || n > len(seg) {
		panic(errors.New(errors.PhasePush, errors.KindBadIndex).
			Detail("rotation by %d over %d slots", n, len(seg)).Build())
	}
	slices.Reverse(seg)
	slices.Reverse(seg[:n])
	slices.Reverse(seg[n:])
}

// Insert moves the top value to idx, shifting slots above it up.
func (l *State) Insert(idx int) {
	l.Rotate(idx, 1)
}

// Remove deletes the slot at idx, shifting slots above it down.
func (l *State) Remove(idx int) {
	l.Rotate(idx, -1)
	l.Pop(1)
}

// Replace pops the top value into the slot at idx.
func (l *State) Replace(idx int) {
	l.Copy(-1, idx)
	l.Pop(1)
}

// Copy copies the value at fromIdx into the slot at toIdx, leaving the
// source untouched.
func (l *State) Copy(fromIdx, toIdx int) {
	v, ok := l.valueAt(fromIdx)
	if !ok {
		panic(errors.BadIndex(errors.PhasePull, fromIdx, l.Top()))
	}
	l.setValueAt(toIdx, v)
}

// XMove moves the top n values from l to another thread of the same
// universe, preserving their order.
func (l *State) XMove(to *State, n int) {
	if l == to || n == 0 {
		return
	}
	if l.shared != to.shared {
		panic(errors.New(errors.PhaseThread, errors.KindBadArgument).
			Detail("cannot move values between independent states").Build())
	}
	if n < 0 || l.Top() < n {
		panic(errors.StackUnderflow(errors.PhaseThread, n, l.Top()))
	}
	from := len(l.stack) - n
	for _, v := range l.stack[from:] {
		to.push(v)
	}
	clear(l.stack[from:])
	l.stack = l.stack[:from]
}

// ForEachSlot visits every slot of the current frame bottom-up until fn
// returns false.
func (l *State) ForEachSlot(fn func(idx int) bool) {
	for i := 1; i <= l.Top(); i++ {
		if !fn(i) {
			return
		}
	}
}
