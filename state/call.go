package state

import (
	"fmt"

	"github.com/moonstack/luastack/errors"
)

// Call invokes the function at the top of the stack below its nArgs
// arguments (pushed last on top). On return, function and arguments are
// replaced by nResults results (MultipleReturns keeps them all). On error,
// they are replaced by the raised error value and the error is returned as a
// *errors.RuntimeError carrying a traceback.
//
// msgHandler, when non-zero, is the stack index of a function that is called
// with the raised error value before unwinding; its result replaces the
// value. Zero means no handler.
func (l *State) Call(nArgs, nResults, msgHandler int) error {
	if nArgs < 0 {
		panic(errors.New(errors.PhaseCall, errors.KindBadArgument).
			Detail("negative argument count %d", nArgs).Build())
	}
	if nResults < MultipleReturns {
		panic(errors.New(errors.PhaseCall, errors.KindBadArgument).
			Detail("invalid result count %d", nResults).Build())
	}
	if l.Top() < nArgs+1 {
		panic(errors.StackUnderflow(errors.PhaseCall, nArgs+1, l.Top()))
	}

	var handler *function
	if msgHandler != 0 {
		hv, ok := l.valueAt(msgHandler)
		if !ok {
			panic(errors.BadIndex(errors.PhaseCall, msgHandler, l.Top()))
		}
		handler, ok = hv.(*function)
		if !ok {
			panic(errors.NotFunction(errors.PhaseCall, msgHandler, typeOf(hv).String()))
		}
	}

	fnSlot := len(l.stack) - nArgs - 1
	fv := l.stack[fnSlot]
	f, ok := fv.(*function)
	if !ok {
		err := errors.NotFunction(errors.PhaseCall, -nArgs-1, typeOf(fv).String())
		l.truncateTo(fnSlot)
		l.push(err.Error())
		return err
	}

	debugf("call: %s nargs=%d nresults=%d", f.debugName(), nArgs, nResults)

	l.frames = append(l.frames, frame{
		fn:         f,
		fnIndex:    fnSlot,
		base:       fnSlot + 1,
		numResults: nResults,
	})
	l.CheckStack(MinStack)

	n, err := runProtected(l, f)
	if err == nil && (n < 0 || n > l.Top()) {
		err = errors.New(errors.PhaseCall, errors.KindRuntimeFault).
			Detail("function reported %d results with %d slots", n, l.Top()).Build()
	}

	if err != nil {
		re := l.raise(err)
		l.frames = l.frames[:len(l.frames)-1]
		l.truncateTo(fnSlot)
		if handler != nil {
			re.Value = l.applyHandler(handler, re.Value)
		}
		l.pushRaised(re.Value)
		return re
	}

	// Collapse: results move down over the function slot, then adjust count.
	resStart := len(l.stack) - n
	copy(l.stack[fnSlot:], l.stack[resStart:])
	l.truncateTo(fnSlot + n)
	l.frames = l.frames[:len(l.frames)-1]
	if nResults != MultipleReturns {
		for len(l.stack) < fnSlot+nResults {
			l.stack = append(l.stack, nil)
		}
		l.truncateTo(fnSlot + nResults)
	}
	return nil
}

// ErrorValue returns an error that raises the value at idx as-is, the
// way a failing chunk would: the protected caller catches exactly this
// value, reference identity included. Host functions return it to fail
// with a non-string error object.
func (l *State) ErrorValue(idx int) error {
	v, ok := l.valueAt(idx)
	if !ok {
		panic(errors.BadIndex(errors.PhaseCall, idx, l.Top()))
	}
	return errors.NewRuntimeError(v)
}

// runProtected executes f's body, converting panics into errors. A
// threadKilled panic is not an error; it must keep unwinding the
// coroutine goroutine.
func runProtected(l *State, f *function) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			if _, ok := p.(threadKilled); ok {
				panic(p)
			}
			if e, ok := p.(error); ok {
				err = e
				return
			}
			err = errors.NewRuntimeError(p)
		}
	}()
	return f.fn(l)
}

// raise normalizes err into a RuntimeError with the current traceback.
// A RuntimeError already in flight keeps its original frames.
func (l *State) raise(err error) *errors.RuntimeError {
	if re, ok := err.(*errors.RuntimeError); ok {
		if re.Frames == nil {
			re.Frames = l.traceback()
		}
		return re
	}
	return &errors.RuntimeError{Value: err.Error(), Frames: l.traceback()}
}

// traceback snapshots the active function frames, innermost first. Native
// frames carry no line information.
func (l *State) traceback() []errors.Frame {
	var frames []errors.Frame
	for i := len(l.frames) - 1; i >= 1; i-- {
		f := l.frames[i].fn
		frames = append(frames, errors.Frame{
			Name:   f.name,
			Source: f.info.source,
			Line:   -1,
		})
	}
	return frames
}

// applyHandler runs a message handler over the raised value, itself
// protected: a handler that fails replaces the value with a fixed marker.
func (l *State) applyHandler(handler *function, value any) any {
	l.push(handler)
	l.pushRaised(value)
	l.frames = append(l.frames, frame{
		fn:         handler,
		fnIndex:    len(l.stack) - 2,
		base:       len(l.stack) - 1,
		numResults: 1,
	})
	fnSlot := l.currentFrame().fnIndex
	n, err := runProtected(l, handler)
	l.frames = l.frames[:len(l.frames)-1]
	if err != nil || n < 1 || n > len(l.stack)-fnSlot {
		l.truncateTo(fnSlot)
		return "error in error handling"
	}
	out := l.stack[len(l.stack)-1]
	l.truncateTo(fnSlot)
	return out
}

// pushRaised pushes an error value, boxing values that are not themselves
// stack representable.
func (l *State) pushRaised(v any) {
	switch v.(type) {
	case nil, bool, int64, float64, string, *table, *function, *userdata, *State:
		l.push(v)
	default:
		l.push(fmt.Sprintf("%v", v))
	}
}

// truncateTo shrinks the raw stack to n slots, clearing dropped references.
func (l *State) truncateTo(n int) {
	if n < len(l.stack) {
		clear(l.stack[n:])
		l.stack = l.stack[:n]
	}
}

func (f *function) debugName() string {
	if f.name != "" {
		return f.name
	}
	return "?"
}
