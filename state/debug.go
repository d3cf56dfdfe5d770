package state

import (
	"strings"

	"github.com/moonstack/luastack/errors"
)

// Debug describes one function or activation, filled field-group by
// field-group according to the info query string.
type Debug struct {
	// 'n': a name under which the function is known, and how it was
	// derived. Functions never registered under a name report "".
	Name     string
	NameWhat string

	// 'S': where the function comes from.
	What            string // "Go", "main", "chunk"
	Source          string
	ShortSource     string
	LineDefined     int
	LastLineDefined int

	// 'l': the line being executed, -1 when unavailable.
	CurrentLine int

	// 'u': closure shape.
	NumUpvalues uint8
	NumParams   uint8
	IsVararg    bool

	// 't': whether this activation was a tail call.
	IsTailCall bool

	// 'r': argument/result transfer window of the current call event.
	// Zero outside call and return events.
	FirstTransfer int
	TransferCount int
}

// ActivationRecord identifies one level of the call stack between its
// creation and the next mutation of that stack.
type ActivationRecord struct {
	l     *State
	frame int
}

// Stack returns the activation record level frames below the innermost
// running function (level 0). It returns nil when level is out of range.
func (l *State) Stack(level int) *ActivationRecord {
	if level < 0 {
		return nil
	}
	fi := len(l.frames) - 1 - level
	if fi < 1 {
		return nil
	}
	return &ActivationRecord{l: l, frame: fi}
}

// Info fills a Debug for this activation according to what, a string of
// field characters (f, l, n, r, S, t, u, L). 'f' pushes the frame's
// function and 'L' pushes its active-lines table, in that order. An
// unknown character is an error.
func (ar *ActivationRecord) Info(what string) (*Debug, error) {
	if strings.HasPrefix(what, ">") {
		return nil, errors.New(errors.PhaseIntrospect, errors.KindBadArgument).
			Detail("'>' queries take the function from the stack; use State.Info").Build()
	}
	return ar.l.fillInfo(ar.l.frames[ar.frame].fn, ar.frame, what)
}

// Info answers a function-on-stack query: what must start with '>', and the
// subject function is popped from the top of the stack.
func (l *State) Info(what string) (*Debug, error) {
	if !strings.HasPrefix(what, ">") {
		return nil, errors.New(errors.PhaseIntrospect, errors.KindBadArgument).
			Detail("query %q does not start with '>'", what).Build()
	}
	v, ok := l.valueAt(-1)
	if !ok {
		return nil, errors.New(errors.PhaseIntrospect, errors.KindBadIndex).
			Detail("no function on the stack").Build()
	}
	f, ok := v.(*function)
	if !ok {
		return nil, errors.NotFunction(errors.PhaseIntrospect, -1, typeOf(v).String())
	}
	l.Pop(1)
	return l.fillInfo(f, 0, what[1:])
}

func (l *State) fillInfo(f *function, frameIdx int, what string) (*Debug, error) {
	d := &Debug{CurrentLine: -1}
	var pushFunc, pushLines bool
	for i := 0; i < len(what); i++ {
		switch what[i] {
		case 'f':
			pushFunc = true
		case 'l':
			// Execution lines are not tracked; CurrentLine stays -1.
		case 'n':
			d.Name = f.name
			if f.name != "" {
				d.NameWhat = "global"
			}
		case 'r':
			// Transfer windows exist only inside call events.
			d.FirstTransfer, d.TransferCount = 0, 0
		case 'S':
			d.What = f.info.what
			d.Source = f.info.source
			d.ShortSource = shortSource(f.info.source)
			d.LineDefined = f.info.lineDefined
			d.LastLineDefined = f.info.lastLineDefined
		case 't':
			d.IsTailCall = frameIdx > 0 && l.frames[frameIdx].tailCall
		case 'u':
			d.NumUpvalues = uint8(len(f.upvalues))
			d.NumParams = 0
			d.IsVararg = true
		case 'L':
			pushLines = true
		default:
			return nil, errors.New(errors.PhaseIntrospect, errors.KindBadArgument).
				Detail("unknown info field %q", string(what[i])).Build()
		}
	}
	if pushFunc {
		l.push(f)
	}
	if pushLines {
		t := newTable(len(f.info.lines))
		for _, line := range f.info.lines {
			if err := t.set(int64(line), true); err != nil {
				return nil, err
			}
		}
		l.push(t)
	}
	return d, nil
}
