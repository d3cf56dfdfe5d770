// Package introspect names the debug-info fields as a typed bitmask and
// turns field sets into the query strings the state layer's Info
// operations consume.
//
// The canonical encoding orders fields as ">flnrStuL". Encoding is a set
// operation: duplicates collapse, and the member order of a mask never
// changes the result:
//
//	q := (introspect.Name | introspect.CurrentLine).Query() // "ln"
//
// For runs a whole query in one step:
//
//	d, err := introspect.For(l, 0, introspect.Name|introspect.Source)
package introspect

import (
	"github.com/moonstack/luastack/errors"
	"github.com/moonstack/luastack/state"
)

// Fields is a set of debug-info fields.
type Fields uint16

const (
	// FuncOnStack takes the subject function from the top of the stack
	// instead of an activation record.
	FuncOnStack Fields = 1 << iota

	// Function pushes the activation's function.
	Function

	// CurrentLine fills Debug.CurrentLine.
	CurrentLine

	// Name fills Debug.Name and Debug.NameWhat.
	Name

	// Transfers fills the transfer window fields.
	Transfers

	// Source fills What, Source, ShortSource and the defined-line range.
	Source

	// TailCall fills Debug.IsTailCall.
	TailCall

	// Upvalues fills NumUpvalues, NumParams and IsVararg.
	Upvalues

	// Lines pushes the active-lines table.
	Lines
)

// All is every field except FuncOnStack.
const All = Function | CurrentLine | Name | Transfers | Source | TailCall | Upvalues | Lines

// encodeOrder fixes the canonical character order of a query.
var encodeOrder = [...]struct {
	flag Fields
	ch   byte
}{
	{FuncOnStack, '>'},
	{Function, 'f'},
	{CurrentLine, 'l'},
	{Name, 'n'},
	{Transfers, 'r'},
	{Source, 'S'},
	{TailCall, 't'},
	{Upvalues, 'u'},
	{Lines, 'L'},
}

// Has reports whether every field of sub is in f.
func (f Fields) Has(sub Fields) bool {
	return f&sub == sub
}

// Query renders f in the canonical ">flnrStuL" order. Encoding the same
// set always yields the same string; re-parsing it yields the same set.
// A bit outside the known fields is a contract violation and panics.
func (f Fields) Query() string {
	var buf [len(encodeOrder)]byte
	n := 0
	rest := f
	for _, e := range encodeOrder {
		if rest&e.flag != 0 {
			buf[n] = e.ch
			n++
			rest &^= e.flag
		}
	}
	if rest != 0 {
		panic(errors.New(errors.PhaseIntrospect, errors.KindBadArgument).
			Detail("unknown field bits %#x in mask %#x", uint16(rest), uint16(f)).Build())
	}
	return string(buf[:n])
}

// String renders like Query but never panics; unknown bits render as a
// trailing '?'.
func (f Fields) String() string {
	known := f
	var unknown bool
	if rest := f &^ (All | FuncOnStack); rest != 0 {
		known = f & (All | FuncOnStack)
		unknown = true
	}
	q := known.Query()
	if unknown {
		q += "?"
	}
	return q
}

// ParseQuery decodes a query string back into a field set. A '>' is only
// meaningful as the first character; anywhere else it is an error, as is
// any character outside the field alphabet. Repeated characters collapse.
func ParseQuery(q string) (Fields, error) {
	var f Fields
	for i := 0; i < len(q); i++ {
		c := q[i]
		if c == '>' {
			if i != 0 {
				return 0, errors.New(errors.PhaseIntrospect, errors.KindBadArgument).
					Detail("'>' must lead the query, found at %d in %q", i, q).Build()
			}
			f |= FuncOnStack
			continue
		}
		matched := false
		for _, e := range encodeOrder {
			if e.ch == c {
				f |= e.flag
				matched = true
				break
			}
		}
		if !matched {
			return 0, errors.New(errors.PhaseIntrospect, errors.KindBadArgument).
				Detail("unknown query character %q in %q", string(c), q).Build()
		}
	}
	return f, nil
}

// For fills a Debug for the activation at level (0 = innermost) with the
// requested fields. When fields includes FuncOnStack the subject is the
// function at the top of the stack instead, and level is ignored.
func For(l *state.State, level int, fields Fields) (*state.Debug, error) {
	q := fields.Query()
	if fields.Has(FuncOnStack) {
		return l.Info(q)
	}
	ar := l.Stack(level)
	if ar == nil {
		return nil, errors.New(errors.PhaseIntrospect, errors.KindBadIndex).
			Detail("no activation at level %d", level).Build()
	}
	return ar.Info(q)
}
