// Package baselib registers the base function library into a state's
// globals: print, type, tostring, assert, error, next, pairs, ipairs,
// select and the raw table accessors. Every function runs through the
// marshalling layer for its scalar arguments and results.
package baselib

import (
	"io"
	"os"
	"strings"

	"github.com/moonstack/luastack/errors"
	"github.com/moonstack/luastack/marshal"
	"github.com/moonstack/luastack/state"
)

// Config adjusts the library. The zero value writes print output to
// standard output.
type Config struct {
	// Output receives print output. Nil means os.Stdout.
	Output io.Writer
}

type lib struct {
	out io.Writer
}

// Open registers the base functions as globals on l.
func Open(l *state.State, cfg Config) error {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	b := &lib{out: cfg.Output}

	funcs := map[string]state.Function{
		"print":    b.print,
		"type":     typeName,
		"tostring": tostring,
		"assert":   assertTrue,
		"error":    raise,
		"next":     next,
		"pairs":    pairs,
		"ipairs":   ipairs,
		"select":   selectArgs,
		"rawget":   rawget,
		"rawset":   rawset,
		"rawlen":   rawlen,
		"rawequal": rawequal,
	}
	for name, fn := range funcs {
		if err := marshal.SetGlobalFunc(l, name, fn); err != nil {
			return errors.Wrap(errors.PhaseHost, errors.KindRuntimeFault, err,
				"register %s", name)
		}
	}
	return nil
}

// print writes its arguments tab-separated with a trailing newline.
func (b *lib) print(l *state.State) (int, error) {
	var sb strings.Builder
	for i := 1; i <= l.Top(); i++ {
		if i > 1 {
			sb.WriteByte('\t')
		}
		sb.WriteString(l.DisplayString(i))
	}
	sb.WriteByte('\n')
	if _, err := io.WriteString(b.out, sb.String()); err != nil {
		return 0, errors.Wrap(errors.PhaseHost, errors.KindIO, err, "print")
	}
	return 0, nil
}

func typeName(l *state.State) (int, error) {
	if l.IsNone(1) {
		return 0, errors.BadArgument("type", 1, "value expected")
	}
	marshal.Push(l, l.TypeName(1))
	return 1, nil
}

func tostring(l *state.State) (int, error) {
	if l.IsNone(1) {
		return 0, errors.BadArgument("tostring", 1, "value expected")
	}
	marshal.Push(l, l.DisplayString(1))
	return 1, nil
}

// assertTrue passes all arguments through when the first is truthy, and
// otherwise raises the second argument, or "assertion failed!" without
// one.
func assertTrue(l *state.State) (int, error) {
	if l.IsNone(1) {
		return 0, errors.BadArgument("assert", 1, "value expected")
	}
	if !l.ToBoolean(1) {
		if l.Top() >= 2 {
			return 0, l.ErrorValue(2)
		}
		return 0, errors.NewRuntimeError("assertion failed!")
	}
	return l.Top(), nil
}

// raise errors with its first argument as the error object. A missing
// argument raises nil.
func raise(l *state.State) (int, error) {
	if l.IsNone(1) {
		return 0, errors.NewRuntimeError(nil)
	}
	return 0, l.ErrorValue(1)
}

// next steps the pair iteration of a table: next(t) starts it, next(t, k)
// continues from k, and a nil return means the table is exhausted.
func next(l *state.State) (int, error) {
	if !l.IsTable(1) {
		return 0, errors.BadArgument("next", 1, "table expected, got "+l.TypeName(1))
	}
	l.SetTop(2)
	more, err := l.Next(1)
	if err != nil {
		return 0, err
	}
	if !more {
		l.PushNil()
		return 1, nil
	}
	return 2, nil
}

// pairs returns next, the table, and nil, the triple that drives a full
// pair traversal.
func pairs(l *state.State) (int, error) {
	if !l.IsTable(1) {
		return 0, errors.BadArgument("pairs", 1, "table expected, got "+l.TypeName(1))
	}
	marshal.PushFunc(l, next)
	l.NameFunction(-1, "next")
	l.PushValue(1)
	l.PushNil()
	return 3, nil
}

// ipairs returns a self-contained iterator over the sequence part of the
// table: the closure captures the table and its cursor as upvalues and
// yields (i, t[i]) per call until the first nil element.
func ipairs(l *state.State) (int, error) {
	if !l.IsTable(1) {
		return 0, errors.BadArgument("ipairs", 1, "table expected, got "+l.TypeName(1))
	}
	l.PushValue(1)
	marshal.Push(l, int64(0))
	marshal.PushClosure(l, 2, ipairsIter)
	l.NameFunction(-1, "ipairs iterator")
	return 1, nil
}

func ipairsIter(l *state.State) (int, error) {
	i, _ := l.ToInteger(state.UpvalueIndex(2))
	i++
	marshal.Push(l, i)
	l.Copy(-1, state.UpvalueIndex(2))
	l.Pop(1)

	l.PushValue(state.UpvalueIndex(1))
	marshal.Push(l, i)
	if _, err := l.Table(-2); err != nil {
		return 0, err
	}
	if l.IsNil(-1) {
		return 1, nil
	}
	marshal.Push(l, i)
	l.Insert(-2)
	return 2, nil
}

// selectArgs implements select: "#" reports the count of the remaining
// arguments, a positive n returns the arguments from position n on, and
// a negative n counts from the end.
func selectArgs(l *state.State) (int, error) {
	if l.Type(1) == state.TypeString {
		if s, _ := l.ToString(1); s == "#" {
			marshal.Push(l, int64(l.Top()-1))
			return 1, nil
		}
	}
	n, ok := l.ToInteger(1)
	if !ok {
		return 0, errors.BadArgument("select", 1, "number expected, got "+l.TypeName(1))
	}
	m := int64(l.Top() - 1)
	if n < 0 {
		n = m + n + 1
	}
	if n < 1 {
		return 0, errors.BadArgument("select", 1, "index out of range")
	}
	if n > m {
		return 0, nil
	}
	return int(m - n + 1), nil
}

func rawget(l *state.State) (int, error) {
	if !l.IsTable(1) {
		return 0, errors.BadArgument("rawget", 1, "table expected, got "+l.TypeName(1))
	}
	l.SetTop(2)
	l.RawGet(1)
	return 1, nil
}

func rawset(l *state.State) (int, error) {
	if !l.IsTable(1) {
		return 0, errors.BadArgument("rawset", 1, "table expected, got "+l.TypeName(1))
	}
	l.SetTop(3)
	if err := l.RawSet(1); err != nil {
		return 0, err
	}
	return 1, nil
}

func rawlen(l *state.State) (int, error) {
	switch l.Type(1) {
	case state.TypeTable, state.TypeString:
		marshal.Push(l, l.RawLen(1))
		return 1, nil
	default:
		return 0, errors.BadArgument("rawlen", 1, "table or string expected, got "+l.TypeName(1))
	}
}

func rawequal(l *state.State) (int, error) {
	if l.IsNone(1) || l.IsNone(2) {
		return 0, errors.BadArgument("rawequal", 2, "value expected")
	}
	marshal.Push(l, l.RawEqual(1, 2))
	return 1, nil
}
