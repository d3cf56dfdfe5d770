package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/moonstack/luastack/introspect"
	"github.com/moonstack/luastack/lib/baselib"
	"github.com/moonstack/luastack/lib/sqlitelib"
	"github.com/moonstack/luastack/marshal"
	"github.com/moonstack/luastack/state"
	"github.com/moonstack/luastack/transcode"
)

// dbKey is the registry field holding the session's database handle.
const dbKey = "stackpad.db"

// session owns one state and evaluates inspector commands against it.
type session struct {
	l       *state.State
	cfg     *Config
	out     strings.Builder
	hasDB   bool
	dbReady bool
}

func newSession(cfg *Config) (*session, error) {
	l := state.New()
	s := &session{l: l, cfg: cfg, hasDB: cfg.Database.DSN != ""}
	if err := baselib.Open(l, baselib.Config{Output: &s.out}); err != nil {
		l.Close()
		return nil, fmt.Errorf("base library: %w", err)
	}
	if s.hasDB {
		if err := sqlitelib.Open(l, sqlitelib.Config{DSN: cfg.Database.DSN}); err != nil {
			l.Close()
			return nil, fmt.Errorf("sql library: %w", err)
		}
	}
	return s, nil
}

func (s *session) close() { s.l.Close() }

const helpText = `commands:
  push <literal>     push nil, true, false, fail, a number, or a string
  pop [n]            drop the top n slots (default 1)
  dup [idx]          push a copy of the slot at idx (default -1)
  rot <idx> <n>      rotate the slots from idx to the top by n
  top                report the stack height
  newtable           push an empty table
  setfield <name>    pop the top value into the table below it
  getfield <name>    push a field of the table at the top
  global <name>      push a global
  setglobal <name>   pop the top value into a global
  call <nargs>       call the function below its nargs arguments
  info [chars]       describe the function at the top (default nSu)
  dump               show the top slot as canonical CBOR
  transcode <hex>    decode CBOR bytes and push the value
  sql <statement>    run a statement on the configured database
  help               this text`

// eval runs one command line and returns its printed output.
func (s *session) eval(line string) (string, error) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	if cmd == "" || strings.HasPrefix(cmd, "#") {
		return "", nil
	}

	switch cmd {
	case "help":
		return helpText, nil
	case "push":
		if rest == "" {
			return "", fmt.Errorf("push needs a literal")
		}
		s.pushLiteral(rest)
		return "", nil
	case "pop":
		n := 1
		if rest != "" {
			v, err := strconv.Atoi(rest)
			if err != nil {
				return "", fmt.Errorf("pop: %w", err)
			}
			n = v
		}
		if n < 0 || n > s.l.Top() {
			return "", fmt.Errorf("pop: %d slots, have %d", n, s.l.Top())
		}
		s.l.Pop(n)
		return "", nil
	case "dup":
		idx := -1
		if rest != "" {
			v, err := strconv.Atoi(rest)
			if err != nil {
				return "", fmt.Errorf("dup: %w", err)
			}
			idx = v
		}
		if s.l.IsNone(idx) {
			return "", fmt.Errorf("dup: no slot at %d", idx)
		}
		s.l.PushValue(idx)
		return "", nil
	case "rot":
		parts := strings.Fields(rest)
		if len(parts) != 2 {
			return "", fmt.Errorf("rot needs <idx> <n>")
		}
		idx, err1 := strconv.Atoi(parts[0])
		n, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return "", fmt.Errorf("rot needs integer arguments")
		}
		if s.l.IsNone(idx) {
			return "", fmt.Errorf("rot: no slot at %d", idx)
		}
		s.l.Rotate(idx, n)
		return "", nil
	case "top":
		return fmt.Sprintf("top = %d", s.l.Top()), nil
	case "newtable":
		s.l.CreateTable(0, 0)
		return "", nil
	case "setfield":
		if rest == "" {
			return "", fmt.Errorf("setfield needs a name")
		}
		if s.l.Top() < 2 || !s.l.IsTable(-2) {
			return "", fmt.Errorf("setfield needs a table below the value")
		}
		return "", s.l.SetField(-2, rest)
	case "getfield":
		if rest == "" {
			return "", fmt.Errorf("getfield needs a name")
		}
		if !s.l.IsTable(-1) {
			return "", fmt.Errorf("getfield: top is %s, not a table", s.l.TypeName(-1))
		}
		_, err := s.l.Field(-1, rest)
		return "", err
	case "global":
		if rest == "" {
			return "", fmt.Errorf("global needs a name")
		}
		if _, err := s.l.Global(rest); err != nil {
			return "", err
		}
		return s.l.DisplayString(-1), nil
	case "setglobal":
		if rest == "" {
			return "", fmt.Errorf("setglobal needs a name")
		}
		if s.l.Top() < 1 {
			return "", fmt.Errorf("setglobal needs a value on the stack")
		}
		return "", s.l.SetGlobal(rest)
	case "call":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return "", fmt.Errorf("call needs an argument count")
		}
		if n < 0 || s.l.Top() < n+1 {
			return "", fmt.Errorf("call: need a function below %d arguments", n)
		}
		before := s.l.Top() - n - 1
		if err := s.l.Call(n, state.MultipleReturns, 0); err != nil {
			return "", err
		}
		printed := s.takeOutput()
		return printed + fmt.Sprintf("%d result(s)", s.l.Top()-before), nil
	case "info":
		return s.info(rest)
	case "dump":
		if s.l.Top() < 1 {
			return "", fmt.Errorf("dump needs a value on the stack")
		}
		data, err := transcode.Encode(s.l, -1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d byte(s): %x", len(data), data), nil
	case "transcode":
		data, err := hex.DecodeString(rest)
		if err != nil {
			return "", fmt.Errorf("transcode: %w", err)
		}
		return "", transcode.Decode(s.l, data)
	case "sql":
		return s.sql(rest)
	default:
		return "", fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

// pushLiteral pushes one literal token: the keywords nil/true/false/fail,
// a number, a quoted string, or a bare word as a string.
func (s *session) pushLiteral(tok string) {
	switch tok {
	case "nil":
		marshal.Push(s.l, marshal.Nil)
	case "true":
		marshal.Push(s.l, true)
	case "false":
		marshal.Push(s.l, false)
	case "fail":
		marshal.Push(s.l, marshal.Fail)
	default:
		if n, err := strconv.ParseInt(tok, 0, 64); err == nil {
			marshal.Push(s.l, n)
			return
		}
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			marshal.Push(s.l, f)
			return
		}
		if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
			if unq, err := strconv.Unquote(tok); err == nil {
				marshal.Push(s.l, unq)
				return
			}
		}
		marshal.Push(s.l, tok)
	}
}

// info describes the function at the stack top through the typed
// introspection mask.
func (s *session) info(mask string) (string, error) {
	if !s.l.IsFunction(-1) {
		return "", fmt.Errorf("info: top is %s, not a function", s.l.TypeName(-1))
	}
	if mask == "" {
		mask = "nSu"
	}
	fields, err := introspect.ParseQuery(mask)
	if err != nil {
		return "", err
	}
	s.l.PushValue(-1)
	d, err := introspect.For(s.l, 0, fields|introspect.FuncOnStack)
	if err != nil {
		return "", err
	}

	var parts []string
	if fields.Has(introspect.Name) {
		name := d.Name
		if name == "" {
			name = "?"
		}
		parts = append(parts, "name="+name)
	}
	if fields.Has(introspect.Source) {
		parts = append(parts, "what="+d.What, "source="+d.ShortSource)
	}
	if fields.Has(introspect.CurrentLine) {
		parts = append(parts, fmt.Sprintf("line=%d", d.CurrentLine))
	}
	if fields.Has(introspect.Upvalues) {
		parts = append(parts, fmt.Sprintf("upvalues=%d params=%d vararg=%t",
			d.NumUpvalues, d.NumParams, d.IsVararg))
	}
	if len(parts) == 0 {
		parts = append(parts, "query "+fields.Query())
	}
	return strings.Join(parts, " "), nil
}

// sql runs a statement against the session database, opening the handle
// on first use. Row-returning statements render up to max-rows rows.
func (s *session) sql(stmt string) (string, error) {
	if stmt == "" {
		return "", fmt.Errorf("sql needs a statement")
	}
	if !s.hasDB {
		return "", fmt.Errorf("no database configured (set -db or database.dsn)")
	}
	if err := s.ensureDB(); err != nil {
		return "", err
	}

	first, _, _ := strings.Cut(strings.ToUpper(stmt), " ")
	rowsBack := first == "SELECT" || first == "PRAGMA" || first == "WITH" || first == "EXPLAIN"

	op := "exec"
	if rowsBack {
		op = "query"
	}
	if _, err := s.l.Global("sql"); err != nil {
		return "", err
	}
	s.l.RawField(-1, op)
	s.l.Remove(-2)
	s.l.RawField(state.RegistryIndex, dbKey)
	s.l.PushString(stmt)
	if err := s.l.Call(2, 1, 0); err != nil {
		return "", err
	}

	if !rowsBack {
		n, _ := s.l.ToInteger(-1)
		s.l.Pop(1)
		return fmt.Sprintf("%d row(s) affected", n), nil
	}
	return s.renderRows(), nil
}

// ensureDB opens the configured database once and parks the handle in
// the registry.
func (s *session) ensureDB() error {
	if s.dbReady {
		return nil
	}
	if _, err := s.l.Global("sql"); err != nil {
		return err
	}
	s.l.RawField(-1, "open")
	s.l.Remove(-2)
	if err := s.l.Call(0, 1, 0); err != nil {
		return err
	}
	if err := s.l.RawSetField(state.RegistryIndex, dbKey); err != nil {
		return err
	}
	s.dbReady = true
	return nil
}

// renderRows formats and pops the row table at the stack top.
func (s *session) renderRows() string {
	n := s.l.RawLen(-1)
	var b strings.Builder
	shown := n
	if limit := int64(s.cfg.Output.MaxRows); shown > limit {
		shown = limit
	}
	for i := int64(1); i <= shown; i++ {
		s.l.RawIndex(-1, i)
		var cols []string
		s.l.ForEach(-1, func(l *state.State) (bool, error) {
			cols = append(cols, l.DisplayString(-2)+"="+l.DisplayString(-1))
			return true, nil
		})
		fmt.Fprintf(&b, "%d: %s\n", i, strings.Join(cols, " "))
		s.l.Pop(1)
	}
	if shown < n {
		fmt.Fprintf(&b, "... %d more row(s)\n", n-shown)
	}
	fmt.Fprintf(&b, "%d row(s)", n)
	s.l.Pop(1)
	return b.String()
}

// takeOutput drains anything the base library printed since the last
// call.
func (s *session) takeOutput() string {
	out := s.out.String()
	s.out.Reset()
	return out
}

// slotLine is one rendered stack slot.
type slotLine struct {
	index int
	kind  string
	value string
}

// stackLines renders the stack bottom-up, bounded by max-slots.
func (s *session) stackLines() []slotLine {
	top := s.l.Top()
	lines := make([]slotLine, 0, top)
	lo := 1
	if top > s.cfg.Output.MaxSlots {
		lo = top - s.cfg.Output.MaxSlots + 1
	}
	for i := lo; i <= top; i++ {
		lines = append(lines, slotLine{
			index: i,
			kind:  s.l.TypeName(i),
			value: s.l.DisplayString(i),
		})
	}
	return lines
}

// renderStack is the plain-text stack view used by scripted mode.
func (s *session) renderStack() string {
	lines := s.stackLines()
	if len(lines) == 0 {
		return "stack: empty\n"
	}
	var b strings.Builder
	b.WriteString("stack:\n")
	for i := len(lines) - 1; i >= 0; i-- {
		ln := lines[i]
		fmt.Fprintf(&b, "  %3d  %-9s %s\n", ln.index, ln.kind, ln.value)
	}
	return b.String()
}
