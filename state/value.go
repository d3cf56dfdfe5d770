package state

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/moonstack/luastack/errors"
)

// A stack slot holds one of:
//
//	nil        (nil)
//	bool       (boolean)
//	int64      (number, integer subkind)
//	float64    (number, float subkind)
//	string     (byte string)
//	*table
//	*function
//	*userdata
//	*State     (thread)

func typeOf(v any) Type {
	switch v.(type) {
	case nil:
		return TypeNil
	case bool:
		return TypeBoolean
	case int64, float64:
		return TypeNumber
	case string:
		return TypeString
	case *table:
		return TypeTable
	case *function:
		return TypeFunction
	case *userdata:
		return TypeUserdata
	case *State:
		return TypeThread
	default:
		panic(fmt.Sprintf("state: impossible slot value %T", v))
	}
}

// table is the runtime table: a map plus insertion order, so the pair
// iteration protocol (Next) is stable between calls. Deleted keys leave
// tombstones in order; they are skipped during iteration and dropped
// wholesale once they outnumber live keys.
type table struct {
	data  map[any]any
	order []any
	pos   map[any]int
	dead  int
	meta  *table
}

func newTable(capacity int) *table {
	if capacity < 0 {
		capacity = 0
	}
	return &table{
		data: make(map[any]any, capacity),
		pos:  make(map[any]int, capacity),
	}
}

// normalizeKey folds integral floats onto integer keys so t[2] and t[2.0]
// address the same slot.
func normalizeKey(k any) (any, error) {
	switch x := k.(type) {
	case nil:
		return nil, errors.New(errors.PhasePush, errors.KindBadArgument).
			Detail("table index is nil").Build()
	case float64:
		if math.IsNaN(x) {
			return nil, errors.New(errors.PhasePush, errors.KindBadArgument).
				Detail("table index is NaN").Build()
		}
		if i, ok := floatToInteger(x); ok {
			return i, nil
		}
		return x, nil
	default:
		return k, nil
	}
}

func (t *table) get(k any) any {
	nk, err := normalizeKey(k)
	if err != nil {
		return nil
	}
	return t.data[nk]
}

func (t *table) set(k, v any) error {
	nk, err := normalizeKey(k)
	if err != nil {
		return err
	}
	if v == nil {
		if _, live := t.data[nk]; live {
			delete(t.data, nk)
			delete(t.pos, nk)
			t.dead++
			t.maybeCompact()
		}
		return nil
	}
	if _, live := t.data[nk]; !live {
		t.pos[nk] = len(t.order)
		t.order = append(t.order, nk)
	}
	t.data[nk] = v
	return nil
}

func (t *table) maybeCompact() {
	if t.dead <= len(t.data) || t.dead < 16 {
		return
	}
	live := t.order[:0]
	for _, k := range t.order {
		if _, ok := t.data[k]; ok {
			t.pos[k] = len(live)
			live = append(live, k)
		}
	}
	t.order = live
	t.dead = 0
}

// next implements the pair iteration protocol: key nil starts iteration.
// ok is false when iteration is complete; err is non-nil for a key that was
// never in the table.
func (t *table) next(k any) (nk, nv any, ok bool, err error) {
	start := 0
	if k != nil {
		key, kerr := normalizeKey(k)
		if kerr != nil {
			return nil, nil, false, kerr
		}
		p, exists := t.pos[key]
		if !exists {
			return nil, nil, false, errors.New(errors.PhasePull, errors.KindBadArgument).
				Detail("invalid key to iteration").Build()
		}
		start = p + 1
	}
	for i := start; i < len(t.order); i++ {
		key := t.order[i]
		if v, live := t.data[key]; live {
			return key, v, true, nil
		}
	}
	return nil, nil, false, nil
}

// length returns a border: n such that t[n] is non-nil and t[n+1] is nil.
func (t *table) length() int64 {
	var n int64
	for {
		if _, live := t.data[n+1]; !live {
			return n
		}
		n++
	}
}

// function is a callable value: a native function plus captured upvalues,
// and, for loaded chunks, the metadata the debug surface reports.
type function struct {
	id       uint64
	fn       Function
	upvalues []any
	name     string // debug name assigned at registration, may be empty
	info     funcInfo
	binary   []byte // precompiled image for Dump, loaded chunks only
}

type funcInfo struct {
	what            string // "Go", "main", or "chunk"
	source          string
	lineDefined     int
	lastLineDefined int
	lines           []int
}

var goFuncInfo = funcInfo{what: "Go", source: "=[Go]", lineDefined: -1, lastLineDefined: -1}

// userdata boxes an arbitrary Go value on the stack.
type userdata struct {
	value any
	meta  *table
}

// floatToInteger converts f only when it has an exact integer value.
func floatToInteger(f float64) (int64, bool) {
	i := int64(f)
	if float64(i) == f {
		return i, true
	}
	return 0, false
}

// toNumber applies the runtime's number coercion: numbers convert to float,
// strings parse as decimal or hexadecimal numerals.
func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case string:
		return parseNumber(x)
	default:
		return 0, false
	}
}

// toInteger applies the runtime's integer coercion: floats must be integral,
// strings must parse to an integral number.
func toInteger(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return floatToInteger(x)
	case string:
		if f, ok := parseNumber(x); ok {
			return floatToInteger(f)
		}
		return 0, false
	default:
		return 0, false
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return float64(i), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return 0, false
}

// formatNumber renders a number the way the runtime stringifies it.
func formatNumber(v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', 14, 64)
	default:
		panic(fmt.Sprintf("state: formatNumber on %T", v))
	}
}

// displayString renders any value for diagnostics: numbers and strings by
// value, reference kinds by kind and identity.
func displayString(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int64, float64:
		return formatNumber(x)
	case string:
		return x
	case *table:
		return fmt.Sprintf("table: %p", x)
	case *function:
		return fmt.Sprintf("function: %p", x)
	case *userdata:
		return fmt.Sprintf("userdata: %p", x)
	case *State:
		return fmt.Sprintf("thread: %p", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// shortSource condenses a chunk source for messages: "=name" strips the
// marker, "@file" strips the marker and keeps the tail of long paths, and
// literal chunks are quoted with their first line.
func shortSource(source string) string {
	const limit = 60
	switch {
	case strings.HasPrefix(source, "="):
		s := source[1:]
		if len(s) > limit {
			s = s[:limit]
		}
		return s
	case strings.HasPrefix(source, "@"):
		s := source[1:]
		if len(s) > limit {
			return "..." + s[len(s)-(limit-3):]
		}
		return s
	default:
		line := source
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i] + "..."
		}
		if len(line) > limit-15 {
			line = line[:limit-15] + "..."
		}
		return `[string "` + line + `"]`
	}
}
