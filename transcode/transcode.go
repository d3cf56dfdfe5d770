// Package transcode converts stack values to and from canonical CBOR.
//
// Scalars map directly: nil to null, booleans to booleans, integer
// numbers to CBOR integers, float numbers to CBOR floats, and strings to
// CBOR byte strings (stack strings are byte strings; embedded NUL and
// non-UTF-8 bytes survive). A table whose keys are exactly 1..n encodes
// as an array, any other table as a map with scalar keys. Functions,
// userdata and threads do not encode.
//
// Encoding is canonical: the same value always yields the same bytes,
// with map keys sorted. Self-referential tables are detected and
// rejected rather than looping.
package transcode

import (
	"fmt"
	"math"
	"slices"

	"github.com/fxamacker/cbor/v2"

	"github.com/moonstack/luastack/errors"
	"github.com/moonstack/luastack/state"
)

// maxDepth bounds table nesting on both directions.
const maxDepth = 64

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		UTF8:            cbor.UTF8DecodeInvalid,
		IntDec:          cbor.IntDecConvertSignedOrFail,
		MaxNestedLevels: maxDepth,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode renders the slot at idx as canonical CBOR. The slot stays on
// the stack.
func Encode(l *state.State, idx int) ([]byte, error) {
	v, err := encodeSlot(l, l.AbsIndex(idx), 0, nil, nil)
	if err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseTranscode, errors.KindIO, err, "marshal")
	}
	return data, nil
}

// encodeSlot builds the Go value tree for one slot. ancestors holds the
// absolute indices of the tables currently being walked so that a table
// reaching itself is caught; path holds the key trail for error reports.
func encodeSlot(l *state.State, idx, depth int, ancestors []int, path []string) (any, error) {
	if depth > maxDepth {
		return nil, errors.DepthExceeded(errors.PhaseTranscode, maxDepth)
	}
	switch l.Type(idx) {
	case state.TypeNil:
		return nil, nil
	case state.TypeBoolean:
		return l.ToBoolean(idx), nil
	case state.TypeNumber:
		if l.IsInteger(idx) {
			n, _ := l.ToInteger(idx)
			return n, nil
		}
		f, _ := l.ToNumber(idx)
		return f, nil
	case state.TypeString:
		s, _ := l.ToString(idx)
		return []byte(s), nil
	case state.TypeTable:
		return encodeTable(l, idx, depth, ancestors, path)
	default:
		return nil, errors.Unsupported(errors.PhaseTranscode,
			"cannot encode a "+l.TypeName(idx)+" slot")
	}
}

func encodeTable(l *state.State, idx, depth int, ancestors []int, path []string) (any, error) {
	for _, anc := range ancestors {
		if l.RawEqual(anc, idx) {
			return nil, errors.CycleDetected(slices.Clone(path))
		}
	}
	ancestors = append(ancestors, idx)

	n := l.RawLen(idx)
	arr := make([]any, n)
	m := make(map[any]any)
	arrayOK := true
	pairs := int64(0)

	err := l.ForEach(idx, func(l *state.State) (bool, error) {
		pairs++
		key, err := encodeKey(l, l.AbsIndex(-2))
		if err != nil {
			return false, err
		}
		val, err := encodeSlot(l, l.AbsIndex(-1), depth+1, ancestors, append(path, l.DisplayString(-2)))
		if err != nil {
			return false, err
		}
		if k, ok := key.(int64); ok && 1 <= k && k <= n {
			arr[k-1] = val
		} else {
			arrayOK = false
		}
		m[key] = val
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if arrayOK && pairs == n {
		return arr, nil
	}
	return m, nil
}

// encodeKey restricts table keys to scalars: text keys become CBOR text
// strings, numbers and booleans themselves. Reference kinds cannot key a
// canonical map.
func encodeKey(l *state.State, idx int) (any, error) {
	switch l.Type(idx) {
	case state.TypeBoolean:
		return l.ToBoolean(idx), nil
	case state.TypeNumber:
		if l.IsInteger(idx) {
			n, _ := l.ToInteger(idx)
			return n, nil
		}
		f, _ := l.ToNumber(idx)
		return f, nil
	case state.TypeString:
		s, _ := l.ToString(idx)
		return s, nil
	default:
		return nil, errors.Unsupported(errors.PhaseTranscode,
			"cannot encode a "+l.TypeName(idx)+" table key")
	}
}

// Decode unmarshals data and pushes the decoded value as one slot.
// Nothing is pushed on error.
func Decode(l *state.State, data []byte) error {
	var v any
	if err := decMode.Unmarshal(data, &v); err != nil {
		return errors.Wrap(errors.PhaseTranscode, errors.KindIO, err, "unmarshal")
	}
	top := l.Top()
	if err := pushDecoded(l, v, 0); err != nil {
		l.SetTop(top)
		return err
	}
	return nil
}

func pushDecoded(l *state.State, v any, depth int) error {
	if depth > maxDepth {
		return errors.DepthExceeded(errors.PhaseTranscode, maxDepth)
	}
	switch x := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(x)
	case int64:
		l.PushInteger(x)
	case uint64:
		if x > math.MaxInt64 {
			return errors.Unsupported(errors.PhaseTranscode, "integer beyond the number range")
		}
		l.PushInteger(int64(x))
	case float64:
		l.PushNumber(x)
	case string:
		l.PushString(x)
	case []byte:
		l.PushString(string(x))
	case []any:
		l.CreateTable(len(x), 0)
		for i, elem := range x {
			if err := pushDecoded(l, elem, depth+1); err != nil {
				return err
			}
			if err := l.RawSetIndex(-2, int64(i+1)); err != nil {
				return err
			}
		}
	case map[any]any:
		l.CreateTable(0, len(x))
		for k, elem := range x {
			if err := pushDecoded(l, normalizeKey(k), depth+1); err != nil {
				return err
			}
			if err := pushDecoded(l, elem, depth+1); err != nil {
				return err
			}
			if err := l.RawSet(-3); err != nil {
				return err
			}
		}
	default:
		return errors.New(errors.PhaseTranscode, errors.KindUnsupported).
			GoType(fmt.Sprintf("%T", v)).
			Detail("no slot mapping for decoded value").Build()
	}
	return nil
}

func normalizeKey(k any) any {
	if u, ok := k.(uint64); ok && u <= math.MaxInt64 {
		return int64(u)
	}
	return k
}
