package state

// Type reports the dynamic kind of the slot at idx, or TypeNone for an index
// outside the current frame.
func (l *State) Type(idx int) Type {
	v, ok := l.valueAt(idx)
	if !ok {
		return TypeNone
	}
	return typeOf(v)
}

// TypeName is shorthand for Type(idx).String().
func (l *State) TypeName(idx int) string {
	return l.Type(idx).String()
}

// IsNone reports whether idx is outside the current frame.
func (l *State) IsNone(idx int) bool { return l.Type(idx) == TypeNone }

// IsNil reports whether the slot at idx holds nil.
func (l *State) IsNil(idx int) bool { return l.Type(idx) == TypeNil }

// IsNoneOrNil reports whether idx is invalid or holds nil.
func (l *State) IsNoneOrNil(idx int) bool { return l.Type(idx) <= TypeNil }

// IsBoolean reports whether the slot at idx holds a boolean.
func (l *State) IsBoolean(idx int) bool { return l.Type(idx) == TypeBoolean }

// IsNumber reports whether the slot at idx holds a number or a string
// convertible to one.
func (l *State) IsNumber(idx int) bool {
	v, _ := l.valueAt(idx)
	_, ok := toNumber(v)
	return ok
}

// IsInteger reports whether the slot at idx holds a number of the integer
// subkind. Strings never count, mirroring the raw representation check.
func (l *State) IsInteger(idx int) bool {
	v, _ := l.valueAt(idx)
	_, ok := v.(int64)
	return ok
}

// IsString reports whether the slot at idx holds a string or a number (which
// always converts).
func (l *State) IsString(idx int) bool {
	t := l.Type(idx)
	return t == TypeString || t == TypeNumber
}

// IsTable reports whether the slot at idx holds a table.
func (l *State) IsTable(idx int) bool { return l.Type(idx) == TypeTable }

// IsFunction reports whether the slot at idx holds a function.
func (l *State) IsFunction(idx int) bool { return l.Type(idx) == TypeFunction }

// IsUserdata reports whether the slot at idx holds a userdata box.
func (l *State) IsUserdata(idx int) bool { return l.Type(idx) == TypeUserdata }

// IsThread reports whether the slot at idx holds a coroutine thread.
func (l *State) IsThread(idx int) bool { return l.Type(idx) == TypeThread }

// ToInteger reads the slot at idx as an integer, applying the runtime's
// coercion rules: integer numbers pass through, floats convert only when
// integral, strings convert when they parse to an integral number. Any other
// slot yields (0, false).
func (l *State) ToInteger(idx int) (int64, bool) {
	v, _ := l.valueAt(idx)
	return toInteger(v)
}

// ToNumber reads the slot at idx as a float, coercing integers and numeric
// strings. Any other slot yields (0, false).
func (l *State) ToNumber(idx int) (float64, bool) {
	v, _ := l.valueAt(idx)
	return toNumber(v)
}

// ToBoolean reads the slot at idx under the runtime's truth rules: nil and
// false are false, everything else (including 0 and "") is true.
func (l *State) ToBoolean(idx int) bool {
	v, _ := l.valueAt(idx)
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	default:
		return true
	}
}

// ToString reads the slot at idx as a string: strings pass through
// byte-for-byte, numbers render in the runtime's numeral format. Any other
// slot yields ("", false). The slot itself is never modified.
func (l *State) ToString(idx int) (string, bool) {
	v, _ := l.valueAt(idx)
	switch x := v.(type) {
	case string:
		return x, true
	case int64, float64:
		return formatNumber(x), true
	default:
		return "", false
	}
}

// ToUserdata returns the Go value boxed in the userdata slot at idx.
func (l *State) ToUserdata(idx int) (any, bool) {
	v, _ := l.valueAt(idx)
	u, ok := v.(*userdata)
	if !ok {
		return nil, false
	}
	return u.value, true
}

// ToThread returns the coroutine thread held in the slot at idx.
func (l *State) ToThread(idx int) (*State, bool) {
	v, _ := l.valueAt(idx)
	t, ok := v.(*State)
	return t, ok
}

// RawLen reports the raw length of the slot at idx: byte length for
// strings, border length for tables, 0 otherwise. No metatables consulted.
func (l *State) RawLen(idx int) int64 {
	v, _ := l.valueAt(idx)
	switch x := v.(type) {
	case string:
		return int64(len(x))
	case *table:
		return x.length()
	default:
		return 0
	}
}

// RawEqual reports whether the slots at idx1 and idx2 hold the same value
// under primitive equality (no metatables; numbers compare across subkinds).
func (l *State) RawEqual(idx1, idx2 int) bool {
	a, ok1 := l.valueAt(idx1)
	b, ok2 := l.valueAt(idx2)
	if !ok1 || !ok2 {
		return false
	}
	return rawEqual(a, b)
}

func rawEqual(a, b any) bool {
	if ai, ok := a.(int64); ok {
		if bf, ok := b.(float64); ok {
			return float64(ai) == bf
		}
	}
	if af, ok := a.(float64); ok {
		if bi, ok := b.(int64); ok {
			return af == float64(bi)
		}
	}
	return a == b
}

// DisplayString renders the slot at idx for diagnostics. It always
// succeeds: reference kinds render as kind plus identity.
func (l *State) DisplayString(idx int) string {
	v, ok := l.valueAt(idx)
	if !ok {
		return "no value"
	}
	return displayString(v)
}
