package marshal

import (
	"fmt"
	"reflect"

	"github.com/moonstack/luastack/errors"
	"github.com/moonstack/luastack/state"
)

// To unmarshals the slot at idx into *out under the runtime's coercion
// rules. A slot that cannot coerce to out's kind leaves the zero value;
// the report says whether the coercion produced a value. Integer targets
// narrower than the slot truncate two's-complement.
func To[T Pullable](l *state.State, idx int, out *T) bool {
	switch p := any(out).(type) {
	case *int:
		n, ok := l.ToInteger(idx)
		*p = int(n)
		return ok
	case *int8:
		n, ok := l.ToInteger(idx)
		*p = int8(n)
		return ok
	case *int16:
		n, ok := l.ToInteger(idx)
		*p = int16(n)
		return ok
	case *int32:
		n, ok := l.ToInteger(idx)
		*p = int32(n)
		return ok
	case *int64:
		n, ok := l.ToInteger(idx)
		*p = n
		return ok
	case *uint:
		n, ok := l.ToInteger(idx)
		*p = uint(n)
		return ok
	case *uint8:
		n, ok := l.ToInteger(idx)
		*p = uint8(n)
		return ok
	case *uint16:
		n, ok := l.ToInteger(idx)
		*p = uint16(n)
		return ok
	case *uint32:
		n, ok := l.ToInteger(idx)
		*p = uint32(n)
		return ok
	case *uint64:
		n, ok := l.ToInteger(idx)
		*p = uint64(n)
		return ok
	case *uintptr:
		n, ok := l.ToInteger(idx)
		*p = uintptr(n)
		return ok
	case *float32:
		f, ok := l.ToNumber(idx)
		*p = float32(f)
		return ok
	case *float64:
		f, ok := l.ToNumber(idx)
		*p = f
		return ok
	case *bool:
		*p = l.ToBoolean(idx)
		return !l.IsNone(idx)
	case *string:
		s, ok := l.ToString(idx)
		*p = s
		return ok
	case *[]byte:
		s, ok := l.ToString(idx)
		*p = []byte(s)
		return ok
	case *NilValue:
		*p = NilValue{}
		return l.IsNil(idx)
	default:
		return toReflect(l, idx, out)
	}
}

// toReflect handles named target types by kind.
func toReflect(l *state.State, idx int, out any) bool {
	rv := reflect.ValueOf(out).Elem()
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := l.ToInteger(idx)
		rv.SetInt(n)
		return ok
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, ok := l.ToInteger(idx)
		rv.SetUint(uint64(n))
		return ok
	case reflect.Float32, reflect.Float64:
		f, ok := l.ToNumber(idx)
		rv.SetFloat(f)
		return ok
	case reflect.Bool:
		rv.SetBool(l.ToBoolean(idx))
		return !l.IsNone(idx)
	case reflect.String:
		s, ok := l.ToString(idx)
		rv.SetString(s)
		return ok
	case reflect.Slice:
		s, ok := l.ToString(idx)
		rv.SetBytes([]byte(s))
		return ok
	default:
		panic(errors.New(errors.PhasePull, errors.KindUnsupported).
			GoType(fmt.Sprintf("%T", out)).
			Detail("no stack mapping for kind %s", rv.Kind()).Build())
	}
}

// Pull unmarshals and returns the slot at idx, zero value on a kind
// mismatch. Use To when the mismatch matters.
func Pull[T Pullable](l *state.State, idx int) T {
	var v T
	To(l, idx, &v)
	return v
}

// ToInteger unmarshals the slot at idx into any integer-kinded target,
// truncating to the target's width.
func ToInteger[T Integer](l *state.State, idx int, out *T) bool {
	n, ok := l.ToInteger(idx)
	*out = T(n)
	return ok
}

// ToNumber unmarshals the slot at idx into any float-kinded target.
func ToNumber[T Float](l *state.State, idx int, out *T) bool {
	f, ok := l.ToNumber(idx)
	*out = T(f)
	return ok
}

// ToBoolean unmarshals the slot's truth value: nil and false are false,
// every other slot is true. It reports false only for an absent slot.
func ToBoolean[T Boolean](l *state.State, idx int, out *T) bool {
	*out = T(l.ToBoolean(idx))
	return !l.IsNone(idx)
}

// ToText unmarshals the slot at idx into any text-kinded target.
// Strings pass through byte-for-byte; numbers render as numerals.
func ToText[T Text](l *state.State, idx int, out *T) bool {
	s, ok := l.ToString(idx)
	*out = T(s)
	return ok
}

// PullCustom unmarshals the slot at idx through v's own PullFrom and
// verifies the stack height is unchanged afterwards.
func PullCustom(l *state.State, idx int, v Puller) error {
	top := l.Top()
	if err := v.PullFrom(l, idx); err != nil {
		l.SetTop(top)
		return errors.Wrap(errors.PhasePull, errors.KindRuntimeFault, err,
			"custom pull of %T", v)
	}
	if got := l.Top(); got != top {
		l.SetTop(top)
		return errors.New(errors.PhasePull, errors.KindRuntimeFault).
			GoType(fmt.Sprintf("%T", v)).
			Detail("custom pull moved the stack from %d to %d slots", top, got).Build()
	}
	return nil
}

// Global pushes nothing: it reads the named global and unmarshals it in
// one step, popping the intermediate slot.
func Global[T Pullable](l *state.State, name string) (T, error) {
	var v T
	if _, err := l.Global(name); err != nil {
		return v, err
	}
	To(l, -1, &v)
	l.Pop(1)
	return v, nil
}
