package marshal

import (
	"fmt"
	"reflect"

	"github.com/moonstack/luastack/errors"
	"github.com/moonstack/luastack/state"
)

// Push marshals v onto the stack as one slot. The Pushable constraint
// closes the accepted types at compile time; builtin types dispatch
// directly, named types fall through to their kind.
func Push[T Pushable](l *state.State, v T) {
	switch x := any(v).(type) {
	case int:
		l.PushInteger(int64(x))
	case int8:
		l.PushInteger(int64(x))
	case int16:
		l.PushInteger(int64(x))
	case int32:
		l.PushInteger(int64(x))
	case int64:
		l.PushInteger(x)
	case uint:
		l.PushInteger(int64(x))
	case uint8:
		l.PushInteger(int64(x))
	case uint16:
		l.PushInteger(int64(x))
	case uint32:
		l.PushInteger(int64(x))
	case uint64:
		l.PushInteger(int64(x))
	case uintptr:
		l.PushInteger(int64(x))
	case float32:
		l.PushNumber(float64(x))
	case float64:
		l.PushNumber(x)
	case bool:
		l.PushBoolean(x)
	case string:
		l.PushString(x)
	case []byte:
		l.PushString(string(x))
	case NilValue:
		l.PushNil()
	case FailValue:
		l.PushBoolean(false)
	case state.Function:
		l.PushClosure(0, x)
	default:
		pushReflect(l, x)
	}
}

// pushReflect handles the named types the exact switch cannot see. The
// constraint guarantees the kind is one of the handled ones.
func pushReflect(l *state.State, v any) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		l.PushInteger(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		l.PushInteger(int64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		l.PushNumber(rv.Float())
	case reflect.Bool:
		l.PushBoolean(rv.Bool())
	case reflect.String:
		l.PushString(rv.String())
	case reflect.Slice:
		l.PushString(string(rv.Bytes()))
	default:
		panic(errors.New(errors.PhasePush, errors.KindUnsupported).
			GoType(fmt.Sprintf("%T", v)).
			Detail("no stack mapping for kind %s", rv.Kind()).Build())
	}
}

// PushInteger marshals any integer-kinded value. Values wider than the
// slot representation wrap two's-complement.
func PushInteger[T Integer](l *state.State, v T) {
	l.PushInteger(int64(v))
}

// PushNumber marshals any float-kinded value.
func PushNumber[T Float](l *state.State, v T) {
	l.PushNumber(float64(v))
}

// PushBoolean marshals any boolean-kinded value.
func PushBoolean[T Boolean](l *state.State, v T) {
	l.PushBoolean(bool(v))
}

// PushText marshals any text-kinded value byte-for-byte.
func PushText[T Text](l *state.State, v T) {
	l.PushString(string(v))
}

// PushFunc binds fn as a function slot with no captured upvalues. Unlike
// Push, it accepts anything assignable to state.Function, bare func
// literals included.
func PushFunc(l *state.State, fn state.Function) {
	l.PushClosure(0, fn)
}

// PushClosure binds fn as a function slot capturing the top n stack
// slots as its upvalues. The captured slots are consumed; the closure
// takes the position the first captured slot had. Inside fn the captures
// read through state.UpvalueIndex, in push order.
func PushClosure(l *state.State, n int, fn state.Function) {
	l.PushClosure(n, fn)
}

// PushCustom marshals v through its own PushOnto and verifies it
// produced exactly one slot. On failure the stack is restored and
// nothing is pushed.
func PushCustom(l *state.State, v Pusher) error {
	top := l.Top()
	if err := v.PushOnto(l); err != nil {
		l.SetTop(top)
		return errors.Wrap(errors.PhasePush, errors.KindRuntimeFault, err,
			"custom push of %T", v)
	}
	if got := l.Top() - top; got != 1 {
		l.SetTop(top)
		return errors.New(errors.PhasePush, errors.KindRuntimeFault).
			GoType(fmt.Sprintf("%T", v)).
			Detail("custom push produced %d slots, want 1", got).Build()
	}
	return nil
}

// SetGlobal marshals v and binds it to the named global.
func SetGlobal[T Pushable](l *state.State, name string, v T) error {
	Push(l, v)
	return l.SetGlobal(name)
}

// SetGlobalFunc binds fn to the named global in one step.
func SetGlobalFunc(l *state.State, name string, fn state.Function) error {
	PushFunc(l, fn)
	l.NameFunction(-1, name)
	return l.SetGlobal(name)
}
