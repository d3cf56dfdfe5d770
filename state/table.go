package state

import (
	"github.com/moonstack/luastack/errors"
)

// CreateTable pushes a fresh table with room for narr sequence entries and
// nrec other entries.
func (l *State) CreateTable(narr, nrec int) {
	l.push(newTable(narr + nrec))
}

// metatableOf returns the metatable attached to v, if its kind carries one.
func metatableOf(v any) *table {
	switch x := v.(type) {
	case *table:
		return x.meta
	case *userdata:
		return x.meta
	default:
		return nil
	}
}

// index resolves obj[key] through __index chains: missing keys consult the
// metatable, table handlers restart the lookup, function handlers are called
// with (obj, key).
func (l *State) index(obj, key any) (any, error) {
	for range maxIndexChain {
		if t, ok := obj.(*table); ok {
			if v := t.get(key); v != nil {
				return v, nil
			}
			if t.meta == nil {
				return nil, nil
			}
			h := t.meta.get("__index")
			if h == nil {
				return nil, nil
			}
			if f, ok := h.(*function); ok {
				return l.callIndexHandler(f, obj, key)
			}
			obj = h
			continue
		}
		mt := metatableOf(obj)
		if mt == nil {
			return nil, errors.New(errors.PhasePull, errors.KindNotTable).
				StackKind(typeOf(obj).String()).
				Detail("attempt to index a %s value", typeOf(obj)).Build()
		}
		h := mt.get("__index")
		if h == nil {
			return nil, errors.New(errors.PhasePull, errors.KindNotTable).
				StackKind(typeOf(obj).String()).
				Detail("attempt to index a %s value", typeOf(obj)).Build()
		}
		if f, ok := h.(*function); ok {
			return l.callIndexHandler(f, obj, key)
		}
		obj = h
	}
	return nil, errors.DepthExceeded(errors.PhasePull, maxIndexChain)
}

func (l *State) callIndexHandler(f *function, obj, key any) (any, error) {
	l.push(f)
	l.push(obj)
	l.push(key)
	if err := l.Call(2, 1, 0); err != nil {
		l.Pop(1) // error value
		return nil, err
	}
	v, _ := l.valueAt(-1)
	l.Pop(1)
	return v, nil
}

// newindex resolves obj[key] = val through __newindex chains. A handler only
// fires when the key is absent from the table itself.
func (l *State) newindex(obj, key, val any) error {
	for range maxIndexChain {
		if t, ok := obj.(*table); ok {
			if t.get(key) != nil || t.meta == nil || t.meta.get("__newindex") == nil {
				return t.set(key, val)
			}
			h := t.meta.get("__newindex")
			if f, ok := h.(*function); ok {
				return l.callNewindexHandler(f, obj, key, val)
			}
			obj = h
			continue
		}
		mt := metatableOf(obj)
		if mt == nil || mt.get("__newindex") == nil {
			return errors.New(errors.PhasePush, errors.KindNotTable).
				StackKind(typeOf(obj).String()).
				Detail("attempt to index a %s value", typeOf(obj)).Build()
		}
		h := mt.get("__newindex")
		if f, ok := h.(*function); ok {
			return l.callNewindexHandler(f, obj, key, val)
		}
		obj = h
	}
	return errors.DepthExceeded(errors.PhasePush, maxIndexChain)
}

func (l *State) callNewindexHandler(f *function, obj, key, val any) error {
	l.push(f)
	l.push(obj)
	l.push(key)
	l.push(val)
	if err := l.Call(3, 0, 0); err != nil {
		l.Pop(1)
		return err
	}
	return nil
}

// Table pops a key and pushes the value of slot[idx][key], consulting
// __index chains. It returns the pushed value's kind.
func (l *State) Table(idx int) (Type, error) {
	obj, ok := l.valueAt(idx)
	if !ok {
		panic(errors.BadIndex(errors.PhasePull, idx, l.Top()))
	}
	key, _ := l.valueAt(-1)
	l.Pop(1)
	v, err := l.index(obj, key)
	if err != nil {
		return TypeNone, err
	}
	l.push(v)
	return typeOf(v), nil
}

// SetTable pops a value and a key (value on top) and performs
// slot[idx][key] = value, consulting __newindex chains.
func (l *State) SetTable(idx int) error {
	obj, ok := l.valueAt(idx)
	if !ok {
		panic(errors.BadIndex(errors.PhasePush, idx, l.Top()))
	}
	val, _ := l.valueAt(-1)
	key, _ := l.valueAt(-2)
	l.Pop(2)
	return l.newindex(obj, key, val)
}

// Field pushes slot[idx][name] and returns its kind.
func (l *State) Field(idx int, name string) (Type, error) {
	idx = l.AbsIndex(idx)
	l.PushString(name)
	return l.Table(idx)
}

// SetField pops the top value and stores it as slot[idx][name].
func (l *State) SetField(idx int, name string) error {
	idx = l.AbsIndex(idx)
	l.PushString(name)
	l.Insert(-2) // key below value
	return l.SetTable(idx)
}

// RawGet pops a key and pushes slot[idx][key] without consulting
// metatables. The slot at idx must be a table.
func (l *State) RawGet(idx int) Type {
	t := l.mustTable(idx, errors.PhasePull)
	key, _ := l.valueAt(-1)
	l.Pop(1)
	v := t.get(key)
	l.push(v)
	return typeOf(v)
}

// RawSet pops a value and a key and stores slot[idx][key] = value without
// consulting metatables.
func (l *State) RawSet(idx int) error {
	t := l.mustTable(idx, errors.PhasePush)
	val, _ := l.valueAt(-1)
	key, _ := l.valueAt(-2)
	l.Pop(2)
	return t.set(key, val)
}

// RawField pushes slot[idx][name] without metatables.
func (l *State) RawField(idx int, name string) Type {
	t := l.mustTable(idx, errors.PhasePull)
	v := t.get(name)
	l.push(v)
	return typeOf(v)
}

// RawSetField pops the top value into slot[idx][name] without metatables.
func (l *State) RawSetField(idx int, name string) error {
	t := l.mustTable(idx, errors.PhasePush)
	val, _ := l.valueAt(-1)
	l.Pop(1)
	return t.set(name, val)
}

// RawIndex pushes slot[idx][n] without metatables.
func (l *State) RawIndex(idx int, n int64) Type {
	t := l.mustTable(idx, errors.PhasePull)
	v := t.get(n)
	l.push(v)
	return typeOf(v)
}

// RawSetIndex pops the top value into slot[idx][n] without metatables.
func (l *State) RawSetIndex(idx int, n int64) error {
	t := l.mustTable(idx, errors.PhasePush)
	val, _ := l.valueAt(-1)
	l.Pop(1)
	return t.set(n, val)
}

func (l *State) mustTable(idx int, phase errors.Phase) *table {
	v, ok := l.valueAt(idx)
	if !ok {
		panic(errors.BadIndex(phase, idx, l.Top()))
	}
	t, ok := v.(*table)
	if !ok {
		panic(errors.NotTable(phase, idx, typeOf(v).String()))
	}
	return t
}

// Next pops a key and pushes the next key-value pair of the table at idx,
// following the pair iteration protocol: push nil to start, and each
// returned key feeds the next call. It reports false (pushing nothing) when
// iteration is complete, and errors on a key that is not in the table.
func (l *State) Next(idx int) (bool, error) {
	t := l.mustTable(idx, errors.PhasePull)
	key, _ := l.valueAt(-1)
	l.Pop(1)
	nk, nv, ok, err := t.next(key)
	if err != nil || !ok {
		return false, err
	}
	l.push(nk)
	l.push(nv)
	return true, nil
}

// ForEach iterates every pair of the table at idx, calling fn with the key
// at -2 and the value at -1. fn must leave both in place; returning false
// stops the iteration.
func (l *State) ForEach(idx int, fn func(l *State) (bool, error)) error {
	idx = l.AbsIndex(idx)
	l.PushNil()
	for {
		more, err := l.Next(idx)
		if err != nil || !more {
			return err
		}
		cont, err := fn(l)
		if err != nil {
			l.Pop(2)
			return err
		}
		if !cont {
			l.Pop(2)
			return nil
		}
		l.Pop(1) // keep the key for the next round
	}
}

// GetSubTable pushes slot[idx][name], creating and storing a fresh table if
// the field is nil. A field holding any other kind is an error; created
// reports whether a new table was made.
func (l *State) GetSubTable(idx int, name string) (created bool, err error) {
	idx = l.AbsIndex(idx)
	t, err := l.Field(idx, name)
	if err != nil {
		return false, err
	}
	switch t {
	case TypeTable:
		return false, nil
	case TypeNil:
		l.Pop(1)
		l.CreateTable(0, 0)
		l.PushValue(-1)
		if err := l.SetField(idx, name); err != nil {
			l.Pop(1)
			return false, err
		}
		return true, nil
	default:
		l.Pop(1)
		return false, errors.New(errors.PhasePull, errors.KindNotTable).
			StackKind(t.String()).
			Detail("field %q holds a %s, not a table", name, t).Build()
	}
}

// Len pushes nothing; it returns the length of the slot at idx: byte length
// for strings, the __len metamethod result or border length for tables.
func (l *State) Len(idx int) (int64, error) {
	v, ok := l.valueAt(idx)
	if !ok {
		panic(errors.BadIndex(errors.PhasePull, idx, l.Top()))
	}
	switch x := v.(type) {
	case string:
		return int64(len(x)), nil
	case *table:
		if x.meta != nil {
			if h, ok := x.meta.get("__len").(*function); ok {
				l.push(h)
				l.push(x)
				if err := l.Call(1, 1, 0); err != nil {
					l.Pop(1)
					return 0, err
				}
				n, numeric := l.ToInteger(-1)
				l.Pop(1)
				if !numeric {
					return 0, errors.New(errors.PhasePull, errors.KindTypeMismatch).
						Detail("__len must return an integer").Build()
				}
				return n, nil
			}
		}
		return x.length(), nil
	default:
		return 0, errors.New(errors.PhasePull, errors.KindTypeMismatch).
			StackKind(typeOf(v).String()).
			Detail("attempt to take length of a %s value", typeOf(v)).Build()
	}
}

// Metatable pushes the metatable of the slot at idx, reporting false (and
// pushing nothing) if it has none.
func (l *State) Metatable(idx int) bool {
	v, _ := l.valueAt(idx)
	mt := metatableOf(v)
	if mt == nil {
		return false
	}
	l.push(mt)
	return true
}

// SetMetatable pops a table (or nil, to clear) and installs it as the
// metatable of the slot at idx. Only tables and userdata carry metatables;
// other kinds report false.
func (l *State) SetMetatable(idx int) bool {
	v, ok := l.valueAt(idx)
	if !ok {
		panic(errors.BadIndex(errors.PhasePush, idx, l.Top()))
	}
	m, _ := l.valueAt(-1)
	var mt *table
	switch x := m.(type) {
	case nil:
	case *table:
		mt = x
	default:
		panic(errors.New(errors.PhasePush, errors.KindBadArgument).
			Detail("metatable must be a table or nil").Build())
	}
	l.Pop(1)
	switch x := v.(type) {
	case *table:
		x.meta = mt
		return true
	case *userdata:
		x.meta = mt
		return true
	default:
		return false
	}
}

// NewMetatable pushes the named metatable from the registry, creating it on
// first use with its __name field set. It reports true when it created the
// table.
func (l *State) NewMetatable(tname string) bool {
	if l.MetatableNamed(tname) != TypeNil {
		return false
	}
	l.Pop(1)
	l.CreateTable(0, 2)
	l.PushString(tname)
	if err := l.RawSetField(-2, "__name"); err != nil {
		panic(err)
	}
	l.PushValue(-1)
	if err := l.RawSetField(RegistryIndex, tname); err != nil {
		panic(err)
	}
	return true
}

// MetatableNamed pushes the named metatable from the registry (nil if it was
// never created) and returns its kind.
func (l *State) MetatableNamed(tname string) Type {
	return l.RawField(RegistryIndex, tname)
}

// Global pushes the global named name and returns its kind. Lookup honors
// the globals table's __index chain, if one is set.
func (l *State) Global(name string) (Type, error) {
	v, err := l.index(l.shared.globals(), name)
	if err != nil {
		return TypeNone, err
	}
	l.push(v)
	return typeOf(v), nil
}

// SetGlobal pops the top value and binds it to the global named name.
func (l *State) SetGlobal(name string) error {
	val, ok := l.valueAt(-1)
	if !ok {
		panic(errors.StackUnderflow(errors.PhasePush, 1, 0))
	}
	l.Pop(1)
	return l.newindex(l.shared.globals(), name, val)
}
