package state

import (
	"testing"
)

func TestPushAndReadPrimitives(t *testing.T) {
	l := New()
	defer l.Close()

	l.PushInteger(42)
	l.PushNumber(2.5)
	l.PushBoolean(true)
	l.PushString("hello")
	l.PushNil()

	if got := l.Top(); got != 5 {
		t.Fatalf("Top() = %d, want 5", got)
	}

	tests := []struct {
		idx  int
		want Type
	}{
		{1, TypeNumber},
		{2, TypeNumber},
		{3, TypeBoolean},
		{4, TypeString},
		{5, TypeNil},
		{-1, TypeNil},
		{-5, TypeNumber},
		{99, TypeNone},
		{-99, TypeNone},
	}
	for _, tt := range tests {
		if got := l.Type(tt.idx); got != tt.want {
			t.Errorf("Type(%d) = %v, want %v", tt.idx, got, tt.want)
		}
	}

	if n, ok := l.ToInteger(1); !ok || n != 42 {
		t.Errorf("ToInteger(1) = %d, %v", n, ok)
	}
	if !l.IsInteger(1) {
		t.Error("IsInteger(1) should be true")
	}
	if l.IsInteger(2) {
		t.Error("IsInteger(2) should be false for a float slot")
	}
	if f, ok := l.ToNumber(2); !ok || f != 2.5 {
		t.Errorf("ToNumber(2) = %g, %v", f, ok)
	}
	if !l.ToBoolean(3) {
		t.Error("ToBoolean(3) should be true")
	}
	if s, ok := l.ToString(4); !ok || s != "hello" {
		t.Errorf("ToString(4) = %q, %v", s, ok)
	}
}

func TestCoercionRules(t *testing.T) {
	tests := []struct {
		name    string
		push    func(l *State)
		wantInt int64
		intOK   bool
		wantNum float64
		numOK   bool
	}{
		{"integer", func(l *State) { l.PushInteger(7) }, 7, true, 7, true},
		{"integral float", func(l *State) { l.PushNumber(3.0) }, 3, true, 3, true},
		{"fractional float", func(l *State) { l.PushNumber(3.5) }, 0, false, 3.5, true},
		{"decimal string", func(l *State) { l.PushString("10") }, 10, true, 10, true},
		{"hex string", func(l *State) { l.PushString("0x10") }, 16, true, 16, true},
		{"float string", func(l *State) { l.PushString("1.5") }, 0, false, 1.5, true},
		{"spaced string", func(l *State) { l.PushString("  12  ") }, 12, true, 12, true},
		{"non-numeric string", func(l *State) { l.PushString("abc") }, 0, false, 0, false},
		{"boolean", func(l *State) { l.PushBoolean(true) }, 0, false, 0, false},
		{"nil", func(l *State) { l.PushNil() }, 0, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			defer l.Close()
			tt.push(l)
			if n, ok := l.ToInteger(-1); ok != tt.intOK || n != tt.wantInt {
				t.Errorf("ToInteger = %d, %v; want %d, %v", n, ok, tt.wantInt, tt.intOK)
			}
			if f, ok := l.ToNumber(-1); ok != tt.numOK || f != tt.wantNum {
				t.Errorf("ToNumber = %g, %v; want %g, %v", f, ok, tt.wantNum, tt.numOK)
			}
		})
	}
}

func TestToStringFormatsNumbers(t *testing.T) {
	l := New()
	defer l.Close()

	l.PushInteger(42)
	if s, ok := l.ToString(-1); !ok || s != "42" {
		t.Errorf("integer renders as %q, %v", s, ok)
	}
	l.PushNumber(2.5)
	if s, ok := l.ToString(-1); !ok || s != "2.5" {
		t.Errorf("float renders as %q, %v", s, ok)
	}
	l.PushBoolean(true)
	if _, ok := l.ToString(-1); ok {
		t.Error("boolean must not convert to string")
	}
}

func TestStringsKeepEmbeddedNUL(t *testing.T) {
	l := New()
	defer l.Close()

	raw := "a\x00b\x00"
	l.PushString(raw)
	if got := l.RawLen(-1); got != 4 {
		t.Fatalf("RawLen = %d, want 4", got)
	}
	s, ok := l.ToString(-1)
	if !ok || s != raw {
		t.Fatalf("ToString = %q, want %q", s, raw)
	}
}

func TestTruthiness(t *testing.T) {
	l := New()
	defer l.Close()

	l.PushNil()
	l.PushBoolean(false)
	l.PushInteger(0)
	l.PushString("")

	if l.ToBoolean(1) || l.ToBoolean(2) {
		t.Error("nil and false must be falsy")
	}
	if !l.ToBoolean(3) || !l.ToBoolean(4) {
		t.Error("zero and empty string must be truthy")
	}
	if l.ToBoolean(99) {
		t.Error("absent slot must be falsy")
	}
}

func TestAbsIndexAndSetTop(t *testing.T) {
	l := New()
	defer l.Close()

	l.PushInteger(1)
	l.PushInteger(2)
	l.PushInteger(3)

	if got := l.AbsIndex(-1); got != 3 {
		t.Errorf("AbsIndex(-1) = %d, want 3", got)
	}
	if got := l.AbsIndex(-3); got != 1 {
		t.Errorf("AbsIndex(-3) = %d, want 1", got)
	}
	if got := l.AbsIndex(2); got != 2 {
		t.Errorf("AbsIndex(2) = %d, want 2", got)
	}
	if got := l.AbsIndex(RegistryIndex); got != RegistryIndex {
		t.Errorf("AbsIndex(RegistryIndex) = %d, want passthrough", got)
	}

	l.SetTop(5)
	if l.Top() != 5 || !l.IsNil(5) {
		t.Errorf("SetTop(5): Top=%d Type(5)=%v", l.Top(), l.Type(5))
	}
	l.SetTop(1)
	if l.Top() != 1 {
		t.Errorf("SetTop(1): Top=%d", l.Top())
	}
	l.Pop(1)
	if l.Top() != 0 {
		t.Errorf("Pop(1): Top=%d", l.Top())
	}
}

func TestRotateInsertRemoveReplace(t *testing.T) {
	snapshot := func(l *State) []int64 {
		var out []int64
		l.ForEachSlot(func(idx int) bool {
			n, _ := l.ToInteger(idx)
			out = append(out, n)
			return true
		})
		return out
	}
	equal := func(a, b []int64) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}

	t.Run("rotate toward top", func(t *testing.T) {
		l := New()
		defer l.Close()
		for i := int64(1); i <= 5; i++ {
			l.PushInteger(i)
		}
		l.Rotate(1, 2)
		if got := snapshot(l); !equal(got, []int64{4, 5, 1, 2, 3}) {
			t.Errorf("Rotate(1,2) = %v", got)
		}
	})

	t.Run("rotate toward bottom", func(t *testing.T) {
		l := New()
		defer l.Close()
		for i := int64(1); i <= 5; i++ {
			l.PushInteger(i)
		}
		l.Rotate(1, -2)
		if got := snapshot(l); !equal(got, []int64{3, 4, 5, 1, 2}) {
			t.Errorf("Rotate(1,-2) = %v", got)
		}
	})

	t.Run("insert moves top down", func(t *testing.T) {
		l := New()
		defer l.Close()
		l.PushInteger(1)
		l.PushInteger(2)
		l.PushInteger(3)
		l.Insert(1)
		if got := snapshot(l); !equal(got, []int64{3, 1, 2}) {
			t.Errorf("Insert(1) = %v", got)
		}
	})

	t.Run("remove closes the gap", func(t *testing.T) {
		l := New()
		defer l.Close()
		l.PushInteger(1)
		l.PushInteger(2)
		l.PushInteger(3)
		l.Remove(2)
		if got := snapshot(l); !equal(got, []int64{1, 3}) {
			t.Errorf("Remove(2) = %v", got)
		}
	})

	t.Run("replace overwrites in place", func(t *testing.T) {
		l := New()
		defer l.Close()
		l.PushInteger(1)
		l.PushInteger(2)
		l.PushInteger(9)
		l.Replace(1)
		if got := snapshot(l); !equal(got, []int64{9, 2}) {
			t.Errorf("Replace(1) = %v", got)
		}
	})

	t.Run("push value copies", func(t *testing.T) {
		l := New()
		defer l.Close()
		l.PushInteger(7)
		l.PushValue(1)
		if got := snapshot(l); !equal(got, []int64{7, 7}) {
			t.Errorf("PushValue(1) = %v", got)
		}
	})
}

func TestCheckStackLimit(t *testing.T) {
	l := New()
	defer l.Close()

	if !l.CheckStack(100) {
		t.Error("CheckStack(100) should succeed")
	}
	if l.CheckStack(2_000_000) {
		t.Error("CheckStack beyond the stack limit should fail")
	}
	if l.CheckStack(-1) {
		t.Error("CheckStack(-1) should fail")
	}
}

func TestStructuralMisusePanics(t *testing.T) {
	tests := []struct {
		name string
		op   func(l *State)
	}{
		{"pop beyond bottom", func(l *State) { l.Pop(3) }},
		{"settop negative beyond", func(l *State) { l.SetTop(-5) }},
		{"rotate invalid index", func(l *State) { l.Rotate(7, 1) }},
		{"replace invalid index", func(l *State) { l.PushInteger(1); l.Replace(5) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			defer l.Close()
			l.PushInteger(1)
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.op(l)
		})
	}
}

func TestDisplayString(t *testing.T) {
	l := New()
	defer l.Close()

	l.PushNil()
	l.PushBoolean(false)
	l.PushInteger(10)
	l.PushString("x")
	l.CreateTable(0, 0)

	for idx, want := range map[int]string{1: "nil", 2: "false", 3: "10", 4: "x"} {
		if got := l.DisplayString(idx); got != want {
			t.Errorf("DisplayString(%d) = %q, want %q", idx, got, want)
		}
	}
	if got := l.DisplayString(5); len(got) < len("table: ") || got[:7] != "table: " {
		t.Errorf("DisplayString(5) = %q, want table identity", got)
	}
	if got := l.DisplayString(42); got != "no value" {
		t.Errorf("DisplayString(42) = %q", got)
	}
}
