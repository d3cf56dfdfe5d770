package state

import (
	"strings"
	"testing"
)

func TestStackLevels(t *testing.T) {
	l := New()
	defer l.Close()

	var levels []string
	l.PushClosure(0, func(l *State) (int, error) {
		l.PushClosure(0, func(l *State) (int, error) {
			for lvl := 0; ; lvl++ {
				ar := l.Stack(lvl)
				if ar == nil {
					break
				}
				d, err := ar.Info("n")
				if err != nil {
					return 0, err
				}
				levels = append(levels, d.Name)
			}
			return 0, nil
		})
		l.NameFunction(-1, "inner")
		return 0, l.Call(0, 0, 0)
	})
	l.NameFunction(-1, "outer")

	if err := l.Call(0, 0, 0); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(levels) != 2 || levels[0] != "inner" || levels[1] != "outer" {
		t.Fatalf("levels = %v", levels)
	}

	if l.Stack(0) != nil {
		t.Error("no activation outside a call")
	}
	if l.Stack(-1) != nil {
		t.Error("negative level must return nil")
	}
}

func TestInfoSourceFields(t *testing.T) {
	l := New()
	defer l.Close()

	var d *Debug
	l.PushClosure(0, func(l *State) (int, error) {
		ar := l.Stack(0)
		var err error
		d, err = ar.Info("nSl")
		return 0, err
	})
	l.NameFunction(-1, "probe")

	if err := l.Call(0, 0, 0); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if d.Name != "probe" || d.NameWhat != "global" {
		t.Errorf("Name = %q NameWhat = %q", d.Name, d.NameWhat)
	}
	if d.What != "Go" || d.Source != "=[Go]" || d.ShortSource != "[Go]" {
		t.Errorf("What=%q Source=%q ShortSource=%q", d.What, d.Source, d.ShortSource)
	}
	if d.LineDefined != -1 || d.CurrentLine != -1 {
		t.Errorf("LineDefined=%d CurrentLine=%d", d.LineDefined, d.CurrentLine)
	}
}

func TestInfoFunctionOnStack(t *testing.T) {
	l := New()
	defer l.Close()

	l.PushInteger(1)
	l.PushInteger(2)
	l.PushClosure(2, func(l *State) (int, error) { return 0, nil })

	top := l.Top()
	d, err := l.Info(">u")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if l.Top() != top-1 {
		t.Errorf("query did not pop the function: Top=%d", l.Top())
	}
	if d.NumUpvalues != 2 {
		t.Errorf("NumUpvalues = %d", d.NumUpvalues)
	}
	if !d.IsVararg {
		t.Error("native functions accept any arity")
	}
}

func TestInfoPushesFunction(t *testing.T) {
	l := New()
	defer l.Close()

	l.PushClosure(0, func(l *State) (int, error) { return 0, nil })

	l.PushValue(-1)
	d, err := l.Info(">f")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if d == nil {
		t.Fatal("nil debug")
	}
	// The popped query subject is replaced by the pushed function.
	if !l.RawEqual(-1, -2) {
		t.Error("pushed function differs from the subject")
	}
}

func TestInfoLinesTable(t *testing.T) {
	l := New()
	defer l.Close()
	l.SetCompiler(&stubCompiler{})

	if err := l.Load(strings.NewReader("return 1"), "=chunk", LoadModeAll); err != nil {
		t.Fatal(err)
	}

	d, err := l.Info(">SL")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if d.What != "main" {
		t.Errorf("What = %q", d.What)
	}
	if d.Source != "=chunk" || d.ShortSource != "chunk" {
		t.Errorf("Source=%q ShortSource=%q", d.Source, d.ShortSource)
	}
	if !l.IsTable(-1) {
		t.Fatalf("no lines table pushed: %v", l.Type(-1))
	}
	l.RawIndex(-1, 1)
	if !l.ToBoolean(-1) {
		t.Error("line 1 missing from the lines table")
	}
}

func TestInfoQueryErrors(t *testing.T) {
	l := New()
	defer l.Close()

	l.PushClosure(0, func(l *State) (int, error) { return 0, nil })
	if _, err := l.Info(">nZ"); err == nil || !strings.Contains(err.Error(), "Z") {
		t.Errorf("unknown field: %v", err)
	}

	l.PushClosure(0, func(l *State) (int, error) { return 0, nil })
	if _, err := l.Info("n"); err == nil {
		t.Error("State.Info requires the '>' prefix")
	}
	l.Pop(1)

	l.PushInteger(5)
	if _, err := l.Info(">n"); err == nil {
		t.Error("non-function subject must error")
	}
	l.Pop(1)

	l.PushClosure(0, func(l *State) (int, error) {
		_, err := l.Stack(0).Info(">n")
		if err == nil {
			t.Error("ActivationRecord.Info must reject '>'")
		}
		return 0, nil
	})
	if err := l.Call(0, 0, 0); err != nil {
		t.Fatal(err)
	}
}

func TestShortSourceForms(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"=stdin", "stdin"},
		{"@script.lst", "script.lst"},
		{"return 1", `[string "return 1"]`},
	}
	for _, tt := range tests {
		if got := shortSource(tt.source); got != tt.want {
			t.Errorf("shortSource(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}

	long := "@" + strings.Repeat("d/", 40) + "file.lst"
	got := shortSource(long)
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "file.lst") {
		t.Errorf("long path = %q", got)
	}
	if len(got) > 60 {
		t.Errorf("len = %d", len(got))
	}
}
