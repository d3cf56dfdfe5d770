package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:     PhasePull,
				Kind:      KindTypeMismatch,
				Path:      []string{"rows", "0", "id"},
				GoType:    "int16",
				StackKind: "table",
				Detail:    "cannot convert",
			},
			contains: []string{"[pull]", "type_mismatch", "rows.0.id", "int16", "table", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhasePush,
				Kind:  KindStackOverflow,
			},
			contains: []string{"[push]", "stack_overflow"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindIO,
				Detail: "read chunk",
				Cause:  errors.New("file vanished"),
			},
			contains: []string{"[load]", "io", "read chunk", "caused by", "file vanished"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindBadChunk,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhasePull,
		Kind:  KindTypeMismatch,
		Path:  []string{"foo"},
	}

	// Same phase and kind
	if !err.Is(&Error{Phase: PhasePull, Kind: KindTypeMismatch}) {
		t.Error("Is should match same phase and kind")
	}

	// Different phase
	if err.Is(&Error{Phase: PhasePush, Kind: KindTypeMismatch}) {
		t.Error("Is should not match different phase")
	}

	// Different kind
	if err.Is(&Error{Phase: PhasePull, Kind: KindBadIndex}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhasePull, Kind: KindTypeMismatch}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhasePull, KindTypeMismatch).
		Path("row", "name").
		GoType("string").
		StackKind("function").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "string", "function").
		Build()

	if err.Phase != PhasePull {
		t.Errorf("Phase = %v, want %v", err.Phase, PhasePull)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "row" || err.Path[1] != "name" {
		t.Errorf("Path = %v, want [row name]", err.Path)
	}
	if err.GoType != "string" {
		t.Errorf("GoType = %v, want 'string'", err.GoType)
	}
	if err.StackKind != "function" {
		t.Errorf("StackKind = %v, want 'function'", err.StackKind)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected string, got function" {
		t.Errorf("Detail = %v, want 'expected string, got function'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhasePull, []string{"field"}, "int", "string")
		if err.Kind != KindTypeMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
		}
		if err.GoType != "int" || err.StackKind != "string" {
			t.Errorf("GoType=%v StackKind=%v", err.GoType, err.StackKind)
		}
	})

	t.Run("BadIndex", func(t *testing.T) {
		err := BadIndex(PhasePush, 12, 3)
		if err.Kind != KindBadIndex {
			t.Errorf("Kind = %v, want %v", err.Kind, KindBadIndex)
		}
		if !strings.Contains(err.Detail, "12") || !strings.Contains(err.Detail, "3") {
			t.Errorf("Detail = %v, should contain index and top", err.Detail)
		}
	})

	t.Run("StackOverflow", func(t *testing.T) {
		err := StackOverflow(PhasePush, 50, 1000000)
		if err.Kind != KindStackOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindStackOverflow)
		}
		if !strings.Contains(err.Detail, "50") {
			t.Errorf("Detail = %v, should contain slot count", err.Detail)
		}
	})

	t.Run("StackUnderflow", func(t *testing.T) {
		err := StackUnderflow(PhasePush, 3, 1)
		if err.Kind != KindStackUnderflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindStackUnderflow)
		}
	})

	t.Run("NotFunction", func(t *testing.T) {
		err := NotFunction(PhaseCall, -1, "table")
		if err.Kind != KindNotFunction {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotFunction)
		}
		if err.StackKind != "table" {
			t.Errorf("StackKind = %v, want 'table'", err.StackKind)
		}
	})

	t.Run("BadArgument", func(t *testing.T) {
		err := BadArgument("tostring", 1, "value expected")
		if err.Kind != KindBadArgument {
			t.Errorf("Kind = %v, want %v", err.Kind, KindBadArgument)
		}
		if !strings.Contains(err.Detail, "#1") {
			t.Errorf("Detail = %v, should contain argument number", err.Detail)
		}
	})

	t.Run("InvalidMode", func(t *testing.T) {
		err := InvalidMode("x")
		if err.Kind != KindInvalidMode {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidMode)
		}
		if err.Value != "x" {
			t.Errorf("Value = %v, want 'x'", err.Value)
		}
	})

	t.Run("NoCompiler", func(t *testing.T) {
		err := NoCompiler("chunk")
		if err.Kind != KindNoCompiler {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNoCompiler)
		}
	})

	t.Run("DeadThread", func(t *testing.T) {
		err := DeadThread("dead")
		if err.Kind != KindDeadThread {
			t.Errorf("Kind = %v, want %v", err.Kind, KindDeadThread)
		}
	})

	t.Run("DepthExceeded", func(t *testing.T) {
		err := DepthExceeded(PhaseTranscode, 128)
		if err.Kind != KindDepthExceeded {
			t.Errorf("Kind = %v, want %v", err.Kind, KindDepthExceeded)
		}
		if err.Value != 128 {
			t.Errorf("Value = %v, want 128", err.Value)
		}
	})

	t.Run("QueryFailed", func(t *testing.T) {
		err := QueryFailed("SELECT * FROM t", errors.New("no such table"))
		if err.Kind != KindQueryFailed {
			t.Errorf("Kind = %v, want %v", err.Kind, KindQueryFailed)
		}
		if err.Cause == nil {
			t.Error("Cause should be set")
		}
	})

	t.Run("QueryFailed truncates long statements", func(t *testing.T) {
		long := strings.Repeat("SELECT ", 20)
		err := QueryFailed(long, nil)
		if len(err.Detail) > 70 {
			t.Errorf("Detail length = %d, want truncated preview", len(err.Detail))
		}
	})
}

func TestRuntimeError(t *testing.T) {
	t.Run("value only", func(t *testing.T) {
		err := NewRuntimeError("attempt to divide by zero")
		msg := err.Error()
		if !strings.Contains(msg, "runtime_fault") {
			t.Errorf("message %q should contain kind", msg)
		}
		if !strings.Contains(msg, "divide by zero") {
			t.Errorf("message %q should contain raised value", msg)
		}
	})

	t.Run("with traceback", func(t *testing.T) {
		err := &RuntimeError{
			Value: "boom",
			Frames: []Frame{
				{Name: "inner", Source: "=[Go]", Line: -1},
				{Name: "outer", Source: "@main.lua", Line: 12},
			},
		}
		msg := err.Error()
		if !strings.Contains(msg, "traceback") {
			t.Errorf("message %q should contain traceback header", msg)
		}
		if !strings.Contains(msg, "inner (=[Go])") {
			t.Errorf("message %q should render Go frame without line", msg)
		}
		if !strings.Contains(msg, "outer (@main.lua:12)") {
			t.Errorf("message %q should render chunk frame with line", msg)
		}
	})

	t.Run("unnamed frame", func(t *testing.T) {
		err := &RuntimeError{
			Value:  1,
			Frames: []Frame{{Source: "=[Go]", Line: -1}},
		}
		if !strings.Contains(err.Error(), "? (=[Go])") {
			t.Errorf("message %q should render ? for unnamed frame", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewRuntimeError("x")
		if !errors.Is(err, &RuntimeError{}) {
			t.Error("errors.Is should match RuntimeError")
		}
	})
}
