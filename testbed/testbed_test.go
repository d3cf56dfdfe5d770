package testbed

import (
	"fmt"
	"sync"
	"testing"

	"github.com/moonstack/luastack/marshal"
	"github.com/moonstack/luastack/state"
	"github.com/moonstack/luastack/transcode"
)

// MathHost implements host functions for the arithmetic workflow tests.
type MathHost struct {
	adds []struct{ a, b, result int64 }
	mu   sync.Mutex
}

func (h *MathHost) Add(l *state.State) (int, error) {
	a, _ := l.ToInteger(1)
	b, _ := l.ToInteger(2)
	result := a + b
	h.mu.Lock()
	h.adds = append(h.adds, struct{ a, b, result int64 }{a, b, result})
	h.mu.Unlock()
	marshal.Push(l, result)
	return 1, nil
}

func (h *MathHost) register(l *state.State) error {
	return marshal.SetGlobalFunc(l, "add", h.Add)
}

func TestHostFunction_Call(t *testing.T) {
	l := state.New()
	defer l.Close()

	host := &MathHost{}
	if err := host.register(l); err != nil {
		t.Fatalf("register host: %v", err)
	}

	if _, err := l.Global("add"); err != nil {
		t.Fatalf("fetch add: %v", err)
	}
	marshal.Push(l, int64(5))
	marshal.Push(l, int64(3))
	if err := l.Call(2, 1, 0); err != nil {
		t.Fatalf("call add: %v", err)
	}

	var got int64
	if !marshal.To(l, -1, &got) || got != 8 {
		t.Errorf("add(5, 3) = %d, want 8", got)
	}

	host.mu.Lock()
	defer host.mu.Unlock()
	if len(host.adds) == 0 {
		t.Error("host.Add was not called")
	} else if host.adds[0].a != 5 || host.adds[0].b != 3 {
		t.Errorf("host.Add called with (%d, %d), want (5, 3)", host.adds[0].a, host.adds[0].b)
	}
}

func TestHostFunction_MultipleValues(t *testing.T) {
	l := state.New()
	defer l.Close()

	host := &MathHost{}
	if err := host.register(l); err != nil {
		t.Fatalf("register host: %v", err)
	}

	tests := []struct {
		a, b     int64
		expected int64
	}{
		{0, 0, 0},
		{1, 1, 2},
		{10, 20, 30},
		{100, -100, 0},
		{1 << 40, 1, 1<<40 + 1},
	}

	for _, tc := range tests {
		if _, err := l.Global("add"); err != nil {
			t.Fatalf("fetch add: %v", err)
		}
		marshal.Push(l, tc.a)
		marshal.Push(l, tc.b)
		if err := l.Call(2, 1, 0); err != nil {
			t.Errorf("add(%d, %d): %v", tc.a, tc.b, err)
			continue
		}
		var got int64
		marshal.To(l, -1, &got)
		l.Pop(1)
		if got != tc.expected {
			t.Errorf("add(%d, %d) = %d, want %d", tc.a, tc.b, got, tc.expected)
		}
	}

	if l.Top() != 0 {
		t.Errorf("stack not clean after calls: Top = %d", l.Top())
	}
}

func TestClosure_CounterKeepsState(t *testing.T) {
	l := state.New()
	defer l.Close()

	marshal.Push(l, int64(0))
	marshal.PushClosure(l, 1, func(l *state.State) (int, error) {
		n, _ := l.ToInteger(state.UpvalueIndex(1))
		n++
		marshal.Push(l, n)
		l.Copy(-1, state.UpvalueIndex(1))
		return 1, nil
	})
	if err := l.SetGlobal("counter"); err != nil {
		t.Fatalf("set counter: %v", err)
	}

	for want := int64(1); want <= 3; want++ {
		if _, err := l.Global("counter"); err != nil {
			t.Fatalf("fetch counter: %v", err)
		}
		if err := l.Call(0, 1, 0); err != nil {
			t.Fatalf("call counter: %v", err)
		}
		var got int64
		if !marshal.To(l, -1, &got) || got != want {
			t.Fatalf("counter call %d = %d", want, got)
		}
		l.Pop(1)
	}
}

func TestHostError_SurfacesToCaller(t *testing.T) {
	l := state.New()
	defer l.Close()

	err := marshal.SetGlobalFunc(l, "fail", func(l *state.State) (int, error) {
		l.PushString("deliberate failure")
		return 0, l.ErrorValue(-1)
	})
	if err != nil {
		t.Fatalf("register fail: %v", err)
	}

	if _, err := l.Global("fail"); err != nil {
		t.Fatalf("fetch fail: %v", err)
	}
	err = l.Call(0, 0, 0)
	if err == nil {
		t.Fatal("expected error from fail()")
	}
	if s, _ := l.ToString(-1); s != "deliberate failure" {
		t.Errorf("raised value = %q", s)
	}
}

func TestConcurrent_StatesShareOneHost(t *testing.T) {
	host := &MathHost{}

	const numGoroutines = 5
	const callsPerGoroutine = 20

	var wg sync.WaitGroup
	errs := make(chan error, numGoroutines)

	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			l := state.New()
			defer l.Close()

			if err := host.register(l); err != nil {
				errs <- err
				return
			}

			for i := 0; i < callsPerGoroutine; i++ {
				if _, err := l.Global("add"); err != nil {
					errs <- err
					return
				}
				marshal.Push(l, int64(id))
				marshal.Push(l, int64(i))
				if err := l.Call(2, 1, 0); err != nil {
					errs <- err
					return
				}
				var got int64
				marshal.To(l, -1, &got)
				l.Pop(1)
				if got != int64(id)+int64(i) {
					errs <- fmt.Errorf("add(%d, %d) = %d", id, i, got)
					return
				}
			}
		}(g)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent error: %v", err)
		}
	}

	host.mu.Lock()
	defer host.mu.Unlock()
	if len(host.adds) != numGoroutines*callsPerGoroutine {
		t.Errorf("host saw %d calls, want %d", len(host.adds), numGoroutines*callsPerGoroutine)
	}
}

// Benchmarks

func BenchmarkPushPop(b *testing.B) {
	l := state.New()
	defer l.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		marshal.Push(l, int64(i))
		l.Pop(1)
	}
}

func BenchmarkHostCall(b *testing.B) {
	l := state.New()
	defer l.Close()

	host := &MathHost{}
	if err := host.register(l); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Global("add")
		marshal.Push(l, int64(5))
		marshal.Push(l, int64(3))
		if err := l.Call(2, 1, 0); err != nil {
			b.Fatal(err)
		}
		l.Pop(1)
	}
}

func BenchmarkTableTranscode(b *testing.B) {
	l := state.New()
	defer l.Close()

	l.CreateTable(0, 3)
	marshal.Push(l, "benchmark")
	l.SetField(-2, "name")
	marshal.Push(l, int64(42))
	l.SetField(-2, "count")
	marshal.Push(l, true)
	l.SetField(-2, "enabled")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := transcode.Encode(l, -1); err != nil {
			b.Fatal(err)
		}
	}
}
