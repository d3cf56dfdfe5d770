package state

import (
	"strings"
	"testing"

	"github.com/moonstack/luastack/errors"
)

func TestResumeYieldRoundTrip(t *testing.T) {
	l := New()
	defer l.Close()

	co := l.NewThread()
	if !l.IsThread(-1) {
		t.Fatal("NewThread did not push a thread slot")
	}

	co.PushClosure(0, func(l *State) (int, error) {
		l.PushInteger(1)
		n := l.Yield(1)
		arg, _ := l.ToInteger(-1)
		l.Pop(n)
		l.PushInteger(arg * 2)
		return 1, nil
	})

	r, err := co.Resume(l, 0)
	if err != nil {
		t.Fatalf("first resume: %v", err)
	}
	if !r.Yielded() || r.NumResults != 1 {
		t.Fatalf("first resume = %+v", r)
	}
	if v, _ := co.ToInteger(-1); v != 1 {
		t.Fatalf("yielded value = %d", v)
	}
	co.Pop(1)

	co.PushInteger(21)
	r, err = co.Resume(l, 1)
	if err != nil {
		t.Fatalf("second resume: %v", err)
	}
	if !r.Done() || r.NumResults != 1 {
		t.Fatalf("second resume = %+v", r)
	}
	if v, _ := co.ToInteger(-1); v != 42 {
		t.Fatalf("final result = %d", v)
	}
}

func TestGeneratorPattern(t *testing.T) {
	l := New()
	defer l.Close()

	co := l.NewThread()
	co.PushClosure(0, func(l *State) (int, error) {
		for i := int64(1); i <= 3; i++ {
			l.PushInteger(i)
			n := l.Yield(1)
			l.Pop(n)
		}
		l.PushString("done")
		return 1, nil
	})

	var seen []int64
	for {
		r, err := co.Resume(l, 0)
		if err != nil {
			t.Fatalf("resume: %v", err)
		}
		if r.Done() {
			if s, _ := co.ToString(-1); s != "done" {
				t.Fatalf("final value = %q", s)
			}
			break
		}
		v, _ := co.ToInteger(-1)
		seen = append(seen, v)
		co.Pop(1)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Fatalf("yields = %v", seen)
	}
}

func TestResumeArguments(t *testing.T) {
	l := New()
	defer l.Close()

	co := l.NewThread()
	co.PushClosure(0, func(l *State) (int, error) {
		a, _ := l.ToInteger(1)
		b, _ := l.ToInteger(2)
		l.PushInteger(a + b)
		return 1, nil
	})
	co.PushInteger(30)
	co.PushInteger(12)

	r, err := co.Resume(l, 2)
	if err != nil || !r.Done() {
		t.Fatalf("resume = %+v, %v", r, err)
	}
	if v, _ := co.ToInteger(-1); v != 42 {
		t.Fatalf("result = %d", v)
	}
}

func TestCoroutineError(t *testing.T) {
	l := New()
	defer l.Close()

	co := l.NewThread()
	co.PushClosure(0, func(l *State) (int, error) {
		return 0, errors.NewRuntimeError("co failed")
	})

	r, err := co.Resume(l, 0)
	if err == nil || !r.Failed() {
		t.Fatalf("resume = %+v, %v", r, err)
	}
	re, ok := err.(*errors.RuntimeError)
	if !ok || re.Value != "co failed" {
		t.Fatalf("error = %T %v", err, err)
	}
	if s, _ := co.ToString(-1); s != "co failed" {
		t.Fatalf("error value on thread stack = %q", s)
	}

	// A failed thread is dead.
	_, err = co.Resume(l, 0)
	if err == nil || !strings.Contains(err.Error(), "dead_thread") {
		t.Fatalf("dead resume: %v", err)
	}
}

func TestResumeMainThread(t *testing.T) {
	l := New()
	defer l.Close()

	if _, err := l.Resume(nil, 0); err == nil {
		t.Fatal("resuming the main thread should fail")
	}
}

func TestResumeWithoutBody(t *testing.T) {
	l := New()
	defer l.Close()

	co := l.NewThread()
	if _, err := co.Resume(l, 0); err == nil {
		t.Fatal("resume with an empty thread stack should fail")
	}
}

func TestIsYieldable(t *testing.T) {
	l := New()
	defer l.Close()

	if l.IsYieldable() {
		t.Error("main thread must not be yieldable")
	}

	co := l.NewThread()
	var inside bool
	co.PushClosure(0, func(l *State) (int, error) {
		inside = l.IsYieldable()
		return 0, nil
	})
	if _, err := co.Resume(l, 0); err != nil {
		t.Fatal(err)
	}
	if !inside {
		t.Error("body must be yieldable while running")
	}
}

func TestYieldOutsideCoroutinePanics(t *testing.T) {
	l := New()
	defer l.Close()

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	l.Yield(0)
}

func TestCloseThreadAndReuse(t *testing.T) {
	l := New()
	defer l.Close()

	co := l.NewThread()
	co.PushClosure(0, func(l *State) (int, error) {
		l.PushString("never consumed")
		l.Yield(1)
		return 0, nil
	})
	if _, err := co.Resume(l, 0); err != nil {
		t.Fatal(err)
	}

	if err := co.CloseThread(); err != nil {
		t.Fatalf("CloseThread: %v", err)
	}
	if co.Top() != 0 {
		t.Fatalf("Top = %d after close", co.Top())
	}

	// The thread is back in its created phase and accepts a fresh body.
	co.PushClosure(0, func(l *State) (int, error) {
		l.PushInteger(7)
		return 1, nil
	})
	r, err := co.Resume(l, 0)
	if err != nil || !r.Done() {
		t.Fatalf("reuse resume = %+v, %v", r, err)
	}
	if v, _ := co.ToInteger(-1); v != 7 {
		t.Fatalf("reuse result = %d", v)
	}
}

func TestCloseUnwindsSuspendedThreads(t *testing.T) {
	l := New()

	co := l.NewThread()
	co.PushClosure(0, func(l *State) (int, error) {
		l.Yield(0)
		return 0, nil
	})
	if _, err := co.Resume(l, 0); err != nil {
		t.Fatal(err)
	}

	// Must not deadlock on the suspended body goroutine.
	l.Close()
}

func TestXMoveBetweenThreads(t *testing.T) {
	l := New()
	defer l.Close()

	co := l.NewThread()
	l.PushString("payload")
	l.PushInteger(7)
	topBefore := l.Top()

	l.XMove(co, 2)

	if l.Top() != topBefore-2 {
		t.Errorf("source Top = %d", l.Top())
	}
	if co.Top() != 2 {
		t.Fatalf("target Top = %d", co.Top())
	}
	if s, _ := co.ToString(1); s != "payload" {
		t.Errorf("moved slot 1 = %q", s)
	}
	if n, _ := co.ToInteger(2); n != 7 {
		t.Errorf("moved slot 2 = %d", n)
	}
}

func TestXMoveForeignUniverse(t *testing.T) {
	l1 := New()
	defer l1.Close()
	l2 := New()
	defer l2.Close()

	l1.PushInteger(1)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	l1.XMove(l2, 1)
}
