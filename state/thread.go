package state

import (
	"github.com/moonstack/luastack/errors"
)

// coPhase tracks a coroutine through its life.
type coPhase int

const (
	coCreated coPhase = iota
	coSuspended
	coRunning
	coDead
)

func (p coPhase) String() string {
	switch p {
	case coCreated:
		return "created"
	case coSuspended:
		return "suspended"
	case coRunning:
		return "running"
	default:
		return "dead"
	}
}

// coroutine is the handoff machinery behind a thread. The body runs on its
// own goroutine; resumeCh and yieldCh enforce that exactly one side is
// active at a time, so no two goroutines ever mutate one stack concurrently.
type coroutine struct {
	resumeCh chan coResume
	yieldCh  chan coYield
	phase    coPhase
}

type coResume struct {
	nargs int
	kill  bool
}

type coYield struct {
	status Status
	n      int // results on the thread stack
	err    *errors.RuntimeError
}

// threadKilled unwinds a coroutine body when its thread is closed.
type threadKilled struct{}

// NewThread creates a coroutine thread sharing this universe's registry and
// globals, pushes it, and returns it. Push the body function and its
// arguments onto the new thread's stack, then call Resume on it.
func (l *State) NewThread() *State {
	t := &State{
		shared: l.shared,
		stack:  make([]any, 0, MinStack),
		frames: make([]frame, 1, 4),
		co: &coroutine{
			resumeCh: make(chan coResume),
			yieldCh:  make(chan coYield),
		},
	}
	l.shared.threads[t] = struct{}{}
	l.push(t)
	return t
}

// ResumeResult reports how a resume returned: the thread's stop status and
// how many result values sit on the thread's stack.
type ResumeResult struct {
	Status     Status
	NumResults int
}

// Yielded reports whether the thread stopped at a yield.
func (r ResumeResult) Yielded() bool { return r.Status == StatusYield }

// Done reports whether the thread's body finished normally.
func (r ResumeResult) Done() bool { return r.Status == StatusOK }

// Failed reports whether the thread stopped with an error.
func (r ResumeResult) Failed() bool { return r.Status != StatusOK && r.Status != StatusYield }

// Resume starts or continues the coroutine. On first resume the thread's
// stack must hold the body function with nArgs arguments above it; on later
// resumes the nArgs top slots are handed to the blocked Yield. Resume blocks
// until the body yields, finishes, or fails; results (or yielded values, or
// the error value) are the top NumResults slots of the thread's stack.
// from is the resuming thread; it is only used for diagnostics and may be
// nil.
func (l *State) Resume(from *State, nArgs int) (ResumeResult, error) {
	if l.co == nil {
		err := errors.New(errors.PhaseThread, errors.KindBadArgument).
			Detail("cannot resume the main thread").Build()
		return ResumeResult{Status: StatusErrRun}, err
	}
	if nArgs < 0 || l.Top() < nArgs {
		err := errors.StackUnderflow(errors.PhaseThread, nArgs, l.Top())
		return ResumeResult{Status: StatusErrRun}, err
	}

	switch l.co.phase {
	case coCreated:
		if l.Top() < nArgs+1 {
			err := errors.New(errors.PhaseThread, errors.KindNotFunction).
				Detail("no body function on the thread stack").Build()
			return ResumeResult{Status: StatusErrRun}, err
		}
		l.co.phase = coRunning
		debugf("thread start: nargs=%d", nArgs)
		go l.runBody(nArgs)
	case coSuspended:
		l.co.phase = coRunning
		debugf("thread resume: nargs=%d", nArgs)
		l.co.resumeCh <- coResume{nargs: nArgs}
	default:
		err := errors.DeadThread(l.co.phase.String())
		return ResumeResult{Status: StatusErrRun}, err
	}

	y := <-l.co.yieldCh
	r := ResumeResult{Status: y.status, NumResults: y.n}
	if y.err != nil {
		return r, y.err
	}
	return r, nil
}

// runBody is the coroutine goroutine: it runs the body function to
// completion and reports the final handoff.
func (l *State) runBody(nArgs int) {
	defer func() {
		if p := recover(); p != nil {
			if _, ok := p.(threadKilled); ok {
				l.co.phase = coDead
				l.status = StatusOK
				l.truncateTo(0)
				l.yieldAck(coYield{status: StatusOK})
				return
			}
			panic(p)
		}
	}()

	err := l.Call(nArgs, MultipleReturns, 0)
	if err != nil {
		l.co.phase = coDead
		l.status = StatusErrRun
		re := l.raise(err)
		l.co.yieldCh <- coYield{status: StatusErrRun, n: 1, err: re}
		return
	}
	l.co.phase = coDead
	l.status = StatusOK
	l.co.yieldCh <- coYield{status: StatusOK, n: len(l.stack)}
}

func (l *State) yieldAck(y coYield) {
	l.co.yieldCh <- y
}

// Yield suspends the running coroutine, handing its top nResults slots to
// the resumer. It blocks until the next Resume and returns the number of
// values that resume pushed (they are then the top slots of the stack).
// Calling Yield outside a coroutine panics with a not_yieldable error.
func (l *State) Yield(nResults int) int {
	if l.co == nil || l.co.phase != coRunning {
		panic(errors.NotYieldable())
	}
	if nResults < 0 || l.Top() < nResults {
		panic(errors.StackUnderflow(errors.PhaseThread, nResults, l.Top()))
	}
	l.co.phase = coSuspended
	l.status = StatusYield
	l.co.yieldCh <- coYield{status: StatusYield, n: nResults}

	r := <-l.co.resumeCh
	if r.kill {
		panic(threadKilled{})
	}
	l.co.phase = coRunning
	l.status = StatusOK
	return r.nargs
}

// IsYieldable reports whether Yield may be called right now.
func (l *State) IsYieldable() bool {
	return l.co != nil && l.co.phase == coRunning
}

// CloseThread shuts the coroutine down: a suspended body is unwound, the
// stack is cleared, and the thread returns to its created phase, ready for a
// fresh body function. Closing a running thread is a contract violation.
func (l *State) CloseThread() error {
	if l.co == nil {
		return errors.New(errors.PhaseThread, errors.KindBadArgument).
			Detail("cannot close the main thread").Build()
	}
	switch l.co.phase {
	case coRunning:
		return errors.New(errors.PhaseThread, errors.KindBadArgument).
			Detail("cannot close a running coroutine").Build()
	case coSuspended:
		l.co.resumeCh <- coResume{kill: true}
		<-l.co.yieldCh
	}
	l.truncateTo(0)
	l.frames = l.frames[:1]
	l.co.phase = coCreated
	l.status = StatusOK
	return nil
}

// closeCoroutine is the teardown path used by Close on the main state.
func (l *State) closeCoroutine() {
	if l.co.phase == coSuspended {
		l.co.resumeCh <- coResume{kill: true}
		<-l.co.yieldCh
	}
	l.co.phase = coDead
	l.truncateTo(0)
	l.frames = l.frames[:1]
	delete(l.shared.threads, l)
}
