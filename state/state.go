package state

import (
	"slices"

	"github.com/moonstack/luastack/errors"
)

const (
	// MinStack is the number of free slots guaranteed to a function when it
	// is called.
	MinStack = 20

	// maxStack bounds the total number of slots one thread may hold.
	maxStack = 1_000_000

	// maxUpvalues bounds the upvalue count of a single closure.
	maxUpvalues = 255

	// maxIndexChain bounds __index/__newindex chains so that cyclic
	// metatables terminate.
	maxIndexChain = 100
)

const (
	// RegistryIndex is the pseudo-index of the registry table shared by all
	// threads of a universe.
	RegistryIndex = -maxStack - 1000

	// MultipleReturns requests that a call keep every result.
	MultipleReturns = -1
)

// Registry slots predefined by New.
const (
	RegistryIndexMainThread int64 = 1
	RegistryIndexGlobals    int64 = 2
)

// UpvalueIndex returns the pseudo-index of the running closure's i-th
// upvalue. i is 1-based.
func UpvalueIndex(i int) int {
	if i < 1 || i > maxUpvalues {
		panic(errors.New(errors.PhasePush, errors.KindBadIndex).
			Detail("upvalue index %d out of range", i).Build())
	}
	return RegistryIndex - i
}

func isPseudo(idx int) bool { return idx <= RegistryIndex }

// Type is the dynamic kind of a stack slot.
type Type int

const (
	TypeNone Type = iota - 1
	TypeNil
	TypeBoolean
	TypeNumber
	TypeString
	TypeTable
	TypeFunction
	TypeUserdata
	TypeThread
)

var typeNames = map[Type]string{
	TypeNone:     "no value",
	TypeNil:      "nil",
	TypeBoolean:  "boolean",
	TypeNumber:   "number",
	TypeString:   "string",
	TypeTable:    "table",
	TypeFunction: "function",
	TypeUserdata: "userdata",
	TypeThread:   "thread",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// Status reports how a thread last stopped.
type Status int

const (
	StatusOK Status = iota
	StatusYield
	StatusErrRun
	StatusErrSyntax
	StatusErrMem
	StatusErrErr
	StatusErrFile
)

var statusNames = map[Status]string{
	StatusOK:        "ok",
	StatusYield:     "yield",
	StatusErrRun:    "runtime error",
	StatusErrSyntax: "syntax error",
	StatusErrMem:    "memory error",
	StatusErrErr:    "error in error handling",
	StatusErrFile:   "file error",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// Function is a native function callable on a state. It receives its
// arguments as the current stack frame (argument 1 at index 1), pushes its
// results, and returns how many of the topmost slots are results. A non-nil
// error raises a runtime error in the caller.
type Function func(l *State) (int, error)

// shared holds what every thread of one universe sees: the registry (and
// through it the globals), the configured compiler, the live coroutine set,
// and the identity counter for function values.
type shared struct {
	registry *table
	compiler Compiler
	threads  map[*State]struct{}
	nextID   uint64
}

func (s *shared) globals() *table {
	g, _ := s.registry.get(RegistryIndexGlobals).(*table)
	return g
}

// State is one thread of execution: a value stack plus its call frames.
// The main state owns the universe; coroutine threads created with NewThread
// share its registry and globals. A State must be driven by at most one
// goroutine at a time; that is a caller contract, not checked here.
type State struct {
	shared *shared
	stack  []any // absolute; frame windows index into it
	frames []frame
	status Status
	co     *coroutine // nil for the main thread
}

// frame is one activation: fn == nil only for the bottom pseudo-frame.
type frame struct {
	fn         *function
	fnIndex    int // absolute slot of the function value, 0-based
	base       int // absolute slot of argument 1, 0-based
	numResults int
	tailCall   bool
}

// New creates a fresh main state with an empty stack, an empty globals
// table, and a registry populated with the main thread and globals slots.
func New() *State {
	l := &State{
		shared: &shared{
			registry: newTable(0),
			threads:  make(map[*State]struct{}),
		},
		stack:  make([]any, 0, MinStack*2),
		frames: make([]frame, 1, 8),
	}
	l.shared.registry.set(RegistryIndexMainThread, l)
	l.shared.registry.set(RegistryIndexGlobals, newTable(0))
	debugf("new state")
	return l
}

// Close releases the state. Closing the main state unwinds every live
// coroutine thread of its universe first.
func (l *State) Close() {
	if l.co != nil {
		l.closeCoroutine()
		return
	}
	for t := range l.shared.threads {
		t.closeCoroutine()
	}
	l.stack = nil
	l.frames = nil
	debugf("state closed")
}

// SetCompiler installs the chunk compiler used by Load and its variants.
// It applies to every thread of the universe.
func (l *State) SetCompiler(c Compiler) {
	l.shared.compiler = c
}

// Status reports how the thread last stopped. StatusOK means it is runnable.
func (l *State) Status() Status {
	return l.status
}

// currentFrame returns the innermost activation.
func (l *State) currentFrame() *frame {
	return &l.frames[len(l.frames)-1]
}

// base returns the absolute slot (0-based) below index 1 of the current frame.
func (l *State) base() int {
	return l.currentFrame().base
}

// Top returns the index of the topmost slot of the current frame; 0 means
// the frame is empty.
func (l *State) Top() int {
	return len(l.stack) - l.base()
}

// AbsIndex converts idx into an equivalent absolute index (one that does not
// depend on the stack top). Pseudo-indices pass through unchanged.
func (l *State) AbsIndex(idx int) int {
	if idx > 0 || isPseudo(idx) {
		return idx
	}
	return l.Top() + idx + 1
}

// absSlot resolves a real (non-pseudo) index to an absolute 0-based slot.
// ok is false when the index is outside the current frame.
func (l *State) absSlot(idx int) (int, bool) {
	base := l.base()
	switch {
	case idx > 0:
		s := base + idx - 1
		return s, s < len(l.stack)
	case idx < 0 && !isPseudo(idx):
		s := len(l.stack) + idx
		return s, s >= base
	default:
		return 0, false
	}
}

// valueAt reads the value at idx. Invalid indices read as absent (nil, false).
func (l *State) valueAt(idx int) (any, bool) {
	if isPseudo(idx) {
		if idx == RegistryIndex {
			return l.shared.registry, true
		}
		i := RegistryIndex - idx // upvalue ordinal
		fn := l.currentFrame().fn
		if fn == nil || i > len(fn.upvalues) {
			return nil, false
		}
		return fn.upvalues[i-1], true
	}
	s, ok := l.absSlot(idx)
	if !ok {
		return nil, false
	}
	return l.stack[s], true
}

// setValueAt overwrites the slot at idx. Panics on an invalid index; writes
// through upvalue pseudo-indices update the running closure.
func (l *State) setValueAt(idx int, v any) {
	if isPseudo(idx) {
		if idx == RegistryIndex {
			panic(errors.New(errors.PhasePush, errors.KindBadIndex).
				Detail("cannot replace the registry").Build())
		}
		i := RegistryIndex - idx
		fn := l.currentFrame().fn
		if fn == nil || i > len(fn.upvalues) {
			panic(errors.BadIndex(errors.PhasePush, idx, l.Top()))
		}
		fn.upvalues[i-1] = v
		return
	}
	s, ok := l.absSlot(idx)
	if !ok {
		panic(errors.BadIndex(errors.PhasePush, idx, l.Top()))
	}
	l.stack[s] = v
}

// push appends one slot, growing within the stack limit.
func (l *State) push(v any) {
	if len(l.stack) >= maxStack {
		panic(errors.StackOverflow(errors.PhasePush, 1, maxStack))
	}
	l.stack = append(l.stack, v)
}

// CheckStack ensures space for at least n more slots, reserving capacity up
// front. It reports false if growing would exceed the stack limit.
func (l *State) CheckStack(n int) bool {
	if n < 0 {
		return false
	}
	if len(l.stack)+n > maxStack {
		return false
	}
	l.stack = slices.Grow(l.stack, n)
	return true
}

func (l *State) nextID() uint64 {
	l.shared.nextID++
	return l.shared.nextID
}
