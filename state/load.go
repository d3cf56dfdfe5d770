package state

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/moonstack/luastack/errors"
)

// Signature is the prefix marking a precompiled binary chunk.
const Signature = "\x1bLST"

// LoadMode restricts what forms of chunk Load accepts.
type LoadMode string

const (
	LoadModeAll    LoadMode = "bt"
	LoadModeBinary LoadMode = "b"
	LoadModeText   LoadMode = "t"
)

func (m LoadMode) valid() bool {
	switch m {
	case LoadModeAll, LoadModeBinary, LoadModeText:
		return true
	}
	return false
}

// CompiledChunk is what a Compiler produces for one chunk: the callable
// entry point plus the metadata the debug and dump surfaces report.
type CompiledChunk struct {
	Entry Function

	// Source overrides the chunk name as the debug source; empty keeps it.
	Source string

	// Binary is the precompiled image Dump writes; nil disables dumping.
	Binary []byte

	LineDefined     int
	LastLineDefined int

	// Lines are the chunk's active lines, reported by the 'L' info field.
	Lines []int
}

// Compiler turns chunk bytes into a callable. mode is the detected form of
// the chunk: LoadModeBinary when data starts with Signature, LoadModeText
// otherwise. Implementations are installed with SetCompiler.
type Compiler interface {
	Compile(chunkName string, data []byte, mode LoadMode) (*CompiledChunk, error)
}

// Load reads a chunk from r and pushes it as a function. chunkName names the
// chunk in messages and debug info ("=name" and "@file" prefixes follow the
// usual conventions); mode restricts the accepted chunk forms, defaulting to
// LoadModeAll. On failure nothing is pushed and the error describes why.
func (l *State) Load(r io.Reader, chunkName string, mode LoadMode) error {
	if mode == "" {
		mode = LoadModeAll
	}
	if !mode.valid() {
		return errors.InvalidMode(string(mode))
	}
	if chunkName == "" {
		chunkName = "=?"
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return errors.ReadFailed(chunkName, err)
	}

	detected := LoadModeText
	if bytes.HasPrefix(data, []byte(Signature)) {
		detected = LoadModeBinary
	}
	if detected == LoadModeBinary && mode == LoadModeText {
		return errors.BadChunk(chunkName, "attempt to load a binary chunk", nil)
	}
	if detected == LoadModeText && mode == LoadModeBinary {
		return errors.BadChunk(chunkName, "attempt to load a text chunk", nil)
	}

	c := l.shared.compiler
	if c == nil {
		return errors.NoCompiler(chunkName)
	}
	cc, err := c.Compile(chunkName, data, detected)
	if err != nil {
		return errors.BadChunk(chunkName, "compile failed", err)
	}
	if cc == nil || cc.Entry == nil {
		return errors.BadChunk(chunkName, "compiler produced no entry point", nil)
	}

	source := cc.Source
	if source == "" {
		source = chunkName
	}
	l.push(&function{
		id: l.nextID(),
		fn: cc.Entry,
		info: funcInfo{
			what:            "main",
			source:          source,
			lineDefined:     cc.LineDefined,
			lastLineDefined: cc.LastLineDefined,
			lines:           cc.Lines,
		},
		binary: cc.Binary,
	})
	debugf("load: %s mode=%s bytes=%d", chunkName, detected, len(data))
	return nil
}

// LoadString loads s as a text-or-binary chunk named by its own contents.
func (l *State) LoadString(s string) error {
	return l.Load(strings.NewReader(s), s, LoadModeAll)
}

// LoadFile reads the chunk at path through a buffered reader and pushes it
// as a function. The chunk is named "@path".
func (l *State) LoadFile(path string, mode LoadMode) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.ReadFailed(path, err)
	}
	defer f.Close()
	return l.Load(bufio.NewReader(f), "@"+path, mode)
}

// Dump writes the binary image of the function at the top of the stack,
// returning how many bytes were written. Only chunks whose compiler provided
// a binary image can be dumped; the image is written as provided (strip is a
// request to the compiler that built it, not re-applied here). The function
// is left on the stack.
func (l *State) Dump(w io.Writer, strip bool) (int64, error) {
	v, ok := l.valueAt(-1)
	if !ok {
		return 0, errors.New(errors.PhaseDump, errors.KindBadIndex).
			Detail("no function on the stack").Build()
	}
	f, ok := v.(*function)
	if !ok {
		return 0, errors.New(errors.PhaseDump, errors.KindNotFunction).
			StackKind(typeOf(v).String()).
			Detail("only functions can be dumped").Build()
	}
	if f.binary == nil {
		return 0, errors.Unsupported(errors.PhaseDump, "function has no binary image")
	}
	n, err := w.Write(f.binary)
	if err != nil {
		return int64(n), errors.Wrap(errors.PhaseDump, errors.KindIO, err, "write chunk")
	}
	return int64(n), nil
}
