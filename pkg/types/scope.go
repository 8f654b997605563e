package types

import "github.com/xplshn/tacc/pkg/util"

type SymbolKind int

const (
	Variable SymbolKind = iota
	Parameter
	Function
	Temp
)

var symbolKindNames = [...]string{"variable", "parameter", "function", "temp"}

func (k SymbolKind) String() string { return symbolKindNames[k] }

// Symbol is identified by (Scope, Identifier). Offset is written once by
// Scope.Declare and never recomputed.
type Symbol struct {
	Kind       SymbolKind
	Identifier string
	Type       *Type
	Value      Value
	Scope      *Scope
	Offset     int
}

// IsGlobal reports whether the symbol lives in the outermost scope
func (s *Symbol) IsGlobal() bool { return s.Scope != nil && s.Scope.Enclosing == nil }

func (s *Symbol) String() string { return s.Identifier }

const (
	// first local sits at rbp-8
	localBase = 8
	// return address and saved rbp sit between rbp and the first argument
	parameterBase = 16
	// main's argc/argv are pushed by its own prologue, below the saved rbp
	entryParameterBase = parameterBase - 8
	// every argument occupies one pushed word
	parameterSlot = 8
)

// Scope is a lexical region. Function and global scopes own a frame; block
// scopes allocate their slots from the frame of their enclosing function.
type Scope struct {
	Name            string
	Enclosing       *Scope
	Offset          int
	OffsetParameter int
	symbols         map[string]*Symbol
	order           []*Symbol
	frame           *Scope
	// offset of the most recent local; its slot spans [rbp-last, rbp-last+size)
	last int
}

// NewScope creates a scope owning its own stack frame
func NewScope(name string, enclosing *Scope) *Scope {
	s := &Scope{Name: name, Enclosing: enclosing, symbols: make(map[string]*Symbol)}
	s.frame = s
	s.OffsetParameter = parameterBase
	if name == "main" && enclosing != nil && enclosing.Enclosing == nil {
		s.OffsetParameter = entryParameterBase
	}
	return s
}

// NewBlockScope creates a nested scope sharing the frame of enclosing
func NewBlockScope(name string, enclosing *Scope) *Scope {
	s := &Scope{Name: name, Enclosing: enclosing, symbols: make(map[string]*Symbol)}
	s.frame = enclosing.frame
	return s
}

func (s *Scope) IsGlobal() bool { return s.Enclosing == nil }

// Frame returns the scope whose offset counters this scope allocates from
func (s *Scope) Frame() *Scope { return s.frame }

// Declare computes sym.Offset and inserts sym. Callers check for
// redeclaration with Get beforehand.
func (s *Scope) Declare(sym *Symbol) {
	sym.Scope = s
	frame := s.frame
	switch sym.Kind {
	case Parameter:
		sym.Offset = frame.OffsetParameter
		frame.OffsetParameter += parameterSlot
	case Variable, Temp:
		offset := frame.Offset + localBase
		// a wider slot after a narrower one would reach into it
		if frame.last > 0 && offset < frame.last+sym.Type.Size {
			offset = frame.last + sym.Type.Size
		}
		sym.Offset, frame.last = offset, offset
		frame.Offset = offset - localBase + sym.Type.Size
		frame.Offset = int(util.AlignUp(int64(frame.Offset), int64(sym.Type.Alignment)))
	}
	s.symbols[sym.Identifier] = sym
	s.order = append(s.order, sym)
}

// Get returns the symbol declared in exactly this scope
func (s *Scope) Get(id string) *Symbol { return s.symbols[id] }

// Lookup walks enclosing scopes outwards
func (s *Scope) Lookup(id string) *Symbol {
	for sc := s; sc != nil; sc = sc.Enclosing {
		if sym, ok := sc.symbols[id]; ok {
			return sym
		}
	}
	return nil
}

// Symbols returns the scope's symbols in declaration order
func (s *Scope) Symbols() []*Symbol { return s.order }

// FrameSize is the number of bytes a function prologue reserves for this
// frame, rounded to the given stack alignment.
func (s *Scope) FrameSize(stackAlign int) int {
	used := s.frame.Offset
	if used == 0 {
		return 0
	}
	return int(util.AlignUp(int64(used+localBase), int64(stackAlign)))
}
