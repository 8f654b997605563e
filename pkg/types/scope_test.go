package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func declareAll(s *Scope, kind SymbolKind, ts ...*Type) []int {
	var offsets []int
	for i, t := range ts {
		sym := &Symbol{Kind: kind, Identifier: string(rune('a' + i)), Type: t}
		s.Declare(sym)
		offsets = append(offsets, sym.Offset)
	}
	return offsets
}

func TestLocalOffsets(t *testing.T) {
	tests := []struct {
		name  string
		types []*Type
		want  []int
	}{
		{"ints", []*Type{Integer, Integer, Integer}, []int{8, 12, 16}},
		{"bools", []*Type{Boolean, Boolean, Boolean}, []int{8, 9, 10}},
		{"narrowing", []*Type{NewArray(Integer), Integer, Boolean}, []int{8, 16, 20}},
		// the int would reach into the bool at 16, so it moves down
		{"widening", []*Type{Integer, Integer, Boolean, Integer}, []int{8, 12, 16, 20}},
		{"array after int", []*Type{Integer, NewArray(Integer)}, []int{8, 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			global := NewScope("global", nil)
			fn := NewScope("f", global)
			got := declareAll(fn, Variable, tt.types...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("offsets mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSlotsNeverOverlap(t *testing.T) {
	global := NewScope("global", nil)
	fn := NewScope("f", global)
	seq := []*Type{Boolean, Integer, Boolean, NewArray(Integer), Boolean, Boolean, Integer}
	declareAll(fn, Variable, seq...)

	// a slot at offset o spans [rbp-o, rbp-o+size)
	used := make(map[int]string)
	for _, sym := range fn.Symbols() {
		for b := -sym.Offset; b < -sym.Offset+sym.Type.Size; b++ {
			if other, ok := used[b]; ok {
				t.Fatalf("%s overlaps %s at rbp%d", sym.Identifier, other, b)
			}
			if b >= 0 {
				t.Fatalf("%s reaches the saved rbp", sym.Identifier)
			}
			used[b] = sym.Identifier
		}
		if -sym.Offset < -fn.FrameSize(16) {
			t.Errorf("%s at rbp-%d lies outside the %d byte frame", sym.Identifier, sym.Offset, fn.FrameSize(16))
		}
	}
}

func TestParameterOffsets(t *testing.T) {
	global := NewScope("global", nil)

	f := NewScope("f", global)
	if diff := cmp.Diff([]int{16, 24, 32}, declareAll(f, Parameter, Integer, Boolean, Integer)); diff != "" {
		t.Errorf("parameters (-want +got):\n%s", diff)
	}

	entry := NewScope("main", global)
	if diff := cmp.Diff([]int{8, 16}, declareAll(entry, Parameter, Integer, NewArray(Integer))); diff != "" {
		t.Errorf("main parameters (-want +got):\n%s", diff)
	}

	// parameters do not consume local slots
	if got := declareAll(entry, Variable, Integer); got[0] != 8 {
		t.Errorf("first local after parameters at %d, want 8", got[0])
	}
}

func TestBlockScopeSharesFrame(t *testing.T) {
	global := NewScope("global", nil)
	fn := NewScope("f", global)
	declareAll(fn, Variable, Integer)

	block := NewBlockScope("block", fn)
	x := &Symbol{Kind: Variable, Identifier: "x", Type: Integer}
	block.Declare(x)
	if x.Offset != 12 {
		t.Errorf("block local offset = %d, want 12", x.Offset)
	}
	if block.Frame() != fn {
		t.Error("block scope must allocate from the function frame")
	}
	if fn.Get("x") != nil {
		t.Error("block symbol leaked into the function scope")
	}
	if block.Lookup("a") == nil {
		t.Error("lookup does not reach the enclosing scope")
	}
	if block.Get("a") != nil {
		t.Error("get must only search its own scope")
	}
	if block.Lookup("nope") != nil {
		t.Error("lookup found an undeclared name")
	}
}

func TestFrameSize(t *testing.T) {
	global := NewScope("global", nil)
	tests := []struct {
		locals []*Type
		want   int
	}{
		{nil, 0},
		{[]*Type{Integer}, 16},
		{[]*Type{Integer, Integer}, 16},
		{[]*Type{Integer, Integer, Integer}, 32},
		{[]*Type{NewArray(Integer), NewArray(Integer)}, 32},
	}
	for _, tt := range tests {
		fn := NewScope("f", global)
		declareAll(fn, Variable, tt.locals...)
		if got := fn.FrameSize(16); got != tt.want {
			t.Errorf("FrameSize(%v) = %d, want %d", tt.locals, got, tt.want)
		}
	}
}

func TestTypeEquality(t *testing.T) {
	if !Equal(NewArray(Integer), NewArray(Integer)) {
		t.Error("arrays of int should be equal")
	}
	if Equal(NewArray(Integer), NewArray(Boolean)) {
		t.Error("arrays of different element types compare equal")
	}
	if Equal(Integer, Boolean) {
		t.Error("int == bool")
	}
	if got := NewArray(Integer).String(); got != "[int]" {
		t.Errorf("array type renders as %q", got)
	}
	if got := IntegerValue(-3).String(); got != "-3" {
		t.Errorf("IntegerValue(-3) renders as %q", got)
	}
}
