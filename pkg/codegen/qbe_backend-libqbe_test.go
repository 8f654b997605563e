//go:build !windows

package codegen

import (
	"strings"
	"testing"
)

func TestQBEAssembles(t *testing.T) {
	prog, cfg := lower(t, callProgram)
	b := NewQBEBackend()
	asm, err := b.Generate(prog, cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, want := range []string{"main:", "_t_add:", "atoll", "printf"} {
		if !strings.Contains(asm.String(), want) {
			t.Errorf("assembly lacks %q", want)
		}
	}
}
