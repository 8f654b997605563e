package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/tacc/pkg/diag"
	"github.com/xplshn/tacc/pkg/token"
)

func TestAlignUp(t *testing.T) {
	tests := []struct{ n, align, want int64 }{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{28, 16, 32},
		{13, 4, 16},
		{7, 1, 7},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.n, tt.align); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.want)
		}
	}
}

func TestPrintDiagnostics(t *testing.T) {
	SetColor(true)
	SetSourceFiles([]SourceFileRecord{{Name: "prog.tac", Content: []rune("x : int = 1;\nmain : int = () => { return y; };\n")}})
	defer SetSourceFiles(nil)

	ds := []diag.Diagnostic{
		{Severity: diag.Error, Class: diag.NameError, Stage: diag.StageResolver,
			Pos: token.Token{Line: 2, Column: 29, Len: 1}, Message: "Undeclared identifier 'y'"},
		{Severity: diag.Warning, Class: diag.Notice, Stage: diag.StageResolver,
			Pos: token.Token{Line: 1, Column: 1, Len: 1}, Message: "unused", Warning: "shadow"},
	}
	var buf bytes.Buffer
	if n := PrintDiagnostics(&buf, ds); n != 1 {
		t.Errorf("PrintDiagnostics counted %d errors, want 1", n)
	}
	lines := strings.Split(buf.String(), "\n")
	want := []string{
		"prog.tac:2:29:RESOLVER - NameError: Undeclared identifier 'y'",
		"  main : int = () => { return y; };",
		"  " + strings.Repeat(" ", 28) + "\033[32m^\033[0m",
		"prog.tac:1:1:RESOLVER - Warning: unused \033[33m[-Wshadow]\033[0m",
		"  x : int = 1;",
		"  \033[32m^\033[0m",
		"",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
}

func TestPlainOutput(t *testing.T) {
	SetColor(false)
	defer SetColor(true)
	SetSourceFiles([]SourceFileRecord{{Name: "a.tac", Content: []rune("flag : bool = 12;")}})
	defer SetSourceFiles(nil)

	var buf bytes.Buffer
	PrintDiagnostic(&buf, diag.Diagnostic{Severity: diag.Warning, Class: diag.Notice, Stage: diag.StageResolver,
		Pos: token.Token{Line: 1, Column: 15, Len: 2}, Message: "odd", Warning: "pedantic"})
	want := "a.tac:1:15:RESOLVER - Warning: odd [-Wpedantic]\n  flag : bool = 12;\n  " + strings.Repeat(" ", 14) + "^~\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
}
