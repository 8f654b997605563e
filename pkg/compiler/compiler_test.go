package compiler

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/diag"
	"github.com/xplshn/tacc/pkg/token"
	"github.com/xplshn/tacc/pkg/util"
)

func sources(contents ...string) []util.SourceFileRecord {
	var files []util.SourceFileRecord
	for i, c := range contents {
		files = append(files, util.SourceFileRecord{Name: filepath.Join("testdata", string(rune('a'+i))+".tac"), Content: []rune(c)})
	}
	return files
}

func TestTokenizeJoinsFiles(t *testing.T) {
	tokens := Tokenize(sources("a : int = 1;", "b : bool = true;"), config.NewConfig())
	var files []int
	for _, tok := range tokens {
		files = append(files, tok.FileIndex)
	}
	want := []int{0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("file indices (-want +got):\n%s", diff)
	}
	if last := tokens[len(tokens)-1]; last.Type != token.EOF {
		t.Errorf("last token = %v, want EOF", last)
	}
}

func TestStageErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		stage diag.Stage
		class diag.Class
	}{
		{"parser", "main : int = ;", diag.StageParser, diag.SyntaxError},
		{"resolver", "main : int = () => { return true; };", diag.StageResolver, diag.TypeError},
		{"code generator", "f : int = () => { return 1; };", diag.StageCodegen, diag.NameError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compile(sources(tt.src), config.NewConfig())
			var stageErr *StageError
			if !errors.As(err, &stageErr) {
				t.Fatalf("Compile error = %v, want a StageError", err)
			}
			if stageErr.Stage != tt.stage {
				t.Errorf("stage = %s, want %s", stageErr.Stage, tt.stage)
			}
			if len(res.Diagnostics) == 0 || res.Diagnostics[0].Class != tt.class {
				t.Errorf("diagnostics = %v, want a %s", res.Diagnostics, tt.class)
			}
			if res.Assembly != nil {
				t.Error("failed compilation produced assembly")
			}
		})
	}
}

func TestStageErrorMessage(t *testing.T) {
	err := &StageError{Stage: diag.StageResolver, Diagnostics: []diag.Diagnostic{
		{Severity: diag.Warning, Class: diag.Notice},
		{Severity: diag.Error, Class: diag.TypeError},
	}}
	if got, want := err.Error(), "RESOLVER stage failed with 1 error(s)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWarningsDoNotHalt(t *testing.T) {
	res, err := Compile(sources("main : int = () => { x : int = 1 / 0; return x; };"), config.NewConfig())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Warning != "div-zero" {
		t.Errorf("diagnostics = %v", res.Diagnostics)
	}
	if res.Assembly == nil || res.Assembly.Len() == 0 {
		t.Error("no assembly produced")
	}
}

func TestLowerAcrossFiles(t *testing.T) {
	res, err := Lower(sources("a : int = 1;", "main : int = () => { return a; };"), config.NewConfig())
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if res.Program.Main == nil {
		t.Fatal("main not found")
	}
	if res.Assembly != nil {
		t.Error("Lower must stop before code generation")
	}
}

// build assembles and links a NASM program, skipping where the toolchain
// is unavailable.
func build(t *testing.T, src string) string {
	t.Helper()
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skip("NASM output targets linux/amd64")
	}
	for _, tool := range []string{"nasm", "cc"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not found", tool)
		}
	}

	res, err := Compile(sources(src), config.NewConfig())
	if err != nil {
		t.Fatalf("Compile: %v %v", err, res.Diagnostics)
	}
	dir := t.TempDir()
	asm, obj, exe := filepath.Join(dir, "main.asm"), filepath.Join(dir, "main.o"), filepath.Join(dir, "main")
	if err := os.WriteFile(asm, res.Assembly.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if out, err := exec.Command("nasm", "-felf64", "-o", obj, asm).CombinedOutput(); err != nil {
		t.Fatalf("nasm: %v\n%s", err, out)
	}
	if out, err := exec.Command("cc", "-no-pie", "-o", exe, obj).CombinedOutput(); err != nil {
		t.Fatalf("cc: %v\n%s", err, out)
	}
	return exe
}

func TestEndToEnd(t *testing.T) {
	tests := []struct {
		name string
		src  string
		args []string
		want string
	}{
		{
			name: "max",
			src:  "max: int = (x: int, y: int) => { result: int = 0; if x > y then { result := x; } else { result := y; } return result; }; main: int = (argc: int, argv: [int]) => { return max(0, 1); };",
			want: "Program exited with the value 1\n",
		},
		{
			name: "arguments",
			src:  "main : int = (argc : int, argv : [int]) => { return argv[0] + argc; };",
			args: []string{"40", "ignored"},
			want: "Program exited with the value 42\n",
		},
		{
			name: "boolean",
			src:  "limit : int = 3; main : bool = () => { i : int = 0; while i < limit do i := i + 1; return i == limit and not false; };",
			want: "Program exited with the value true\n",
		},
		{
			name: "logical",
			src:  "main : bool = (argc : int, argv : [int]) => { a : bool = argc > 5 or argc > 0; b : bool = argc > 0 and argc > 5; return a and not b; };",
			args: []string{"x"},
			want: "Program exited with the value true\n",
		},
		{
			name: "both sides false",
			src:  "main : bool = (argc : int, argv : [int]) => { return argc > 1 or argc < 0; };",
			want: "Program exited with the value false\n",
		},
		{
			name: "libc names",
			src:  "printf : int = () => { return 1; }; atoll : int = 2; main : int = () => { return printf() + atoll; };",
			want: "Program exited with the value 3\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exe := build(t, tt.src)
			out, err := exec.Command(exe, tt.args...).Output()
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if diff := cmp.Diff(tt.want, string(out)); diff != "" {
				t.Errorf("stdout (-want +got):\n%s", diff)
			}
		})
	}
}
