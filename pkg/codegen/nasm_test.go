package codegen

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/diag"
	"github.com/xplshn/tacc/pkg/ir"
	"github.com/xplshn/tacc/pkg/lexer"
	"github.com/xplshn/tacc/pkg/parser"
	"github.com/xplshn/tacc/pkg/resolver"
)

func lower(t *testing.T, src string) (*ir.Program, *config.Config) {
	t.Helper()
	cfg := config.NewConfig()
	p := parser.NewParser(lexer.NewLexer([]rune(src), 0, cfg).Tokenize(), cfg)
	decls := p.Parse()
	r := resolver.NewResolver(cfg)
	info := r.Resolve(decls)
	if p.Diagnostics().HasErrors() || r.Diagnostics().HasErrors() {
		t.Fatalf("front end failed: %v %v", p.Diagnostics().All(), r.Diagnostics().All())
	}
	g := ir.NewGenerator(info, cfg)
	prog := g.Generate(decls)
	if g.Diagnostics().HasErrors() {
		t.Fatalf("lowering failed: %v", g.Diagnostics().All())
	}
	return prog, cfg
}

func assemble(t *testing.T, src string) []string {
	t.Helper()
	prog, cfg := lower(t, src)
	b := NewNASMBackend()
	out, err := b.Generate(prog, cfg)
	if err != nil {
		t.Fatalf("Generate: %v %v", err, b.Diagnostics().All())
	}
	return strings.Split(out.String(), "\n")
}

// contains reports whether want appears in lines as a contiguous run
func contains(lines, want []string) bool {
	for i := 0; i+len(want) <= len(lines); i++ {
		if cmp.Equal(lines[i:i+len(want)], want) {
			return true
		}
	}
	return false
}

const entryProgram = `
x : int = 5;
flag : bool = true;
main : int = (argc : int, argv : [int]) => {
	n : int = argv[0];
	return n + x;
};`

func TestNASMLayout(t *testing.T) {
	lines := assemble(t, entryProgram)

	tests := []struct {
		name string
		want []string
	}{
		{"externs", []string{"global main", "extern printf", "extern atoll"}},
		{"data section", []string{
			"section .data",
			"true: dq 1",
			"false: dq 0",
			`true_str: db "true", 0`,
			`false_str: db "false", 0`,
			"_t_x: dq 5",
			"_t_flag: dq 1",
			`int_format: db "Program exited with the value %d", 10, 0`,
			`bool_format: db "Program exited with the value %s", 10, 0`,
			"",
			"section .text",
		}},
		{"entry prologue", []string{
			"main:",
			"\tdec rdi",
			"\tadd rsi, 8",
			"\tpush rsi",
			"\tpush rdi",
			"\tpush rbp",
			"\tmov rbp, rsp",
			"\tsub rsp, 48",
		}},
		{"argv load", []string{"\tmov rcx, qword [rbp+16]", "\tmovsxd rsi, dword [rbp-16]", "\tadd rcx, rsi", "\tmov qword [rbp-24], rcx"}},
		{"runtime conversion", []string{"\tmov rdi, rcx", "\tcall atoll", "\tmov dword [rbp-40], eax"}},
		{"global operand", []string{"\tmovsxd rsi, dword [_t_x]", "\tadd rcx, rsi", "\tmov dword [rbp-44], ecx"}},
		{"entry return", []string{"\tmovsxd rax, dword [rbp-44]", "\tjmp ..@main_exit"}},
		{"trailer", []string{
			"..@main_exit:",
			"\tmov rsi, rax",
			"\tmov rdi, int_format",
			"\txor eax, eax",
			"\tcall printf",
			"\tleave",
			"\tadd rsp, 16",
			"\txor eax, eax",
			"\tret",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !contains(lines, tt.want) {
				t.Errorf("missing %q in:\n%s", tt.want, strings.Join(lines, "\n"))
			}
		})
	}
}

func TestNASMFunctionsAndBranches(t *testing.T) {
	lines := assemble(t, `
max : int = (a : int, b : int) => {
	r : int = b;
	if a > b then r := a;
	return r;
};
main : bool = () => {
	return max(1, 2) == 2;
};`)

	tests := []struct {
		name string
		want []string
	}{
		{"parameters", []string{"\tmovsxd rcx, dword [rbp+16]", "\tmovsxd rsi, dword [rbp+24]", "\tcmp rcx, rsi", "\tsetg cl", "\tmovzx rcx, cl"}},
		{"bool result", []string{"\tmov byte [rbp-12], cl"}},
		{"branch", []string{"\tmovzx rcx, byte [rbp-12]", "\ttest rcx, rcx", "\tjz .L0"}},
		{"label", []string{".L0:"}},
		{"plain return", []string{"\tmovsxd rax, dword [rbp-8]", "\tleave", "\tret"}},
		{"function label", []string{"_t_max:", "\tpush rbp"}},
		{"call", []string{"\tcall _t_max", "\tmov dword [rbp-16], eax"}},
		{"bool trailer", []string{
			"\ttest rax, rax",
			"\tmov rsi, false_str",
			"\tmov rdx, true_str",
			"\tcmovnz rsi, rdx",
			"\tmov rdi, bool_format",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !contains(lines, tt.want) {
				t.Errorf("missing %q in:\n%s", tt.want, strings.Join(lines, "\n"))
			}
		})
	}
}

func TestUserNamesDoNotClash(t *testing.T) {
	src := `
rcx : int = 5;
int_format : int = 7;
printf : int = () => { return 1; };
main : int = () => { return printf() + rcx + int_format; };`

	lines := assemble(t, src)
	labels := map[string]int{}
	for _, l := range lines {
		if i := strings.Index(l, ":"); i > 0 && !strings.HasPrefix(l, "\t") {
			labels[l[:i]]++
		}
	}
	for _, name := range []string{"int_format", "_t_int_format", "_t_rcx", "_t_printf", "main"} {
		if labels[name] != 1 {
			t.Errorf("label %s defined %d time(s)", name, labels[name])
		}
	}
	for _, want := range [][]string{
		{"\tcall _t_printf"},
		{"\tmovsxd rsi, dword [_t_rcx]"},
		{"\tmov rdi, int_format", "\txor eax, eax", "\tcall printf"},
	} {
		if !contains(lines, want) {
			t.Errorf("missing %q in:\n%s", want, strings.Join(lines, "\n"))
		}
	}

	il := qbeIL(t, src)
	for _, want := range []string{
		"data $_t_rcx = { l 5 }\n",
		"data $_t_int_format = { l 7 }\n",
		"export function l $_t_printf() {\n",
		"call $_t_printf()\n",
		"call $printf(l $int_format, ..., w ",
	} {
		if !strings.Contains(il, want) {
			t.Errorf("missing %q in:\n%s", want, il)
		}
	}
}

func TestNASMRejectsOtherArchitectures(t *testing.T) {
	prog, cfg := lower(t, "main : int = () => { return 0; };")
	cfg.TargetArch = "arm64"
	if _, err := NewNASMBackend().Generate(prog, cfg); err == nil || !strings.Contains(err.Error(), "arm64") {
		t.Errorf("Generate error = %v, want one naming arm64", err)
	}
}

func TestMissingMain(t *testing.T) {
	prog, cfg := lower(t, "f : int = () => { return 1; };")
	for _, name := range []string{"nasm", "qbe"} {
		t.Run(name, func(t *testing.T) {
			b, err := NewBackend(name)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := b.Generate(prog, cfg); !errors.Is(err, ErrDiagnostics) {
				t.Fatalf("Generate error = %v, want ErrDiagnostics", err)
			}
			got := b.Diagnostics().Errors()
			if len(got) != 1 || got[0].Class != diag.NameError || got[0].Message != "No 'main' function defined" {
				t.Errorf("diagnostics = %v", got)
			}
		})
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, err := NewBackend("llvm"); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}
