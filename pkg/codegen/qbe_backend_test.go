package codegen

import (
	"strings"
	"testing"
)

func qbeIL(t *testing.T, src string) string {
	t.Helper()
	prog, cfg := lower(t, src)
	b := NewQBEBackend().(*qbeBackend)
	il, err := b.GenerateIR(prog, cfg)
	if err != nil {
		t.Fatalf("GenerateIR: %v %v", err, b.Diagnostics().All())
	}
	return il
}

const callProgram = `
limit : int = 10;
add : int = (a : int, b : int) => { return a + b; };
main : int = (argc : int, argv : [int]) => {
	r : int = 0;
	if argc > 0 then r := add(argv[0], limit);
	return r;
};`

func TestQBEIL(t *testing.T) {
	il := qbeIL(t, callProgram)

	tests := []struct {
		name string
		want string
	}{
		{"global data", "data $_t_limit = { l 10 }\n"},
		{"format data", "data $int_format = { b \"Program exited with the value %d\", b 10, b 0 }\n"},
		{"function signature", "export function l $_t_add(l %.p0, l %.p1) {\n@start\n"},
		{"parameter slots", "\tstorew %.p0, %.s0\n\tstorew %.p1, %.s1\n"},
		{"entry signature", "export function w $main(w %.p0, l %.p1) {\n@start\n\t%.ret =l alloc8 8\n"},
		{"hidden program name", "=w sub %.p0, 1\n"},
		{"argv shift", "=l add %.p1, 8\n"},
		{"global load", "loadsw $_t_limit\n"},
		{"runtime conversion", "=l call $atoll(l "},
		{"call", "=l call $_t_add(l "},
		{"branch", ", @L0\n"},
		{"label", "\n@L0\n"},
		{"exit block", "\n@.exit\n"},
		{"report", "call $printf(l $int_format, ..., w "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(il, tt.want) {
				t.Errorf("missing %q in:\n%s", tt.want, il)
			}
		})
	}
}

func TestQBEBooleanEntry(t *testing.T) {
	il := qbeIL(t, "main : bool = () => { return not false; };")
	for _, want := range []string{
		"export function w $main() {\n",
		"\n@.true\n",
		"call $printf(l $bool_format, ..., l $true_str)",
		"call $printf(l $bool_format, ..., l $false_str)",
	} {
		if !strings.Contains(il, want) {
			t.Errorf("missing %q in:\n%s", want, il)
		}
	}
}

func TestQBEWordClassFollowsConfig(t *testing.T) {
	prog, cfg := lower(t, callProgram)
	cfg.WordType, cfg.WordSize = "w", 4
	b := NewQBEBackend().(*qbeBackend)
	il, err := b.GenerateIR(prog, cfg)
	if err != nil {
		t.Fatalf("GenerateIR: %v", err)
	}
	for _, want := range []string{
		"data $_t_limit = { w 10 }\n",
		"export function w $_t_add(w %.p0, w %.p1) {\n",
		"=w add %.p1, 4\n",
		"=w alloc8 4\n",
		"=w call $_t_add(w ",
		"=w csgtw ",
	} {
		if !strings.Contains(il, want) {
			t.Errorf("missing %q in:\n%s", want, il)
		}
	}
}
