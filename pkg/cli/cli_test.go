package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type options struct {
	out     string
	target  string
	dump    bool
	linker  []string
	enabled bool
	off     bool
}

func newTestFlagSet(o *options) *FlagSet {
	fs := NewFlagSet("test")
	fs.String(&o.out, "output", "o", "a.out", "Place the output into <file>.", "file")
	fs.String(&o.target, "target", "t", "nasm", "Select the backend.", "backend")
	fs.Bool(&o.dump, "dump-ir", "d", false, "Dump the IR.")
	fs.List(&o.linker, "linker-arg", "L", []string{}, "Pass an argument to the linker.", "arg")
	fs.AddFlagGroup("Warning Flags", "warning", []FlagGroupEntry{
		{Name: "shadow", Prefix: "W", Usage: "Warn about shadowing.", Enabled: &o.enabled, Disabled: &o.off},
	})
	return fs
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want options
		rest []string
	}{
		{"defaults", []string{"in.tac"}, options{out: "a.out", target: "nasm", linker: []string{}}, []string{"in.tac"}},
		{"separate value", []string{"-o", "prog", "in.tac"}, options{out: "prog", target: "nasm", linker: []string{}}, []string{"in.tac"}},
		{"attached value", []string{"-oprog", "-tqbe"}, options{out: "prog", target: "qbe", linker: []string{}}, nil},
		{"long with equals", []string{"--output=prog", "--target", "qbe"}, options{out: "prog", target: "qbe", linker: []string{}}, nil},
		{"single dash long", []string{"-output", "prog", "-dump-ir"}, options{out: "prog", target: "nasm", dump: true, linker: []string{}}, nil},
		{"bool shorthand", []string{"-d"}, options{out: "a.out", target: "nasm", dump: true, linker: []string{}}, nil},
		{"list", []string{"-L", "-lm", "-L-static"}, options{out: "a.out", target: "nasm", linker: []string{"-lm", "-static"}}, nil},
		{"group flags", []string{"-Wshadow", "-Wno-shadow"}, options{out: "a.out", target: "nasm", linker: []string{}, enabled: true, off: true}, nil},
		{"terminator", []string{"--", "-o"}, options{out: "a.out", target: "nasm", linker: []string{}}, []string{"-o"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o options
			fs := newTestFlagSet(&o)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, o, cmp.AllowUnexported(options{})); diff != "" {
				t.Errorf("options (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.rest, fs.Args()); diff != "" {
				t.Errorf("args (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"-x"}, "unknown flag: -x"},
		{[]string{"--d"}, "unknown flag: --d"},
		{[]string{"-dyes"}, "unexpected value for flag: -d"},
		{[]string{"-o"}, "flag needs an argument: -o"},
		{[]string{"--dump-ir=maybe"}, "--dump-ir=maybe: invalid boolean value 'maybe'"},
	}
	for _, tt := range tests {
		var o options
		err := newTestFlagSet(&o).Parse(tt.args)
		if err == nil || err.Error() != tt.want {
			t.Errorf("Parse(%q) = %v, want %q", tt.args, err, tt.want)
		}
	}
}

func TestVisitKeepsArgumentOrder(t *testing.T) {
	var o options
	fs := newTestFlagSet(&o)
	var got []string
	fs.Visit([]string{"-Wno-shadow", "in.tac", "--output=x", "-Wshadow", "--", "-d"}, func(name string) {
		got = append(got, name)
	})
	if diff := cmp.Diff([]string{"Wno-shadow", "output", "Wshadow"}, got); diff != "" {
		t.Errorf("visited (-want +got):\n%s", diff)
	}
}

func TestWriteHelp(t *testing.T) {
	var o options
	app := NewApp("tacc")
	app.FlagSet = newTestFlagSet(&o)
	app.Synopsis = "[options] <input.tac> ..."
	o.enabled = true

	var buf bytes.Buffer
	app.WriteHelp(&buf, 80)
	help := buf.String()
	for _, want := range []string{
		"tacc [options] <input.tac> ...",
		"-o, --output <file>",
		"|a.out|",
		"Warning Flags",
		"-W<warning>",
		"-Wno-<warning>",
		"shadow",
		"|x|",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("help lacks %q:\n%s", want, help)
		}
	}
	if strings.Contains(help, "--Wshadow") {
		t.Error("grouped flags must not be listed as options")
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four five", 9)
	if diff := cmp.Diff([]string{"one two", "three", "four five"}, got); diff != "" {
		t.Errorf("wrap (-want +got):\n%s", diff)
	}
}
