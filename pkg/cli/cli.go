// Package cli is a small getopt-style flag parser with grouped -W/-F flags
// and a help page that wraps to the terminal width.
package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s'", s)
	}
	*v.p = b
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

func (f *Flag) isBool() bool {
	_, ok := f.Value.(*boolValue)
	return ok
}

// FlagGroupEntry describes one -<prefix><name> / -<prefix>no-<name> pair
type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagGroup struct {
	Name    string
	Kind    string
	Entries []FlagGroupEntry
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	groups     []FlagGroup
	args       []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{name: name, flags: make(map[string]*Flag), shorthands: make(map[string]*Flag)}
}

func (f *FlagSet) Args() []string           { return f.args }
func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, "", expectedType)
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

// AddFlagGroup registers both spellings of every entry as boolean flags
func (f *FlagSet) AddFlagGroup(name, kind string, entries []FlagGroupEntry) {
	for _, e := range entries {
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
		}
	}
	f.groups = append(f.groups, FlagGroup{Name: name, Kind: kind, Entries: entries})
}

// Visit calls fn for every flag that was set on the command line, in
// argument order.
func (f *FlagSet) Visit(arguments []string, fn func(name string)) {
	for _, arg := range arguments {
		if arg == "--" {
			return
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		name, _, _ = strings.Cut(name, "=")
		if _, ok := f.flags[name]; ok {
			fn(name)
		}
	}
}

// Parse accepts --name, --name=value, -name, -name=value, -x value and -xvalue.
// Single-dash long names are tried before shorthands so -Wall works.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = f.args[:0]
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		}
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}

		body := strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
		name, value, hasValue := strings.Cut(body, "=")
		flag, ok := f.flags[name]
		if !ok && !strings.HasPrefix(arg, "--") {
			if flag, ok = f.shorthands[body[:1]]; ok {
				name, value, hasValue = body[:1], body[1:], len(body) > 1
				if flag.isBool() && hasValue {
					return fmt.Errorf("unexpected value for flag: -%s", name)
				}
			}
		}
		if !ok {
			return fmt.Errorf("unknown flag: %s", arg)
		}

		switch {
		case hasValue:
		case flag.isBool():
			value = ""
		case i+1 < len(arguments):
			i++
			value = arguments[i]
		default:
			return fmt.Errorf("flag needs an argument: %s", arg)
		}
		if err := flag.Value.Set(value); err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
	}
	return nil
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
}

func NewApp(name string) *App { return &App{Name: name, FlagSet: NewFlagSet(name)} }

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", a.Name, err)
		fmt.Fprintf(os.Stderr, "Run '%s --help' for all available options and flags.\n", a.Name)
		return err
	}
	if help {
		a.WriteHelp(os.Stdout, terminalWidth())
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func (f *Flag) label() string {
	var sb strings.Builder
	if f.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s, ", f.Shorthand)
	}
	fmt.Fprintf(&sb, "--%s", f.Name)
	if !f.isBool() && f.ExpectedType != "" {
		fmt.Fprintf(&sb, " <%s>", f.ExpectedType)
	}
	return sb.String()
}

func (a *App) options() []*Flag {
	grouped := make(map[string]bool)
	for _, g := range a.FlagSet.groups {
		for _, e := range g.Entries {
			grouped[e.Prefix+e.Name] = true
			grouped[e.Prefix+"no-"+e.Name] = true
		}
	}
	var opts []*Flag
	for name, flag := range a.FlagSet.flags {
		if !grouped[name] {
			opts = append(opts, flag)
		}
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].Name < opts[j].Name })
	return opts
}

// WriteHelp renders the full help page wrapped to width columns
func (a *App) WriteHelp(w io.Writer, width int) {
	const indent = "  "
	opts := a.options()

	left := 0
	for _, f := range opts {
		left = max(left, len(f.label()))
	}
	for _, g := range a.FlagSet.groups {
		for _, e := range g.Entries {
			left = max(left, len(e.Name), len(e.Prefix)+len(g.Kind)+5)
		}
	}

	entry := func(label, usage, tail string) {
		lines := wrapText(usage, max(width-len(indent)*2-left-len(tail)-2, 10))
		if len(lines) == 0 {
			lines = []string{""}
		}
		fmt.Fprintf(w, "%s%s%-*s %s", indent, indent, left, label, lines[0])
		if tail != "" {
			fmt.Fprintf(w, "  %s", tail)
		}
		fmt.Fprintln(w)
		for _, l := range lines[1:] {
			fmt.Fprintf(w, "%s%s%*s %s\n", indent, indent, left, "", l)
		}
	}

	fmt.Fprintf(w, "\n%sCopyright (c) %d: %s and contributors\n", indent, time.Now().Year(), strings.Join(a.Authors, ", "))
	if a.Repository != "" {
		fmt.Fprintf(w, "%sFor more details refer to %s\n", indent, a.Repository)
	}
	if a.Synopsis != "" {
		fmt.Fprintf(w, "\n%sSynopsis\n%s%s%s %s\n", indent, indent, indent, a.Name, a.Synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(w, "\n%sDescription\n", indent)
		for _, l := range wrapText(a.Description, max(width-len(indent)*2, 20)) {
			fmt.Fprintf(w, "%s%s%s\n", indent, indent, l)
		}
	}

	fmt.Fprintf(w, "\n%sOptions\n", indent)
	for _, f := range opts {
		tail := ""
		if !f.isBool() && f.DefValue != "" {
			tail = "|" + f.DefValue + "|"
		}
		entry(f.label(), f.Usage, tail)
	}

	for _, g := range a.FlagSet.groups {
		if len(g.Entries) == 0 {
			continue
		}
		prefix := g.Entries[0].Prefix
		fmt.Fprintf(w, "\n%s%s\n", indent, g.Name)
		entry(fmt.Sprintf("-%s<%s>", prefix, g.Kind), "Enable a specific "+g.Kind, "")
		entry(fmt.Sprintf("-%sno-<%s>", prefix, g.Kind), "Disable a specific "+g.Kind, "")
		entries := append([]FlagGroupEntry(nil), g.Entries...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			state := "|-|"
			if e.Enabled != nil && *e.Enabled {
				state = "|x|"
			}
			entry(e.Name, e.Usage, state)
		}
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, width int) []string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+len(word)+1 > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
