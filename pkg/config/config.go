package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xplshn/tacc/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatFold Feature = iota
	FeatBlockScope
	FeatNoDirectives
	FeatCount
)

type Warning int

const (
	WarnShadow Warning = iota
	WarnUnreachableCode
	WarnDivZero
	WarnConstantCondition
	WarnPedantic
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features       map[Feature]Info
	Warnings       map[Warning]Info
	FeatureMap     map[string]Feature
	WarningMap     map[string]Warning
	StdName        string
	Backend        string
	TargetArch     string
	QbeTarget      string
	WordSize       int
	WordType       string
	StackAlignment int
}

func NewConfig() *Config {
	cfg := &Config{
		Features:       make(map[Feature]Info),
		Warnings:       make(map[Warning]Info),
		FeatureMap:     make(map[string]Feature),
		WarningMap:     make(map[string]Warning),
		StdName:        "modern",
		Backend:        "nasm",
		TargetArch:     "amd64",
		QbeTarget:      "amd64_sysv",
		WordSize:       8,
		WordType:       "l",
		StackAlignment: 16,
	}

	features := map[Feature]Info{
		FeatFold:         {"fold", true, "Fold constant unary and binary expressions at compile time."},
		FeatBlockScope:   {"block-scope", true, "Give every `{ }` block its own lexical scope."},
		FeatNoDirectives: {"no-directives", false, "Disable `// [tacc]:` directives."},
	}

	warnings := map[Warning]Info{
		WarnShadow:            {"shadow", true, "Warn when a local declaration hides an outer one."},
		WarnUnreachableCode:   {"unreachable-code", true, "Warn about code that will never be executed."},
		WarnDivZero:           {"div-zero", true, "Warn about division by a constant zero."},
		WarnConstantCondition: {"constant-cond", false, "Warn when an `if` or `while` condition is a constant."},
		WarnPedantic:          {"pedantic", false, "Issue all warnings demanded by the strict standard."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget configures the compiler for a specific architecture and QBE target.
func (c *Config) SetTarget(goos, goarch, qbeTarget string) {
	if qbeTarget == "" {
		c.QbeTarget = libqbe.DefaultTarget(goos, goarch)
		fmt.Fprintf(os.Stderr, "tacc: info: no target specified, defaulting to host target '%s'\n", c.QbeTarget)
	} else {
		c.QbeTarget = qbeTarget
		fmt.Fprintf(os.Stderr, "tacc: info: using specified target '%s'\n", c.QbeTarget)
	}

	c.TargetArch = goarch

	switch c.QbeTarget {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		c.WordSize, c.WordType, c.StackAlignment = 8, "l", 16
	default:
		fmt.Fprintf(os.Stderr, "tacc: warning: unrecognized or unsupported QBE target '%s'.\n", c.QbeTarget)
		fmt.Fprintf(os.Stderr, "tacc: warning: defaulting to 64-bit properties. Compilation may fail.\n")
		c.WordSize, c.WordType, c.StackAlignment = 8, "l", 16
	}
}

// SetBackend selects the code generator by name
func (c *Config) SetBackend(name string) error {
	switch name {
	case "nasm", "qbe":
		c.Backend = name
		return nil
	}
	return fmt.Errorf("unsupported backend '%s'. Supported: 'nasm', 'qbe'", name)
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyStd switches between the "modern" language and the "classic" one,
// where only the global scope and one scope per function exist.
func (c *Config) ApplyStd(stdName string) error {
	isPedantic := c.IsWarningEnabled(WarnPedantic)

	switch stdName {
	case "modern":
		c.SetFeature(FeatBlockScope, true)
		c.SetFeature(FeatFold, true)
		c.SetWarning(WarnShadow, true)
	case "classic":
		c.SetFeature(FeatBlockScope, false)
		c.SetFeature(FeatFold, true)
		c.SetWarning(WarnShadow, isPedantic)
	default:
		return fmt.Errorf("unsupported standard '%s'. Supported: 'modern', 'classic'", stdName)
	}
	c.StdName = stdName
	if isPedantic {
		c.SetWarning(WarnConstantCondition, true)
	}
	return nil
}

func (c *Config) applyFlag(flag string) {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		name = trimmed
		isWarning = true
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			if i != WarnPedantic {
				c.SetWarning(i, enable)
			}
		}
		return
	}

	if name == "pedantic" && isWarning {
		c.SetWarning(WarnPedantic, true)
		return
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
		}
	} else {
		if f, ok := c.FeatureMap[name]; ok {
			c.SetFeature(f, enable)
		}
	}
}

func (c *Config) ProcessFlags(visitFlag func(fn func(name string))) {
	visitFlag(func(name string) {
		if name == "Wall" || name == "Wno-all" || name == "pedantic" {
			c.applyFlag("-" + name)
		}
	})
	visitFlag(func(name string) {
		if name != "Wall" && name != "Wno-all" && name != "pedantic" {
			c.applyFlag("-" + name)
		}
	})
}

func (c *Config) ProcessDirectiveFlags(flagStr string) {
	for _, flag := range strings.Fields(flagStr) {
		c.applyFlag(flag)
	}
}

// SetupFlagGroups registers -W<name>/-Wno-<name>, -F<name>/-Fno-<name>
// and -Wall/-Wno-all on fs. The returned entries are indexed by Warning and
// Feature; ProcessFlags reads the command line itself.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warnings, features []cli.FlagGroupEntry) {
	var all, none bool
	fs.Bool(&all, "Wall", "", false, "Enable every warning except pedantic.")
	fs.Bool(&none, "Wno-all", "", false, "Disable every warning.")
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		warnings = append(warnings, cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		})
	}
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		features = append(features, cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		})
	}
	fs.AddFlagGroup("Warning Flags", "warning", warnings)
	fs.AddFlagGroup("Feature Flags", "feature", features)
	return warnings, features
}
