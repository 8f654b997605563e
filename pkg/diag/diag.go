// Package diag holds the diagnostics every compiler stage accumulates
package diag

import (
	"fmt"

	"github.com/xplshn/tacc/pkg/token"
)

type Severity int

const (
	Error Severity = iota
	Warning
)

// Class is the error taxonomy shared by all stages
type Class int

const (
	SyntaxError Class = iota
	TypeError
	OverflowError
	NameError
	IndexError
	Unreachable
	Notice
)

var classNames = [...]string{
	SyntaxError:   "SyntaxError",
	TypeError:     "TypeError",
	OverflowError: "OverflowError",
	NameError:     "NameError",
	IndexError:    "IndexError",
	Unreachable:   "Unreachable",
	Notice:        "Warning",
}

func (c Class) String() string { return classNames[c] }

// Stage tags the pipeline stage a diagnostic came from
type Stage string

const (
	StageParser   Stage = "PARSER"
	StageResolver Stage = "RESOLVER"
	StageIR       Stage = "IR_GENERATOR"
	StageCodegen  Stage = "CODE_GENERATOR"
)

type Diagnostic struct {
	Severity Severity
	Class    Class
	Stage    Stage
	Pos      token.Token
	Message  string
	// Warning names the config warning that produced a Warning diagnostic
	Warning string
}

// String renders ":<line>:<column>:<STAGE> - <Class>: <message>"
func (d Diagnostic) String() string {
	return fmt.Sprintf(":%d:%d:%s - %s: %s", d.Pos.Line, d.Pos.Column, d.Stage, d.Class, d.Message)
}

// Reporter accumulates the diagnostics of one stage instance. Internal
// invariant failures are kept apart from user-facing diagnostics.
type Reporter struct {
	stage    Stage
	items    []Diagnostic
	internal []Diagnostic
}

func NewReporter(stage Stage) *Reporter { return &Reporter{stage: stage} }

func (r *Reporter) Stage() Stage { return r.stage }

func (r *Reporter) Errorf(class Class, pos token.Token, format string, args ...interface{}) {
	r.items = append(r.items, Diagnostic{
		Severity: Error, Class: class, Stage: r.stage, Pos: pos, Message: fmt.Sprintf(format, args...),
	})
}

func (r *Reporter) Warnf(name string, pos token.Token, format string, args ...interface{}) {
	r.items = append(r.items, Diagnostic{
		Severity: Warning, Class: Notice, Stage: r.stage, Pos: pos, Message: fmt.Sprintf(format, args...), Warning: name,
	})
}

// Internalf records an Unreachable diagnostic: a bug in an earlier stage, not user error
func (r *Reporter) Internalf(pos token.Token, format string, args ...interface{}) {
	r.internal = append(r.internal, Diagnostic{
		Severity: Error, Class: Unreachable, Stage: r.stage, Pos: pos, Message: fmt.Sprintf(format, args...),
	})
}

// Diagnostics returns user-facing diagnostics (errors and warnings) in append order
func (r *Reporter) Diagnostics() []Diagnostic { return r.items }

func (r *Reporter) Internal() []Diagnostic { return r.internal }

func (r *Reporter) Errors() []Diagnostic {
	var errs []Diagnostic
	for _, d := range r.items {
		if d.Severity == Error {
			errs = append(errs, d)
		}
	}
	return errs
}

// HasErrors reports whether the stage must halt the pipeline
func (r *Reporter) HasErrors() bool {
	return len(r.internal) > 0 || len(r.Errors()) > 0
}

// All returns user-facing diagnostics followed by internal ones
func (r *Reporter) All() []Diagnostic {
	all := make([]Diagnostic, 0, len(r.items)+len(r.internal))
	all = append(all, r.items...)
	return append(all, r.internal...)
}
