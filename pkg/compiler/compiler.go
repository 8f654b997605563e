// Package compiler chains the front end, the resolver, the IR generator and
// a code generation backend. Every stage collects all of its diagnostics;
// the pipeline stops at the first stage that reported an error.
package compiler

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xplshn/tacc/pkg/ast"
	"github.com/xplshn/tacc/pkg/codegen"
	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/diag"
	"github.com/xplshn/tacc/pkg/ir"
	"github.com/xplshn/tacc/pkg/lexer"
	"github.com/xplshn/tacc/pkg/parser"
	"github.com/xplshn/tacc/pkg/resolver"
	"github.com/xplshn/tacc/pkg/token"
	"github.com/xplshn/tacc/pkg/util"
)

// StageError reports the stage that halted the pipeline
type StageError struct {
	Stage       diag.Stage
	Diagnostics []diag.Diagnostic
}

func (e *StageError) Error() string {
	n := 0
	for _, d := range e.Diagnostics {
		if d.Severity == diag.Error {
			n++
		}
	}
	return fmt.Sprintf("%s stage failed with %d error(s)", e.Stage, n)
}

type Result struct {
	Declarations []*ast.Node
	Info         *resolver.Info
	Program      *ir.Program
	Assembly     *bytes.Buffer
	// Diagnostics holds every warning and error reported so far, in stage order
	Diagnostics []diag.Diagnostic
}

// Tokenize scans every file and joins the streams behind a single EOF
func Tokenize(files []util.SourceFileRecord, cfg *config.Config) []token.Token {
	var tokens []token.Token
	for i, f := range files {
		l := lexer.NewLexer(f.Content, i, cfg)
		for {
			tok := l.Next()
			if tok.Type == token.EOF {
				break
			}
			tokens = append(tokens, tok)
		}
	}
	last := 0
	if len(files) > 0 {
		last = len(files) - 1
	}
	return append(tokens, token.Token{Type: token.EOF, FileIndex: last})
}

func (r *Result) collect(rep *diag.Reporter) error {
	r.Diagnostics = append(r.Diagnostics, rep.All()...)
	if rep.HasErrors() {
		return &StageError{Stage: rep.Stage(), Diagnostics: rep.All()}
	}
	return nil
}

// Lower runs every stage up to and including IR generation
func Lower(files []util.SourceFileRecord, cfg *config.Config) (*Result, error) {
	res := &Result{}

	p := parser.NewParser(Tokenize(files, cfg), cfg)
	res.Declarations = p.Parse()
	if err := res.collect(p.Diagnostics()); err != nil {
		return res, err
	}

	r := resolver.NewResolver(cfg)
	res.Info = r.Resolve(res.Declarations)
	if err := res.collect(r.Diagnostics()); err != nil {
		return res, err
	}

	g := ir.NewGenerator(res.Info, cfg)
	res.Program = g.Generate(res.Declarations)
	if err := res.collect(g.Diagnostics()); err != nil {
		return res, err
	}
	return res, nil
}

// Compile runs the whole pipeline with the backend named by cfg.Backend
func Compile(files []util.SourceFileRecord, cfg *config.Config) (*Result, error) {
	res, err := Lower(files, cfg)
	if err != nil {
		return res, err
	}

	backend, err := codegen.NewBackend(cfg.Backend)
	if err != nil {
		return res, err
	}
	res.Assembly, err = backend.Generate(res.Program, cfg)
	if rep := backend.Diagnostics(); rep != nil {
		if derr := res.collect(rep); derr != nil {
			return res, derr
		}
	}
	if err != nil {
		if errors.Is(err, codegen.ErrDiagnostics) {
			return res, &StageError{Stage: diag.StageCodegen}
		}
		return res, fmt.Errorf("%s backend: %w", cfg.Backend, err)
	}
	return res, nil
}
