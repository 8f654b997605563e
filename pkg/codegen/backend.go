package codegen

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/diag"
	"github.com/xplshn/tacc/pkg/ir"
	"github.com/xplshn/tacc/pkg/types"
)

// ErrDiagnostics is returned by Generate when the backend reported
// diagnostics; they are available from Diagnostics.
var ErrDiagnostics = errors.New("code generation reported diagnostics")

// userSymbolPrefix is prepended to every global label except the entry
// point, keeping user names apart from registers, the runtime data and libc.
const userSymbolPrefix = "_t_"

// symbolName is the assembly label of a global variable or function
func symbolName(sym *types.Symbol) string {
	if sym.Identifier == entryPoint && sym.Kind == types.Function {
		return entryPoint
	}
	return userSymbolPrefix + sym.Identifier
}

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes an IR program and a configuration, and produces the target
	// assembly as a byte buffer.
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
	// Diagnostics returns what the last Generate call reported
	Diagnostics() *diag.Reporter
}

// NewBackend returns the backend registered under name
func NewBackend(name string) (Backend, error) {
	switch name {
	case "nasm":
		return NewNASMBackend(), nil
	case "qbe":
		return NewQBEBackend(), nil
	}
	return nil, fmt.Errorf("unsupported backend '%s'", name)
}
