package resolver

import (
	"github.com/xplshn/tacc/pkg/ast"
	"github.com/xplshn/tacc/pkg/types"
)

// Info is the side-table the resolver fills in. The AST itself is never
// annotated; later stages look facts up here by node identity.
type Info struct {
	// Types holds the resolved type of every expression node
	Types map[*ast.Node]*types.Type
	// Values holds the compile-time value of constant expressions
	Values map[*ast.Node]types.Value
	// Symbols maps declarations, parameters and identifier uses to symbols
	Symbols map[*ast.Node]*types.Symbol
	// Scopes maps function and block nodes to the scope they open
	Scopes map[*ast.Node]*types.Scope
	Global *types.Scope
}

func newInfo() *Info {
	return &Info{
		Types:   make(map[*ast.Node]*types.Type),
		Values:  make(map[*ast.Node]types.Value),
		Symbols: make(map[*ast.Node]*types.Symbol),
		Scopes:  make(map[*ast.Node]*types.Scope),
		Global:  types.NewScope("global", nil),
	}
}

// TypeOf returns the type of expr, or types.None if it was never resolved
func (i *Info) TypeOf(expr *ast.Node) *types.Type {
	if t, ok := i.Types[expr]; ok {
		return t
	}
	return types.None
}

func (i *Info) ValueOf(expr *ast.Node) types.Value { return i.Values[expr] }

func (i *Info) SymbolOf(node *ast.Node) *types.Symbol { return i.Symbols[node] }

func (i *Info) ScopeOf(node *ast.Node) *types.Scope { return i.Scopes[node] }

func (i *Info) record(expr *ast.Node, t *types.Type, v types.Value) *types.Type {
	i.Types[expr] = t
	if v.IsConstant() {
		i.Values[expr] = v
	}
	return t
}
