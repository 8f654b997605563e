// Package resolver type-checks the syntax tree, folds constants and builds
// the scope tree with its stack layout.
package resolver

import (
	"github.com/xplshn/tacc/pkg/ast"
	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/diag"
	"github.com/xplshn/tacc/pkg/token"
	"github.com/xplshn/tacc/pkg/types"
)

const entryPoint = "main"

type Resolver struct {
	cfg   *config.Config
	diags *diag.Reporter
	info  *Info
	scope *types.Scope

	// per-function state, saved and restored around every function body
	currentFunctionName string
	notInLoop           bool
	notInFunction       bool
	notReturned         bool
	returnType          *types.Type
	entryArray          *types.Symbol
}

func NewResolver(cfg *config.Config) *Resolver {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	info := newInfo()
	return &Resolver{
		cfg:           cfg,
		diags:         diag.NewReporter(diag.StageResolver),
		info:          info,
		scope:         info.Global,
		notInLoop:     true,
		notInFunction: true,
		notReturned:   true,
		returnType:    types.None,
	}
}

func (r *Resolver) Diagnostics() *diag.Reporter { return r.diags }

func (r *Resolver) Info() *Info { return r.info }

// Resolve resolves every top-level declaration in order. A declaration can
// only refer to names declared before it, or to itself when it is a function.
func (r *Resolver) Resolve(decls []*ast.Node) *Info {
	for _, decl := range decls {
		r.ResolveDeclaration(decl)
	}
	return r.info
}

func (r *Resolver) errorf(class diag.Class, tok token.Token, format string, args ...interface{}) {
	r.diags.Errorf(class, tok, format, args...)
}

func (r *Resolver) warnf(w config.Warning, tok token.Token, format string, args ...interface{}) {
	if r.cfg.IsWarningEnabled(w) {
		r.diags.Warnf(r.cfg.Warnings[w].Name, tok, format, args...)
	}
}

// ResolveDeclaration declares a variable or function in the current scope
func (r *Resolver) ResolveDeclaration(decl *ast.Node) {
	switch decl.Type {
	case ast.VarDecl:
		r.resolveVarDecl(decl)
	case ast.FuncDecl:
		r.resolveFuncDecl(decl)
	default:
		r.diags.Internalf(decl.Tok, "Unreachable: %s is not a declaration", decl.Type)
	}
}

// checkRedeclaration reports a NameError when name is already declared in
// exactly the current scope; the original binding is kept.
func (r *Resolver) checkRedeclaration(tok token.Token, name string) bool {
	if existing := r.scope.Get(name); existing != nil {
		r.errorf(diag.NameError, tok, "Redeclaration of '%s' (previously declared as %s '%s')", name, existing.Kind, existing.Type)
		return true
	}
	if !r.scope.IsGlobal() {
		if outer := r.scope.Enclosing.Lookup(name); outer != nil {
			r.warnf(config.WarnShadow, tok, "Declaration of '%s' shadows an outer %s", name, outer.Kind)
		}
	}
	return false
}

func (r *Resolver) resolveVarDecl(node *ast.Node) {
	d := node.Data.(ast.VarDeclNode)
	declared := r.ResolveTypeSpecifier(d.Type)
	initType := r.ResolveExpression(d.Init)
	value := r.info.ValueOf(d.Init)

	if !declared.IsNone() && !initType.IsNone() && !types.Equal(declared, initType) {
		r.errorf(diag.TypeError, d.Init.Tok, "Cannot initialize '%s' of type '%s' with a value of type '%s'", d.Name, declared, initType)
	}
	if r.scope.IsGlobal() && !initType.IsNone() && !value.IsConstant() {
		r.errorf(diag.TypeError, d.Init.Tok, "Initializer of global '%s' is not a compile-time constant", d.Name)
	}

	if r.checkRedeclaration(node.Tok, d.Name) {
		return
	}
	sym := &types.Symbol{Kind: types.Variable, Identifier: d.Name, Type: declared, Value: value}
	r.scope.Declare(sym)
	r.info.Symbols[node] = sym
}

func (r *Resolver) resolveFuncDecl(node *ast.Node) {
	d := node.Data.(ast.FuncDeclNode)
	if !r.scope.IsGlobal() {
		r.errorf(diag.SyntaxError, node.Tok, "Function '%s' must be declared at global scope", d.Name)
		return
	}

	returnType := r.ResolveTypeSpecifier(d.ReturnType)
	fnType := types.NewFunction(returnType)
	sym := &types.Symbol{Kind: types.Function, Identifier: d.Name, Type: fnType}
	if !r.checkRedeclaration(node.Tok, d.Name) {
		r.scope.Declare(sym)
		r.info.Symbols[node] = sym
	}

	r.resolveFunction(d.Func, d.Name, fnType)
	if d.Name == entryPoint {
		r.checkEntryPoint(node, fnType)
	}
}

func (r *Resolver) checkEntryPoint(node *ast.Node, fnType *types.Type) {
	fn := fnType.Function
	if k := fn.ReturnType.Kind; k != types.KindInteger && k != types.KindBoolean && k != types.KindNone {
		r.errorf(diag.TypeError, node.Tok, "'main' must return int or bool, not '%s'", fn.ReturnType)
	}
	switch fn.Arity {
	case 0:
		return
	case 2:
		argc, argv := fn.Parameters[0].Type, fn.Parameters[1].Type
		if types.Equal(argc, types.Integer) && types.Equal(argv, types.NewArray(types.Integer)) {
			return
		}
	}
	r.errorf(diag.TypeError, node.Tok, "'main' must take no parameters or (int, [int]), not %s", fnType)
}

// resolveFunction resolves a function expression body in a fresh scope.
// The function's symbol is already declared so the body may recurse.
func (r *Resolver) resolveFunction(node *ast.Node, name string, fnType *types.Type) {
	d := node.Data.(ast.FunctionNode)

	prevScope := r.scope
	prevName, prevLoop, prevFunc, prevReturned, prevReturn := r.currentFunctionName, r.notInLoop, r.notInFunction, r.notReturned, r.returnType
	prevEntryArray := r.entryArray
	defer func() {
		r.scope = prevScope
		r.currentFunctionName, r.notInLoop, r.notInFunction, r.notReturned, r.returnType = prevName, prevLoop, prevFunc, prevReturned, prevReturn
		r.entryArray = prevEntryArray
	}()

	scope := types.NewScope(name, r.scope)
	r.scope = scope
	r.currentFunctionName = name
	r.notInLoop, r.notInFunction, r.notReturned = true, false, true
	r.returnType = fnType.Function.ReturnType
	r.entryArray = nil

	fn := fnType.Function
	fn.Scope = scope
	r.info.Types[node] = fnType
	r.info.Scopes[node] = scope
	r.info.Scopes[d.Body] = scope

	for _, param := range d.Params {
		p := param.Data.(ast.ParamNode)
		sym := &types.Symbol{Kind: types.Parameter, Identifier: p.Name, Type: r.ResolveTypeSpecifier(p.Type)}
		fn.Parameters = append(fn.Parameters, sym)
		fn.Arity++
		if existing := scope.Get(p.Name); existing != nil {
			r.errorf(diag.NameError, param.Tok, "Duplicate parameter '%s' in function '%s'", p.Name, name)
			r.info.Symbols[param] = existing
			continue
		}
		scope.Declare(sym)
		r.info.Symbols[param] = sym
		if name == entryPoint && prevScope.IsGlobal() && sym.Type.Kind == types.KindArray {
			r.entryArray = sym
		}
	}

	r.resolveStatements(d.Body.Data.(ast.BlockNode).Stmts)

	if r.notReturned {
		r.errorf(diag.SyntaxError, node.Tok, "Function '%s' has no return statement", name)
	}
}

// ResolveTypeSpecifier maps a written type to its Type
func (r *Resolver) ResolveTypeSpecifier(spec *ast.Node) *types.Type {
	if spec == nil {
		return types.None
	}
	d := spec.Data.(ast.TypeSpecNode)
	if d.Element != nil {
		return types.NewArray(r.ResolveTypeSpecifier(d.Element))
	}
	if t, ok := types.Lookup(d.Name); ok {
		return t
	}
	r.diags.Internalf(spec.Tok, "Unreachable: unknown type name '%s'", d.Name)
	return types.None
}

// resolveStatements resolves a statement list, warning once about code
// that follows a return, break or continue.
func (r *Resolver) resolveStatements(stmts []*ast.Node) {
	terminated := false
	for _, stmt := range stmts {
		if terminated {
			r.warnf(config.WarnUnreachableCode, stmt.Tok, "Unreachable code")
			terminated = false
		}
		r.ResolveStatement(stmt)
		switch stmt.Type {
		case ast.Return, ast.Break, ast.Continue:
			terminated = true
		}
	}
}

func (r *Resolver) ResolveStatement(stmt *ast.Node) {
	switch stmt.Type {
	case ast.VarDecl, ast.FuncDecl:
		r.ResolveDeclaration(stmt)

	case ast.Block:
		d := stmt.Data.(ast.BlockNode)
		if !r.cfg.IsFeatureEnabled(config.FeatBlockScope) {
			r.info.Scopes[stmt] = r.scope
			r.resolveStatements(d.Stmts)
			return
		}
		prev := r.scope
		r.scope = types.NewBlockScope(prev.Name, prev)
		r.info.Scopes[stmt] = r.scope
		r.resolveStatements(d.Stmts)
		r.scope = prev

	case ast.If:
		d := stmt.Data.(ast.IfNode)
		r.resolveCondition(d.Cond, "if")
		r.ResolveStatement(d.Then)
		if d.Else != nil {
			r.ResolveStatement(d.Else)
		}

	case ast.While:
		d := stmt.Data.(ast.WhileNode)
		r.resolveCondition(d.Cond, "while")
		prev := r.notInLoop
		r.notInLoop = false
		r.ResolveStatement(d.Body)
		r.notInLoop = prev

	case ast.Return:
		d := stmt.Data.(ast.ReturnNode)
		t := r.ResolveExpression(d.Expr)
		switch {
		case r.notInFunction:
			r.errorf(diag.SyntaxError, stmt.Tok, "'return' outside of a function")
			return
		case !r.notReturned:
			r.errorf(diag.SyntaxError, stmt.Tok, "Function '%s' already has a return statement", r.currentFunctionName)
		case !t.IsNone() && !r.returnType.IsNone() && !types.Equal(t, r.returnType):
			r.errorf(diag.TypeError, d.Expr.Tok, "Function '%s' returns '%s', not '%s'", r.currentFunctionName, r.returnType, t)
		}
		r.notReturned = false

	case ast.Break, ast.Continue:
		if r.notInLoop {
			r.errorf(diag.SyntaxError, stmt.Tok, "'%s' outside of a loop", stmt.Tok.Type)
		}

	case ast.ExprStmt:
		r.ResolveExpression(stmt.Data.(ast.ExprStmtNode).Expr)

	default:
		r.diags.Internalf(stmt.Tok, "Unreachable: %s is not a statement", stmt.Type)
	}
}

func (r *Resolver) resolveCondition(cond *ast.Node, keyword string) {
	t := r.ResolveExpression(cond)
	if !t.IsNone() && t.Kind != types.KindBoolean {
		r.errorf(diag.TypeError, cond.Tok, "'%s' condition must be bool, not '%s'", keyword, t)
		return
	}
	if v := r.info.ValueOf(cond); v.IsConstant() {
		r.warnf(config.WarnConstantCondition, cond.Tok, "'%s' condition is always %s", keyword, v)
	}
}
