package resolver

import (
	"math"

	"github.com/xplshn/tacc/pkg/ast"
	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/diag"
	"github.com/xplshn/tacc/pkg/token"
	"github.com/xplshn/tacc/pkg/types"
)

const (
	// largest magnitude a literal or unary '+' operand may have
	maxPositive = math.MaxInt32
	// largest magnitude a unary '-' operand may have
	maxNegative = -math.MinInt32
	// width of one argv element
	elementWidth = 8
)

// ResolveExpression computes the type of expr and, when it is a constant,
// its value. It always returns a type; errors yield types.None, which
// suppresses further diagnostics about the same subtree.
func (r *Resolver) ResolveExpression(expr *ast.Node) *types.Type {
	switch d := expr.Data.(type) {
	case ast.IntegerNode:
		v, ok := parseLiteral(d.Lexeme)
		if !ok {
			r.errorf(diag.OverflowError, expr.Tok, "Integer literal '%s' is out of range (max %d)", d.Lexeme, maxPositive)
			return r.info.record(expr, types.None, types.Value{})
		}
		return r.info.record(expr, types.Integer, types.IntegerValue(v))

	case ast.BooleanNode:
		return r.info.record(expr, types.Boolean, types.BooleanValue(d.Value))

	case ast.VariableNode:
		sym := r.scope.Lookup(d.Name)
		if sym == nil {
			r.errorf(diag.NameError, expr.Tok, "Referencing '%s' before declaring it", d.Name)
			return r.info.record(expr, types.None, types.Value{})
		}
		r.info.Symbols[expr] = sym
		return r.info.record(expr, sym.Type, types.Value{})

	case ast.UnaryNode:
		return r.resolveUnary(expr, d)

	case ast.BinaryNode:
		return r.resolveBinary(expr, d)

	case ast.AssignNode:
		return r.resolveAssign(expr, d)

	case ast.IndexNode:
		return r.resolveIndex(expr, d)

	case ast.CallNode:
		return r.resolveCall(expr, d)

	case ast.FunctionNode:
		r.errorf(diag.SyntaxError, expr.Tok, "Function expressions may only initialize a global declaration")
		return r.info.record(expr, types.None, types.Value{})
	}
	r.diags.Internalf(expr.Tok, "Unreachable: %s is not an expression", expr.Type)
	return types.None
}

// parseLiteral accumulates a decimal lexeme digit by digit and fails as
// soon as the magnitude exceeds the positive int32 bound.
func parseLiteral(lexeme string) (int64, bool) {
	var v int64
	for _, c := range lexeme {
		v = v*10 + int64(c-'0')
		if v > maxPositive {
			return 0, false
		}
	}
	return v, true
}

func (r *Resolver) folding() bool { return r.cfg.IsFeatureEnabled(config.FeatFold) }

func (r *Resolver) resolveUnary(expr *ast.Node, d ast.UnaryNode) *types.Type {
	t := r.ResolveExpression(d.Expr)
	if t.IsNone() {
		return r.info.record(expr, types.None, types.Value{})
	}
	operand := r.info.ValueOf(d.Expr)

	switch d.Op {
	case token.Plus, token.Minus:
		if t.Kind != types.KindInteger {
			r.errorf(diag.TypeError, expr.Tok, "Unary '%s' expects 'int', not '%s'", d.Op, t)
			return r.info.record(expr, types.None, types.Value{})
		}
		if !operand.IsConstant() || !r.folding() {
			return r.info.record(expr, types.Integer, types.Value{})
		}
		magnitude := operand.Integer
		if magnitude < 0 {
			magnitude = -magnitude
		}
		if d.Op == token.Plus {
			if magnitude > maxPositive {
				r.errorf(diag.OverflowError, expr.Tok, "Constant '+(%d)' is out of range", operand.Integer)
				return r.info.record(expr, types.None, types.Value{})
			}
			return r.info.record(expr, types.Integer, operand)
		}
		if magnitude > maxNegative {
			r.errorf(diag.OverflowError, expr.Tok, "Constant '-(%d)' is out of range", operand.Integer)
			return r.info.record(expr, types.None, types.Value{})
		}
		if -operand.Integer > math.MaxInt32 {
			r.errorf(diag.OverflowError, expr.Tok, "Constant expression overflows int (%d)", -operand.Integer)
			return r.info.record(expr, types.None, types.Value{})
		}
		return r.info.record(expr, types.Integer, types.IntegerValue(-operand.Integer))

	case token.Not:
		if t.Kind != types.KindBoolean {
			r.errorf(diag.TypeError, expr.Tok, "'not' expects 'bool', not '%s'", t)
			return r.info.record(expr, types.None, types.Value{})
		}
		if operand.IsConstant() && r.folding() {
			return r.info.record(expr, types.Boolean, types.BooleanValue(!operand.Boolean))
		}
		return r.info.record(expr, types.Boolean, types.Value{})
	}
	r.diags.Internalf(expr.Tok, "Unreachable: unary operator '%s'", d.Op)
	return types.None
}

func (r *Resolver) resolveBinary(expr *ast.Node, d ast.BinaryNode) *types.Type {
	lt, rt := r.ResolveExpression(d.Left), r.ResolveExpression(d.Right)
	if lt.IsNone() || rt.IsNone() {
		return r.info.record(expr, types.None, types.Value{})
	}
	lv, rv := r.info.ValueOf(d.Left), r.info.ValueOf(d.Right)

	var result *types.Type
	switch d.Op {
	case token.Plus, token.Minus, token.Star, token.Slash:
		if lt.Kind != types.KindInteger || rt.Kind != types.KindInteger {
			r.errorf(diag.TypeError, expr.Tok, "Operator '%s' expects 'int' operands, not '%s' and '%s'", d.Op, lt, rt)
			return r.info.record(expr, types.None, types.Value{})
		}
		result = types.Integer
		if d.Op == token.Slash && rv.IsConstant() && rv.Integer == 0 {
			r.warnf(config.WarnDivZero, d.Right.Tok, "Division by zero")
			return r.info.record(expr, result, types.Value{})
		}
	case token.Lt, token.Gt, token.Lte, token.Gte:
		if lt.Kind != types.KindInteger || rt.Kind != types.KindInteger {
			r.errorf(diag.TypeError, expr.Tok, "Operator '%s' expects 'int' operands, not '%s' and '%s'", d.Op, lt, rt)
			return r.info.record(expr, types.None, types.Value{})
		}
		result = types.Boolean
	case token.EqEq, token.Neq:
		comparable := lt.Kind == types.KindInteger || lt.Kind == types.KindBoolean
		if !comparable || lt.Kind != rt.Kind {
			r.errorf(diag.TypeError, expr.Tok, "Cannot compare '%s' with '%s'", lt, rt)
			return r.info.record(expr, types.None, types.Value{})
		}
		result = types.Boolean
	case token.And, token.Or:
		if lt.Kind != types.KindBoolean || rt.Kind != types.KindBoolean {
			r.errorf(diag.TypeError, expr.Tok, "Operator '%s' expects 'bool' operands, not '%s' and '%s'", d.Op, lt, rt)
			return r.info.record(expr, types.None, types.Value{})
		}
		result = types.Boolean
	default:
		r.diags.Internalf(expr.Tok, "Unreachable: binary operator '%s'", d.Op)
		return types.None
	}

	if !lv.IsConstant() || !rv.IsConstant() || !r.folding() {
		return r.info.record(expr, result, types.Value{})
	}
	v := foldBinary(d.Op, lv, rv)
	if v.Kind == types.ValueInteger && (v.Integer > math.MaxInt32 || v.Integer < math.MinInt32) {
		r.errorf(diag.OverflowError, expr.Tok, "Constant expression overflows int (%d)", v.Integer)
		return r.info.record(expr, types.None, types.Value{})
	}
	return r.info.record(expr, result, v)
}

// foldBinary evaluates a type-checked binary operator over two constants
func foldBinary(op token.Type, l, r types.Value) types.Value {
	switch op {
	case token.Plus:
		return types.IntegerValue(l.Integer + r.Integer)
	case token.Minus:
		return types.IntegerValue(l.Integer - r.Integer)
	case token.Star:
		return types.IntegerValue(l.Integer * r.Integer)
	case token.Slash:
		return types.IntegerValue(l.Integer / r.Integer)
	case token.Lt:
		return types.BooleanValue(l.Integer < r.Integer)
	case token.Gt:
		return types.BooleanValue(l.Integer > r.Integer)
	case token.Lte:
		return types.BooleanValue(l.Integer <= r.Integer)
	case token.Gte:
		return types.BooleanValue(l.Integer >= r.Integer)
	case token.EqEq:
		return types.BooleanValue(l == r)
	case token.Neq:
		return types.BooleanValue(l != r)
	case token.And:
		return types.BooleanValue(l.Boolean && r.Boolean)
	case token.Or:
		return types.BooleanValue(l.Boolean || r.Boolean)
	}
	return types.Value{}
}

func (r *Resolver) resolveAssign(expr *ast.Node, d ast.AssignNode) *types.Type {
	vt := r.ResolveExpression(d.Value)
	if d.Target.Type != ast.Variable {
		r.errorf(diag.SyntaxError, d.Target.Tok, "Invalid assignment target")
		return r.info.record(expr, types.None, types.Value{})
	}
	tt := r.ResolveExpression(d.Target)
	if sym := r.info.SymbolOf(d.Target); sym != nil && sym.Kind == types.Function {
		r.errorf(diag.SyntaxError, d.Target.Tok, "Cannot assign to function '%s'", sym.Identifier)
		return r.info.record(expr, types.None, types.Value{})
	}
	if tt.IsNone() || vt.IsNone() {
		return r.info.record(expr, types.None, types.Value{})
	}
	if !types.Equal(tt, vt) {
		r.errorf(diag.TypeError, expr.Tok, "Cannot assign a value of type '%s' to '%s' of type '%s'", vt, d.Target.Data.(ast.VariableNode).Name, tt)
		return r.info.record(expr, types.None, types.Value{})
	}
	return r.info.record(expr, tt, types.Value{})
}

// resolveIndex accepts only subscripts of main's array parameter
func (r *Resolver) resolveIndex(expr *ast.Node, d ast.IndexNode) *types.Type {
	tt := r.ResolveExpression(d.Target)
	it := r.ResolveExpression(d.Index)
	if tt.IsNone() || it.IsNone() {
		return r.info.record(expr, types.None, types.Value{})
	}
	if tt.Kind != types.KindArray {
		r.errorf(diag.TypeError, d.Target.Tok, "Cannot index a value of type '%s'", tt)
		return r.info.record(expr, types.None, types.Value{})
	}
	if r.entryArray == nil || r.info.SymbolOf(d.Target) != r.entryArray {
		r.errorf(diag.TypeError, d.Target.Tok, "Only the argument vector of 'main' can be indexed")
		return r.info.record(expr, types.None, types.Value{})
	}
	if it.Kind != types.KindInteger {
		r.errorf(diag.TypeError, d.Index.Tok, "Index must be 'int', not '%s'", it)
		return r.info.record(expr, types.None, types.Value{})
	}
	if v := r.info.ValueOf(d.Index); v.IsConstant() {
		if v.Integer < 0 {
			r.errorf(diag.IndexError, d.Index.Tok, "Negative index %d", v.Integer)
			return r.info.record(expr, types.None, types.Value{})
		}
		if v.Integer > math.MaxInt32/elementWidth {
			r.errorf(diag.OverflowError, d.Index.Tok, "Index %d overflows the element offset", v.Integer)
			return r.info.record(expr, types.None, types.Value{})
		}
	}
	return r.info.record(expr, tt.Element, types.Value{})
}

func (r *Resolver) resolveCall(expr *ast.Node, d ast.CallNode) *types.Type {
	ct := r.ResolveExpression(d.Callee)
	argTypes := make([]*types.Type, len(d.Args))
	for i, arg := range d.Args {
		argTypes[i] = r.ResolveExpression(arg)
	}
	if ct.IsNone() {
		return r.info.record(expr, types.None, types.Value{})
	}
	if ct.Kind != types.KindFunction {
		r.errorf(diag.TypeError, d.Callee.Tok, "Value of type '%s' is not callable", ct)
		return r.info.record(expr, types.None, types.Value{})
	}
	fn := ct.Function
	if len(d.Args) != fn.Arity {
		r.errorf(diag.TypeError, expr.Tok, "Function expects %d argument(s), got %d", fn.Arity, len(d.Args))
		return r.info.record(expr, types.None, types.Value{})
	}
	result := fn.ReturnType
	for i, at := range argTypes {
		pt := fn.Parameters[i].Type
		if !at.IsNone() && !pt.IsNone() && !types.Equal(at, pt) {
			r.errorf(diag.TypeError, d.Args[i].Tok, "Argument %d has type '%s', expected '%s'", i+1, at, pt)
			result = types.None
		}
	}
	return r.info.record(expr, result, types.Value{})
}
