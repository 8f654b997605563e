package ir

import (
	"fmt"
	"strconv"

	"github.com/xplshn/tacc/pkg/ast"
	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/diag"
	"github.com/xplshn/tacc/pkg/resolver"
	"github.com/xplshn/tacc/pkg/token"
	"github.com/xplshn/tacc/pkg/types"
)

type Generator struct {
	cfg          *config.Config
	info         *resolver.Info
	diags        *diag.Reporter
	instructions []*Instruction
	contexts     contextStack
	// frame receives the temporaries of the function being lowered
	frame      *types.Scope
	tempCount  int
	labelCount int
}

func NewGenerator(info *resolver.Info, cfg *config.Config) *Generator {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Generator{cfg: cfg, info: info, diags: diag.NewReporter(diag.StageIR)}
}

func (g *Generator) Diagnostics() *diag.Reporter { return g.diags }

// Generate lowers every declaration in order. Global variables live in
// the data section and produce no instructions.
func (g *Generator) Generate(decls []*ast.Node) *Program {
	prog := &Program{Global: g.info.Global}
	for _, decl := range decls {
		g.generateDeclaration(decl)
	}
	prog.Instructions = g.instructions
	if sym := g.info.Global.Get("main"); sym != nil && sym.Kind == types.Function {
		prog.Main = sym
	}
	return prog
}

func (g *Generator) emit(instr *Instruction) *Instruction {
	g.instructions = append(g.instructions, instr)
	return instr
}

func (g *Generator) newTemp(t *types.Type) *Ref {
	sym := &types.Symbol{Kind: types.Temp, Identifier: fmt.Sprintf("%%t%d", g.tempCount), Type: t}
	g.tempCount++
	g.frame.Declare(sym)
	return &Ref{Symbol: sym}
}

func (g *Generator) newLabel() string {
	label := fmt.Sprintf("L%d", g.labelCount)
	g.labelCount++
	return label
}

func (g *Generator) emitLabel(label string, tok token.Token) {
	g.emit(&Instruction{Op: OpLabel, Label: label, Tok: tok})
}

func (g *Generator) emitGoto(label string, tok token.Token) {
	g.emit(&Instruction{Op: OpGoto, Label: label, Tok: tok})
}

func (g *Generator) emitGotoIfFalse(cond Operand, label string, tok token.Token) {
	g.emit(&Instruction{Op: OpGotoIfFalse, Arg1: cond, Label: label, Tok: tok})
}

func (g *Generator) generateDeclaration(decl *ast.Node) {
	switch decl.Type {
	case ast.FuncDecl:
		g.generateFunction(decl)
	case ast.VarDecl:
		sym := g.info.SymbolOf(decl)
		if sym == nil {
			g.diags.Internalf(decl.Tok, "Unreachable: unresolved declaration '%s'", decl.Data.(ast.VarDeclNode).Name)
			return
		}
		if sym.IsGlobal() {
			return
		}
		value := g.GenerateExpression(decl.Data.(ast.VarDeclNode).Init)
		g.emit(&Instruction{Op: OpCopy, Arg1: value, Result: &Ref{Symbol: sym}, Tok: decl.Tok})
	default:
		g.diags.Internalf(decl.Tok, "Unreachable: %s is not a declaration", decl.Type)
	}
}

func (g *Generator) generateFunction(decl *ast.Node) {
	d := decl.Data.(ast.FuncDeclNode)
	sym := g.info.SymbolOf(decl)
	scope := g.info.ScopeOf(d.Func)
	if sym == nil || scope == nil {
		g.diags.Internalf(decl.Tok, "Unreachable: unresolved function '%s'", d.Name)
		return
	}

	prevFrame := g.frame
	g.frame = scope.Frame()
	defer func() { g.frame = prevFrame }()

	fn := &Ref{Symbol: sym}
	begin := g.emit(&Instruction{Op: OpFunctionBegin, Arg1: fn, Tok: decl.Tok})
	for _, stmt := range d.Func.Data.(ast.FunctionNode).Body.Data.(ast.BlockNode).Stmts {
		g.GenerateStatement(stmt)
	}
	end := g.emit(&Instruction{Op: OpFunctionEnd, Arg1: fn, Tok: decl.Tok})

	// temporaries are only known once the body is lowered
	size := scope.FrameSize(g.cfg.StackAlignment)
	begin.Size, end.Size = size, size
}

func (g *Generator) GenerateStatement(stmt *ast.Node) {
	switch d := stmt.Data.(type) {
	case ast.VarDeclNode, ast.FuncDeclNode:
		g.generateDeclaration(stmt)

	case ast.BlockNode:
		for _, s := range d.Stmts {
			g.GenerateStatement(s)
		}

	case ast.ExprStmtNode:
		g.GenerateExpression(d.Expr)

	case ast.ReturnNode:
		value := g.GenerateExpression(d.Expr)
		g.emit(&Instruction{Op: OpReturn, Arg1: value, Tok: stmt.Tok})

	case ast.WhileNode:
		ctx := &Context{Kind: ContextWhile, StartLabel: g.newLabel(), ExitLabel: g.newLabel()}
		g.contexts.push(ctx)
		g.emitLabel(ctx.StartLabel, stmt.Tok)
		cond := g.GenerateExpression(d.Cond)
		g.emitGotoIfFalse(cond, ctx.ExitLabel, stmt.Tok)
		g.GenerateStatement(d.Body)
		g.emitGoto(ctx.StartLabel, stmt.Tok)
		g.emitLabel(ctx.ExitLabel, stmt.Tok)
		g.contexts.pop()

	case ast.IfNode:
		g.generateIf(stmt, d)

	case ast.BreakNode:
		if loop := g.contexts.nearest(ContextWhile); loop != nil {
			g.emitGoto(loop.ExitLabel, stmt.Tok)
			return
		}
		g.diags.Internalf(stmt.Tok, "Unreachable: 'break' outside of a loop")

	case ast.ContinueNode:
		if loop := g.contexts.nearest(ContextWhile); loop != nil {
			g.emitGoto(loop.StartLabel, stmt.Tok)
			return
		}
		g.diags.Internalf(stmt.Tok, "Unreachable: 'continue' outside of a loop")

	default:
		g.diags.Internalf(stmt.Tok, "Unreachable: %s is not a statement", stmt.Type)
	}
}

// generateIf lowers one arm of an if-chain. The first arm opens an If
// context owning the chain's exit label; an `else if` arm reuses it, so the
// whole chain shares one exit LABEL emitted by the opener.
func (g *Generator) generateIf(stmt *ast.Node, d ast.IfNode) {
	top := g.contexts.top()
	opened := top == nil || top.Kind != ContextIf || top.NewContext
	if opened {
		g.contexts.push(&Context{Kind: ContextIf, ExitLabel: g.newLabel(), ExitNotGenerated: true, NewContext: true})
	}
	ctx := g.contexts.top()
	// statements nested in this arm start chains of their own
	ctx.NewContext = true

	cond := g.GenerateExpression(d.Cond)
	if d.Else == nil {
		g.emitGotoIfFalse(cond, ctx.ExitLabel, stmt.Tok)
		g.GenerateStatement(d.Then)
	} else {
		elseLabel := g.newLabel()
		g.emitGotoIfFalse(cond, elseLabel, stmt.Tok)
		g.GenerateStatement(d.Then)
		g.emitGoto(ctx.ExitLabel, stmt.Tok)
		g.emitLabel(elseLabel, stmt.Tok)
		if d.Else.Type == ast.If {
			prev := ctx.NewContext
			ctx.NewContext = false
			g.GenerateStatement(d.Else)
			ctx.NewContext = prev
		} else {
			g.GenerateStatement(d.Else)
		}
	}

	if opened && ctx.ExitNotGenerated {
		g.emitLabel(ctx.ExitLabel, stmt.Tok)
		ctx.ExitNotGenerated = false
		g.contexts.pop()
	}
}

var binaryOps = map[token.Type]Op{
	token.Plus:  OpAdd,
	token.Minus: OpSub,
	token.Star:  OpMul,
	token.Slash: OpDiv,
	token.EqEq:  OpEqual,
	token.Neq:   OpNotEqual,
	token.Lt:    OpLess,
	token.Lte:   OpLessEqual,
	token.Gt:    OpGreater,
	token.Gte:   OpGreaterEqual,
}

// GenerateExpression lowers expr and returns the operand holding its value
func (g *Generator) GenerateExpression(expr *ast.Node) Operand {
	t := g.info.TypeOf(expr)
	switch d := expr.Data.(type) {
	case ast.IntegerNode:
		text := d.Lexeme
		if v := g.info.ValueOf(expr); v.IsConstant() {
			text = v.String()
		}
		return g.copyLiteral(text, types.Integer, expr.Tok)

	case ast.BooleanNode:
		return g.copyLiteral(types.BooleanValue(d.Value).String(), types.Boolean, expr.Tok)

	case ast.VariableNode:
		sym := g.info.SymbolOf(expr)
		if sym == nil {
			g.diags.Internalf(expr.Tok, "Unreachable: unresolved identifier '%s'", d.Name)
			return &Literal{Text: "0", Type: types.Integer}
		}
		return &Ref{Symbol: sym}

	case ast.UnaryNode:
		operand := g.GenerateExpression(d.Expr)
		result := g.newTemp(t)
		op := OpCopy
		switch d.Op {
		case token.Minus:
			op = OpMinus
		case token.Not:
			op = OpNot
		}
		g.emit(&Instruction{Op: op, Arg1: operand, Result: result, Tok: expr.Tok})
		return result

	case ast.BinaryNode:
		switch d.Op {
		case token.And:
			return g.generateAnd(expr, d)
		case token.Or:
			return g.generateOr(expr, d)
		}
		left := g.GenerateExpression(d.Left)
		right := g.GenerateExpression(d.Right)
		op, ok := binaryOps[d.Op]
		if !ok {
			g.diags.Internalf(expr.Tok, "Unreachable: binary operator '%s'", d.Op)
			return left
		}
		result := g.newTemp(t)
		g.emit(&Instruction{Op: op, Arg1: left, Arg2: right, Result: result, Tok: expr.Tok})
		return result

	case ast.AssignNode:
		value := g.GenerateExpression(d.Value)
		target := g.GenerateExpression(d.Target)
		g.emit(&Instruction{Op: OpCopy, Arg1: value, Result: target, Tok: expr.Tok})
		return target

	case ast.IndexNode:
		return g.generateIndex(expr, d)

	case ast.CallNode:
		return g.generateCall(expr, d)
	}
	g.diags.Internalf(expr.Tok, "Unreachable: %s cannot be lowered as an expression", expr.Type)
	return &Literal{Text: "0", Type: types.Integer}
}

func (g *Generator) copyLiteral(text string, t *types.Type, tok token.Token) Operand {
	result := g.newTemp(t)
	g.emit(&Instruction{Op: OpCopy, Arg1: &Literal{Text: text, Type: t}, Result: result, Tok: tok})
	return result
}

// logicalResult materializes the outcome of a logical operator: the branch
// sequence already jumped to falseLabel when the result is false, so the
// first placeholder is cleared there and the two placeholders are ANDed at
// exit.
func (g *Generator) logicalResult(held, other *Ref, falseLabel, exit string, tok token.Token) Operand {
	g.emitGoto(exit, tok)
	g.emitLabel(falseLabel, tok)
	g.emit(&Instruction{Op: OpCopy, Arg1: &Literal{Text: "false", Type: types.Boolean}, Result: held, Tok: tok})
	g.emitLabel(exit, tok)
	result := g.newTemp(types.Boolean)
	g.emit(&Instruction{Op: OpAnd, Arg1: held, Arg2: other, Result: result, Tok: tok})
	return result
}

// generateAnd:
//
//	p = COPY true; q = COPY true; <a>; GOTO_IF_FALSE a,Lf; <b>; GOTO_IF_FALSE b,Lf
//	GOTO Lx; LABEL Lf; p = COPY false; LABEL Lx; r = AND p,q
func (g *Generator) generateAnd(expr *ast.Node, d ast.BinaryNode) Operand {
	held := g.copyLiteral("true", types.Boolean, expr.Tok).(*Ref)
	other := g.copyLiteral("true", types.Boolean, expr.Tok).(*Ref)
	falseLabel, exit := g.newLabel(), g.newLabel()
	left := g.GenerateExpression(d.Left)
	g.emitGotoIfFalse(left, falseLabel, expr.Tok)
	right := g.GenerateExpression(d.Right)
	g.emitGotoIfFalse(right, falseLabel, expr.Tok)
	return g.logicalResult(held, other, falseLabel, exit, expr.Tok)
}

// generateOr:
//
//	p = COPY true; q = COPY true; <a>; GOTO_IF_FALSE a,Lr; GOTO Lx; LABEL Lr
//	<b>; GOTO_IF_FALSE b,Lf; GOTO Lx; LABEL Lf; p = COPY false; LABEL Lx; r = AND p,q
func (g *Generator) generateOr(expr *ast.Node, d ast.BinaryNode) Operand {
	held := g.copyLiteral("true", types.Boolean, expr.Tok).(*Ref)
	other := g.copyLiteral("true", types.Boolean, expr.Tok).(*Ref)
	rhs, falseLabel, exit := g.newLabel(), g.newLabel(), g.newLabel()
	left := g.GenerateExpression(d.Left)
	g.emitGotoIfFalse(left, rhs, expr.Tok)
	g.emitGoto(exit, expr.Tok)
	g.emitLabel(rhs, expr.Tok)
	right := g.GenerateExpression(d.Right)
	g.emitGotoIfFalse(right, falseLabel, expr.Tok)
	return g.logicalResult(held, other, falseLabel, exit, expr.Tok)
}

// generateIndex: offset = i*word, address = argv+offset, then load the string
// pointer and convert it at runtime.
func (g *Generator) generateIndex(expr *ast.Node, d ast.IndexNode) Operand {
	index := g.GenerateExpression(d.Index)
	base := g.GenerateExpression(d.Target)

	offset := g.newTemp(types.Integer)
	g.emit(&Instruction{Op: OpMul, Arg1: index, Arg2: &Literal{Text: strconv.Itoa(g.cfg.WordSize), Type: types.Integer}, Result: offset, Tok: expr.Tok})
	address := g.newTemp(TypeOf(base))
	g.emit(&Instruction{Op: OpAdd, Arg1: base, Arg2: offset, Result: address, Tok: expr.Tok})
	str := g.newTemp(TypeOf(base))
	g.emit(&Instruction{Op: OpDereference, Arg1: address, Result: str, Tok: expr.Tok})
	value := g.newTemp(types.Integer)
	g.emit(&Instruction{Op: OpStringToInteger, Arg1: str, Result: value, Tok: expr.Tok})
	return value
}

// generateCall evaluates all arguments left to right, pushes them right to
// left and pops them left to right after the call.
func (g *Generator) generateCall(expr *ast.Node, d ast.CallNode) Operand {
	callee := g.GenerateExpression(d.Callee)
	args := make([]Operand, len(d.Args))
	for i, arg := range d.Args {
		args[i] = g.GenerateExpression(arg)
	}
	for i := len(args) - 1; i >= 0; i-- {
		g.emit(&Instruction{Op: OpParamPush, Arg1: args[i], Tok: d.Args[i].Tok})
	}
	result := g.newTemp(g.info.TypeOf(expr))
	g.emit(&Instruction{Op: OpCall, Arg1: callee, Result: result, Size: len(args), Tok: expr.Tok})
	for i := range args {
		g.emit(&Instruction{Op: OpParamPop, Arg1: args[i], Tok: d.Args[i].Tok})
	}
	return result
}
