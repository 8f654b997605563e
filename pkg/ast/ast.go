// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"github.com/xplshn/tacc/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Expressions
	Integer NodeType = iota
	Boolean
	Variable
	Unary
	Binary
	Assign
	Index
	Call
	Function

	// Statements
	Block
	If
	While
	Return
	Break
	Continue
	ExprStmt

	// Declarations
	VarDecl
	FuncDecl

	// Helpers
	TypeSpec
	Param
)

var nodeTypeNames = [...]string{
	Integer: "Integer", Boolean: "Boolean", Variable: "Variable", Unary: "Unary", Binary: "Binary",
	Assign: "Assign", Index: "Index", Call: "Call", Function: "Function",
	Block: "Block", If: "If", While: "While", Return: "Return", Break: "Break", Continue: "Continue",
	ExprStmt: "ExprStmt", VarDecl: "VarDecl", FuncDecl: "FuncDecl", TypeSpec: "TypeSpec", Param: "Param",
}

func (t NodeType) String() string { return nodeTypeNames[t] }

// Node represents a node in the Abstract Syntax Tree. Nodes are never
// mutated after parsing; derived facts live in the resolver's side-table.
type Node struct {
	Type   NodeType
	Tok    token.Token
	Parent *Node
	Data   interface{}
}

// --- Node Data Structs ---

// IntegerNode keeps the literal's lexeme; its value is computed by the resolver
type IntegerNode struct{ Lexeme string }
type BooleanNode struct{ Value bool }
type VariableNode struct{ Name string }
type UnaryNode struct {
	Op   token.Type
	Expr *Node
}
type BinaryNode struct {
	Op          token.Type
	Left, Right *Node
}
type AssignNode struct{ Target, Value *Node }
type IndexNode struct{ Target, Index *Node }
type CallNode struct {
	Callee *Node
	Args   []*Node
}
type FunctionNode struct {
	Params []*Node
	Body   *Node
}
type BlockNode struct{ Stmts []*Node }
type IfNode struct{ Cond, Then, Else *Node }
type WhileNode struct{ Cond, Body *Node }
type ReturnNode struct{ Expr *Node }
type BreakNode struct{}
type ContinueNode struct{}
type ExprStmtNode struct{ Expr *Node }
type VarDeclNode struct {
	Name string
	Type *Node
	Init *Node
}

// FuncDeclNode is a declaration whose initializer is a function expression.
// ReturnType is the declaration's type specifier.
type FuncDeclNode struct {
	Name       string
	ReturnType *Node
	Func       *Node
}

// TypeSpecNode names a primitive ("int", "bool") or, when Element is set, an array
type TypeSpecNode struct {
	Name    string
	Element *Node
}
type ParamNode struct {
	Name string
	Type *Node
}

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}, children ...*Node) *Node {
	node := &Node{Type: nodeType, Tok: tok, Data: data}
	for _, child := range children {
		if child != nil {
			child.Parent = node
		}
	}
	return node
}

func NewInteger(tok token.Token, lexeme string) *Node {
	return newNode(tok, Integer, IntegerNode{Lexeme: lexeme})
}
func NewBoolean(tok token.Token, value bool) *Node {
	return newNode(tok, Boolean, BooleanNode{Value: value})
}
func NewVariable(tok token.Token, name string) *Node {
	return newNode(tok, Variable, VariableNode{Name: name})
}
func NewUnary(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, Unary, UnaryNode{Op: op, Expr: expr}, expr)
}
func NewBinary(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, Binary, BinaryNode{Op: op, Left: left, Right: right}, left, right)
}
func NewAssign(tok token.Token, target, value *Node) *Node {
	return newNode(tok, Assign, AssignNode{Target: target, Value: value}, target, value)
}
func NewIndex(tok token.Token, target, index *Node) *Node {
	return newNode(tok, Index, IndexNode{Target: target, Index: index}, target, index)
}
func NewCall(tok token.Token, callee *Node, args []*Node) *Node {
	return newNode(tok, Call, CallNode{Callee: callee, Args: args}, append([]*Node{callee}, args...)...)
}
func NewFunction(tok token.Token, params []*Node, body *Node) *Node {
	return newNode(tok, Function, FunctionNode{Params: params, Body: body}, append([]*Node{body}, params...)...)
}
func NewBlock(tok token.Token, stmts []*Node) *Node {
	return newNode(tok, Block, BlockNode{Stmts: stmts}, stmts...)
}
func NewIf(tok token.Token, cond, thenBody, elseBody *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, Then: thenBody, Else: elseBody}, cond, thenBody, elseBody)
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body}, cond, body)
}
func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, ReturnNode{Expr: expr}, expr)
}
func NewBreak(tok token.Token) *Node {
	return newNode(tok, Break, BreakNode{})
}
func NewContinue(tok token.Token) *Node {
	return newNode(tok, Continue, ContinueNode{})
}
func NewExprStmt(tok token.Token, expr *Node) *Node {
	return newNode(tok, ExprStmt, ExprStmtNode{Expr: expr}, expr)
}
func NewVarDecl(tok token.Token, name string, typ, init *Node) *Node {
	return newNode(tok, VarDecl, VarDeclNode{Name: name, Type: typ, Init: init}, typ, init)
}
func NewFuncDecl(tok token.Token, name string, returnType, fn *Node) *Node {
	return newNode(tok, FuncDecl, FuncDeclNode{Name: name, ReturnType: returnType, Func: fn}, returnType, fn)
}
func NewTypeSpec(tok token.Token, name string, element *Node) *Node {
	return newNode(tok, TypeSpec, TypeSpecNode{Name: name, Element: element}, element)
}
func NewParam(tok token.Token, name string, typ *Node) *Node {
	return newNode(tok, Param, ParamNode{Name: name, Type: typ}, typ)
}

// Walk calls fn for node and its descendants in source order, stopping at
// subtrees for which fn returns false.
func Walk(node *Node, fn func(*Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, child := range Children(node) {
		Walk(child, fn)
	}
}

// Children returns the direct children of node in source order
func Children(node *Node) []*Node {
	switch d := node.Data.(type) {
	case UnaryNode:
		return []*Node{d.Expr}
	case BinaryNode:
		return []*Node{d.Left, d.Right}
	case AssignNode:
		return []*Node{d.Target, d.Value}
	case IndexNode:
		return []*Node{d.Target, d.Index}
	case CallNode:
		return append([]*Node{d.Callee}, d.Args...)
	case FunctionNode:
		return append(append([]*Node{}, d.Params...), d.Body)
	case BlockNode:
		return d.Stmts
	case IfNode:
		if d.Else == nil {
			return []*Node{d.Cond, d.Then}
		}
		return []*Node{d.Cond, d.Then, d.Else}
	case WhileNode:
		return []*Node{d.Cond, d.Body}
	case ReturnNode:
		return []*Node{d.Expr}
	case ExprStmtNode:
		return []*Node{d.Expr}
	case VarDeclNode:
		return []*Node{d.Type, d.Init}
	case FuncDeclNode:
		return []*Node{d.ReturnType, d.Func}
	case TypeSpecNode:
		if d.Element != nil {
			return []*Node{d.Element}
		}
	case ParamNode:
		return []*Node{d.Type}
	}
	return nil
}
