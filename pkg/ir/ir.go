// Package ir defines the three-address instruction stream and lowers a
// resolved syntax tree into it.
package ir

import (
	"github.com/xplshn/tacc/pkg/token"
	"github.com/xplshn/tacc/pkg/types"
)

type Op int

const (
	OpCopy Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMinus
	OpNot
	OpAnd
	OpOr
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpLabel
	OpGoto
	OpGotoIfFalse
	OpFunctionBegin
	OpFunctionEnd
	OpParamPush
	OpParamPop
	OpCall
	OpReturn
	OpDereference
	OpStringToInteger
)

var opNames = [...]string{
	OpCopy:            "COPY",
	OpAdd:             "ADD",
	OpSub:             "SUB",
	OpMul:             "MUL",
	OpDiv:             "DIV",
	OpMinus:           "MINUS",
	OpNot:             "NOT",
	OpAnd:             "AND",
	OpOr:              "OR",
	OpEqual:           "EQUAL",
	OpNotEqual:        "NOT_EQUAL",
	OpLess:            "LESS",
	OpLessEqual:       "LESS_EQUAL",
	OpGreater:         "GREATER",
	OpGreaterEqual:    "GREATER_EQUAL",
	OpLabel:           "LABEL",
	OpGoto:            "GOTO",
	OpGotoIfFalse:     "GOTO_IF_FALSE",
	OpFunctionBegin:   "FUNCTION_BEGIN",
	OpFunctionEnd:     "FUNCTION_END",
	OpParamPush:       "PARAM_PUSH",
	OpParamPop:        "PARAM_POP",
	OpCall:            "CALL",
	OpReturn:          "RETURN",
	OpDereference:     "DEREFERENCE",
	OpStringToInteger: "STRING_TO_INTEGER",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "UNKNOWN"
}

// Operand is either a symbol reference or literal text
type Operand interface {
	isOperand()
	String() string
}

// Ref names a variable, parameter, function or temporary
type Ref struct{ Symbol *types.Symbol }

// Literal is the normalized text of a constant, e.g. "42" or "true"
type Literal struct {
	Text string
	Type *types.Type
}

func (r *Ref) isOperand()     {}
func (l *Literal) isOperand() {}

func (r *Ref) String() string     { return r.Symbol.Identifier }
func (l *Literal) String() string { return l.Text }

// Type returns the type of any operand
func TypeOf(o Operand) *types.Type {
	switch o := o.(type) {
	case *Ref:
		return o.Symbol.Type
	case *Literal:
		return o.Type
	}
	return types.None
}

// SymbolOf returns the symbol behind a Ref, or nil for literals
func SymbolOf(o Operand) *types.Symbol {
	if r, ok := o.(*Ref); ok {
		return r.Symbol
	}
	return nil
}

// Instruction is a quad. Label is set for LABEL, GOTO and GOTO_IF_FALSE;
// Size is the frame size on FUNCTION_BEGIN/FUNCTION_END.
type Instruction struct {
	Op     Op
	Arg1   Operand
	Arg2   Operand
	Result Operand
	Label  string
	Size   int
	Tok    token.Token
}

type Program struct {
	Instructions []*Instruction
	Global       *types.Scope
	// Main is the entry point, nil when the program has none
	Main *types.Symbol
}

// Globals returns the global variables in declaration order
func (p *Program) Globals() []*types.Symbol {
	var globals []*types.Symbol
	for _, sym := range p.Global.Symbols() {
		if sym.Kind == types.Variable {
			globals = append(globals, sym)
		}
	}
	return globals
}

// Ops returns the operation of every instruction, in order
func (p *Program) Ops() []Op {
	ops := make([]Op, len(p.Instructions))
	for i, instr := range p.Instructions {
		ops[i] = instr.Op
	}
	return ops
}
