package ir

import (
	"fmt"
	"strings"
)

func (instr *Instruction) String() string {
	switch instr.Op {
	case OpLabel:
		return instr.Label + ":"
	case OpGoto:
		return fmt.Sprintf("\t%s %s", instr.Op, instr.Label)
	case OpGotoIfFalse:
		return fmt.Sprintf("\t%s %s, %s", instr.Op, instr.Arg1, instr.Label)
	case OpFunctionBegin, OpFunctionEnd:
		return fmt.Sprintf("%s %s, %d", instr.Op, instr.Arg1, instr.Size)
	}

	var args []string
	for _, arg := range []Operand{instr.Arg1, instr.Arg2} {
		if arg != nil {
			args = append(args, arg.String())
		}
	}
	if instr.Result == nil {
		return fmt.Sprintf("\t%s %s", instr.Op, strings.Join(args, ", "))
	}
	return fmt.Sprintf("\t%s = %s %s", instr.Result, instr.Op, strings.Join(args, ", "))
}

// String renders the program one instruction per line, preceded by the
// global variables and their initial values.
func (p *Program) String() string {
	var sb strings.Builder
	for _, sym := range p.Globals() {
		fmt.Fprintf(&sb, "GLOBAL %s: %s = %s\n", sym.Identifier, sym.Type, sym.Value)
	}
	for _, instr := range p.Instructions {
		sb.WriteString(instr.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
