package codegen

import (
	"fmt"
	"strings"

	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/diag"
	"github.com/xplshn/tacc/pkg/ir"
	"github.com/xplshn/tacc/pkg/token"
	"github.com/xplshn/tacc/pkg/types"
)

// qbeBackend lowers the instruction stream to QBE IL. Every symbol gets a
// stack slot; values only live in SSA temporaries within one instruction.
type qbeBackend struct {
	out   *strings.Builder
	body  *strings.Builder
	prog  *ir.Program
	diags *diag.Reporter
	// word is the QBE class of a machine word, wordSize its width in bytes
	word     string
	wordSize int

	current  *types.Symbol
	slots    map[*types.Symbol]string
	order    []string
	params   []string
	pending  []string
	tmpCount int
	blkCount int
}

func NewQBEBackend() Backend { return &qbeBackend{} }

func (b *qbeBackend) Diagnostics() *diag.Reporter { return b.diags }

// GenerateIR renders prog as QBE IL without compiling it
func (b *qbeBackend) GenerateIR(prog *ir.Program, cfg *config.Config) (string, error) {
	var sb strings.Builder
	b.out, b.prog = &sb, prog
	if cfg == nil {
		cfg = config.NewConfig()
	}
	b.word, b.wordSize = cfg.WordType, cfg.WordSize
	b.diags = diag.NewReporter(diag.StageCodegen)
	b.current = nil

	if prog.Main == nil {
		b.diags.Errorf(diag.NameError, token.Token{}, "No '%s' function defined", entryPoint)
		return "", ErrDiagnostics
	}

	b.out.WriteString("data $int_format = { b \"Program exited with the value %d\", b 10, b 0 }\n")
	b.out.WriteString("data $bool_format = { b \"Program exited with the value %s\", b 10, b 0 }\n")
	b.out.WriteString("data $true_str = { b \"true\", b 0 }\n")
	b.out.WriteString("data $false_str = { b \"false\", b 0 }\n")
	for _, sym := range prog.Globals() {
		fmt.Fprintf(b.out, "data $%s = { %s %d }\n", symbolName(sym), b.word, dataWord(sym.Value))
	}

	for _, instr := range prog.Instructions {
		b.genInstr(instr)
	}

	if b.diags.HasErrors() {
		return "", ErrDiagnostics
	}
	return sb.String(), nil
}

func (b *qbeBackend) line(format string, args ...interface{}) {
	fmt.Fprintf(b.body, "\t"+format+"\n", args...)
}

func (b *qbeBackend) newTemp() string {
	b.tmpCount++
	return fmt.Sprintf("%%.v%d", b.tmpCount)
}

// block starts a fresh block; QBE needs one after every jump
func (b *qbeBackend) block() string {
	b.blkCount++
	label := fmt.Sprintf("@.b%d", b.blkCount)
	fmt.Fprintf(b.body, "%s\n", label)
	return label
}

func (b *qbeBackend) isEntry() bool { return b.current != nil && b.current == b.prog.Main }

// address returns the QBE value holding the address of sym's storage
func (b *qbeBackend) address(sym *types.Symbol) string {
	if sym.IsGlobal() && sym.Kind != types.Temp {
		return "$" + symbolName(sym)
	}
	if slot, ok := b.slots[sym]; ok {
		return slot
	}
	slot := fmt.Sprintf("%%.s%d", len(b.order))
	b.slots[sym] = slot
	b.order = append(b.order, slot)
	return slot
}

func (b *qbeBackend) loadOp(t *types.Type) string {
	switch t.Size {
	case 1:
		return "loadub"
	case 4:
		return "loadsw"
	}
	return "load" + b.word
}

func (b *qbeBackend) storeOp(t *types.Type) string {
	switch t.Size {
	case 1:
		return "storeb"
	case 4:
		return "storew"
	}
	return "store" + b.word
}

// load returns a word temporary holding the operand's value
func (b *qbeBackend) load(o ir.Operand) string {
	switch o := o.(type) {
	case *ir.Literal:
		switch o.Text {
		case "true":
			return "1"
		case "false":
			return "0"
		}
		return o.Text
	case *ir.Ref:
		tmp := b.newTemp()
		b.line("%s =%s %s %s", tmp, b.word, b.loadOp(o.Symbol.Type), b.address(o.Symbol))
		return tmp
	}
	return "0"
}

func (b *qbeBackend) store(o ir.Operand, value string, tok token.Token) {
	sym := ir.SymbolOf(o)
	if sym == nil {
		b.diags.Internalf(tok, "Unreachable: cannot store into literal '%s'", o)
		return
	}
	b.line("%s %s, %s", b.storeOp(sym.Type), value, b.address(sym))
}

var qbeOps = map[ir.Op]string{
	ir.OpAdd:          "add",
	ir.OpSub:          "sub",
	ir.OpMul:          "mul",
	ir.OpDiv:          "div",
	ir.OpAnd:          "and",
	ir.OpOr:           "or",
	ir.OpEqual:        "ceq",
	ir.OpNotEqual:     "cne",
	ir.OpLess:         "cslt",
	ir.OpLessEqual:    "csle",
	ir.OpGreater:      "csgt",
	ir.OpGreaterEqual: "csge",
}

// comparisons take the class of their operands as a suffix
func isComparison(op ir.Op) bool { return op >= ir.OpEqual && op <= ir.OpGreaterEqual }

func (b *qbeBackend) genInstr(instr *ir.Instruction) {
	tok := instr.Tok
	switch instr.Op {
	case ir.OpFunctionBegin:
		b.beginFunction(instr)

	case ir.OpFunctionEnd:
		if b.isEntry() {
			b.line("jmp @.exit")
			b.genEntryExit()
		} else {
			b.line("ret 0")
		}
		b.endFunction()

	case ir.OpReturn:
		value := b.load(instr.Arg1)
		if b.isEntry() {
			b.line("store%s %s, %%.ret", b.word, value)
			b.line("jmp @.exit")
		} else {
			b.line("ret %s", value)
		}
		b.block()

	case ir.OpLabel:
		fmt.Fprintf(b.body, "@%s\n", instr.Label)

	case ir.OpGoto:
		b.line("jmp @%s", instr.Label)
		b.block()

	case ir.OpGotoIfFalse:
		cond := b.load(instr.Arg1)
		next := fmt.Sprintf("@.b%d", b.blkCount+1)
		b.line("jnz %s, %s, @%s", cond, next, instr.Label)
		b.block()

	case ir.OpCopy:
		b.store(instr.Result, b.load(instr.Arg1), tok)

	case ir.OpMinus, ir.OpNot:
		value := b.load(instr.Arg1)
		tmp := b.newTemp()
		if instr.Op == ir.OpMinus {
			b.line("%s =%s neg %s", tmp, b.word, value)
		} else {
			b.line("%s =%s xor %s, 1", tmp, b.word, value)
		}
		b.store(instr.Result, tmp, tok)

	case ir.OpDereference:
		value := b.load(instr.Arg1)
		tmp := b.newTemp()
		b.line("%s =%s load%s %s", tmp, b.word, b.word, value)
		b.store(instr.Result, tmp, tok)

	case ir.OpStringToInteger:
		value := b.load(instr.Arg1)
		tmp := b.newTemp()
		b.line("%s =%s call $atoll(%s %s)", tmp, b.word, b.word, value)
		b.store(instr.Result, tmp, tok)

	case ir.OpParamPush:
		b.pending = append(b.pending, b.load(instr.Arg1))

	case ir.OpParamPop:

	case ir.OpCall:
		n := instr.Size
		if n > len(b.pending) {
			b.diags.Internalf(tok, "Unreachable: call to '%s' with %d pending argument(s)", instr.Arg1, len(b.pending))
			return
		}
		pushed := b.pending[len(b.pending)-n:]
		b.pending = b.pending[:len(b.pending)-n]
		args := make([]string, n)
		for i := range pushed {
			// pushed right to left
			args[i] = b.word + " " + pushed[n-1-i]
		}
		callee := ir.SymbolOf(instr.Arg1)
		if callee == nil {
			b.diags.Internalf(tok, "Unreachable: call through literal '%s'", instr.Arg1)
			return
		}
		tmp := b.newTemp()
		b.line("%s =%s call $%s(%s)", tmp, b.word, symbolName(callee), strings.Join(args, ", "))
		b.store(instr.Result, tmp, tok)

	default:
		op, ok := qbeOps[instr.Op]
		if !ok {
			b.diags.Internalf(tok, "Unsupported operation '%s'", instr.Op)
			return
		}
		l, r := b.load(instr.Arg1), b.load(instr.Arg2)
		if isComparison(instr.Op) {
			op += b.word
		}
		tmp := b.newTemp()
		b.line("%s =%s %s %s, %s", tmp, b.word, op, l, r)
		b.store(instr.Result, tmp, tok)
	}
}

func (b *qbeBackend) beginFunction(instr *ir.Instruction) {
	b.current = ir.SymbolOf(instr.Arg1)
	b.body = &strings.Builder{}
	b.slots = make(map[*types.Symbol]string)
	b.order = b.order[:0]
	b.pending = nil
	b.params = b.params[:0]

	fn := b.current.Type.Function
	for i, p := range fn.Parameters {
		name := fmt.Sprintf("%%.p%d", i)
		b.params = append(b.params, name)
		value := name
		if b.isEntry() {
			// hide the program name from argc/argv
			value = b.newTemp()
			if i == 0 {
				b.line("%s =w sub %s, 1", value, name)
			} else {
				b.line("%s =%s add %s, %d", value, b.word, name, b.wordSize)
			}
		}
		b.line("%s %s, %s", b.storeOp(p.Type), value, b.address(p))
	}
}

func (b *qbeBackend) genEntryExit() {
	fmt.Fprintf(b.body, "@.exit\n")
	value := b.newTemp()
	b.line("%s =%s load%s %%.ret", value, b.word, b.word)
	if b.current.Type.Function.ReturnType.Kind == types.KindBoolean {
		b.line("jnz %s, @.true, @.false", value)
		fmt.Fprintf(b.body, "@.true\n")
		b.line("call $printf(l $bool_format, ..., l $true_str)")
		b.line("ret 0")
		fmt.Fprintf(b.body, "@.false\n")
		b.line("call $printf(l $bool_format, ..., l $false_str)")
	} else {
		b.line("call $printf(l $int_format, ..., w %s)", value)
	}
	b.line("ret 0")
}

// endFunction writes the signature, hoists every slot allocation into the
// start block and appends the body.
func (b *qbeBackend) endFunction() {
	params := make([]string, len(b.params))
	for i, name := range b.params {
		params[i] = b.word + " " + name
	}
	if b.isEntry() && len(params) == 2 {
		params[0] = "w " + b.params[0]
	}

	ret := b.word
	if b.isEntry() {
		ret = "w"
	}
	fmt.Fprintf(b.out, "\nexport function %s $%s(%s) {\n@start\n", ret, symbolName(b.current), strings.Join(params, ", "))
	if b.isEntry() {
		fmt.Fprintf(b.out, "\t%%.ret =%s alloc8 %d\n", b.word, b.wordSize)
	}
	for _, slot := range b.order {
		fmt.Fprintf(b.out, "\t%s =%s alloc8 %d\n", slot, b.word, b.wordSize)
	}
	b.out.WriteString(b.body.String())
	b.out.WriteString("}\n")
	b.current = nil
}
