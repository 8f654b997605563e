package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/tacc/pkg/config"
	"github.com/xplshn/tacc/pkg/diag"
	"github.com/xplshn/tacc/pkg/ir"
	"github.com/xplshn/tacc/pkg/token"
	"github.com/xplshn/tacc/pkg/types"
)

const (
	entryPoint     = "main"
	entryExitLabel = "..@main_exit"
)

// nasmBackend emits NASM x86-64 assembly. Symbols live in their stack slots
// or data words; registers are borrowed for one instruction at a time.
type nasmBackend struct {
	out     *strings.Builder
	prog    *ir.Program
	cfg     *config.Config
	diags   *diag.Reporter
	pool    *RegisterPool
	current *types.Symbol
}

func NewNASMBackend() Backend { return &nasmBackend{} }

func (b *nasmBackend) Diagnostics() *diag.Reporter { return b.diags }

func (b *nasmBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	var sb strings.Builder
	b.out, b.prog, b.cfg = &sb, prog, cfg
	b.diags = diag.NewReporter(diag.StageCodegen)
	b.pool = NewRegisterPool(b.diags)
	b.current = nil

	if cfg != nil && cfg.TargetArch != "amd64" {
		return nil, fmt.Errorf("nasm emits x86-64 only, target architecture is '%s'", cfg.TargetArch)
	}
	if prog.Main == nil {
		b.diags.Errorf(diag.NameError, token.Token{}, "No '%s' function defined", entryPoint)
		return nil, ErrDiagnostics
	}

	b.genPreamble()
	for _, instr := range prog.Instructions {
		b.genInstruction(instr)
	}
	b.genTrailer()

	if b.diags.HasErrors() {
		return nil, ErrDiagnostics
	}
	return bytes.NewBufferString(sb.String()), nil
}

func (b *nasmBackend) line(format string, args ...interface{}) {
	fmt.Fprintf(b.out, "\t"+format+"\n", args...)
}

func (b *nasmBackend) genPreamble() {
	b.out.WriteString("global main\n")
	b.out.WriteString("extern printf\n")
	b.out.WriteString("extern atoll\n\n")

	b.out.WriteString("section .data\n")
	b.out.WriteString("true: dq 1\n")
	b.out.WriteString("false: dq 0\n")
	b.out.WriteString("true_str: db \"true\", 0\n")
	b.out.WriteString("false_str: db \"false\", 0\n")
	for _, sym := range b.prog.Globals() {
		fmt.Fprintf(b.out, "%s: dq %d\n", symbolName(sym), dataWord(sym.Value))
	}
	b.out.WriteString("int_format: db \"Program exited with the value %d\", 10, 0\n")
	b.out.WriteString("bool_format: db \"Program exited with the value %s\", 10, 0\n")

	b.out.WriteString("\nsection .text\n")
}

func dataWord(v types.Value) int64 {
	switch v.Kind {
	case types.ValueInteger:
		return v.Integer
	case types.ValueBoolean:
		if v.Boolean {
			return 1
		}
	}
	return 0
}

// genTrailer prints main's return value, held in rax, and exits with 0
func (b *nasmBackend) genTrailer() {
	b.out.WriteString("\n" + entryExitLabel + ":\n")
	if b.prog.Main.Type.Function.ReturnType.Kind == types.KindBoolean {
		b.line("test rax, rax")
		b.line("mov rsi, false_str")
		b.line("mov rdx, true_str")
		b.line("cmovnz rsi, rdx")
		b.line("mov rdi, bool_format")
	} else {
		b.line("mov rsi, rax")
		b.line("mov rdi, int_format")
	}
	b.line("xor eax, eax")
	b.line("call printf")
	b.line("leave")
	b.line("add rsp, 16")
	b.line("xor eax, eax")
	b.line("ret")
}

// operand returns the memory operand of a symbol's storage
func (b *nasmBackend) operand(sym *types.Symbol) string {
	switch {
	case sym.IsGlobal() && sym.Kind != types.Temp:
		return "[" + symbolName(sym) + "]"
	case sym.Kind == types.Parameter:
		return fmt.Sprintf("[rbp+%d]", sym.Offset)
	}
	return fmt.Sprintf("[rbp-%d]", sym.Offset)
}

// load places operand in reg, widened to 64 bits
func (b *nasmBackend) load(reg Register, o ir.Operand) {
	switch o := o.(type) {
	case *ir.Literal:
		if o.Type != nil && o.Type.Kind == types.KindBoolean {
			b.line("mov %s, qword [%s]", reg.Quad, o.Text)
			return
		}
		b.line("mov %s, %s", reg.Quad, o.Text)
	case *ir.Ref:
		mem := b.operand(o.Symbol)
		switch o.Symbol.Type.Size {
		case 1:
			b.line("movzx %s, byte %s", reg.Quad, mem)
		case 4:
			b.line("movsxd %s, dword %s", reg.Quad, mem)
		default:
			b.line("mov %s, qword %s", reg.Quad, mem)
		}
	}
}

// store writes the low bytes of reg into the result symbol's storage
func (b *nasmBackend) store(o ir.Operand, reg Register, tok token.Token) {
	sym := ir.SymbolOf(o)
	if sym == nil {
		b.diags.Internalf(tok, "Unreachable: cannot store into literal '%s'", o)
		return
	}
	size := sym.Type.Size
	width := map[int]string{1: "byte", 4: "dword"}[size]
	if width == "" {
		width = "qword"
	}
	b.line("mov %s %s, %s", width, b.operand(sym), reg.Name(size))
}

// acquire allocates n scratch registers; on failure the ones already taken
// are released and ok is false.
func (b *nasmBackend) acquire(n int, tok token.Token) (regs []int, ok bool) {
	for i := 0; i < n; i++ {
		idx, ok := b.pool.Allocate(tok)
		if !ok {
			b.release(regs, tok)
			return nil, false
		}
		regs = append(regs, idx)
	}
	return regs, true
}

func (b *nasmBackend) release(regs []int, tok token.Token) {
	for _, idx := range regs {
		b.pool.Free(idx, tok)
	}
}

var (
	arithmeticOps = map[ir.Op]string{
		ir.OpAdd: "add",
		ir.OpSub: "sub",
		ir.OpMul: "imul",
		ir.OpAnd: "and",
		ir.OpOr:  "or",
	}
	conditionCodes = map[ir.Op]string{
		ir.OpEqual:        "e",
		ir.OpNotEqual:     "ne",
		ir.OpLess:         "l",
		ir.OpLessEqual:    "le",
		ir.OpGreater:      "g",
		ir.OpGreaterEqual: "ge",
	}
)

func (b *nasmBackend) isEntry() bool {
	return b.current != nil && b.current == b.prog.Main
}

func (b *nasmBackend) genInstruction(instr *ir.Instruction) {
	if instr.Op != ir.OpLabel && instr.Op != ir.OpFunctionBegin {
		b.line("; %s", strings.TrimSpace(instr.String()))
	}
	tok := instr.Tok

	switch instr.Op {
	case ir.OpFunctionBegin:
		b.current = ir.SymbolOf(instr.Arg1)
		fmt.Fprintf(b.out, "\n%s:\n", symbolName(b.current))
		if b.isEntry() {
			// hide the program name: argc-1 and argv+1, pushed as main's parameters
			b.line("dec rdi")
			b.line("add rsi, 8")
			b.line("push rsi")
			b.line("push rdi")
		}
		b.line("push rbp")
		b.line("mov rbp, rsp")
		if instr.Size > 0 {
			b.line("sub rsp, %d", instr.Size)
		}

	case ir.OpFunctionEnd, ir.OpReturn:
		if instr.Op == ir.OpReturn {
			b.load(rax, instr.Arg1)
		}
		if b.isEntry() {
			b.line("jmp %s", entryExitLabel)
		} else {
			b.line("leave")
			b.line("ret")
		}
		if instr.Op == ir.OpFunctionEnd {
			b.current = nil
		}

	case ir.OpLabel:
		fmt.Fprintf(b.out, ".%s:\n", instr.Label)

	case ir.OpGoto:
		b.line("jmp .%s", instr.Label)

	case ir.OpGotoIfFalse:
		regs, ok := b.acquire(1, tok)
		if !ok {
			return
		}
		r1 := b.pool.Register(regs[0])
		b.load(r1, instr.Arg1)
		b.line("test %s, %s", r1.Quad, r1.Quad)
		b.line("jz .%s", instr.Label)
		b.release(regs, tok)

	case ir.OpCopy, ir.OpMinus, ir.OpNot, ir.OpDereference:
		regs, ok := b.acquire(1, tok)
		if !ok {
			return
		}
		r1 := b.pool.Register(regs[0])
		b.load(r1, instr.Arg1)
		switch instr.Op {
		case ir.OpMinus:
			b.line("neg %s", r1.Quad)
		case ir.OpNot:
			b.line("xor %s, 1", r1.Quad)
		case ir.OpDereference:
			b.line("mov %s, qword [%s]", r1.Quad, r1.Quad)
		}
		b.store(instr.Result, r1, tok)
		b.release(regs, tok)

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpAnd, ir.OpOr, ir.OpDiv,
		ir.OpEqual, ir.OpNotEqual, ir.OpLess, ir.OpLessEqual, ir.OpGreater, ir.OpGreaterEqual:
		regs, ok := b.acquire(2, tok)
		if !ok {
			return
		}
		r1, r2 := b.pool.Register(regs[0]), b.pool.Register(regs[1])
		b.load(r1, instr.Arg1)
		b.load(r2, instr.Arg2)
		if mnemonic, isArith := arithmeticOps[instr.Op]; isArith {
			b.line("%s %s, %s", mnemonic, r1.Quad, r2.Quad)
		} else if cc, isCmp := conditionCodes[instr.Op]; isCmp {
			b.line("cmp %s, %s", r1.Quad, r2.Quad)
			b.line("set%s %s", cc, r1.Byte)
			b.line("movzx %s, %s", r1.Quad, r1.Byte)
		} else {
			b.line("mov rax, %s", r1.Quad)
			b.line("cqo")
			b.line("idiv %s", r2.Quad)
			b.line("mov %s, rax", r1.Quad)
		}
		b.store(instr.Result, r1, tok)
		b.release(regs, tok)

	case ir.OpParamPush:
		regs, ok := b.acquire(1, tok)
		if !ok {
			return
		}
		r1 := b.pool.Register(regs[0])
		b.load(r1, instr.Arg1)
		b.line("push %s", r1.Quad)
		b.release(regs, tok)

	case ir.OpParamPop:
		b.line("add rsp, 8")

	case ir.OpCall:
		callee := ir.SymbolOf(instr.Arg1)
		if callee == nil {
			b.diags.Internalf(tok, "Unreachable: call through literal '%s'", instr.Arg1)
			return
		}
		b.line("call %s", symbolName(callee))
		b.store(instr.Result, rax, tok)

	case ir.OpStringToInteger:
		regs, ok := b.acquire(1, tok)
		if !ok {
			return
		}
		r1 := b.pool.Register(regs[0])
		b.load(r1, instr.Arg1)
		b.line("mov rdi, %s", r1.Quad)
		b.release(regs, tok)
		b.line("call atoll")
		b.store(instr.Result, rax, tok)

	default:
		b.diags.Internalf(tok, "Unsupported operation '%s'", instr.Op)
	}
}
