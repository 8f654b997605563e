package codegen

import (
	"github.com/xplshn/tacc/pkg/diag"
	"github.com/xplshn/tacc/pkg/token"
)

// Register names one x86-64 register at each operand width
type Register struct {
	Quad  string
	Dword string
	Byte  string
}

// Name returns the register's name for an operand of size bytes
func (r Register) Name(size int) string {
	switch size {
	case 1:
		return r.Byte
	case 4:
		return r.Dword
	}
	return r.Quad
}

var (
	rax = Register{"rax", "eax", "al"}

	// caller-saved registers never used for argument passing by the
	// generated code, lent out for the duration of one instruction
	scratchRegisters = [...]Register{
		{"rcx", "ecx", "cl"},
		{"rsi", "esi", "sil"},
		{"rdi", "edi", "dil"},
		{"r8", "r8d", "r8b"},
		{"r9", "r9d", "r9b"},
		{"r10", "r10d", "r10b"},
	}
)

// RegisterPool tracks which scratch registers are in use. Each backend
// instance owns its pool.
type RegisterPool struct {
	inUse [len(scratchRegisters)]bool
	diags *diag.Reporter
}

func NewRegisterPool(diags *diag.Reporter) *RegisterPool {
	return &RegisterPool{diags: diags}
}

// Allocate returns the index of the first free register, or false with a
// diagnostic when all of them are taken.
func (p *RegisterPool) Allocate(tok token.Token) (int, bool) {
	for i, used := range p.inUse {
		if !used {
			p.inUse[i] = true
			return i, true
		}
	}
	p.diags.Internalf(tok, "out of free registers")
	return -1, false
}

func (p *RegisterPool) Free(index int, tok token.Token) {
	if index < 0 || index >= len(p.inUse) || !p.inUse[index] {
		p.diags.Internalf(tok, "trying to free already-freed register")
		return
	}
	p.inUse[index] = false
}

func (p *RegisterPool) FreeAll() {
	p.inUse = [len(scratchRegisters)]bool{}
}

// InUse counts the allocated registers
func (p *RegisterPool) InUse() int {
	n := 0
	for _, used := range p.inUse {
		if used {
			n++
		}
	}
	return n
}

// Register returns the register behind an index handed out by Allocate
func (p *RegisterPool) Register(index int) Register { return scratchRegisters[index] }
