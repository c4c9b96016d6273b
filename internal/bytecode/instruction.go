package bytecode

import "fmt"

// Registers holds the three raw operand bytes of one instruction and
// the derived 16-bit D slot. The canonical LuaJIT encoding is
// D = (B<<8) | C, B the high byte — one of the source repository's two
// conflicting revisions instead computes D = (C<<8)|B; that variant is
// NOT used here (§9 open question, resolved).
type Registers struct {
	A, C, B byte
	D       uint16
}

// NewRegisters assembles D from B and C per the canonical encoding.
func NewRegisters(a, c, b byte) Registers {
	return Registers{
		A: a,
		C: c,
		B: b,
		D: uint16(b)<<8 | uint16(c),
	}
}

// Instruction is one decoded 4-byte bytecode instruction together
// with its index within its owning prototype — needed to resolve
// relative jump targets.
type Instruction struct {
	Index int
	Op    Op
	Registers
}

// NewInstruction decodes one raw instruction.
func NewInstruction(index int, op, a, c, b byte) Instruction {
	return Instruction{
		Index:      index,
		Op:         Op(op),
		Registers:  NewRegisters(a, c, b),
	}
}

func (i Instruction) String() string {
	return fmt.Sprintf("%4d: [ %-6s => A: [%3d], C: [%3d], B: [%3d], D: [%5d] ]",
		i.Index, i.Op.Name(), i.A, i.C, i.B, i.D)
}

// JumpTarget computes the absolute instruction index this jump-family
// instruction targets (§4.6): 1 + index + D - 0x8000, i.e. D is a
// biased 16-bit signed offset with bias 0x8000.
func (i Instruction) JumpTarget() int {
	return 1 + i.Index + int(i.D) - 0x8000
}
