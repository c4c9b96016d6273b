package classify

import (
	"testing"

	"github.com/ntmck/lj-decompiler/internal/bytecode"
)

func in(index int, op bytecode.Op, a, c, b byte) bytecode.Instruction {
	return bytecode.NewInstruction(index, byte(op), a, c, b)
}

// jmpTo builds a JMP (or UCLO) instruction at index whose D encodes an
// absolute target, inverting Instruction.JumpTarget's bias arithmetic.
func jmpTo(index int, op bytecode.Op, target int) bytecode.Instruction {
	d := target - 1 - index + 0x8000
	return bytecode.NewInstruction(index, byte(op), 0, byte(d&0xFF), byte((d>>8)&0xFF))
}

func TestComparisonPairedJumpStaysJMP(t *testing.T) {
	// 0: ISLT   1: JMP -> 3   2: (branch body)   3: target
	instrs := []bytecode.Instruction{
		in(0, bytecode.ISLT, 0, 0, 0),
		jmpTo(1, bytecode.JMP, 3),
		in(2, bytecode.MOV, 0, 0, 0),
		in(3, bytecode.RET0, 0, 0, 0),
	}
	Rewrite(instrs)
	if instrs[1].Op != bytecode.JMP {
		t.Fatalf("paired jump rewritten to %s, want JMP unchanged", instrs[1].Op)
	}
}

func TestUnpairedJumpBecomesGoto(t *testing.T) {
	instrs := []bytecode.Instruction{
		jmpTo(0, bytecode.JMP, 2),
		in(1, bytecode.MOV, 0, 0, 0),
		in(2, bytecode.RET0, 0, 0, 0),
	}
	Rewrite(instrs)
	if instrs[0].Op != bytecode.GOTO {
		t.Fatalf("unpaired jump = %s, want GOTO", instrs[0].Op)
	}
}

func TestUnpairedUcloBecomesGoto(t *testing.T) {
	instrs := []bytecode.Instruction{
		in(0, bytecode.UCLO, 0, 0, 0),
		in(1, bytecode.RET0, 0, 0, 0),
	}
	Rewrite(instrs)
	if instrs[0].Op != bytecode.GOTO {
		t.Fatalf("unpaired UCLO = %s, want GOTO", instrs[0].Op)
	}
}

func TestJumpToIterCBecomesIterJ(t *testing.T) {
	instrs := []bytecode.Instruction{
		in(0, bytecode.ITERC, 0, 0, 0),
		jmpTo(1, bytecode.JMP, 0),
	}
	Rewrite(instrs)
	if instrs[1].Op != bytecode.ITERJ {
		t.Fatalf("back-edge jump = %s, want ITERJ", instrs[1].Op)
	}
}

func TestEndingJumpOfBranchStaysExpected(t *testing.T) {
	// 0: ISLT  1: JMP -> 4 (paired)  2: MOV  3: JMP -> 5 (the "ending jump", at paired target-1 == 3)
	// Construct so that bci[bci[1].target-1] is instruction 3, matching
	// the second Expected marking rule.
	instrs := []bytecode.Instruction{
		in(0, bytecode.ISLT, 0, 0, 0),
		jmpTo(1, bytecode.JMP, 4), // target 4, so target-1 == index 3 is marked Expected.
		in(2, bytecode.MOV, 0, 0, 0),
		jmpTo(3, bytecode.JMP, 5),
		in(4, bytecode.MOV, 0, 0, 0),
		in(5, bytecode.RET0, 0, 0, 0),
	}
	Rewrite(instrs)
	if instrs[3].Op != bytecode.JMP {
		t.Fatalf("ending jump of branch = %s, want JMP unchanged (marked Expected)", instrs[3].Op)
	}
	if instrs[1].Op != bytecode.JMP {
		t.Fatalf("paired jump = %s, want JMP unchanged", instrs[1].Op)
	}
}
