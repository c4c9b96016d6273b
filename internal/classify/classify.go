// Package classify implements the control-flow classifier (§4.7): it
// rewrites a prototype's jump-family opcodes in place so that later
// stages never need to pattern-match branch structure out of a raw
// JMP stream. JMP (84) is overloaded by the source compiler for
// structured branch exits, explicit gotos, and iterator back-edges;
// this pass tells them apart structurally and synthesizes GOTO (93)
// and ITERJ (94) accordingly.
package classify

import "github.com/ntmck/lj-decompiler/internal/bytecode"

type mark int

const (
	unexpected mark = iota
	expected
	iterJ
)

// Rewrite classifies and rewrites instrs in place. Safe to call once
// per prototype, after decoding and before block building.
func Rewrite(instrs []bytecode.Instruction) {
	marks := make([]mark, len(instrs))

	for i := range instrs {
		if !instrs[i].Op.IsComparison() {
			continue
		}
		if i+1 >= len(instrs) {
			continue
		}
		marks[i+1] = expected
		target := instrs[i+1].JumpTarget() - 1
		if target >= 0 && target < len(marks) {
			marks[target] = expected
		}
	}

	for i := range instrs {
		if marks[i] != unexpected {
			continue
		}
		if instrs[i].Op != bytecode.JMP {
			continue
		}
		target := instrs[i].JumpTarget()
		if target >= 0 && target < len(instrs) && instrs[target].Op == bytecode.ITERC {
			marks[i] = iterJ
		}
	}

	for i := range instrs {
		switch {
		case marks[i] == unexpected && (instrs[i].Op == bytecode.JMP || instrs[i].Op == bytecode.UCLO):
			instrs[i].Op = bytecode.GOTO
		case marks[i] == iterJ && instrs[i].Op == bytecode.JMP:
			instrs[i].Op = bytecode.ITERJ
		}
	}
}
