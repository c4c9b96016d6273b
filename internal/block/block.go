// Package block implements the basic-block builder (§4.8): given a
// prototype's instruction stream, already classified (see
// internal/classify), it partitions the stream into maximal
// straight-line runs that later IR lowering can address independently
// (and, per the concurrency model, lower concurrently across blocks
// of distinct prototypes).
package block

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/ntmck/lj-decompiler/internal/bytecode"
)

// Block is one maximal half-open instruction range [Start, Start+len).
// ID is the block's position in the sorted leader list; Next is the
// index of the following block, or -1 for the last block in a
// prototype.
type Block struct {
	ID           int
	Start        int
	Instructions []bytecode.Instruction
	Next         int
}

// String renders a Block the way a disassembly listing would: its id,
// start index, the next block's id (or none for the last block), and
// one line per instruction.
func (b Block) String() string {
	var lines []string
	for _, in := range b.Instructions {
		lines = append(lines, in.String())
	}
	next := "none"
	if b.Next >= 0 {
		next = fmt.Sprintf("%d", b.Next)
	}
	return fmt.Sprintf("B%d (start: %d, next: %s):\n%s", b.ID, b.Start, next, strings.Join(lines, "\n"))
}

// Build computes the leader set (§4.8) and slices instrs into Blocks.
// instrs must already have been through classify.Rewrite, so
// jump-family targets reflect the final GOTO/ITERJ opcodes.
func Build(instrs []bytecode.Instruction) []Block {
	if len(instrs) == 0 {
		return nil
	}

	leaders := leaderSet(instrs)

	blocks := make([]Block, 0, len(leaders))
	for i, start := range leaders {
		end := len(instrs)
		next := -1
		if i+1 < len(leaders) {
			end = leaders[i+1]
			next = i + 1
		}
		blocks = append(blocks, Block{
			ID:           i,
			Start:        start,
			Instructions: instrs[start:end],
			Next:         next,
		})
	}
	return blocks
}

func leaderSet(instrs []bytecode.Instruction) []int {
	set := map[int]struct{}{0: {}}

	for i, in := range instrs {
		if in.Op.IsComparison() && i+2 <= len(instrs) {
			set[i+2] = struct{}{}
		}
		if isJumpFamily(in.Op) {
			target := in.JumpTarget()
			if target >= 0 && target < len(instrs) {
				set[target] = struct{}{}
			}
		}
	}

	leaders := make([]int, 0, len(set))
	for idx := range set {
		leaders = append(leaders, idx)
	}
	slices.Sort(leaders)
	return leaders
}

// isJumpFamily reports whether op is a jump-family opcode after
// classification: unary test/copy, UCLO, JMP, GOTO, or ITERJ. GOTO and
// ITERJ only ever appear post-classification, so this differs from
// bytecode.Op.IsJumpFamily (which only knows the raw opcode set).
func isJumpFamily(op bytecode.Op) bool {
	return op.IsJumpFamily() || op == bytecode.GOTO || op == bytecode.ITERJ
}
