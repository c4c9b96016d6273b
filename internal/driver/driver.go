// Package driver wires the pipeline stages together: chunk decode,
// upvalue binding, control-flow classification, block building, and IR
// lowering (§5). A file's prototypes decode into an immutable forest
// synchronously; once decoded, distinct prototypes have no shared
// state, so their block-building and lowering stages run concurrently.
package driver

import (
	"golang.org/x/sync/errgroup"

	"github.com/ntmck/lj-decompiler/internal/block"
	"github.com/ntmck/lj-decompiler/internal/bytecode"
	"github.com/ntmck/lj-decompiler/internal/chunk"
	"github.com/ntmck/lj-decompiler/internal/classify"
	"github.com/ntmck/lj-decompiler/internal/ir"
	"github.com/ntmck/lj-decompiler/internal/ljerrors"
	"github.com/ntmck/lj-decompiler/internal/lower"
)

// PrototypeResult holds one prototype's decoded form plus everything
// derived from it: its basic blocks and the IR node lowered from each
// instruction, index-aligned with Proto.Instructions.
type PrototypeResult struct {
	Proto  *chunk.Prototype
	Blocks []block.Block
	IR     []*ir.Expr
}

// Result is the full output of running one .ljc buffer through the
// pipeline, in prototype emission order. Diagnostics collects every
// UnsupportedFeature fault embedded as an ir.Error node while lowering,
// so a caller can surface "N instructions could not be translated"
// without walking every prototype's IR slice itself.
type Result struct {
	File        chunk.FileHeader
	Prototypes  []*PrototypeResult
	Diagnostics []*ljerrors.DecodeError
}

// Run decodes buf and lowers every prototype to IR. Any MalformedInput
// or UnsupportedFeature fault surfaces as a returned error (the latter
// only ever reaches here if it escapes the per-instruction embedding
// done in internal/lower, which should not happen); an
// InternalInvariant fault is re-panicked per §7, since it indicates a
// bug in this implementation rather than bad input.
func Run(buf []byte) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(*ljerrors.DecodeError)
			if !ok || de.Kind == ljerrors.InternalInvariant {
				panic(r)
			}
			err = de
		}
	}()

	p := chunk.Open(buf)
	forest := p.DecodeAll()
	if bindErr := chunk.BindUpvalues(forest); bindErr != nil {
		return nil, bindErr
	}

	results := make([]*PrototypeResult, len(forest))
	var g errgroup.Group
	for i, proto := range forest {
		i, proto := i, proto
		g.Go(func() error {
			r, lowerErr := lowerPrototype(proto)
			if lowerErr != nil {
				return lowerErr
			}
			results[i] = r
			return nil
		})
	}
	if waitErr := g.Wait(); waitErr != nil {
		return nil, waitErr
	}

	var diagnostics []*ljerrors.DecodeError
	for _, r := range results {
		for i, node := range r.IR {
			if node.Kind != ir.KindError {
				continue
			}
			ctx := ljerrors.Context{}.WithProto(r.Proto.ID).WithInstr(i)
			diagnostics = append(diagnostics, ljerrors.Unsupported(ctx, node.Message))
		}
	}

	return &Result{File: p.FileHeader(), Prototypes: results, Diagnostics: diagnostics}, nil
}

// lowerPrototype classifies and blocks a copy of proto's instruction
// stream (classify.Rewrite mutates in place, and the forest's own
// slice is shared with whatever else is reading it), then lowers every
// instruction to IR. A MalformedInput panic raised while lowering this
// prototype is caught and returned as an error so a sibling goroutine's
// InternalInvariant panic is not masked by it; InternalInvariant panics
// propagate to crash the process.
func lowerPrototype(proto *chunk.Prototype) (result *PrototypeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(*ljerrors.DecodeError)
			if !ok || de.Kind == ljerrors.InternalInvariant {
				panic(r)
			}
			err = de
		}
	}()

	instrs := make([]bytecode.Instruction, len(proto.Instructions))
	copy(instrs, proto.Instructions)
	classify.Rewrite(instrs)
	blocks := block.Build(instrs)

	nodes := make([]*ir.Expr, len(instrs))
	for i, in := range instrs {
		nodes[i] = lower.TranslateBCI(in)
	}

	return &PrototypeResult{Proto: proto, Blocks: blocks, IR: nodes}, nil
}
