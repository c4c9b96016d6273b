// Package lower translates one decoded, classified instruction into
// the algebraic IR (§4.9). Each opcode range has its own fixed
// lowering rule; opcodes the core leaves unimplemented (KCDATA, KNIL,
// TSETM, RETM, ITERC, ITERN, ISNEXT, JFORI, IFORL, JFORL, the iterator
// and normal loop opcodes ITERL..JLOOP, the function-header opcodes,
// and the synthetic ITERJ) produce a non-fatal ir.Error node instead
// of panicking, since a single unsupported instruction in one function
// shouldn't prevent the rest of a chunk from decompiling.
package lower

import (
	"github.com/ntmck/lj-decompiler/internal/bytecode"
	"github.com/ntmck/lj-decompiler/internal/ir"
)

// TranslateBCI lowers one instruction to its IR expression.
func TranslateBCI(in bytecode.Instruction) *ir.Expr {
	op := in.Op
	switch {
	case op.IsComparison() || op.IsUnaryTestOrCopy():
		return comparison(in)
	case op.IsUnary():
		return unary(in)
	case op.IsArith() || op == bytecode.POW || op == bytecode.CAT:
		return arith(in)
	case op.IsConstantLoad():
		return constant(in)
	case op.IsUpvalueOp():
		return uv(in)
	case op == bytecode.FNEW:
		return ir.Move(ir.Var(uint16(in.A)), fnew(in.D))
	case op.IsTableOp():
		return table(in)
	case op.IsCallOrVararg():
		return call(in)
	case op.IsRet():
		return ret(in)
	case op.IsForLoop():
		return forLoop(in)
	case op == bytecode.JMP:
		return ir.Target(uint32(in.JumpTarget()))
	case op == bytecode.GOTO:
		return &ir.Expr{Kind: ir.KindGoto, A: ir.Target(uint32(in.JumpTarget()))}
	default:
		return ir.Error("translate_bci: unsupported opcode %s at index %d", op.Name(), in.Index)
	}
}

func varAB(in bytecode.Instruction) (*ir.Expr, *ir.Expr) {
	return ir.Var(uint16(in.A)), ir.Var(uint16(in.B))
}

func varAD(in bytecode.Instruction) (*ir.Expr, *ir.Expr) {
	return ir.Var(uint16(in.A)), ir.Var(in.D)
}

func unary(in bytecode.Instruction) *ir.Expr {
	a, d := varAD(in)
	switch in.Op {
	case bytecode.MOV:
		return ir.Move(a, d)
	case bytecode.NOT:
		return ir.Move(a, ir.Not(d))
	case bytecode.UNM:
		return ir.Move(a, ir.Unm(d))
	case bytecode.LEN:
		return ir.Move(a, ir.Len(d))
	default:
		return ir.Error("unary: unexpected opcode %s", in.Op)
	}
}

// comparison handles both the true comparisons (0..11) and the unary
// test/copy family (12..15, ISTC/ISFC/IST/ISF), which the source
// compiler encodes as one contiguous opcode block.
func comparison(in bytecode.Instruction) *ir.Expr {
	if in.Op.IsUnaryTestOrCopy() {
		var copyMove *ir.Expr = ir.Empty()
		if in.Op == bytecode.ISTC || in.Op == bytecode.ISFC {
			copyMove = ir.Move(ir.Var(uint16(in.A)), ir.Var(in.D))
		}
		d := ir.Var(in.D)
		if in.Op == bytecode.ISFC || in.Op == bytecode.ISF {
			d = ir.Not(d)
		}
		return ir.IsT(copyMove, d)
	}

	a := ir.Var(uint16(in.A))
	var d *ir.Expr
	switch {
	case in.Op < bytecode.ISEQS:
		d = ir.Var(in.D)
	case in.Op < bytecode.ISEQN:
		d = ir.Str(in.D)
	case in.Op < bytecode.ISEQP:
		d = ir.Num(in.D)
	case in.Op < bytecode.ISTC:
		d = ir.Pri(in.D)
	default:
		d = ir.Error("comparison.d: unexpected opcode %s", in.Op)
	}
	return ir.Comparison(a, comparisonOp(in), d)
}

// comparisonOp picks the logical operator from the opcode and whether
// A <= D (the compiler swaps operands to canonicalise, so the ordering
// of A and D tells which source operator was used):
//
//	opcode      A <= D    A > D
//	ISLT        NLt       NGt
//	ISGE        Lt        Gt
//	ISLE        NLte      NGte
//	ISGT        Lte       Gte
//	ISEQ*       Equals    Equals
//	ISNE*       NEquals   NEquals
func comparisonOp(in bytecode.Instruction) *ir.Expr {
	aLEd := uint16(in.A) <= in.D
	switch in.Op {
	case bytecode.ISLT:
		if aLEd {
			return ir.CompOp(ir.KindNLt)
		}
		return ir.CompOp(ir.KindNGt)
	case bytecode.ISGE:
		if aLEd {
			return ir.CompOp(ir.KindLt)
		}
		return ir.CompOp(ir.KindGt)
	case bytecode.ISLE:
		if aLEd {
			return ir.CompOp(ir.KindNLte)
		}
		return ir.CompOp(ir.KindNGte)
	case bytecode.ISGT:
		if aLEd {
			return ir.CompOp(ir.KindLte)
		}
		return ir.CompOp(ir.KindGte)
	default:
		if int(in.Op-bytecode.ISEQV)%2 == 0 {
			return ir.CompOp(ir.KindEquals)
		}
		return ir.CompOp(ir.KindNEquals)
	}
}

func constant(in bytecode.Instruction) *ir.Expr {
	var value *ir.Expr
	switch in.Op {
	case bytecode.KSTR:
		value = ir.Str(in.D)
	case bytecode.KCDATA:
		value = ir.Error("KCDATA is unimplemented.")
	case bytecode.KSHORT:
		value = ir.Lit(in.D)
	case bytecode.KNUM:
		value = ir.Num(in.D)
	case bytecode.KPRI:
		value = ir.Pri(in.D)
	case bytecode.KNIL:
		value = ir.Error("KNIL is unimplemented.")
	default:
		value = ir.Error("constant.value: unexpected opcode %s", in.Op)
	}
	return ir.Move(ir.Var(uint16(in.A)), value)
}

func uv(in bytecode.Instruction) *ir.Expr {
	switch in.Op {
	case bytecode.UGET:
		return ir.Move(ir.Var(uint16(in.A)), ir.Uv(in.D))
	case bytecode.USETV:
		return ir.Move(ir.Uv(uint16(in.A)), ir.Var(in.D))
	case bytecode.USETS:
		return ir.Move(ir.Uv(uint16(in.A)), ir.Str(in.D))
	case bytecode.USETN:
		return ir.Move(ir.Uv(uint16(in.A)), ir.Num(in.D))
	case bytecode.USETP:
		return ir.Move(ir.Uv(uint16(in.A)), ir.Pri(in.D))
	case bytecode.UCLO:
		return ir.UClo(uint16(in.A), ir.Target(uint32(in.JumpTarget())))
	default:
		return ir.Error("uv: unexpected opcode %s", in.Op)
	}
}

func fnew(protoIndex uint16) *ir.Expr { return ir.Func(protoIndex, ir.Empty()) }

func table(in bytecode.Instruction) *ir.Expr {
	if in.Op == bytecode.TSETM {
		return ir.Error("TSETM is unimplemented.")
	}

	a := ir.Var(uint16(in.A))
	var tbl *ir.Expr

	isGlobal := in.Op == bytecode.GGET || in.Op == bytecode.GSET
	if isGlobal {
		tbl = ir.Table(ir.Global(), ir.Str(in.D))
	} else {
		b := ir.Var(uint16(in.B))
		var c *ir.Expr
		switch in.Op {
		case bytecode.TGETV, bytecode.TSETV:
			c = ir.Var(uint16(in.C))
		case bytecode.TGETS, bytecode.TSETS:
			c = ir.Str(uint16(in.C))
		case bytecode.TGETB, bytecode.TSETB:
			c = ir.Lit(uint16(in.C))
		default:
			c = ir.Error("table.c: unexpected opcode %s", in.Op)
		}
		tbl = ir.Table(b, c)
	}

	isSet := in.Op == bytecode.GSET || (in.Op >= bytecode.TSETV && in.Op <= bytecode.TSETB)
	if isSet {
		return ir.Move(tbl, a)
	}
	return ir.Move(a, tbl)
}

func call(in bytecode.Instruction) *ir.Expr {
	a, b, c, d := uint16(in.A), uint16(in.B), uint16(in.C), in.D
	switch in.Op {
	case bytecode.CALLM:
		return callm(in)
	case bytecode.CALL:
		return ir.Call(ir.Var(a), ir.Range(a+1, a+c-1), ir.Range(a+1, a+b-1), false)
	case bytecode.CALLMT:
		return ir.Return(callm(in))
	case bytecode.CALLT:
		return ir.Return(ir.Call(ir.Var(a), ir.Range(a+1, a+d-1), ir.Range(a+1, a+b-1), false))
	case bytecode.ITERC:
		return ir.Error("ITERC is unimplemented.")
	case bytecode.ITERN:
		return ir.Error("ITERN is unimplemented.")
	case bytecode.VARG:
		return ir.VarArg(ir.Range(a, a+b-2))
	case bytecode.ISNEXT:
		return ir.Error("ISNEXT is unimplemented.")
	default:
		return ir.Error("call: unexpected opcode %s", in.Op)
	}
}

// callm has an implicit trailing '...' argument, consumed by a nested
// CALLM if one is the last fixed parameter.
func callm(in bytecode.Instruction) *ir.Expr {
	a, b, c := uint16(in.A), uint16(in.B), uint16(in.C)
	return ir.Call(ir.Var(a), ir.Range(a+1, a+c+1), ir.Range(a, a+b), true)
}

func ret(in bytecode.Instruction) *ir.Expr {
	a, d := uint16(in.A), in.D
	switch in.Op {
	case bytecode.RETM:
		return ir.Error("RETM is unimplemented.")
	case bytecode.RET:
		return ir.Return(ir.Range(a, a+d-2))
	case bytecode.RET0:
		return ir.Return(ir.Empty())
	case bytecode.RET1:
		return ir.Return(ir.Var(a))
	default:
		return ir.Error("ret: unexpected opcode %s", in.Op)
	}
}

func forLoop(in bytecode.Instruction) *ir.Expr {
	switch in.Op {
	case bytecode.FORI:
		return fori(in)
	case bytecode.JFORI:
		return ir.Error("JFORI is unimplemented.")
	case bytecode.FORL:
		return ir.Redundant("FORL only restates FORI's back-edge")
	case bytecode.IFORL:
		return ir.Error("IFORL is unimplemented.")
	case bytecode.JFORL:
		return ir.Error("JFORL is unimplemented.")
	default:
		return ir.Error("for_loop: unexpected opcode %s", in.Op)
	}
}

// binop maps an arithmetic opcode to the IR node for its operator,
// given its already-resolved left/right operands.
func binop(op bytecode.Op, l, r *ir.Expr) *ir.Expr {
	switch op {
	case bytecode.ADDVN, bytecode.ADDNV, bytecode.ADDVV:
		return ir.Add(l, r)
	case bytecode.SUBVN, bytecode.SUBNV, bytecode.SUBVV:
		return ir.Sub(l, r)
	case bytecode.MULVN, bytecode.MULNV, bytecode.MULVV:
		return ir.Mul(l, r)
	case bytecode.DIVVN, bytecode.DIVNV, bytecode.DIVVV:
		return ir.Div(l, r)
	case bytecode.MODVN, bytecode.MODNV, bytecode.MODVV:
		return ir.Mod(l, r)
	case bytecode.POW:
		return ir.Pow(l, r)
	case bytecode.CAT:
		return ir.Cat(l, r)
	default:
		return ir.Error("binop: unexpected opcode %s", op)
	}
}

// arith lowers the VN/NV/VV arithmetic family plus POW/CAT. VV takes
// its right operand from a register (C); VN/NV/POW/CAT take it from
// the numeric constant table. NV additionally has its operands
// swapped, since the source register always holds the variable
// operand in B regardless of which side of the op it's on.
func arith(in bytecode.Instruction) *ir.Expr {
	a, b := varAB(in)
	var c *ir.Expr
	if in.Op >= bytecode.ADDVV && in.Op <= bytecode.MODVV {
		c = ir.Var(uint16(in.C))
	} else {
		c = ir.Num(uint16(in.C))
	}

	if in.Op >= bytecode.ADDNV && in.Op <= bytecode.MODNV {
		return ir.Move(a, binop(in.Op, c, b))
	}
	return ir.Move(a, binop(in.Op, b, c))
}

// fori marks the start of a numeric for-loop. Slots A, A+1, A+2 hold
// the start/stop/step triple; the loop body runs from the instruction
// after FORI up to (but not past) the loop's jump target.
func fori(in bytecode.Instruction) *ir.Expr {
	a := uint16(in.A)
	start, stop, step := ir.Var(a), ir.Var(a+1), ir.Var(a+2)
	scopeStart := uint16(in.Index + 1)
	scopeEnd := uint16(in.JumpTarget() - 1)
	return ir.For(start, stop, step, scopeStart, scopeEnd)
}
