// Package ir defines the algebraic expression tree that bytecode
// instructions are lowered into (§4.9). One Expr node corresponds to
// one Lua-level operation or operand; composite nodes (arithmetic,
// comparisons, calls, branches) hold up to three child expressions.
package ir

import "fmt"

// Kind identifies the shape of an Expr node.
type Kind int

const (
	KindError Kind = iota
	KindEmpty

	// Control markers.
	KindLabel
	KindGoto
	KindTarget
	KindUClo

	// Slots and ranges.
	KindVar
	KindRange

	// Constants.
	KindNum // index into the numeric constant table.
	KindLit // a literal number, not a table index.
	KindStr // index into the string constant table.
	KindUv  // index into the upvalue table.
	KindPri // primitive literal: 0=nil, 1=false, 2=true.

	// Tables.
	KindGlobal
	KindTable

	// Binary arithmetic.
	KindAdd
	KindSub
	KindMul
	KindDiv
	KindMod
	KindPow
	KindCat

	// Unary / assignment.
	KindMove
	KindUnm
	KindLen
	KindNot

	// ISTC/ISFC/IST/ISF: A (optional copy-move) and D (negated for ISFC/ISF).
	KindIsT

	// Comparison operators, as leaf markers combined via KindComparison.
	KindGt
	KindGte
	KindLt
	KindLte
	KindNGt
	KindNGte
	KindNLt
	KindNLte
	KindEquals
	KindNEquals
	KindComparison
	KindAnd
	KindOr

	// Structured branches: Cond plus an inclusive [ScopeStart, ScopeEnd].
	KindIf
	KindElse
	KindWhile
	KindFor
	KindRepeat

	// FORL is mostly redundant once FORI has been lowered (it only
	// restates the loop's back-edge); kept as a marker rather than
	// translated into its own scope.
	KindRedundant

	// Functions.
	KindFunc
	KindVarArg
	KindParamCount
	KindReturnCount
	KindCall
	KindReturn
)

// Expr is one node of the lowered IR tree. Field meaning is
// Kind-dependent; see the constructors in this package and the
// translation rules in internal/lower for the mapping.
type Expr struct {
	Kind Kind

	Slot  uint16 // Var/Num/Lit/Str/Uv/Pri slot or constant index.
	Label uint32 // Label/Target jump-label value.

	RangeFrom uint16
	RangeTo   uint16

	ScopeStart uint16
	ScopeEnd   uint16

	IsVarArgCall bool
	Message      string // KindError detail.

	A, B, C *Expr // generic children; see the constructors below.
}

func (e *Expr) String() string {
	if e == nil {
		return "(empty)"
	}
	switch e.Kind {
	case KindEmpty:
		return "(empty)"
	case KindError:
		return fmt.Sprintf("(error: %s)", e.Message)
	case KindRange:
		return fmt.Sprintf("%d->%d", e.RangeFrom, e.RangeTo)
	case KindLabel:
		return fmt.Sprintf("label(%d)", e.Label)
	case KindGoto:
		return fmt.Sprintf("goto(%s)", e.A)
	case KindTarget:
		return fmt.Sprintf("jmp(%d)", e.Label)
	case KindVar:
		return fmt.Sprintf("var(%d)", e.Slot)
	case KindNum:
		return fmt.Sprintf("num(%d)", e.Slot)
	case KindLit:
		return fmt.Sprintf("lit(%d)", e.Slot)
	case KindStr:
		return fmt.Sprintf("str(%d)", e.Slot)
	case KindUv:
		return fmt.Sprintf("uv(%d)", e.Slot)
	case KindPri:
		return fmt.Sprintf("pri(%d)", e.Slot)
	case KindGlobal:
		return "_G"
	case KindTable:
		return fmt.Sprintf("(%s.%s)", e.A, e.B)
	case KindAdd:
		return fmt.Sprintf("(%s + %s)", e.A, e.B)
	case KindSub:
		return fmt.Sprintf("(%s - %s)", e.A, e.B)
	case KindMul:
		return fmt.Sprintf("(%s * %s)", e.A, e.B)
	case KindDiv:
		return fmt.Sprintf("(%s / %s)", e.A, e.B)
	case KindMod:
		return fmt.Sprintf("(%s %% %s)", e.A, e.B)
	case KindPow:
		return fmt.Sprintf("(%s^%s)", e.A, e.B)
	case KindCat:
		return fmt.Sprintf("(%s .. %s)", e.A, e.B)
	case KindMove:
		return fmt.Sprintf("%s := %s", e.A, e.B)
	case KindUnm:
		return fmt.Sprintf("-(%s)", e.A)
	case KindLen:
		return fmt.Sprintf("len(%s)", e.A)
	case KindNot:
		return fmt.Sprintf("not(%s)", e.A)
	case KindGt:
		return ">"
	case KindGte:
		return ">="
	case KindLt:
		return "<"
	case KindLte:
		return "<="
	case KindNGt:
		return "~>"
	case KindNGte:
		return "~>="
	case KindNLt:
		return "~<"
	case KindNLte:
		return "~<="
	case KindEquals:
		return "=="
	case KindNEquals:
		return "~="
	case KindComparison:
		return fmt.Sprintf("(%s %s %s)", e.A, e.B, e.C)
	case KindAnd:
		return fmt.Sprintf("(%s and %s)", e.A, e.B)
	case KindOr:
		return fmt.Sprintf("(%s or %s)", e.A, e.B)
	case KindUClo:
		return fmt.Sprintf("uclo(%d, %s)", e.Slot, e.A)
	case KindIf:
		return fmt.Sprintf("if %s then %d:%d", e.A, e.ScopeStart, e.ScopeEnd)
	case KindElse:
		return fmt.Sprintf("else %s then %d:%d", e.A, e.ScopeStart, e.ScopeEnd)
	case KindWhile:
		return fmt.Sprintf("while %s then %d:%d", e.A, e.ScopeStart, e.ScopeEnd)
	case KindFor:
		return fmt.Sprintf("for %s,%s,%s then %d:%d", e.A, e.B, e.C, e.ScopeStart, e.ScopeEnd)
	case KindRepeat:
		return fmt.Sprintf("repeat %s then %d:%d", e.A, e.ScopeStart, e.ScopeEnd)
	case KindRedundant:
		return fmt.Sprintf("(redundant: %s)", e.Message)
	case KindFunc:
		return fmt.Sprintf("func(proto:%d, info:%s)", e.Slot, e.A)
	case KindVarArg:
		return fmt.Sprintf("varg(%s)", e.A)
	case KindParamCount:
		return fmt.Sprintf("params(%d)", e.Slot)
	case KindReturnCount:
		return fmt.Sprintf("returns(%d)", e.Slot)
	case KindCall:
		return fmt.Sprintf("call(%s, params(%s), returns(%s), isVarArg(%t))", e.A, e.B, e.C, e.IsVarArgCall)
	case KindReturn:
		return fmt.Sprintf("return(%s)", e.A)
	case KindIsT:
		return fmt.Sprintf("IsT(%s, %s)", e.B, e.A)
	default:
		return fmt.Sprintf("(unknown kind %d)", e.Kind)
	}
}

func Empty() *Expr                { return &Expr{Kind: KindEmpty} }
func Error(format string, args ...interface{}) *Expr {
	return &Expr{Kind: KindError, Message: fmt.Sprintf(format, args...)}
}
func Var(slot uint16) *Expr  { return &Expr{Kind: KindVar, Slot: slot} }
func Num(idx uint16) *Expr   { return &Expr{Kind: KindNum, Slot: idx} }
func Lit(v uint16) *Expr     { return &Expr{Kind: KindLit, Slot: v} }
func Str(idx uint16) *Expr   { return &Expr{Kind: KindStr, Slot: idx} }
func Uv(idx uint16) *Expr    { return &Expr{Kind: KindUv, Slot: idx} }
func Pri(v uint16) *Expr     { return &Expr{Kind: KindPri, Slot: v} }
func Global() *Expr          { return &Expr{Kind: KindGlobal} }
func Range(from, to uint16) *Expr { return &Expr{Kind: KindRange, RangeFrom: from, RangeTo: to} }
func Target(label uint32) *Expr   { return &Expr{Kind: KindTarget, Label: label} }

func Table(name, target *Expr) *Expr { return &Expr{Kind: KindTable, A: name, B: target} }
func Move(dst, src *Expr) *Expr      { return &Expr{Kind: KindMove, A: dst, B: src} }
func Unm(v *Expr) *Expr              { return &Expr{Kind: KindUnm, A: v} }
func Len(v *Expr) *Expr              { return &Expr{Kind: KindLen, A: v} }
func Not(v *Expr) *Expr              { return &Expr{Kind: KindNot, A: v} }

func Add(l, r *Expr) *Expr { return &Expr{Kind: KindAdd, A: l, B: r} }
func Sub(l, r *Expr) *Expr { return &Expr{Kind: KindSub, A: l, B: r} }
func Mul(l, r *Expr) *Expr { return &Expr{Kind: KindMul, A: l, B: r} }
func Div(l, r *Expr) *Expr { return &Expr{Kind: KindDiv, A: l, B: r} }
func Mod(l, r *Expr) *Expr { return &Expr{Kind: KindMod, A: l, B: r} }
func Pow(l, r *Expr) *Expr { return &Expr{Kind: KindPow, A: l, B: r} }
func Cat(l, r *Expr) *Expr { return &Expr{Kind: KindCat, A: l, B: r} }

func IsT(copyMove, cond *Expr) *Expr { return &Expr{Kind: KindIsT, A: copyMove, B: cond} }

func CompOp(k Kind) *Expr { return &Expr{Kind: k} }
func Comparison(left, op, right *Expr) *Expr {
	return &Expr{Kind: KindComparison, A: left, B: op, C: right}
}

func UClo(slot uint16, target *Expr) *Expr { return &Expr{Kind: KindUClo, Slot: slot, A: target} }

func If(cond *Expr, start, end uint16) *Expr {
	return &Expr{Kind: KindIf, A: cond, ScopeStart: start, ScopeEnd: end}
}
func For(start, stop, step *Expr, scopeStart, scopeEnd uint16) *Expr {
	return &Expr{Kind: KindFor, A: start, B: stop, C: step, ScopeStart: scopeStart, ScopeEnd: scopeEnd}
}
func Redundant(what string) *Expr { return &Expr{Kind: KindRedundant, Message: what} }

func Func(protoIndex uint16, info *Expr) *Expr { return &Expr{Kind: KindFunc, Slot: protoIndex, A: info} }
func VarArg(r *Expr) *Expr                     { return &Expr{Kind: KindVarArg, A: r} }

func Call(name, params, returns *Expr, isVarArg bool) *Expr {
	return &Expr{Kind: KindCall, A: name, B: params, C: returns, IsVarArgCall: isVarArg}
}
func Return(v *Expr) *Expr { return &Expr{Kind: KindReturn, A: v} }
