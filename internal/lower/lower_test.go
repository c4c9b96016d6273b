package lower

import (
	"testing"

	"github.com/ntmck/lj-decompiler/internal/bytecode"
	"github.com/ntmck/lj-decompiler/internal/ir"
)

func TestTranslateMove(t *testing.T) {
	in := bytecode.NewInstruction(0, byte(bytecode.MOV), 1, 2, 0) // D = b<<8|c = 2
	e := TranslateBCI(in)
	if e.Kind != ir.KindMove {
		t.Fatalf("kind = %v, want KindMove", e.Kind)
	}
	if got := e.String(); got != "var(1) := var(2)" {
		t.Fatalf("String() = %q", got)
	}
}

func TestTranslateAddVV(t *testing.T) {
	in := bytecode.NewInstruction(0, byte(bytecode.ADDVV), 0, 2, 1)
	e := TranslateBCI(in)
	if got := e.String(); got != "var(0) := (var(1) + var(2))" {
		t.Fatalf("String() = %q", got)
	}
}

func TestTranslateAddNVSwapsOperands(t *testing.T) {
	// ADDNV: B holds the variable, C indexes the numeric constant; the
	// source-form op is const + var, so the numeric operand is left.
	in := bytecode.NewInstruction(0, byte(bytecode.ADDNV), 0, 5, 1)
	e := TranslateBCI(in)
	if got := e.String(); got != "var(0) := (num(5) + var(1))" {
		t.Fatalf("String() = %q", got)
	}
}

func TestTranslateKStr(t *testing.T) {
	in := bytecode.NewInstruction(0, byte(bytecode.KSTR), 0, 3, 0) // D = b<<8|c = 3
	e := TranslateBCI(in)
	if got := e.String(); got != "var(0) := str(3)" {
		t.Fatalf("String() = %q", got)
	}
}

func TestTranslateRet0(t *testing.T) {
	in := bytecode.NewInstruction(0, byte(bytecode.RET0), 0, 0, 0)
	e := TranslateBCI(in)
	if got := e.String(); got != "return((empty))" {
		t.Fatalf("String() = %q", got)
	}
}

func TestTranslateUnsupportedOpcodeProducesError(t *testing.T) {
	in := bytecode.NewInstruction(0, byte(bytecode.ITERC), 0, 0, 0)
	e := TranslateBCI(in)
	if e.Kind != ir.KindError {
		t.Fatalf("kind = %v, want KindError for ITERC", e.Kind)
	}
}

func TestTranslateGGET(t *testing.T) {
	in := bytecode.NewInstruction(0, byte(bytecode.GGET), 0, 7, 0) // D = b<<8|c = 7
	e := TranslateBCI(in)
	if got := e.String(); got != "var(0) := (_G.str(7))" {
		t.Fatalf("String() = %q", got)
	}
}

func TestTranslateFORI(t *testing.T) {
	// Target 10 means JumpTarget() == 10, so scope end == 9.
	d := 10 - 1 - 0 + 0x8000
	in := bytecode.NewInstruction(0, byte(bytecode.FORI), 1, byte(d&0xFF), byte((d>>8)&0xFF))
	e := TranslateBCI(in)
	if e.Kind != ir.KindFor {
		t.Fatalf("kind = %v, want KindFor", e.Kind)
	}
	if e.ScopeStart != 1 || e.ScopeEnd != 9 {
		t.Fatalf("scope = [%d,%d], want [1,9]", e.ScopeStart, e.ScopeEnd)
	}
}
