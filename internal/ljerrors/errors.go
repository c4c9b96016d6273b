// Package ljerrors defines the error taxonomy shared across the decode
// pipeline: malformed input (fatal), unsupported features (embedded,
// non-fatal), and internal invariant violations (panics).
package ljerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a decode fault per spec §7.
type Kind string

const (
	// MalformedInput aborts decoding of the entire file.
	MalformedInput Kind = "MalformedInput"
	// UnsupportedFeature is surfaced as an IR Error node; decoding continues.
	UnsupportedFeature Kind = "UnsupportedFeature"
	// InternalInvariant indicates a bug in this implementation.
	InternalInvariant Kind = "InternalInvariant"
)

// Context carries the decode-time coordinates of a fault: which
// prototype, which instruction, which opcode, and/or which byte
// offset was being processed when it occurred. Any field may be
// left at its zero value when not applicable.
type Context struct {
	PrototypeID int
	HasProtoID  bool

	InstrIndex int
	HasInstr   bool

	Opcode   int
	HasOpcode bool

	ByteOffset int
	HasOffset  bool
}

// DecodeError is the concrete error type returned or panicked with
// throughout the pipeline.
type DecodeError struct {
	Kind    Kind
	Message string
	Ctx     Context
	cause   error
}

func (e *DecodeError) Error() string {
	s := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Ctx.HasProtoID {
		s += fmt.Sprintf(" [proto=%d]", e.Ctx.PrototypeID)
	}
	if e.Ctx.HasInstr {
		s += fmt.Sprintf(" [instr=%d]", e.Ctx.InstrIndex)
	}
	if e.Ctx.HasOpcode {
		s += fmt.Sprintf(" [opcode=%d]", e.Ctx.Opcode)
	}
	if e.Ctx.HasOffset {
		s += fmt.Sprintf(" [offset=%d]", e.Ctx.ByteOffset)
	}
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e *DecodeError) Unwrap() error { return e.cause }

// Malformed builds a fatal MalformedInput error, stack-wrapped so the
// caller can log a trace back to the exact read that failed.
func Malformed(ctx Context, format string, args ...interface{}) *DecodeError {
	msg := fmt.Sprintf(format, args...)
	return &DecodeError{
		Kind:    MalformedInput,
		Message: msg,
		Ctx:     ctx,
		cause:   errors.WithStack(errors.New(msg)),
	}
}

// Unsupported builds a non-fatal UnsupportedFeature error carrying the
// textual opcode tag that triggered it.
func Unsupported(ctx Context, opcodeName string) *DecodeError {
	return &DecodeError{
		Kind:    UnsupportedFeature,
		Message: opcodeName,
		Ctx:     ctx,
	}
}

// Invariant builds an InternalInvariant error. Callers should panic
// with it immediately; it is never meant to propagate as a normal
// error value.
func Invariant(ctx Context, format string, args ...interface{}) *DecodeError {
	return &DecodeError{
		Kind:    InternalInvariant,
		Message: fmt.Sprintf(format, args...),
		Ctx:     ctx,
	}
}

// WithProto returns a copy of ctx with PrototypeID set.
func (c Context) WithProto(id int) Context {
	c.PrototypeID = id
	c.HasProtoID = true
	return c
}

// WithInstr returns a copy of ctx with InstrIndex set.
func (c Context) WithInstr(i int) Context {
	c.InstrIndex = i
	c.HasInstr = true
	return c
}

// WithOpcode returns a copy of ctx with Opcode set.
func (c Context) WithOpcode(op int) Context {
	c.Opcode = op
	c.HasOpcode = true
	return c
}

// WithOffset returns a copy of ctx with ByteOffset set.
func (c Context) WithOffset(off int) Context {
	c.ByteOffset = off
	c.HasOffset = true
	return c
}
