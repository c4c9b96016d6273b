// Package chunk implements the LuaJIT chunk decoder (§4.3), the
// prototype assembler that reconstructs the parent/child forest and
// binds upvalue names across it (§4.4), and the per-prototype debug
// block reader (§4.5).
package chunk

import (
	"github.com/ntmck/lj-decompiler/internal/bytecode"
	"github.com/ntmck/lj-decompiler/internal/luavalue"
)

// UpValueDescriptor is the raw two-byte on-disk upvalue descriptor
// (§3). Bit 7 of TableLocation set means "a local of the immediate
// parent prototype at index TableIndex"; clear means "an upvalue slot
// of the parent prototype at index TableIndex" (recursive).
type UpValueDescriptor struct {
	TableIndex    byte
	TableLocation byte
}

// IsLocal reports whether this descriptor names a local of the
// immediate parent, rather than one of the parent's own upvalues.
func (uv UpValueDescriptor) IsLocal() bool { return uv.TableLocation&0x80 != 0 }

// DebugHeader is the optional per-prototype debug sub-header.
type DebugHeader struct {
	SizeDbg   uint32
	FirstLine uint32
	NumLines  uint32
}

// Header is a prototype's fixed-layout header fields.
type Header struct {
	ID               int
	Flags            byte
	NumParams        byte
	FrameSize        byte
	SizeUV           byte
	SizeKGC          uint32
	SizeKN           uint32
	InstructionCount uint32
	Debug            *DebugHeader
}

// Constants holds a prototype's two constant pools: the string pool
// (addressed from the HIGH index, because LuaJIT opcodes that embed a
// string constant index count from the end — see Prepend) and the
// non-string pool, ordered by original emission (non-string KGCs then
// all KNs).
type Constants struct {
	Strings    []string
	NonStrings []luavalue.Value
}

// Prepend pushes s to the front of the string pool, so the Kth
// decoded string ends up at the LOWEST index and the first decoded
// string at the highest — the chunk format's index-from-end
// convention (§3 invariant).
func (c *Constants) Prepend(s string) {
	c.Strings = append([]string{s}, c.Strings...)
}

// Prototype is one compiled function: its header, raw upvalue
// descriptors, constant pools, symbol table, instruction stream, and
// its position in the parent/child forest.
type Prototype struct {
	ID     int
	Header Header

	RawUpvalues      []UpValueDescriptor
	BoundUpvalueNames []string

	Constants Constants
	Symbols   []string

	Instructions []bytecode.Instruction

	ParentID  int
	HasParent bool
	ChildIDs  []int
}

// Forest is a decoded prototype tree, indexed by prototype id (ids are
// assigned 0..N-1 in emission order, so Forest[i].ID == i).
type Forest []*Prototype

// ByID looks up a prototype by id, panicking with an InternalInvariant
// error if the id is out of range — the forest is produced entirely by
// this package and any such mismatch is a bug here, not bad input.
func (f Forest) ByID(id int) *Prototype {
	if id < 0 || id >= len(f) {
		panic(invariantf("prototype id %d out of range [0,%d)", id, len(f)))
	}
	return f[id]
}
