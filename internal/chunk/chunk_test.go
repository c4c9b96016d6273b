package chunk

import (
	"testing"

	"github.com/ntmck/lj-decompiler/internal/bytestream"
	"github.com/ntmck/lj-decompiler/internal/ljerrors"
)

func uleb(n uint32) []byte {
	var out []byte
	for {
		b := byte(n & 0x7F)
		n >>= 7
		if n != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

// protoBuilder assembles one prototype blob's bytes field by field, in
// the exact §4.3 order, tracking counts so the header stays consistent
// with what's actually appended.
type protoBuilder struct {
	flags, numParams, frameSize, sizeUV byte
	debugPresent                        bool
	debugBlob                           []byte
	firstLine, numLines                 uint32
	instructions                        [][4]byte
	upvalues                            [][2]byte
	kgcTags                             [][]byte // each pre-encoded kgc entry (tag + payload)
	kns                                  [][]byte
}

func (b *protoBuilder) addInstruction(op, a, c, d byte) {
	b.instructions = append(b.instructions, [4]byte{op, a, c, d})
}

func (b *protoBuilder) addUpvalue(tableIndex, tableLocation byte) {
	b.upvalues = append(b.upvalues, [2]byte{tableIndex, tableLocation})
}

func (b *protoBuilder) addChildMarker() {
	b.kgcTags = append(b.kgcTags, uleb(0))
}

// bytes assembles the prototype blob. perProtoDebugAbsent must mirror the
// surrounding fileBuilder's noPerProtoDebugFlag bit: readHeader only ever
// reads a per-prototype debug-size field when that bit is clear, so this
// method must not emit one (not even a zero-size placeholder) when it's set.
func (b *protoBuilder) bytes(perProtoDebugAbsent bool) []byte {
	var out []byte
	out = append(out, b.flags, b.numParams, b.frameSize, b.sizeUV)
	out = append(out, uleb(uint32(len(b.kgcTags)))...)
	out = append(out, uleb(uint32(len(b.kns)))...)
	out = append(out, uleb(uint32(len(b.instructions)))...)

	if !perProtoDebugAbsent {
		if b.debugPresent {
			out = append(out, uleb(uint32(len(b.debugBlob)))...)
			out = append(out, uleb(b.firstLine)...)
			out = append(out, uleb(b.numLines)...)
		} else {
			out = append(out, uleb(0)...)
		}
	}

	for _, in := range b.instructions {
		out = append(out, in[0], in[1], in[2], in[3])
	}
	for _, uv := range b.upvalues {
		out = append(out, uv[0], uv[1])
	}
	for _, kgc := range b.kgcTags {
		out = append(out, kgc...)
	}
	for _, kn := range b.kns {
		out = append(out, kn...)
	}
	out = append(out, b.debugBlob...)
	return out
}

// fileBuilder assembles a full chunk: magic, file header, prototype
// blobs in emission order, and the zero-size terminator.
type fileBuilder struct {
	debugFlags byte
	sourceName string
	hasName    bool
	blobs      [][]byte
}

func (fb *fileBuilder) addPrototype(b *protoBuilder) {
	blob := b.bytes(fb.debugFlags&noPerProtoDebugFlag != 0)
	var framed []byte
	framed = append(framed, uleb(uint32(len(blob)))...)
	framed = append(framed, blob...)
	fb.blobs = append(fb.blobs, framed)
}

func (fb *fileBuilder) bytes() []byte {
	var out []byte
	out = append(out, bytestream.Magic[:]...)
	out = append(out, fb.debugFlags)
	if fb.debugFlags&noNameFlag == 0 {
		out = append(out, uleb(uint32(len(fb.sourceName)))...)
		out = append(out, []byte(fb.sourceName)...)
	}
	for _, blob := range fb.blobs {
		out = append(out, blob...)
	}
	out = append(out, uleb(0)...)
	return out
}

func buildSymbolDebugBlob(t *testing.T, instrCount int, symbol string) (blob []byte, firstLine, numLines uint32) {
	t.Helper()
	numLines = 1
	firstLine = 1
	entrySize := lineEntrySize(numLines)
	lineTable := make([]byte, int(entrySize)*instrCount)
	sym := append([]byte(symbol), 0, 0, 0) // terminator + 2 reserved bytes
	blob = append(lineTable, sym...)
	return blob, firstLine, numLines
}

func TestOpenFileHeaderAndSingleTrivialPrototype(t *testing.T) {
	fb := &fileBuilder{debugFlags: noNameFlag | noPerProtoDebugFlag}
	pb := &protoBuilder{frameSize: 0}
	pb.addInstruction(71, 0, 0, 0) // RET0
	fb.addPrototype(pb)

	p := Open(fb.bytes())
	if p.FileHeader().HasSourceName {
		t.Fatal("expected no source name")
	}
	proto, ok := p.Next()
	if !ok {
		t.Fatal("expected one prototype")
	}
	if proto.ID != 0 {
		t.Fatalf("ID = %d, want 0", proto.ID)
	}
	if len(proto.Instructions) != 1 {
		t.Fatalf("instruction count = %d, want 1", len(proto.Instructions))
	}
	if len(proto.Symbols) != 0 {
		t.Fatalf("synthetic symbols = %v, want empty (frame_size=0)", proto.Symbols)
	}
	if _, ok := p.Next(); ok {
		t.Fatal("expected terminator after one prototype")
	}
}

func TestChildParentWiring(t *testing.T) {
	fb := &fileBuilder{debugFlags: noNameFlag | noPerProtoDebugFlag}

	child := &protoBuilder{}
	child.addInstruction(71, 0, 0, 0)
	fb.addPrototype(child)

	parent := &protoBuilder{}
	parent.addInstruction(71, 0, 0, 0)
	parent.addChildMarker()
	fb.addPrototype(parent)

	forest := Open(fb.bytes()).DecodeAll()
	if len(forest) != 2 {
		t.Fatalf("forest size = %d, want 2", len(forest))
	}
	if !forest[0].HasParent || forest[0].ParentID != 1 {
		t.Fatalf("child parent wiring wrong: %+v", forest[0])
	}
	if len(forest[1].ChildIDs) != 1 || forest[1].ChildIDs[0] != 0 {
		t.Fatalf("parent child wiring wrong: %+v", forest[1])
	}
}

func TestUpvalueBindingThreeLevels(t *testing.T) {
	fb := &fileBuilder{debugFlags: noNameFlag} // per-prototype debug present.

	// Emission order: inner (id 0), middle (id 1), outer (id 2).
	inner := &protoBuilder{sizeUV: 1}
	inner.addInstruction(71, 0, 0, 0)
	inner.addUpvalue(0, 0x00) // recursive: middle's own upvalue slot 0.
	fb.addPrototype(inner)

	middle := &protoBuilder{sizeUV: 1}
	middle.addInstruction(71, 0, 0, 0)
	middle.addUpvalue(0, 0x80) // local: outer's symbol slot 0 ("x").
	middle.addChildMarker()    // links inner as middle's child.
	fb.addPrototype(middle)

	outer := &protoBuilder{frameSize: 1}
	outer.addInstruction(71, 0, 0, 0)
	outer.addChildMarker() // links middle as outer's child.
	blob, firstLine, numLines := buildSymbolDebugBlob(t, 1, "x")
	outer.debugPresent = true
	outer.debugBlob = blob
	outer.firstLine = firstLine
	outer.numLines = numLines
	fb.addPrototype(outer)

	forest := Open(fb.bytes()).DecodeAll()
	if len(forest) != 3 {
		t.Fatalf("forest size = %d, want 3", len(forest))
	}
	if forest[2].Symbols[0] != "x" {
		t.Fatalf("outer symbol = %q, want \"x\"", forest[2].Symbols[0])
	}

	if err := BindUpvalues(forest); err != nil {
		t.Fatalf("BindUpvalues() error: %v", err)
	}
	if got := forest[1].BoundUpvalueNames[0]; got != "x" {
		t.Fatalf("middle bound upvalue = %q, want \"x\"", got)
	}
	if got := forest[0].BoundUpvalueNames[0]; got != "x" {
		t.Fatalf("inner bound upvalue = %q, want \"x\" (via middle's upvalue)", got)
	}
}

func TestDebugStrippedRoundTrip(t *testing.T) {
	build := func(debugFlags byte) Forest {
		fb := &fileBuilder{debugFlags: debugFlags}
		pb := &protoBuilder{frameSize: 2}
		pb.addInstruction(71, 0, 0, 0)
		if debugFlags&noPerProtoDebugFlag == 0 {
			blob, firstLine, numLines := buildSymbolDebugBlob(t, 1, "a")
			pb.debugPresent = true
			pb.debugBlob = blob
			pb.firstLine = firstLine
			pb.numLines = numLines
		}
		fb.addPrototype(pb)
		return Open(fb.bytes()).DecodeAll()
	}

	withDebug := build(noNameFlag)
	withoutDebug := build(noNameFlag | noPerProtoDebugFlag)

	if len(withDebug[0].Instructions) != len(withoutDebug[0].Instructions) {
		t.Fatal("instruction streams differ between debug and stripped variants")
	}
	if withDebug[0].Symbols[0] != "a" {
		t.Fatalf("expected recovered symbol \"a\", got %q", withDebug[0].Symbols[0])
	}
	if withoutDebug[0].Symbols[0] != "var_pt0_0" {
		t.Fatalf("expected synthesized symbol, got %q", withoutDebug[0].Symbols[0])
	}
}

func TestReadInstructionsRejectsUnknownOpcode(t *testing.T) {
	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic on unknown opcode id")
		}
		de, ok := rec.(*ljerrors.DecodeError)
		if !ok || de.Kind != ljerrors.MalformedInput {
			t.Fatalf("expected MalformedInput DecodeError, got %v", rec)
		}
	}()

	fb := &fileBuilder{debugFlags: noNameFlag | noPerProtoDebugFlag}
	pb := &protoBuilder{}
	pb.addInstruction(93, 0, 0, 0) // 93 is out of range; only 0..92 are canonical.
	fb.addPrototype(pb)

	Open(fb.bytes()).DecodeAll()
}
