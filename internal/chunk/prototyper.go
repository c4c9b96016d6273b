package chunk

import (
	"strings"

	"github.com/ntmck/lj-decompiler/internal/bytecode"
	"github.com/ntmck/lj-decompiler/internal/bytestream"
	"github.com/ntmck/lj-decompiler/internal/luavalue"
)

// FileHeader carries the file-level fields read once at the start of
// a chunk: the debug-flags byte and the optional source name.
type FileHeader struct {
	DebugFlags    byte
	SourceName    string
	HasSourceName bool
}

// noNameFlag, the "name omitted" bit of the file-debug-flags byte.
const noNameFlag = 0x01

// noPerProtoDebugFlag, the "no per-prototype debug" bit.
const noPerProtoDebugFlag = 0x02

// Prototyper walks a LuaJIT chunk's flat, post-order prototype stream
// and assembles the parent/child forest as it goes (§4.4). One
// Prototyper owns exactly one byte buffer, one cursor, and one
// emission-id stack (§5); none of that state is shared across
// instances.
type Prototyper struct {
	r          *bytestream.Reader
	fileHeader FileHeader
	nextID     int
	idStack    []int
	built      map[int]*Prototype
}

// Open validates the magic (tolerating an arbitrary prefix) and reads
// the file header.
func Open(buf []byte) *Prototyper {
	r := bytestream.New(buf)
	r.SeekToMagic()

	flags := r.ReadByte()
	fh := FileHeader{DebugFlags: flags}
	if flags&noNameFlag == 0 {
		n := r.ReadULEB()
		name := string(r.ReadBytes(int(n)))
		fh.SourceName = strings.TrimPrefix(name, "@")
		fh.HasSourceName = true
	}

	return &Prototyper{
		r:          r,
		fileHeader: fh,
		built:      map[int]*Prototype{},
	}
}

// FileHeader returns the file-level header read by Open.
func (p *Prototyper) FileHeader() FileHeader { return p.fileHeader }

// Next yields the next prototype in emission order, or ok=false once
// the VLU chunk terminator (a zero prototype size) is reached.
func (p *Prototyper) Next() (proto *Prototype, ok bool) {
	size := p.r.ReadULEB()
	if size == 0 {
		return nil, false
	}
	raw := p.r.ReadBytes(int(size))
	sub := bytestream.New(raw)
	return p.readPrototype(sub), true
}

// DecodeAll drains Next() into an emission-ordered Forest.
func (p *Prototyper) DecodeAll() Forest {
	var forest Forest
	for {
		proto, ok := p.Next()
		if !ok {
			break
		}
		forest = append(forest, proto)
	}
	return forest
}

func (p *Prototyper) readPrototype(r *bytestream.Reader) *Prototype {
	id := p.nextID
	header := p.readHeader(r, id)

	instructions := readInstructions(r, header.InstructionCount)
	upvalues := readUpvalueDescriptors(r, header.SizeUV)

	kgcs := make([]luavalue.Value, header.SizeKGC)
	for i := range kgcs {
		kgcs[i] = luavalue.ReadKGC(r)
	}
	kns := make([]luavalue.Value, header.SizeKN)
	for i := range kns {
		kns[i] = luavalue.ReadKN(r)
	}

	symbols := p.readSymbolTable(r, header)

	proto := &Prototype{
		ID:           id,
		Header:       header,
		RawUpvalues:  upvalues,
		Symbols:      symbols,
		Instructions: instructions,
	}

	for _, kgc := range kgcs {
		switch kgc.Kind {
		case luavalue.KindChildProto:
			childID := p.popID()
			child := p.built[childID]
			child.ParentID = id
			child.HasParent = true
			proto.ChildIDs = append(proto.ChildIDs, childID)
		case luavalue.KindStr:
			proto.Constants.Prepend(kgc.Str)
		default:
			proto.Constants.NonStrings = append(proto.Constants.NonStrings, kgc)
		}
	}
	proto.Constants.NonStrings = append(proto.Constants.NonStrings, kns...)

	p.idStack = append(p.idStack, id)
	p.built[id] = proto
	p.nextID = id + 1

	return proto
}

func (p *Prototyper) popID() int {
	n := len(p.idStack)
	if n == 0 {
		panic(malformedf("prototype emission stack underflow: no child id to pop"))
	}
	id := p.idStack[n-1]
	p.idStack = p.idStack[:n-1]
	return id
}

func (p *Prototyper) readHeader(r *bytestream.Reader, id int) Header {
	h := Header{
		ID:               id,
		Flags:            r.ReadByte(),
		NumParams:        r.ReadByte(),
		FrameSize:        r.ReadByte(),
		SizeUV:           r.ReadByte(),
		SizeKGC:          r.ReadULEB(),
		SizeKN:           r.ReadULEB(),
		InstructionCount: r.ReadULEB(),
	}
	if p.fileHeader.DebugFlags&noPerProtoDebugFlag == 0 {
		sizeDbg := r.ReadULEB()
		if sizeDbg > 0 {
			h.Debug = &DebugHeader{
				SizeDbg:   sizeDbg,
				FirstLine: r.ReadULEB(),
				NumLines:  r.ReadULEB(),
			}
		}
	}
	return h
}

func (p *Prototyper) readSymbolTable(r *bytestream.Reader, header Header) []string {
	if header.Debug == nil {
		return syntheticSymbols(header)
	}
	blob := r.ReadBytes(int(header.Debug.SizeDbg))
	_, symbols := parseDebugBlock(blob, header)
	return symbols
}

func readInstructions(r *bytestream.Reader, count uint32) []bytecode.Instruction {
	instrs := make([]bytecode.Instruction, 0, count)
	for i := 0; i < int(count); i++ {
		b := r.ReadBytes(4)
		if int(b[0]) >= bytecode.NumCanonicalOps {
			panic(malformedf("instruction %d: unknown opcode id %d (>= %d)", i, b[0], bytecode.NumCanonicalOps))
		}
		instrs = append(instrs, bytecode.NewInstruction(i, b[0], b[1], b[2], b[3]))
	}
	return instrs
}

func readUpvalueDescriptors(r *bytestream.Reader, count byte) []UpValueDescriptor {
	uvs := make([]UpValueDescriptor, 0, count)
	for i := 0; i < int(count); i++ {
		b := r.ReadBytes(2)
		uvs = append(uvs, UpValueDescriptor{TableIndex: b[0], TableLocation: b[1]})
	}
	return uvs
}
