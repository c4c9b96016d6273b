package chunk

import (
	"fmt"

	"github.com/ntmck/lj-decompiler/internal/bytestream"
)

func syntheticSymbolName(protoID, slot int) string {
	return fmt.Sprintf("var_pt%d_%d", protoID, slot)
}

// lineEntrySize returns the width in bytes (1, 2, or 4) of a line-table
// entry, the smallest that can represent numLines (§4.5). A 3-byte
// width (a variant in the source tooling, unused by LuaJIT 2.0) is
// never produced.
func lineEntrySize(numLines uint32) uint32 {
	switch {
	case numLines < 1<<8:
		return 1
	case numLines < 1<<16:
		return 2
	default:
		return 4
	}
}

// syntheticSymbols builds the var_pt{id}_{i} names used when no debug
// block is present for a prototype. Symbol i names frame slot i.
func syntheticSymbols(header Header) []string {
	symbols := make([]string, 0, header.FrameSize)
	for i := 0; i < int(header.FrameSize); i++ {
		symbols = append(symbols, syntheticSymbolName(header.ID, i))
	}
	return symbols
}

// parseDebugBlock reads the line-number sub-section (retained but not
// interpreted further) followed by the null-terminated symbol names,
// each padded by two reserved bytes. The symbol section ends when the
// next byte is 0 or the blob is exhausted.
func parseDebugBlock(blob []byte, header Header) (lineTable []byte, symbols []string) {
	dih := header.Debug
	entrySize := lineEntrySize(dih.NumLines)
	lineSecSize := int(entrySize) * int(header.InstructionCount)
	if lineSecSize > len(blob) {
		lineSecSize = len(blob)
	}
	lineTable = blob[:lineSecSize]

	r := bytestream.New(blob)
	for i := 0; i < lineSecSize; i++ {
		r.ReadByte()
	}

	for r.Remaining() > 0 && r.PeekByte() != 0 {
		symbols = append(symbols, readSymbol(r))
	}
	return lineTable, symbols
}

func readSymbol(r *bytestream.Reader) string {
	var buf []byte
	for {
		b := r.ReadByte()
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	// Two reserved bytes follow the terminator; preserved but unused.
	if r.Remaining() >= 2 {
		r.ReadBytes(2)
	}
	return string(buf)
}
