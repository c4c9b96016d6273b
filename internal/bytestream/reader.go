// Package bytestream implements the random-access byte buffer and
// primitive decoders (§4.1 of the pipeline spec) that every later
// stage of the LuaJIT chunk decoder reads through.
package bytestream

import (
	"github.com/ntmck/lj-decompiler/internal/ljerrors"
)

// Magic is the 4-byte LuaJIT 2.0 bytecode chunk literal.
var Magic = [4]byte{0x1B, 0x4C, 0x4A, 0x01}

// Reader is an immutable byte buffer plus a mutable cursor. Its
// lifetime spans the decode of one file (or one isolated prototype
// sub-blob carved out of a file).
type Reader struct {
	buf    []byte
	offset int
}

// New wraps buf for reading from offset 0. buf is not copied; callers
// must not mutate it while the Reader is in use.
func New(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int { return r.offset }

// Remaining returns the number of bytes not yet consumed.
func (r *Reader) Remaining() int { return len(r.buf) - r.offset }

func (r *Reader) ctx() ljerrors.Context {
	return ljerrors.Context{}.WithOffset(r.offset)
}

// ReadByte returns the next byte and advances the cursor by 1.
func (r *Reader) ReadByte() byte {
	if r.offset >= len(r.buf) {
		panic(ljerrors.Malformed(r.ctx(), "read past end of buffer (len=%d)", len(r.buf)))
	}
	b := r.buf[r.offset]
	r.offset++
	return b
}

// ReadBytes returns an owned copy of the next n bytes and advances the
// cursor by n.
func (r *Reader) ReadBytes(n int) []byte {
	if n < 0 || r.offset+n > len(r.buf) {
		panic(ljerrors.Malformed(r.ctx(), "read of %d bytes overruns buffer (len=%d)", n, len(r.buf)))
	}
	out := make([]byte, n)
	copy(out, r.buf[r.offset:r.offset+n])
	r.offset += n
	return out
}

// PeekByte returns the next byte without advancing the cursor.
func (r *Reader) PeekByte() byte {
	if r.offset >= len(r.buf) {
		panic(ljerrors.Malformed(r.ctx(), "peek past end of buffer (len=%d)", len(r.buf)))
	}
	return r.buf[r.offset]
}

// PeekBytes returns the next n bytes without advancing the cursor.
func (r *Reader) PeekBytes(n int) []byte {
	if n < 0 || r.offset+n > len(r.buf) {
		panic(ljerrors.Malformed(r.ctx(), "peek of %d bytes overruns buffer (len=%d)", n, len(r.buf)))
	}
	out := make([]byte, n)
	copy(out, r.buf[r.offset:r.offset+n])
	return out
}

// ReadULEB decodes a little-endian base-128 variable-length unsigned
// integer: seven data bits per byte, continuation in the top bit.
// Overflow past 32 bits is a fatal MalformedInput.
func (r *Reader) ReadULEB() uint32 {
	var value uint64
	var shift uint
	for {
		b := r.ReadByte()
		data := uint64(b & 0x7F)
		value |= data << shift
		if value > 0xFFFFFFFF {
			panic(ljerrors.Malformed(r.ctx(), "ULEB128 value overflows 32 bits"))
		}
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 35 {
			panic(ljerrors.Malformed(r.ctx(), "ULEB128 value overflows 32 bits"))
		}
	}
	return uint32(value)
}

// SeekToMagic scans forward for the 4-byte magic literal and positions
// the cursor on the byte after it. Arbitrary leading bytes (a foreign
// prefix some producers of .ljc files prepend) are tolerated.
func (r *Reader) SeekToMagic() {
	for i := r.offset; i+4 <= len(r.buf); i++ {
		if r.buf[i] == Magic[0] && r.buf[i+1] == Magic[1] && r.buf[i+2] == Magic[2] && r.buf[i+3] == Magic[3] {
			r.offset = i + 4
			return
		}
	}
	panic(ljerrors.Malformed(r.ctx(), "magic byte sequence %x not found", Magic))
}
