// Package luavalue implements the LuaJIT typed-value decoder (§4.2):
// number constants, GC constants, and table constants, all carried by
// the single tagged Value type that doubles as a table cell.
package luavalue

import (
	"fmt"
	"math"
	"strings"

	"github.com/ntmck/lj-decompiler/internal/bytestream"
	"github.com/ntmck/lj-decompiler/internal/ljerrors"
)

// Kind tags a Value's active field.
type Kind int

const (
	KindNil Kind = iota
	KindTrue
	KindFalse
	KindSInt
	KindUInt
	KindDouble
	KindComplexNum
	KindStr
	KindTable
	KindChildProto
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindSInt:
		return "sint"
	case KindUInt:
		return "uint"
	case KindDouble:
		return "double"
	case KindComplexNum:
		return "complex"
	case KindStr:
		return "str"
	case KindTable:
		return "table"
	case KindChildProto:
		return "childproto"
	default:
		return "unknown"
	}
}

// Value is the universal carrier for constants and table cells: a
// tagged variant over nil/true/false, signed/unsigned 32-bit integers,
// a double, a pair of undocumented-format complex-number words, a
// byte string, a table, or a child-prototype sentinel.
type Value struct {
	Kind    Kind
	SInt    int32
	UInt    uint32
	Double  float64
	Complex [2]uint32 // [hi, lo], preserved verbatim.
	Str     string
	Table   *Table
}

// Equal reports whether two Values carry the same tag and payload.
// Used to detect duplicate table keys, which is an input error.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindSInt:
		return v.SInt == o.SInt
	case KindUInt:
		return v.UInt == o.UInt
	case KindDouble:
		return v.Double == o.Double
	case KindComplexNum:
		return v.Complex == o.Complex
	case KindStr:
		return v.Str == o.Str
	default:
		return true // Nil/True/False/ChildProto/Table carry no comparable scalar payload here.
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindSInt:
		return fmt.Sprintf("%d", v.SInt)
	case KindUInt:
		return fmt.Sprintf("%d", v.UInt)
	case KindDouble:
		return fmt.Sprintf("%g", v.Double)
	case KindComplexNum:
		return fmt.Sprintf("complex(%d,%d)", v.Complex[0], v.Complex[1])
	case KindStr:
		return fmt.Sprintf("%q", v.Str)
	case KindTable:
		return v.Table.String()
	case KindChildProto:
		return "<childproto>"
	default:
		return "<invalid>"
	}
}

// KV is one ordered (key, value) pair of a table's hash part.
type KV struct {
	Key   Value
	Value Value
}

// Table holds the two disjoint parts of a LuaJIT table constant: the
// dense, 1-indexed array part and the ordered hash part. Hash-part
// insertion order MUST be preserved for faithful round-trip.
type Table struct {
	Array []Value
	Hash  []KV
}

// Put appends (key, value) to the hash part, or returns a
// MalformedInput error if key already exists — duplicate keys are an
// input error (§3).
func (t *Table) Put(key, value Value) error {
	for _, kv := range t.Hash {
		if kv.Key.Equal(key) {
			return ljerrors.Malformed(ljerrors.Context{}, "duplicate table key %s", key)
		}
	}
	t.Hash = append(t.Hash, KV{Key: key, Value: value})
	return nil
}

func (t *Table) String() string {
	var array, hash []string
	for _, v := range t.Array {
		array = append(array, v.String())
	}
	for _, kv := range t.Hash {
		hash = append(hash, fmt.Sprintf("%s=%s", kv.Key, kv.Value))
	}
	return fmt.Sprintf("{array:[%s] hash:[%s]}", strings.Join(array, ", "), strings.Join(hash, ", "))
}

func nilValue() Value  { return Value{Kind: KindNil} }
func trueValue() Value { return Value{Kind: KindTrue} }
func falseValue() Value {
	return Value{Kind: KindFalse}
}

// ReadKN reads one number constant (§4.2): a variable-length unsigned
// integer A; if its low bit is 0 the value is the unsigned integer
// A>>1, otherwise a second VLU integer B follows and the value is the
// double whose 64-bit pattern is ((A>>1)<<32)|B.
func ReadKN(r *bytestream.Reader) Value {
	a := r.ReadULEB()
	isDouble := a&1 != 0
	a >>= 1
	if !isDouble {
		return Value{Kind: KindUInt, UInt: a}
	}
	b := r.ReadULEB()
	bits := (uint64(a) << 32) | uint64(b)
	return Value{Kind: KindDouble, Double: math.Float64frombits(bits)}
}

// ReadKGC reads one garbage-collected constant (§4.2). A type tag of 0
// yields the ChildProto sentinel; the assembler is responsible for
// popping the matching id off its emission stack when it sees one.
func ReadKGC(r *bytestream.Reader) Value {
	t := r.ReadULEB()
	switch {
	case t == 0:
		return Value{Kind: KindChildProto}
	case t == 1:
		tbl := ReadTable(r)
		return Value{Kind: KindTable, Table: tbl}
	case t == 2:
		return Value{Kind: KindSInt, SInt: int32(r.ReadULEB())}
	case t == 3:
		return Value{Kind: KindUInt, UInt: r.ReadULEB()}
	case t == 4:
		hi := r.ReadULEB()
		lo := r.ReadULEB()
		return Value{Kind: KindComplexNum, Complex: [2]uint32{hi, lo}}
	case t >= 5:
		n := int(t - 5)
		return Value{Kind: KindStr, Str: readLuaString(r, n)}
	default:
		panic(ljerrors.Invariant(ljerrors.Context{}, "unreachable KGC tag %d", t))
	}
}

// ReadTableValue reads one table cell. It uses the same tag space as
// ReadKGC except 0,1,2 mean Nil/False/True and 3 is a plain VLU
// unsigned integer (no child-prototype or table-of-tables case).
func ReadTableValue(r *bytestream.Reader) Value {
	t := r.ReadULEB()
	switch {
	case t == 0:
		return nilValue()
	case t == 1:
		return falseValue()
	case t == 2:
		return trueValue()
	case t == 3:
		return Value{Kind: KindUInt, UInt: r.ReadULEB()}
	case t == 4:
		hi := r.ReadULEB()
		lo := r.ReadULEB()
		return Value{Kind: KindComplexNum, Complex: [2]uint32{hi, lo}}
	case t >= 5:
		n := int(t - 5)
		return Value{Kind: KindStr, Str: readLuaString(r, n)}
	default:
		panic(ljerrors.Invariant(ljerrors.Context{}, "unreachable table-value tag %d", t))
	}
}

// ReadTable reads array-length A and hash-length H (both VLU), then A
// array values, then H (key, value) pairs.
func ReadTable(r *bytestream.Reader) *Table {
	arrayLen := r.ReadULEB()
	hashLen := r.ReadULEB()

	tbl := &Table{}
	for i := uint32(0); i < arrayLen; i++ {
		tbl.Array = append(tbl.Array, ReadTableValue(r))
	}
	for i := uint32(0); i < hashLen; i++ {
		k := ReadTableValue(r)
		v := ReadTableValue(r)
		if err := tbl.Put(k, v); err != nil {
			panic(err)
		}
	}
	return tbl
}

func readLuaString(r *bytestream.Reader, n int) string {
	if n <= 0 {
		panic(ljerrors.Malformed(ljerrors.Context{}, "string constant of length %d is rejected", n))
	}
	return string(r.ReadBytes(n))
}
