package vm

import (
	"fmt"
	"math"
)

// Value is a packed garnet value using NaN-boxing.
//
// All values are 64-bit words. Floats are stored as their native IEEE 754
// bits; every other immediate lives in the quiet-NaN space with a tag
// selecting its meaning.
//
// Encoding scheme:
//   - Float:  native IEEE 754 double (anything that is not tagged below)
//   - Fixnum: quiet NaN + tagInt + 48-bit signed payload
//   - Object: quiet NaN + tagObject + 48-bit heap handle
//   - Special: quiet NaN + tagSpecial + nil/true/false id
//
// The sign bit of a tagged word is always clear, and FromFloat64
// canonicalizes every NaN to a tag-free quiet NaN, so no float can ever
// be mistaken for a tagged immediate or a heap handle.
type Value uint64

// NaN-boxing constants
const (
	// Quiet NaN prefix: exponent all 1s, quiet bit set, sign bit 0
	nanBits uint64 = 0x7FF8000000000000

	// Tag bits within the NaN mantissa space
	tagMask uint64 = 0x0007000000000000

	// Sign + exponent + quiet bit + tag: everything above the payload
	boxMask uint64 = 0xFFFF000000000000

	// Payload mask: 48 bits for handle/int/id
	payloadMask uint64 = 0x0000FFFFFFFFFFFF

	tagObject  uint64 = 0x0001000000000000 // heap object handle
	tagInt     uint64 = 0x0002000000000000 // 48-bit signed integer
	tagSpecial uint64 = 0x0003000000000000 // nil, true, false

	canonicalNaN uint64 = nanBits
)

const (
	specialNil   uint64 = 0
	specialTrue  uint64 = 1
	specialFalse uint64 = 2
)

// Pre-defined special values
const (
	Nil   Value = Value(nanBits | tagSpecial | specialNil)
	True  Value = Value(nanBits | tagSpecial | specialTrue)
	False Value = Value(nanBits | tagSpecial | specialFalse)
)

// Fixnum range (48-bit signed)
const (
	MaxFixnum int64 = (1 << 47) - 1
	MinFixnum int64 = -(1 << 47)
)

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

func (v Value) tag() uint64 {
	return uint64(v) & boxMask
}

// IsFixnum reports whether v is an immediate integer.
func (v Value) IsFixnum() bool {
	return v.tag() == nanBits|tagInt
}

// IsObject reports whether v is a handle to a heap object.
func (v Value) IsObject() bool {
	return v.tag() == nanBits|tagObject
}

// IsSpecial reports whether v is nil, true or false.
func (v Value) IsSpecial() bool {
	return v.tag() == nanBits|tagSpecial
}

// IsFloat reports whether v is an immediate float. Every word that does not
// carry one of the three tags decodes as a float, which keeps Unpack total.
func (v Value) IsFloat() bool {
	t := v.tag()
	return t != nanBits|tagInt && t != nanBits|tagObject && t != nanBits|tagSpecial
}

// IsImmediate reports whether v is fully encoded in the word.
func (v Value) IsImmediate() bool {
	return !v.IsObject()
}

// isPackedNum is the fast-path numeric test used by the arithmetic tiers.
func (v Value) isPackedNum() bool {
	return v.IsFixnum() || v.IsFloat()
}

func (v Value) IsNil() bool   { return v == Nil }
func (v Value) IsTrue() bool  { return v == True }
func (v Value) IsFalse() bool { return v == False }
func (v Value) IsBool() bool  { return v == True || v == False }

// ---------------------------------------------------------------------------
// Floats
// ---------------------------------------------------------------------------

// Float64 returns v as a float64.
// Panics if v is not a float.
func (v Value) Float64() float64 {
	if !v.IsFloat() {
		panic("Value.Float64: not a float")
	}
	return math.Float64frombits(uint64(v))
}

// FromFloat64 creates a Value from a float64.
func FromFloat64(f float64) Value {
	if f != f {
		return Value(canonicalNaN)
	}
	return Value(math.Float64bits(f))
}

// ---------------------------------------------------------------------------
// Fixnums
// ---------------------------------------------------------------------------

// fixnumBits sign-extends the 48-bit payload straight off the tagged word.
func (v Value) fixnumBits() int64 {
	return int64(uint64(v)<<16) >> 16
}

// Fixnum returns v as an int64.
// Panics if v is not an immediate integer.
func (v Value) Fixnum() int64 {
	if !v.IsFixnum() {
		panic("Value.Fixnum: not a fixnum")
	}
	return v.fixnumBits()
}

// FromFixnum creates a Value from an int64.
// Panics if n is outside the fixnum range.
func FromFixnum(n int64) Value {
	v, ok := TryFromFixnum(n)
	if !ok {
		panic("FromFixnum: value out of range")
	}
	return v
}

// TryFromFixnum creates a Value from an int64, returning false if out of range.
func TryFromFixnum(n int64) (Value, bool) {
	if n > MaxFixnum || n < MinFixnum {
		return Nil, false
	}
	return Value(nanBits | tagInt | (uint64(n) & payloadMask)), true
}

// ---------------------------------------------------------------------------
// Heap handles
// ---------------------------------------------------------------------------

// ObjectRef is a stable index into the heap arena.
type ObjectRef uint32

// Ref returns the heap handle carried by v.
// Panics if v is not an object.
func (v Value) Ref() ObjectRef {
	if !v.IsObject() {
		panic("Value.Ref: not an object")
	}
	return ObjectRef(uint64(v) & payloadMask)
}

// FromRef creates a Value from a heap handle.
func FromRef(ref ObjectRef) Value {
	return Value(nanBits | tagObject | uint64(ref))
}

// ---------------------------------------------------------------------------
// Booleans and truthiness
// ---------------------------------------------------------------------------

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// IsTruthy reports whether v counts as true in a conditional.
// Only nil and false are falsy.
func (v Value) IsTruthy() bool {
	return v != False && v != Nil
}

// ---------------------------------------------------------------------------
// Structured form
// ---------------------------------------------------------------------------

// ValueKind discriminates the structured form of a Value.
type ValueKind uint8

const (
	KindNil ValueKind = iota
	KindBool
	KindFixnum
	KindFloat
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindFixnum:
		return "fixnum"
	case KindFloat:
		return "float"
	case KindObject:
		return "object"
	}
	return fmt.Sprintf("ValueKind(%d)", uint8(k))
}

// Unpacked is the structured variant of a Value. Only the field selected by
// Kind is meaningful.
type Unpacked struct {
	Kind  ValueKind
	Bool  bool
	Int   int64
	Float float64
	Ref   ObjectRef
}

// Unpack decodes v. Every bit pattern decodes to exactly one variant.
func (v Value) Unpack() Unpacked {
	switch {
	case v.IsFixnum():
		return Unpacked{Kind: KindFixnum, Int: v.fixnumBits()}
	case v.IsObject():
		return Unpacked{Kind: KindObject, Ref: v.Ref()}
	case v == Nil:
		return Unpacked{Kind: KindNil}
	case v == True:
		return Unpacked{Kind: KindBool, Bool: true}
	case v == False:
		return Unpacked{Kind: KindBool, Bool: false}
	case v.IsSpecial():
		// Unassigned special ids have no meaning; they read as nil.
		return Unpacked{Kind: KindNil}
	default:
		return Unpacked{Kind: KindFloat, Float: math.Float64frombits(uint64(v))}
	}
}

// Pack encodes u. A KindFixnum outside [MinFixnum, MaxFixnum] is not
// representable as an immediate and panics; use Globals.Integer to box it.
func Pack(u Unpacked) Value {
	switch u.Kind {
	case KindNil:
		return Nil
	case KindBool:
		return FromBool(u.Bool)
	case KindFixnum:
		return FromFixnum(u.Int)
	case KindFloat:
		return FromFloat64(u.Float)
	case KindObject:
		return FromRef(u.Ref)
	}
	panic(fmt.Sprintf("Pack: unknown kind %d", u.Kind))
}

// String renders immediates; heap objects show their handle.
func (v Value) String() string {
	switch u := v.Unpack(); u.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		if u.Bool {
			return "true"
		}
		return "false"
	case KindFixnum:
		return fmt.Sprintf("%d", u.Int)
	case KindFloat:
		return formatFloat(u.Float)
	default:
		return fmt.Sprintf("#<object %d>", u.Ref)
	}
}
