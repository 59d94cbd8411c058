package vm

import (
	"errors"
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Float tests
// ---------------------------------------------------------------------------

func TestFloatRoundTrip(t *testing.T) {
	tests := []float64{
		0.0,
		math.Copysign(0, -1),
		1.0,
		-1.0,
		3.14159265358979,
		-3.14159265358979,
		math.MaxFloat64,
		math.SmallestNonzeroFloat64,
		-math.MaxFloat64,
		-math.SmallestNonzeroFloat64,
		math.Inf(1),
		math.Inf(-1),
	}

	for _, f := range tests {
		v := FromFloat64(f)
		if !v.IsFloat() {
			t.Errorf("FromFloat64(%v).IsFloat() = false, want true", f)
			continue
		}
		if v.IsFixnum() || v.IsObject() || v.IsNil() || v.IsBool() {
			t.Errorf("FromFloat64(%v) matched a non-float predicate", f)
		}
		got := v.Float64()
		if math.Float64bits(got) != math.Float64bits(f) {
			t.Errorf("FromFloat64(%v).Float64() = %v, want %v", f, got, f)
		}
	}
}

func TestFloatNaNIsCanonical(t *testing.T) {
	nans := []uint64{
		0x7FF8000000000000,
		0x7FF8000000000001,
		0x7FFB000000000000, // would collide with the object tag
		0xFFF8000000000000,
		0x7FF0000000000001, // signaling
	}
	for _, bits := range nans {
		v := FromFloat64(math.Float64frombits(bits))
		if !v.IsFloat() {
			t.Errorf("NaN %#x is not a float after packing", bits)
		}
		if uint64(v) != canonicalNaN {
			t.Errorf("NaN %#x packed to %#x, want %#x", bits, uint64(v), canonicalNaN)
		}
		if !math.IsNaN(v.Float64()) {
			t.Errorf("NaN %#x did not round trip", bits)
		}
	}
}

// ---------------------------------------------------------------------------
// Fixnum tests
// ---------------------------------------------------------------------------

func TestFixnumRoundTrip(t *testing.T) {
	tests := []int64{0, 1, -1, 42, -42, 1 << 20, -(1 << 20), MaxFixnum, MinFixnum}

	for _, n := range tests {
		v := FromFixnum(n)
		if !v.IsFixnum() {
			t.Errorf("FromFixnum(%d).IsFixnum() = false", n)
			continue
		}
		if v.IsFloat() {
			t.Errorf("FromFixnum(%d).IsFloat() = true", n)
		}
		if got := v.Fixnum(); got != n {
			t.Errorf("FromFixnum(%d).Fixnum() = %d", n, got)
		}
	}
}

func TestFixnumOutOfRange(t *testing.T) {
	for _, n := range []int64{MaxFixnum + 1, MinFixnum - 1, math.MaxInt64, math.MinInt64} {
		if _, ok := TryFromFixnum(n); ok {
			t.Errorf("TryFromFixnum(%d) succeeded, want out of range", n)
		}
	}

	defer func() {
		if recover() == nil {
			t.Error("FromFixnum(MaxFixnum+1) did not panic")
		}
	}()
	FromFixnum(MaxFixnum + 1)
}

// ---------------------------------------------------------------------------
// Special values
// ---------------------------------------------------------------------------

func TestSpecialValues(t *testing.T) {
	if !Nil.IsNil() || Nil.IsTruthy() {
		t.Error("nil must be nil and falsy")
	}
	if !False.IsFalse() || False.IsTruthy() {
		t.Error("false must be false and falsy")
	}
	if !True.IsTrue() || !True.IsTruthy() {
		t.Error("true must be true and truthy")
	}
	for _, v := range []Value{FromFixnum(0), FromFloat64(0), FromRef(0)} {
		if !v.IsTruthy() {
			t.Errorf("%v should be truthy", v)
		}
	}
	if Nil == False || Nil == True || True == False {
		t.Error("special values must be distinct")
	}
}

// ---------------------------------------------------------------------------
// Pack / Unpack
// ---------------------------------------------------------------------------

func TestPackUnpackRoundTrip(t *testing.T) {
	values := []Value{
		Nil, True, False,
		FromFixnum(0), FromFixnum(-7), FromFixnum(MaxFixnum), FromFixnum(MinFixnum),
		FromFloat64(0), FromFloat64(math.Copysign(0, -1)), FromFloat64(2.5),
		FromFloat64(math.Inf(-1)), FromFloat64(math.NaN()),
		FromRef(0), FromRef(12345), FromRef(ObjectRef(^uint32(0))),
	}
	for _, v := range values {
		if got := Pack(v.Unpack()); got != v {
			t.Errorf("Pack(Unpack(%#x)) = %#x", uint64(v), uint64(got))
		}
	}

	structured := []Unpacked{
		{Kind: KindNil},
		{Kind: KindBool, Bool: true},
		{Kind: KindBool, Bool: false},
		{Kind: KindFixnum, Int: 99},
		{Kind: KindFixnum, Int: MinFixnum},
		{Kind: KindFloat, Float: -1.25},
		{Kind: KindObject, Ref: 7},
	}
	for _, u := range structured {
		if got := Pack(u).Unpack(); got != u {
			t.Errorf("Unpack(Pack(%+v)) = %+v", u, got)
		}
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{True, "true"},
		{False, "false"},
		{FromFixnum(-12), "-12"},
		{FromFloat64(1), "1.0"},
		{FromFloat64(2.5), "2.5"},
		{FromFloat64(1e20), "1e+20"},
		{FromFloat64(math.Inf(1)), "Infinity"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("%#x.String() = %q, want %q", uint64(tt.v), got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Arithmetic tiers
// ---------------------------------------------------------------------------

// genericOnly runs an operator with both operands boxed, which skips both
// fast paths.
func genericOnly(g *Globals, op func(a, b Value) (Value, error), a, b int64) (Value, error) {
	return op(g.Heap.Alloc(newRValue(Nil, ObjFixnum, a)), g.Heap.Alloc(newRValue(Nil, ObjFixnum, b)))
}

func TestFastPathMatchesGeneric(t *testing.T) {
	g := NewGlobals()
	ops := []struct {
		name string
		fn   func(a, b Value) (Value, error)
	}{
		{"+", g.Add},
		{"-", g.Sub},
		{"*", g.Mul},
		{"/", g.Div},
		{"&", g.BitAnd},
		{"|", g.BitOr},
		{"^", g.BitXor},
		{"==", g.Eq},
		{"!=", g.Ne},
		{">", g.Gt},
		{">=", g.Ge},
	}
	operands := []int64{0, 1, -1, 2, 7, -13, 1000003, MaxFixnum, MinFixnum, MaxFixnum / 2, 1 << 30}

	for _, op := range ops {
		for _, a := range operands {
			for _, b := range operands {
				if op.name == "/" && b == 0 {
					continue
				}
				fast, err := op.fn(FromFixnum(a), FromFixnum(b))
				if err != nil {
					t.Fatalf("%d %s %d fast: %v", a, op.name, b, err)
				}
				slow, err := genericOnly(g, op.fn, a, b)
				if err != nil {
					t.Fatalf("%d %s %d generic: %v", a, op.name, b, err)
				}
				fn, _ := g.numericOf(fast)
				sn, _ := g.numericOf(slow)
				if fast.IsBool() || slow.IsBool() {
					if fast != slow {
						t.Errorf("%d %s %d: fast %v, generic %v", a, op.name, b, fast, slow)
					}
				} else if fn != sn {
					t.Errorf("%d %s %d: fast %+v, generic %+v", a, op.name, b, fn, sn)
				}
			}
		}
	}
}

func TestFixnumOverflowBoxes(t *testing.T) {
	g := NewGlobals()
	v, err := g.Add(FromFixnum(MaxFixnum), FromFixnum(1))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if v.IsFixnum() {
		t.Fatal("MaxFixnum+1 should not be an immediate")
	}
	n, ok := g.numericOf(v)
	if !ok || n.isFloat || n.i != MaxFixnum+1 {
		t.Errorf("MaxFixnum+1 = %+v, want boxed %d", n, MaxFixnum+1)
	}

	v, err = g.Mul(FromFixnum(MaxFixnum), FromFixnum(4))
	if err != nil {
		t.Fatalf("Mul: %v", err)
	}
	if n, _ := g.numericOf(v); n.i != MaxFixnum*4 {
		t.Errorf("MaxFixnum*4 = %d, want %d", n.i, MaxFixnum*4)
	}
}

func TestMixedArithmetic(t *testing.T) {
	g := NewGlobals()
	tests := []struct {
		name string
		fn   func(a, b Value) (Value, error)
		a, b Value
		want float64
	}{
		{"int+float", g.Add, FromFixnum(1), FromFloat64(0.5), 1.5},
		{"float-int", g.Sub, FromFloat64(0.5), FromFixnum(2), -1.5},
		{"int-float", g.Sub, FromFixnum(2), FromFloat64(0.5), 1.5},
		{"float*float", g.Mul, FromFloat64(1.5), FromFloat64(2), 3},
		{"int/float", g.Div, FromFixnum(3), FromFloat64(2), 1.5},
	}
	for _, tt := range tests {
		v, err := tt.fn(tt.a, tt.b)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if !v.IsFloat() || v.Float64() != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, v, tt.want)
		}
	}
}

func TestIntegerDivision(t *testing.T) {
	g := NewGlobals()
	v, err := g.Div(FromFixnum(-7), FromFixnum(2))
	if err != nil {
		t.Fatal(err)
	}
	if v.Fixnum() != -3 {
		t.Errorf("-7 / 2 = %v, want -3", v)
	}

	_, err = g.Div(FromFixnum(1), FromFixnum(0))
	if !errors.Is(err, ErrZeroDivision) {
		t.Errorf("1 / 0 error = %v, want ZeroDivisionError", err)
	}
}

func TestOperatorNoMethod(t *testing.T) {
	g := NewGlobals()
	s := g.NewString("a")
	tests := []struct {
		name string
		fn   func(a, b Value) (Value, error)
		a, b Value
	}{
		{"string+int", g.Add, s, FromFixnum(1)},
		{"nil-int", g.Sub, Nil, FromFixnum(1)},
		{"float<<int", g.Shl, FromFloat64(1), FromFixnum(1)},
		{"bool>int", g.Gt, True, FromFixnum(1)},
		{"int==nil", g.Eq, FromFixnum(1), Nil},
	}
	for _, tt := range tests {
		_, err := tt.fn(tt.a, tt.b)
		if !errors.Is(err, ErrNoMethod) {
			t.Errorf("%s: error = %v, want NoMethodError", tt.name, err)
		}
	}
}

func TestComparison(t *testing.T) {
	g := NewGlobals()
	tests := []struct {
		name string
		fn   func(a, b Value) (Value, error)
		a, b Value
		want Value
	}{
		{"1 == 1.0", g.Eq, FromFixnum(1), FromFloat64(1), True},
		{"2 > 1.5", g.Gt, FromFixnum(2), FromFloat64(1.5), True},
		{"1.5 >= 2", g.Ge, FromFloat64(1.5), FromFixnum(2), False},
		{"nil == nil", g.Eq, Nil, Nil, True},
		{"true != false", g.Ne, True, False, True},
		{"strings", g.Eq, g.NewString("x"), g.NewString("x"), True},
	}
	for _, tt := range tests {
		got, err := tt.fn(tt.a, tt.b)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestShifts(t *testing.T) {
	g := NewGlobals()
	tests := []struct {
		fn   func(a, b Value) (Value, error)
		a, b int64
		want int64
	}{
		{g.Shl, 1, 4, 16},
		{g.Shr, 16, 4, 1},
		{g.Shr, -16, 2, -4},
		{g.Shl, 8, -1, 4},
		{g.Shr, -1, 100, -1},
	}
	for _, tt := range tests {
		v, err := tt.fn(FromFixnum(tt.a), FromFixnum(tt.b))
		if err != nil {
			t.Fatal(err)
		}
		if n, _ := g.numericOf(v); n.i != tt.want {
			t.Errorf("shift(%d, %d) = %d, want %d", tt.a, tt.b, n.i, tt.want)
		}
	}
}
