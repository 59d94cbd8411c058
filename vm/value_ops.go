package vm

import "math"

// ---------------------------------------------------------------------------
// Arithmetic and comparison
// ---------------------------------------------------------------------------
//
// Every binary operator has three tiers:
//   1. both operands are immediate fixnums: work on the tagged words;
//   2. both operands are immediate numbers, at least one a float;
//   3. generic: unwrap boxed numerics and dispatch on the kind pair.
// A tier that cannot produce the exact result falls through to the next,
// so all three agree for every input.

// numeric is an unwrapped integer or float operand.
type numeric struct {
	isFloat bool
	i       int64
	f       float64
}

func (n numeric) float() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

// numericOf unwraps immediate and boxed numbers.
func (g *Globals) numericOf(v Value) (numeric, bool) {
	switch {
	case v.IsFixnum():
		return numeric{i: v.fixnumBits()}, true
	case v.IsFloat():
		return numeric{isFloat: true, f: v.Float64()}, true
	case v.IsObject():
		obj := g.Heap.Get(v)
		if n, ok := obj.BoxedFixnum(); ok {
			return numeric{i: n}, true
		}
		if f, ok := obj.BoxedFloat(); ok {
			return numeric{isFloat: true, f: f}, true
		}
	}
	return numeric{}, false
}

// packedFloat reads an immediate number as a float.
func packedFloat(v Value) float64 {
	if v.IsFixnum() {
		return float64(v.fixnumBits())
	}
	return v.Float64()
}

func (g *Globals) noMethod(op string, lhs, rhs Value) error {
	return errNoMethod("undefined method '%s' for %s with %s",
		op, g.Inspect(lhs), g.ClassName(g.SearchClassOrImmediate(rhs)))
}

// SearchClassOrImmediate is SearchClass extended to immediates.
func (g *Globals) SearchClassOrImmediate(v Value) Value {
	if v.IsImmediate() {
		return g.ClassOf(v)
	}
	return g.SearchClass(v)
}

// arith runs the generic tier of an arithmetic operator.
func (g *Globals) arith(op string, lhs, rhs Value,
	ints func(a, b int64) (int64, error), floats func(a, b float64) float64) (Value, error) {
	a, ok1 := g.numericOf(lhs)
	b, ok2 := g.numericOf(rhs)
	if !ok1 || !ok2 {
		return Nil, g.noMethod(op, lhs, rhs)
	}
	if !a.isFloat && !b.isFloat {
		n, err := ints(a.i, b.i)
		if err != nil {
			return Nil, err
		}
		return g.Integer(n), nil
	}
	return FromFloat64(floats(a.float(), b.float())), nil
}

// Add implements lhs + rhs. Two strings concatenate into a new string.
func (g *Globals) Add(lhs, rhs Value) (Value, error) {
	if lhs.IsFixnum() && rhs.IsFixnum() {
		if v, ok := TryFromFixnum(lhs.fixnumBits() + rhs.fixnumBits()); ok {
			return v, nil
		}
	} else if lhs.isPackedNum() && rhs.isPackedNum() {
		return FromFloat64(packedFloat(lhs) + packedFloat(rhs)), nil
	}
	if ls, rs := g.StringOf(lhs), g.StringOf(rhs); ls != nil && rs != nil {
		return g.NewString(ls.String() + rs.String()), nil
	}
	return g.arith("+", lhs, rhs,
		func(a, b int64) (int64, error) { return a + b, nil },
		func(a, b float64) float64 { return a + b })
}

// Sub implements lhs - rhs.
func (g *Globals) Sub(lhs, rhs Value) (Value, error) {
	if lhs.IsFixnum() && rhs.IsFixnum() {
		if v, ok := TryFromFixnum(lhs.fixnumBits() - rhs.fixnumBits()); ok {
			return v, nil
		}
	} else if lhs.isPackedNum() && rhs.isPackedNum() {
		return FromFloat64(packedFloat(lhs) - packedFloat(rhs)), nil
	}
	return g.arith("-", lhs, rhs,
		func(a, b int64) (int64, error) { return a - b, nil },
		func(a, b float64) float64 { return a - b })
}

// Mul implements lhs * rhs.
func (g *Globals) Mul(lhs, rhs Value) (Value, error) {
	if lhs.IsFixnum() && rhs.IsFixnum() {
		a, b := lhs.fixnumBits(), rhs.fixnumBits()
		// Both operands fit in 48 bits, so the product can only leave the
		// int64 range when it also leaves the fixnum range.
		if a == 0 || (a*b)/a == b {
			if v, ok := TryFromFixnum(a * b); ok {
				return v, nil
			}
		}
	} else if lhs.isPackedNum() && rhs.isPackedNum() {
		return FromFloat64(packedFloat(lhs) * packedFloat(rhs)), nil
	}
	return g.arith("*", lhs, rhs,
		func(a, b int64) (int64, error) { return a * b, nil },
		func(a, b float64) float64 { return a * b })
}

// Div implements lhs / rhs. Integer division truncates toward zero.
func (g *Globals) Div(lhs, rhs Value) (Value, error) {
	if lhs.IsFixnum() && rhs.IsFixnum() {
		if b := rhs.fixnumBits(); b != 0 {
			// MinFixnum / -1 still fits in int64; the range check boxes it.
			if v, ok := TryFromFixnum(lhs.fixnumBits() / b); ok {
				return v, nil
			}
		}
	} else if lhs.isPackedNum() && rhs.isPackedNum() {
		return FromFloat64(packedFloat(lhs) / packedFloat(rhs)), nil
	}
	return g.arith("/", lhs, rhs,
		func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, newError(ErrorZeroDivision, "divided by 0")
			}
			if a == math.MinInt64 && b == -1 {
				return a, nil
			}
			return a / b, nil
		},
		func(a, b float64) float64 { return a / b })
}

// intOp runs an integer-only operator, boxing results outside the fixnum range.
func (g *Globals) intOp(op string, lhs, rhs Value, fn func(a, b int64) int64) (Value, error) {
	if lhs.IsFixnum() && rhs.IsFixnum() {
		return g.Integer(fn(lhs.fixnumBits(), rhs.fixnumBits())), nil
	}
	a, ok1 := g.numericOf(lhs)
	b, ok2 := g.numericOf(rhs)
	if !ok1 || !ok2 || a.isFloat || b.isFloat {
		return Nil, g.noMethod(op, lhs, rhs)
	}
	return g.Integer(fn(a.i, b.i)), nil
}

func shiftLeft(a, s int64) int64 {
	switch {
	case s < 0:
		return shiftRight(a, -s)
	case s >= 64:
		return 0
	}
	return a << uint(s)
}

func shiftRight(a, s int64) int64 {
	switch {
	case s < 0:
		return shiftLeft(a, -s)
	case s >= 64:
		if a < 0 {
			return -1
		}
		return 0
	}
	return a >> uint(s)
}

// Shl implements lhs << rhs.
func (g *Globals) Shl(lhs, rhs Value) (Value, error) {
	return g.intOp("<<", lhs, rhs, shiftLeft)
}

// Shr implements lhs >> rhs.
func (g *Globals) Shr(lhs, rhs Value) (Value, error) {
	return g.intOp(">>", lhs, rhs, shiftRight)
}

func (g *Globals) BitAnd(lhs, rhs Value) (Value, error) {
	return g.intOp("&", lhs, rhs, func(a, b int64) int64 { return a & b })
}

func (g *Globals) BitOr(lhs, rhs Value) (Value, error) {
	return g.intOp("|", lhs, rhs, func(a, b int64) int64 { return a | b })
}

func (g *Globals) BitXor(lhs, rhs Value) (Value, error) {
	return g.intOp("^", lhs, rhs, func(a, b int64) int64 { return a ^ b })
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// equal compares two values of the same kind. Numbers compare across
// integer and float; other mismatched pairs are not comparable.
func (g *Globals) equal(op string, lhs, rhs Value) (bool, error) {
	if lhs.IsFixnum() && rhs.IsFixnum() {
		return lhs == rhs, nil
	}
	if lhs.isPackedNum() && rhs.isPackedNum() {
		return packedFloat(lhs) == packedFloat(rhs), nil
	}
	if a, ok := g.numericOf(lhs); ok {
		if b, ok := g.numericOf(rhs); ok {
			if !a.isFloat && !b.isFloat {
				return a.i == b.i, nil
			}
			return a.float() == b.float(), nil
		}
		return false, g.noMethod(op, lhs, rhs)
	}
	switch {
	case lhs == Nil || rhs == Nil:
		if lhs == rhs {
			return true, nil
		}
	case lhs.IsBool() && rhs.IsBool():
		return lhs == rhs, nil
	case lhs.IsObject() && rhs.IsObject():
		if ls, rs := g.StringOf(lhs), g.StringOf(rhs); ls != nil && rs != nil {
			return ls.String() == rs.String(), nil
		}
		if _, ok := g.numericOf(rhs); !ok {
			return lhs == rhs, nil
		}
	}
	return false, g.noMethod(op, lhs, rhs)
}

// Eq implements lhs == rhs.
func (g *Globals) Eq(lhs, rhs Value) (Value, error) {
	eq, err := g.equal("==", lhs, rhs)
	if err != nil {
		return Nil, err
	}
	return FromBool(eq), nil
}

// Ne implements lhs != rhs.
func (g *Globals) Ne(lhs, rhs Value) (Value, error) {
	eq, err := g.equal("!=", lhs, rhs)
	if err != nil {
		return Nil, err
	}
	return FromBool(!eq), nil
}

// compare orders two numbers.
func (g *Globals) compare(op string, lhs, rhs Value, ints func(a, b int64) bool, floats func(a, b float64) bool) (Value, error) {
	if lhs.IsFixnum() && rhs.IsFixnum() {
		return FromBool(ints(lhs.fixnumBits(), rhs.fixnumBits())), nil
	}
	if lhs.isPackedNum() && rhs.isPackedNum() {
		return FromBool(floats(packedFloat(lhs), packedFloat(rhs))), nil
	}
	a, ok1 := g.numericOf(lhs)
	b, ok2 := g.numericOf(rhs)
	if !ok1 || !ok2 {
		return Nil, g.noMethod(op, lhs, rhs)
	}
	if !a.isFloat && !b.isFloat {
		return FromBool(ints(a.i, b.i)), nil
	}
	return FromBool(floats(a.float(), b.float())), nil
}

// Gt implements lhs > rhs.
func (g *Globals) Gt(lhs, rhs Value) (Value, error) {
	return g.compare(">", lhs, rhs,
		func(a, b int64) bool { return a > b },
		func(a, b float64) bool { return a > b })
}

// Ge implements lhs >= rhs.
func (g *Globals) Ge(lhs, rhs Value) (Value, error) {
	return g.compare(">=", lhs, rhs,
		func(a, b int64) bool { return a >= b },
		func(a, b float64) bool { return a >= b })
}
