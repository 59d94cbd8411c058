package vm

import "math"

// ---------------------------------------------------------------------------
// Range primitives
// ---------------------------------------------------------------------------

// maxRangeElements bounds to_a so a huge literal range cannot exhaust memory.
const maxRangeElements = 1 << 24

func (g *Globals) registerRangePrimitives() {
	c := g.Builtins.Range

	g.AddBuiltinInstanceMethod(c, "first", Arity0(func(vm *VM, self Value) (Value, error) {
		r, err := vm.rangeSelf(self)
		if err != nil {
			return Nil, err
		}
		return r.Start, nil
	}))

	g.AddBuiltinInstanceMethod(c, "last", Arity0(func(vm *VM, self Value) (Value, error) {
		r, err := vm.rangeSelf(self)
		if err != nil {
			return Nil, err
		}
		return r.End, nil
	}))

	g.AddBuiltinInstanceMethod(c, "exclude_end?", Arity0(func(vm *VM, self Value) (Value, error) {
		r, err := vm.rangeSelf(self)
		if err != nil {
			return Nil, err
		}
		return FromBool(r.Exclude), nil
	}))

	g.AddBuiltinInstanceMethod(c, "to_a", Arity0(func(vm *VM, self Value) (Value, error) {
		r, err := vm.rangeSelf(self)
		if err != nil {
			return Nil, err
		}
		start, err := vm.intArg(r.Start)
		if err != nil {
			return Nil, err
		}
		end, err := vm.intArg(r.End)
		if err != nil {
			return Nil, err
		}
		if r.Exclude {
			if end == math.MinInt64 {
				return vm.Globals.NewArray(nil), nil
			}
			end--
		}
		if end < start {
			return vm.Globals.NewArray(nil), nil
		}
		// end-start in uint64 is exact for every end >= start.
		span := uint64(end) - uint64(start)
		if span >= maxRangeElements {
			return Nil, errArgument("range too large (%d..%d)", start, end)
		}
		elems := make([]Value, 0, span+1)
		for i := uint64(0); i <= span; i++ {
			elems = append(elems, vm.Globals.Integer(start+int64(i)))
		}
		return vm.Globals.NewArray(elems), nil
	}))
}

func (vm *VM) rangeSelf(self Value) (*RangeInfo, error) {
	r := vm.Globals.RangeOf(self)
	if r == nil {
		return nil, errType("%s is not a Range", vm.Globals.Inspect(self))
	}
	return r, nil
}
