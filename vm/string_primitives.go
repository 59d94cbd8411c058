package vm

import "unicode/utf8"

// ---------------------------------------------------------------------------
// String primitives
// ---------------------------------------------------------------------------

func (g *Globals) registerStringPrimitives() {
	c := g.Builtins.String

	g.AddBuiltinInstanceMethod(c, "length", Arity0(func(vm *VM, self Value) (Value, error) {
		s, err := vm.stringArg(self)
		if err != nil {
			return Nil, err
		}
		return FromFixnum(int64(utf8.RuneCountInString(s))), nil
	}))

	g.AddBuiltinInstanceMethod(c, "+", Arity1(func(vm *VM, self Value, other Value) (Value, error) {
		lhs, err := vm.stringArg(self)
		if err != nil {
			return Nil, err
		}
		rhs, err := vm.stringArg(other)
		if err != nil {
			return Nil, err
		}
		return vm.Globals.NewString(lhs + rhs), nil
	}))

	g.AddBuiltinInstanceMethod(c, "to_s", Arity0(func(vm *VM, self Value) (Value, error) {
		return self, nil
	}))
}
