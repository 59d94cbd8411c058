package vm

// ---------------------------------------------------------------------------
// Hash primitives
// ---------------------------------------------------------------------------

func (g *Globals) registerHashPrimitives() {
	c := g.Builtins.Hash

	g.AddBuiltinClassMethod(c, "new", Arity0(func(vm *VM, self Value) (Value, error) {
		return vm.Globals.NewHash(), nil
	}))

	g.AddBuiltinInstanceMethod(c, "[]", Arity1(func(vm *VM, self Value, key Value) (Value, error) {
		h, err := vm.hashSelf(self)
		if err != nil {
			return Nil, err
		}
		v, _ := vm.Globals.HashGet(h, key)
		return v, nil
	}))

	g.AddBuiltinInstanceMethod(c, "[]=", Arity2(func(vm *VM, self Value, key, val Value) (Value, error) {
		h, err := vm.hashSelf(self)
		if err != nil {
			return Nil, err
		}
		vm.Globals.HashSet(h, key, val)
		return val, nil
	}))

	g.AddBuiltinInstanceMethod(c, "length", Arity0(func(vm *VM, self Value) (Value, error) {
		h, err := vm.hashSelf(self)
		if err != nil {
			return Nil, err
		}
		return FromFixnum(int64(h.Len())), nil
	}))

	g.AddBuiltinInstanceMethod(c, "keys", Arity0(func(vm *VM, self Value) (Value, error) {
		h, err := vm.hashSelf(self)
		if err != nil {
			return Nil, err
		}
		return vm.Globals.NewArray(h.Keys()), nil
	}))
}

func (vm *VM) hashSelf(self Value) (*HashInfo, error) {
	h := vm.Globals.HashOf(self)
	if h == nil {
		return nil, errType("%s is not a Hash", vm.Globals.Inspect(self))
	}
	return h, nil
}
