package vm

// ---------------------------------------------------------------------------
// Array primitives
// ---------------------------------------------------------------------------

func (g *Globals) registerArrayPrimitives() {
	c := g.Builtins.Array

	g.AddBuiltinInstanceMethod(c, "[]", func(vm *VM, self Value, args *Args) (Value, error) {
		a, err := vm.arraySelf(self)
		if err != nil {
			return Nil, err
		}
		return vm.arrayGet(a, args)
	})

	g.AddBuiltinInstanceMethod(c, "[]=", func(vm *VM, self Value, args *Args) (Value, error) {
		a, err := vm.arraySelf(self)
		if err != nil {
			return Nil, err
		}
		return vm.arraySet(a, args)
	})

	g.AddBuiltinInstanceMethod(c, "push", func(vm *VM, self Value, args *Args) (Value, error) {
		a, err := vm.arraySelf(self)
		if err != nil {
			return Nil, err
		}
		a.Elements = append(a.Elements, args.Values()...)
		return self, nil
	})

	g.AddBuiltinInstanceMethod(c, "length", Arity0(func(vm *VM, self Value) (Value, error) {
		a, err := vm.arraySelf(self)
		if err != nil {
			return Nil, err
		}
		return FromFixnum(int64(len(a.Elements))), nil
	}))

	g.AddBuiltinInstanceMethod(c, "to_s", Arity0(func(vm *VM, self Value) (Value, error) {
		return vm.Globals.NewString(vm.Globals.Inspect(self)), nil
	}))
}

func (vm *VM) arraySelf(self Value) (*ArrayInfo, error) {
	a := vm.Globals.ArrayOf(self)
	if a == nil {
		return nil, errType("%s is not an Array", vm.Globals.Inspect(self))
	}
	return a, nil
}

// arrayIndex resolves a possibly negative index against length n.
func arrayIndex(i int64, n int) (int, error) {
	if i < 0 {
		j := int64(n) + i
		if j < 0 {
			return 0, errIndex("index %d too small for array; minimum: -%d", i, n)
		}
		return int(j), nil
	}
	return int(i), nil
}

// maxArrayLength bounds how far an assignment past the end may grow an array.
const maxArrayLength = 1 << 24

// padArray extends a with nils up to length n in one allocation.
func padArray(a *ArrayInfo, n int64) error {
	if n >= maxArrayLength {
		return errIndex("index %d too big", n)
	}
	if int(n) <= len(a.Elements) {
		return nil
	}
	grown := make([]Value, n, n+1)
	copy(grown, a.Elements)
	for i := len(a.Elements); i < int(n); i++ {
		grown[i] = Nil
	}
	a.Elements = grown
	return nil
}

// arrayGet implements ary[i] and ary[start, len]. A negative length yields
// nil; a start past the end yields an empty array.
func (vm *VM) arrayGet(a *ArrayInfo, args *Args) (Value, error) {
	if err := checkArgsRange(args.Len(), 1, 2); err != nil {
		return Nil, err
	}
	i, err := vm.intArg(args.At(0))
	if err != nil {
		return Nil, err
	}
	n := len(a.Elements)
	idx, err := arrayIndex(i, n)
	if err != nil {
		return Nil, err
	}
	if args.Len() == 1 {
		if idx >= n {
			return Nil, nil
		}
		return a.Elements[idx], nil
	}
	length, err := vm.intArg(args.At(1))
	if err != nil {
		return Nil, err
	}
	switch {
	case length < 0:
		return Nil, nil
	case idx >= n:
		return vm.Globals.NewArray(nil), nil
	}
	end := min(n, idx+int(min(length, int64(n))))
	out := make([]Value, end-idx)
	copy(out, a.Elements[idx:end])
	return vm.Globals.NewArray(out), nil
}

// arraySet implements ary[i] = v and ary[start, len] = v. Assigning past
// the end pads with nil. With a length, the covered elements are replaced
// by v, or by v's elements when v is an array.
func (vm *VM) arraySet(a *ArrayInfo, args *Args) (Value, error) {
	if err := checkArgsRange(args.Len(), 2, 3); err != nil {
		return Nil, err
	}
	val := args.At(args.Len() - 1)
	i, err := vm.intArg(args.At(0))
	if err != nil {
		return Nil, err
	}
	n := len(a.Elements)

	if args.Len() == 2 {
		if i >= int64(n) {
			if err := padArray(a, i); err != nil {
				return Nil, err
			}
			a.Elements = append(a.Elements, val)
			return val, nil
		}
		idx, err := arrayIndex(i, n)
		if err != nil {
			return Nil, err
		}
		a.Elements[idx] = val
		return val, nil
	}

	idx, err := arrayIndex(i, n)
	if err != nil {
		return Nil, err
	}
	length, err := vm.intArg(args.At(1))
	if err != nil {
		return Nil, err
	}
	if length < 0 {
		return Nil, errIndex("negative length (%d)", length)
	}
	if err := padArray(a, int64(idx)); err != nil {
		return Nil, err
	}
	end := min(len(a.Elements), idx+int(min(length, int64(len(a.Elements)))))

	var repl []Value
	if src := vm.Globals.ArrayOf(val); src != nil {
		repl = append(repl, src.Elements...)
	} else {
		repl = []Value{val}
	}
	tail := append([]Value(nil), a.Elements[end:]...)
	a.Elements = append(append(a.Elements[:idx], repl...), tail...)
	return val, nil
}
