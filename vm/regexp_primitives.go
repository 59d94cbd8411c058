package vm

// ---------------------------------------------------------------------------
// Regexp primitives
// ---------------------------------------------------------------------------

func (g *Globals) registerRegexpPrimitives() {
	c := g.Builtins.Regexp

	g.AddBuiltinClassMethod(c, "new", Arity1(func(vm *VM, self Value, source Value) (Value, error) {
		src, err := vm.stringArg(source)
		if err != nil {
			return Nil, err
		}
		return vm.Globals.NewRegexp(src)
	}))

	g.AddBuiltinInstanceMethod(c, "match?", Arity1(func(vm *VM, self Value, subject Value) (Value, error) {
		re := vm.Globals.RegexpOf(self)
		if re == nil {
			return Nil, errType("%s is not a Regexp", vm.Globals.Inspect(self))
		}
		if subject == Nil {
			return False, nil
		}
		s, err := vm.stringArg(subject)
		if err != nil {
			return Nil, err
		}
		return FromBool(re.Re.MatchString(s)), nil
	}))

	g.AddBuiltinInstanceMethod(c, "source", Arity0(func(vm *VM, self Value) (Value, error) {
		re := vm.Globals.RegexpOf(self)
		if re == nil {
			return Nil, errType("%s is not a Regexp", vm.Globals.Inspect(self))
		}
		return vm.Globals.NewString(re.Source), nil
	}))
}
