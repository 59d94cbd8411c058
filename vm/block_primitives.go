package vm

// ---------------------------------------------------------------------------
// Proc and Method primitives
// ---------------------------------------------------------------------------

func (g *Globals) registerProcPrimitives() {
	c := g.Builtins.Proc

	// Proc.new { ... } captures the caller's frame.
	g.AddBuiltinClassMethod(c, "new", func(vm *VM, self Value, args *Args) (Value, error) {
		if args.Block == NoBlock {
			return Nil, errType("Needs block.")
		}
		return vm.BlockProc(args.Block)
	})

	g.AddBuiltinInstanceMethod(c, "call", func(vm *VM, self Value, args *Args) (Value, error) {
		return vm.CallProc(self, args)
	})
}

func (g *Globals) registerMethodPrimitives() {
	c := g.Builtins.Method

	g.AddBuiltinInstanceMethod(c, "call", func(vm *VM, self Value, args *Args) (Value, error) {
		m := vm.Globals.MethodObjOf(self)
		if m == nil {
			return Nil, errType("%s is not a Method", vm.Globals.Inspect(self))
		}
		return vm.Invoke(m.Receiver, m.Method, args)
	})

	g.AddBuiltinInstanceMethod(c, "name", Arity0(func(vm *VM, self Value) (Value, error) {
		m := vm.Globals.MethodObjOf(self)
		if m == nil {
			return Nil, errType("%s is not a Method", vm.Globals.Inspect(self))
		}
		return vm.Globals.NewString(vm.Globals.Idents.Name(m.Name)), nil
	}))

	g.AddBuiltinInstanceMethod(c, "receiver", Arity0(func(vm *VM, self Value) (Value, error) {
		m := vm.Globals.MethodObjOf(self)
		if m == nil {
			return Nil, errType("%s is not a Method", vm.Globals.Inspect(self))
		}
		return m.Receiver, nil
	}))
}
