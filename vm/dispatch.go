package vm

// ---------------------------------------------------------------------------
// Method resolution and invocation
// ---------------------------------------------------------------------------

// FindMethod resolves name for recv.
//
//   - immediates (nil, booleans, numbers) see only toplevel methods;
//   - classes and modules see their class methods up the superclass chain,
//     then the instance methods of their own class, then toplevel methods;
//   - every other heap object sees the instance methods of its class
//     (singleton first, then up the chain), then toplevel methods.
func (vm *VM) FindMethod(recv Value, name IdentID) (MethodRef, error) {
	g := vm.Globals
	if recv.IsObject() {
		obj := g.Heap.Get(recv)
		if obj.Kind == ObjClass || obj.Kind == ObjModule {
			if m, ok := g.FindClassMethod(recv, name); ok {
				return m, nil
			}
		}
		if m, ok := g.FindInstanceMethod(g.ClassOf(recv), name); ok {
			return m, nil
		}
	}
	if m, ok := g.Toplevel[name]; ok {
		return m, nil
	}
	return 0, errNoMethod("undefined method '%s' for %s", g.Idents.Name(name), g.Inspect(recv))
}

// Invoke calls method m with recv as self.
func (vm *VM) Invoke(recv Value, m MethodRef, args *Args) (Value, error) {
	info := vm.Globals.Method(m)
	if info.IsBuiltin() {
		return info.Builtin(vm, recv, args)
	}
	return vm.Execute(recv, info.ISeq, nil, args, args.Block)
}

// Send resolves name for recv and invokes it.
func (vm *VM) Send(recv Value, name IdentID, args *Args) (Value, error) {
	m, err := vm.FindMethod(recv, name)
	if err != nil {
		return Nil, err
	}
	return vm.Invoke(recv, m, args)
}

// SendName is Send with a method name and positional arguments.
func (vm *VM) SendName(recv Value, name string, args ...Value) (Value, error) {
	return vm.Send(recv, vm.Globals.Idents.Intern(name), ArgsOf(args...))
}

// RespondTo reports whether name resolves for recv.
func (vm *VM) RespondTo(recv Value, name string) bool {
	id, ok := vm.Globals.Idents.Lookup(name)
	if !ok {
		return false
	}
	_, err := vm.FindMethod(recv, id)
	return err == nil
}

// ---------------------------------------------------------------------------
// Closures
// ---------------------------------------------------------------------------

// CallProc runs a closure with its captured receiver and outer frame. The
// arguments are copied, so calls never share argument state; locals of the
// enclosing frames are shared by every call.
func (vm *VM) CallProc(proc Value, args *Args) (Value, error) {
	p := vm.Globals.ProcOf(proc)
	if p == nil {
		return Nil, errType("%s is not a Proc", vm.Globals.Inspect(proc))
	}
	c := p.Context
	return vm.Execute(c.Self, c.ISeq, c.Outer, args.Clone(), NoBlock)
}

// BlockProc turns the block passed to the current call into a closure over
// the calling frame.
func (vm *VM) BlockProc(block MethodRef) (Value, error) {
	if block == NoBlock {
		return Nil, errType("Needs block.")
	}
	m := vm.Globals.Method(block)
	if m.ISeq == nil {
		return Nil, errUnimplemented("native method passed as a block")
	}
	ctx := vm.CurrentContext()
	if ctx == nil {
		return vm.Globals.NewProc(NewHeapContext(vm.Globals.Main, m.ISeq, nil, NoBlock)), nil
	}
	return vm.newClosure(ctx, m.ISeq), nil
}
