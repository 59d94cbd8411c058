package vm

import (
	"fmt"
	"io"
)

// ---------------------------------------------------------------------------
// Toplevel, Object and Class primitives
// ---------------------------------------------------------------------------

func (g *Globals) registerToplevelPrimitives() {
	g.AddBuiltinToplevel("puts", primPuts)
	g.AddBuiltinToplevel("method", Arity1(primMethod))
}

func (g *Globals) registerObjectPrimitives() {
	c := g.Builtins.Object

	g.newMethod = g.AddBuiltinClassMethod(c, "new", primNew)

	g.AddBuiltinInstanceMethod(c, "class", Arity0(func(vm *VM, self Value) (Value, error) {
		return vm.Globals.SearchClassOrImmediate(self), nil
	}))

	g.AddBuiltinInstanceMethod(c, "singleton_class", Arity0(func(vm *VM, self Value) (Value, error) {
		return vm.Globals.SingletonClass(self)
	}))

	g.AddBuiltinInstanceMethod(c, "define_singleton_method", primDefineSingletonMethod)

	g.AddBuiltinInstanceMethod(c, "method", Arity1(primMethod))

	g.AddBuiltinInstanceMethod(c, "instance_variable_get", Arity1(func(vm *VM, self Value, name Value) (Value, error) {
		id, err := vm.nameArg(name)
		if err != nil {
			return Nil, err
		}
		obj := vm.Globals.Heap.Get(self)
		if obj == nil {
			return Nil, nil
		}
		v, _ := obj.GetVar(id)
		return v, nil
	}))

	g.AddBuiltinInstanceMethod(c, "==", Arity1(func(vm *VM, self Value, other Value) (Value, error) {
		v, err := vm.Globals.Eq(self, other)
		if err != nil {
			return FromBool(self == other), nil
		}
		return v, nil
	}))

	g.AddBuiltinInstanceMethod(c, "inspect", Arity0(func(vm *VM, self Value) (Value, error) {
		return vm.Globals.NewString(vm.Globals.Inspect(self)), nil
	}))
}

func (g *Globals) registerClassPrimitives() {
	c := g.Builtins.Class

	g.AddBuiltinInstanceMethod(c, "name", Arity0(func(vm *VM, self Value) (Value, error) {
		name := vm.Globals.ClassName(self)
		if name == "" {
			return Nil, nil
		}
		return vm.Globals.NewString(name), nil
	}))

	g.AddBuiltinInstanceMethod(c, "superclass", Arity0(func(vm *VM, self Value) (Value, error) {
		info := vm.Globals.ClassInfoOf(self)
		if info == nil {
			return Nil, nil
		}
		return info.Superclass, nil
	}))
}

// primPuts writes each argument's string form on its own line. Arrays
// print one element per line.
func primPuts(vm *VM, self Value, args *Args) (Value, error) {
	out := vm.config.Output
	if args.Len() == 0 {
		_, err := io.WriteString(out, "\n")
		return Nil, err
	}
	for _, v := range args.Values() {
		if err := vm.putsValue(out, v, 0); err != nil {
			return Nil, err
		}
	}
	return Nil, nil
}

func (vm *VM) putsValue(out io.Writer, v Value, depth int) error {
	if a := vm.Globals.ArrayOf(v); a != nil && depth < maxInspectDepth {
		for _, e := range a.Elements {
			if err := vm.putsValue(out, e, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := fmt.Fprintln(out, vm.Globals.ToS(v))
	return err
}

// primNew allocates an ordinary instance of self and runs initialize when
// the class defines one.
func primNew(vm *VM, self Value, args *Args) (Value, error) {
	g := vm.Globals
	if g.ClassInfoOf(self) == nil {
		return Nil, errType("%s is not a class", g.Inspect(self))
	}
	obj := g.NewObject(self)
	if m, ok := g.FindInstanceMethod(self, g.Idents.Intern("initialize")); ok {
		if _, err := vm.Invoke(obj, m, args); err != nil {
			return Nil, err
		}
	}
	return obj, nil
}

// primMethod returns name bound to self as a Method object.
func primMethod(vm *VM, self Value, name Value) (Value, error) {
	id, err := vm.nameArg(name)
	if err != nil {
		return Nil, err
	}
	m, err := vm.FindMethod(self, id)
	if err != nil {
		return Nil, err
	}
	return vm.Globals.NewMethodObj(self, id, m), nil
}

// primDefineSingletonMethod installs the block as a method on self's
// singleton class. The method runs with the caller of define_singleton_method
// as its lexical outer frame and the new receiver as self.
func primDefineSingletonMethod(vm *VM, self Value, args *Args) (Value, error) {
	if err := checkArgsRange(args.Len(), 1, 1); err != nil {
		return Nil, err
	}
	g := vm.Globals
	id, err := vm.nameArg(args.At(0))
	if err != nil {
		return Nil, err
	}
	proc, err := vm.BlockProc(args.Block)
	if err != nil {
		return Nil, err
	}
	singleton, err := g.SingletonClass(self)
	if err != nil {
		return Nil, err
	}
	captured := g.ProcOf(proc).Context
	fn := func(vm *VM, recv Value, args *Args) (Value, error) {
		return vm.Execute(recv, captured.ISeq, captured.Outer, args.Clone(), args.Block)
	}
	ref := g.AddMethod(&MethodInfo{Name: id, Builtin: fn})
	g.ClassInfoOf(singleton).AddMethod(id, ref)
	return g.NewString(g.Idents.Name(id)), nil
}

// ---------------------------------------------------------------------------
// Argument helpers
// ---------------------------------------------------------------------------

// nameArg interns a method or variable name passed as a string.
func (vm *VM) nameArg(v Value) (IdentID, error) {
	s := vm.Globals.StringOf(v)
	if s == nil {
		return 0, errType("%s is not a symbol nor a string", vm.Globals.Inspect(v))
	}
	return vm.Globals.Idents.Intern(s.String()), nil
}

// intArg extracts an integer argument.
func (vm *VM) intArg(v Value) (int64, error) {
	n, ok := vm.Globals.numericOf(v)
	if !ok || n.isFloat {
		return 0, errType("no implicit conversion of %s into Integer",
			vm.Globals.ClassName(vm.Globals.SearchClassOrImmediate(v)))
	}
	return n.i, nil
}

// stringArg extracts a string argument.
func (vm *VM) stringArg(v Value) (string, error) {
	s := vm.Globals.StringOf(v)
	if s == nil {
		return "", errType("no implicit conversion of %s into String",
			vm.Globals.ClassName(vm.Globals.SearchClassOrImmediate(v)))
	}
	return s.String(), nil
}
