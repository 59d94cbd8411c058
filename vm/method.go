package vm

import "fmt"

// MethodRef indexes the method store in Globals.
type MethodRef uint32

// NoBlock marks the absence of a block argument.
const NoBlock = ^MethodRef(0)

// BuiltinFunc is a Go function that implements a native method.
type BuiltinFunc func(vm *VM, self Value, args *Args) (Value, error)

// Method0Func is a native method taking no arguments.
type Method0Func func(vm *VM, self Value) (Value, error)

// Method1Func is a native method taking one argument.
type Method1Func func(vm *VM, self Value, arg Value) (Value, error)

// Method2Func is a native method taking two arguments.
type Method2Func func(vm *VM, self Value, arg1, arg2 Value) (Value, error)

// Arity0 adapts a zero-argument function, checking the call's argument count.
func Arity0(fn Method0Func) BuiltinFunc {
	return func(vm *VM, self Value, args *Args) (Value, error) {
		if err := checkArgsRange(args.Len(), 0, 0); err != nil {
			return Nil, err
		}
		return fn(vm, self)
	}
}

// Arity1 adapts a one-argument function.
func Arity1(fn Method1Func) BuiltinFunc {
	return func(vm *VM, self Value, args *Args) (Value, error) {
		if err := checkArgsRange(args.Len(), 1, 1); err != nil {
			return Nil, err
		}
		return fn(vm, self, args.At(0))
	}
}

// Arity2 adapts a two-argument function.
func Arity2(fn Method2Func) BuiltinFunc {
	return func(vm *VM, self Value, args *Args) (Value, error) {
		if err := checkArgsRange(args.Len(), 2, 2); err != nil {
			return Nil, err
		}
		return fn(vm, self, args.At(0), args.At(1))
	}
}

// MethodInfo is an entry in the method store: either a native function or
// an instruction sequence run by the interpreter.
type MethodInfo struct {
	Name    IdentID
	Builtin BuiltinFunc
	ISeq    *ISeq
}

// IsBuiltin reports whether the method is implemented in Go.
func (m *MethodInfo) IsBuiltin() bool {
	return m.Builtin != nil
}

// ---------------------------------------------------------------------------
// Method store
// ---------------------------------------------------------------------------

// AddMethod stores m and returns its reference.
func (g *Globals) AddMethod(m *MethodInfo) MethodRef {
	ref := MethodRef(len(g.methods))
	if ref == NoBlock {
		panic("AddMethod: method store full")
	}
	g.methods = append(g.methods, m)
	return ref
}

// AddISeq wraps an instruction sequence as a method.
func (g *Globals) AddISeq(iseq *ISeq) MethodRef {
	return g.AddMethod(&MethodInfo{Name: g.Idents.Intern(iseq.Name), ISeq: iseq})
}

// Method returns the method behind ref.
func (g *Globals) Method(ref MethodRef) *MethodInfo {
	if int(ref) >= len(g.methods) {
		panic(fmt.Sprintf("Globals.Method: bad method reference %d", ref))
	}
	return g.methods[ref]
}

// MethodCount returns the number of stored methods.
func (g *Globals) MethodCount() int {
	return len(g.methods)
}
