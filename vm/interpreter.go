package vm

import "fmt"

// ---------------------------------------------------------------------------
// Fetch-decode-execute loop
// ---------------------------------------------------------------------------

// loop runs ctx until END. base is the operand stack height at entry; END
// requires exactly one value above it.
func (vm *VM) loop(ctx *Context, base int) (Value, error) {
	g := vm.Globals
	code := ctx.ISeq.Code

	for {
		pc := ctx.PC
		if pc < 0 || pc >= len(code) {
			panic(fmt.Sprintf("VM: address %d out of range in %s (len %d)", pc, ctx.ISeq.Name, len(code)))
		}
		op := Opcode(code[pc])
		if vm.config.Trace {
			vm.trace(ctx, pc)
		}

		switch op {
		case OpEnd:
			if n := len(vm.stack) - base; n != 1 {
				panic(fmt.Sprintf("VM: END in %s with %d values on the stack, want 1", ctx.ISeq.Name, n))
			}
			return vm.pop(), nil

		case OpPushNil:
			vm.push(Nil)
		case OpPushTrue:
			vm.push(True)
		case OpPushFalse:
			vm.push(False)
		case OpPushSelf:
			vm.push(ctx.Self)
		case OpPushFixnum:
			vm.push(g.Integer(readI64(code, pc+1)))
		case OpPushFlonum:
			vm.push(FromFloat64(readF64(code, pc+1)))
		case OpPushString:
			vm.push(g.NewString(g.Idents.Name(IdentID(readU32(code, pc+1)))))

		case OpAdd, OpSub, OpMul, OpDiv, OpShr, OpShl, OpBitOr, OpBitAnd, OpBitXor,
			OpEq, OpNe, OpGt, OpGe:
			rhs := vm.pop()
			lhs := vm.pop()
			v, err := vm.binop(op, lhs, rhs)
			if err != nil {
				return Nil, err
			}
			vm.push(v)

		case OpJmp:
			ctx.PC = pc + 5 + int(readI32(code, pc+1))
			continue
		case OpJmpIfFalse:
			if !vm.pop().IsTruthy() {
				ctx.PC = pc + 5 + int(readI32(code, pc+1))
				continue
			}

		case OpSetLocal:
			ctx.SetLocal(int(readU32(code, pc+1)), vm.peek())
		case OpGetLocal:
			vm.push(ctx.Local(int(readU32(code, pc+1))))
		case OpSetDynLocal:
			target := ctx.OuterAt(int(readU32(code, pc+5)))
			target.SetLocal(int(readU32(code, pc+1)), vm.peek())
		case OpGetDynLocal:
			target := ctx.OuterAt(int(readU32(code, pc+5)))
			vm.push(target.Local(int(readU32(code, pc+1))))

		case OpSetConst:
			g.SetConst(IdentID(readU32(code, pc+1)), vm.peek())
		case OpGetConst:
			id := IdentID(readU32(code, pc+1))
			v, ok := g.GetConst(id)
			if !ok {
				return Nil, errName("uninitialized constant %s", g.Idents.Name(id))
			}
			vm.push(v)

		case OpSetInstanceVar:
			obj := vm.ivarOwner(ctx.Self)
			obj.SetVar(IdentID(readU32(code, pc+1)), vm.peek())
		case OpGetInstanceVar:
			id := IdentID(readU32(code, pc+1))
			v, ok := vm.ivarOwner(ctx.Self).GetVar(id)
			if !ok && vm.config.StrictIvars {
				return Nil, errName("undefined instance variable %s", g.Idents.Name(id))
			}
			vm.push(v)

		case OpSend, OpSendBlk:
			id := IdentID(readU32(code, pc+1))
			argc := int(readU32(code, pc+5))
			recv := vm.pop()
			args := vm.popArgs(argc)
			if op == OpSendBlk {
				args.Block = MethodRef(readU32(code, pc+9))
			}
			v, err := vm.Send(recv, id, args)
			if err != nil {
				return Nil, err
			}
			vm.push(v)

		case OpCreateRange:
			start := vm.pop()
			end := vm.pop()
			exclude := vm.pop()
			vm.push(g.NewRange(start, end, exclude.IsTruthy()))

		case OpCreateArray:
			n := int(readU32(code, pc+1))
			if n > len(vm.stack)-base {
				panic(fmt.Sprintf("VM: CREATE_ARRAY %d with %d values on the stack", n, len(vm.stack)-base))
			}
			elems := make([]Value, n)
			copy(elems, vm.stack[len(vm.stack)-n:])
			vm.stack = vm.stack[:len(vm.stack)-n]
			vm.push(g.NewArray(elems))

		case OpCreateProc:
			m := g.Method(MethodRef(readU32(code, pc+1)))
			if m.ISeq == nil {
				panic("VM: CREATE_PROC on a native method")
			}
			vm.push(vm.newClosure(ctx, m.ISeq))

		case OpConcatString:
			rhs := g.StringOf(vm.pop())
			lhs := g.StringOf(vm.pop())
			if lhs == nil || rhs == nil {
				panic("VM: CONCAT_STRING on a non-string operand")
			}
			vm.push(g.NewString(lhs.String() + rhs.String()))
		case OpToS:
			vm.push(g.NewString(g.ToS(vm.pop())))

		case OpDefClass:
			id := IdentID(readU32(code, pc+1))
			if err := vm.defineClass(id, MethodRef(readU32(code, pc+5))); err != nil {
				return Nil, err
			}
			vm.push(Nil)
		case OpDefMethod:
			vm.defineMethod(IdentID(readU32(code, pc+1)), MethodRef(readU32(code, pc+5)))
			vm.push(Nil)

		case OpPop:
			vm.pop()
		case OpDup:
			vm.push(vm.peek())

		default:
			panic(fmt.Sprintf("VM: illegal instruction %d at %d in %s", byte(op), pc, ctx.ISeq.Name))
		}

		ctx.PC = pc + op.Width()
	}
}

func (vm *VM) binop(op Opcode, lhs, rhs Value) (Value, error) {
	g := vm.Globals
	switch op {
	case OpAdd:
		return g.Add(lhs, rhs)
	case OpSub:
		return g.Sub(lhs, rhs)
	case OpMul:
		return g.Mul(lhs, rhs)
	case OpDiv:
		return g.Div(lhs, rhs)
	case OpShr:
		return g.Shr(lhs, rhs)
	case OpShl:
		return g.Shl(lhs, rhs)
	case OpBitOr:
		return g.BitOr(lhs, rhs)
	case OpBitAnd:
		return g.BitAnd(lhs, rhs)
	case OpBitXor:
		return g.BitXor(lhs, rhs)
	case OpEq:
		return g.Eq(lhs, rhs)
	case OpNe:
		return g.Ne(lhs, rhs)
	case OpGt:
		return g.Gt(lhs, rhs)
	case OpGe:
		return g.Ge(lhs, rhs)
	}
	panic("VM.binop: not a binary opcode: " + op.String())
}

// popArgs pops argc values; the i-th value popped becomes argument i.
// Splat markers expand in place.
func (vm *VM) popArgs(argc int) *Args {
	args := NewArgs(0)
	for i := 0; i < argc; i++ {
		v := vm.pop()
		if obj := vm.Globals.Heap.Get(v); obj != nil && obj.Kind == ObjSplat {
			inner, _ := obj.SplatValue()
			if a := vm.Globals.ArrayOf(inner); a != nil {
				for _, e := range a.Elements {
					args.Push(e)
				}
				continue
			}
			v = inner
		}
		args.Push(v)
	}
	return args
}

// ivarOwner returns the object holding self's instance variables. Only
// ordinary instances, classes and modules have them.
func (vm *VM) ivarOwner(self Value) *RValue {
	obj := vm.Globals.Heap.Get(self)
	if obj == nil {
		panic("VM: instance variable access on immediate " + self.String())
	}
	switch obj.Kind {
	case ObjOrdinary, ObjClass, ObjModule:
		return obj
	}
	panic("VM: instance variable access on " + obj.Kind.String())
}

// newClosure captures ctx for a block running iseq.
func (vm *VM) newClosure(ctx *Context, iseq *ISeq) Value {
	ctx.Promote()
	return vm.Globals.NewProc(NewHeapContext(ctx.Self, iseq, ctx, NoBlock))
}

func (vm *VM) trace(ctx *Context, pc int) {
	in, err := Decode(ctx.ISeq.Code, pc)
	if err != nil {
		vm.log.Debugf("%s: %s", ctx.ISeq.Name, err.Error())
		return
	}
	vm.log.Debugf("%s %s  [sp=%d depth=%d]", ctx.ISeq.Name,
		DisassembleInstruction(in, vm.Globals.Idents), len(vm.stack), len(vm.contexts))
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

// defineClass opens the class named id, creating it under Object when it
// does not exist yet, runs body with the class as self, and installs the
// default constructor.
func (vm *VM) defineClass(id IdentID, body MethodRef) error {
	g := vm.Globals
	class, ok := g.GetConst(id)
	if !ok || g.ClassInfoOf(class) == nil {
		class = g.NewClass(g.Idents.Name(id), g.Builtins.Object)
		g.registerClass(class)
		vm.log.Debugf("defined class %s", g.Idents.Name(id))
	}

	m := g.Method(body)
	if m.ISeq == nil {
		panic("VM: DEF_CLASS body is a native method")
	}
	vm.classStack = append(vm.classStack, class)
	_, err := vm.Execute(class, m.ISeq, nil, nil, NoBlock)
	vm.classStack = vm.classStack[:len(vm.classStack)-1]
	if err != nil {
		return err
	}

	g.ClassInfoOf(class).AddClassMethod(g.Idents.Intern("new"), g.newMethod)
	return nil
}

// defineMethod installs m on the innermost open class, or as a toplevel
// method outside any class body.
func (vm *VM) defineMethod(id IdentID, m MethodRef) {
	g := vm.Globals
	if class, ok := vm.currentClass(); ok {
		g.ClassInfoOf(class).AddMethod(id, m)
		vm.log.Debugf("defined method %s#%s", g.ClassName(class), g.Idents.Name(id))
		return
	}
	g.Toplevel[id] = m
	vm.log.Debugf("defined toplevel method %s", g.Idents.Name(id))
}
