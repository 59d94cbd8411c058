package vm

import (
	"regexp"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Globals: process-wide runtime tables
// ---------------------------------------------------------------------------

// Builtins holds the well-known classes created at bootstrap.
type Builtins struct {
	Object     Value
	Module     Value
	Class      Value
	NilClass   Value
	TrueClass  Value
	FalseClass Value
	Integer    Value
	Float      Value
	String     Value
	Array      Value
	Range      Value
	Hash       Value
	Proc       Value
	Regexp     Value
	Method     Value
}

// Globals is the state shared by everything running in one runtime: the
// identifier table, classes, heap, methods and constants. It is created once
// and mutated in place by definition instructions; nothing is torn down
// while a program runs.
type Globals struct {
	ID       uuid.UUID // names this runtime in log output
	Idents   *IdentTable
	Classes  *ClassTable
	Heap     *Heap
	Toplevel map[IdentID]MethodRef
	Consts   map[IdentID]Value
	Builtins Builtins
	Main     Value // receiver of toplevel code

	methods   []*MethodInfo
	newMethod MethodRef // default constructor installed by DEF_CLASS
}

// NewGlobals creates the tables, bootstraps the core classes and registers
// the native primitives, in that order.
func NewGlobals() *Globals {
	g := &Globals{
		ID:       uuid.New(),
		Idents:   NewIdentTable(),
		Classes:  NewClassTable(),
		Heap:     NewHeap(),
		Toplevel: make(map[IdentID]MethodRef),
		Consts:   make(map[IdentID]Value),
		methods:  make([]*MethodInfo, 0, 256),
	}
	g.bootstrap()
	g.initPrimitives()
	return g
}

func (g *Globals) bootstrap() {
	b := &g.Builtins

	// Object, Module and Class refer to each other; allocate them first
	// and fix up their class pointers once Class exists.
	b.Object = g.NewClass("Object", Nil)
	b.Module = g.NewClass("Module", b.Object)
	b.Class = g.NewClass("Class", b.Module)
	for _, c := range []Value{b.Object, b.Module, b.Class} {
		g.Heap.Get(c).SetClass(b.Class)
		g.registerClass(c)
	}

	b.NilClass = g.DefineClass("NilClass", b.Object)
	b.TrueClass = g.DefineClass("TrueClass", b.Object)
	b.FalseClass = g.DefineClass("FalseClass", b.Object)
	b.Integer = g.DefineClass("Integer", b.Object)
	b.Float = g.DefineClass("Float", b.Object)
	b.String = g.DefineClass("String", b.Object)
	b.Array = g.DefineClass("Array", b.Object)
	b.Range = g.DefineClass("Range", b.Object)
	b.Hash = g.DefineClass("Hash", b.Object)
	b.Proc = g.DefineClass("Proc", b.Object)
	b.Regexp = g.DefineClass("Regexp", b.Object)
	b.Method = g.DefineClass("Method", b.Object)

	g.Main = g.NewObject(b.Object)
}

func (g *Globals) initPrimitives() {
	g.registerToplevelPrimitives()
	g.registerObjectPrimitives()
	g.registerClassPrimitives()
	g.registerProcPrimitives()
	g.registerMethodPrimitives()
	g.registerArrayPrimitives()
	g.registerStringPrimitives()
	g.registerRangePrimitives()
	g.registerHashPrimitives()
	g.registerRegexpPrimitives()
}

// ---------------------------------------------------------------------------
// Classes
// ---------------------------------------------------------------------------

// NewClass allocates a class without registering it.
func (g *Globals) NewClass(name string, superclass Value) Value {
	info := NewClassInfo(g.Idents.Intern(name), superclass)
	return g.Heap.Alloc(newRValue(g.Builtins.Class, ObjClass, info))
}

// NewModule allocates a module without registering it.
func (g *Globals) NewModule(name string) Value {
	info := NewClassInfo(g.Idents.Intern(name), Nil)
	info.IsModule = true
	return g.Heap.Alloc(newRValue(g.Builtins.Module, ObjModule, info))
}

// DefineClass creates a class, registers it and binds it as a constant.
func (g *Globals) DefineClass(name string, superclass Value) Value {
	c := g.NewClass(name, superclass)
	g.registerClass(c)
	return c
}

func (g *Globals) registerClass(c Value) {
	info := g.ClassInfoOf(c)
	g.Classes.Register(info.Name, c)
	g.Consts[info.Name] = c
}

// ClassName returns the name of a class value, or "" for anonymous classes.
func (g *Globals) ClassName(class Value) string {
	info := g.ClassInfoOf(class)
	if info == nil {
		return ""
	}
	return g.Idents.Name(info.Name)
}

// ClassOf returns the immediate class of v, which for heap objects may be a
// singleton. Immediates report their built-in class.
func (g *Globals) ClassOf(v Value) Value {
	switch {
	case v == Nil:
		return g.Builtins.NilClass
	case v == True:
		return g.Builtins.TrueClass
	case v == False:
		return g.Builtins.FalseClass
	case v.IsFixnum():
		return g.Builtins.Integer
	case v.IsFloat():
		return g.Builtins.Float
	}
	obj := g.Heap.Get(v)
	if c := obj.Class(); c != Nil {
		return c
	}
	switch obj.Kind {
	case ObjFixnum:
		return g.Builtins.Integer
	case ObjFloat:
		return g.Builtins.Float
	}
	return g.Builtins.Object
}

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

// GetConst looks up a constant.
func (g *Globals) GetConst(id IdentID) (Value, bool) {
	v, ok := g.Consts[id]
	return v, ok
}

// SetConst binds a constant; the last write wins.
func (g *Globals) SetConst(id IdentID, v Value) {
	g.Consts[id] = v
}

// ---------------------------------------------------------------------------
// Object construction
// ---------------------------------------------------------------------------

// NewObject allocates an ordinary instance of class.
func (g *Globals) NewObject(class Value) Value {
	return g.Heap.Alloc(newRValue(class, ObjOrdinary, nil))
}

// Integer returns n as a fixnum, boxing it when it does not fit.
func (g *Globals) Integer(n int64) Value {
	if v, ok := TryFromFixnum(n); ok {
		return v
	}
	return g.Heap.Alloc(newRValue(Nil, ObjFixnum, n))
}

// BoxFloat allocates a boxed float.
func (g *Globals) BoxFloat(f float64) Value {
	return g.Heap.Alloc(newRValue(Nil, ObjFloat, f))
}

func (g *Globals) NewString(s string) Value {
	return g.Heap.Alloc(newRValue(g.Builtins.String, ObjString, &StringInfo{Bytes: []byte(s)}))
}

// NewArray allocates an array that takes ownership of elems.
func (g *Globals) NewArray(elems []Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return g.Heap.Alloc(newRValue(g.Builtins.Array, ObjArray, &ArrayInfo{Elements: elems}))
}

func (g *Globals) NewRange(start, end Value, exclude bool) Value {
	info := &RangeInfo{Start: start, End: end, Exclude: exclude}
	return g.Heap.Alloc(newRValue(g.Builtins.Range, ObjRange, info))
}

func (g *Globals) NewHash() Value {
	return g.Heap.Alloc(newRValue(g.Builtins.Hash, ObjHash, NewHashInfo()))
}

// NewProc wraps a captured context as a closure.
func (g *Globals) NewProc(ctx *Context) Value {
	return g.Heap.Alloc(newRValue(g.Builtins.Proc, ObjProc, &ProcInfo{Context: ctx}))
}

// NewRegexp compiles source. An invalid pattern is a Type failure.
func (g *Globals) NewRegexp(source string) (Value, error) {
	re, err := regexp.Compile(source)
	if err != nil {
		return Nil, errType("invalid regular expression /%s/: %v", source, err)
	}
	info := &RegexpInfo{Source: source, Re: re}
	return g.Heap.Alloc(newRValue(g.Builtins.Regexp, ObjRegexp, info)), nil
}

func (g *Globals) NewMethodObj(receiver Value, name IdentID, m MethodRef) Value {
	info := &MethodObjInfo{Receiver: receiver, Name: name, Method: m}
	return g.Heap.Alloc(newRValue(g.Builtins.Method, ObjMethod, info))
}

// NewSplat wraps v for argument expansion.
func (g *Globals) NewSplat(v Value) Value {
	return g.Heap.Alloc(newRValue(Nil, ObjSplat, v))
}

// ---------------------------------------------------------------------------
// Payload access by value
// ---------------------------------------------------------------------------

func (g *Globals) StringOf(v Value) *StringInfo {
	if obj := g.Heap.Get(v); obj != nil {
		return obj.AsString()
	}
	return nil
}

func (g *Globals) ArrayOf(v Value) *ArrayInfo {
	if obj := g.Heap.Get(v); obj != nil {
		return obj.AsArray()
	}
	return nil
}

func (g *Globals) RangeOf(v Value) *RangeInfo {
	if obj := g.Heap.Get(v); obj != nil {
		return obj.AsRange()
	}
	return nil
}

func (g *Globals) HashOf(v Value) *HashInfo {
	if obj := g.Heap.Get(v); obj != nil {
		return obj.AsHash()
	}
	return nil
}

func (g *Globals) ProcOf(v Value) *ProcInfo {
	if obj := g.Heap.Get(v); obj != nil {
		return obj.AsProc()
	}
	return nil
}

func (g *Globals) RegexpOf(v Value) *RegexpInfo {
	if obj := g.Heap.Get(v); obj != nil {
		return obj.AsRegexp()
	}
	return nil
}

func (g *Globals) MethodObjOf(v Value) *MethodObjInfo {
	if obj := g.Heap.Get(v); obj != nil {
		return obj.AsMethod()
	}
	return nil
}

// ---------------------------------------------------------------------------
// Native method registration
// ---------------------------------------------------------------------------

// AddBuiltinToplevel registers a native toplevel method.
func (g *Globals) AddBuiltinToplevel(name string, fn BuiltinFunc) MethodRef {
	id := g.Idents.Intern(name)
	ref := g.AddMethod(&MethodInfo{Name: id, Builtin: fn})
	g.Toplevel[id] = ref
	return ref
}

// AddBuiltinInstanceMethod registers a native instance method on class.
func (g *Globals) AddBuiltinInstanceMethod(class Value, name string, fn BuiltinFunc) MethodRef {
	id := g.Idents.Intern(name)
	ref := g.AddMethod(&MethodInfo{Name: id, Builtin: fn})
	g.ClassInfoOf(class).AddMethod(id, ref)
	return ref
}

// AddBuiltinClassMethod registers a native class method on class.
func (g *Globals) AddBuiltinClassMethod(class Value, name string, fn BuiltinFunc) MethodRef {
	id := g.Idents.Intern(name)
	ref := g.AddMethod(&MethodInfo{Name: id, Builtin: fn})
	g.ClassInfoOf(class).AddClassMethod(id, ref)
	return ref
}
