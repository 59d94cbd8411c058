package vm

import (
	"errors"
	"sync"
	"testing"
)

func TestIdentTable(t *testing.T) {
	tab := NewIdentTable()
	a := tab.Intern("alpha")
	b := tab.Intern("beta")
	if a == b {
		t.Fatal("distinct names share an ID")
	}
	if tab.Intern("alpha") != a {
		t.Error("Intern is not idempotent")
	}
	if tab.Name(b) != "beta" {
		t.Errorf("Name(%d) = %q", b, tab.Name(b))
	}
	if _, ok := tab.Lookup("gamma"); ok {
		t.Error("Lookup found a name that was never interned")
	}
}

func TestIdentTableConcurrentIntern(t *testing.T) {
	tab := NewIdentTable()
	var wg sync.WaitGroup
	ids := make([]IdentID, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = tab.Intern("shared")
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("concurrent Intern returned %d and %d", ids[0], id)
		}
	}
}

func TestClassTableOrder(t *testing.T) {
	g := NewGlobals()
	names := []string{}
	for _, c := range g.Classes.All() {
		names = append(names, g.ClassName(c))
	}
	if len(names) < 3 || names[0] != "Object" || names[1] != "Module" || names[2] != "Class" {
		t.Errorf("class order = %v", names)
	}

	c := g.DefineClass("Widget", g.Builtins.Object)
	if got, ok := g.Classes.Lookup(g.Idents.Intern("Widget")); !ok || got != c {
		t.Error("DefineClass did not register the class")
	}
	if got, ok := g.GetConst(g.Idents.Intern("Widget")); !ok || got != c {
		t.Error("DefineClass did not bind the constant")
	}
}

func TestMethodLookupFollowsSuperclass(t *testing.T) {
	g := NewGlobals()
	base := g.DefineClass("Base", g.Builtins.Object)
	derived := g.DefineClass("Derived", base)

	name := g.Idents.Intern("hello")
	m := g.AddBuiltinInstanceMethod(base, "hello", Arity0(func(vm *VM, self Value) (Value, error) {
		return True, nil
	}))

	got, ok := g.FindInstanceMethod(derived, name)
	if !ok || got != m {
		t.Errorf("FindInstanceMethod(Derived, hello) = %d, %v", got, ok)
	}
	if !g.IsSubclassOf(derived, base) || g.IsSubclassOf(base, derived) {
		t.Error("IsSubclassOf is wrong")
	}

	override := g.AddBuiltinInstanceMethod(derived, "hello", Arity0(func(vm *VM, self Value) (Value, error) {
		return False, nil
	}))
	if got, _ := g.FindInstanceMethod(derived, name); got != override {
		t.Error("subclass method does not shadow the superclass method")
	}
}

func TestSingletonClassOfImmediate(t *testing.T) {
	g := NewGlobals()
	if _, err := g.SingletonClass(FromFixnum(1)); !errors.Is(err, ErrUnimplemented) {
		t.Errorf("SingletonClass(1) error = %v, want NotImplementedError", err)
	}
}

func TestHeapDanglingHandlePanics(t *testing.T) {
	h := NewHeap()
	h.Alloc(newRValue(Nil, ObjOrdinary, nil))
	if h.Get(Nil) != nil {
		t.Error("Get(nil) should return nil")
	}
	defer func() {
		if recover() == nil {
			t.Error("Get of an unallocated handle did not panic")
		}
	}()
	h.Get(FromRef(5))
}

func TestMethodStore(t *testing.T) {
	g := NewGlobals()
	before := g.MethodCount()
	iseq := &ISeq{Name: "m", Code: []byte{byte(OpPushNil), byte(OpEnd)}}
	ref := g.AddISeq(iseq)
	if g.MethodCount() != before+1 {
		t.Errorf("MethodCount = %d, want %d", g.MethodCount(), before+1)
	}
	info := g.Method(ref)
	if info.IsBuiltin() || info.ISeq != iseq || g.Idents.Name(info.Name) != "m" {
		t.Errorf("Method(%d) = %+v", ref, info)
	}
	defer func() {
		if recover() == nil {
			t.Error("Method with an unknown reference did not panic")
		}
	}()
	g.Method(MethodRef(g.MethodCount() + 10))
}
