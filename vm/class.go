package vm

// ---------------------------------------------------------------------------
// ClassInfo: class and module descriptors
// ---------------------------------------------------------------------------

// ClassInfo is the payload of a Class or Module heap object.
type ClassInfo struct {
	Name         IdentID
	Superclass   Value // Nil at the root of the chain
	Methods      map[IdentID]MethodRef
	ClassMethods map[IdentID]MethodRef
	IsSingleton  bool
	IsModule     bool
}

// NewClassInfo creates a descriptor with empty method tables.
func NewClassInfo(name IdentID, superclass Value) *ClassInfo {
	return &ClassInfo{
		Name:         name,
		Superclass:   superclass,
		Methods:      make(map[IdentID]MethodRef),
		ClassMethods: make(map[IdentID]MethodRef),
	}
}

// AddMethod installs an instance method.
func (c *ClassInfo) AddMethod(name IdentID, m MethodRef) {
	c.Methods[name] = m
}

// AddClassMethod installs a class method.
func (c *ClassInfo) AddClassMethod(name IdentID, m MethodRef) {
	c.ClassMethods[name] = m
}

// ---------------------------------------------------------------------------
// Lookup along the superclass chain
// ---------------------------------------------------------------------------

// ClassInfoOf returns the descriptor for a class value, or nil.
func (g *Globals) ClassInfoOf(class Value) *ClassInfo {
	obj := g.Heap.Get(class)
	if obj == nil {
		return nil
	}
	return obj.AsClass()
}

// FindInstanceMethod walks Methods from class up through its superclasses.
func (g *Globals) FindInstanceMethod(class Value, name IdentID) (MethodRef, bool) {
	return g.walkChain(class, name, func(c *ClassInfo) map[IdentID]MethodRef { return c.Methods })
}

// FindClassMethod walks ClassMethods from class up through its superclasses.
func (g *Globals) FindClassMethod(class Value, name IdentID) (MethodRef, bool) {
	return g.walkChain(class, name, func(c *ClassInfo) map[IdentID]MethodRef { return c.ClassMethods })
}

func (g *Globals) walkChain(class Value, name IdentID, table func(*ClassInfo) map[IdentID]MethodRef) (MethodRef, bool) {
	// A chain can never be longer than the heap; the bound stops a
	// malformed cycle from spinning forever.
	limit := g.Heap.Len()
	for i := 0; i <= limit; i++ {
		info := g.ClassInfoOf(class)
		if info == nil {
			return 0, false
		}
		if m, ok := table(info)[name]; ok {
			return m, true
		}
		class = info.Superclass
	}
	return 0, false
}

// IsSubclassOf reports whether class is sup or inherits from it.
func (g *Globals) IsSubclassOf(class, sup Value) bool {
	limit := g.Heap.Len()
	for i := 0; i <= limit && class != Nil; i++ {
		if class == sup {
			return true
		}
		info := g.ClassInfoOf(class)
		if info == nil {
			return false
		}
		class = info.Superclass
	}
	return false
}

// ---------------------------------------------------------------------------
// Singleton classes
// ---------------------------------------------------------------------------

// SearchClass returns the first non-singleton class of obj, skipping any
// singleton classes inserted in front of it.
func (g *Globals) SearchClass(obj Value) Value {
	class := g.ClassOf(obj)
	limit := g.Heap.Len()
	for i := 0; i <= limit; i++ {
		info := g.ClassInfoOf(class)
		if info == nil || !info.IsSingleton {
			return class
		}
		class = info.Superclass
	}
	panic("SearchClass: singleton chain does not terminate")
}

// SingletonClass returns obj's singleton class, creating it on first use.
// The new class becomes obj's immediate class with the previous class as
// its superclass.
func (g *Globals) SingletonClass(obj Value) (Value, error) {
	o := g.Heap.Get(obj)
	if o == nil {
		return Nil, errUnimplemented("can't define singleton for %s", g.Inspect(obj))
	}
	if info := g.ClassInfoOf(o.Class()); info != nil && info.IsSingleton {
		return o.Class(), nil
	}
	sup := o.Class()
	if sup == Nil {
		sup = g.Builtins.Object
	}
	info := NewClassInfo(g.Idents.Intern(""), sup)
	info.IsSingleton = true
	class := g.Heap.Alloc(newRValue(g.Builtins.Class, ObjClass, info))
	o.SetClass(class)
	return class, nil
}

// ---------------------------------------------------------------------------
// ClassTable: registry of named classes
// ---------------------------------------------------------------------------

// ClassTable maps class names to class values in definition order.
type ClassTable struct {
	byName map[IdentID]Value
	order  []IdentID
}

// NewClassTable creates a new empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{byName: make(map[IdentID]Value)}
}

// Register adds a class. A later registration under the same name wins.
func (ct *ClassTable) Register(name IdentID, class Value) {
	if _, ok := ct.byName[name]; !ok {
		ct.order = append(ct.order, name)
	}
	ct.byName[name] = class
}

// Lookup finds a class by name.
func (ct *ClassTable) Lookup(name IdentID) (Value, bool) {
	v, ok := ct.byName[name]
	return v, ok
}

// All returns registered classes in registration order.
func (ct *ClassTable) All() []Value {
	out := make([]Value, len(ct.order))
	for i, name := range ct.order {
		out[i] = ct.byName[name]
	}
	return out
}

// Len returns the number of registered classes.
func (ct *ClassTable) Len() int {
	return len(ct.order)
}
