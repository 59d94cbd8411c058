package vm

import "fmt"

// ---------------------------------------------------------------------------
// Heap: arena of boxed objects
// ---------------------------------------------------------------------------

// Heap owns every RValue allocated by one runtime. A Value names an object
// by its index here, so handles stay valid for the lifetime of the heap and
// every alias observes the same mutable object.
//
// Nothing is reclaimed; the arena only grows.
type Heap struct {
	objects []*RValue
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{objects: make([]*RValue, 0, 1024)}
}

// Alloc stores obj and returns its handle.
func (h *Heap) Alloc(obj *RValue) Value {
	if uint64(len(h.objects)) > payloadMask {
		panic("Heap.Alloc: handle space exhausted")
	}
	ref := ObjectRef(len(h.objects))
	h.objects = append(h.objects, obj)
	return FromRef(ref)
}

// Get returns the object behind v, or nil when v is not a heap handle.
func (h *Heap) Get(v Value) *RValue {
	if !v.IsObject() {
		return nil
	}
	ref := v.Ref()
	if int(ref) >= len(h.objects) {
		panic(fmt.Sprintf("Heap.Get: dangling handle %d", ref))
	}
	return h.objects[ref]
}

// Len returns the number of allocated objects.
func (h *Heap) Len() int {
	return len(h.objects)
}

// ---------------------------------------------------------------------------
// Hash access
// ---------------------------------------------------------------------------

func (g *Globals) hashKeyOf(k Value) hashKey {
	if s := g.StringOf(k); s != nil {
		return hashKey{str: s.String(), isS: true}
	}
	return hashKey{v: k}
}

// HashGet looks up k in h.
func (g *Globals) HashGet(h *HashInfo, k Value) (Value, bool) {
	e, ok := h.get(g.hashKeyOf(k))
	if !ok {
		return Nil, false
	}
	return e.val, true
}

// HashSet stores v under k. An existing key keeps its position and the key
// object it was first stored with.
func (g *Globals) HashSet(h *HashInfo, k, v Value) {
	key := g.hashKeyOf(k)
	if e, ok := h.get(key); ok {
		k = e.key
	}
	h.entries.Put(key, hashEntry{key: k, val: v})
}
