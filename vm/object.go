package vm

import (
	"fmt"
	"regexp"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// ObjKind selects which payload a heap object carries.
type ObjKind uint8

const (
	ObjOrdinary ObjKind = iota
	ObjFixnum           // boxed integer outside the fixnum range
	ObjFloat            // boxed float
	ObjClass
	ObjModule
	ObjString
	ObjArray
	ObjRange
	ObjHash
	ObjProc
	ObjRegexp
	ObjMethod
	ObjSplat // internal: marks an argument for expansion
)

var objKindNames = [...]string{
	ObjOrdinary: "Ordinary",
	ObjFixnum:   "Fixnum",
	ObjFloat:    "Float",
	ObjClass:    "Class",
	ObjModule:   "Module",
	ObjString:   "String",
	ObjArray:    "Array",
	ObjRange:    "Range",
	ObjHash:     "Hash",
	ObjProc:     "Proc",
	ObjRegexp:   "Regexp",
	ObjMethod:   "Method",
	ObjSplat:    "Splat",
}

func (k ObjKind) String() string {
	if int(k) < len(objKindNames) {
		return objKindNames[k]
	}
	return fmt.Sprintf("ObjKind(%d)", uint8(k))
}

// RValue is a heap-allocated object. Every non-immediate Value is a handle
// to one of these.
//
// The payload is selected by Kind; the typed accessors below return nil
// when asked for a payload the object does not carry.
type RValue struct {
	class   Value // may be a singleton class
	vars    map[IdentID]Value
	Kind    ObjKind
	payload any
}

func newRValue(class Value, kind ObjKind, payload any) *RValue {
	return &RValue{class: class, Kind: kind, payload: payload}
}

// Class returns the object's immediate class, which may be a singleton.
func (o *RValue) Class() Value {
	return o.class
}

// SetClass replaces the object's class.
func (o *RValue) SetClass(class Value) {
	o.class = class
}

// GetVar returns an instance variable. A missing key is not an error.
func (o *RValue) GetVar(id IdentID) (Value, bool) {
	v, ok := o.vars[id]
	if !ok {
		return Nil, false
	}
	return v, true
}

// SetVar assigns an instance variable.
func (o *RValue) SetVar(id IdentID, v Value) {
	if o.vars == nil {
		o.vars = make(map[IdentID]Value)
	}
	o.vars[id] = v
}

// VarCount returns the number of instance variables set.
func (o *RValue) VarCount() int {
	return len(o.vars)
}

// ---------------------------------------------------------------------------
// Payload accessors
// ---------------------------------------------------------------------------

func (o *RValue) BoxedFixnum() (int64, bool) {
	n, ok := o.payload.(int64)
	return n, ok && o.Kind == ObjFixnum
}

func (o *RValue) BoxedFloat() (float64, bool) {
	f, ok := o.payload.(float64)
	return f, ok && o.Kind == ObjFloat
}

// AsClass returns the descriptor of a Class or Module object.
func (o *RValue) AsClass() *ClassInfo {
	if o.Kind != ObjClass && o.Kind != ObjModule {
		return nil
	}
	return o.payload.(*ClassInfo)
}

func (o *RValue) AsString() *StringInfo {
	if o.Kind != ObjString {
		return nil
	}
	return o.payload.(*StringInfo)
}

func (o *RValue) AsArray() *ArrayInfo {
	if o.Kind != ObjArray {
		return nil
	}
	return o.payload.(*ArrayInfo)
}

func (o *RValue) AsRange() *RangeInfo {
	if o.Kind != ObjRange {
		return nil
	}
	return o.payload.(*RangeInfo)
}

func (o *RValue) AsHash() *HashInfo {
	if o.Kind != ObjHash {
		return nil
	}
	return o.payload.(*HashInfo)
}

func (o *RValue) AsProc() *ProcInfo {
	if o.Kind != ObjProc {
		return nil
	}
	return o.payload.(*ProcInfo)
}

func (o *RValue) AsRegexp() *RegexpInfo {
	if o.Kind != ObjRegexp {
		return nil
	}
	return o.payload.(*RegexpInfo)
}

func (o *RValue) AsMethod() *MethodObjInfo {
	if o.Kind != ObjMethod {
		return nil
	}
	return o.payload.(*MethodObjInfo)
}

// SplatValue returns the wrapped value of a splat marker.
func (o *RValue) SplatValue() (Value, bool) {
	if o.Kind != ObjSplat {
		return Nil, false
	}
	return o.payload.(Value), true
}

// ---------------------------------------------------------------------------
// Payload types
// ---------------------------------------------------------------------------

// StringInfo owns a string's bytes. It is mutable and shared by aliases.
type StringInfo struct {
	Bytes []byte
}

func (s *StringInfo) String() string { return string(s.Bytes) }

// ArrayInfo owns an ordered, mutable sequence shared by every alias.
type ArrayInfo struct {
	Elements []Value
}

// RangeInfo is a start/end pair; Exclude drops the end.
type RangeInfo struct {
	Start   Value
	End     Value
	Exclude bool
}

// ProcInfo wraps the context captured when the closure was created.
type ProcInfo struct {
	Context *Context
}

// RegexpInfo holds a compiled pattern.
type RegexpInfo struct {
	Source string
	Re     *regexp.Regexp
}

// MethodObjInfo is a method bound to its receiver.
type MethodObjInfo struct {
	Receiver Value
	Name     IdentID
	Method   MethodRef
}

// HashInfo maps keys to values, preserving insertion order. String keys
// compare by content, every other key by identity.
type HashInfo struct {
	entries *linkedhashmap.Map // hashKey -> hashEntry
}

type hashKey struct {
	v   Value
	str string
	isS bool
}

// hashEntry keeps the key as it was first stored alongside its value.
type hashEntry struct {
	key Value
	val Value
}

func NewHashInfo() *HashInfo {
	return &HashInfo{entries: linkedhashmap.New()}
}

func (h *HashInfo) Len() int { return h.entries.Size() }

// Keys returns the keys in insertion order.
func (h *HashInfo) Keys() []Value {
	out := make([]Value, 0, h.entries.Size())
	h.each(func(k, _ Value) { out = append(out, k) })
	return out
}

// Values returns the values in insertion order.
func (h *HashInfo) Values() []Value {
	out := make([]Value, 0, h.entries.Size())
	h.each(func(_, v Value) { out = append(out, v) })
	return out
}

func (h *HashInfo) each(fn func(k, v Value)) {
	it := h.entries.Iterator()
	for it.Next() {
		e := it.Value().(hashEntry)
		fn(e.key, e.val)
	}
}

func (h *HashInfo) get(key hashKey) (hashEntry, bool) {
	e, ok := h.entries.Get(key)
	if !ok {
		return hashEntry{}, false
	}
	return e.(hashEntry), true
}
