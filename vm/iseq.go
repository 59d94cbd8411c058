package vm

import (
	"encoding/binary"
	"math"
)

// ISeq is an instruction sequence plus the static metadata the interpreter
// needs to build a frame for it.
type ISeq struct {
	Name       string
	Code       []byte
	Lvars      int  // total local slots, parameters included
	ReqParams  int  // required leading parameters
	OptParams  int  // optional parameters after the required ones
	RestParam  bool // collects the remaining arguments into an array
	PostParams int  // required trailing parameters
}

// ParamCount returns the number of local slots taken by parameters.
func (s *ISeq) ParamCount() int {
	n := s.ReqParams + s.OptParams + s.PostParams
	if s.RestParam {
		n++
	}
	return n
}

// ---------------------------------------------------------------------------
// ISeqBuilder: helper for constructing instruction sequences
// ---------------------------------------------------------------------------

// Label marks a jump target. Jumps emitted before the label is marked are
// patched when it is.
type Label struct {
	pos     int
	marked  bool
	patches []int // positions of displacement operands to fix up
}

// ISeqBuilder assembles an ISeq.
type ISeqBuilder struct {
	g    *Globals
	iseq *ISeq
	code []byte
}

// NewISeqBuilder creates a builder. Identifier operands are interned in g.
func NewISeqBuilder(g *Globals, name string) *ISeqBuilder {
	return &ISeqBuilder{g: g, iseq: &ISeq{Name: name}, code: make([]byte, 0, 64)}
}

// Params sets the parameter shape.
func (b *ISeqBuilder) Params(req, opt int, rest bool, post int) *ISeqBuilder {
	b.iseq.ReqParams = req
	b.iseq.OptParams = opt
	b.iseq.RestParam = rest
	b.iseq.PostParams = post
	if n := b.iseq.ParamCount(); b.iseq.Lvars < n {
		b.iseq.Lvars = n
	}
	return b
}

// Lvars sets the total number of local slots.
func (b *ISeqBuilder) Lvars(n int) *ISeqBuilder {
	b.iseq.Lvars = n
	return b
}

// Len returns the current code length.
func (b *ISeqBuilder) Len() int {
	return len(b.code)
}

func (b *ISeqBuilder) u32(v uint32) {
	b.code = binary.BigEndian.AppendUint32(b.code, v)
}

func (b *ISeqBuilder) u64(v uint64) {
	b.code = binary.BigEndian.AppendUint64(b.code, v)
}

// Emit appends an operand-less opcode.
func (b *ISeqBuilder) Emit(op Opcode) *ISeqBuilder {
	b.code = append(b.code, byte(op))
	return b
}

func (b *ISeqBuilder) PushFixnum(n int64) *ISeqBuilder {
	b.Emit(OpPushFixnum)
	b.u64(uint64(n))
	return b
}

func (b *ISeqBuilder) PushFlonum(f float64) *ISeqBuilder {
	b.Emit(OpPushFlonum)
	b.u64(math.Float64bits(f))
	return b
}

func (b *ISeqBuilder) ident(op Opcode, name string) *ISeqBuilder {
	b.Emit(op)
	b.u32(uint32(b.g.Idents.Intern(name)))
	return b
}

func (b *ISeqBuilder) PushString(s string) *ISeqBuilder { return b.ident(OpPushString, s) }
func (b *ISeqBuilder) GetConst(name string) *ISeqBuilder { return b.ident(OpGetConst, name) }
func (b *ISeqBuilder) SetConst(name string) *ISeqBuilder { return b.ident(OpSetConst, name) }
func (b *ISeqBuilder) GetIvar(name string) *ISeqBuilder { return b.ident(OpGetInstanceVar, name) }
func (b *ISeqBuilder) SetIvar(name string) *ISeqBuilder { return b.ident(OpSetInstanceVar, name) }

func (b *ISeqBuilder) GetLocal(i int) *ISeqBuilder {
	b.Emit(OpGetLocal)
	b.u32(uint32(i))
	return b
}

func (b *ISeqBuilder) SetLocal(i int) *ISeqBuilder {
	b.Emit(OpSetLocal)
	b.u32(uint32(i))
	return b
}

func (b *ISeqBuilder) GetDynLocal(i, outer int) *ISeqBuilder {
	b.Emit(OpGetDynLocal)
	b.u32(uint32(i))
	b.u32(uint32(outer))
	return b
}

func (b *ISeqBuilder) SetDynLocal(i, outer int) *ISeqBuilder {
	b.Emit(OpSetDynLocal)
	b.u32(uint32(i))
	b.u32(uint32(outer))
	return b
}

// Send emits a call of name with argc arguments already pushed, last
// argument first, followed by the receiver.
func (b *ISeqBuilder) Send(name string, argc int) *ISeqBuilder {
	b.ident(OpSend, name)
	b.u32(uint32(argc))
	return b
}

// SendBlk is Send with a block method.
func (b *ISeqBuilder) SendBlk(name string, argc int, block MethodRef) *ISeqBuilder {
	b.ident(OpSendBlk, name)
	b.u32(uint32(argc))
	b.u32(uint32(block))
	return b
}

func (b *ISeqBuilder) DefClass(name string, body MethodRef) *ISeqBuilder {
	b.ident(OpDefClass, name)
	b.u32(uint32(body))
	return b
}

func (b *ISeqBuilder) DefMethod(name string, m MethodRef) *ISeqBuilder {
	b.ident(OpDefMethod, name)
	b.u32(uint32(m))
	return b
}

func (b *ISeqBuilder) CreateArray(n int) *ISeqBuilder {
	b.Emit(OpCreateArray)
	b.u32(uint32(n))
	return b
}

func (b *ISeqBuilder) CreateProc(m MethodRef) *ISeqBuilder {
	b.Emit(OpCreateProc)
	b.u32(uint32(m))
	return b
}

// NewLabel creates an unmarked label.
func (b *ISeqBuilder) NewLabel() *Label {
	return &Label{}
}

// Mark binds label to the current position and patches pending jumps.
func (b *ISeqBuilder) Mark(label *Label) *ISeqBuilder {
	label.pos = len(b.code)
	label.marked = true
	for _, at := range label.patches {
		b.patch(at, label.pos)
	}
	label.patches = nil
	return b
}

// Jump emits JMP or JMP_IF_FALSE to label.
func (b *ISeqBuilder) Jump(op Opcode, label *Label) *ISeqBuilder {
	b.Emit(op)
	at := len(b.code)
	b.u32(0)
	if label.marked {
		b.patch(at, label.pos)
	} else {
		label.patches = append(label.patches, at)
	}
	return b
}

// patch writes the displacement from the end of the jump at operand
// position at to target.
func (b *ISeqBuilder) patch(at, target int) {
	disp := int32(target - (at + 4))
	binary.BigEndian.PutUint32(b.code[at:], uint32(disp))
}

// Build finishes the sequence.
func (b *ISeqBuilder) Build() *ISeq {
	b.iseq.Code = b.code
	return b.iseq
}

// BuildMethod finishes the sequence and adds it to the method store.
func (b *ISeqBuilder) BuildMethod() MethodRef {
	return b.g.AddISeq(b.Build())
}
