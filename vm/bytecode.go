package vm

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode is a single bytecode instruction. Operands follow the opcode
// byte in big-endian order.
type Opcode byte

const (
	OpEnd            Opcode = 0
	OpPushFixnum     Opcode = 1 // i64
	OpPushFlonum     Opcode = 2 // f64 bits
	OpAdd            Opcode = 3
	OpSub            Opcode = 4
	OpMul            Opcode = 5
	OpDiv            Opcode = 6
	OpEq             Opcode = 7
	OpNe             Opcode = 8
	OpGt             Opcode = 9
	OpGe             Opcode = 10
	OpPushTrue       Opcode = 11
	OpPushFalse      Opcode = 12
	OpPushNil        Opcode = 13
	OpShr            Opcode = 14
	OpShl            Opcode = 15
	OpBitOr          Opcode = 16
	OpBitAnd         Opcode = 17
	OpBitXor         Opcode = 18
	OpJmp            Opcode = 19 // disp i32
	OpJmpIfFalse     Opcode = 20 // disp i32
	OpSetLocal       Opcode = 21 // lvar
	OpGetLocal       Opcode = 22 // lvar
	OpSend           Opcode = 23 // ident, argc
	OpPushSelf       Opcode = 24
	OpCreateRange    Opcode = 25
	OpGetConst       Opcode = 26 // ident
	OpSetConst       Opcode = 27 // ident
	OpPushString     Opcode = 28 // ident
	OpPop            Opcode = 29
	OpConcatString   Opcode = 30
	OpToS            Opcode = 31
	OpDefClass       Opcode = 32 // ident, method
	OpGetInstanceVar Opcode = 33 // ident
	OpSetInstanceVar Opcode = 34 // ident
	OpDefMethod      Opcode = 35 // ident, method
	OpGetDynLocal    Opcode = 36 // lvar, outer
	OpSetDynLocal    Opcode = 37 // lvar, outer
	OpSendBlk        Opcode = 38 // ident, argc, method
	OpCreateArray    Opcode = 39 // count
	OpCreateProc     Opcode = 40 // method
	OpDup            Opcode = 41
)

// OperandKind says how an operand is encoded and what it refers to.
type OperandKind uint8

const (
	OperandI64    OperandKind = iota // 8-byte signed integer
	OperandF64                       // 8-byte float bits
	OperandDisp                      // 4-byte signed jump displacement
	OperandLvar                      // 4-byte local index
	OperandIdent                     // 4-byte identifier ID
	OperandCount                     // 4-byte count
	OperandMethod                    // 4-byte method reference
	OperandOuter                     // 4-byte outer context depth
)

// Size returns the encoded width of the operand in bytes.
func (k OperandKind) Size() int {
	switch k {
	case OperandI64, OperandF64:
		return 8
	}
	return 4
}

// OpcodeInfo describes an opcode for disassembly and decoding.
type OpcodeInfo struct {
	Name     string
	Operands []OperandKind
}

// Width returns the full encoded width including the opcode byte.
func (i OpcodeInfo) Width() int {
	w := 1
	for _, k := range i.Operands {
		w += k.Size()
	}
	return w
}

var opcodeTable = [...]OpcodeInfo{
	OpEnd:            {"END", nil},
	OpPushFixnum:     {"PUSH_FIXNUM", []OperandKind{OperandI64}},
	OpPushFlonum:     {"PUSH_FLONUM", []OperandKind{OperandF64}},
	OpAdd:            {"ADD", nil},
	OpSub:            {"SUB", nil},
	OpMul:            {"MUL", nil},
	OpDiv:            {"DIV", nil},
	OpEq:             {"EQ", nil},
	OpNe:             {"NE", nil},
	OpGt:             {"GT", nil},
	OpGe:             {"GE", nil},
	OpPushTrue:       {"PUSH_TRUE", nil},
	OpPushFalse:      {"PUSH_FALSE", nil},
	OpPushNil:        {"PUSH_NIL", nil},
	OpShr:            {"SHR", nil},
	OpShl:            {"SHL", nil},
	OpBitOr:          {"BIT_OR", nil},
	OpBitAnd:         {"BIT_AND", nil},
	OpBitXor:         {"BIT_XOR", nil},
	OpJmp:            {"JMP", []OperandKind{OperandDisp}},
	OpJmpIfFalse:     {"JMP_IF_FALSE", []OperandKind{OperandDisp}},
	OpSetLocal:       {"SET_LOCAL", []OperandKind{OperandLvar}},
	OpGetLocal:       {"GET_LOCAL", []OperandKind{OperandLvar}},
	OpSend:           {"SEND", []OperandKind{OperandIdent, OperandCount}},
	OpPushSelf:       {"PUSH_SELF", nil},
	OpCreateRange:    {"CREATE_RANGE", nil},
	OpGetConst:       {"GET_CONST", []OperandKind{OperandIdent}},
	OpSetConst:       {"SET_CONST", []OperandKind{OperandIdent}},
	OpPushString:     {"PUSH_STRING", []OperandKind{OperandIdent}},
	OpPop:            {"POP", nil},
	OpConcatString:   {"CONCAT_STRING", nil},
	OpToS:            {"TO_S", nil},
	OpDefClass:       {"DEF_CLASS", []OperandKind{OperandIdent, OperandMethod}},
	OpGetInstanceVar: {"GET_INSTANCE_VAR", []OperandKind{OperandIdent}},
	OpSetInstanceVar: {"SET_INSTANCE_VAR", []OperandKind{OperandIdent}},
	OpDefMethod:      {"DEF_METHOD", []OperandKind{OperandIdent, OperandMethod}},
	OpGetDynLocal:    {"GET_DYN_LOCAL", []OperandKind{OperandLvar, OperandOuter}},
	OpSetDynLocal:    {"SET_DYN_LOCAL", []OperandKind{OperandLvar, OperandOuter}},
	OpSendBlk:        {"SEND_BLK", []OperandKind{OperandIdent, OperandCount, OperandMethod}},
	OpCreateArray:    {"CREATE_ARRAY", []OperandKind{OperandCount}},
	OpCreateProc:     {"CREATE_PROC", []OperandKind{OperandMethod}},
	OpDup:            {"DUP", nil},
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	return int(op) < len(opcodeTable)
}

// Info returns the descriptor for op.
func (op Opcode) Info() OpcodeInfo {
	if !op.Valid() {
		return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%d", byte(op))}
	}
	return opcodeTable[op]
}

// Width returns the encoded width of op including operands.
func (op Opcode) Width() int {
	return op.Info().Width()
}

func (op Opcode) String() string {
	return op.Info().Name
}

// ---------------------------------------------------------------------------
// Operand decoding
// ---------------------------------------------------------------------------

func readU32(code []byte, pos int) uint32 {
	return binary.BigEndian.Uint32(code[pos:])
}

func readI32(code []byte, pos int) int32 {
	return int32(binary.BigEndian.Uint32(code[pos:]))
}

func readI64(code []byte, pos int) int64 {
	return int64(binary.BigEndian.Uint64(code[pos:]))
}

func readF64(code []byte, pos int) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(code[pos:]))
}

// Instruction is one decoded instruction.
type Instruction struct {
	Pos      int
	Op       Opcode
	Operands []int64 // one entry per operand, sign-extended where signed
}

// Decode reads the instruction at pos.
func Decode(code []byte, pos int) (Instruction, error) {
	if pos < 0 || pos >= len(code) {
		return Instruction{}, fmt.Errorf("bytecode: address %d out of range", pos)
	}
	op := Opcode(code[pos])
	if !op.Valid() {
		return Instruction{}, fmt.Errorf("bytecode: unknown opcode %d at %d", byte(op), pos)
	}
	info := op.Info()
	if pos+info.Width() > len(code) {
		return Instruction{}, fmt.Errorf("bytecode: %s at %d truncated", info.Name, pos)
	}
	in := Instruction{Pos: pos, Op: op}
	at := pos + 1
	for _, k := range info.Operands {
		var v int64
		switch k {
		case OperandI64:
			v = readI64(code, at)
		case OperandF64:
			v = int64(binary.BigEndian.Uint64(code[at:]))
		case OperandDisp:
			v = int64(readI32(code, at))
		default:
			v = int64(readU32(code, at))
		}
		in.Operands = append(in.Operands, v)
		at += k.Size()
	}
	return in, nil
}

// Walk decodes every instruction in code in order.
func Walk(code []byte, fn func(in Instruction) error) error {
	for pos := 0; pos < len(code); {
		in, err := Decode(code, pos)
		if err != nil {
			return err
		}
		if err := fn(in); err != nil {
			return err
		}
		pos += in.Op.Width()
	}
	return nil
}

// Relocate rewrites identifier and method-reference operands in place.
// Either mapping may be nil to leave that operand kind untouched.
func Relocate(code []byte, ident func(IdentID) IdentID, method func(MethodRef) MethodRef) error {
	return Walk(code, func(in Instruction) error {
		at := in.Pos + 1
		for i, k := range in.Op.Info().Operands {
			switch {
			case k == OperandIdent && ident != nil:
				binary.BigEndian.PutUint32(code[at:], uint32(ident(IdentID(in.Operands[i]))))
			case k == OperandMethod && method != nil:
				binary.BigEndian.PutUint32(code[at:], uint32(method(MethodRef(in.Operands[i]))))
			}
			at += k.Size()
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// IdentNames resolves identifier operands for disassembly. *IdentTable
// implements it for loaded code.
type IdentNames interface {
	Name(id IdentID) string
}

// DisassembleInstruction renders one instruction. Identifier operands are
// resolved through idents when it is non-nil.
func DisassembleInstruction(in Instruction, idents IdentNames) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04d  %s", in.Pos, in.Op.Info().Name)
	for i, k := range in.Op.Info().Operands {
		v := in.Operands[i]
		switch k {
		case OperandF64:
			fmt.Fprintf(&sb, " %s", formatFloat(math.Float64frombits(uint64(v))))
		case OperandDisp:
			fmt.Fprintf(&sb, " %d (-> %04d)", v, in.Pos+in.Op.Width()+int(v))
		case OperandIdent:
			if idents != nil {
				fmt.Fprintf(&sb, " :%s", idents.Name(IdentID(v)))
			} else {
				fmt.Fprintf(&sb, " ident=%d", v)
			}
		case OperandMethod:
			fmt.Fprintf(&sb, " method=%d", v)
		case OperandOuter:
			fmt.Fprintf(&sb, " outer=%d", v)
		default:
			fmt.Fprintf(&sb, " %d", v)
		}
	}
	return sb.String()
}

// Disassemble renders a listing with one instruction per line.
func Disassemble(code []byte, idents IdentNames) string {
	var lines []string
	err := Walk(code, func(in Instruction) error {
		lines = append(lines, DisassembleInstruction(in, idents))
		return nil
	})
	if err != nil {
		lines = append(lines, "; "+err.Error())
	}
	return strings.Join(lines, "\n")
}
