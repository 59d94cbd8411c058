package image

import (
	"fmt"

	"github.com/chazu/garnet/vm"
)

// Load installs p into g and returns the entry sequence. Identifiers are
// interned into g and every method is added to g's method store; operands
// in the loaded code are rewritten to the resulting IDs. p is not
// modified.
func Load(g *vm.Globals, p *Program) (*vm.ISeq, error) {
	if p.Version != Version {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrVersionMismatch, Version, p.Version)
	}
	if p.Entry < 0 || p.Entry >= len(p.Methods) {
		return nil, fmt.Errorf("%w: entry %d out of range (%d methods)", ErrInvalidImage, p.Entry, len(p.Methods))
	}
	if err := validateProgram(p); err != nil {
		return nil, err
	}

	idents := make([]vm.IdentID, len(p.Idents))
	for i, name := range p.Idents {
		idents[i] = g.Idents.Intern(name)
	}

	iseqs := make([]*vm.ISeq, len(p.Methods))
	refs := make([]vm.MethodRef, len(p.Methods))
	for i, m := range p.Methods {
		code := make([]byte, len(m.Code))
		copy(code, m.Code)
		iseqs[i] = &vm.ISeq{
			Name:       m.Name,
			Code:       code,
			Lvars:      m.Lvars,
			ReqParams:  m.Req,
			OptParams:  m.Opt,
			RestParam:  m.Rest,
			PostParams: m.Post,
		}
		refs[i] = g.AddISeq(iseqs[i])
	}

	for _, iseq := range iseqs {
		err := vm.Relocate(iseq.Code,
			func(id vm.IdentID) vm.IdentID { return idents[id] },
			func(m vm.MethodRef) vm.MethodRef { return refs[m] })
		if err != nil {
			return nil, fmt.Errorf("image: relocate %s: %w", iseq.Name, err)
		}
	}
	return iseqs[p.Entry], nil
}

// dynRef is a GET_DYN_LOCAL or SET_DYN_LOCAL found during validation.
type dynRef struct {
	slot, depth int64
	pos         int
}

// methodShape records what validation of one method found that can only
// be checked against the rest of the program.
type methodShape struct {
	blocks []int // methods this one creates closures of
	dyn    []dynRef
}

// validateProgram checks every method, then checks dynamic local accesses
// against the methods that can enclose them.
func validateProgram(p *Program) error {
	shapes := make([]methodShape, len(p.Methods))
	for i, m := range p.Methods {
		shape, err := validate(p, m)
		if err != nil {
			return fmt.Errorf("image: method %d (%s): %w", i, m.Name, err)
		}
		shapes[i] = shape
	}

	// A block's outer context is the frame of the method that created it.
	parents := make([][]int, len(p.Methods))
	for i, shape := range shapes {
		for _, b := range shape.blocks {
			parents[b] = append(parents[b], i)
		}
	}

	for i, shape := range shapes {
		for _, ref := range shape.dyn {
			if err := checkDynRef(p, parents, i, ref); err != nil {
				return fmt.Errorf("image: method %d (%s): %w", i, p.Methods[i].Name, err)
			}
		}
	}
	return nil
}

// checkDynRef verifies that every method which can sit ref.depth frames
// out from method i has the referenced slot. Depths beyond the method
// count need a recursive block chain and are rejected.
func checkDynRef(p *Program, parents [][]int, i int, ref dynRef) error {
	if ref.depth > int64(len(p.Methods)) {
		return fmt.Errorf("%w: outer depth %d too deep at %d", ErrInvalidImage, ref.depth, ref.pos)
	}
	frontier := map[int]bool{i: true}
	for d := int64(0); d < ref.depth; d++ {
		next := make(map[int]bool)
		for m := range frontier {
			for _, parent := range parents[m] {
				next[parent] = true
			}
		}
		if len(next) == 0 {
			return fmt.Errorf("%w: no enclosing method at depth %d at %d", ErrInvalidImage, ref.depth, ref.pos)
		}
		frontier = next
	}
	for m := range frontier {
		if ref.slot >= int64(p.Methods[m].Lvars) {
			return fmt.Errorf("%w: local %d out of range in %s at %d",
				ErrInvalidImage, ref.slot, p.Methods[m].Name, ref.pos)
		}
	}
	return nil
}

// validate checks that m decodes, that its operands stay inside p and
// that every jump lands on an instruction.
func validate(p *Program, m Method) (methodShape, error) {
	var shape methodShape
	if m.Req < 0 || m.Opt < 0 || m.Post < 0 {
		return shape, fmt.Errorf("%w: negative parameter count", ErrInvalidImage)
	}
	params := m.Req + m.Opt + m.Post
	if m.Rest {
		params++
	}
	if m.Lvars < params {
		return shape, fmt.Errorf("%w: %d locals for %d parameters", ErrInvalidImage, m.Lvars, params)
	}
	if len(m.Code) == 0 {
		return shape, fmt.Errorf("%w: empty code", ErrInvalidImage)
	}

	starts := make(map[int]bool)
	var jumps []vm.Instruction
	err := vm.Walk(m.Code, func(in vm.Instruction) error {
		starts[in.Pos] = true
		for i, k := range in.Op.Info().Operands {
			v := in.Operands[i]
			switch k {
			case vm.OperandIdent:
				if v >= int64(len(p.Idents)) {
					return fmt.Errorf("%w: ident %d out of range at %d", ErrInvalidImage, v, in.Pos)
				}
			case vm.OperandMethod:
				if v >= int64(len(p.Methods)) {
					return fmt.Errorf("%w: method %d out of range at %d", ErrInvalidImage, v, in.Pos)
				}
				if in.Op == vm.OpCreateProc || in.Op == vm.OpSendBlk {
					shape.blocks = append(shape.blocks, int(v))
				}
			case vm.OperandLvar:
				if in.Op == vm.OpGetDynLocal || in.Op == vm.OpSetDynLocal {
					shape.dyn = append(shape.dyn, dynRef{slot: v, depth: in.Operands[i+1], pos: in.Pos})
				} else if v >= int64(m.Lvars) {
					return fmt.Errorf("%w: local %d out of range at %d", ErrInvalidImage, v, in.Pos)
				}
			case vm.OperandDisp:
				jumps = append(jumps, in)
			}
		}
		return nil
	})
	if err != nil {
		return shape, err
	}
	for _, in := range jumps {
		target := int64(in.Pos+in.Op.Width()) + in.Operands[0]
		if target < 0 || target >= int64(len(m.Code)) || !starts[int(target)] {
			return shape, fmt.Errorf("%w: jump at %d to %d is not an instruction", ErrInvalidImage, in.Pos, target)
		}
	}
	return shape, nil
}
