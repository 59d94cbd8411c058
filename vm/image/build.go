package image

import (
	"fmt"

	"github.com/chazu/garnet/vm"
)

// Build captures every interpreted method in g plus entry as a program.
// entry need not be in g's method store. Code referring to a native
// method cannot be captured.
func Build(g *vm.Globals, entry *vm.ISeq) (*Program, error) {
	p := &Program{Version: Version, Idents: g.Idents.All(), Entry: -1}

	index := make(map[vm.MethodRef]int)
	var iseqs []*vm.ISeq
	for ref := 0; ref < g.MethodCount(); ref++ {
		m := g.Method(vm.MethodRef(ref))
		if m.ISeq == nil {
			continue
		}
		index[vm.MethodRef(ref)] = len(iseqs)
		if m.ISeq == entry {
			p.Entry = len(iseqs)
		}
		iseqs = append(iseqs, m.ISeq)
	}
	if p.Entry < 0 {
		p.Entry = len(iseqs)
		iseqs = append(iseqs, entry)
	}

	for _, iseq := range iseqs {
		code := make([]byte, len(iseq.Code))
		copy(code, iseq.Code)

		var missing error
		err := vm.Relocate(code, nil, func(ref vm.MethodRef) vm.MethodRef {
			i, ok := index[ref]
			if !ok && missing == nil {
				missing = fmt.Errorf("image: %s refers to native method %d", iseq.Name, ref)
			}
			return vm.MethodRef(i)
		})
		if err != nil {
			return nil, fmt.Errorf("image: build %s: %w", iseq.Name, err)
		}
		if missing != nil {
			return nil, missing
		}

		p.Methods = append(p.Methods, Method{
			Name:  iseq.Name,
			Code:  code,
			Lvars: iseq.Lvars,
			Req:   iseq.ReqParams,
			Opt:   iseq.OptParams,
			Rest:  iseq.RestParam,
			Post:  iseq.PostParams,
		})
	}
	return p, nil
}
