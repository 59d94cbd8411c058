package vm

// ---------------------------------------------------------------------------
// Args: the argument vector of one call
// ---------------------------------------------------------------------------

// ArgsInlineCapacity is the number of arguments stored without allocation.
const ArgsInlineCapacity = 8

// Args holds the positional arguments of a call plus an optional block and
// keyword payload. Up to ArgsInlineCapacity arguments live in a fixed
// array; the ninth push moves everything to a growable slice. Every
// accessor behaves the same in either mode.
type Args struct {
	Block MethodRef // NoBlock when absent
	KwArg Value
	HasKw bool

	inline [ArgsInlineCapacity]Value
	n      int     // used inline slots
	spill  []Value // non-nil once promoted
}

// NewArgs creates n nil arguments.
func NewArgs(n int) *Args {
	a := &Args{Block: NoBlock, KwArg: Nil}
	if n > ArgsInlineCapacity {
		a.spill = make([]Value, n)
		for i := range a.spill {
			a.spill[i] = Nil
		}
		return a
	}
	for i := 0; i < n; i++ {
		a.inline[i] = Nil
	}
	a.n = n
	return a
}

// ArgsOf creates an argument vector holding vals.
func ArgsOf(vals ...Value) *Args {
	a := &Args{Block: NoBlock, KwArg: Nil}
	for _, v := range vals {
		a.Push(v)
	}
	return a
}

func Args0() *Args { return NewArgs(0) }

func Args1(a0 Value) *Args {
	a := NewArgs(1)
	a.inline[0] = a0
	return a
}

func Args2(a0, a1 Value) *Args {
	a := NewArgs(2)
	a.inline[0], a.inline[1] = a0, a1
	return a
}

func Args3(a0, a1, a2 Value) *Args {
	a := NewArgs(3)
	a.inline[0], a.inline[1], a.inline[2] = a0, a1, a2
	return a
}

// Len returns the number of positional arguments.
func (a *Args) Len() int {
	if a.spill != nil {
		return len(a.spill)
	}
	return a.n
}

// Promoted reports whether storage has moved off the inline array.
func (a *Args) Promoted() bool {
	return a.spill != nil
}

// At returns argument i. Panics if i is out of range.
func (a *Args) At(i int) Value {
	if a.spill != nil {
		return a.spill[i]
	}
	if i < 0 || i >= a.n {
		panic("Args.At: index out of range")
	}
	return a.inline[i]
}

// Set replaces argument i. Panics if i is out of range.
func (a *Args) Set(i int, v Value) {
	if a.spill != nil {
		a.spill[i] = v
		return
	}
	if i < 0 || i >= a.n {
		panic("Args.Set: index out of range")
	}
	a.inline[i] = v
}

// Push appends v, promoting to the slice when the inline array is full.
func (a *Args) Push(v Value) {
	if a.spill != nil {
		a.spill = append(a.spill, v)
		return
	}
	if a.n < ArgsInlineCapacity {
		a.inline[a.n] = v
		a.n++
		return
	}
	a.spill = make([]Value, a.n, 2*ArgsInlineCapacity)
	copy(a.spill, a.inline[:a.n])
	a.spill = append(a.spill, v)
	a.n = 0
}

// Slice returns arguments [lo, hi) as a fresh slice.
func (a *Args) Slice(lo, hi int) []Value {
	src := a.view()
	out := make([]Value, hi-lo)
	copy(out, src[lo:hi])
	return out
}

// Values returns the logical contents in order, with no inline padding.
func (a *Args) Values() []Value {
	return a.Slice(0, a.Len())
}

// Clone returns an independent copy.
func (a *Args) Clone() *Args {
	c := *a
	if a.spill != nil {
		c.spill = make([]Value, len(a.spill))
		copy(c.spill, a.spill)
	}
	return &c
}

func (a *Args) view() []Value {
	if a.spill != nil {
		return a.spill
	}
	return a.inline[:a.n]
}
