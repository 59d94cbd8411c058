package vm

// ---------------------------------------------------------------------------
// Context: one activation record
// ---------------------------------------------------------------------------

// ContextInlineLocals is the number of locals stored without allocation.
const ContextInlineLocals = 8

// Context is the frame of one method, block or class-body activation.
//
// A context starts out on the stack: it belongs to the interpreter that
// pushed it and may be recycled once popped. Capturing it in a closure
// promotes it, after which it lives as long as any closure refers to it.
type Context struct {
	Self    Value
	ISeq    *ISeq
	Block   MethodRef // NoBlock when absent
	PC      int
	Outer   *Context // lexically enclosing frame, for blocks
	OnStack bool

	locals [ContextInlineLocals]Value
	ext    []Value // locals beyond the inline capacity, sized exactly
}

// NewContext creates a stack context with every local set to nil.
func NewContext(self Value, iseq *ISeq, outer *Context, block MethodRef) *Context {
	c := &Context{}
	c.reset(self, iseq, outer, block)
	return c
}

// NewHeapContext creates a context that is already promoted.
func NewHeapContext(self Value, iseq *ISeq, outer *Context, block MethodRef) *Context {
	c := NewContext(self, iseq, outer, block)
	c.OnStack = false
	return c
}

func (c *Context) reset(self Value, iseq *ISeq, outer *Context, block MethodRef) {
	c.Self = self
	c.ISeq = iseq
	c.Block = block
	c.PC = 0
	c.Outer = outer
	c.OnStack = true
	for i := range c.locals {
		c.locals[i] = Nil
	}
	if n := iseq.Lvars - ContextInlineLocals; n > 0 {
		if cap(c.ext) >= n {
			c.ext = c.ext[:n]
		} else {
			c.ext = make([]Value, n)
		}
		for i := range c.ext {
			c.ext[i] = Nil
		}
	} else {
		c.ext = c.ext[:0]
	}
}

// NumLocals returns the number of addressable local slots.
func (c *Context) NumLocals() int {
	if len(c.ext) > 0 {
		return ContextInlineLocals + len(c.ext)
	}
	return c.ISeq.Lvars
}

// Local returns local slot i.
func (c *Context) Local(i int) Value {
	if i < ContextInlineLocals {
		return c.locals[i]
	}
	return c.ext[i-ContextInlineLocals]
}

// SetLocal assigns local slot i.
func (c *Context) SetLocal(i int, v Value) {
	if i < ContextInlineLocals {
		c.locals[i] = v
		return
	}
	c.ext[i-ContextInlineLocals] = v
}

// OuterAt follows the outer chain depth times. Panics if the chain is
// shorter than depth.
func (c *Context) OuterAt(depth int) *Context {
	ctx := c
	for i := 0; i < depth; i++ {
		if ctx.Outer == nil {
			panic("Context.OuterAt: outer chain too short")
		}
		ctx = ctx.Outer
	}
	return ctx
}

// Promote moves c and every frame it encloses off the stack, so the
// interpreter will not recycle them while a closure can still reach them.
func (c *Context) Promote() {
	for ctx := c; ctx != nil && ctx.OnStack; ctx = ctx.Outer {
		ctx.OnStack = false
	}
}

// SetArguments binds args into the parameter slots.
//
// The keyword payload, when present, is treated as one extra trailing
// argument. Post parameters take the tail, required and optional
// parameters take the prefix, and a rest parameter collects whatever lies
// between them. If neither the post nor the prefix region consumed the
// keyword payload it ends up at the end of the rest array. Slots with no
// argument stay nil.
func (c *Context) SetArguments(g *Globals, args *Args) {
	iseq := c.ISeq
	req, opt, post := iseq.ReqParams, iseq.OptParams, iseq.PostParams
	rest := 0
	if iseq.RestParam {
		rest = 1
	}

	argLen := args.Len()
	if args.HasKw {
		argLen++
	}
	at := func(i int) Value {
		if i == args.Len() {
			return args.KwArg
		}
		return args.At(i)
	}
	kwUsed := !args.HasKw

	postPos := req + opt + rest
	for i := 0; i < post; i++ {
		src := argLen - post + i
		if src < 0 {
			continue
		}
		c.SetLocal(postPos+i, at(src))
		if src == argLen-1 {
			kwUsed = true
		}
	}

	reqOpt := min(req+opt, argLen-post)
	if reqOpt < 0 {
		reqOpt = 0
	}
	for i := 0; i < reqOpt; i++ {
		c.SetLocal(i, at(i))
	}
	if !kwUsed && reqOpt > 0 {
		c.SetLocal(reqOpt-1, args.KwArg)
		kwUsed = true
	}

	if rest == 1 {
		var elems []Value
		if hi := min(args.Len(), argLen-post); req+opt < hi {
			elems = args.Slice(req+opt, hi)
		}
		if !kwUsed {
			elems = append(elems, args.KwArg)
		}
		c.SetLocal(req+opt, g.NewArray(elems))
	}
}
