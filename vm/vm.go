package vm

import (
	"fmt"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: the garnet virtual machine
// ---------------------------------------------------------------------------

// VM runs instruction sequences against one Globals. It owns the operand
// stack, the context stack and the stack of open class bodies. A VM is
// not safe for concurrent use.
type VM struct {
	Globals *Globals

	stack      []Value
	contexts   []*Context
	classStack []Value
	free       []*Context // popped stack contexts ready for reuse

	config Config
	log    commonlog.Logger
}

const maxFreeContexts = 64

// New creates a VM over g. A nil g gets a freshly bootstrapped Globals.
func New(g *Globals, config Config) *VM {
	if g == nil {
		g = NewGlobals()
	}
	if config.Output == nil {
		config.Output = DefaultConfig().Output
	}
	if config.StackSize <= 0 {
		config.StackSize = DefaultConfig().StackSize
	}
	vm := &VM{
		Globals:  g,
		stack:    make([]Value, 0, config.StackSize),
		contexts: make([]*Context, 0, 64),
		config:   config,
	}
	vm.log = commonlog.GetLogger(vm.LoggerName())
	vm.log.Debugf("vm created: %d classes, %d methods", g.Classes.Len(), g.MethodCount())
	return vm
}

// NewDefault creates a VM with fresh globals and the default configuration.
func NewDefault() *VM {
	return New(nil, DefaultConfig())
}

// Config returns the VM's configuration.
func (vm *VM) Config() Config {
	return vm.config
}

// LoggerName returns the name the VM logs under. It carries the runtime
// ID so output from several runtimes in one process can be told apart.
func (vm *VM) LoggerName() string {
	return "garnet.vm." + vm.Globals.ID.String()
}

// Logger returns the VM's logger.
func (vm *VM) Logger() commonlog.Logger {
	return vm.log
}

// ---------------------------------------------------------------------------
// Operand stack
// ---------------------------------------------------------------------------

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() Value {
	n := len(vm.stack)
	if n == 0 {
		panic("VM: operand stack underflow")
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v
}

func (vm *VM) peek() Value {
	n := len(vm.stack)
	if n == 0 {
		panic("VM: operand stack underflow")
	}
	return vm.stack[n-1]
}

// StackDepth returns the number of values on the operand stack.
func (vm *VM) StackDepth() int {
	return len(vm.stack)
}

// ---------------------------------------------------------------------------
// Context stack
// ---------------------------------------------------------------------------

// CurrentContext returns the innermost executing context, or nil.
func (vm *VM) CurrentContext() *Context {
	if len(vm.contexts) == 0 {
		return nil
	}
	return vm.contexts[len(vm.contexts)-1]
}

// ContextDepth returns the number of active contexts.
func (vm *VM) ContextDepth() int {
	return len(vm.contexts)
}

func (vm *VM) newContext(self Value, iseq *ISeq, outer *Context, block MethodRef) *Context {
	if n := len(vm.free); n > 0 {
		ctx := vm.free[n-1]
		vm.free = vm.free[:n-1]
		ctx.reset(self, iseq, outer, block)
		return ctx
	}
	return NewContext(self, iseq, outer, block)
}

func (vm *VM) pushContext(ctx *Context) {
	vm.contexts = append(vm.contexts, ctx)
}

// popContext removes the innermost context. Contexts captured by a closure
// are left alone; only frames still on the stack are reused.
func (vm *VM) popContext() {
	n := len(vm.contexts)
	ctx := vm.contexts[n-1]
	vm.contexts[n-1] = nil
	vm.contexts = vm.contexts[:n-1]
	if ctx.OnStack && len(vm.free) < maxFreeContexts {
		ctx.Outer = nil
		vm.free = append(vm.free, ctx)
	}
}

// ---------------------------------------------------------------------------
// Class stack
// ---------------------------------------------------------------------------

// currentClass returns the innermost open class body, if any.
func (vm *VM) currentClass() (Value, bool) {
	if len(vm.classStack) == 0 {
		return Nil, false
	}
	return vm.classStack[len(vm.classStack)-1], true
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// Run executes a toplevel sequence with main as self. The operand stack
// must be empty once it completes.
func (vm *VM) Run(iseq *ISeq) (Value, error) {
	result, err := vm.Execute(vm.Globals.Main, iseq, nil, nil, NoBlock)
	if err != nil {
		vm.log.Infof("%s failed in runtime %s: %s", iseq.Name, vm.Globals.ID, err.Error())
		return Nil, err
	}
	if n := len(vm.stack); n != 0 {
		panic(fmt.Sprintf("VM.Run: %d values left on the operand stack", n))
	}
	return result, nil
}

// Execute runs iseq in a new context and returns the value left by END.
// args may be nil when there is nothing to bind.
func (vm *VM) Execute(self Value, iseq *ISeq, outer *Context, args *Args, block MethodRef) (Value, error) {
	if limit := vm.config.MaxDepth; limit > 0 && len(vm.contexts) >= limit {
		return Nil, newError(ErrorStackOverflow, "stack level too deep")
	}
	ctx := vm.newContext(self, iseq, outer, block)
	if args != nil {
		ctx.SetArguments(vm.Globals, args)
	}

	base := len(vm.stack)
	vm.pushContext(ctx)
	result, err := vm.loop(ctx, base)
	vm.popContext()
	if err != nil && len(vm.stack) > base {
		vm.stack = vm.stack[:base]
	}
	return result, err
}
