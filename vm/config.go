package vm

import (
	"io"
	"os"
)

// Config tunes one interpreter instance.
type Config struct {
	// StrictIvars makes reading an unset instance variable a Name failure.
	// When false the read yields nil.
	StrictIvars bool

	// Trace logs every instruction at debug level.
	Trace bool

	// MaxDepth bounds nested Execute calls. Zero means unbounded.
	MaxDepth int

	// StackSize is the initial operand stack capacity.
	StackSize int

	// Output receives what puts writes.
	Output io.Writer
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		StrictIvars: true,
		MaxDepth:    10000,
		StackSize:   1024,
		Output:      os.Stdout,
	}
}
