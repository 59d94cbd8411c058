package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Runtime failures
// ---------------------------------------------------------------------------

// ErrorKind classifies a recoverable runtime failure.
type ErrorKind int

const (
	ErrorNoMethod      ErrorKind = iota // operator or dispatch target undefined for the operands
	ErrorUnimplemented                  // unsupported path, e.g. a missing required block
	ErrorName                           // unresolved constant or instance variable
	ErrorIndex                          // out-of-range index or negative length
	ErrorType                           // argument failed a kind expectation
	ErrorArgument                       // wrong number of arguments
	ErrorZeroDivision                   // integer division by zero
	ErrorStackOverflow                  // call depth exceeded Config.MaxDepth
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNoMethod:
		return "NoMethodError"
	case ErrorUnimplemented:
		return "NotImplementedError"
	case ErrorName:
		return "NameError"
	case ErrorIndex:
		return "IndexError"
	case ErrorType:
		return "TypeError"
	case ErrorArgument:
		return "ArgumentError"
	case ErrorZeroDivision:
		return "ZeroDivisionError"
	case ErrorStackOverflow:
		return "SystemStackError"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the failure value returned by every fallible VM operation.
// The interpreter forwards it unchanged; it never recovers locally.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrName) works
// for every name failure regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNoMethod      = &Error{Kind: ErrorNoMethod}
	ErrUnimplemented = &Error{Kind: ErrorUnimplemented}
	ErrName          = &Error{Kind: ErrorName}
	ErrIndex         = &Error{Kind: ErrorIndex}
	ErrType          = &Error{Kind: ErrorType}
	ErrArgument      = &Error{Kind: ErrorArgument}
	ErrZeroDivision  = &Error{Kind: ErrorZeroDivision}
	ErrStackOverflow = &Error{Kind: ErrorStackOverflow}
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func errNoMethod(format string, args ...any) error {
	return newError(ErrorNoMethod, format, args...)
}

func errUnimplemented(format string, args ...any) error {
	return newError(ErrorUnimplemented, format, args...)
}

func errName(format string, args ...any) error {
	return newError(ErrorName, format, args...)
}

func errIndex(format string, args ...any) error {
	return newError(ErrorIndex, format, args...)
}

func errType(format string, args ...any) error {
	return newError(ErrorType, format, args...)
}

func errArgument(format string, args ...any) error {
	return newError(ErrorArgument, format, args...)
}

// checkArgsRange validates an argument count against [min, max].
func checkArgsRange(n, min, max int) error {
	if n < min || n > max {
		if min == max {
			return errArgument("wrong number of arguments (given %d, expected %d)", n, min)
		}
		return errArgument("wrong number of arguments (given %d, expected %d..%d)", n, min, max)
	}
	return nil
}
