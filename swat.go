package swat

import (
	"errors"
	"fmt"
)

// AddressUnknown is the address of a value without a stable identity.
const AddressUnknown = -1

var (
	ErrSolverTimeout       = errors.New("Solver timeout")
	ErrSolverCanceled      = errors.New("Solver canceled")
	ErrSolverResourceLimit = errors.New("Solver resource limit")
	ErrSolverUnknown       = errors.New("Solver unknown error")
	ErrProverClosed        = errors.New("prover closed")
	ErrUnknownOpcode       = errors.New("unknown opcode")
)

// MalformedArgumentError is reported when a handler receives arguments of an
// unexpected shape. It is logged and the operation degrades to PlaceHolder.
type MalformedArgumentError struct {
	Owner string
	Name  string
	Msg   string
}

// Error returns the error as a string.
func (e *MalformedArgumentError) Error() string {
	return fmt.Sprintf("%s.%s: malformed argument: %s", e.Owner, e.Name, e.Msg)
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
