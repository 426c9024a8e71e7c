//go:build !z3

package z3

import (
	"errors"
	"time"

	"github.com/dualtrace/swat"
)

// ErrUnavailable is returned when the package is built without Z3.
var ErrUnavailable = errors.New("z3 solver not available - rebuild with '-tags z3' to enable")

// Ensure solver implements interface.
var _ swat.Solver = (*Solver)(nil)

// Solver is unavailable in builds without the z3 tag.
type Solver struct {
	Timeout time.Duration
}

// NewSolver returns ErrUnavailable.
func NewSolver() (*Solver, error) {
	return nil, ErrUnavailable
}

// Close is a no-op.
func (s *Solver) Close() error { return nil }

// Stats returns zero statistics.
func (s *Solver) Stats() Stats { return Stats{} }

// NewProver returns ErrUnavailable.
func (s *Solver) NewProver() (swat.Prover, error) {
	return nil, ErrUnavailable
}

// Stats holds counters for solver usage.
type Stats struct {
	ProverN   int
	CheckN    int
	CheckTime time.Duration
}
