package swat

import "sync/atomic"

// Solver represents a logical constraint solver.
type Solver interface {
	// Returns a new incremental solving session. Callers must close it.
	NewProver() (Prover, error)
}

// Prover represents an incremental satisfiability session over a growing
// set of constraints.
type Prover interface {
	// Adds a boolean constraint to the session.
	AddConstraint(expr Expr) error

	// Returns true if the conjunction of all added constraints is unsatisfiable.
	IsUnsat() (bool, error)

	// Releases the session. Constraints may no longer be added afterward.
	Close() error
}

// Ensure solver implements interface.
var _ Solver = (*SimplifyingSolver)(nil)

// SimplifyingSolver is a solver that never calls out to an SMT library. It
// reports unsatisfiability only when the constraints simplify to false and
// treats everything else as satisfiable. It is safe for concurrent use.
type SimplifyingSolver struct {
	proverN atomic.Int64
	checkN  atomic.Int64
}

// NewSimplifyingSolver returns a new instance of SimplifyingSolver.
func NewSimplifyingSolver() *SimplifyingSolver {
	return &SimplifyingSolver{}
}

// Stats returns statistics for the solver.
func (s *SimplifyingSolver) Stats() SolverStats {
	return SolverStats{
		ProverN: int(s.proverN.Load()),
		CheckN:  int(s.checkN.Load()),
	}
}

// NewProver returns a new session.
func (s *SimplifyingSolver) NewProver() (Prover, error) {
	s.proverN.Add(1)
	return &simplifyingProver{solver: s, cond: NewBoolConstantExpr(true)}, nil
}

type simplifyingProver struct {
	solver *SimplifyingSolver
	cond   Expr
	closed bool
}

func (p *simplifyingProver) AddConstraint(expr Expr) error {
	if p.closed {
		return ErrProverClosed
	}
	assert(ExprSort(expr) == SortBool, "constraint must be boolean: %s", ExprSort(expr))
	p.cond = NewBinaryExpr(AND, p.cond, expr)
	return nil
}

func (p *simplifyingProver) IsUnsat() (bool, error) {
	if p.closed {
		return false, ErrProverClosed
	}
	p.solver.checkN.Add(1)
	p.cond = Simplify(p.cond)
	return IsConstantFalse(p.cond), nil
}

func (p *simplifyingProver) Close() error {
	p.closed = true
	return nil
}

// SolverStats holds counters for solver usage.
type SolverStats struct {
	ProverN int // sessions opened
	CheckN  int // satisfiability checks
}
