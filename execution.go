package swat

import (
	"bytes"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Execution holds the state of a single concrete run of the program under
// analysis. It is discarded at the execution boundary.
type Execution struct {
	id uuid.UUID

	// Shared across executions.
	registry *Registry
	solver   Solver
	logger   *zap.Logger
	config   Config

	// Per-execution state.
	store   *TraceStore
	arena   *BuilderArena
	addrSeq int
	iid     int64 // instruction id of the current call site
}

// NewExecution returns a new execution using the given collaborators.
func NewExecution(registry *Registry, solver Solver, logger *zap.Logger, config Config) *Execution {
	if logger == nil {
		logger = zap.NewNop()
	}
	x := &Execution{
		id:       uuid.New(),
		registry: registry,
		solver:   solver,
		config:   config,
		store:    NewTraceStore(),
		arena:    NewBuilderArena(),
	}
	x.logger = logger.With(zap.Stringer("execution", x.id))
	return x
}

// ID returns the unique id of the execution.
func (x *Execution) ID() uuid.UUID { return x.id }

// Registry returns the symbolic variable registry.
func (x *Execution) Registry() *Registry { return x.registry }

// Solver returns the constraint solver.
func (x *Execution) Solver() Solver { return x.solver }

// Logger returns the execution's logger.
func (x *Execution) Logger() *zap.Logger { return x.logger }

// Config returns the engine configuration.
func (x *Execution) Config() Config { return x.config }

// Store returns the trace store.
func (x *Execution) Store() *TraceStore { return x.store }

// Arena returns the string builder arena.
func (x *Execution) Arena() *BuilderArena { return x.arena }

// NextAddr returns a new reference identity. Addresses start at 1.
func (x *Execution) NextAddr() int {
	x.addrSeq++
	return x.addrSeq
}

// NewString returns a string value with a fresh address.
func (x *Execution) NewString(value string, expr Expr) *StringValue {
	if expr == nil {
		expr = NewStringConstantExpr(value)
	}
	return &StringValue{Value: value, Expr: expr, Addr: x.NextAddr()}
}

// NewBuilder allocates a string builder with a fresh address.
func (x *Execution) NewBuilder(value string, expr Expr) *StringBuilderValue {
	return x.arena.New(value, expr, x.NextAddr())
}

// NewArrayOf returns an array of the given elements with a fresh address.
// The formula stores each element formula into a fresh array variable and
// is nil if any element formula is missing.
func (x *Execution) NewArrayOf(elem Descriptor, elems []Value) *ArrayValue {
	arr := &ArrayValue{Elem: elem, Elems: elems, Addr: x.NextAddr()}
	sort := elemSort(elem)
	if sort == 0 {
		return arr
	}

	var expr Expr = x.registry.FreshHelperArray(sort)
	for i, v := range elems {
		if v == nil || v.Formula() == nil || ExprSort(v.Formula()) != sort {
			return arr
		}
		expr = NewStoreExpr(expr, NewConstantExpr(int64(i)), v.Formula())
	}
	arr.Expr = expr
	return arr
}

// SetIID sets the instruction id of the current call site.
func (x *Execution) SetIID(iid int64) { x.iid = iid }

// Trace returns the trace handler for a call with the given arguments. The
// handler is bound to the current call site.
func (x *Execution) Trace(args []Value, desc []Descriptor) *TraceHandler {
	h := x.store.GetOrCreateTrace(args, desc)
	if x.iid != 0 {
		h.SetIID(x.iid)
	}
	return h
}

// degrade logs why an operation is not modeled and returns PlaceHolder.
func (x *Execution) degrade(owner, name, reason string) Value {
	x.logger.Debug("not modeled",
		zap.String("owner", owner),
		zap.String("op", name),
		zap.String("reason", reason),
	)
	return PlaceHolder
}

// malformed logs a malformed argument and returns PlaceHolder.
func (x *Execution) malformed(owner, name, format string, args ...interface{}) Value {
	err := &MalformedArgumentError{Owner: owner, Name: name, Msg: fmt.Sprintf(format, args...)}
	x.logger.Warn("malformed argument", zap.Error(err))
	return PlaceHolder
}

// Dump returns the contents of the execution as a string.
func (x *Execution) Dump() string {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "EXECUTION")
	fmt.Fprintln(&buf, "=========")
	fmt.Fprintf(&buf, "id=%s\n", x.id)
	fmt.Fprintf(&buf, "addr=%d\n", x.addrSeq)
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== INPUTS")
	for i, e := range x.store.Inputs() {
		fmt.Fprintf(&buf, "%d. %s %s = %s\n", i, e.Type, e.Name, spew.Sdump(e.Value))
		for _, expr := range e.HardConstraints {
			fmt.Fprintf(&buf, "  + HARD: %s\n", expr)
		}
	}
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== BUILDERS")
	for i := 0; i < x.arena.Len(); i++ {
		s, expr := x.arena.Get(BuilderHandle(i))
		fmt.Fprintf(&buf, "#%d %q %v\n", i, s, expr)
	}
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== TRACES")
	for _, h := range x.store.Traces() {
		fmt.Fprintf(&buf, "%016x iid=%d input=%s\n", h.Key(), h.IID(), h.Input().Name)
		for _, b := range h.Branches() {
			fmt.Fprintf(&buf, "  + BRANCH: edge=%d taken=%t %s\n", b.EdgeID, b.Taken, b.Formula)
		}
	}
	return buf.String()
}
