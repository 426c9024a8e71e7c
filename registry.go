package swat

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// Registry mints globally unique symbolic variable names. Counters are
// monotonic and are never reset between executions, so a registry may be
// shared by several engines.
type Registry struct {
	inputSeq  atomic.Uint64 // symbolic inputs
	helperSeq atomic.Uint64 // solver-internal helper variables
}

// NewRegistry returns a new instance of Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// SymbolicVariable represents a fresh, unconstrained program input.
type SymbolicVariable struct {
	Name    string
	Type    string
	Ordinal uint64
	Expr    *VarExpr
}

// FreshSymbolicInt returns a new symbolic int and registers it as an input of store.
func (r *Registry) FreshSymbolicInt(store *TraceStore, concrete int64) *SymbolicVariable {
	return r.FreshBoundedInt(store, concrete, math.MinInt32, math.MaxInt32)
}

// FreshBoundedInt returns a new symbolic int restricted to [lower, upper].
func (r *Registry) FreshBoundedInt(store *TraceStore, concrete, lower, upper int64) *SymbolicVariable {
	v := r.fresh("int", SortInt)
	elem := &InputElement{
		Name:       v.Name,
		Type:       v.Type,
		Value:      concrete,
		LowerBound: strconv.FormatInt(lower, 10),
		UpperBound: strconv.FormatInt(upper, 10),
	}
	elem.AddHardConstraint(NewBinaryExpr(AND,
		NewBinaryExpr(GE, v.Expr, NewConstantExpr(lower)),
		NewBinaryExpr(LE, v.Expr, NewConstantExpr(upper)),
	))
	store.AddInput(elem)
	return v
}

// FreshSymbolicChar returns a new symbolic char and registers it as an input of store.
func (r *Registry) FreshSymbolicChar(store *TraceStore, concrete rune) *SymbolicVariable {
	v := r.fresh("char", SortInt)
	elem := &InputElement{
		Name:       v.Name,
		Type:       v.Type,
		Value:      string(concrete),
		LowerBound: "0",
		UpperBound: strconv.Itoa(math.MaxUint16),
	}
	elem.AddHardConstraint(NewBinaryExpr(AND,
		NewBinaryExpr(GE, v.Expr, NewConstantExpr(0)),
		NewBinaryExpr(LE, v.Expr, NewConstantExpr(math.MaxUint16)),
	))
	store.AddInput(elem)
	return v
}

// FreshSymbolicBoolean returns a new symbolic boolean and registers it as an input of store.
func (r *Registry) FreshSymbolicBoolean(store *TraceStore, concrete bool) *SymbolicVariable {
	v := r.fresh("boolean", SortBool)
	store.AddInput(&InputElement{Name: v.Name, Type: v.Type, Value: concrete})
	return v
}

// FreshSymbolicString returns a new symbolic string and registers it as an
// input of store. The input starts with a baseline domain constraint.
func (r *Registry) FreshSymbolicString(store *TraceStore, concrete string) *SymbolicVariable {
	v := r.fresh("String", SortString)
	elem := &InputElement{Name: v.Name, Type: v.Type, Value: concrete}
	elem.AddHardConstraint(baselineStringConstraint(v.Expr))
	store.AddInput(elem)
	return v
}

// FreshHelperInt returns a new integer variable for solver-internal use.
// Helper variables are not program inputs and are never registered.
func (r *Registry) FreshHelperInt() *VarExpr {
	return NewVarExpr(fmt.Sprintf("I_%d", r.helperSeq.Add(1)), SortInt)
}

// FreshHelperArray returns a new array variable for solver-internal use.
func (r *Registry) FreshHelperArray(elem Sort) *ArrayExpr {
	return NewArrayExpr(fmt.Sprintf("A_%d", r.helperSeq.Add(1)), elem)
}

// Reset restarts both counters. Only a process-level boundary may call this;
// names minted before a reset may be reused afterward.
func (r *Registry) Reset() {
	r.inputSeq.Store(0)
	r.helperSeq.Store(0)
}

func (r *Registry) fresh(typ string, sort Sort) *SymbolicVariable {
	n := r.inputSeq.Add(1)
	name := fmt.Sprintf("%s_%d", typ, n)
	return &SymbolicVariable{Name: name, Type: typ, Ordinal: n, Expr: NewVarExpr(name, sort)}
}

// baselineStringConstraint returns len(s) >= 0 or a non-empty string that
// does not start with a NUL character.
func baselineStringConstraint(s Expr) Expr {
	length := NewUnaryExpr(LENGTH, s)
	firstNotNull := NewBinaryExpr(AND,
		NewBinaryExpr(NE, NewBinaryExpr(AT, s, NewConstantExpr(0)), NewStringConstantExpr("\x00")),
		NewBinaryExpr(GE, length, NewConstantExpr(1)),
	)
	return NewBinaryExpr(OR, &BinaryExpr{Op: LE, LHS: NewConstantExpr(0), RHS: length}, firstNotNull)
}
