//go:build z3

package z3

import (
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/dualtrace/swat"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
#include <stdio.h>
*/
import "C"

// Ensure solver implements interface.
var _ swat.Solver = (*Solver)(nil)

// Solver represents a solver that uses an embedded Z3 solver.
// Requires Z3 4.13 or later for the string theory operators.
type Solver struct {
	ctx   *Context
	stats Stats

	// Per-check timeout. Zero means no timeout.
	Timeout time.Duration
}

// NewSolver returns a new instance of Solver.
func NewSolver() (*Solver, error) {
	return &Solver{
		ctx: NewContext(),
	}, nil
}

// Close deletes the underlying Z3 context.
func (s *Solver) Close() error {
	return s.ctx.Close()
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	return s.stats
}

// NewProver returns a new incremental session on the solver's context.
func (s *Solver) NewProver() (swat.Prover, error) {
	raw := C.Z3_mk_solver(s.ctx.raw)
	if err := s.ctx.err("Z3_mk_solver"); err != nil {
		return nil, err
	}
	C.Z3_solver_inc_ref(s.ctx.raw, raw)

	if s.Timeout > 0 {
		if err := s.ctx.setTimeout(raw, s.Timeout); err != nil {
			C.Z3_solver_dec_ref(s.ctx.raw, raw)
			return nil, err
		}
	}

	s.stats.ProverN++
	return &Prover{solver: s, raw: raw}, nil
}

// Prover is an incremental Z3 solving session.
type Prover struct {
	solver *Solver
	raw    C.Z3_solver
	closed bool
}

// AddConstraint asserts a boolean expression.
func (p *Prover) AddConstraint(expr swat.Expr) error {
	if p.closed {
		return swat.ErrProverClosed
	}
	ctx := p.solver.ctx

	ast, err := ctx.toAST(expr)
	if err != nil {
		return err
	}
	C.Z3_solver_assert(ctx.raw, p.raw, ast)
	return ctx.err("Z3_solver_assert")
}

// IsUnsat returns true if the asserted constraints have no solution.
func (p *Prover) IsUnsat() (bool, error) {
	if p.closed {
		return false, swat.ErrProverClosed
	}
	ctx := p.solver.ctx

	t := time.Now()
	defer func() {
		p.solver.stats.CheckN++
		p.solver.stats.CheckTime += time.Since(t)
	}()

	// Check equations with the solver.
	// Exit immediately if unsatisfiable or the solver encountered an error.
	ret := C.Z3_solver_check(ctx.raw, p.raw)
	if err := ctx.err("Z3_solver_check"); err != nil {
		return false, err
	} else if ret == C.Z3_L_FALSE {
		return true, nil
	} else if ret == C.Z3_L_TRUE {
		return false, nil
	}

	reason := C.GoString(C.Z3_solver_get_reason_unknown(ctx.raw, p.raw))
	switch {
	case strings.Contains(reason, "timeout"):
		return false, swat.ErrSolverTimeout
	case strings.Contains(reason, "canceled"):
		return false, swat.ErrSolverCanceled
	case strings.Contains(reason, "(resource limits reached)"):
		return false, swat.ErrSolverResourceLimit
	case strings.Contains(reason, "unknown"):
		return false, swat.ErrSolverUnknown
	default:
		return false, fmt.Errorf("z3: %s", reason)
	}
}

// Close releases the session. Closing twice is a no-op.
func (p *Prover) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	C.Z3_solver_dec_ref(p.solver.ctx.raw, p.raw)
	return p.solver.ctx.err("Z3_solver_dec_ref")
}

// Context represents a Z3 context object that is used for constructing expressions.
type Context struct {
	raw C.Z3_context
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return nil
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

func (ctx *Context) setTimeout(solver C.Z3_solver, d time.Duration) error {
	params := C.Z3_mk_params(ctx.raw)
	C.Z3_params_inc_ref(ctx.raw, params)
	defer C.Z3_params_dec_ref(ctx.raw, params)

	key := C.CString("timeout")
	defer C.free(unsafe.Pointer(key))
	C.Z3_params_set_uint(ctx.raw, params, C.Z3_mk_string_symbol(ctx.raw, key), C.uint(d.Milliseconds()))
	C.Z3_solver_set_params(ctx.raw, solver, params)
	return ctx.err("Z3_solver_set_params")
}

// toAST returns a new instance of Z3_ast from an expression.
func (ctx *Context) toAST(expr swat.Expr) (C.Z3_ast, error) {
	switch expr := expr.(type) {
	case *swat.ConstantExpr:
		return ctx.toConstantAST(expr)
	case *swat.VarExpr:
		return ctx.makeConst(expr.Name, expr.Sort, 0)
	case *swat.ArrayExpr:
		return ctx.makeConst(expr.Name, swat.SortArray, expr.Elem)
	case *swat.NotExpr:
		return ctx.toNotAST(expr)
	case *swat.UnaryExpr:
		return ctx.toUnaryAST(expr)
	case *swat.BinaryExpr:
		return ctx.toBinaryAST(expr)
	case *swat.IteExpr:
		return ctx.toIteAST(expr)
	case *swat.SubstrExpr:
		return ctx.toSubstrAST(expr)
	case *swat.IndexOfExpr:
		return ctx.toIndexOfAST(expr)
	case *swat.ReplaceExpr:
		return ctx.toReplaceAST(expr)
	case *swat.StoreExpr:
		return ctx.toStoreAST(expr)
	case *swat.SelectExpr:
		return ctx.toSelectAST(expr)
	default:
		return nil, fmt.Errorf("z3.Context.toAST: invalid expression type: %T", expr)
	}
}

func (ctx *Context) toConstantAST(expr *swat.ConstantExpr) (C.Z3_ast, error) {
	switch expr.Sort {
	case swat.SortBool:
		if expr.IsTrue() {
			return C.Z3_mk_true(ctx.raw), ctx.err("Z3_mk_true")
		}
		return C.Z3_mk_false(ctx.raw), ctx.err("Z3_mk_false")
	case swat.SortInt:
		t, err := ctx.makeSort(swat.SortInt, 0)
		if err != nil {
			return nil, err
		}
		return C.Z3_mk_int64(ctx.raw, C.int64_t(expr.Value), t), ctx.err("Z3_mk_int64")
	case swat.SortString:
		cstr := C.CString(escapeString(expr.Str))
		defer C.free(unsafe.Pointer(cstr))
		return C.Z3_mk_string(ctx.raw, cstr), ctx.err("Z3_mk_string")
	default:
		return nil, fmt.Errorf("z3.Context.toConstantAST: invalid sort: %s", expr.Sort)
	}
}

func (ctx *Context) toNotAST(expr *swat.NotExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Expr)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_not(ctx.raw, src), ctx.err("Z3_mk_not")
}

func (ctx *Context) toUnaryAST(expr *swat.UnaryExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Expr)
	if err != nil {
		return nil, err
	}

	switch expr.Op {
	case swat.NEG:
		return C.Z3_mk_unary_minus(ctx.raw, src), ctx.err("Z3_mk_unary_minus")
	case swat.LENGTH:
		return C.Z3_mk_seq_length(ctx.raw, src), ctx.err("Z3_mk_seq_length")
	case swat.TOCODE:
		return C.Z3_mk_string_to_code(ctx.raw, src), ctx.err("Z3_mk_string_to_code")
	case swat.FROMCODE:
		return C.Z3_mk_string_from_code(ctx.raw, src), ctx.err("Z3_mk_string_from_code")
	case swat.TOINT:
		return C.Z3_mk_str_to_int(ctx.raw, src), ctx.err("Z3_mk_str_to_int")
	case swat.FROMINT:
		return C.Z3_mk_int_to_str(ctx.raw, src), ctx.err("Z3_mk_int_to_str")
	default:
		return nil, fmt.Errorf("z3.Context.toUnaryAST: unexpected operation: %s", expr.Op)
	}
}

func (ctx *Context) toBinaryAST(expr *swat.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	args := [2]C.Z3_ast{lhs, rhs}

	switch expr.Op {
	case swat.ADD:
		return C.Z3_mk_add(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_add")
	case swat.SUB:
		return C.Z3_mk_sub(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_sub")
	case swat.MUL:
		return C.Z3_mk_mul(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_mul")
	case swat.DIV:
		return C.Z3_mk_div(ctx.raw, lhs, rhs), ctx.err("Z3_mk_div")
	case swat.MOD:
		return C.Z3_mk_mod(ctx.raw, lhs, rhs), ctx.err("Z3_mk_mod")
	case swat.AND:
		return C.Z3_mk_and(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_and")
	case swat.OR:
		return C.Z3_mk_or(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_or")
	case swat.EQ:
		return C.Z3_mk_eq(ctx.raw, lhs, rhs), ctx.err("Z3_mk_eq")
	case swat.NE:
		return C.Z3_mk_distinct(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_distinct")
	case swat.LT:
		return C.Z3_mk_lt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_lt")
	case swat.LE:
		return C.Z3_mk_le(ctx.raw, lhs, rhs), ctx.err("Z3_mk_le")
	case swat.GT:
		return C.Z3_mk_gt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_gt")
	case swat.GE:
		return C.Z3_mk_ge(ctx.raw, lhs, rhs), ctx.err("Z3_mk_ge")
	case swat.CONCAT:
		return C.Z3_mk_seq_concat(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_seq_concat")
	case swat.CONTAINS:
		return C.Z3_mk_seq_contains(ctx.raw, lhs, rhs), ctx.err("Z3_mk_seq_contains")
	case swat.PREFIXOF:
		return C.Z3_mk_seq_prefix(ctx.raw, lhs, rhs), ctx.err("Z3_mk_seq_prefix")
	case swat.SUFFIXOF:
		return C.Z3_mk_seq_suffix(ctx.raw, lhs, rhs), ctx.err("Z3_mk_seq_suffix")
	case swat.AT:
		return C.Z3_mk_seq_at(ctx.raw, lhs, rhs), ctx.err("Z3_mk_seq_at")
	default:
		return nil, fmt.Errorf("z3.Context.toBinaryAST: unexpected operation: %s", expr.Op)
	}
}

func (ctx *Context) toIteAST(expr *swat.IteExpr) (C.Z3_ast, error) {
	args, err := ctx.toASTs(expr.Cond, expr.Then, expr.Else)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, args[0], args[1], args[2]), ctx.err("Z3_mk_ite")
}

func (ctx *Context) toSubstrAST(expr *swat.SubstrExpr) (C.Z3_ast, error) {
	args, err := ctx.toASTs(expr.Str, expr.Offset, expr.Length)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_seq_extract(ctx.raw, args[0], args[1], args[2]), ctx.err("Z3_mk_seq_extract")
}

func (ctx *Context) toIndexOfAST(expr *swat.IndexOfExpr) (C.Z3_ast, error) {
	args, err := ctx.toASTs(expr.Str, expr.Substr, expr.Offset)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_seq_index(ctx.raw, args[0], args[1], args[2]), ctx.err("Z3_mk_seq_index")
}

func (ctx *Context) toReplaceAST(expr *swat.ReplaceExpr) (C.Z3_ast, error) {
	args, err := ctx.toASTs(expr.Str, expr.Src, expr.Dst)
	if err != nil {
		return nil, err
	}
	if expr.All {
		return C.Z3_mk_seq_replace_all(ctx.raw, args[0], args[1], args[2]), ctx.err("Z3_mk_seq_replace_all")
	}
	return C.Z3_mk_seq_replace(ctx.raw, args[0], args[1], args[2]), ctx.err("Z3_mk_seq_replace")
}

func (ctx *Context) toStoreAST(expr *swat.StoreExpr) (C.Z3_ast, error) {
	args, err := ctx.toASTs(expr.Array, expr.Index, expr.Value)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_store(ctx.raw, args[0], args[1], args[2]), ctx.err("Z3_mk_store")
}

func (ctx *Context) toSelectAST(expr *swat.SelectExpr) (C.Z3_ast, error) {
	args, err := ctx.toASTs(expr.Array, expr.Index)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_select(ctx.raw, args[0], args[1]), ctx.err("Z3_mk_select")
}

// toASTs converts each expression in order.
func (ctx *Context) toASTs(exprs ...swat.Expr) ([]C.Z3_ast, error) {
	a := make([]C.Z3_ast, len(exprs))
	for i, expr := range exprs {
		ast, err := ctx.toAST(expr)
		if err != nil {
			return nil, err
		}
		a[i] = ast
	}
	return a, nil
}

// makeSort returns the Z3 sort for a sort. Arrays map Int to elem.
func (ctx *Context) makeSort(sort, elem swat.Sort) (C.Z3_sort, error) {
	switch sort {
	case swat.SortBool:
		return C.Z3_mk_bool_sort(ctx.raw), ctx.err("Z3_mk_bool_sort")
	case swat.SortInt:
		return C.Z3_mk_int_sort(ctx.raw), ctx.err("Z3_mk_int_sort")
	case swat.SortString:
		return C.Z3_mk_string_sort(ctx.raw), ctx.err("Z3_mk_string_sort")
	case swat.SortArray:
		domain, err := ctx.makeSort(swat.SortInt, 0)
		if err != nil {
			return nil, err
		}
		rng, err := ctx.makeSort(elem, 0)
		if err != nil {
			return nil, err
		}
		return C.Z3_mk_array_sort(ctx.raw, domain, rng), ctx.err("Z3_mk_array_sort")
	default:
		return nil, fmt.Errorf("z3.Context.makeSort: invalid sort: %s", sort)
	}
}

// makeConst returns the named constant of the given sort.
func (ctx *Context) makeConst(name string, sort, elem swat.Sort) (C.Z3_ast, error) {
	t, err := ctx.makeSort(sort, elem)
	if err != nil {
		return nil, err
	}

	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	nameSymbol := C.Z3_mk_string_symbol(ctx.raw, cname)

	return C.Z3_mk_const(ctx.raw, nameSymbol, t), ctx.err("Z3_mk_const")
}

func (ctx *Context) astToString(ast C.Z3_ast) string {
	return C.GoString(C.Z3_ast_to_string(ctx.raw, ast))
}

// escapeString returns s in the escaped form accepted by Z3_mk_string.
func escapeString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r == '\\' || r < 0x20 || r > 0x7E {
			fmt.Fprintf(&sb, `\u{%x}`, r)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Possible error codes.
const (
	ErrorCodeOK = iota
	ErrorCodeSortError
	ErrorCodeIOB
	ErrorCodeInvalidArg
	ErrorCodeParserError
	ErrorCodeNoParser
	ErrorCodeInvalidPattern
	ErrorCodeMemoutFail
	ErrorCodeFileAccessError
	ErrorCodeInternalFatal
	ErrorCodeInvalidUsage
	ErrorCodeDecRefError
	ErrorCodeException
)

// Stats holds counters for solver usage.
type Stats struct {
	ProverN   int
	CheckN    int
	CheckTime time.Duration
}
