package swat

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// Sort represents the theory sort of an expression.
type Sort int

// Expression sorts.
const (
	SortBool Sort = iota + 1
	SortInt
	SortString
	SortArray
)

var sorts = [...]string{
	SortBool:   "Bool",
	SortInt:    "Int",
	SortString: "String",
	SortArray:  "Array",
}

// String returns the SMT-LIB name of the sort.
func (s Sort) String() string {
	if s >= 0 && s < Sort(len(sorts)) && sorts[s] != "" {
		return sorts[s]
	}
	return fmt.Sprintf("Sort<%d>", s)
}

// MaxCodePoint is the largest character code point of the string theory.
const MaxCodePoint = 0x2FFFF

// Expr represents a symbolic expression.
type Expr interface {
	expr()
	String() string
}

func (*ArrayExpr) expr()    {}
func (*BinaryExpr) expr()   {}
func (*ConstantExpr) expr() {}
func (*IndexOfExpr) expr()  {}
func (*IteExpr) expr()      {}
func (*NotExpr) expr()      {}
func (*ReplaceExpr) expr()  {}
func (*SelectExpr) expr()   {}
func (*StoreExpr) expr()    {}
func (*SubstrExpr) expr()   {}
func (*UnaryExpr) expr()    {}
func (*VarExpr) expr()      {}

// ExprSort returns the sort of the expression.
func ExprSort(expr Expr) Sort {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr.Sort
	case *VarExpr:
		return expr.Sort
	case *ArrayExpr, *StoreExpr:
		return SortArray
	case *SelectExpr:
		return ArrayElemSort(expr.Array)
	case *UnaryExpr:
		switch expr.Op {
		case FROMCODE, FROMINT:
			return SortString
		default:
			return SortInt
		}
	case *BinaryExpr:
		if expr.Op.IsArithmetic() {
			return SortInt
		} else if expr.Op == CONCAT || expr.Op == AT {
			return SortString
		}
		return SortBool
	case *NotExpr:
		return SortBool
	case *IteExpr:
		return ExprSort(expr.Then)
	case *SubstrExpr, *ReplaceExpr:
		return SortString
	case *IndexOfExpr:
		return SortInt
	default:
		panic("unreachable")
	}
}

// ArrayElemSort returns the element sort of an array-sorted expression.
func ArrayElemSort(expr Expr) Sort {
	for {
		switch e := expr.(type) {
		case *ArrayExpr:
			return e.Elem
		case *StoreExpr:
			expr = e.Array
		default:
			panic(fmt.Sprintf("not an array expression: %T", expr))
		}
	}
}

// UnaryOp represents a unary expression operation.
type UnaryOp int

// UnaryExpr operations.
const (
	NEG UnaryOp = iota + 1
	LENGTH
	TOCODE
	FROMCODE
	TOINT
	FROMINT
)

var unaryOps = [...]string{
	NEG:      "-",
	LENGTH:   "str.len",
	TOCODE:   "str.to_code",
	FROMCODE: "str.from_code",
	TOINT:    "str.to_int",
	FROMINT:  "str.from_int",
}

// String returns the SMT-LIB name of the operation.
func (op UnaryOp) String() string {
	if op >= 0 && op < UnaryOp(len(unaryOps)) && unaryOps[op] != "" {
		return unaryOps[op]
	}
	return fmt.Sprintf("UnaryOp<%d>", op)
}

// UnaryExpr represents an operation on a single expression.
type UnaryExpr struct {
	Op   UnaryOp
	Expr Expr
}

// NewUnaryExpr returns a new, simplified unary expression.
func NewUnaryExpr(op UnaryOp, expr Expr) Expr {
	switch op {
	case NEG:
		return newNegExpr(expr)
	case LENGTH:
		return newLengthExpr(expr)
	case TOCODE:
		if c, ok := expr.(*ConstantExpr); ok {
			return NewConstantExpr(strToCode(c.Str))
		}
	case FROMCODE:
		if c, ok := expr.(*ConstantExpr); ok {
			return NewStringConstantExpr(strFromCode(c.Value))
		}
	case TOINT:
		if c, ok := expr.(*ConstantExpr); ok {
			return NewConstantExpr(strToInt(c.Str))
		}
	case FROMINT:
		if c, ok := expr.(*ConstantExpr); ok {
			return NewStringConstantExpr(strFromInt(c.Value))
		}
	default:
		panic("unreachable")
	}
	return &UnaryExpr{Op: op, Expr: expr}
}

// String returns the string representation of the expression.
func (e *UnaryExpr) String() string {
	return fmt.Sprintf("(%s %s)", e.Op, e.Expr)
}

func newNegExpr(expr Expr) Expr {
	if c, ok := expr.(*ConstantExpr); ok {
		return NewConstantExpr(-c.Value)
	} else if e, ok := expr.(*UnaryExpr); ok && e.Op == NEG {
		return e.Expr
	}
	return &UnaryExpr{Op: NEG, Expr: expr}
}

func newLengthExpr(expr Expr) Expr {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return NewConstantExpr(int64(utf8.RuneCountInString(expr.Str)))
	case *BinaryExpr:
		if expr.Op == CONCAT {
			return NewBinaryExpr(ADD, newLengthExpr(expr.LHS), newLengthExpr(expr.RHS))
		}
	}
	return &UnaryExpr{Op: LENGTH, Expr: expr}
}

// BinaryOp represents a binary expression operation.
type BinaryOp int

// BinaryExpr operations.
const (
	arithmetic_op_begin = BinaryOp(iota)
	ADD
	SUB
	MUL
	DIV
	MOD
	arithmetic_op_end

	logical_op_begin
	AND
	OR
	logical_op_end

	compare_op_begin
	EQ
	NE
	LT
	LE
	GT
	GE
	compare_op_end

	string_op_begin
	CONCAT
	CONTAINS
	PREFIXOF
	SUFFIXOF
	AT
	string_op_end
)

var binaryOps = [...]string{
	ADD:      "+",
	SUB:      "-",
	MUL:      "*",
	DIV:      "div",
	MOD:      "mod",
	AND:      "and",
	OR:       "or",
	EQ:       "=",
	NE:       "distinct",
	LT:       "<",
	LE:       "<=",
	GT:       ">",
	GE:       ">=",
	CONCAT:   "str.++",
	CONTAINS: "str.contains",
	PREFIXOF: "str.prefixof",
	SUFFIXOF: "str.suffixof",
	AT:       "str.at",
}

// String returns the SMT-LIB name of the operation.
func (op BinaryOp) String() string {
	if op >= 0 && op < BinaryOp(len(binaryOps)) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// IsArithmetic returns true if op is an integer arithmetic operator.
func (op BinaryOp) IsArithmetic() bool {
	return op > arithmetic_op_begin && op < arithmetic_op_end
}

// IsLogical returns true if op is a boolean connective.
func (op BinaryOp) IsLogical() bool {
	return op > logical_op_begin && op < logical_op_end
}

// IsCompare returns true if op is a comparison operator.
func (op BinaryOp) IsCompare() bool {
	return op > compare_op_begin && op < compare_op_end
}

// IsString returns true if op is a string theory operator.
func (op BinaryOp) IsString() bool {
	return op > string_op_begin && op < string_op_end
}

// BinaryExpr represents an operation on two expressions.
type BinaryExpr struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

// NewBinaryExpr returns a new, simplified binary expression.
func NewBinaryExpr(op BinaryOp, lhs, rhs Expr) Expr {
	switch op {
	case ADD:
		return newAddExpr(lhs, rhs)
	case SUB:
		return newSubExpr(lhs, rhs)
	case MUL:
		return newMulExpr(lhs, rhs)
	case DIV, MOD:
		return newDivExpr(op, lhs, rhs)

	case AND:
		return newAndExpr(lhs, rhs)
	case OR:
		return newOrExpr(lhs, rhs)

	case EQ:
		return newEqExpr(lhs, rhs)
	case NE:
		return NewNotExpr(newEqExpr(lhs, rhs))
	case LT:
		return newLtExpr(lhs, rhs)
	case GT:
		return newLtExpr(rhs, lhs) // reverse
	case LE:
		return newLeExpr(lhs, rhs)
	case GE:
		return newLeExpr(rhs, lhs) // reverse

	case CONCAT:
		return newConcatExpr(lhs, rhs)
	case CONTAINS:
		return newContainsExpr(lhs, rhs)
	case PREFIXOF, SUFFIXOF:
		return newAffixExpr(op, lhs, rhs)
	case AT:
		return NewSubstrExpr(lhs, rhs, NewConstantExpr(1))

	default:
		panic("unreachable")
	}
}

// String returns the string representation of the expression.
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS, e.RHS)
}

// newAddExpr returns the expression representing the sum of lhs & rhs.
func newAddExpr(lhs, rhs Expr) Expr {
	// Move constant expression to left hand side.
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.Value == 0 {
			return rhs
		} else if rhs, ok := rhs.(*ConstantExpr); ok {
			return NewConstantExpr(lhs.Value + rhs.Value)
		}

		// X + (Y+z) == (X+Y) + z
		if rhs, ok := rhs.(*BinaryExpr); ok && rhs.Op == ADD && IsConstantExpr(rhs.LHS) {
			return NewBinaryExpr(ADD, NewBinaryExpr(ADD, lhs, rhs.LHS), rhs.RHS)
		}
	}

	// (X+y) + z = X + (y+z)
	if lhs, ok := lhs.(*BinaryExpr); ok && lhs.Op == ADD && IsConstantExpr(lhs.LHS) {
		return NewBinaryExpr(ADD, lhs.LHS, NewBinaryExpr(ADD, lhs.RHS, rhs))
	}

	// a + (K+b) = K + (a+b)
	if rhs, ok := rhs.(*BinaryExpr); ok && rhs.Op == ADD && IsConstantExpr(rhs.LHS) {
		return NewBinaryExpr(ADD, rhs.LHS, NewBinaryExpr(ADD, lhs, rhs.RHS))
	}

	return &BinaryExpr{Op: ADD, LHS: lhs, RHS: rhs}
}

// newSubExpr returns an expression representing the difference of lhs & rhs.
func newSubExpr(lhs, rhs Expr) Expr {
	// Subtracting a value from itself is zero.
	if CompareExpr(lhs, rhs) == 0 {
		return NewConstantExpr(0)
	}

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return NewConstantExpr(lhs.Value - rhs.Value)
		}
	}

	// If constant is on right side, refactor to addition of its negation.
	if rhs, ok := rhs.(*ConstantExpr); ok {
		return NewBinaryExpr(ADD, NewConstantExpr(-rhs.Value), lhs)
	}

	return &BinaryExpr{Op: SUB, LHS: lhs, RHS: rhs}
}

// newMulExpr returns an expression that represents the product of lhs & rhs.
func newMulExpr(lhs, rhs Expr) Expr {
	if IsConstantExpr(rhs) && !IsConstantExpr(lhs) {
		lhs, rhs = rhs, lhs
	}

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return NewConstantExpr(lhs.Value * rhs.Value)
		} else if lhs.Value == 1 {
			return rhs
		} else if lhs.Value == 0 {
			return lhs
		}
	}
	return &BinaryExpr{Op: MUL, LHS: lhs, RHS: rhs}
}

// newDivExpr returns the euclidean quotient or remainder of lhs & rhs.
// Division by a constant zero is left unevaluated.
func newDivExpr(op BinaryOp, lhs, rhs Expr) Expr {
	assert(op == DIV || op == MOD, "invalid div op: %s", op)

	if rhs, ok := rhs.(*ConstantExpr); ok && rhs.Value != 0 {
		if lhs, ok := lhs.(*ConstantExpr); ok {
			if op == DIV {
				return NewConstantExpr(euclidDiv(lhs.Value, rhs.Value))
			}
			return NewConstantExpr(euclidMod(lhs.Value, rhs.Value))
		}
		if rhs.Value == 1 {
			if op == DIV {
				return lhs
			}
			return NewConstantExpr(0)
		}
	}
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

// newAndExpr returns the conjunction of lhs & rhs.
func newAndExpr(lhs, rhs Expr) Expr {
	// If constant is on left side, swap to right side.
	if IsConstantExpr(lhs) && !IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if rhs, ok := rhs.(*ConstantExpr); ok {
		if rhs.IsTrue() {
			return lhs
		}
		return rhs
	}
	if CompareExpr(lhs, rhs) == 0 {
		return lhs
	}
	return &BinaryExpr{Op: AND, LHS: lhs, RHS: rhs}
}

// newOrExpr returns the disjunction of lhs & rhs.
func newOrExpr(lhs, rhs Expr) Expr {
	if IsConstantExpr(lhs) && !IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if rhs, ok := rhs.(*ConstantExpr); ok {
		if rhs.IsTrue() {
			return rhs
		}
		return lhs
	}
	if CompareExpr(lhs, rhs) == 0 {
		return lhs
	}
	return &BinaryExpr{Op: OR, LHS: lhs, RHS: rhs}
}

// newEqExpr returns an equality expression of lhs & rhs.
func newEqExpr(lhs, rhs Expr) Expr {
	assert(ExprSort(lhs) == ExprSort(rhs), "eq sort mismatch: %s != %s", ExprSort(lhs), ExprSort(rhs))

	// Identical expressions are always equal.
	if CompareExpr(lhs, rhs) == 0 {
		return NewBoolConstantExpr(true)
	}

	// Move constant expression to left hand side.
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return NewBoolConstantExpr(compareConstantExpr(lhs, rhs) == 0)
		}

		// Boolean equality with a constant is the expression or its negation.
		if lhs.Sort == SortBool {
			if lhs.IsTrue() {
				return rhs
			}
			return NewNotExpr(rhs)
		}
	}
	return &BinaryExpr{Op: EQ, LHS: lhs, RHS: rhs}
}

// newLtExpr returns an expression that is true if lhs is less than rhs.
func newLtExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return NewBoolConstantExpr(lhs.Value < rhs.Value)
		}
	}
	if CompareExpr(lhs, rhs) == 0 {
		return NewBoolConstantExpr(false)
	}
	return &BinaryExpr{Op: LT, LHS: lhs, RHS: rhs}
}

// newLeExpr returns an expression that is true if lhs is less than or equal to rhs.
func newLeExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return NewBoolConstantExpr(lhs.Value <= rhs.Value)
		}
	}
	if CompareExpr(lhs, rhs) == 0 {
		return NewBoolConstantExpr(true)
	}

	// Length of any string is never negative.
	if lhs, ok := lhs.(*ConstantExpr); ok && lhs.Value <= 0 {
		if rhs, ok := rhs.(*UnaryExpr); ok && rhs.Op == LENGTH {
			return NewBoolConstantExpr(true)
		}
	}
	return &BinaryExpr{Op: LE, LHS: lhs, RHS: rhs}
}

// newConcatExpr returns the concatenation of lhs & rhs.
func newConcatExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.Str == "" {
			return rhs
		} else if rhs, ok := rhs.(*ConstantExpr); ok {
			return NewStringConstantExpr(lhs.Str + rhs.Str)
		}
	}

	if rhs, ok := rhs.(*ConstantExpr); ok {
		if rhs.Str == "" {
			return lhs
		}

		// (a ++ "X") ++ "Y" == a ++ "XY"
		if lhs, ok := lhs.(*BinaryExpr); ok && lhs.Op == CONCAT {
			if k, ok := lhs.RHS.(*ConstantExpr); ok {
				return NewBinaryExpr(CONCAT, lhs.LHS, NewStringConstantExpr(k.Str+rhs.Str))
			}
		}
	}
	return &BinaryExpr{Op: CONCAT, LHS: lhs, RHS: rhs}
}

// newContainsExpr returns an expression that is true if rhs occurs within lhs.
func newContainsExpr(lhs, rhs Expr) Expr {
	if rhs, ok := rhs.(*ConstantExpr); ok {
		if rhs.Str == "" {
			return NewBoolConstantExpr(true)
		} else if lhs, ok := lhs.(*ConstantExpr); ok {
			return NewBoolConstantExpr(strings.Contains(lhs.Str, rhs.Str))
		}
	}
	if CompareExpr(lhs, rhs) == 0 {
		return NewBoolConstantExpr(true)
	}
	return &BinaryExpr{Op: CONTAINS, LHS: lhs, RHS: rhs}
}

// newAffixExpr returns an expression that is true if lhs is a prefix or suffix of rhs.
func newAffixExpr(op BinaryOp, lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.Str == "" {
			return NewBoolConstantExpr(true)
		} else if rhs, ok := rhs.(*ConstantExpr); ok {
			if op == PREFIXOF {
				return NewBoolConstantExpr(strings.HasPrefix(rhs.Str, lhs.Str))
			}
			return NewBoolConstantExpr(strings.HasSuffix(rhs.Str, lhs.Str))
		}
	}
	if CompareExpr(lhs, rhs) == 0 {
		return NewBoolConstantExpr(true)
	}
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

// NotExpr represents a boolean negation.
type NotExpr struct {
	Expr Expr
}

// NewNotExpr returns the negation of expr.
func NewNotExpr(expr Expr) Expr {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return NewBoolConstantExpr(!expr.IsTrue())
	case *NotExpr:
		return expr.Expr
	}
	return &NotExpr{Expr: expr}
}

// String returns the string representation of the expression.
func (e *NotExpr) String() string {
	return fmt.Sprintf("(not %s)", e.Expr)
}

// IteExpr represents an if-then-else expression.
type IteExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

// NewIteExpr returns a new if-then-else expression.
func NewIteExpr(cond, then, els Expr) Expr {
	assert(ExprSort(then) == ExprSort(els), "ite sort mismatch: %s != %s", ExprSort(then), ExprSort(els))

	if cond, ok := cond.(*ConstantExpr); ok {
		if cond.IsTrue() {
			return then
		}
		return els
	}
	if CompareExpr(then, els) == 0 {
		return then
	}
	if IsConstantTrue(then) && IsConstantFalse(els) {
		return cond
	} else if IsConstantFalse(then) && IsConstantTrue(els) {
		return NewNotExpr(cond)
	}
	if cond, ok := cond.(*NotExpr); ok {
		return NewIteExpr(cond.Expr, els, then)
	}
	return &IteExpr{Cond: cond, Then: then, Else: els}
}

// String returns the string representation of the expression.
func (e *IteExpr) String() string {
	return fmt.Sprintf("(ite %s %s %s)", e.Cond, e.Then, e.Else)
}

// SubstrExpr represents the substring of Str starting at Offset with at most Length characters.
type SubstrExpr struct {
	Str    Expr
	Offset Expr
	Length Expr
}

// NewSubstrExpr returns a new substring expression.
func NewSubstrExpr(s, offset, length Expr) Expr {
	if s, ok := s.(*ConstantExpr); ok && s.Str == "" {
		return s
	}
	if s, ok := s.(*ConstantExpr); ok {
		if offset, ok := offset.(*ConstantExpr); ok {
			if length, ok := length.(*ConstantExpr); ok {
				return NewStringConstantExpr(strSubstr(s.Str, offset.Value, length.Value))
			}
		}
	}
	if length, ok := length.(*ConstantExpr); ok && length.Value <= 0 {
		return NewStringConstantExpr("")
	}
	return &SubstrExpr{Str: s, Offset: offset, Length: length}
}

// String returns the string representation of the expression.
func (e *SubstrExpr) String() string {
	return fmt.Sprintf("(str.substr %s %s %s)", e.Str, e.Offset, e.Length)
}

// IndexOfExpr represents the index of the first occurrence of Substr in Str at or after Offset.
type IndexOfExpr struct {
	Str    Expr
	Substr Expr
	Offset Expr
}

// NewIndexOfExpr returns a new index-of expression.
func NewIndexOfExpr(s, substr, offset Expr) Expr {
	if s, ok := s.(*ConstantExpr); ok {
		if substr, ok := substr.(*ConstantExpr); ok {
			if offset, ok := offset.(*ConstantExpr); ok {
				return NewConstantExpr(strIndexOf(s.Str, substr.Str, offset.Value))
			}
		}
	}
	return &IndexOfExpr{Str: s, Substr: substr, Offset: offset}
}

// String returns the string representation of the expression.
func (e *IndexOfExpr) String() string {
	return fmt.Sprintf("(str.indexof %s %s %s)", e.Str, e.Substr, e.Offset)
}

// ReplaceExpr represents replacing Src with Dst in Str.
// Only the first occurrence is replaced unless All is set.
type ReplaceExpr struct {
	Str Expr
	Src Expr
	Dst Expr
	All bool
}

// NewReplaceExpr returns a new replace expression.
func NewReplaceExpr(s, src, dst Expr, all bool) Expr {
	if CompareExpr(src, dst) == 0 {
		return s
	}
	if s, ok := s.(*ConstantExpr); ok {
		if src, ok := src.(*ConstantExpr); ok {
			if dst, ok := dst.(*ConstantExpr); ok {
				if all {
					return NewStringConstantExpr(strReplaceAll(s.Str, src.Str, dst.Str))
				}
				return NewStringConstantExpr(strReplace(s.Str, src.Str, dst.Str))
			}
		}
	}
	return &ReplaceExpr{Str: s, Src: src, Dst: dst, All: all}
}

// String returns the string representation of the expression.
func (e *ReplaceExpr) String() string {
	if e.All {
		return fmt.Sprintf("(str.replace_all %s %s %s)", e.Str, e.Src, e.Dst)
	}
	return fmt.Sprintf("(str.replace %s %s %s)", e.Str, e.Src, e.Dst)
}

// ArrayExpr represents an unconstrained array from Int to the element sort.
type ArrayExpr struct {
	Name string
	Elem Sort
}

// NewArrayExpr returns a new named array expression.
func NewArrayExpr(name string, elem Sort) *ArrayExpr {
	return &ArrayExpr{Name: name, Elem: elem}
}

// String returns the array name.
func (e *ArrayExpr) String() string { return e.Name }

// StoreExpr represents an array with a single index updated.
type StoreExpr struct {
	Array Expr
	Index Expr
	Value Expr
}

// NewStoreExpr returns a new array store expression.
func NewStoreExpr(array, index, value Expr) Expr {
	assert(ExprSort(array) == SortArray, "store into non-array: %s", ExprSort(array))
	assert(ArrayElemSort(array) == ExprSort(value), "store sort mismatch: %s != %s", ArrayElemSort(array), ExprSort(value))
	return &StoreExpr{Array: array, Index: index, Value: value}
}

// String returns the string representation of the expression.
func (e *StoreExpr) String() string {
	return fmt.Sprintf("(store %s %s %s)", e.Array, e.Index, e.Value)
}

// SelectExpr represents reading a single element from an array.
type SelectExpr struct {
	Array Expr
	Index Expr
}

// NewSelectExpr returns an expression reading index from array.
//
// Attempts to find the stored value by traversing the update history.
// Falls back to a select expression if either the selected index or an
// update's index is symbolic.
func NewSelectExpr(array, index Expr) Expr {
	for upd, ok := array.(*StoreExpr); ok; upd, ok = upd.Array.(*StoreExpr) {
		cond, ok := NewBinaryExpr(EQ, index, upd.Index).(*ConstantExpr)
		if !ok {
			break // found symbolic index, exit
		} else if cond.IsTrue() {
			return upd.Value
		}
	}
	return &SelectExpr{Array: array, Index: index}
}

// String returns the string representation of the expression.
func (e *SelectExpr) String() string {
	return fmt.Sprintf("(select %s %s)", e.Array, e.Index)
}

// VarExpr represents a named symbolic variable.
type VarExpr struct {
	Name string
	Sort Sort
}

// NewVarExpr returns a new variable expression.
func NewVarExpr(name string, sort Sort) *VarExpr {
	return &VarExpr{Name: name, Sort: sort}
}

// String returns the variable name.
func (e *VarExpr) String() string { return e.Name }

// ConstantExpr represents a constant boolean, integer or string.
type ConstantExpr struct {
	Sort  Sort
	Value int64  // boolean & integer value
	Str   string // string value
}

// NewConstantExpr returns a new integer constant.
func NewConstantExpr(value int64) *ConstantExpr {
	return &ConstantExpr{Sort: SortInt, Value: value}
}

// NewBoolConstantExpr returns a new boolean constant.
func NewBoolConstantExpr(value bool) *ConstantExpr {
	if value {
		return &ConstantExpr{Sort: SortBool, Value: 1}
	}
	return &ConstantExpr{Sort: SortBool, Value: 0}
}

// NewStringConstantExpr returns a new string constant.
func NewStringConstantExpr(value string) *ConstantExpr {
	return &ConstantExpr{Sort: SortString, Str: value}
}

// String returns the SMT-LIB literal of the constant.
func (e *ConstantExpr) String() string {
	switch e.Sort {
	case SortBool:
		if e.IsTrue() {
			return "true"
		}
		return "false"
	case SortString:
		return QuoteString(e.Str)
	default:
		if e.Value < 0 {
			return fmt.Sprintf("(- %d)", -e.Value)
		}
		return strconv.FormatInt(e.Value, 10)
	}
}

// IsTrue returns true if the expression is a constant boolean true.
func (e *ConstantExpr) IsTrue() bool {
	return e.Sort == SortBool && e.Value != 0
}

// IsFalse returns true if the expression is a constant boolean false.
func (e *ConstantExpr) IsFalse() bool {
	return e.Sort == SortBool && e.Value == 0
}

// IsConstantExpr returns true if expr is a *ConstantExpr.
func IsConstantExpr(expr Expr) bool {
	_, ok := expr.(*ConstantExpr)
	return ok
}

// IsConstantTrue returns true if expr is a constant boolean true.
func IsConstantTrue(expr Expr) bool {
	e, ok := expr.(*ConstantExpr)
	return ok && e.IsTrue()
}

// IsConstantFalse returns true if expr is a constant boolean false.
func IsConstantFalse(expr Expr) bool {
	e, ok := expr.(*ConstantExpr)
	return ok && e.IsFalse()
}

// QuoteString returns s as an SMT-LIB 2.6 string literal.
// Non-printable characters and backslashes use \u{...} escapes.
func QuoteString(s string) string {
	var buf bytes.Buffer
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`""`)
		case r == '\\' || r < 0x20 || r > 0x7E:
			fmt.Fprintf(&buf, `\u{%x}`, r)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
	return buf.String()
}

// NewAndExpr returns the conjunction of all exprs. Returns true if empty.
func NewAndExpr(exprs ...Expr) Expr {
	var result Expr = NewBoolConstantExpr(true)
	for _, expr := range exprs {
		result = NewBinaryExpr(AND, result, expr)
	}
	return result
}

// NewOrExpr returns the disjunction of all exprs. Returns false if empty.
func NewOrExpr(exprs ...Expr) Expr {
	var result Expr = NewBoolConstantExpr(false)
	for _, expr := range exprs {
		result = NewBinaryExpr(OR, result, expr)
	}
	return result
}

// Conjuncts splits a conjunction into its individual terms.
func Conjuncts(expr Expr) []Expr {
	if expr, ok := expr.(*BinaryExpr); ok && expr.Op == AND {
		return append(Conjuncts(expr.LHS), Conjuncts(expr.RHS)...)
	}
	return []Expr{expr}
}

// Simplify returns an equivalent expression rebuilt through the simplifying
// constructors. Conjunctions are flattened and duplicate terms removed.
func Simplify(expr Expr) Expr {
	switch expr := expr.(type) {
	case *ConstantExpr, *VarExpr, *ArrayExpr:
		return expr
	case *UnaryExpr:
		return NewUnaryExpr(expr.Op, Simplify(expr.Expr))
	case *BinaryExpr:
		if expr.Op == AND {
			return simplifyAnd(expr)
		}
		return NewBinaryExpr(expr.Op, Simplify(expr.LHS), Simplify(expr.RHS))
	case *NotExpr:
		return NewNotExpr(Simplify(expr.Expr))
	case *IteExpr:
		return NewIteExpr(Simplify(expr.Cond), Simplify(expr.Then), Simplify(expr.Else))
	case *SubstrExpr:
		return NewSubstrExpr(Simplify(expr.Str), Simplify(expr.Offset), Simplify(expr.Length))
	case *IndexOfExpr:
		return NewIndexOfExpr(Simplify(expr.Str), Simplify(expr.Substr), Simplify(expr.Offset))
	case *ReplaceExpr:
		return NewReplaceExpr(Simplify(expr.Str), Simplify(expr.Src), Simplify(expr.Dst), expr.All)
	case *StoreExpr:
		return NewStoreExpr(Simplify(expr.Array), Simplify(expr.Index), Simplify(expr.Value))
	case *SelectExpr:
		return NewSelectExpr(Simplify(expr.Array), Simplify(expr.Index))
	default:
		panic("unreachable")
	}
}

func simplifyAnd(expr *BinaryExpr) Expr {
	var terms []Expr
	for _, term := range Conjuncts(expr) {
		term = Simplify(term)
		if IsConstantFalse(term) {
			return term
		}
		for _, t := range Conjuncts(term) {
			if IsConstantTrue(t) || containsExpr(terms, t) {
				continue
			}
			terms = append(terms, t)
		}
	}
	return NewAndExpr(terms...)
}

func containsExpr(a []Expr, expr Expr) bool {
	for _, other := range a {
		if CompareExpr(other, expr) == 0 {
			return true
		}
	}
	return false
}

// HashExpr returns a 64-bit hash of the expression's textual form.
func HashExpr(expr Expr) uint64 {
	if expr == nil {
		return 0
	}
	return xxhash.Sum64String(expr.String())
}

// CompareExpr returns an integer comparing two expressions.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareExpr(a, b Expr) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == nil && b == nil {
		return 0
	} else if a == b {
		return 0
	}

	if ak, bk := exprKind(a), exprKind(b); ak < bk {
		return -1
	} else if ak > bk {
		return 1
	}

	switch a := a.(type) {
	case *ConstantExpr:
		return compareConstantExpr(a, b.(*ConstantExpr))
	case *VarExpr:
		b := b.(*VarExpr)
		if cmp := compareInt(int64(a.Sort), int64(b.Sort)); cmp != 0 {
			return cmp
		}
		return strings.Compare(a.Name, b.Name)
	case *ArrayExpr:
		b := b.(*ArrayExpr)
		if cmp := compareInt(int64(a.Elem), int64(b.Elem)); cmp != 0 {
			return cmp
		}
		return strings.Compare(a.Name, b.Name)
	case *UnaryExpr:
		b := b.(*UnaryExpr)
		if cmp := compareInt(int64(a.Op), int64(b.Op)); cmp != 0 {
			return cmp
		}
		return CompareExpr(a.Expr, b.Expr)
	case *BinaryExpr:
		return compareBinaryExpr(a, b.(*BinaryExpr))
	case *NotExpr:
		return CompareExpr(a.Expr, b.(*NotExpr).Expr)
	case *IteExpr:
		b := b.(*IteExpr)
		return compareExprs(a.Cond, b.Cond, a.Then, b.Then, a.Else, b.Else)
	case *SubstrExpr:
		b := b.(*SubstrExpr)
		return compareExprs(a.Str, b.Str, a.Offset, b.Offset, a.Length, b.Length)
	case *IndexOfExpr:
		b := b.(*IndexOfExpr)
		return compareExprs(a.Str, b.Str, a.Substr, b.Substr, a.Offset, b.Offset)
	case *ReplaceExpr:
		b := b.(*ReplaceExpr)
		if a.All != b.All {
			if !a.All {
				return -1
			}
			return 1
		}
		return compareExprs(a.Str, b.Str, a.Src, b.Src, a.Dst, b.Dst)
	case *StoreExpr:
		b := b.(*StoreExpr)
		return compareExprs(a.Array, b.Array, a.Index, b.Index, a.Value, b.Value)
	case *SelectExpr:
		b := b.(*SelectExpr)
		return compareExprs(a.Array, b.Array, a.Index, b.Index)
	default:
		panic("unreachable")
	}
}

// compareExprs compares pairs of expressions in order until one differs.
func compareExprs(pairs ...Expr) int {
	for i := 0; i+1 < len(pairs); i += 2 {
		if cmp := CompareExpr(pairs[i], pairs[i+1]); cmp != 0 {
			return cmp
		}
	}
	return 0
}

func compareConstantExpr(a, b *ConstantExpr) int {
	if cmp := compareInt(int64(a.Sort), int64(b.Sort)); cmp != 0 {
		return cmp
	}
	if cmp := compareInt(a.Value, b.Value); cmp != 0 {
		return cmp
	}
	return strings.Compare(a.Str, b.Str)
}

func compareBinaryExpr(a, b *BinaryExpr) int {
	if cmp := compareInt(int64(a.Op), int64(b.Op)); cmp != 0 {
		return cmp
	}
	if cmp := CompareExpr(a.LHS, b.LHS); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.RHS, b.RHS)
}

func compareInt(a, b int64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// exprKind returns a numeric value for the type of expression.
// Only used internally for equality checks and sorting.
func exprKind(expr Expr) int {
	switch expr.(type) {
	case *ConstantExpr:
		return 1
	case *VarExpr:
		return 2
	case *ArrayExpr:
		return 3
	case *UnaryExpr:
		return 4
	case *BinaryExpr:
		return 5
	case *NotExpr:
		return 6
	case *IteExpr:
		return 7
	case *SubstrExpr:
		return 8
	case *IndexOfExpr:
		return 9
	case *ReplaceExpr:
		return 10
	case *StoreExpr:
		return 11
	case *SelectExpr:
		return 12
	default:
		panic("unreachable")
	}
}

// ExprVisitor represents a visitor that can be passed to WalkExpr().
type ExprVisitor interface {
	// Executed for every visited node. Return nil to skip children.
	Visit(expr Expr) ExprVisitor
}

// WalkExpr traverses expr depth-first. Expressions are never modified.
func WalkExpr(v ExprVisitor, expr Expr) {
	if v = v.Visit(expr); v == nil {
		return
	}

	switch expr := expr.(type) {
	case *ConstantExpr, *VarExpr, *ArrayExpr:
		// nop
	case *UnaryExpr:
		WalkExpr(v, expr.Expr)
	case *BinaryExpr:
		WalkExpr(v, expr.LHS)
		WalkExpr(v, expr.RHS)
	case *NotExpr:
		WalkExpr(v, expr.Expr)
	case *IteExpr:
		WalkExpr(v, expr.Cond)
		WalkExpr(v, expr.Then)
		WalkExpr(v, expr.Else)
	case *SubstrExpr:
		WalkExpr(v, expr.Str)
		WalkExpr(v, expr.Offset)
		WalkExpr(v, expr.Length)
	case *IndexOfExpr:
		WalkExpr(v, expr.Str)
		WalkExpr(v, expr.Substr)
		WalkExpr(v, expr.Offset)
	case *ReplaceExpr:
		WalkExpr(v, expr.Str)
		WalkExpr(v, expr.Src)
		WalkExpr(v, expr.Dst)
	case *StoreExpr:
		WalkExpr(v, expr.Array)
		WalkExpr(v, expr.Index)
		WalkExpr(v, expr.Value)
	case *SelectExpr:
		WalkExpr(v, expr.Array)
		WalkExpr(v, expr.Index)
	default:
		panic("unreachable")
	}
}

// FindVars returns all variables referenced by the expressions, sorted by name.
func FindVars(exprs ...Expr) []*VarExpr {
	v := &symbolExprVisitor{vars: make(map[string]*VarExpr), arrays: make(map[string]*ArrayExpr)}
	for _, expr := range exprs {
		if expr != nil {
			WalkExpr(v, expr)
		}
	}

	a := make([]*VarExpr, 0, len(v.vars))
	for _, e := range v.vars {
		a = append(a, e)
	}
	sort.Slice(a, func(i, j int) bool { return a[i].Name < a[j].Name })
	return a
}

// FindArrays returns all base arrays referenced by the expressions, sorted by name.
func FindArrays(exprs ...Expr) []*ArrayExpr {
	v := &symbolExprVisitor{vars: make(map[string]*VarExpr), arrays: make(map[string]*ArrayExpr)}
	for _, expr := range exprs {
		if expr != nil {
			WalkExpr(v, expr)
		}
	}

	a := make([]*ArrayExpr, 0, len(v.arrays))
	for _, e := range v.arrays {
		a = append(a, e)
	}
	sort.Slice(a, func(i, j int) bool { return a[i].Name < a[j].Name })
	return a
}

// IsSymbolic returns true if expr references any variable or array.
func IsSymbolic(expr Expr) bool {
	return expr != nil && (len(FindVars(expr)) > 0 || len(FindArrays(expr)) > 0)
}

type symbolExprVisitor struct {
	vars   map[string]*VarExpr
	arrays map[string]*ArrayExpr
}

func (v *symbolExprVisitor) Visit(expr Expr) ExprVisitor {
	switch expr := expr.(type) {
	case *VarExpr:
		v.vars[expr.Name] = expr
	case *ArrayExpr:
		v.arrays[expr.Name] = expr
	}
	return v
}

// ExprEvaluator evaluates expressions using known variable values.
type ExprEvaluator struct {
	m map[string]*ConstantExpr
}

// NewExprEvaluator returns a new instance of ExprEvaluator with the given variable bindings.
func NewExprEvaluator(bindings map[string]*ConstantExpr) *ExprEvaluator {
	m := make(map[string]*ConstantExpr, len(bindings))
	for name, value := range bindings {
		m[name] = value
	}
	return &ExprEvaluator{m: m}
}

// Bind sets the value of a variable.
func (ee *ExprEvaluator) Bind(name string, value *ConstantExpr) {
	ee.m[name] = value
}

// Evaluate evaluates expr to a constant expression.
// Returns an error if an unbound variable is encountered.
func (ee *ExprEvaluator) Evaluate(expr Expr) (*ConstantExpr, error) {
	other, err := ee.eval(expr)
	if err != nil {
		return nil, err
	}
	c, ok := other.(*ConstantExpr)
	if !ok {
		return nil, fmt.Errorf("expression did not evaluate to constant: %s", other)
	}
	return c, nil
}

func (ee *ExprEvaluator) eval(expr Expr) (Expr, error) {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr, nil
	case *VarExpr:
		value, ok := ee.m[expr.Name]
		if !ok {
			return nil, fmt.Errorf("variable not bound: %s", expr.Name)
		}
		return value, nil
	case *ArrayExpr:
		return expr, nil
	case *UnaryExpr:
		x, err := ee.eval(expr.Expr)
		if err != nil {
			return nil, err
		}
		return NewUnaryExpr(expr.Op, x), nil
	case *BinaryExpr:
		lhs, err := ee.eval(expr.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := ee.eval(expr.RHS)
		if err != nil {
			return nil, err
		}
		return NewBinaryExpr(expr.Op, lhs, rhs), nil
	case *NotExpr:
		x, err := ee.eval(expr.Expr)
		if err != nil {
			return nil, err
		}
		return NewNotExpr(x), nil
	case *IteExpr:
		cond, err := ee.eval(expr.Cond)
		if err != nil {
			return nil, err
		}
		if IsConstantTrue(cond) {
			return ee.eval(expr.Then)
		} else if IsConstantFalse(cond) {
			return ee.eval(expr.Else)
		}
		return nil, fmt.Errorf("ite condition did not evaluate to constant: %s", cond)
	case *SubstrExpr:
		args, err := ee.evalAll(expr.Str, expr.Offset, expr.Length)
		if err != nil {
			return nil, err
		}
		return NewSubstrExpr(args[0], args[1], args[2]), nil
	case *IndexOfExpr:
		args, err := ee.evalAll(expr.Str, expr.Substr, expr.Offset)
		if err != nil {
			return nil, err
		}
		return NewIndexOfExpr(args[0], args[1], args[2]), nil
	case *ReplaceExpr:
		args, err := ee.evalAll(expr.Str, expr.Src, expr.Dst)
		if err != nil {
			return nil, err
		}
		return NewReplaceExpr(args[0], args[1], args[2], expr.All), nil
	case *StoreExpr:
		args, err := ee.evalAll(expr.Array, expr.Index, expr.Value)
		if err != nil {
			return nil, err
		}
		return NewStoreExpr(args[0], args[1], args[2]), nil
	case *SelectExpr:
		array, err := ee.eval(expr.Array)
		if err != nil {
			return nil, err
		}
		index, err := ee.eval(expr.Index)
		if err != nil {
			return nil, err
		}
		value := NewSelectExpr(array, index)
		if _, ok := value.(*SelectExpr); ok {
			return nil, fmt.Errorf("array element not bound: %s", value)
		}
		return ee.eval(value)
	default:
		return nil, fmt.Errorf("invalid expression type: %T", expr)
	}
}

func (ee *ExprEvaluator) evalAll(exprs ...Expr) ([]Expr, error) {
	a := make([]Expr, len(exprs))
	for i, expr := range exprs {
		other, err := ee.eval(expr)
		if err != nil {
			return nil, err
		}
		a[i] = other
	}
	return a, nil
}

// euclidDiv returns the euclidean quotient of a & b, as defined by SMT-LIB.
func euclidDiv(a, b int64) int64 {
	q := a / b
	if a%b < 0 {
		if b > 0 {
			q--
		} else {
			q++
		}
	}
	return q
}

// euclidMod returns the non-negative remainder of a & b, as defined by SMT-LIB.
func euclidMod(a, b int64) int64 {
	r := a % b
	if r < 0 {
		if b > 0 {
			r += b
		} else {
			r -= b
		}
	}
	return r
}

// strSubstr implements str.substr over characters.
func strSubstr(s string, offset, length int64) string {
	runes := []rune(s)
	n := int64(len(runes))
	if offset < 0 || length <= 0 || offset >= n {
		return ""
	}
	end := offset + length
	if end > n || end < offset {
		end = n
	}
	return string(runes[offset:end])
}

// strIndexOf implements str.indexof over characters.
func strIndexOf(s, substr string, offset int64) int64 {
	runes := []rune(s)
	if offset < 0 || offset > int64(len(runes)) {
		return -1
	} else if substr == "" {
		return offset
	}
	i := strings.Index(string(runes[offset:]), substr)
	if i < 0 {
		return -1
	}
	return offset + int64(utf8.RuneCountInString(string(runes[offset:])[:i]))
}

// strReplace implements str.replace: the first occurrence only.
func strReplace(s, src, dst string) string {
	if src == "" {
		return dst + s
	}
	return strings.Replace(s, src, dst, 1)
}

// strReplaceAll implements str.replace_all: an empty pattern leaves s unchanged.
func strReplaceAll(s, src, dst string) string {
	if src == "" {
		return s
	}
	return strings.ReplaceAll(s, src, dst)
}

// strToCode implements str.to_code.
func strToCode(s string) int64 {
	if utf8.RuneCountInString(s) != 1 {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(s)
	return int64(r)
}

// strFromCode implements str.from_code.
func strFromCode(code int64) string {
	if code < 0 || code > MaxCodePoint {
		return ""
	}
	return string(rune(code))
}

// strToInt implements str.to_int.
func strToInt(s string) int64 {
	if s == "" {
		return -1
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1
	}
	return v
}

// strFromInt implements str.from_int.
func strFromInt(v int64) string {
	if v < 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}
