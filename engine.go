package swat

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
)

// Engine receives the operations intercepted in one thread of the program
// under analysis and computes their dual results. An engine is not safe for
// concurrent use; several engines may share one Registry.
type Engine struct {
	x *Execution // current execution, created on first use

	// Mints symbolic variable names. Must set before execution.
	Registry *Registry

	// Used for checking split decompositions. Must set before execution.
	Solver Solver

	// Defaults to a no-op logger.
	Logger *zap.Logger

	Config Config
}

// NewEngine returns a new instance of Engine with the default configuration.
func NewEngine(registry *Registry, solver Solver) *Engine {
	return &Engine{
		Registry: registry,
		Solver:   solver,
		Logger:   zap.NewNop(),
		Config:   DefaultConfig(),
	}
}

// Execution returns the state of the current execution.
func (e *Engine) Execution() *Execution {
	if e.x == nil {
		e.x = NewExecution(e.Registry, e.Solver, e.Logger, e.Config)
	}
	return e.x
}

// ResetPerExecutionState discards the traces, inputs and builders of the
// current execution. Registry counters are kept so names stay unique.
func (e *Engine) ResetPerExecutionState() {
	if e.x != nil {
		e.Logger.Debug("execution finished",
			zap.Stringer("execution", e.x.ID()),
			zap.Int("inputs", len(e.x.Store().Inputs())),
			zap.Int("traces", e.x.Store().Len()),
		)
	}
	e.x = nil
}

// Invoke executes an intercepted method call. See Dispatch.
func (e *Engine) Invoke(declaringType, name string, desc []Descriptor, args []Value) (Value, error) {
	return e.InvokeAt(0, declaringType, name, desc, args)
}

// InvokeAt executes a method call intercepted at the instruction iid. Traces
// created or reused by the call are bound to iid.
func (e *Engine) InvokeAt(iid int64, declaringType, name string, desc []Descriptor, args []Value) (Value, error) {
	x := e.Execution()
	x.SetIID(iid)
	defer x.SetIID(0)

	v, err := Dispatch(x, declaringType, name, desc, args)
	if err != nil {
		x.Logger().Error("invoke failed",
			zap.String("owner", declaringType),
			zap.String("op", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("invoke %s.%s: %w", declaringType, name, err)
	}
	return v, nil
}

// NewArray executes an array allocation of n elements.
func (e *Engine) NewArray(elem Descriptor, n Value) Value {
	x := e.Execution()
	switch n := n.(type) {
	case *IntValue:
		return x.NewArray(elem, n)
	case *CharValue:
		return x.NewArray(elem, &IntValue{Value: int64(n.Value), Expr: n.Expr, Bits: 32})
	default:
		return x.malformed("array", "new", "length is %T", n)
	}
}

// Branch records the outcome of a conditional jump on edgeID in the trace of
// args and desc, which is the trace a modeled call on the same arguments
// uses. The taken side follows the concrete value of cond. Returns true if
// a branch was recorded.
func (e *Engine) Branch(edgeID int64, cond Value, desc []Descriptor, args ...Value) bool {
	x := e.Execution()
	b, ok := cond.(*BooleanValue)
	if !ok {
		x.malformed("branch", fmt.Sprint(edgeID), "condition is %T", cond)
		return false
	}
	return x.Trace(args, desc).CheckAndSetBranch(b.Value, b.Expr, edgeID)
}

// Opcode is a JVM instruction modeled by Engine.Apply.
type Opcode int

// Modeled instructions.
const (
	IADD Opcode = iota + 1
	ISUB
	IMUL
	IDIV
	IREM
	INEG
	LADD
	LSUB
	LMUL
	LDIV
	LREM
	LNEG
	LCMP
	I2C
	C2I
	I2L
	L2I
	IFEQ
	IFNE
	IFLT
	IFGE
	IFGT
	IFLE
	IF_ICMPEQ
	IF_ICMPNE
	IF_ICMPLT
	IF_ICMPGE
	IF_ICMPGT
	IF_ICMPLE
	IF_ACMPEQ
	IF_ACMPNE
	IALOAD
	BALOAD
	CALOAD
	AALOAD
	IASTORE
	BASTORE
	CASTORE
	AASTORE
	ARRAYLENGTH
)

var opcodes = [...]string{
	IADD:        "iadd",
	ISUB:        "isub",
	IMUL:        "imul",
	IDIV:        "idiv",
	IREM:        "irem",
	INEG:        "ineg",
	LADD:        "ladd",
	LSUB:        "lsub",
	LMUL:        "lmul",
	LDIV:        "ldiv",
	LREM:        "lrem",
	LNEG:        "lneg",
	LCMP:        "lcmp",
	I2C:         "i2c",
	C2I:         "c2i",
	I2L:         "i2l",
	L2I:         "l2i",
	IFEQ:        "ifeq",
	IFNE:        "ifne",
	IFLT:        "iflt",
	IFGE:        "ifge",
	IFGT:        "ifgt",
	IFLE:        "ifle",
	IF_ICMPEQ:   "if_icmpeq",
	IF_ICMPNE:   "if_icmpne",
	IF_ICMPLT:   "if_icmplt",
	IF_ICMPGE:   "if_icmpge",
	IF_ICMPGT:   "if_icmpgt",
	IF_ICMPLE:   "if_icmple",
	IF_ACMPEQ:   "if_acmpeq",
	IF_ACMPNE:   "if_acmpne",
	IALOAD:      "iaload",
	BALOAD:      "baload",
	CALOAD:      "caload",
	AALOAD:      "aaload",
	IASTORE:     "iastore",
	BASTORE:     "bastore",
	CASTORE:     "castore",
	AASTORE:     "aastore",
	ARRAYLENGTH: "arraylength",
}

// String returns the JVM mnemonic of the instruction.
func (op Opcode) String() string {
	if op > 0 && op < Opcode(len(opcodes)) && opcodes[op] != "" {
		return opcodes[op]
	}
	return fmt.Sprintf("Opcode<%d>", op)
}

// operands returns the number of stack operands of the instruction.
func (op Opcode) operands() int {
	switch op {
	case INEG, LNEG, I2C, C2I, I2L, L2I, IFEQ, IFNE, IFLT, IFGE, IFGT, IFLE, ARRAYLENGTH:
		return 1
	case IASTORE, BASTORE, CASTORE, AASTORE:
		return 3
	default:
		return 2
	}
}

// Apply executes an instruction on its stack operands. Comparisons return
// the boolean outcome of the jump condition; stores return PlaceHolder.
func (e *Engine) Apply(op Opcode, args ...Value) (Value, error) {
	if op <= 0 || op >= Opcode(len(opcodes)) {
		return nil, fmt.Errorf("apply %d: %w", op, ErrUnknownOpcode)
	}
	x := e.Execution()
	if len(args) != op.operands() {
		return x.malformed("opcode", op.String(), "expected %d operands, got %d", op.operands(), len(args)), nil
	}

	switch op {
	case IADD, ISUB, IMUL, LADD, LSUB, LMUL:
		return e.executeArithInstr(op, args[0], args[1]), nil
	case IDIV, IREM, LDIV, LREM:
		return e.executeDivInstr(op, args[0], args[1]), nil
	case INEG, LNEG:
		return e.executeNegInstr(op, args[0]), nil
	case LCMP:
		return e.executeCmpInstr(args[0], args[1]), nil
	case I2C, C2I, I2L, L2I:
		return e.executeConvertInstr(op, args[0]), nil
	case IFEQ, IFNE, IFLT, IFGE, IFGT, IFLE:
		return e.executeIfInstr(op, args[0]), nil
	case IF_ICMPEQ, IF_ICMPNE, IF_ICMPLT, IF_ICMPGE, IF_ICMPGT, IF_ICMPLE:
		return e.executeIfCmpInstr(op, args[0], args[1]), nil
	case IF_ACMPEQ, IF_ACMPNE:
		return e.executeIfAcmpInstr(op, args[0], args[1]), nil
	case IALOAD, BALOAD, CALOAD, AALOAD:
		return e.executeLoadInstr(op, args[0], args[1]), nil
	case IASTORE, BASTORE, CASTORE, AASTORE:
		return e.executeStoreInstr(op, args[0], args[1], args[2]), nil
	case ARRAYLENGTH:
		arr, ok := args[0].(*ArrayValue)
		if !ok {
			return x.malformed("opcode", op.String(), "operand is %T", args[0]), nil
		}
		return arr.Len(), nil
	default:
		return nil, fmt.Errorf("apply %s: %w", op, ErrUnknownOpcode)
	}
}

// intOperands returns the integer operands of an instruction.
func (e *Engine) intOperands(op Opcode, args ...Value) ([]int64, []Expr, bool) {
	values, exprs := make([]int64, len(args)), make([]Expr, len(args))
	for i := range args {
		v, expr, ok := intArg(args, i)
		if !ok {
			switch args[i].(type) {
			case *IntValue, *CharValue, *placeHolder:
				e.x.degrade("opcode", op.String(), "operand not modeled")
			default:
				e.x.malformed("opcode", op.String(), "operand %d is %T", i, args[i])
			}
			return nil, nil, false
		}
		values[i], exprs[i] = v, expr
	}
	return values, exprs, true
}

// bits returns the operand width of an instruction.
func (op Opcode) bits() int {
	switch op {
	case LADD, LSUB, LMUL, LDIV, LREM, LNEG, LCMP, L2I:
		return 64
	default:
		return 32
	}
}

func (e *Engine) executeArithInstr(op Opcode, a, b Value) Value {
	v, exprs, ok := e.intOperands(op, a, b)
	if !ok {
		return PlaceHolder
	}

	var value int64
	var expr Expr
	var overflow bool
	switch op {
	case IADD, LADD:
		value, expr = v[0]+v[1], NewBinaryExpr(ADD, exprs[0], exprs[1])
		overflow = (v[1] > 0 && value < v[0]) || (v[1] < 0 && value > v[0])
	case ISUB, LSUB:
		value, expr = v[0]-v[1], NewBinaryExpr(SUB, exprs[0], exprs[1])
		overflow = (v[1] < 0 && value < v[0]) || (v[1] > 0 && value > v[0])
	case IMUL, LMUL:
		value, expr = v[0]*v[1], NewBinaryExpr(MUL, exprs[0], exprs[1])
		overflow = v[0] != 0 && (value/v[0] != v[1] || (v[0] == -1 && v[1] == math.MinInt64))
	}

	result := &IntValue{Value: value, Expr: expr, Bits: op.bits()}
	if overflow || !result.fits(value) {
		return e.x.degrade("opcode", op.String(), "overflow")
	}
	return result
}

// executeDivInstr models truncating division. The SMT div operator is
// Euclidean, so the dividend's sign is factored out.
func (e *Engine) executeDivInstr(op Opcode, a, b Value) Value {
	v, exprs, ok := e.intOperands(op, a, b)
	if !ok {
		return PlaceHolder
	}
	min := int64(math.MinInt32)
	if op.bits() == 64 {
		min = math.MinInt64
	}
	if v[1] == 0 {
		return e.x.degrade("opcode", op.String(), "division by zero")
	} else if v[0] == min && v[1] == -1 {
		return e.x.degrade("opcode", op.String(), "overflow")
	}

	zero := NewConstantExpr(0)
	quo := NewIteExpr(NewBinaryExpr(GE, exprs[0], zero),
		NewBinaryExpr(DIV, exprs[0], exprs[1]),
		NewUnaryExpr(NEG, NewBinaryExpr(DIV, NewUnaryExpr(NEG, exprs[0]), exprs[1])),
	)
	if op == IDIV || op == LDIV {
		return &IntValue{Value: v[0] / v[1], Expr: quo, Bits: op.bits()}
	}
	rem := NewBinaryExpr(SUB, exprs[0], NewBinaryExpr(MUL, exprs[1], quo))
	return &IntValue{Value: v[0] % v[1], Expr: rem, Bits: op.bits()}
}

func (e *Engine) executeNegInstr(op Opcode, a Value) Value {
	v, exprs, ok := e.intOperands(op, a)
	if !ok {
		return PlaceHolder
	} else if (op == INEG && v[0] == math.MinInt32) || v[0] == math.MinInt64 {
		return e.x.degrade("opcode", op.String(), "overflow")
	}
	return &IntValue{Value: -v[0], Expr: NewUnaryExpr(NEG, exprs[0]), Bits: op.bits()}
}

func (e *Engine) executeCmpInstr(a, b Value) Value {
	v, exprs, ok := e.intOperands(LCMP, a, b)
	if !ok {
		return PlaceHolder
	}
	var value int64
	if v[0] < v[1] {
		value = -1
	} else if v[0] > v[1] {
		value = 1
	}
	expr := NewIteExpr(NewBinaryExpr(LT, exprs[0], exprs[1]), NewConstantExpr(-1),
		NewIteExpr(NewBinaryExpr(EQ, exprs[0], exprs[1]), NewConstantExpr(0), NewConstantExpr(1)))
	return NewDerivedInt(value, expr)
}

func (e *Engine) executeConvertInstr(op Opcode, a Value) Value {
	v, exprs, ok := e.intOperands(op, a)
	if !ok {
		return PlaceHolder
	}

	switch op {
	case I2C:
		return &CharValue{
			Value: rune(uint16(v[0])),
			Expr:  NewBinaryExpr(MOD, exprs[0], NewConstantExpr(1<<16)),
		}
	case C2I:
		return NewDerivedInt(v[0], exprs[0])
	case I2L:
		return &IntValue{Value: v[0], Expr: exprs[0], Bits: 64}
	default:
		// Wraps into the signed 32-bit range.
		half := NewConstantExpr(1 << 31)
		expr := NewBinaryExpr(SUB,
			NewBinaryExpr(MOD, NewBinaryExpr(ADD, exprs[0], half), NewConstantExpr(1<<32)),
			half,
		)
		if IsConstantExpr(exprs[0]) {
			expr = NewConstantExpr(int64(int32(v[0])))
		}
		return NewDerivedInt(int64(int32(v[0])), expr)
	}
}

// compareOps maps jump instructions to their comparison.
var compareOps = map[Opcode]BinaryOp{
	IFEQ: EQ, IFNE: NE, IFLT: LT, IFGE: GE, IFGT: GT, IFLE: LE,
	IF_ICMPEQ: EQ, IF_ICMPNE: NE, IF_ICMPLT: LT, IF_ICMPGE: GE, IF_ICMPGT: GT, IF_ICMPLE: LE,
}

// executeIfInstr compares a single operand against zero. Booleans are
// tested directly.
func (e *Engine) executeIfInstr(op Opcode, a Value) Value {
	if b, ok := a.(*BooleanValue); ok && (op == IFEQ || op == IFNE) {
		if b.Expr == nil {
			return e.x.degrade("opcode", op.String(), "formula lost")
		} else if op == IFEQ {
			return &BooleanValue{Value: !b.Value, Expr: NewNotExpr(b.Expr)}
		}
		return b
	}
	return e.executeIfCmpInstr(op, a, NewIntValue(0))
}

func (e *Engine) executeIfCmpInstr(op Opcode, a, b Value) Value {
	v, exprs, ok := e.intOperands(op, a, b)
	if !ok {
		return PlaceHolder
	}
	cmp := compareOps[op]
	return &BooleanValue{Value: compareInts(cmp, v[0], v[1]), Expr: NewBinaryExpr(cmp, exprs[0], exprs[1])}
}

// compareInts evaluates a comparison on concrete integers.
func compareInts(op BinaryOp, a, b int64) bool {
	switch op {
	case EQ:
		return a == b
	case NE:
		return a != b
	case LT:
		return a < b
	case LE:
		return a <= b
	case GT:
		return a > b
	case GE:
		return a >= b
	default:
		panic("unreachable")
	}
}

// executeIfAcmpInstr compares references by identity. Inputs never alias
// one another, so the outcome is fixed.
func (e *Engine) executeIfAcmpInstr(op Opcode, a, b Value) Value {
	same := a == b
	if a != nil && b != nil && a.Address() != AddressUnknown {
		same = a.Address() == b.Address()
	}
	if op == IF_ACMPNE {
		same = !same
	}
	return NewBooleanValue(same)
}

func (e *Engine) executeLoadInstr(op Opcode, a, i Value) Value {
	arr, ok := a.(*ArrayValue)
	if !ok {
		return e.x.malformed("opcode", op.String(), "operand is %T", a)
	}
	return e.x.loadElem(arr, i)
}

// executeStoreInstr stores v into an array, narrowing it to the element type.
func (e *Engine) executeStoreInstr(op Opcode, a, i, v Value) Value {
	arr, ok := a.(*ArrayValue)
	if !ok {
		return e.x.malformed("opcode", op.String(), "operand is %T", a)
	}

	switch op {
	case CASTORE:
		if _, isChar := v.(*CharValue); !isChar {
			v = e.executeConvertInstr(I2C, v)
		}
	case BASTORE:
		if n, isInt := v.(*IntValue); isInt && n.Value != int64(int8(n.Value)) {
			v = &IntValue{Value: int64(int8(n.Value)), Bits: 32}
		}
	}
	return e.x.storeArrayElem(arr, i, v)
}

// ParseOpcode returns the instruction with the given mnemonic.
func ParseOpcode(s string) (Opcode, error) {
	s = strings.ToLower(s)
	for op, name := range opcodes {
		if name != "" && name == s {
			return Opcode(op), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownOpcode)
}
