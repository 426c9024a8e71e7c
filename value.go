package swat

import (
	"fmt"
	"strconv"
	"strings"
)

// Value represents a dual value: the concrete result computed by the program
// under analysis together with an equivalent formula over symbolic inputs.
type Value interface {
	// Returns the concrete half of the value.
	Concrete() interface{}

	// Returns the symbolic half of the value. May be nil if not modeled.
	Formula() Expr

	// Returns the reference identity or AddressUnknown.
	Address() int

	String() string
	value()
}

func (*ArrayValue) value()         {}
func (*BooleanValue) value()       {}
func (*BoxedValue) value()         {}
func (*CharValue) value()          {}
func (*IntValue) value()           {}
func (*ObjectValue) value()        {}
func (*StringBuilderValue) value() {}
func (*StringValue) value()        {}
func (*placeHolder) value()        {}

// PlaceHolder is the shared value returned for operations that are not
// modeled symbolically.
var PlaceHolder Value = &placeHolder{}

type placeHolder struct{}

func (*placeHolder) Concrete() interface{} { return nil }
func (*placeHolder) Formula() Expr         { return nil }
func (*placeHolder) Address() int          { return AddressUnknown }
func (*placeHolder) String() string        { return "<placeholder>" }

// IsPlaceHolder returns true if v is the shared placeholder value.
func IsPlaceHolder(v Value) bool {
	return v == PlaceHolder
}

// Descriptor is a JVM type descriptor such as "I", "[C" or "Ljava/lang/String;".
type Descriptor string

// Common descriptors.
const (
	DescBool          = Descriptor("Z")
	DescByte          = Descriptor("B")
	DescChar          = Descriptor("C")
	DescShort         = Descriptor("S")
	DescInt           = Descriptor("I")
	DescLong          = Descriptor("J")
	DescFloat         = Descriptor("F")
	DescDouble        = Descriptor("D")
	DescString        = Descriptor("Ljava/lang/String;")
	DescCharSequence  = Descriptor("Ljava/lang/CharSequence;")
	DescObject        = Descriptor("Ljava/lang/Object;")
	DescStringBuilder = Descriptor("Ljava/lang/StringBuilder;")
	DescCharArray     = Descriptor("[C")
	DescByteArray     = Descriptor("[B")
	DescStringArray   = Descriptor("[Ljava/lang/String;")
)

// IsArray returns true if the descriptor names an array type.
func (d Descriptor) IsArray() bool { return strings.HasPrefix(string(d), "[") }

// Elem returns the element descriptor of an array descriptor.
func (d Descriptor) Elem() Descriptor {
	assert(d.IsArray(), "not an array descriptor: %s", d)
	return d[1:]
}

// matchDesc returns true if desc equals want exactly.
func matchDesc(desc []Descriptor, want ...Descriptor) bool {
	if len(desc) != len(want) {
		return false
	}
	for i := range desc {
		if desc[i] != want[i] {
			return false
		}
	}
	return true
}

// IntValue represents a Java int or long.
type IntValue struct {
	Value int64
	Expr  Expr
	Bits  int // 32 or 64
}

// NewIntValue returns a concrete 32-bit integer.
func NewIntValue(v int64) *IntValue {
	return &IntValue{Value: v, Expr: NewConstantExpr(v), Bits: 32}
}

// NewLongValue returns a concrete 64-bit integer.
func NewLongValue(v int64) *IntValue {
	return &IntValue{Value: v, Expr: NewConstantExpr(v), Bits: 64}
}

func (v *IntValue) Concrete() interface{} { return v.Value }
func (v *IntValue) Formula() Expr         { return v.Expr }
func (v *IntValue) Address() int          { return AddressUnknown }
func (v *IntValue) String() string        { return fmt.Sprintf("int(%d: %s)", v.Value, v.Expr) }

// fits returns true if x is representable in the value's width.
func (v *IntValue) fits(x int64) bool {
	if v.Bits == 64 {
		return true
	}
	return x == int64(int32(x))
}

// BooleanValue represents a Java boolean.
type BooleanValue struct {
	Value bool
	Expr  Expr
}

// NewBooleanValue returns a concrete boolean.
func NewBooleanValue(v bool) *BooleanValue {
	return &BooleanValue{Value: v, Expr: NewBoolConstantExpr(v)}
}

func (v *BooleanValue) Concrete() interface{} { return v.Value }
func (v *BooleanValue) Formula() Expr         { return v.Expr }
func (v *BooleanValue) Address() int          { return AddressUnknown }
func (v *BooleanValue) String() string        { return fmt.Sprintf("bool(%t: %s)", v.Value, v.Expr) }

// CharValue represents a Java char. The formula is the integer code point.
type CharValue struct {
	Value rune
	Expr  Expr
}

// NewCharValue returns a concrete char.
func NewCharValue(v rune) *CharValue {
	return &CharValue{Value: v, Expr: NewConstantExpr(int64(v))}
}

func (v *CharValue) Concrete() interface{} { return v.Value }
func (v *CharValue) Formula() Expr         { return v.Expr }
func (v *CharValue) Address() int          { return AddressUnknown }
func (v *CharValue) String() string {
	return fmt.Sprintf("char(%s: %s)", strconv.QuoteRune(v.Value), v.Expr)
}

// StringValue represents an immutable Java string.
type StringValue struct {
	Value string
	Expr  Expr
	Addr  int
}

// NewStringValue returns a concrete string without a stable identity.
func NewStringValue(s string) *StringValue {
	return &StringValue{Value: s, Expr: NewStringConstantExpr(s), Addr: AddressUnknown}
}

func (v *StringValue) Concrete() interface{} { return v.Value }
func (v *StringValue) Formula() Expr         { return v.Expr }
func (v *StringValue) Address() int          { return v.Addr }
func (v *StringValue) String() string {
	return fmt.Sprintf("string(%q: %s)", v.Value, v.Expr)
}

// StringBuilderValue represents a mutable Java string builder. The buffer
// is held by a BuilderArena; every alias of a builder holds the same handle.
type StringBuilderValue struct {
	Handle BuilderHandle
	Addr   int
	arena  *BuilderArena
}

// Concrete returns the current contents of the builder.
func (v *StringBuilderValue) Concrete() interface{} {
	s, _ := v.arena.Get(v.Handle)
	return s
}

// Formula returns the current formula of the builder or nil if it is no longer modeled.
func (v *StringBuilderValue) Formula() Expr {
	_, expr := v.arena.Get(v.Handle)
	return expr
}

func (v *StringBuilderValue) Address() int { return v.Addr }
func (v *StringBuilderValue) String() string {
	s, expr := v.arena.Get(v.Handle)
	return fmt.Sprintf("builder#%d(%q: %v)", v.Handle, s, expr)
}

// ObjectValue represents an opaque reference modeled only by its identity.
type ObjectValue struct {
	Class string
	Addr  int
}

func (v *ObjectValue) Concrete() interface{} { return fmt.Sprintf("%s@%d", v.Class, v.Addr) }
func (v *ObjectValue) Formula() Expr         { return nil }
func (v *ObjectValue) Address() int          { return v.Addr }
func (v *ObjectValue) String() string        { return fmt.Sprintf("object(%s@%d)", v.Class, v.Addr) }

// BoxedValue represents a boxed primitive such as java/lang/Boolean.
type BoxedValue struct {
	Class string
	Inner Value
	Addr  int
}

func (v *BoxedValue) Concrete() interface{} { return v.Inner.Concrete() }
func (v *BoxedValue) Formula() Expr         { return v.Inner.Formula() }
func (v *BoxedValue) Address() int          { return v.Addr }
func (v *BoxedValue) String() string        { return fmt.Sprintf("%s(%s)", v.Class, v.Inner) }

// ArrayValue represents a Java array. Each element is a dual value and the
// formula is an SMT array from element index to element formula.
type ArrayValue struct {
	Elem  Descriptor
	Elems []Value
	Expr  Expr
	Addr  int

	// Formula of the length if it was allocated with a symbolic size.
	LenExpr Expr

	// Set for digest arrays produced from a tracked string.
	Digest *StringValue
}

// Concrete returns the concrete elements.
func (v *ArrayValue) Concrete() interface{} {
	a := make([]interface{}, len(v.Elems))
	for i, elem := range v.Elems {
		a[i] = elem.Concrete()
	}
	return a
}

func (v *ArrayValue) Formula() Expr { return v.Expr }
func (v *ArrayValue) Address() int  { return v.Addr }
func (v *ArrayValue) String() string {
	return fmt.Sprintf("array[%s](%d: %v)", v.Elem, len(v.Elems), v.Expr)
}

// Len returns the array length.
func (v *ArrayValue) Len() *IntValue {
	if v.LenExpr != nil {
		return &IntValue{Value: int64(len(v.Elems)), Expr: v.LenExpr, Bits: 32}
	}
	return NewIntValue(int64(len(v.Elems)))
}

// Strings returns the concrete elements of a string array.
func (v *ArrayValue) Strings() []string {
	a := make([]string, len(v.Elems))
	for i, elem := range v.Elems {
		if s, ok := elem.(*StringValue); ok {
			a[i] = s.Value
		}
	}
	return a
}

// elemSort returns the formula sort used for elements of the given descriptor.
func elemSort(d Descriptor) Sort {
	switch d {
	case DescBool:
		return SortBool
	case DescByte, DescChar, DescShort, DescInt, DescLong:
		return SortInt
	case DescString, DescCharSequence:
		return SortString
	default:
		return 0
	}
}

// concreteString returns the concrete string held by a string-like value.
func concreteString(v Value) (string, bool) {
	switch v := v.(type) {
	case *StringValue:
		return v.Value, true
	case *StringBuilderValue:
		if !v.arena.Valid(v.Handle) {
			return "", false
		}
		return v.Concrete().(string), true
	}
	return "", false
}

// stringFormula returns the string formula of a string-like value or nil.
func stringFormula(v Value) Expr {
	switch v := v.(type) {
	case *StringValue, *StringBuilderValue:
		return v.Formula()
	}
	return nil
}
