package swat

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

const (
	ownerInteger       = "java/lang/Integer"
	ownerLong          = "java/lang/Long"
	ownerCharacter     = "java/lang/Character"
	ownerBoolean       = "java/lang/Boolean"
	ownerMath          = "java/lang/Math"
	ownerDigestUtils   = "org/apache/commons/codec/digest/DigestUtils"
	ownerMessageDigest = "java/security/MessageDigest"
	ownerProvider      = "com/code_intelligence/jazzer/api/FuzzedDataProvider"
)

// invokeStringStatic executes static String operations and constructors.
func invokeStringStatic(x *Execution, name string, desc []Descriptor, args []Value) (Value, error) {
	switch name {
	case "valueOf", "copyValueOf":
		return stringValueOf(x, name, desc, args), nil
	case "<init>":
		return stringInit(x, desc, args), nil
	default:
		return x.degrade(ownerString, name, "no handler"), nil
	}
}

func stringValueOf(x *Execution, name string, desc []Descriptor, args []Value) Value {
	if len(args) != len(desc) {
		return x.malformed(ownerString, name, "expected %d arguments, got %d", len(desc), len(args))
	}

	var s string
	var expr Expr
	var ok bool
	switch {
	case len(desc) == 1:
		// valueOf(Object) returns the very same string.
		if str, isString := args[0].(*StringValue); isString && desc[0] == DescObject {
			return str
		}
		s, expr, ok = javaString(args[0], desc[0])
	case matchDesc(desc, DescCharArray, DescInt, DescInt):
		s, expr, ok = charRange(args[0], args[1], args[2])
	}
	if !ok || expr == nil {
		return x.degrade(ownerString, name, "argument not representable")
	}
	return x.NewString(s, expr)
}

// stringInit returns a new string. The receiver is an uninitialized
// reference whose address the string takes over.
func stringInit(x *Execution, desc []Descriptor, args []Value) Value {
	if len(args) != len(desc)+1 {
		return x.malformed(ownerString, "<init>", "expected %d arguments, got %d", len(desc)+1, len(args))
	}
	params := args[1:]

	var s string
	var expr Expr = NewStringConstantExpr("")
	ok := true
	switch {
	case len(desc) == 0:
	case matchDesc(desc, DescString), matchDesc(desc, DescCharArray), matchDesc(desc, DescStringBuilder):
		if params[0] == nil {
			return x.degrade(ownerString, "<init>", "null argument")
		}
		s, expr, ok = javaString(params[0], desc[0])
	case matchDesc(desc, DescCharArray, DescInt, DescInt):
		s, expr, ok = charRange(params[0], params[1], params[2])
	default:
		return x.degrade(ownerString, "<init>", "unknown overload")
	}
	if !ok || expr == nil {
		return x.degrade(ownerString, "<init>", "argument not representable")
	}

	if recv, isObject := args[0].(*ObjectValue); isObject {
		return &StringValue{Value: s, Expr: expr, Addr: recv.Addr}
	}
	return x.NewString(s, expr)
}

// charRange returns the text of count chars of a char array starting at offset.
func charRange(array, offset, count Value) (string, Expr, bool) {
	arr, ok := array.(*ArrayValue)
	off, _, ok1 := intArg([]Value{offset}, 0)
	n, _, ok2 := intArg([]Value{count}, 0)
	if !ok || !ok1 || !ok2 || arr.Elem != DescChar || off < 0 || n < 0 || off+n > int64(len(arr.Elems)) {
		return "", nil, false
	}
	return charsString(arr.Elems[off : off+n])
}

// invokeInteger executes static Integer and Long operations.
func invokeInteger(x *Execution, owner string, bits int, name string, desc []Descriptor, args []Value) (Value, error) {
	if len(args) != len(desc) {
		return x.malformed(owner, name, "expected %d arguments, got %d", len(desc), len(args)), nil
	}
	prim := DescInt
	if bits == 64 {
		prim = DescLong
	}

	switch {
	case (name == "parseInt" || name == "parseLong" || name == "valueOf") && matchDesc(desc, DescString):
		v := parseJavaInt(x, owner, name, bits, args[0])
		if name == "valueOf" && !IsPlaceHolder(v) {
			return x.Box(owner, v), nil
		}
		return v, nil

	case (name == "parseInt" || name == "parseLong") && matchDesc(desc, DescString, DescInt):
		radix, radixExpr, ok := intArg(args, 1)
		if !ok || radix != 10 || !IsConstantExpr(radixExpr) {
			return x.degrade(owner, name, "unsupported radix"), nil
		}
		return parseJavaInt(x, owner, name, bits, args[0]), nil

	case name == "valueOf" && matchDesc(desc, prim):
		if _, ok := args[0].(*IntValue); !ok {
			return x.malformed(owner, name, "argument is %T", args[0]), nil
		}
		return x.Box(owner, args[0]), nil

	case name == "toString" && matchDesc(desc, prim):
		s, expr, ok := javaString(args[0], prim)
		if !ok || expr == nil {
			return x.malformed(owner, name, "argument is %T", args[0]), nil
		}
		return x.NewString(s, expr), nil

	case name == "compare" && matchDesc(desc, prim, prim):
		a, aExpr, ok1 := intArg(args, 0)
		b, bExpr, ok2 := intArg(args, 1)
		if !ok1 || !ok2 {
			return x.malformed(owner, name, "expected integers"), nil
		}
		var value int64
		if a < b {
			value = -1
		} else if a > b {
			value = 1
		}
		expr := NewIteExpr(NewBinaryExpr(LT, aExpr, bExpr), NewConstantExpr(-1),
			NewIteExpr(NewBinaryExpr(EQ, aExpr, bExpr), NewConstantExpr(0), NewConstantExpr(1)))
		return NewDerivedInt(value, expr), nil

	default:
		return x.degrade(owner, name, "no handler"), nil
	}
}

// parseJavaInt parses a decimal integer with an optional sign. A value
// that Java would reject degrades, since the host raises an exception.
func parseJavaInt(x *Execution, owner, name string, bits int, arg Value) Value {
	s, expr, ok := strArg([]Value{arg}, 0)
	if !ok {
		return x.malformed(owner, name, "argument is %T", arg)
	}

	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 || digits == "" || strings.Trim(digits, "0123456789") != "" {
		return x.degrade(owner, name, "not a number")
	}
	v, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return x.degrade(owner, name, "out of range")
	}

	rest := NewSubstrExpr(expr, NewConstantExpr(1), NewBinaryExpr(SUB, NewUnaryExpr(LENGTH, expr), NewConstantExpr(1)))
	formula := NewIteExpr(NewBinaryExpr(PREFIXOF, NewStringConstantExpr("-"), expr),
		NewUnaryExpr(NEG, NewUnaryExpr(TOINT, rest)),
		NewIteExpr(NewBinaryExpr(PREFIXOF, NewStringConstantExpr("+"), expr),
			NewUnaryExpr(TOINT, rest),
			NewUnaryExpr(TOINT, expr),
		),
	)
	return &IntValue{Value: v, Expr: formula, Bits: bits}
}

// invokeCharacter executes static Character operations. Formulas are
// exact for ASCII characters; others are not modeled.
func invokeCharacter(x *Execution, name string, desc []Descriptor, args []Value) (Value, error) {
	if len(args) != len(desc) || len(args) == 0 {
		return x.malformed(ownerCharacter, name, "expected %d arguments, got %d", len(desc), len(args)), nil
	}
	c, cExpr, ok := intArg(args, 0)
	if !ok {
		return x.malformed(ownerCharacter, name, "argument is %T", args[0]), nil
	}

	if name == "valueOf" && matchDesc(desc, DescChar) {
		return x.Box(ownerCharacter, args[0]), nil
	} else if c < 0 || c >= utf8RuneSelf {
		return x.degrade(ownerCharacter, name, "non-ASCII character"), nil
	}

	switch name {
	case "isDigit", "isLetter", "isAlphabetic", "isLetterOrDigit", "isWhitespace", "isSpaceChar", "isUpperCase", "isLowerCase":
		pred := asciiPredicate(name, cExpr)
		return &BooleanValue{Value: asciiPredicateValue(name, rune(c)), Expr: pred}, nil

	case "toUpperCase", "toLowerCase":
		lo, hi, delta := int64('a'), int64('z'), int64(-32)
		if name == "toLowerCase" {
			lo, hi, delta = 'A', 'Z', 32
		}
		value := c
		if c >= lo && c <= hi {
			value = c + delta
		}
		expr := NewIteExpr(inRange(cExpr, lo, hi), NewBinaryExpr(ADD, cExpr, NewConstantExpr(delta)), cExpr)
		if desc[0] == DescChar {
			return &CharValue{Value: rune(value), Expr: expr}, nil
		}
		return NewDerivedInt(value, expr), nil

	case "digit", "getNumericValue":
		if name == "digit" {
			radix, radixExpr, ok := intArg(args, 1)
			if !ok || radix != 10 || !IsConstantExpr(radixExpr) {
				return x.degrade(ownerCharacter, name, "unsupported radix"), nil
			}
		} else if isASCIILetterOrDigit(rune(c)) && !isASCIIDigit(rune(c)) {
			return x.degrade(ownerCharacter, name, "letter value"), nil
		}
		value := int64(-1)
		if isASCIIDigit(rune(c)) {
			value = c - '0'
		}
		expr := NewIteExpr(inRange(cExpr, '0', '9'), NewBinaryExpr(SUB, cExpr, NewConstantExpr('0')), NewConstantExpr(-1))
		return NewDerivedInt(value, expr), nil

	default:
		return x.degrade(ownerCharacter, name, "no handler"), nil
	}
}

const utf8RuneSelf = 0x80

// asciiPredicate returns the formula of a character class test over ASCII.
func asciiPredicate(name string, c Expr) Expr {
	switch name {
	case "isDigit":
		return inRange(c, '0', '9')
	case "isLetter", "isAlphabetic":
		return NewOrExpr(inRange(c, 'a', 'z'), inRange(c, 'A', 'Z'))
	case "isLetterOrDigit":
		return NewOrExpr(inRange(c, 'a', 'z'), inRange(c, 'A', 'Z'), inRange(c, '0', '9'))
	case "isWhitespace":
		return NewOrExpr(inRange(c, '\t', '\r'), inRange(c, 0x1C, 0x1F), NewBinaryExpr(EQ, c, NewConstantExpr(' ')))
	case "isSpaceChar":
		return NewBinaryExpr(EQ, c, NewConstantExpr(' '))
	case "isUpperCase":
		return inRange(c, 'A', 'Z')
	case "isLowerCase":
		return inRange(c, 'a', 'z')
	default:
		panic("unreachable")
	}
}

// asciiPredicateValue evaluates a character class test on an ASCII character.
func asciiPredicateValue(name string, c rune) bool {
	switch name {
	case "isDigit":
		return isASCIIDigit(c)
	case "isLetter", "isAlphabetic":
		return isASCIILetter(c)
	case "isLetterOrDigit":
		return isASCIILetterOrDigit(c)
	case "isWhitespace":
		return (c >= '\t' && c <= '\r') || (c >= 0x1C && c <= 0x1F) || c == ' '
	case "isSpaceChar":
		return c == ' '
	case "isUpperCase":
		return c >= 'A' && c <= 'Z'
	case "isLowerCase":
		return c >= 'a' && c <= 'z'
	default:
		panic("unreachable")
	}
}

func isASCIIDigit(c rune) bool  { return c >= '0' && c <= '9' }
func isASCIILetter(c rune) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isASCIILetterOrDigit(c rune) bool { return isASCIIDigit(c) || isASCIILetter(c) }

// inRange returns lo <= c <= hi.
func inRange(c Expr, lo, hi int64) Expr {
	return NewAndExpr(
		NewBinaryExpr(LE, NewConstantExpr(lo), c),
		NewBinaryExpr(LE, c, NewConstantExpr(hi)),
	)
}

// invokeBoolean executes static Boolean operations.
func invokeBoolean(x *Execution, name string, desc []Descriptor, args []Value) (Value, error) {
	if len(args) != len(desc) {
		return x.malformed(ownerBoolean, name, "expected %d arguments, got %d", len(desc), len(args)), nil
	}

	switch {
	case name == "valueOf" && matchDesc(desc, DescBool):
		if _, ok := args[0].(*BooleanValue); !ok {
			return x.malformed(ownerBoolean, name, "argument is %T", args[0]), nil
		}
		return x.Box(ownerBoolean, args[0]), nil

	case (name == "valueOf" || name == "parseBoolean") && matchDesc(desc, DescString):
		v := parseJavaBoolean(x, name, desc, args)
		if name == "valueOf" && !IsPlaceHolder(v) {
			return x.Box(ownerBoolean, v), nil
		}
		return v, nil

	case name == "toString" && matchDesc(desc, DescBool):
		s, expr, ok := javaString(args[0], DescBool)
		if !ok || expr == nil {
			return x.malformed(ownerBoolean, name, "argument is %T", args[0]), nil
		}
		return x.NewString(s, expr), nil

	default:
		return x.degrade(ownerBoolean, name, "no handler"), nil
	}
}

// parseJavaBoolean models Boolean.parseBoolean. The input is restricted to
// the four spellings the formula distinguishes.
func parseJavaBoolean(x *Execution, name string, desc []Descriptor, args []Value) Value {
	if args[0] == nil {
		return NewBooleanValue(false)
	}
	s, expr, ok := strArg(args, 0)
	if !ok {
		return x.malformed(ownerBoolean, name, "argument is %T", args[0])
	}

	spellings := []string{"true", "True", "false", "False"}
	var known bool
	for _, spelling := range spellings {
		known = known || s == spelling
	}
	if !known {
		return x.degrade(ownerBoolean, name, "unrecognized spelling")
	}

	if IsSymbolic(expr) {
		domain := make([]Expr, len(spellings))
		for i, spelling := range spellings {
			domain[i] = NewBinaryExpr(EQ, expr, NewStringConstantExpr(spelling))
		}
		x.Trace(args, desc).Input().AddHardConstraint(NewOrExpr(domain...))
	}

	return &BooleanValue{
		Value: strings.EqualFold(s, "true"),
		Expr: NewOrExpr(
			NewBinaryExpr(EQ, expr, NewStringConstantExpr("true")),
			NewBinaryExpr(EQ, expr, NewStringConstantExpr("True")),
		),
	}
}

// invokeMath executes Math.max, Math.min & Math.abs over integers.
func invokeMath(x *Execution, name string, desc []Descriptor, args []Value) (Value, error) {
	if len(args) != len(desc) {
		return x.malformed(ownerMath, name, "expected %d arguments, got %d", len(desc), len(args)), nil
	}

	switch {
	case (name == "max" || name == "min") && (matchDesc(desc, DescInt, DescInt) || matchDesc(desc, DescLong, DescLong)):
		a, ok1 := args[0].(*IntValue)
		b, ok2 := args[1].(*IntValue)
		if !ok1 || !ok2 || a.Expr == nil || b.Expr == nil {
			return x.malformed(ownerMath, name, "expected integers"), nil
		}
		lt := NewBinaryExpr(LT, a.Expr, b.Expr)
		if name == "max" {
			if a.Value < b.Value {
				return &IntValue{Value: b.Value, Expr: NewIteExpr(lt, b.Expr, a.Expr), Bits: a.Bits}, nil
			}
			return &IntValue{Value: a.Value, Expr: NewIteExpr(lt, b.Expr, a.Expr), Bits: a.Bits}, nil
		}
		if a.Value < b.Value {
			return &IntValue{Value: a.Value, Expr: NewIteExpr(lt, a.Expr, b.Expr), Bits: a.Bits}, nil
		}
		return &IntValue{Value: b.Value, Expr: NewIteExpr(lt, a.Expr, b.Expr), Bits: a.Bits}, nil

	case name == "abs" && (matchDesc(desc, DescInt) || matchDesc(desc, DescLong)):
		a, ok := args[0].(*IntValue)
		if !ok || a.Expr == nil {
			return x.malformed(ownerMath, name, "argument is %T", args[0]), nil
		} else if (a.Bits == 32 && a.Value == math.MinInt32) || a.Value == math.MinInt64 {
			return x.degrade(ownerMath, name, "overflow"), nil
		}
		value := a.Value
		if value < 0 {
			value = -value
		}
		expr := NewIteExpr(NewBinaryExpr(LT, a.Expr, NewConstantExpr(0)), NewUnaryExpr(NEG, a.Expr), a.Expr)
		return &IntValue{Value: value, Expr: expr, Bits: a.Bits}, nil

	default:
		return x.degrade(ownerMath, name, "no handler"), nil
	}
}

// invokeDigestUtils hashes strings. The digest of a symbolic string is not
// modeled but remembers its source so digests can be compared.
func invokeDigestUtils(x *Execution, name string, desc []Descriptor, args []Value) (Value, error) {
	if !matchDesc(desc, DescString) || len(args) != 1 {
		return x.degrade(ownerDigestUtils, name, "unknown overload"), nil
	}
	src, ok := args[0].(*StringValue)
	if !ok || src.Expr == nil {
		return x.malformed(ownerDigestUtils, name, "argument is %T", args[0]), nil
	}
	sum := sha256.Sum256([]byte(src.Value))
	symbolic := IsSymbolic(src.Expr)

	switch name {
	case "sha256":
		elems := make([]Value, len(sum))
		for i, b := range sum {
			elem := &IntValue{Value: int64(int8(b)), Bits: 32}
			if !symbolic {
				elem.Expr = NewConstantExpr(elem.Value)
			}
			elems[i] = elem
		}
		arr := x.NewArrayOf(DescByte, elems)
		if symbolic {
			arr.Expr = nil
		}
		arr.Digest = src
		return arr, nil

	case "sha256Hex":
		if symbolic {
			return x.degrade(ownerDigestUtils, name, "symbolic argument"), nil
		}
		return x.NewString(hex.EncodeToString(sum[:]), nil), nil

	default:
		return x.degrade(ownerDigestUtils, name, "no handler"), nil
	}
}

// invokeMessageDigest compares digests. Digests of tracked strings are
// equal exactly when their sources are.
func invokeMessageDigest(x *Execution, name string, desc []Descriptor, args []Value) (Value, error) {
	if name != "isEqual" || !matchDesc(desc, DescByteArray, DescByteArray) || len(args) != 2 {
		return x.degrade(ownerMessageDigest, name, "no handler"), nil
	}
	a, ok1 := args[0].(*ArrayValue)
	b, ok2 := args[1].(*ArrayValue)
	if !ok1 || !ok2 {
		return x.malformed(ownerMessageDigest, name, "expected byte arrays"), nil
	}

	value := bytes.Equal(byteArray(a), byteArray(b))
	switch {
	case a.Digest != nil && b.Digest != nil:
		return &BooleanValue{Value: value, Expr: NewBinaryExpr(EQ, a.Digest.Expr, b.Digest.Expr)}, nil
	case a.Expr != nil && b.Expr != nil && allConstant(a.Elems) && allConstant(b.Elems):
		return NewBooleanValue(value), nil
	default:
		return x.degrade(ownerMessageDigest, name, "untracked digest"), nil
	}
}

// byteArray returns the concrete contents of a byte array.
func byteArray(arr *ArrayValue) []byte {
	buf := make([]byte, len(arr.Elems))
	for i, elem := range arr.Elems {
		if v, ok := elem.(*IntValue); ok {
			buf[i] = byte(v.Value)
		}
	}
	return buf
}

// invokeProvider introduces fresh symbolic inputs. The receiver is args[0].
// The concrete value returned by the host may follow the declared arguments
// and seeds the input; otherwise the zero value is used.
func invokeProvider(x *Execution, name string, desc []Descriptor, args []Value) (Value, error) {
	params := args[1:]
	var seed Value
	if len(params) == len(desc)+1 {
		seed, params = params[len(desc)], params[:len(desc)]
	} else if len(params) != len(desc) {
		return x.malformed(ownerProvider, name, "expected %d arguments, got %d", len(desc), len(params)), nil
	}

	switch {
	case (name == "consumeInt" || name == "getInt") && len(desc) == 0:
		v := x.registry.FreshSymbolicInt(x.store, seedInt(seed, 0))
		return &IntValue{Value: seedInt(seed, 0), Expr: v.Expr, Bits: 32}, nil

	case name == "consumeInt" && matchDesc(desc, DescInt, DescInt):
		lo, _, ok1 := intArg(params, 0)
		hi, _, ok2 := intArg(params, 1)
		if !ok1 || !ok2 || lo > hi {
			return x.malformed(ownerProvider, name, "invalid bounds"), nil
		}
		concrete := seedInt(seed, lo)
		v := x.registry.FreshBoundedInt(x.store, concrete, lo, hi)
		return &IntValue{Value: concrete, Expr: v.Expr, Bits: 32}, nil

	case (name == "consumeString" || name == "consumeAsciiString") && matchDesc(desc, DescInt):
		max, _, ok := intArg(params, 0)
		if !ok || max < 0 {
			return x.malformed(ownerProvider, name, "invalid max length"), nil
		}
		concrete, _ := concreteString(seed)
		v := x.registry.FreshSymbolicString(x.store, concrete)
		x.store.Input(v.Name).AddHardConstraint(NewBinaryExpr(LE, NewUnaryExpr(LENGTH, v.Expr), NewConstantExpr(max)))
		return &StringValue{Value: concrete, Expr: v.Expr, Addr: x.NextAddr()}, nil

	case (name == "getString" || name == "consumeRemainingAsString") && len(desc) == 0:
		concrete, _ := concreteString(seed)
		v := x.registry.FreshSymbolicString(x.store, concrete)
		return &StringValue{Value: concrete, Expr: v.Expr, Addr: x.NextAddr()}, nil

	case (name == "consumeBoolean" || name == "getBoolean") && len(desc) == 0:
		var concrete bool
		if b, ok := seed.(*BooleanValue); ok {
			concrete = b.Value
		}
		v := x.registry.FreshSymbolicBoolean(x.store, concrete)
		return &BooleanValue{Value: concrete, Expr: v.Expr}, nil

	case (name == "consumeChar" || name == "getChar") && len(desc) == 0:
		concrete := rune(seedInt(seed, 0))
		v := x.registry.FreshSymbolicChar(x.store, concrete)
		return &CharValue{Value: concrete, Expr: v.Expr}, nil

	default:
		return x.degrade(ownerProvider, name, "no handler"), nil
	}
}

// seedInt returns the concrete integer held by seed or def.
func seedInt(seed Value, def int64) int64 {
	switch v := seed.(type) {
	case *IntValue:
		return v.Value
	case *CharValue:
		return int64(v.Value)
	}
	return def
}

// invokeBoxed executes instance operations on boxed primitives.
func invokeBoxed(x *Execution, name string, desc []Descriptor, args []Value) (Value, error) {
	recv := args[0].(*BoxedValue)
	params := args[1:]

	switch name {
	case "intValue", "longValue", "shortValue", "byteValue":
		inner, ok := recv.Inner.(*IntValue)
		if !ok {
			return x.malformed(recv.Class, name, "boxed %T", recv.Inner), nil
		}
		if name == "longValue" {
			return &IntValue{Value: inner.Value, Expr: inner.Expr, Bits: 64}, nil
		} else if name == "intValue" && inner.Bits == 32 {
			return inner, nil
		}
		return x.degrade(recv.Class, name, "narrowing conversion"), nil
	case "charValue":
		if c, ok := recv.Inner.(*CharValue); ok {
			return c, nil
		}
		return x.malformed(recv.Class, name, "boxed %T", recv.Inner), nil
	case "booleanValue":
		if b, ok := recv.Inner.(*BooleanValue); ok {
			return b, nil
		}
		return x.malformed(recv.Class, name, "boxed %T", recv.Inner), nil
	case "toString":
		s, expr, ok := javaString(recv.Inner, boxedDesc(recv.Class))
		if !ok || expr == nil {
			return x.degrade(recv.Class, name, "not representable"), nil
		}
		return x.NewString(s, expr), nil
	case "equals":
		if len(params) != 1 {
			return x.malformed(recv.Class, name, "expected 1 argument, got %d", len(params)), nil
		}
		other, ok := params[0].(*BoxedValue)
		if !ok || other.Class != recv.Class {
			return NewBooleanValue(false), nil
		}
		a, b := recv.Inner.Formula(), other.Inner.Formula()
		if a == nil || b == nil {
			return x.degrade(recv.Class, name, "formula lost"), nil
		}
		return &BooleanValue{Value: recv.Inner.Concrete() == other.Inner.Concrete(), Expr: NewBinaryExpr(EQ, a, b)}, nil
	default:
		return x.degrade(recv.Class, name, "no handler"), nil
	}
}

// Box wraps a primitive in a freshly allocated box of the given class.
func (x *Execution) Box(class string, inner Value) *BoxedValue {
	return &BoxedValue{Class: class, Inner: inner, Addr: x.NextAddr()}
}

// boxedDesc returns the primitive descriptor wrapped by a box class.
func boxedDesc(class string) Descriptor {
	switch class {
	case ownerInteger:
		return DescInt
	case ownerLong:
		return DescLong
	case ownerCharacter:
		return DescChar
	case ownerBoolean:
		return DescBool
	default:
		return DescObject
	}
}
