package swat

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const ownerString = "java/lang/String"

// invokeString executes an instance operation on a string receiver.
// The receiver is args[0]; desc describes the remaining arguments.
func invokeString(x *Execution, name string, desc []Descriptor, args []Value) (Value, error) {
	recv, ok := args[0].(*StringValue)
	if !ok || recv.Expr == nil {
		return x.malformed(ownerString, name, "receiver is %T", args[0]), nil
	}
	params := args[1:]
	if len(params) != len(desc) {
		return x.malformed(ownerString, name, "expected %d arguments, got %d", len(desc), len(params)), nil
	} else if a, ok := stringArity[name]; ok && !a.accepts(len(params)) {
		return x.malformed(ownerString, name, "unexpected argument count %d", len(params)), nil
	}

	switch name {
	case "length":
		return stringLength(x, recv), nil
	case "isEmpty":
		return stringIsEmpty(recv), nil
	case "charAt", "codePointAt":
		return stringCharAt(x, name, recv, params), nil
	case "concat":
		return stringConcat(x, recv, params), nil
	case "contains":
		return stringContains(x, recv, params), nil
	case "startsWith":
		return stringStartsWith(x, recv, desc, params), nil
	case "endsWith":
		return stringEndsWith(x, recv, params), nil
	case "equals":
		return stringEquals(recv, params), nil
	case "indexOf":
		return stringIndexOf(x, recv, desc, params), nil
	case "substring", "subSequence":
		return stringSubstring(x, name, recv, params), nil
	case "replace":
		return stringReplace(x, recv, desc, params), nil
	case "replaceAll", "replaceFirst":
		return stringReplaceRegex(x, name, recv, params), nil
	case "split":
		return stringSplit(x, recv, desc, args)
	case "getChars":
		return stringGetChars(x, recv, params), nil
	case "toCharArray":
		return stringToCharArray(x, recv), nil
	case "toString", "intern":
		return recv, nil
	case "hashCode", "lastIndexOf", "isBlank", "trim", "strip", "matches",
		"toLowerCase", "toUpperCase", "compareTo", "equalsIgnoreCase":
		return stringConstantOnly(x, name, recv, desc, params), nil
	default:
		return x.degrade(ownerString, name, "no handler"), nil
	}
}

// arity is the range of argument counts an operation's overloads declare.
type arity struct{ min, max int }

func (a arity) accepts(n int) bool { return n >= a.min && n <= a.max }

var stringArity = map[string]arity{
	"length": {0, 0}, "isEmpty": {0, 0}, "toCharArray": {0, 0}, "toString": {0, 0}, "intern": {0, 0},
	"hashCode": {0, 0}, "isBlank": {0, 0}, "trim": {0, 0}, "strip": {0, 0},
	"toLowerCase": {0, 1}, "toUpperCase": {0, 1},
	"charAt": {1, 1}, "codePointAt": {1, 1}, "concat": {1, 1}, "contains": {1, 1}, "endsWith": {1, 1},
	"equals": {1, 1}, "equalsIgnoreCase": {1, 1}, "compareTo": {1, 1}, "matches": {1, 1},
	"startsWith": {1, 2}, "indexOf": {1, 2}, "lastIndexOf": {1, 2}, "substring": {1, 2}, "split": {1, 2},
	"subSequence": {2, 2}, "replace": {2, 2}, "replaceAll": {2, 2}, "replaceFirst": {2, 2},
	"getChars": {4, 4},
}

// stringLength counts UTF-16 code units like Java, which the formula's
// character count only matches for BMP text.
func stringLength(x *Execution, recv *StringValue) Value {
	if !isBMP(recv.Value) {
		return x.degrade(ownerString, "length", "supplementary characters")
	}
	return NewDerivedInt(int64(utf8.RuneCountInString(recv.Value)), NewUnaryExpr(LENGTH, recv.Expr))
}

func stringIsEmpty(recv *StringValue) Value {
	return &BooleanValue{
		Value: recv.Value == "",
		Expr:  NewBinaryExpr(EQ, NewUnaryExpr(LENGTH, recv.Expr), NewConstantExpr(0)),
	}
}

func stringCharAt(x *Execution, name string, recv *StringValue, params []Value) Value {
	i, iExpr, ok := intArg(params, 0)
	if !ok {
		return x.malformed(ownerString, name, "index is %T", params[0])
	}
	runes := []rune(recv.Value)
	if i < 0 || i >= int64(len(runes)) {
		return x.degrade(ownerString, name, "index out of range")
	} else if !isBMP(recv.Value) {
		return x.degrade(ownerString, name, "supplementary characters")
	}

	code := NewUnaryExpr(TOCODE, NewBinaryExpr(AT, recv.Expr, iExpr))
	if name == "codePointAt" {
		return NewDerivedInt(int64(runes[i]), code)
	}
	return &CharValue{Value: runes[i], Expr: code}
}

func stringConcat(x *Execution, recv *StringValue, params []Value) Value {
	other, otherExpr, ok := strArg(params, 0)
	if !ok {
		return x.malformed(ownerString, "concat", "argument is %T", params[0])
	}
	return x.NewString(recv.Value+other, NewBinaryExpr(CONCAT, recv.Expr, otherExpr))
}

func stringContains(x *Execution, recv *StringValue, params []Value) Value {
	other, otherExpr, ok := strArg(params, 0)
	if !ok {
		return x.malformed(ownerString, "contains", "argument is %T", params[0])
	}
	return &BooleanValue{
		Value: strings.Contains(recv.Value, other),
		Expr:  NewBinaryExpr(CONTAINS, recv.Expr, otherExpr),
	}
}

func stringStartsWith(x *Execution, recv *StringValue, desc []Descriptor, params []Value) Value {
	prefix, prefixExpr, ok := strArg(params, 0)
	if !ok {
		return x.malformed(ownerString, "startsWith", "prefix is %T", params[0])
	}

	switch {
	case matchDesc(desc, DescString):
		return &BooleanValue{
			Value: strings.HasPrefix(recv.Value, prefix),
			Expr:  NewBinaryExpr(PREFIXOF, prefixExpr, recv.Expr),
		}

	case matchDesc(desc, DescString, DescInt):
		off, offExpr, ok := intArg(params, 1)
		if !ok {
			return x.malformed(ownerString, "startsWith", "offset is %T", params[1])
		}
		runes := []rune(recv.Value)
		value := off >= 0 && off <= int64(len(runes)) && strings.HasPrefix(string(runes[off:]), prefix)

		length := NewUnaryExpr(LENGTH, recv.Expr)
		return &BooleanValue{
			Value: value,
			Expr: NewAndExpr(
				NewBinaryExpr(LE, NewConstantExpr(0), offExpr),
				NewBinaryExpr(LE, offExpr, length),
				NewBinaryExpr(PREFIXOF, prefixExpr, NewSubstrExpr(recv.Expr, offExpr, NewBinaryExpr(SUB, length, offExpr))),
			),
		}
	default:
		return x.degrade(ownerString, "startsWith", "unknown overload")
	}
}

func stringEndsWith(x *Execution, recv *StringValue, params []Value) Value {
	suffix, suffixExpr, ok := strArg(params, 0)
	if !ok {
		return x.malformed(ownerString, "endsWith", "suffix is %T", params[0])
	}
	return &BooleanValue{
		Value: strings.HasSuffix(recv.Value, suffix),
		Expr:  NewBinaryExpr(SUFFIXOF, suffixExpr, recv.Expr),
	}
}

// stringEquals compares contents only with another string. Any other
// argument, including a builder holding the same text, is never equal.
func stringEquals(recv *StringValue, params []Value) Value {
	if other, ok := params[0].(*StringValue); ok && other.Expr != nil {
		return &BooleanValue{
			Value: recv.Value == other.Value,
			Expr:  NewBinaryExpr(EQ, recv.Expr, other.Expr),
		}
	}
	return NewBooleanValue(false)
}

func stringIndexOf(x *Execution, recv *StringValue, desc []Descriptor, params []Value) Value {
	if !isBMP(recv.Value) {
		return x.degrade(ownerString, "indexOf", "supplementary characters")
	}

	// Resolve the searched text from a string or a code point.
	var sub string
	var subExpr, guard Expr
	switch {
	case len(desc) >= 1 && desc[0] == DescString:
		var ok bool
		if sub, subExpr, ok = strArg(params, 0); !ok {
			return x.malformed(ownerString, "indexOf", "argument is %T", params[0])
		}
	case len(desc) >= 1 && desc[0] == DescInt:
		ch, chExpr, ok := intArg(params, 0)
		if !ok {
			return x.malformed(ownerString, "indexOf", "argument is %T", params[0])
		}
		if ch >= 0 && ch <= MaxCodePoint {
			sub = string(rune(ch))
		}
		subExpr = NewUnaryExpr(FROMCODE, chExpr)
		guard = NewAndExpr(
			NewBinaryExpr(LE, NewConstantExpr(0), chExpr),
			NewBinaryExpr(LE, chExpr, NewConstantExpr(MaxCodePoint)),
		)
	default:
		return x.degrade(ownerString, "indexOf", "unknown overload")
	}

	// Java clamps the start index into [0, length].
	var from int64
	var fromExpr Expr = NewConstantExpr(0)
	length := NewUnaryExpr(LENGTH, recv.Expr)
	switch len(desc) {
	case 1:
	case 2:
		f, fExpr, ok := intArg(params, 1)
		if !ok {
			return x.malformed(ownerString, "indexOf", "fromIndex is %T", params[1])
		}
		from = f
		fromExpr = NewIteExpr(NewBinaryExpr(LT, fExpr, NewConstantExpr(0)), NewConstantExpr(0),
			NewIteExpr(NewBinaryExpr(LT, length, fExpr), length, fExpr))
	default:
		return x.degrade(ownerString, "indexOf", "unknown overload")
	}

	value := javaIndexOf(recv.Value, sub, from)
	if guard != nil && sub == "" {
		value = -1
	}
	expr := NewIndexOfExpr(recv.Expr, subExpr, fromExpr)
	if guard != nil {
		expr = NewIteExpr(guard, expr, NewConstantExpr(-1))
	}
	return NewDerivedInt(value, expr)
}

func stringSubstring(x *Execution, name string, recv *StringValue, params []Value) Value {
	runes := []rune(recv.Value)
	length := NewUnaryExpr(LENGTH, recv.Expr)

	begin, beginExpr, ok := intArg(params, 0)
	if !ok {
		return x.malformed(ownerString, name, "beginIndex is %T", params[0])
	}
	end, endExpr := int64(len(runes)), length
	if len(params) == 2 {
		if end, endExpr, ok = intArg(params, 1); !ok {
			return x.malformed(ownerString, name, "endIndex is %T", params[1])
		}
	}
	if begin < 0 || end > int64(len(runes)) || begin > end {
		return x.degrade(ownerString, name, "index out of range")
	} else if !isBMP(recv.Value) {
		return x.degrade(ownerString, name, "supplementary characters")
	}

	expr := NewSubstrExpr(recv.Expr, beginExpr, NewBinaryExpr(SUB, endExpr, beginExpr))
	return x.NewString(string(runes[begin:end]), expr)
}

func stringReplace(x *Execution, recv *StringValue, desc []Descriptor, params []Value) Value {
	var src, dst string
	var srcExpr, dstExpr Expr

	switch {
	case matchDesc(desc, DescChar, DescChar):
		a, aExpr, ok := intArg(params, 0)
		b, bExpr, ok2 := intArg(params, 1)
		if !ok || !ok2 {
			return x.malformed(ownerString, "replace", "expected chars")
		}
		src, dst = string(rune(a)), string(rune(b))
		srcExpr, dstExpr = NewUnaryExpr(FROMCODE, aExpr), NewUnaryExpr(FROMCODE, bExpr)

	case matchDesc(desc, DescCharSequence, DescCharSequence):
		var ok, ok2 bool
		src, srcExpr, ok = strArg(params, 0)
		dst, dstExpr, ok2 = strArg(params, 1)
		if !ok || !ok2 {
			return x.malformed(ownerString, "replace", "expected char sequences")
		}

		// An empty target inserts the replacement around every character,
		// which str.replace_all does not express.
		if !IsConstantExpr(srcExpr) {
			return x.degrade(ownerString, "replace", "symbolic target")
		} else if src == "" {
			return x.degrade(ownerString, "replace", "empty target")
		}

	default:
		return x.degrade(ownerString, "replace", "unknown overload")
	}

	return x.NewString(strings.ReplaceAll(recv.Value, src, dst), NewReplaceExpr(recv.Expr, srcExpr, dstExpr, true))
}

// stringReplaceRegex models replaceAll and replaceFirst for patterns that
// match a single literal and replacements without group references.
func stringReplaceRegex(x *Execution, name string, recv *StringValue, params []Value) Value {
	pattern, patternExpr, ok := strArg(params, 0)
	repl, replExpr, ok2 := strArg(params, 1)
	if !ok || !ok2 {
		return x.malformed(ownerString, name, "expected strings")
	}
	if !IsConstantExpr(patternExpr) || !IsConstantExpr(replExpr) {
		return x.degrade(ownerString, name, "symbolic pattern")
	}
	literal, ok := LiteralDelimiter(pattern)
	if !ok || strings.ContainsAny(repl, `$\`) {
		return x.degrade(ownerString, name, "non-literal pattern")
	}

	all := name == "replaceAll"
	value := strings.Replace(recv.Value, literal, repl, 1)
	if all {
		value = strings.ReplaceAll(recv.Value, literal, repl)
	}
	return x.NewString(value, NewReplaceExpr(recv.Expr, NewStringConstantExpr(literal), replExpr, all))
}

func stringSplit(x *Execution, recv *StringValue, desc []Descriptor, args []Value) (Value, error) {
	var limit int
	switch {
	case matchDesc(desc, DescString):
	case matchDesc(desc, DescString, DescInt):
		n, nExpr, ok := intArg(args[1:], 1)
		if !ok {
			return x.malformed(ownerString, "split", "limit is %T", args[2]), nil
		} else if !IsConstantExpr(nExpr) {
			return x.degrade(ownerString, "split", "symbolic limit"), nil
		}
		limit = int(n)
	default:
		return x.degrade(ownerString, "split", "unknown overload"), nil
	}

	trace := x.Trace(args, desc)
	return NewSplitBuilder(x).Build(trace, recv, args[1], limit)
}

// stringGetChars copies characters into a char array in place.
func stringGetChars(x *Execution, recv *StringValue, params []Value) Value {
	begin, beginExpr, ok := intArg(params, 0)
	end, _, ok2 := intArg(params, 1)
	dst, ok3 := params[2].(*ArrayValue)
	off, offExpr, ok4 := intArg(params, 3)
	if !ok || !ok2 || !ok3 || !ok4 || dst.Elem != DescChar {
		return x.malformed(ownerString, "getChars", "unexpected arguments")
	}
	runes := []rune(recv.Value)
	if begin < 0 || begin > end || end > int64(len(runes)) || off < 0 || off+end-begin > int64(len(dst.Elems)) {
		return x.degrade(ownerString, "getChars", "index out of range")
	} else if !isBMP(recv.Value) {
		return x.degrade(ownerString, "getChars", "supplementary characters")
	}

	for k := int64(0); k < end-begin; k++ {
		src := NewBinaryExpr(ADD, beginExpr, NewConstantExpr(k))
		c := &CharValue{Value: runes[begin+k], Expr: NewUnaryExpr(TOCODE, NewBinaryExpr(AT, recv.Expr, src))}
		storeElem(dst, off+k, NewBinaryExpr(ADD, offExpr, NewConstantExpr(k)), c)
	}
	return PlaceHolder
}

func stringToCharArray(x *Execution, recv *StringValue) Value {
	if !isBMP(recv.Value) {
		return x.degrade(ownerString, "toCharArray", "supplementary characters")
	}
	runes := []rune(recv.Value)
	elems := make([]Value, len(runes))
	for i, r := range runes {
		elems[i] = &CharValue{Value: r, Expr: NewUnaryExpr(TOCODE, NewBinaryExpr(AT, recv.Expr, NewConstantExpr(int64(i))))}
	}
	return x.NewArrayOf(DescChar, elems)
}

// stringConstantOnly evaluates operations whose formulas are not modeled.
// A result is produced only when every operand is constant.
func stringConstantOnly(x *Execution, name string, recv *StringValue, desc []Descriptor, params []Value) Value {
	if !IsConstantExpr(recv.Expr) || !allConstant(params) {
		return x.degrade(ownerString, name, "symbolic operand")
	}
	s := recv.Value

	switch name {
	case "hashCode":
		return NewIntValue(int64(javaHashCode(s)))
	case "isBlank":
		return NewBooleanValue(strings.TrimLeft(s, " \t\n\v\f\r\x1c\x1d\x1e\x1f") == "")
	case "trim":
		return x.NewString(strings.TrimFunc(s, func(r rune) bool { return r <= ' ' }), nil)
	case "strip":
		return x.NewString(strings.TrimSpace(s), nil)
	case "toLowerCase":
		return x.NewString(strings.ToLower(s), nil)
	case "toUpperCase":
		return x.NewString(strings.ToUpper(s), nil)
	case "equalsIgnoreCase":
		other, ok := params[0].(*StringValue)
		return NewBooleanValue(ok && strings.EqualFold(s, other.Value))
	case "compareTo":
		other, _, ok := strArg(params, 0)
		if !ok {
			return x.malformed(ownerString, name, "argument is %T", params[0])
		}
		return NewIntValue(int64(javaCompare(s, other)))
	case "matches":
		pattern, _, ok := strArg(params, 0)
		if !ok {
			return x.malformed(ownerString, name, "argument is %T", params[0])
		}
		re, err := compileJavaRegex("^(?:" + pattern + ")$")
		if err != nil {
			return x.degrade(ownerString, name, err.Error())
		}
		return NewBooleanValue(re.MatchString(s))
	case "lastIndexOf":
		if len(desc) != 1 {
			return x.degrade(ownerString, name, "unknown overload")
		}
		if sub, _, ok := strArg(params, 0); ok {
			return NewIntValue(javaLastIndexOf(s, sub))
		} else if ch, _, ok := intArg(params, 0); ok {
			return NewIntValue(javaLastIndexOf(s, string(rune(ch))))
		}
		return x.malformed(ownerString, name, "argument is %T", params[0])
	default:
		return x.degrade(ownerString, name, "no handler")
	}
}

// javaIndexOf returns the character index of sub in s at or after from.
func javaIndexOf(s, sub string, from int64) int64 {
	n := int64(utf8.RuneCountInString(s))
	if from < 0 {
		from = 0
	} else if from > n {
		from = n
	}
	return strIndexOf(s, sub, from)
}

// javaLastIndexOf returns the character index of the last occurrence of sub in s.
func javaLastIndexOf(s, sub string) int64 {
	i := strings.LastIndex(s, sub)
	if i < 0 {
		return -1
	}
	return int64(len(utf16.Encode([]rune(s[:i]))))
}

// javaHashCode returns the hash of s as computed by String.hashCode.
func javaHashCode(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(c)
	}
	return h
}

// javaCompare compares s & t lexicographically by UTF-16 code unit.
func javaCompare(s, t string) int {
	a, b := utf16.Encode([]rune(s)), utf16.Encode([]rune(t))
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}

// isBMP returns true if s only contains characters that fit in one Java char.
func isBMP(s string) bool {
	for _, r := range s {
		if r > 0xFFFF {
			return false
		}
	}
	return true
}

// intArg returns the concrete value and formula of an integral argument.
func intArg(params []Value, i int) (int64, Expr, bool) {
	if i >= len(params) {
		return 0, nil, false
	}
	switch v := params[i].(type) {
	case *IntValue:
		return v.Value, v.Expr, v.Expr != nil
	case *CharValue:
		return int64(v.Value), v.Expr, v.Expr != nil
	}
	return 0, nil, false
}

// strArg returns the concrete value and formula of a string-like argument.
func strArg(params []Value, i int) (string, Expr, bool) {
	if i >= len(params) {
		return "", nil, false
	}
	s, ok := concreteString(params[i])
	if !ok {
		return "", nil, false
	}
	expr := stringFormula(params[i])
	return s, expr, expr != nil
}

// allConstant returns true if every value has a constant formula.
func allConstant(values []Value) bool {
	for _, v := range values {
		if v == nil {
			continue
		} else if expr := v.Formula(); expr == nil || !IsConstantExpr(expr) {
			return false
		}
	}
	return true
}

// javaString returns the string representation of v as produced by
// String.valueOf or StringBuilder.append for the declared descriptor.
// Returns false if the concrete text is unknown. The formula is nil if
// the text is known but not modeled.
func javaString(v Value, d Descriptor) (string, Expr, bool) {
	switch d {
	case DescString, DescCharSequence, DescObject, DescStringBuilder:
		if v == nil {
			return "null", NewStringConstantExpr("null"), true
		} else if b, ok := v.(*BoxedValue); ok {
			return javaString(b.Inner, boxedDesc(b.Class))
		}
		s, ok := concreteString(v)
		return s, stringFormula(v), ok

	case DescInt, DescShort, DescByte, DescLong:
		i, ok := v.(*IntValue)
		if !ok {
			return "", nil, false
		} else if i.Expr == nil {
			return strconv.FormatInt(i.Value, 10), nil, true
		}
		return strconv.FormatInt(i.Value, 10), intToStringExpr(i.Expr), true

	case DescChar:
		c, ok := v.(*CharValue)
		if !ok {
			return "", nil, false
		} else if c.Expr == nil {
			return string(c.Value), nil, true
		}
		return string(c.Value), NewUnaryExpr(FROMCODE, c.Expr), true

	case DescBool:
		b, ok := v.(*BooleanValue)
		if !ok {
			return "", nil, false
		} else if b.Expr == nil {
			return strconv.FormatBool(b.Value), nil, true
		}
		return strconv.FormatBool(b.Value), NewIteExpr(b.Expr, NewStringConstantExpr("true"), NewStringConstantExpr("false")), true

	case DescCharArray:
		arr, ok := v.(*ArrayValue)
		if !ok || arr.Elem != DescChar {
			return "", nil, false
		}
		return charsString(arr.Elems)
	}
	return "", nil, false
}

// charsString returns the concatenation of a run of char values.
func charsString(elems []Value) (string, Expr, bool) {
	var sb strings.Builder
	var expr Expr = NewStringConstantExpr("")
	for _, elem := range elems {
		c, ok := elem.(*CharValue)
		if !ok {
			return "", nil, false
		}
		sb.WriteRune(c.Value)
		if expr != nil && c.Expr != nil {
			expr = NewBinaryExpr(CONCAT, expr, NewUnaryExpr(FROMCODE, c.Expr))
		} else {
			expr = nil
		}
	}
	return sb.String(), expr, true
}

// intToStringExpr returns the decimal representation of an integer formula.
func intToStringExpr(i Expr) Expr {
	return NewIteExpr(NewBinaryExpr(LT, i, NewConstantExpr(0)),
		NewBinaryExpr(CONCAT, NewStringConstantExpr("-"), NewUnaryExpr(FROMINT, NewUnaryExpr(NEG, i))),
		NewUnaryExpr(FROMINT, i),
	)
}

// NewDerivedInt returns a 32-bit integer computed from other values.
func NewDerivedInt(v int64, expr Expr) *IntValue {
	assert(v >= math.MinInt32 && v <= math.MaxInt32, "int out of range: %d", v)
	return &IntValue{Value: v, Expr: expr, Bits: 32}
}
