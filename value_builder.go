package swat

import (
	"strings"
	"unicode/utf8"
)

const ownerBuilder = "java/lang/StringBuilder"

// invokeBuilder executes an operation on a string builder receiver.
// Mutating operations update the builder's arena entry and return the
// receiver so every alias observes the change.
func invokeBuilder(x *Execution, name string, desc []Descriptor, args []Value) (Value, error) {
	if name == "<init>" {
		return builderInit(x, desc, args), nil
	}

	recv, ok := args[0].(*StringBuilderValue)
	if !ok {
		return x.malformed(ownerBuilder, name, "receiver is %T", args[0]), nil
	} else if !x.arena.Valid(recv.Handle) {
		return x.degrade(ownerBuilder, name, "contents unknown"), nil
	}
	params := args[1:]
	if len(params) != len(desc) {
		return x.malformed(ownerBuilder, name, "expected %d arguments, got %d", len(desc), len(params)), nil
	} else if a, ok := builderArity[name]; ok && !a.accepts(len(params)) {
		return x.malformed(ownerBuilder, name, "unexpected argument count %d", len(params)), nil
	}

	switch name {
	case "append":
		return builderAppend(x, recv, desc, params), nil
	case "appendCodePoint":
		c := codePointChar(params[0])
		if c == nil {
			return x.degrade(ownerBuilder, name, "invalid code point"), nil
		}
		return builderAppend(x, recv, []Descriptor{DescChar}, []Value{c}), nil
	case "insert":
		return builderInsert(x, recv, desc, params), nil
	case "delete", "replace":
		return builderReplace(x, name, recv, desc, params), nil
	case "deleteCharAt":
		return builderDeleteCharAt(x, recv, params), nil
	case "reverse":
		return builderReverse(x, recv), nil
	case "setCharAt":
		return builderSetCharAt(x, recv, params), nil
	case "setLength":
		return builderSetLength(x, recv, params), nil
	case "toString":
		value, expr := x.arena.Get(recv.Handle)
		if expr == nil {
			return x.degrade(ownerBuilder, name, "formula lost"), nil
		}
		return x.NewString(value, expr), nil
	case "equals":
		other := params[0]
		return NewBooleanValue(other != nil && other.Address() == recv.Addr && recv.Addr != AddressUnknown), nil
	case "length", "charAt", "codePointAt", "indexOf", "lastIndexOf", "isEmpty", "substring", "subSequence":
		value, expr := x.arena.Get(recv.Handle)
		if expr == nil {
			return x.degrade(ownerBuilder, name, "formula lost"), nil
		}
		view := &StringValue{Value: value, Expr: expr, Addr: recv.Addr}
		return invokeString(x, name, desc, append([]Value{view}, params...))
	default:
		return x.degrade(ownerBuilder, name, "no handler"), nil
	}
}

// Read-only operations forwarded to the string view are checked there.
var builderArity = map[string]arity{
	"toString": {0, 0}, "reverse": {0, 0},
	"append": {1, 3}, "appendCodePoint": {1, 1}, "deleteCharAt": {1, 1}, "setLength": {1, 1}, "equals": {1, 1},
	"insert": {2, 2}, "delete": {2, 2}, "setCharAt": {2, 2},
	"replace": {3, 3},
}

// builderInit initializes the receiver, or allocates a builder when the
// receiver is an uninitialized object reference.
func builderInit(x *Execution, desc []Descriptor, args []Value) Value {
	value, expr := "", Expr(NewStringConstantExpr(""))

	switch {
	case len(desc) == 0, matchDesc(desc, DescInt):
	case matchDesc(desc, DescString), matchDesc(desc, DescCharSequence):
		if len(args) < 2 || args[1] == nil {
			return x.degrade(ownerBuilder, "<init>", "null initial contents")
		}
		var ok bool
		if value, expr, ok = javaString(args[1], desc[0]); !ok {
			return x.malformed(ownerBuilder, "<init>", "initial contents is %T", args[1])
		}
	default:
		return x.degrade(ownerBuilder, "<init>", "unknown overload")
	}

	switch recv := args[0].(type) {
	case *StringBuilderValue:
		x.arena.Set(recv.Handle, value, expr)
		return recv
	case *ObjectValue:
		return x.arena.New(value, expr, recv.Addr)
	default:
		return x.NewBuilder(value, expr)
	}
}

func builderAppend(x *Execution, recv *StringBuilderValue, desc []Descriptor, params []Value) Value {
	value, expr := x.arena.Get(recv.Handle)

	var s string
	var sExpr Expr
	var ok bool
	switch {
	case len(desc) == 1:
		s, sExpr, ok = javaString(params[0], desc[0])

	case matchDesc(desc, DescCharArray, DescInt, DescInt):
		arr, isArray := params[0].(*ArrayValue)
		off, _, ok1 := intArg(params, 1)
		n, _, ok2 := intArg(params, 2)
		if !isArray || !ok1 || !ok2 || off < 0 || n < 0 || off+n > int64(len(arr.Elems)) {
			return x.degrade(ownerBuilder, "append", "invalid char range")
		}
		s, sExpr, ok = charsString(arr.Elems[off : off+n])

	case matchDesc(desc, DescCharSequence, DescInt, DescInt):
		var str string
		var strExpr Expr
		str, strExpr, ok = javaString(params[0], DescCharSequence)
		start, startExpr, ok1 := intArg(params, 1)
		end, endExpr, ok2 := intArg(params, 2)
		runes := []rune(str)
		if !ok || !ok1 || !ok2 || start < 0 || start > end || end > int64(len(runes)) {
			return x.degrade(ownerBuilder, "append", "invalid sequence range")
		}
		s = string(runes[start:end])
		if strExpr != nil {
			sExpr = NewSubstrExpr(strExpr, startExpr, NewBinaryExpr(SUB, endExpr, startExpr))
		}

	default:
		ok = false
	}

	// The concrete text of the argument is unknown, so the builder is too.
	if !ok {
		x.arena.Invalidate(recv.Handle)
		return x.degrade(ownerBuilder, "append", "argument not representable")
	}

	if expr != nil && sExpr != nil {
		expr = NewBinaryExpr(CONCAT, expr, sExpr)
	} else {
		expr = nil
	}
	x.arena.Set(recv.Handle, value+s, expr)
	return recv
}

func builderInsert(x *Execution, recv *StringBuilderValue, desc []Descriptor, params []Value) Value {
	value, expr := x.arena.Get(recv.Handle)
	if len(desc) != 2 || desc[0] != DescInt {
		return x.degrade(ownerBuilder, "insert", "unknown overload")
	}

	off, offExpr, ok := intArg(params, 0)
	if !ok {
		return x.malformed(ownerBuilder, "insert", "offset is %T", params[0])
	}
	runes := []rune(value)
	if off < 0 || off > int64(len(runes)) {
		return x.degrade(ownerBuilder, "insert", "offset out of range")
	}

	s, sExpr, ok := javaString(params[1], desc[1])
	if !ok {
		x.arena.Invalidate(recv.Handle)
		return x.degrade(ownerBuilder, "insert", "argument not representable")
	}

	if expr != nil && sExpr != nil {
		length := NewUnaryExpr(LENGTH, expr)
		expr = concatExprs(
			NewSubstrExpr(expr, NewConstantExpr(0), offExpr),
			sExpr,
			NewSubstrExpr(expr, offExpr, NewBinaryExpr(SUB, length, offExpr)),
		)
	} else {
		expr = nil
	}
	x.arena.Set(recv.Handle, string(runes[:off])+s+string(runes[off:]), expr)
	return recv
}

// builderReplace implements delete(start, end) and replace(start, end, str).
// Java clamps end to the current length.
func builderReplace(x *Execution, name string, recv *StringBuilderValue, desc []Descriptor, params []Value) Value {
	value, expr := x.arena.Get(recv.Handle)

	start, startExpr, ok1 := intArg(params, 0)
	end, endExpr, ok2 := intArg(params, 1)
	if !ok1 || !ok2 {
		return x.malformed(ownerBuilder, name, "expected int range")
	}

	var s string
	var sExpr Expr = NewStringConstantExpr("")
	if name == "replace" {
		if !matchDesc(desc, DescInt, DescInt, DescString) {
			return x.degrade(ownerBuilder, name, "unknown overload")
		}
		var ok bool
		if s, sExpr, ok = strArg(params, 2); !ok {
			return x.malformed(ownerBuilder, name, "replacement is %T", params[2])
		}
	}

	runes := []rune(value)
	n := int64(len(runes))
	if end > n {
		end = n
	}
	if start < 0 || start > n || start > end {
		return x.degrade(ownerBuilder, name, "index out of range")
	}

	if expr != nil {
		length := NewUnaryExpr(LENGTH, expr)
		clamped := NewIteExpr(NewBinaryExpr(LT, length, endExpr), length, endExpr)
		expr = concatExprs(
			NewSubstrExpr(expr, NewConstantExpr(0), startExpr),
			sExpr,
			NewSubstrExpr(expr, clamped, NewBinaryExpr(SUB, length, clamped)),
		)
	}
	x.arena.Set(recv.Handle, string(runes[:start])+s+string(runes[end:]), expr)
	return recv
}

func builderDeleteCharAt(x *Execution, recv *StringBuilderValue, params []Value) Value {
	value, expr := x.arena.Get(recv.Handle)

	i, iExpr, ok := intArg(params, 0)
	if !ok {
		return x.malformed(ownerBuilder, "deleteCharAt", "index is %T", params[0])
	}
	runes := []rune(value)
	if i < 0 || i >= int64(len(runes)) {
		return x.degrade(ownerBuilder, "deleteCharAt", "index out of range")
	}

	if expr != nil {
		next := NewBinaryExpr(ADD, iExpr, NewConstantExpr(1))
		expr = NewBinaryExpr(CONCAT,
			NewSubstrExpr(expr, NewConstantExpr(0), iExpr),
			NewSubstrExpr(expr, next, NewBinaryExpr(SUB, NewUnaryExpr(LENGTH, expr), next)),
		)
	}
	x.arena.Set(recv.Handle, string(runes[:i])+string(runes[i+1:]), expr)
	return recv
}

// builderReverse keeps a formula only for constant contents.
func builderReverse(x *Execution, recv *StringBuilderValue) Value {
	value, expr := x.arena.Get(recv.Handle)

	runes := []rune(value)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	if expr != nil && IsConstantExpr(expr) {
		expr = NewStringConstantExpr(string(runes))
	} else {
		expr = nil
	}
	x.arena.Set(recv.Handle, string(runes), expr)
	return recv
}

func builderSetCharAt(x *Execution, recv *StringBuilderValue, params []Value) Value {
	value, expr := x.arena.Get(recv.Handle)

	i, iExpr, ok1 := intArg(params, 0)
	c, ok2 := params[1].(*CharValue)
	if !ok1 || !ok2 {
		return x.malformed(ownerBuilder, "setCharAt", "expected index and char")
	}
	runes := []rune(value)
	if i < 0 || i >= int64(len(runes)) {
		return x.degrade(ownerBuilder, "setCharAt", "index out of range")
	}
	runes[i] = c.Value

	if expr != nil && c.Expr != nil {
		next := NewBinaryExpr(ADD, iExpr, NewConstantExpr(1))
		expr = concatExprs(
			NewSubstrExpr(expr, NewConstantExpr(0), iExpr),
			NewUnaryExpr(FROMCODE, c.Expr),
			NewSubstrExpr(expr, next, NewBinaryExpr(SUB, NewUnaryExpr(LENGTH, expr), next)),
		)
	} else {
		expr = nil
	}
	x.arena.Set(recv.Handle, string(runes), expr)
	return PlaceHolder
}

// builderSetLength truncates or pads with NUL characters. A symbolic length
// drops the formula.
func builderSetLength(x *Execution, recv *StringBuilderValue, params []Value) Value {
	value, expr := x.arena.Get(recv.Handle)

	n, nExpr, ok := intArg(params, 0)
	if !ok {
		return x.malformed(ownerBuilder, "setLength", "length is %T", params[0])
	} else if n < 0 {
		return x.degrade(ownerBuilder, "setLength", "negative length")
	}

	runes := []rune(value)
	var pad string
	if n < int64(len(runes)) {
		runes = runes[:n]
	} else {
		pad = strings.Repeat("\x00", int(n)-len(runes))
	}

	if expr != nil && IsConstantExpr(nExpr) {
		if pad == "" {
			expr = NewSubstrExpr(expr, NewConstantExpr(0), nExpr)
		} else {
			expr = NewBinaryExpr(CONCAT, expr, NewStringConstantExpr(pad))
		}
	} else {
		expr = nil
	}
	x.arena.Set(recv.Handle, string(runes)+pad, expr)
	return PlaceHolder
}

// codePointChar converts an int code point argument into a char value.
func codePointChar(v Value) Value {
	switch v := v.(type) {
	case *IntValue:
		if v.Value < 0 || v.Value > MaxCodePoint || !utf8.ValidRune(rune(v.Value)) {
			return nil
		}
		return &CharValue{Value: rune(v.Value), Expr: v.Expr}
	case *CharValue:
		return v
	}
	return nil
}

// concatExprs returns the concatenation of all exprs.
func concatExprs(exprs ...Expr) Expr {
	var result Expr = NewStringConstantExpr("")
	for _, expr := range exprs {
		result = NewBinaryExpr(CONCAT, result, expr)
	}
	return result
}
