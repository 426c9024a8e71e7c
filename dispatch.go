package swat

import (
	"fmt"
	"strings"
)

// DeclaringType is a class whose operations are modeled.
type DeclaringType int

// Modeled declaring types.
const (
	TypeUnknown DeclaringType = iota
	TypeObject
	TypeString
	TypeStringBuilder
	TypeInteger
	TypeLong
	TypeCharacter
	TypeBoolean
	TypeMath
	TypeDigestUtils
	TypeMessageDigest
	TypeProvider
)

var declaringTypes = [...]string{
	TypeUnknown:       "<unknown>",
	TypeObject:        "java/lang/Object",
	TypeString:        ownerString,
	TypeStringBuilder: ownerBuilder,
	TypeInteger:       ownerInteger,
	TypeLong:          ownerLong,
	TypeCharacter:     ownerCharacter,
	TypeBoolean:       ownerBoolean,
	TypeMath:          ownerMath,
	TypeDigestUtils:   ownerDigestUtils,
	TypeMessageDigest: ownerMessageDigest,
	TypeProvider:      ownerProvider,
}

// String returns the internal class name of the type.
func (t DeclaringType) String() string {
	if t >= 0 && t < DeclaringType(len(declaringTypes)) {
		return declaringTypes[t]
	}
	return fmt.Sprintf("DeclaringType<%d>", t)
}

// ParseDeclaringType returns the type for an internal ("java/lang/String")
// or binary ("java.lang.String") class name. StringBuffer shares the
// builder model. Input providers are matched by simple name.
func ParseDeclaringType(name string) DeclaringType {
	name = strings.ReplaceAll(name, ".", "/")

	switch name {
	case "java/lang/StringBuffer", "java/lang/AbstractStringBuilder":
		return TypeStringBuilder
	}
	for t, s := range declaringTypes {
		if s == name {
			return DeclaringType(t)
		}
	}

	simple := name[strings.LastIndex(name, "/")+1:]
	if simple == "FuzzedDataProvider" || simple == "ConcolicProvider" {
		return TypeProvider
	}
	return TypeUnknown
}

// Dispatch executes the operation name of declaringType on args and returns
// its dual result. Instance operations and constructors receive the receiver
// as args[0]; desc describes the remaining arguments. Operations that are
// not modeled return PlaceHolder. Only solver failures return an error.
func Dispatch(x *Execution, declaringType, name string, desc []Descriptor, args []Value) (Value, error) {
	typ := ParseDeclaringType(declaringType)

	switch typ {
	case TypeString:
		if isStringStatic(name) {
			return invokeStringStatic(x, name, desc, args)
		}
		return dispatchInstance(x, typ, name, desc, args)
	case TypeStringBuilder:
		if len(args) == 0 {
			return x.malformed(typ.String(), name, "missing receiver"), nil
		}
		return invokeBuilder(x, name, desc, args)
	case TypeInteger:
		if isBoxedReceiver(desc, args) {
			return dispatchInstance(x, typ, name, desc, args)
		}
		return invokeInteger(x, ownerInteger, 32, name, desc, args)
	case TypeLong:
		if isBoxedReceiver(desc, args) {
			return dispatchInstance(x, typ, name, desc, args)
		}
		return invokeInteger(x, ownerLong, 64, name, desc, args)
	case TypeCharacter:
		if isBoxedReceiver(desc, args) {
			return dispatchInstance(x, typ, name, desc, args)
		}
		return invokeCharacter(x, name, desc, args)
	case TypeBoolean:
		if isBoxedReceiver(desc, args) {
			return dispatchInstance(x, typ, name, desc, args)
		}
		return invokeBoolean(x, name, desc, args)
	case TypeMath:
		return invokeMath(x, name, desc, args)
	case TypeDigestUtils:
		return invokeDigestUtils(x, name, desc, args)
	case TypeMessageDigest:
		return invokeMessageDigest(x, name, desc, args)
	case TypeProvider:
		if len(args) == 0 {
			return x.malformed(typ.String(), name, "missing receiver"), nil
		}
		return invokeProvider(x, name, desc, args)
	default:
		// Interface and superclass calls are resolved by the receiver.
		return dispatchInstance(x, typ, name, desc, args)
	}
}

// dispatchInstance routes an instance operation by the variant of its receiver.
func dispatchInstance(x *Execution, typ DeclaringType, name string, desc []Descriptor, args []Value) (Value, error) {
	if len(args) == 0 || args[0] == nil {
		return x.degrade(typ.String(), name, "no receiver"), nil
	}

	switch args[0].(type) {
	case *StringValue:
		return invokeString(x, name, desc, args)
	case *StringBuilderValue:
		return invokeBuilder(x, name, desc, args)
	case *BoxedValue:
		return invokeBoxed(x, name, desc, args)
	case *ArrayValue:
		return invokeArray(x, name, desc, args)
	case *ObjectValue:
		return invokeObject(x, typ, name, args)
	default:
		return x.degrade(typ.String(), name, fmt.Sprintf("receiver is %T", args[0])), nil
	}
}

// invokeObject executes operations on opaque references. Only identity
// comparison is supported.
func invokeObject(x *Execution, typ DeclaringType, name string, args []Value) (Value, error) {
	recv := args[0].(*ObjectValue)

	switch {
	case name == "equals" && len(args) == 2:
		return NewBooleanValue(args[1] != nil && args[1].Address() == recv.Addr), nil
	default:
		return x.degrade(typ.String(), name, "opaque receiver"), nil
	}
}

// isStringStatic returns true for static String operations and constructors.
func isStringStatic(name string) bool {
	switch name {
	case "valueOf", "copyValueOf", "<init>":
		return true
	}
	return false
}

// isBoxedReceiver returns true if args carry a boxed receiver ahead of the
// declared arguments.
func isBoxedReceiver(desc []Descriptor, args []Value) bool {
	if len(args) != len(desc)+1 {
		return false
	}
	_, ok := args[0].(*BoxedValue)
	return ok
}
