package swat_test

import (
	"testing"

	"github.com/dualtrace/swat"
)

const builderClass = "java/lang/StringBuilder"

func TestStringBuilder_Init(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		e := MustNewEngine(t)
		sb := MustNewBuilder(t, e, nil)
		if got := sb.Concrete(); got != "" {
			t.Fatalf("unexpected contents: %q", got)
		} else if !swat.IsConstantExpr(sb.Formula()) {
			t.Fatalf("expected constant formula: %s", sb.Formula())
		}
	})

	t.Run("String", func(t *testing.T) {
		e := MustNewEngine(t)
		s := MustConsumeString(t, e, "abc")
		sb := MustNewBuilder(t, e, s)
		if sb.Formula() != s.Expr {
			t.Fatalf("unexpected formula: %s", sb.Formula())
		}
		MustBeConsistent(t, e, sb)
	})

	t.Run("StringBuffer", func(t *testing.T) {
		e := MustNewEngine(t)
		recv := &swat.ObjectValue{Class: "java/lang/StringBuffer", Addr: e.Execution().NextAddr()}
		v := MustInvoke(t, e, "java.lang.StringBuffer", "<init>", []swat.Descriptor{swat.DescString}, recv, swat.NewStringValue("x"))
		if sb, ok := v.(*swat.StringBuilderValue); !ok {
			t.Fatalf("unexpected value: %s", v)
		} else if sb.Addr != recv.Addr {
			t.Fatalf("expected receiver address %d, got %d", recv.Addr, sb.Addr)
		}
	})

	t.Run("Null", func(t *testing.T) {
		e := MustNewEngine(t)
		recv := &swat.ObjectValue{Class: builderClass, Addr: e.Execution().NextAddr()}
		if v := MustInvoke(t, e, builderClass, "<init>", []swat.Descriptor{swat.DescString}, recv, nil); !swat.IsPlaceHolder(v) {
			t.Fatalf("expected placeholder, got %s", v)
		}
	})
}

func TestStringBuilder_Append(t *testing.T) {
	e := MustNewEngine(t)
	s := MustConsumeString(t, e, "id=")
	i := MustConsumeInt(t, e, 42)
	c := MustConsumeChar(t, e, ';')
	sb := MustNewBuilder(t, e, nil)

	// Every append returns the receiver itself.
	for _, step := range []struct {
		desc swat.Descriptor
		arg  swat.Value
	}{
		{swat.DescString, s},
		{swat.DescInt, i},
		{swat.DescChar, c},
		{swat.DescBool, swat.NewBooleanValue(true)},
		{swat.DescObject, nil},
	} {
		if v := MustInvoke(t, e, builderClass, "append", []swat.Descriptor{step.desc}, sb, step.arg); v != sb {
			t.Fatalf("append(%s): expected receiver, got %s", step.desc, v)
		}
	}

	if got, want := sb.Concrete(), "id=42;truenull"; got != want {
		t.Fatalf("contents=%q, want %q", got, want)
	}
	MustBeConsistent(t, e, sb)

	v := MustInvoke(t, e, builderClass, "toString", nil, sb)
	if got := v.(*swat.StringValue); got.Value != "id=42;truenull" {
		t.Fatalf("unexpected value: %q", got.Value)
	} else if got.Addr == sb.Addr {
		t.Fatal("expected fresh string")
	}
	MustBeConsistent(t, e, v)
}

func TestStringBuilder_AppendRange(t *testing.T) {
	t.Run("CharArray", func(t *testing.T) {
		e := MustNewEngine(t)
		chars := MustInvoke(t, e, stringClass, "toCharArray", nil, MustConsumeString(t, e, "hello"))
		sb := MustNewBuilder(t, e, nil)
		MustInvoke(t, e, builderClass, "append", []swat.Descriptor{swat.DescCharArray, swat.DescInt, swat.DescInt}, sb, chars, swat.NewIntValue(1), swat.NewIntValue(2))
		if got := sb.Concrete(); got != "el" {
			t.Fatalf("unexpected contents: %q", got)
		}
		MustBeConsistent(t, e, sb)
	})

	t.Run("CharSequence", func(t *testing.T) {
		e := MustNewEngine(t)
		s := MustConsumeString(t, e, "hello")
		sb := MustNewBuilder(t, e, nil)
		MustInvoke(t, e, builderClass, "append", []swat.Descriptor{swat.DescCharSequence, swat.DescInt, swat.DescInt}, sb, s, swat.NewIntValue(1), swat.NewIntValue(4))
		if got := sb.Concrete(); got != "ell" {
			t.Fatalf("unexpected contents: %q", got)
		}
		MustBeConsistent(t, e, sb)
	})

	t.Run("CodePoint", func(t *testing.T) {
		e := MustNewEngine(t)
		sb := MustNewBuilder(t, e, nil)
		MustInvoke(t, e, builderClass, "appendCodePoint", []swat.Descriptor{swat.DescInt}, sb, MustConsumeInt(t, e, 'A'))
		if got := sb.Concrete(); got != "A" {
			t.Fatalf("unexpected contents: %q", got)
		}
		MustBeConsistent(t, e, sb)
	})
}

func TestStringBuilder_Mutate(t *testing.T) {
	for _, tt := range []struct {
		name   string
		desc   []swat.Descriptor
		args   []swat.Value
		want   string
		result bool // returns the receiver
	}{
		{"insert", []swat.Descriptor{swat.DescInt, swat.DescString}, []swat.Value{swat.NewIntValue(0), swat.NewStringValue(">")}, ">hello", true},
		{"insert", []swat.Descriptor{swat.DescInt, swat.DescInt}, []swat.Value{swat.NewIntValue(5), swat.NewIntValue(7)}, "hello7", true},
		{"delete", []swat.Descriptor{swat.DescInt, swat.DescInt}, []swat.Value{swat.NewIntValue(1), swat.NewIntValue(3)}, "hlo", true},
		{"delete", []swat.Descriptor{swat.DescInt, swat.DescInt}, []swat.Value{swat.NewIntValue(2), swat.NewIntValue(99)}, "he", true},
		{"replace", []swat.Descriptor{swat.DescInt, swat.DescInt, swat.DescString}, []swat.Value{swat.NewIntValue(0), swat.NewIntValue(1), swat.NewStringValue("J")}, "Jello", true},
		{"deleteCharAt", []swat.Descriptor{swat.DescInt}, []swat.Value{swat.NewIntValue(4)}, "hell", true},
		{"setCharAt", []swat.Descriptor{swat.DescInt, swat.DescChar}, []swat.Value{swat.NewIntValue(0), swat.NewCharValue('c')}, "cello", false},
		{"setLength", []swat.Descriptor{swat.DescInt}, []swat.Value{swat.NewIntValue(2)}, "he", false},
		{"setLength", []swat.Descriptor{swat.DescInt}, []swat.Value{swat.NewIntValue(7)}, "hello\x00\x00", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			e := MustNewEngine(t)
			sb := MustNewBuilder(t, e, MustConsumeString(t, e, "hello"))

			v := MustInvoke(t, e, builderClass, tt.name, tt.desc, append([]swat.Value{sb}, tt.args...)...)
			if tt.result && v != sb {
				t.Fatalf("expected receiver, got %s", v)
			} else if !tt.result && !swat.IsPlaceHolder(v) {
				t.Fatalf("expected placeholder, got %s", v)
			}

			if got := sb.Concrete(); got != tt.want {
				t.Fatalf("contents=%q, want %q", got, tt.want)
			}
			MustBeConsistent(t, e, sb)
		})
	}
}

func TestStringBuilder_Reverse(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		e := MustNewEngine(t)
		sb := MustNewBuilder(t, e, swat.NewStringValue("abc"))
		MustInvoke(t, e, builderClass, "reverse", nil, sb)
		if got := sb.Concrete(); got != "cba" {
			t.Fatalf("unexpected contents: %q", got)
		}
		MustBeConsistent(t, e, sb)
	})

	t.Run("Symbolic", func(t *testing.T) {
		e := MustNewEngine(t)
		sb := MustNewBuilder(t, e, MustConsumeString(t, e, "abc"))
		MustInvoke(t, e, builderClass, "reverse", nil, sb)
		if got := sb.Concrete(); got != "cba" {
			t.Fatalf("unexpected contents: %q", got)
		} else if sb.Formula() != nil {
			t.Fatalf("expected formula to be dropped: %s", sb.Formula())
		}

		// Reads through a builder without a formula degrade; the contents
		// are still tracked.
		if v := MustInvoke(t, e, builderClass, "toString", nil, sb); !swat.IsPlaceHolder(v) {
			t.Fatalf("expected placeholder, got %s", v)
		}
		MustInvoke(t, e, builderClass, "append", []swat.Descriptor{swat.DescString}, sb, swat.NewStringValue("!"))
		if got := sb.Concrete(); got != "cba!" {
			t.Fatalf("unexpected contents: %q", got)
		}
	})
}

func TestStringBuilder_Read(t *testing.T) {
	e := MustNewEngine(t)
	sb := MustNewBuilder(t, e, MustConsumeString(t, e, "a,b"))

	v := MustInvoke(t, e, builderClass, "length", nil, sb)
	if got := v.(*swat.IntValue).Value; got != 3 {
		t.Fatalf("unexpected length: %d", got)
	}
	MustBeConsistent(t, e, v)

	v = MustInvoke(t, e, builderClass, "indexOf", []swat.Descriptor{swat.DescString}, sb, swat.NewStringValue(","))
	if got := v.(*swat.IntValue).Value; got != 1 {
		t.Fatalf("unexpected index: %d", got)
	}
	MustBeConsistent(t, e, v)

	v = MustInvoke(t, e, builderClass, "charAt", []swat.Descriptor{swat.DescInt}, sb, swat.NewIntValue(2))
	if got := v.(*swat.CharValue).Value; got != 'b' {
		t.Fatalf("unexpected char: %q", got)
	}
	MustBeConsistent(t, e, v)
}

func TestStringBuilder_ErrArity(t *testing.T) {
	i := swat.NewIntValue(0)
	for _, tt := range []struct {
		name string
		desc []swat.Descriptor
		args []swat.Value
	}{
		{"append", nil, nil},
		{"appendCodePoint", nil, nil},
		{"insert", []swat.Descriptor{swat.DescInt}, []swat.Value{i}},
		{"delete", []swat.Descriptor{swat.DescInt}, []swat.Value{i}},
		{"replace", []swat.Descriptor{swat.DescInt, swat.DescInt}, []swat.Value{i, i}},
		{"deleteCharAt", nil, nil},
		{"setCharAt", []swat.Descriptor{swat.DescInt}, []swat.Value{i}},
		{"setLength", nil, nil},
		{"equals", nil, nil},
		{"charAt", nil, nil},
		{"substring", nil, nil},
		{"toString", []swat.Descriptor{swat.DescInt}, []swat.Value{i}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			e := MustNewEngine(t)
			sb := MustNewBuilder(t, e, MustConsumeString(t, e, "abc"))
			if v := MustInvoke(t, e, builderClass, tt.name, tt.desc, append([]swat.Value{sb}, tt.args...)...); !swat.IsPlaceHolder(v) {
				t.Fatalf("expected placeholder, got %s", v)
			}

			// The builder stays usable.
			if got := MustInvoke(t, e, builderClass, "toString", nil, sb); got.Concrete() != "abc" {
				t.Fatalf("unexpected contents: %v", got.Concrete())
			}
		})
	}
}

func TestStringBuilder_Alias(t *testing.T) {
	e := MustNewEngine(t)
	sb := MustNewBuilder(t, e, nil)

	// The reference returned by a chained call observes every mutation.
	alias := MustInvoke(t, e, builderClass, "append", []swat.Descriptor{swat.DescString}, sb, swat.NewStringValue("x"))
	MustInvoke(t, e, builderClass, "append", []swat.Descriptor{swat.DescString}, alias, swat.NewStringValue("y"))
	if got := sb.Concrete(); got != "xy" {
		t.Fatalf("unexpected contents: %q", got)
	}

	if v := MustInvoke(t, e, builderClass, "equals", []swat.Descriptor{swat.DescObject}, sb, alias); !v.(*swat.BooleanValue).Value {
		t.Fatal("expected aliases to be equal")
	}
	other := MustNewBuilder(t, e, swat.NewStringValue("xy"))
	if v := MustInvoke(t, e, builderClass, "equals", []swat.Descriptor{swat.DescObject}, sb, other); v.(*swat.BooleanValue).Value {
		t.Fatal("expected distinct builders to differ")
	}
}

func TestStringBuilder_Invalidate(t *testing.T) {
	e := MustNewEngine(t)
	sb := MustNewBuilder(t, e, swat.NewStringValue("a"))

	obj := &swat.ObjectValue{Class: "java/util/UUID", Addr: e.Execution().NextAddr()}
	if v := MustInvoke(t, e, builderClass, "append", []swat.Descriptor{swat.DescObject}, sb, obj); !swat.IsPlaceHolder(v) {
		t.Fatalf("expected placeholder, got %s", v)
	} else if e.Execution().Arena().Valid(sb.Handle) {
		t.Fatal("expected builder to be invalidated")
	}

	// Every later operation degrades.
	if v := MustInvoke(t, e, builderClass, "length", nil, sb); !swat.IsPlaceHolder(v) {
		t.Fatalf("expected placeholder, got %s", v)
	}
	if v := MustInvoke(t, e, stringClass, "concat", []swat.Descriptor{swat.DescString}, swat.NewStringValue("b"), sb); !swat.IsPlaceHolder(v) {
		t.Fatalf("expected placeholder, got %s", v)
	}
}

func TestBuilderArena(t *testing.T) {
	a := swat.NewBuilderArena()
	sb0 := a.New("a", swat.NewStringConstantExpr("a"), 1)
	sb1 := a.New("b", nil, 2)
	if a.Len() != 2 {
		t.Fatalf("unexpected length: %d", a.Len())
	} else if sb0.Handle != 0 || sb1.Handle != 1 {
		t.Fatalf("unexpected handles: %d, %d", sb0.Handle, sb1.Handle)
	}

	a.Set(sb0.Handle, "ab", swat.NewStringConstantExpr("ab"))
	if s, expr := a.Get(sb0.Handle); s != "ab" || expr.String() != `"ab"` {
		t.Fatalf("unexpected entry: %q %s", s, expr)
	} else if sb0.Concrete() != "ab" {
		t.Fatalf("unexpected contents: %v", sb0.Concrete())
	}

	a.Invalidate(sb1.Handle)
	if a.Valid(sb1.Handle) {
		t.Fatal("expected invalid handle")
	} else if !a.Valid(sb0.Handle) {
		t.Fatal("expected valid handle")
	}
}

// MustNewBuilder allocates a string builder initialized with s, or an empty
// builder if s is nil.
func MustNewBuilder(tb testing.TB, e *swat.Engine, s swat.Value) *swat.StringBuilderValue {
	tb.Helper()
	recv := &swat.ObjectValue{Class: builderClass, Addr: e.Execution().NextAddr()}

	var v swat.Value
	if s == nil {
		v = MustInvoke(tb, e, builderClass, "<init>", nil, recv)
	} else {
		v = MustInvoke(tb, e, builderClass, "<init>", []swat.Descriptor{swat.DescString}, recv, s)
	}
	sb, ok := v.(*swat.StringBuilderValue)
	if !ok {
		tb.Fatalf("unexpected builder: %s", v)
	}
	return sb
}
