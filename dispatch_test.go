package swat_test

import (
	"testing"

	"github.com/dualtrace/swat"
)

func TestParseDeclaringType(t *testing.T) {
	for _, tt := range []struct {
		name string
		want swat.DeclaringType
	}{
		{"java/lang/String", swat.TypeString},
		{"java.lang.String", swat.TypeString},
		{"java/lang/StringBuilder", swat.TypeStringBuilder},
		{"java/lang/StringBuffer", swat.TypeStringBuilder},
		{"java.lang.AbstractStringBuilder", swat.TypeStringBuilder},
		{"java/lang/Integer", swat.TypeInteger},
		{"java/lang/Long", swat.TypeLong},
		{"java/lang/Character", swat.TypeCharacter},
		{"java/lang/Boolean", swat.TypeBoolean},
		{"java/lang/Math", swat.TypeMath},
		{"java/lang/Object", swat.TypeObject},
		{"org/apache/commons/codec/digest/DigestUtils", swat.TypeDigestUtils},
		{"java/security/MessageDigest", swat.TypeMessageDigest},
		{providerClass, swat.TypeProvider},
		{"com/example/ConcolicProvider", swat.TypeProvider},
		{"ConcolicProvider", swat.TypeProvider},
		{"java/util/List", swat.TypeUnknown},
		{"", swat.TypeUnknown},
	} {
		if got := swat.ParseDeclaringType(tt.name); got != tt.want {
			t.Errorf("ParseDeclaringType(%q)=%s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestDeclaringType_String(t *testing.T) {
	if got, want := swat.TypeString.String(), "java/lang/String"; got != want {
		t.Fatalf("String()=%s, want %s", got, want)
	} else if got, want := swat.TypeUnknown.String(), "<unknown>"; got != want {
		t.Fatalf("String()=%s, want %s", got, want)
	} else if got, want := swat.DeclaringType(100).String(), "DeclaringType<100>"; got != want {
		t.Fatalf("String()=%s, want %s", got, want)
	}
}

func TestDispatch(t *testing.T) {
	t.Run("Interface", func(t *testing.T) {
		e := MustNewEngine(t)
		s := MustConsumeString(t, e, "abc")
		v := MustInvoke(t, e, "java/lang/CharSequence", "length", nil, s)
		if got := v.(*swat.IntValue).Value; got != 3 {
			t.Fatalf("unexpected length: %d", got)
		}
		MustBeConsistent(t, e, v)
	})

	t.Run("BinaryName", func(t *testing.T) {
		e := MustNewEngine(t)
		s := MustConsumeString(t, e, "abc")
		v := MustInvoke(t, e, "java.lang.String", "isEmpty", nil, s)
		if v.(*swat.BooleanValue).Value {
			t.Fatal("expected non-empty")
		}
		MustBeConsistent(t, e, v)
	})

	t.Run("ObjectEquals", func(t *testing.T) {
		e := MustNewEngine(t)
		a := &swat.ObjectValue{Class: "java/util/List", Addr: e.Execution().NextAddr()}
		b := &swat.ObjectValue{Class: "java/util/List", Addr: e.Execution().NextAddr()}
		desc := []swat.Descriptor{swat.DescObject}
		if v := MustInvoke(t, e, "java/lang/Object", "equals", desc, a, a); !v.(*swat.BooleanValue).Value {
			t.Fatal("expected reference equality")
		} else if v := MustInvoke(t, e, "java/lang/Object", "equals", desc, a, b); v.(*swat.BooleanValue).Value {
			t.Fatal("expected distinct references")
		} else if v := MustInvoke(t, e, "java/lang/Object", "equals", desc, a, nil); v.(*swat.BooleanValue).Value {
			t.Fatal("expected false for null")
		}
	})

	// Unmodeled operations never fail the host.
	t.Run("Unknown", func(t *testing.T) {
		e := MustNewEngine(t)
		obj := &swat.ObjectValue{Class: "java/util/List", Addr: e.Execution().NextAddr()}
		v, err := e.Invoke("java/util/List", "size", nil, []swat.Value{obj})
		if err != nil {
			t.Fatal(err)
		} else if !swat.IsPlaceHolder(v) {
			t.Fatalf("expected placeholder, got %s", v)
		}
	})

	t.Run("NullReceiver", func(t *testing.T) {
		e := MustNewEngine(t)
		if v := MustInvoke(t, e, "java/lang/CharSequence", "length", nil, nil); !swat.IsPlaceHolder(v) {
			t.Fatalf("expected placeholder, got %s", v)
		}
	})

	t.Run("MissingReceiver", func(t *testing.T) {
		e := MustNewEngine(t)
		if v := MustInvoke(t, e, providerClass, "consumeInt", nil); !swat.IsPlaceHolder(v) {
			t.Fatalf("expected placeholder, got %s", v)
		} else if v := MustInvoke(t, e, builderClass, "toString", nil); !swat.IsPlaceHolder(v) {
			t.Fatalf("expected placeholder, got %s", v)
		}
	})

	t.Run("StringBuffer", func(t *testing.T) {
		e := MustNewEngine(t)
		sb := MustNewBuilder(t, e, MustConsumeString(t, e, "ab"))
		v := MustInvoke(t, e, "java/lang/StringBuffer", "toString", nil, sb)
		if got := v.(*swat.StringValue).Value; got != "ab" {
			t.Fatalf("unexpected value: %q", got)
		}
		MustBeConsistent(t, e, v)
	})
}

func TestDispatch_Array(t *testing.T) {
	e := MustNewEngine(t)
	s := MustConsumeString(t, e, "hi")
	arr := MustInvoke(t, e, stringClass, "toCharArray", nil, s).(*swat.ArrayValue)

	t.Run("Clone", func(t *testing.T) {
		v := MustInvoke(t, e, "java/lang/Object", "clone", nil, arr)
		other := v.(*swat.ArrayValue)
		if other.Addr == arr.Addr {
			t.Fatal("expected fresh address")
		} else if got, want := len(other.Elems), 2; got != want {
			t.Fatalf("len=%d, want %d", got, want)
		} else if other.Formula() != arr.Formula() {
			t.Fatal("expected formula to be shared")
		}

		// The clone does not alias the original elements.
		MustApply(t, e, swat.CASTORE, other, swat.NewIntValue(0), swat.NewCharValue('x'))
		if got := arr.Elems[0].(*swat.CharValue).Value; got != 'h' {
			t.Fatalf("original mutated: %q", got)
		}
	})

	t.Run("Equals", func(t *testing.T) {
		desc := []swat.Descriptor{swat.DescObject}
		if v := MustInvoke(t, e, "java/lang/Object", "equals", desc, arr, arr); !v.(*swat.BooleanValue).Value {
			t.Fatal("expected reference equality")
		}
		clone := MustInvoke(t, e, "java/lang/Object", "clone", nil, arr)
		if v := MustInvoke(t, e, "java/lang/Object", "equals", desc, arr, clone); v.(*swat.BooleanValue).Value {
			t.Fatal("expected distinct references")
		}
	})

	t.Run("NoHandler", func(t *testing.T) {
		if v := MustInvoke(t, e, "java/lang/Object", "hashCode", nil, arr); !swat.IsPlaceHolder(v) {
			t.Fatalf("expected placeholder, got %s", v)
		}
	})
}
