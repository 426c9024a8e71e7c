package swat_test

import (
	"errors"
	"testing"

	"github.com/dualtrace/swat"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestString_Split(t *testing.T) {
	desc := []swat.Descriptor{swat.DescString}
	descLimit := []swat.Descriptor{swat.DescString, swat.DescInt}

	t.Run("Literal", func(t *testing.T) {
		e := MustNewEngine(t)
		s := MustConsumeString(t, e, "a:b:c")
		arr := MustInvoke(t, e, stringClass, "split", desc, s, swat.NewStringValue(":")).(*swat.ArrayValue)
		if diff := cmp.Diff([]string{"a", "b", "c"}, arr.Strings()); diff != "" {
			t.Fatal(diff)
		}

		// One conjunction per segment on top of the baseline constraint.
		in := e.Execution().Store().Input("String_1")
		require.Len(t, in.HardConstraints, 4)

		h := MustSingleTrace(t, e)
		require.Equal(t, in, h.Input())
		require.Equal(t, []int64{-1, -1, -1, -2}, BranchEdges(h))
		require.Equal(t, []bool{true, true, true, false}, BranchTaken(h))

		// Every segment has length one.
		helpers := map[string]int64{"I_1": 1, "I_2": 1, "I_3": 1}
		for _, expr := range h.PathConstraints() {
			require.True(t, MustEvaluateWith(t, e, helpers, expr).IsTrue(), "%s", expr)
		}
		for i, elem := range arr.Elems {
			c := MustEvaluateWith(t, e, helpers, elem.Formula())
			require.Equal(t, arr.Strings()[i], c.Str)
		}
		require.Equal(t, "A_4", swat.FindArrays(arr.Expr)[0].Name)
	})

	t.Run("Empty", func(t *testing.T) {
		e := MustNewEngine(t)
		s := MustConsumeString(t, e, "")
		arr := MustInvoke(t, e, stringClass, "split", desc, s, swat.NewStringValue(":")).(*swat.ArrayValue)
		if diff := cmp.Diff([]string{""}, arr.Strings()); diff != "" {
			t.Fatal(diff)
		}

		h := MustSingleTrace(t, e)
		require.Len(t, h.Input().HardConstraints, 2)
		require.Equal(t, []bool{true, false}, BranchTaken(h))
		for _, expr := range h.PathConstraints() {
			require.True(t, MustEvaluateWith(t, e, map[string]int64{"I_1": 0}, expr).IsTrue(), "%s", expr)
		}
	})

	t.Run("Limit", func(t *testing.T) {
		e := MustNewEngine(t)
		s := MustConsumeString(t, e, "a:b:c")
		arr := MustInvoke(t, e, stringClass, "split", descLimit, s, swat.NewStringValue(":"), swat.NewIntValue(2)).(*swat.ArrayValue)
		if diff := cmp.Diff([]string{"a", "b:c"}, arr.Strings()); diff != "" {
			t.Fatal(diff)
		}

		// The remainder may still contain delimiters.
		h := MustSingleTrace(t, e)
		require.Len(t, h.Input().HardConstraints, 3)
		for _, expr := range h.Input().HardConstraints {
			require.NotContains(t, expr.String(), "str.contains")
		}
		require.Equal(t, []bool{true, true}, BranchTaken(h))
		for _, expr := range h.PathConstraints() {
			require.True(t, MustEvaluateWith(t, e, map[string]int64{"I_1": 1, "I_2": 3}, expr).IsTrue(), "%s", expr)
		}
	})

	t.Run("TrailingEmpty", func(t *testing.T) {
		e := MustNewEngine(t)
		s := MustConsumeString(t, e, "a,b,,")
		arr := MustInvoke(t, e, stringClass, "split", desc, s, swat.NewStringValue(",")).(*swat.ArrayValue)
		if diff := cmp.Diff([]string{"a", "b"}, arr.Strings()); diff != "" {
			t.Fatal(diff)
		}

		// The stripped segments are pinned to delimiters.
		h := MustSingleTrace(t, e)
		last := h.Input().HardConstraints[len(h.Input().HardConstraints)-1]
		require.Contains(t, last.String(), `",,"`)
		for _, expr := range h.PathConstraints() {
			require.True(t, MustEvaluateWith(t, e, map[string]int64{"I_1": 1, "I_2": 1}, expr).IsTrue(), "%s", expr)
		}
	})

	t.Run("NegativeLimit", func(t *testing.T) {
		e := MustNewEngine(t)
		s := MustConsumeString(t, e, "a,b,,")
		arr := MustInvoke(t, e, stringClass, "split", descLimit, s, swat.NewStringValue(","), swat.NewIntValue(-1)).(*swat.ArrayValue)
		if diff := cmp.Diff([]string{"a", "b", "", ""}, arr.Strings()); diff != "" {
			t.Fatal(diff)
		}

		h := MustSingleTrace(t, e)
		require.Len(t, h.Input().HardConstraints, 5)
		helpers := map[string]int64{"I_1": 1, "I_2": 1, "I_3": 0, "I_4": 0}
		for _, expr := range h.PathConstraints() {
			require.True(t, MustEvaluateWith(t, e, helpers, expr).IsTrue(), "%s", expr)
		}
	})

	t.Run("EscapedDelimiter", func(t *testing.T) {
		e := MustNewEngine(t)
		s := MustConsumeString(t, e, "1.2")
		arr := MustInvoke(t, e, stringClass, "split", desc, s, swat.NewStringValue(`\.`)).(*swat.ArrayValue)
		if diff := cmp.Diff([]string{"1", "2"}, arr.Strings()); diff != "" {
			t.Fatal(diff)
		} else if !swat.IsSymbolic(arr.Elems[0].Formula()) {
			t.Fatalf("expected symbolic segment, got %s", arr.Elems[0].Formula())
		}
	})

	t.Run("NoSegments", func(t *testing.T) {
		e := MustNewEngine(t)
		s := MustConsumeString(t, e, ",,,")
		arr := MustInvoke(t, e, stringClass, "split", desc, s, swat.NewStringValue(",")).(*swat.ArrayValue)
		if len(arr.Elems) != 0 {
			t.Fatalf("unexpected segments: %v", arr.Strings())
		}
		require.Len(t, e.Execution().Store().Input("String_1").HardConstraints, 1)
		require.Empty(t, MustSingleTrace(t, e).Branches())
	})

	t.Run("Constant", func(t *testing.T) {
		e := MustNewEngine(t)
		arr := MustInvoke(t, e, stringClass, "split", desc, swat.NewStringValue("x y"), swat.NewStringValue(" ")).(*swat.ArrayValue)
		if diff := cmp.Diff([]string{"x", "y"}, arr.Strings()); diff != "" {
			t.Fatal(diff)
		} else if got, want := arr.Elems[1].Formula().String(), `"y"`; got != want {
			t.Fatalf("Formula=%s, want %s", got, want)
		}
		require.Empty(t, MustSingleTrace(t, e).Branches())
	})

	for _, tt := range []struct {
		name  string
		regex func(testing.TB, *swat.Engine) swat.Value
	}{
		{"NonLiteral", func(testing.TB, *swat.Engine) swat.Value { return swat.NewStringValue("[:;]") }},
		{"SymbolicDelimiter", func(tb testing.TB, e *swat.Engine) swat.Value { return MustConsumeString(tb, e, ":") }},
		{"UnsupportedRegex", func(testing.TB, *swat.Engine) swat.Value { return swat.NewStringValue("(?=:)") }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			e := MustNewEngine(t)
			s := MustConsumeString(t, e, "a:b")
			if v := MustInvoke(t, e, stringClass, "split", desc, s, tt.regex(t, e)); !swat.IsPlaceHolder(v) {
				t.Fatalf("expected placeholder, got %s", v)
			}
			require.Len(t, e.Execution().Store().Input("String_1").HardConstraints, 1)
			require.Empty(t, MustSingleTrace(t, e).Branches())
		})
	}

	t.Run("MaxSegments", func(t *testing.T) {
		e := MustNewEngine(t)
		e.Config.Split.MaxSegments = 2
		s := MustConsumeString(t, e, "a:b:c")
		if v := MustInvoke(t, e, stringClass, "split", desc, s, swat.NewStringValue(":")); !swat.IsPlaceHolder(v) {
			t.Fatalf("expected placeholder, got %s", v)
		}
	})

	t.Run("NoRecordBranches", func(t *testing.T) {
		e := MustNewEngine(t)
		e.Config.Split.RecordBranches = false
		s := MustConsumeString(t, e, "a:b:c")
		MustInvoke(t, e, stringClass, "split", desc, s, swat.NewStringValue(":"))
		require.Len(t, e.Execution().Store().Input("String_1").HardConstraints, 4)
		require.Empty(t, MustSingleTrace(t, e).Branches())
	})

	t.Run("VirtualEdge", func(t *testing.T) {
		e := MustNewEngine(t)
		e.Config.VirtualEdgeBase = 100
		s := MustConsumeString(t, e, "a:b")
		if _, err := e.InvokeAt(7, stringClass, "split", desc, []swat.Value{s, swat.NewStringValue(":")}); err != nil {
			t.Fatal(err)
		}

		h := MustSingleTrace(t, e)
		require.Equal(t, int64(7), h.IID())
		require.Equal(t, []int64{-215, -215, -216}, BranchEdges(h))
	})

	t.Run("SymbolicLimit", func(t *testing.T) {
		e := MustNewEngine(t)
		s := MustConsumeString(t, e, "a:b")
		if v := MustInvoke(t, e, stringClass, "split", descLimit, s, swat.NewStringValue(":"), MustConsumeInt(t, e, 1)); !swat.IsPlaceHolder(v) {
			t.Fatalf("expected placeholder, got %s", v)
		}
	})
}

// A decomposition is committed only if every step is satisfiable.
func TestSplitBuilder_Unsat(t *testing.T) {
	// "a:b:c" is checked in five steps: three segments and two delimiters.
	for unsatAt := 1; unsatAt <= 5; unsatAt++ {
		solver := &fakeSolver{unsatAt: unsatAt}
		e := swat.NewEngine(swat.NewRegistry(), solver)
		s := MustConsumeString(t, e, "a:b:c")
		v := MustInvoke(t, e, stringClass, "split", []swat.Descriptor{swat.DescString}, s, swat.NewStringValue(":"))
		if !swat.IsPlaceHolder(v) {
			t.Fatalf("%d: expected placeholder, got %s", unsatAt, v)
		} else if solver.prover == nil || !solver.prover.closed {
			t.Fatalf("%d: expected prover to be closed", unsatAt)
		} else if got := len(solver.prover.exprs); got != 1+unsatAt {
			t.Fatalf("%d: unexpected constraint count: %d", unsatAt, got)
		}

		require.Len(t, e.Execution().Store().Input("String_1").HardConstraints, 1)
		require.Empty(t, MustSingleTrace(t, e).Branches())
	}

	t.Run("Sat", func(t *testing.T) {
		solver := &fakeSolver{}
		e := swat.NewEngine(swat.NewRegistry(), solver)
		s := MustConsumeString(t, e, "a:b:c")
		MustInvoke(t, e, stringClass, "split", []swat.Descriptor{swat.DescString}, s, swat.NewStringValue(":"))
		require.Equal(t, 5, solver.prover.checkN)
		require.True(t, solver.prover.closed)
	})
}

func TestSplitBuilder_SolverError(t *testing.T) {
	errMarker := errors.New("marker")

	t.Run("Check", func(t *testing.T) {
		solver := &fakeSolver{err: errMarker}
		e := swat.NewEngine(swat.NewRegistry(), solver)
		s := MustConsumeString(t, e, "a:b")
		_, err := e.Invoke(stringClass, "split", []swat.Descriptor{swat.DescString}, []swat.Value{s, swat.NewStringValue(":")})
		if !errors.Is(err, errMarker) {
			t.Fatalf("unexpected error: %v", err)
		} else if !solver.prover.closed {
			t.Fatal("expected prover to be closed")
		}
		require.Empty(t, MustSingleTrace(t, e).Branches())
	})

	t.Run("NewProver", func(t *testing.T) {
		e := swat.NewEngine(swat.NewRegistry(), &fakeSolver{newErr: errMarker})
		s := MustConsumeString(t, e, "a:b")
		_, err := e.Invoke(stringClass, "split", []swat.Descriptor{swat.DescString}, []swat.Value{s, swat.NewStringValue(":")})
		if !errors.Is(err, errMarker) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestJavaSplit(t *testing.T) {
	for _, tt := range []struct {
		s     string
		regex string
		limit int
		want  []string
	}{
		{"a:b:c", ":", 0, []string{"a", "b", "c"}},
		{"a:b:c", ":", 2, []string{"a", "b:c"}},
		{"a:b:c", ":", 1, []string{"a:b:c"}},
		{"a,b,,", ",", 0, []string{"a", "b"}},
		{"a,b,,", ",", -1, []string{"a", "b", "", ""}},
		{",a", ",", 0, []string{"", "a"}},
		{",,,", ",", 0, []string{}},
		{"", ",", 0, []string{""}},
		{"abc", "", 0, []string{"a", "b", "c"}},
		{"a1b22c", `\d+`, 0, []string{"a", "b", "c"}},
		{"boo:and:foo", "o", 0, []string{"b", "", ":and:f"}},
		{"a:b", "^", 0, []string{"a:b"}},
		{"a,b", ",{0}", 0, []string{"a", ",", "b"}},
	} {
		got, err := swat.JavaSplit(tt.s, tt.regex, tt.limit)
		if err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("JavaSplit(%q, %q, %d): %s", tt.s, tt.regex, tt.limit, diff)
		}
	}

	for _, regex := range []string{"(?<x>a)", "(", "a*", ",?", `\s*`, "(?:a|)", `x|\b`} {
		if _, err := swat.JavaSplit("baaac", regex, 0); err == nil {
			t.Errorf("JavaSplit(%q): expected error", regex)
		}
	}
}

func TestLiteralDelimiter(t *testing.T) {
	for _, tt := range []struct {
		regex string
		want  string
		ok    bool
	}{
		{":", ":", true},
		{", ", ", ", true},
		{`\.`, ".", true},
		{`\|`, "|", true},
		{`\d`, "", false},
		{"[,;]", "", false},
		{"a+", "", false},
		{"", "", false},
	} {
		if got, ok := swat.LiteralDelimiter(tt.regex); got != tt.want || ok != tt.ok {
			t.Errorf("LiteralDelimiter(%q)=%q,%t, want %q,%t", tt.regex, got, ok, tt.want, tt.ok)
		}
	}
}

// MustSingleTrace returns the only trace of the current execution.
func MustSingleTrace(tb testing.TB, e *swat.Engine) *swat.TraceHandler {
	tb.Helper()
	traces := e.Execution().Store().Traces()
	if len(traces) != 1 {
		tb.Fatalf("expected one trace, got %d", len(traces))
	}
	return traces[0]
}

// MustEvaluateWith evaluates expr with every input bound to its concrete
// value and the given helper variables bound to integers.
func MustEvaluateWith(tb testing.TB, e *swat.Engine, helpers map[string]int64, expr swat.Expr) *swat.ConstantExpr {
	tb.Helper()
	ee := MustInputEvaluator(tb, e)
	for name, value := range helpers {
		ee.Bind(name, swat.NewConstantExpr(value))
	}
	c, err := ee.Evaluate(expr)
	if err != nil {
		tb.Fatal(err)
	}
	return c
}

// BranchEdges returns the edge ids of the recorded branches.
func BranchEdges(h *swat.TraceHandler) []int64 {
	a := make([]int64, len(h.Branches()))
	for i, b := range h.Branches() {
		a[i] = b.EdgeID
	}
	return a
}

// BranchTaken returns the directions of the recorded branches.
func BranchTaken(h *swat.TraceHandler) []bool {
	a := make([]bool, len(h.Branches()))
	for i, b := range h.Branches() {
		a[i] = b.Taken
	}
	return a
}

// fakeSolver reports unsat at the unsatAt-th check or fails every check with err.
type fakeSolver struct {
	unsatAt int
	err     error
	newErr  error
	prover  *fakeProver
}

func (s *fakeSolver) NewProver() (swat.Prover, error) {
	if s.newErr != nil {
		return nil, s.newErr
	}
	s.prover = &fakeProver{solver: s}
	return s.prover, nil
}

type fakeProver struct {
	solver *fakeSolver
	exprs  []swat.Expr
	checkN int
	closed bool
}

func (p *fakeProver) AddConstraint(expr swat.Expr) error {
	if p.closed {
		return swat.ErrProverClosed
	}
	p.exprs = append(p.exprs, expr)
	return nil
}

func (p *fakeProver) IsUnsat() (bool, error) {
	if p.closed {
		return false, swat.ErrProverClosed
	} else if p.solver.err != nil {
		return false, p.solver.err
	}
	p.checkN++
	return p.checkN == p.solver.unsatAt, nil
}

func (p *fakeProver) Close() error {
	p.closed = true
	return nil
}
