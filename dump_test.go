package swat_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dualtrace/swat"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDumpFormula(t *testing.T) {
	i := swat.NewVarExpr("int_1", swat.SortInt)
	s := swat.NewVarExpr("String_2", swat.SortString)
	a := swat.NewArrayExpr("A_3", swat.SortInt)

	got := swat.DumpFormula(
		swat.NewBinaryExpr(swat.LT, i, swat.NewUnaryExpr(swat.LENGTH, s)),
		swat.NewBinaryExpr(swat.EQ, swat.NewSelectExpr(a, i), swat.NewConstantExpr(7)),
	)
	if diff := cmp.Diff(strings.Join([]string{
		"(declare-fun String_2 () String)",
		"(declare-fun int_1 () Int)",
		"(declare-fun A_3 () (Array Int Int))",
		"(assert (< int_1 (str.len String_2)))",
		"(assert (= 7 (select A_3 int_1)))",
	}, "\n"), got); diff != "" {
		t.Fatal(diff)
	}

	if got := swat.DumpFormula(); got != "" {
		t.Fatalf("unexpected dump: %q", got)
	}
}

// MustRecordedEngine returns an engine with one string input and one
// recorded branch on edge 5.
func MustRecordedEngine(tb testing.TB) *swat.Engine {
	tb.Helper()
	e := MustNewEngine(tb)
	s := MustConsumeString(tb, e, "ab")
	cond := MustInvoke(tb, e, stringClass, "startsWith", []swat.Descriptor{swat.DescString}, s, swat.NewStringValue("a"))
	if !e.Branch(5, cond, nil, s) {
		tb.Fatal("expected branch to be recorded")
	}
	return e
}

func TestEngine_Export(t *testing.T) {
	e := MustRecordedEngine(t)
	rec := e.Export()

	require.Equal(t, e.Execution().ID().String(), rec.ID)
	require.Len(t, rec.Inputs, 1)
	require.Equal(t, "String_1", rec.Inputs[0].Name)
	require.Equal(t, "String", rec.Inputs[0].Type)
	require.Equal(t, "ab", rec.Inputs[0].Value)
	require.Len(t, rec.Inputs[0].HardConstraints, 1)
	require.True(t, strings.HasPrefix(rec.Inputs[0].HardConstraints[0], "(declare-fun String_1 () String)\n(assert "))

	if diff := cmp.Diff([]swat.BranchRecord{{
		Input:   "String_1",
		EdgeID:  5,
		Taken:   true,
		Formula: "(declare-fun String_1 () String)\n(assert (str.prefixof \"a\" String_1))",
	}}, rec.Branches); diff != "" {
		t.Fatal(diff)
	}
}

func TestExecutionRecord_Write(t *testing.T) {
	rec := MustRecordedEngine(t).Export()

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, rec.WriteJSON(&buf, false))
		require.Equal(t, 1, strings.Count(buf.String(), "\n"))

		var other swat.ExecutionRecord
		require.NoError(t, json.Unmarshal(buf.Bytes(), &other))
		require.Equal(t, rec.Branches, other.Branches)
		require.Contains(t, buf.String(), `"edgeId":5`)
	})

	t.Run("PrettyJSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, rec.Write(&buf, swat.DumpFormatJSON, true))
		require.Contains(t, buf.String(), "\n  \"inputs\": [")
	})

	t.Run("YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, rec.Write(&buf, swat.DumpFormatYAML, false))
		require.Contains(t, buf.String(), "edge_id: 5")

		var other swat.ExecutionRecord
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &other))
		require.Equal(t, rec.Branches, other.Branches)
		require.Equal(t, rec.Inputs[0].HardConstraints, other.Inputs[0].HardConstraints)
	})

	t.Run("ErrFormat", func(t *testing.T) {
		require.Error(t, rec.Write(&bytes.Buffer{}, "xml", false))
	})
}

func TestExecution_Dump(t *testing.T) {
	e := MustRecordedEngine(t)
	MustNewBuilder(t, e, swat.NewStringValue("sb"))

	s := e.Execution().Dump()
	for _, want := range []string{
		"EXECUTION\n",
		"== INPUTS\n0. String String_1 = ",
		"  + HARD: ",
		"== BUILDERS\n#0 \"sb\"",
		"  + BRANCH: edge=5 taken=true (str.prefixof \"a\" String_1)",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("dump missing %q:\n%s", want, s)
		}
	}
}
