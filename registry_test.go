package swat_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/dualtrace/swat"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRegistry_Fresh(t *testing.T) {
	r, store := swat.NewRegistry(), swat.NewTraceStore()

	var names []string
	names = append(names, r.FreshSymbolicString(store, "a").Name)
	names = append(names, r.FreshSymbolicInt(store, 1).Name)
	names = append(names, r.FreshSymbolicChar(store, 'c').Name)
	names = append(names, r.FreshSymbolicBoolean(store, true).Name)
	names = append(names, r.FreshBoundedInt(store, 2, 0, 9).Name)
	if diff := cmp.Diff([]string{"String_1", "int_2", "char_3", "boolean_4", "int_5"}, names); diff != "" {
		t.Fatal(diff)
	}

	// Helpers share their own counter and are never registered as inputs.
	if got, want := r.FreshHelperInt().Name, "I_1"; got != want {
		t.Fatalf("Name=%s, want %s", got, want)
	} else if got, want := r.FreshHelperArray(swat.SortString).Name, "A_2"; got != want {
		t.Fatalf("Name=%s, want %s", got, want)
	} else if got, want := len(store.Inputs()), 5; got != want {
		t.Fatalf("len=%d, want %d", got, want)
	}

	if in := store.Input("int_5"); in.LowerBound != "0" || in.UpperBound != "9" {
		t.Fatalf("unexpected bounds: [%s, %s]", in.LowerBound, in.UpperBound)
	} else if in := store.Input("int_2"); in.LowerBound != "-2147483648" || in.UpperBound != "2147483647" {
		t.Fatalf("unexpected bounds: [%s, %s]", in.LowerBound, in.UpperBound)
	} else if in := store.Input("boolean_4"); len(in.HardConstraints) != 0 {
		t.Fatalf("unexpected constraints: %v", in.HardConstraints)
	}

	r.Reset()
	if got, want := r.FreshSymbolicString(swat.NewTraceStore(), "").Name, "String_1"; got != want {
		t.Fatalf("Name=%s, want %s", got, want)
	} else if got, want := r.FreshHelperInt().Name, "I_1"; got != want {
		t.Fatalf("Name=%s, want %s", got, want)
	}
}

// Engines on different threads share one registry and never mint the same name.
func TestRegistry_Concurrent(t *testing.T) {
	const workerN, varN = 8, 100
	r := swat.NewRegistry()

	var mu sync.Mutex
	seen := make(map[string]struct{})

	var g errgroup.Group
	for i := 0; i < workerN; i++ {
		g.Go(func() error {
			store := swat.NewTraceStore()
			for j := 0; j < varN; j++ {
				name := r.FreshSymbolicString(store, "").Name
				helper := r.FreshHelperInt().Name

				mu.Lock()
				_, dup1 := seen[name]
				_, dup2 := seen[helper]
				seen[name], seen[helper] = struct{}{}, struct{}{}
				mu.Unlock()

				if dup1 || dup2 {
					return fmt.Errorf("duplicate name: %s/%s", name, helper)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	} else if got, want := len(seen), 2*workerN*varN; got != want {
		t.Fatalf("len=%d, want %d", got, want)
	}
}

func TestRegistry_BaselineStringConstraint(t *testing.T) {
	r, store := swat.NewRegistry(), swat.NewTraceStore()
	v := r.FreshSymbolicString(store, "")
	in := store.Input(v.Name)
	if len(in.HardConstraints) != 1 {
		t.Fatalf("unexpected constraints: %v", in.HardConstraints)
	}

	for _, value := range []string{"", "abc", "\x00"} {
		ee := swat.NewExprEvaluator(map[string]*swat.ConstantExpr{v.Name: swat.NewStringConstantExpr(value)})
		if c, err := ee.Evaluate(in.HardConstraints[0]); err != nil {
			t.Fatal(err)
		} else if !c.IsTrue() {
			t.Fatalf("baseline rejects %q", value)
		}
	}
}
