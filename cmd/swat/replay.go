package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/dualtrace/swat"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Script is a recorded sequence of intercepted operations of one execution.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is a single intercepted operation. Exactly one of Invoke, Apply,
// Branch or NewArray is set. The result is bound to Let, if set.
type Step struct {
	Let      string        `yaml:"let"`
	IID      int64         `yaml:"iid"`
	Invoke   *InvokeStep   `yaml:"invoke"`
	Apply    *ApplyStep    `yaml:"apply"`
	Branch   *BranchStep   `yaml:"branch"`
	NewArray *NewArrayStep `yaml:"newarray"`
}

// InvokeStep is an intercepted method call.
type InvokeStep struct {
	Owner string   `yaml:"owner"`
	Name  string   `yaml:"name"`
	Desc  []string `yaml:"desc"`
	Args  []Arg    `yaml:"args"`
}

// ApplyStep is an intercepted instruction.
type ApplyStep struct {
	Op   string `yaml:"op"`
	Args []Arg  `yaml:"args"`
}

// BranchStep is a conditional jump on Edge. Args and Desc identify the trace.
type BranchStep struct {
	Edge int64    `yaml:"edge"`
	Cond Arg      `yaml:"cond"`
	Desc []string `yaml:"desc"`
	Args []Arg    `yaml:"args"`
}

// NewArrayStep is an array allocation.
type NewArrayStep struct {
	Elem   string `yaml:"elem"`
	Length Arg    `yaml:"length"`
}

// Arg is an operand: a reference to an earlier result or a literal.
type Arg struct {
	Ref    *string `yaml:"ref"`
	Int    *int64  `yaml:"int"`
	Long   *int64  `yaml:"long"`
	Char   *string `yaml:"char"`
	Bool   *bool   `yaml:"bool"`
	String *string `yaml:"string"`
	Object *string `yaml:"object"`
	Null   bool    `yaml:"null"`
}

// ReadScriptFile reads a script from a YAML file.
func ReadScriptFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	if script.Name == "" {
		script.Name = path
	}
	return &script, nil
}

// replayCommand returns the command that replays recorded scripts.
func (m *Main) replayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replay SCRIPT...",
		Short: "Replay recorded operation scripts and print their constraints",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.runReplay(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}
}

// runReplay executes each script on its own engine. Scripts run concurrently
// and share one registry; output is written in argument order.
func (m *Main) runReplay(ctx context.Context, w io.Writer, paths []string) (err error) {
	scripts := make([]*Script, len(paths))
	for i, path := range paths {
		if scripts[i], err = ReadScriptFile(path); err != nil {
			return err
		}
	}

	env, err := m.openEnvironment()
	if err != nil {
		return err
	}
	defer func() {
		if e := env.Close(); err == nil {
			err = e
		}
	}()

	records := make([]*swat.ExecutionRecord, len(scripts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, script := range scripts {
		i, script := i, script
		g.Go(func() error {
			e, err := env.newEngine()
			if err != nil {
				return err
			}
			if records[i], err = Replay(ctx, e, script); err != nil {
				return fmt.Errorf("script %s: %w", script.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Records are buffered so the terminal check must use the real output.
	pretty := m.pretty(w)
	var buf bytes.Buffer
	for _, rec := range records {
		if env.config.DumpFormat == swat.DumpFormatYAML {
			buf.WriteString("---\n")
		}
		if err := rec.Write(&buf, env.config.DumpFormat, pretty); err != nil {
			return err
		}
	}
	_, err = buf.WriteTo(w)
	return err
}

// Replay executes every step of script on e and returns the record of the
// resulting execution.
func Replay(ctx context.Context, e *swat.Engine, script *Script) (*swat.ExecutionRecord, error) {
	r := &replayer{engine: e, env: make(map[string]swat.Value)}
	for i, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := r.exec(step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if step.Let != "" {
			r.env[step.Let] = v
		}
	}
	return e.Export(), nil
}

type replayer struct {
	engine *swat.Engine
	env    map[string]swat.Value
}

func (r *replayer) exec(step Step) (swat.Value, error) {
	switch {
	case step.Invoke != nil:
		args, err := r.args(step.Invoke.Args)
		if err != nil {
			return nil, err
		}
		return r.engine.InvokeAt(step.IID, step.Invoke.Owner, step.Invoke.Name, descriptors(step.Invoke.Desc), args)

	case step.Apply != nil:
		op, err := swat.ParseOpcode(step.Apply.Op)
		if err != nil {
			return nil, err
		}
		args, err := r.args(step.Apply.Args)
		if err != nil {
			return nil, err
		}
		return r.engine.Apply(op, args...)

	case step.Branch != nil:
		cond, err := r.arg(step.Branch.Cond)
		if err != nil {
			return nil, err
		}
		args, err := r.args(step.Branch.Args)
		if err != nil {
			return nil, err
		}
		return swat.NewBooleanValue(r.engine.Branch(step.Branch.Edge, cond, descriptors(step.Branch.Desc), args...)), nil

	case step.NewArray != nil:
		n, err := r.arg(step.NewArray.Length)
		if err != nil {
			return nil, err
		}
		return r.engine.NewArray(swat.Descriptor(step.NewArray.Elem), n), nil

	default:
		return nil, fmt.Errorf("step has no operation")
	}
}

func (r *replayer) args(a []Arg) ([]swat.Value, error) {
	values := make([]swat.Value, len(a))
	for i := range a {
		v, err := r.arg(a[i])
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

// arg resolves an operand. Object literals allocate a fresh reference.
func (r *replayer) arg(a Arg) (swat.Value, error) {
	switch {
	case a.Ref != nil:
		v, ok := r.env[*a.Ref]
		if !ok {
			return nil, fmt.Errorf("undefined reference %q", *a.Ref)
		}
		return v, nil
	case a.Int != nil:
		return swat.NewIntValue(*a.Int), nil
	case a.Long != nil:
		return swat.NewLongValue(*a.Long), nil
	case a.Char != nil:
		runes := []rune(*a.Char)
		if len(runes) != 1 {
			return nil, fmt.Errorf("invalid char literal %q", *a.Char)
		}
		return swat.NewCharValue(runes[0]), nil
	case a.Bool != nil:
		return swat.NewBooleanValue(*a.Bool), nil
	case a.String != nil:
		return r.engine.Execution().NewString(*a.String, swat.NewStringConstantExpr(*a.String)), nil
	case a.Object != nil:
		return &swat.ObjectValue{Class: *a.Object, Addr: r.engine.Execution().NextAddr()}, nil
	case a.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("empty operand")
	}
}

func descriptors(a []string) []swat.Descriptor {
	desc := make([]swat.Descriptor, len(a))
	for i, d := range a {
		desc[i] = swat.Descriptor(d)
	}
	return desc
}
