package main

import (
	"fmt"

	"github.com/dualtrace/swat"
	"github.com/spf13/cobra"
)

const providerClass = "com/code_intelligence/jazzer/api/FuzzedDataProvider"

// splitCommand returns the command that splits a fuzzer-provided string and
// prints the resulting execution record.
func (m *Main) splitCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "split STRING DELIMITER",
		Short: "Split a symbolic input string and print its constraints",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.runSplit(cmd, args[0], args[1], limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "split limit")
	return cmd
}

func (m *Main) runSplit(cmd *cobra.Command, s, delim string, limit int) (err error) {
	env, err := m.openEnvironment()
	if err != nil {
		return err
	}
	defer func() {
		if e := env.Close(); err == nil {
			err = e
		}
	}()

	e, err := env.newEngine()
	if err != nil {
		return err
	}
	provider := &swat.ObjectValue{Class: providerClass, Addr: e.Execution().NextAddr()}
	str, err := e.Invoke(providerClass, "consumeRemainingAsString", nil, []swat.Value{provider, swat.NewStringValue(s)})
	if err != nil {
		return err
	}

	desc := []swat.Descriptor{swat.DescString}
	args := []swat.Value{str, swat.NewStringValue(delim)}
	if cmd.Flags().Changed("limit") {
		desc = append(desc, swat.DescInt)
		args = append(args, swat.NewIntValue(int64(limit)))
	}

	v, err := e.InvokeAt(1, "java/lang/String", "split", desc, args)
	if err != nil {
		return err
	} else if swat.IsPlaceHolder(v) {
		return fmt.Errorf("split of %q by %q is not modeled", s, delim)
	}
	w := cmd.OutOrStdout()
	return e.Export().Write(w, env.config.DumpFormat, m.pretty(w))
}
