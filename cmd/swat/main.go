package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dualtrace/swat"
	"github.com/dualtrace/swat/z3"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	m := NewMain()
	if err := m.Run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(m.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program execution.
type Main struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// IsTerminal reports whether output written to w is shown on a terminal.
	IsTerminal func(w io.Writer) bool

	// Flags shared by every subcommand.
	ConfigPath string
	LogLevel   string
	Solver     string
	Format     string
}

// NewMain returns a new instance of Main attached to the standard streams.
func NewMain() *Main {
	return &Main{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,

		IsTerminal: isTerminal,
	}
}

// Run executes the command line.
func (m *Main) Run(ctx context.Context, args []string) error {
	root := m.rootCommand()
	root.SetArgs(args)
	root.SetIn(m.Stdin)
	root.SetOut(m.Stdout)
	root.SetErr(m.Stderr)
	return root.ExecuteContext(ctx)
}

func (m *Main) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "swat",
		Short: "Concolic value and constraint engine",
		Long: `Swat computes dual concrete and symbolic results for intercepted JVM
operations and records the path constraints they imply.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&m.ConfigPath, "config", "c", "swat.yaml", "configuration file")
	flags.StringVar(&m.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&m.Solver, "solver", "", "constraint solver (simplify, z3)")
	flags.StringVar(&m.Format, "format", "", "output format (json, yaml)")

	root.AddCommand(m.splitCommand())
	root.AddCommand(m.replayCommand())
	return root
}

// loadConfig reads the configuration file and applies flag overrides.
func (m *Main) loadConfig() (swat.Config, error) {
	config, err := swat.ReadConfigFile(m.ConfigPath)
	if err != nil {
		return config, err
	}

	if m.LogLevel != "" {
		config.LogLevel = m.LogLevel
	}
	if m.Solver != "" {
		config.Solver = m.Solver
	}
	if m.Format != "" {
		config.DumpFormat = m.Format
	}
	return config, config.Validate()
}

// environment holds the collaborators shared by every engine of a command.
type environment struct {
	config   swat.Config
	logger   *zap.Logger
	registry *swat.Registry

	mu      sync.Mutex
	closers []func() error
}

// openEnvironment builds the logger & registry selected by the configuration.
func (m *Main) openEnvironment() (*environment, error) {
	config, err := m.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger()
	if err != nil {
		return nil, err
	}
	return &environment{
		config:   config,
		logger:   logger,
		registry: swat.NewRegistry(),
	}, nil
}

// Close releases every solver opened by the environment.
func (env *environment) Close() error {
	env.mu.Lock()
	defer env.mu.Unlock()

	var err error
	for _, fn := range env.closers {
		if e := fn(); e != nil && err == nil {
			err = e
		}
	}
	env.closers = nil
	_ = env.logger.Sync()
	return err
}

// newEngine returns an engine sharing the environment's registry. Z3
// contexts are not safe for concurrent use so each engine opens its own.
func (env *environment) newEngine() (*swat.Engine, error) {
	var solver swat.Solver
	switch env.config.Solver {
	case swat.SolverZ3:
		s, err := z3.NewSolver()
		if err != nil {
			return nil, err
		}
		env.mu.Lock()
		env.closers = append(env.closers, s.Close)
		env.mu.Unlock()
		solver = s
	default:
		solver = swat.NewSimplifyingSolver()
	}

	e := swat.NewEngine(env.registry, solver)
	e.Logger = env.logger
	e.Config = env.config
	return e, nil
}

// pretty returns true if JSON written to w should be indented.
func (m *Main) pretty(w io.Writer) bool {
	return m.IsTerminal != nil && m.IsTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
