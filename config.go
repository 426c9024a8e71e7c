package swat

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Solver names accepted by Config.Solver.
const (
	SolverSimplify = "simplify"
	SolverZ3       = "z3"
)

// Dump formats accepted by Config.DumpFormat.
const (
	DumpFormatJSON = "json"
	DumpFormatYAML = "yaml"
)

// Config holds engine configuration.
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Constraint solver backend: simplify or z3.
	Solver string `yaml:"solver"`

	// Export format: json or yaml.
	DumpFormat string `yaml:"dump_format"`

	// String-split modeling
	Split SplitConfig `yaml:"split"`

	// Larger array allocations are not modeled.
	MaxArrayLength int `yaml:"max_array_length"`

	// Added to a handler's iid before deriving virtual edge ids.
	VirtualEdgeBase int64 `yaml:"virtual_edge_base"`
}

// SplitConfig configures the string-split constraint builder.
type SplitConfig struct {
	// Record segment conjunctions as virtual branches.
	RecordBranches bool `yaml:"record_branches"`

	// Splits producing more segments are not modeled. Zero means no limit.
	MaxSegments int `yaml:"max_segments"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LogLevel:   "info",
		Solver:     SolverSimplify,
		DumpFormat: DumpFormatJSON,
		Split: SplitConfig{
			RecordBranches: true,
			MaxSegments:    256,
		},
		MaxArrayLength: 1 << 16,
	}
}

// ReadConfigFile reads a YAML configuration file on top of the defaults.
// A missing file returns the defaults.
func ReadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate returns an error if the configuration contains unknown values.
func (c Config) Validate() error {
	switch c.Solver {
	case SolverSimplify, SolverZ3:
	default:
		return fmt.Errorf("invalid solver: %q", c.Solver)
	}

	switch c.DumpFormat {
	case DumpFormatJSON, DumpFormatYAML:
	default:
		return fmt.Errorf("invalid dump format: %q", c.DumpFormat)
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.Split.MaxSegments < 0 {
		return fmt.Errorf("invalid split max segments: %d", c.Split.MaxSegments)
	}
	if c.MaxArrayLength < 0 {
		return fmt.Errorf("invalid max array length: %d", c.MaxArrayLength)
	}
	return nil
}

// NewLogger builds a production logger at the configured level.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	return config.Build()
}
