package swat_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dualtrace/swat"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, swat.DefaultConfig().Validate())

	for _, tt := range []struct {
		name string
		fn   func(*swat.Config)
	}{
		{"Solver", func(c *swat.Config) { c.Solver = "cvc5" }},
		{"DumpFormat", func(c *swat.Config) { c.DumpFormat = "xml" }},
		{"LogLevel", func(c *swat.Config) { c.LogLevel = "loud" }},
		{"MaxSegments", func(c *swat.Config) { c.Split.MaxSegments = -1 }},
		{"MaxArrayLength", func(c *swat.Config) { c.MaxArrayLength = -1 }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := swat.DefaultConfig()
			tt.fn(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestReadConfigFile(t *testing.T) {
	t.Run("NotExist", func(t *testing.T) {
		c, err := swat.ReadConfigFile(filepath.Join(t.TempDir(), "swat.yml"))
		require.NoError(t, err)
		require.Equal(t, swat.DefaultConfig(), c)
	})

	t.Run("Override", func(t *testing.T) {
		path := MustWriteFile(t, "log_level: debug\nsolver: z3\nsplit:\n  max_segments: 8\nvirtual_edge_base: 1000\n")
		c, err := swat.ReadConfigFile(path)
		require.NoError(t, err)
		require.Equal(t, "debug", c.LogLevel)
		require.Equal(t, swat.SolverZ3, c.Solver)
		require.Equal(t, 8, c.Split.MaxSegments)
		require.Equal(t, int64(1000), c.VirtualEdgeBase)

		// Unset keys keep their defaults.
		require.True(t, c.Split.RecordBranches)
		require.Equal(t, swat.DumpFormatJSON, c.DumpFormat)
		require.Equal(t, swat.DefaultConfig().MaxArrayLength, c.MaxArrayLength)
	})

	t.Run("ErrParse", func(t *testing.T) {
		_, err := swat.ReadConfigFile(MustWriteFile(t, "solver: [z3\n"))
		require.ErrorContains(t, err, "parse config")
	})

	t.Run("ErrInvalid", func(t *testing.T) {
		_, err := swat.ReadConfigFile(MustWriteFile(t, "dump_format: toml\n"))
		require.ErrorContains(t, err, "invalid dump format")
	})
}

func TestConfig_NewLogger(t *testing.T) {
	c := swat.DefaultConfig()
	c.LogLevel = "warn"
	logger, err := c.NewLogger()
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.True(t, logger.Core().Enabled(zapcore.ErrorLevel))

	c.LogLevel = "loud"
	_, err = c.NewLogger()
	require.Error(t, err)
}

// MustWriteFile writes data to a temporary file and returns its path.
func MustWriteFile(tb testing.TB, data string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "swat.yml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		tb.Fatal(err)
	}
	return path
}
