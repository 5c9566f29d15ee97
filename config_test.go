package asmtest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/asmtest/flags"
)

// parseConfig runs a cli app with the real flag set and returns the Config
// built from its context.
func parseConfig(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	var (
		cfg    *Config
		cfgErr error
	)
	app := cli.NewApp()
	app.Flags = flags.Flags
	app.Writer = &bytes.Buffer{}
	app.Action = func(ctx *cli.Context) error {
		cfg, cfgErr = NewConfig(ctx, log.NewLogger(log.DiscardHandler()))
		return nil
	}
	require.NoError(t, app.Run(append([]string{"asmtest"}, args...)))
	return cfg, cfgErr
}

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(t)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "asmtest.json"), cfg.ConfigFile)
	assert.Empty(t, cfg.Suites)
	assert.False(t, cfg.Color, "a buffer is not a terminal")
	assert.False(t, cfg.SummaryTable)
	assert.False(t, cfg.MetricsConfig.Enabled)
	assert.NotNil(t, cfg.Out)
}

func TestNewConfigFlagsAndSuites(t *testing.T) {
	cfg, err := parseConfig(t,
		"--config", "/tmp/project/asmtest.toml",
		"--color", "always",
		"--summary-table",
		"--json-report", "out/result.json",
		"--metrics.pushgateway", "http://localhost:9091",
		"arith/add", "arith/sub")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/project/asmtest.toml", cfg.ConfigFile)
	assert.Equal(t, []string{"arith/add", "arith/sub"}, cfg.Suites)
	assert.True(t, cfg.Color)
	assert.True(t, cfg.SummaryTable)
	assert.Equal(t, "out/result.json", cfg.JSONReport)
	assert.Equal(t, "http://localhost:9091", cfg.PushGateway)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("ASMTEST_COLOR", "never")
	t.Setenv("ASMTEST_REPORT_FILE", "report.txt")

	cfg, err := parseConfig(t)
	require.NoError(t, err)
	assert.False(t, cfg.Color)
	assert.Equal(t, "report.txt", cfg.ReportFile)
}

func TestNewConfigInvalidMetrics(t *testing.T) {
	_, err := parseConfig(t, "--metrics.enabled", "--metrics.port=-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid metrics config")
}

func TestUseColor(t *testing.T) {
	assert.True(t, useColor(flags.ColorAlways, &bytes.Buffer{}))
	assert.False(t, useColor(flags.ColorNever, &bytes.Buffer{}))
	assert.False(t, useColor(flags.ColorAuto, &bytes.Buffer{}))

	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, useColor(flags.ColorAuto, f), "a regular file is not a terminal")
}
