package asmtest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/ethereum-optimism/infra/asmtest/flags"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

// Config holds the application configuration
type Config struct {
	ConfigFile    string   // Absolute path of the run configuration file
	Suites        []string // Suite identifiers to run; empty means every discovered suite
	ReportFile    string   // Plain text copy of the console report
	JSONReport    string   // Machine readable result file
	SummaryTable  bool     // Print a per-suite table before the tally
	Color         bool     // Color PASS/FAIL markers
	PushGateway   string   // Pushgateway URL metrics are pushed to after the run
	MetricsConfig opmetrics.CLIConfig
	Out           io.Writer // Receives the report
	Log           log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	configFile := ctx.String(flags.ConfigFile.Name)
	if configFile == "" {
		return nil, fmt.Errorf("configuration file is required")
	}
	absConfig, err := filepath.Abs(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for config '%s': %w", configFile, err)
	}

	colorMode := flags.ColorMode(ctx.String(flags.Color.Name))
	if !colorMode.IsValid() {
		return nil, fmt.Errorf("invalid color mode: %s", colorMode)
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if err := metricsCfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}

	out := ctx.App.Writer
	if out == nil {
		out = os.Stdout
	}

	return &Config{
		ConfigFile:    absConfig,
		Suites:        ctx.Args().Slice(),
		ReportFile:    ctx.String(flags.ReportFile.Name),
		JSONReport:    ctx.String(flags.JSONReport.Name),
		SummaryTable:  ctx.Bool(flags.SummaryTable.Name),
		Color:         useColor(colorMode, out),
		PushGateway:   ctx.String(flags.MetricsPushGateway.Name),
		MetricsConfig: metricsCfg,
		Out:           out,
		Log:           log,
	}, nil
}

// useColor resolves a color mode against the report writer. In auto mode
// colors are used only when the writer is a terminal.
func useColor(mode flags.ColorMode, out io.Writer) bool {
	switch mode {
	case flags.ColorAlways:
		return true
	case flags.ColorNever:
		return false
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
