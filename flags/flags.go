package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "ASMTEST"

// ColorMode selects when PASS and FAIL markers are colored.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

func (c ColorMode) IsValid() bool {
	switch c {
	case ColorAuto, ColorAlways, ColorNever:
		return true
	}
	return false
}

func validateColor(v string) error {
	if !ColorMode(v).IsValid() {
		return fmt.Errorf("color must be one of %s, %s, %s; got %q", ColorAuto, ColorAlways, ColorNever, v)
	}
	return nil
}

var (
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "asmtest.json",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to the run configuration file (JSON or YAML; TOML or HCL when the name ends in .toml or .hcl)",
	}
	ReportFile = &cli.StringFlag{
		Name:    "report-file",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT_FILE"),
		Usage:   "Also write the plain text report to this file",
	}
	JSONReport = &cli.StringFlag{
		Name:    "json-report",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "JSON_REPORT"),
		Usage:   "Write the complete run result as JSON to this file",
	}
	SummaryTable = &cli.BoolFlag{
		Name:    "summary-table",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUMMARY_TABLE"),
		Usage:   "Print a per-suite summary table before the final tally",
	}
	Color = &cli.StringFlag{
		Name:    "color",
		Value:   string(ColorAuto),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COLOR"),
		Usage:   fmt.Sprintf("When to color PASS/FAIL markers: %s, %s or %s", ColorAuto, ColorAlways, ColorNever),
		Action: func(_ *cli.Context, v string) error {
			return validateColor(v)
		},
	}
	MetricsPushGateway = &cli.StringFlag{
		Name:    "metrics.pushgateway",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_PUSHGATEWAY"),
		Usage:   "Push run metrics to this Prometheus Pushgateway URL when the run completes",
	}
)

var optionalFlags = []cli.Flag{
	ConfigFile,
	ReportFile,
	JSONReport,
	SummaryTable,
	Color,
	MetricsPushGateway,
}

var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = optionalFlags
}
