package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/asmtest"
	"github.com/ethereum-optimism/infra/asmtest/exitcodes"
	"github.com/ethereum-optimism/infra/asmtest/flags"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()

	// Start telemetry only when an exporter is configured
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		shutdown, err := otelconfig.ConfigureOpenTelemetry(
			otelconfig.WithServiceName(app.Name),
			otelconfig.WithServiceVersion(app.Version),
		)
		if err != nil {
			log.Crit("Failed to setup open telemetry", "message", err)
		}
		defer shutdown()
	}

	ctx := ctxinterrupt.WithSignalWaiterMain(context.Background())
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Error("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "asmtest"
	app.Usage = "Declarative test runner for assembler programs"
	app.UsageText = "asmtest [flags] [suite ...]"
	app.Description = "asmtest renders every case of a suite into the configured source file, " +
		"builds and runs the target, and compares its exit status and output with the expected values. " +
		"With no suite arguments every suite under the test path is run."
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), exitCodeFor(err)))
	}
	return app
}

// exitCodeFor maps an error returned by the application to its exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case asmtest.IsRuntimeError(err):
		return exitcodes.RuntimeErr
	case asmtest.IsTestFailureError(err):
		return exitcodes.TestFailure
	default:
		// Setup errors that were not classified, such as bad flags
		return exitcodes.RuntimeErr
	}
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	// Logs go to stderr so stdout carries only the report
	log := oplog.NewLogger(ctx.App.ErrWriter, logCfg)
	oplog.SetGlobalLogHandler(log.Handler())
	oplog.SetupDefaults()

	cfg, err := asmtest.NewConfig(ctx, log)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, asmtest.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config", "config", cfg.ConfigFile, "suites", cfg.Suites)

	tester, err := asmtest.New(ctx.Context, cfg, Version, closeApp)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, asmtest.NewRuntimeError(fmt.Errorf("failed to create asmtest: %w", err))
	}

	return tester, nil
}
