package asmtest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/httputil"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/asmtest/driver"
	"github.com/ethereum-optimism/infra/asmtest/exitcodes"
	"github.com/ethereum-optimism/infra/asmtest/metrics"
	"github.com/ethereum-optimism/infra/asmtest/reporting"
	"github.com/ethereum-optimism/infra/asmtest/runconfig"
	"github.com/ethereum-optimism/infra/asmtest/runner"
	"github.com/ethereum-optimism/infra/asmtest/types"
)

// tester implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &tester{}

// tester runs the configured suites once and exits.
type tester struct {
	config        *Config
	runConfig     *runconfig.Config
	version       string
	driver        *driver.Driver
	console       *reporting.Console
	metrics       *metrics.Metrics
	metricsServer *httputil.HTTPServer
	runner        runner.SuiteRunner
	result        *types.RunResult

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*tester, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}

	runCfg, err := runconfig.Load(config.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load run configuration: %w", err)
	}
	config.Log.Debug("Loaded run configuration",
		"config", config.ConfigFile,
		"testPath", runCfg.SuiteRoot(),
		"workingDir", runCfg.ArtifactDir(),
		"run", runCfg.Run.String(),
		"beforeEach", len(runCfg.BeforeEach),
		"init", len(runCfg.Init))

	drv, err := driver.New(driver.Config{
		Dir:          runCfg.Dir,
		ArtifactDir:  runCfg.ArtifactDir(),
		RenderedFile: runCfg.RenderedFile,
		Log:          config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	console, err := reporting.NewConsole(reporting.ConsoleConfig{
		Out:          config.Out,
		ReportFile:   config.ReportFile,
		Color:        config.Color,
		SummaryTable: config.SummaryTable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create console reporter: %w", err)
	}

	m := metrics.New(opmetrics.NewRegistry(), config.Log)

	suiteRunner, err := runner.New(runner.Config{
		TestPath:       runCfg.SuiteRoot(),
		SuiteExtension: runCfg.SuiteExtension,
		BeforeEach:     runCfg.BeforeEach,
		Target:         runCfg.Run,
		Executor:       drv,
		Reporter:       console,
		Metrics:        m,
		Log:            config.Log,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create suite runner: %w", err), console.Close())
	}

	return &tester{
		config:           config,
		runConfig:        runCfg,
		version:          version,
		driver:           drv,
		console:          console,
		metrics:          m,
		runner:           suiteRunner,
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs every requested suite once. It returns a TestFailureError when
// any case failed or any suite could not be run, and a RuntimeError when the
// run itself could not be carried out.
// Start implements the cliapp.Lifecycle interface.
func (t *tester) Start(ctx context.Context) (err error) {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			t.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()
	// Stop is not called by the lifecycle when Start fails.
	defer func() {
		if err != nil {
			if stopErr := t.Stop(context.Background()); stopErr != nil {
				t.config.Log.Warn("Failed to clean up after unsuccessful run", "err", stopErr)
			}
		}
	}()

	t.running.Store(true)
	t.config.Log.Info("Starting asmtest", "version", t.version, "suites", len(t.config.Suites))

	if err := t.startMetricsServer(); err != nil {
		return NewRuntimeError(err)
	}
	if err := t.driver.Prepare(); err != nil {
		return NewRuntimeError(err)
	}
	t.runInit(ctx)

	result, err := t.runner.RunSuites(ctx, t.config.Suites)
	if err != nil {
		t.config.Log.Error("Runtime error running suites", "error", err)
		return NewRuntimeError(err)
	}
	t.result = result
	t.console.Summary(result)

	if err := t.finishReports(ctx); err != nil {
		return NewRuntimeError(err)
	}

	if result.Failed() {
		t.config.Log.Warn("Run completed with failures, returning exit code 1",
			"run_id", result.RunID, "failed", result.Tally.Failed(), "suiteErrors", len(result.SuiteErrors))
		return NewTestFailureError(result.Tally.String())
	}

	t.config.Log.Info("Run completed, exiting", "run_id", result.RunID)
	go func() {
		t.shutdownCallback(nil)
	}()
	return nil
}

func (t *tester) startMetricsServer() error {
	cfg := t.config.MetricsConfig
	if !cfg.Enabled {
		return nil
	}
	t.config.Log.Info("Starting metrics server", "addr", cfg.ListenAddr, "port", cfg.ListenPort)
	srv, err := opmetrics.StartServer(t.metrics.Registry(), cfg.ListenAddr, cfg.ListenPort)
	if err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	t.config.Log.Info("Started metrics server", "endpoint", srv.Addr())
	t.metricsServer = srv
	return nil
}

// runInit runs the init commands once. A failing init command is logged and
// the run goes on; cases that depend on it fail on their own.
func (t *tester) runInit(ctx context.Context) {
	for _, cmd := range t.runConfig.Init {
		status, output, err := t.driver.Run(ctx, cmd)
		switch {
		case err != nil:
			t.config.Log.Warn("Init command could not be run", "command", cmd.String(), "err", err)
			t.metrics.RecordErrorDetails("init", err)
		case status != 0:
			t.config.Log.Warn("Init command failed", "command", cmd.String(), "status", status, "output", string(output))
			t.metrics.RecordError("init.nonzero_status")
		default:
			t.config.Log.Debug("Init command completed", "command", cmd.String())
		}
	}
}

// finishReports writes the JSON result, pushes metrics and closes the report
// file. A failed push is logged only.
func (t *tester) finishReports(ctx context.Context) error {
	if t.config.JSONReport != "" {
		if err := reporting.WriteJSON(t.config.JSONReport, t.result); err != nil {
			return err
		}
		t.config.Log.Info("Wrote JSON report", "path", t.config.JSONReport)
	}
	if t.config.PushGateway != "" {
		if err := t.metrics.Push(ctx, t.config.PushGateway, t.result.RunID); err != nil {
			t.config.Log.Error("Failed to push metrics", "err", err)
		}
	}
	return t.console.Close()
}

// Stop stops the metrics server and releases the report file.
// Stop implements the cliapp.Lifecycle interface.
func (t *tester) Stop(ctx context.Context) error {
	if !t.running.Load() {
		t.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	t.running.Store(false)

	var result error
	if t.metricsServer != nil {
		if err := t.metricsServer.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop metrics server: %w", err))
		}
	}
	if err := t.console.Close(); err != nil {
		result = errors.Join(result, err)
	}
	t.config.Log.Info("asmtest stopped")
	return result
}

// Stopped returns true if the tester is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (t *tester) Stopped() bool {
	return !t.running.Load()
}

// Result returns the result of the completed run, or nil.
func (t *tester) Result() *types.RunResult {
	return t.result
}
