package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/asmtest/compare"
	"github.com/ethereum-optimism/infra/asmtest/driver"
	"github.com/ethereum-optimism/infra/asmtest/render"
	"github.com/ethereum-optimism/infra/asmtest/suite"
	"github.com/ethereum-optimism/infra/asmtest/types"
)

// Executor performs the side effects of a case: writing the rendered
// artifact, running hooks and running the target.
type Executor interface {
	WriteArtifact(content string) error
	RunHooks(ctx context.Context, hooks []types.Command) error
	RunTarget(ctx context.Context, base types.Command, args []string) (*types.ExecutionResult, error)
}

// Reporter receives results as soon as they are known.
type Reporter interface {
	CaseCompleted(outcome types.CaseOutcome)
	SuiteFailed(suiteErr types.SuiteError)
}

// Metricer records run statistics.
type Metricer interface {
	RecordCase(outcome types.CaseOutcome)
	RecordSuiteError(suiteErr types.SuiteError)
	RecordRun(result *types.RunResult)
}

// SuiteRunner runs suites and aggregates their outcomes.
type SuiteRunner interface {
	RunSuites(ctx context.Context, ids []string) (*types.RunResult, error)
}

// Config holds configuration for creating a new runner
type Config struct {
	TestPath       string          // absolute root suites are discovered in and resolved against
	SuiteExtension string          // suite file extension, including the dot
	BeforeEach     []types.Command // run before every case
	Target         types.Command   // run for every case, with the case's args appended
	Executor       Executor
	Reporter       Reporter
	Metrics        Metricer // optional
	Log            log.Logger
}

// runner struct implements SuiteRunner interface
type runner struct {
	testPath   string
	ext        string
	beforeEach []types.Command
	target     types.Command
	executor   Executor
	reporter   Reporter
	metrics    Metricer
	log        log.Logger
	tracer     trace.Tracer
}

var _ SuiteRunner = (*runner)(nil)

// New creates a new suite runner
func New(cfg Config) (SuiteRunner, error) {
	if cfg.TestPath == "" {
		return nil, errors.New("test path is required")
	}
	if len(cfg.Target) == 0 {
		return nil, errors.New("target command is required")
	}
	if cfg.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if cfg.Reporter == nil {
		return nil, errors.New("reporter is required")
	}
	if cfg.SuiteExtension == "" {
		cfg.SuiteExtension = suite.DefaultExtension
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	return &runner{
		testPath:   cfg.TestPath,
		ext:        cfg.SuiteExtension,
		beforeEach: cfg.BeforeEach,
		target:     cfg.Target,
		executor:   cfg.Executor,
		reporter:   cfg.Reporter,
		metrics:    cfg.Metrics,
		log:        cfg.Log,
		tracer:     otel.Tracer("asmtest runner"),
	}, nil
}

// RunSuites runs the given suites in order. With no ids every suite under the
// test path is discovered and run in identifier order. A suite that is
// missing or malformed is reported and skipped; only problems that affect
// the whole run are returned as errors.
func (r *runner) RunSuites(ctx context.Context, ids []string) (*types.RunResult, error) {
	start := time.Now()
	runID := uuid.New().String()

	ctx, span := r.tracer.Start(ctx, "run", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	if len(ids) == 0 {
		discovered, err := suite.Discover(r.testPath, r.ext)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if len(discovered) == 0 {
			r.log.Warn("No suites found", "test_path", r.testPath, "extension", r.ext)
		}
		ids = discovered
	}
	r.log.Debug("Running suites", "run_id", runID, "suites", len(ids))

	result := &types.RunResult{
		RunID:     runID,
		StartTime: start,
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "interrupted")
			return nil, fmt.Errorf("run interrupted before suite %s: %w", id, err)
		}
		suiteResult, suiteErr, err := r.runSuite(ctx, id)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if suiteErr != nil {
			r.log.Warn("Suite skipped", "suite", suiteErr.Suite, "reason", suiteErr.Reason, "err", suiteErr.Message)
			r.reporter.SuiteFailed(*suiteErr)
			r.metrics.RecordSuiteError(*suiteErr)
			result.SuiteErrors = append(result.SuiteErrors, *suiteErr)
			continue
		}
		result.Suites = append(result.Suites, *suiteResult)
		result.Tally.Add(suiteResult.Tally)
	}

	result.Duration = time.Since(start)
	r.metrics.RecordRun(result)
	span.SetAttributes(
		attribute.Int("total", result.Tally.Total),
		attribute.Int("successful", result.Tally.Successful),
	)
	if result.Failed() {
		span.SetStatus(codes.Error, result.Tally.String())
	}
	r.log.Info("Run completed", "run_id", runID, "status", result.Status(),
		"total", result.Tally.Total, "successful", result.Tally.Successful, "duration", result.Duration)
	return result, nil
}

// runSuite parses and runs one suite. It returns a SuiteError when the suite
// cannot be loaded and a plain error when the run has to stop.
func (r *runner) runSuite(ctx context.Context, id string) (*types.SuiteResult, *types.SuiteError, error) {
	id = strings.TrimSuffix(id, r.ext)
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("suite %s", id))
	defer span.End()

	path := suite.Path(r.testPath, id, r.ext)
	doc, err := suite.ParseFile(path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, classify(id, err), nil
	}

	suiteStart := time.Now()
	suiteResult := &types.SuiteResult{
		ID:       id,
		Path:     path,
		Outcomes: make([]types.CaseOutcome, 0, len(doc.Cases)),
	}
	for _, c := range doc.Cases {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("run interrupted in suite %s: %w", id, err)
		}
		outcome := r.runCase(ctx, id, doc.Template, c)
		suiteResult.Outcomes = append(suiteResult.Outcomes, outcome)
		suiteResult.Tally.Record(outcome.Passed)
		r.reporter.CaseCompleted(outcome)
		r.metrics.RecordCase(outcome)
	}
	suiteResult.Duration = time.Since(suiteStart)

	if suiteResult.Tally.Failed() > 0 {
		span.SetStatus(codes.Error, suiteResult.Tally.String())
	}
	return suiteResult, nil, nil
}

// runCase takes one case from Pending to Evaluated. Every path returns an
// outcome; hook and execution failures end the case early as failures.
func (r *runner) runCase(ctx context.Context, suiteID, template string, c types.Case) types.CaseOutcome {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("case %s", c.Name))
	defer span.End()

	start := time.Now()
	outcome := types.CaseOutcome{
		Suite:    suiteID,
		CaseName: c.Name,
		State:    types.CaseStatePending,
	}
	finish := func(state types.CaseState, messages ...string) types.CaseOutcome {
		outcome.State = state
		outcome.Messages = messages
		outcome.Passed = len(messages) == 0
		outcome.Duration = time.Since(start)
		span.SetAttributes(attribute.String("state", string(state)))
		if !outcome.Passed {
			span.SetStatus(codes.Error, strings.Join(messages, " "))
		}
		r.log.Debug("Case finished", "suite", suiteID, "case", c.Name, "state", state, "passed", outcome.Passed)
		return outcome
	}

	rendered := render.Render(template, c.Params)
	outcome.State = types.CaseStateRendered
	if err := r.executor.WriteArtifact(rendered); err != nil {
		return finish(types.CaseStateExecFailed, fmt.Sprintf("Could not write rendered file: %v.", err))
	}

	if err := r.executor.RunHooks(ctx, r.beforeEach); err != nil {
		return finish(types.CaseStateHookFailed, hookMessage(err))
	}

	res, err := r.executor.RunTarget(ctx, r.target, c.Args())
	if err != nil {
		return finish(types.CaseStateExecFailed, fmt.Sprintf("Could not run target: %v.", err))
	}
	outcome.State = types.CaseStateExecuted

	return finish(types.CaseStateEvaluated, compare.Evaluate(c.Expectations, *res)...)
}

func hookMessage(err error) string {
	var hookErr *driver.HookFailure
	if !errors.As(err, &hookErr) {
		return fmt.Sprintf("Before-each command failed: %v.", err)
	}
	if hookErr.Err != nil {
		return fmt.Sprintf("Before-each command [%s] could not be run: %v.", hookErr.Command, hookErr.Err)
	}
	return fmt.Sprintf("Before-each command [%s] failed with status %d.", hookErr.Command, hookErr.ExitStatus)
}

func classify(id string, err error) *types.SuiteError {
	reason := types.SuiteErrorUnreadable
	switch {
	case errors.Is(err, suite.ErrMissingSuiteFile):
		reason = types.SuiteErrorMissing
	case errors.Is(err, suite.ErrMalformedSuite):
		reason = types.SuiteErrorMalformed
	}
	return &types.SuiteError{Suite: id, Reason: reason, Message: err.Error()}
}

type noopMetrics struct{}

func (noopMetrics) RecordCase(types.CaseOutcome)     {}
func (noopMetrics) RecordSuiteError(types.SuiteError) {}
func (noopMetrics) RecordRun(*types.RunResult)        {}
