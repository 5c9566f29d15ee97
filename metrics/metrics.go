package metrics

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/ethereum-optimism/infra/asmtest/types"
)

const (
	MetricsNamespace = "asmtest"
	PushJobName      = "asmtest"
)

var (
	validResults         = []types.TestStatus{types.TestStatusPass, types.TestStatusFail}
	nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z ]+`)
)

// Metrics records case and run statistics into its own registry, which can
// be served over HTTP or pushed to a Pushgateway once the run is over.
type Metrics struct {
	registry *prometheus.Registry
	log      log.Logger

	errorsTotal       *prometheus.CounterVec
	casesTotal        *prometheus.CounterVec
	caseDuration      *prometheus.HistogramVec
	suiteErrorsTotal  *prometheus.CounterVec
	runCases          *prometheus.GaugeVec
	runDuration       prometheus.Gauge
	lastRunSuccessful prometheus.Gauge
	lastRunTimestamp  prometheus.Gauge
}

// New registers the asmtest collectors with registry.
func New(registry *prometheus.Registry, logger log.Logger) *Metrics {
	if logger == nil {
		logger = log.New()
	}
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		log:      logger,

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "errors_total",
			Help:      "Count of errors",
		}, []string{
			"error",
		}),
		casesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "cases_total",
			Help:      "Count of completed cases",
		}, []string{
			"suite",
			"result",
		}),
		caseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "case_duration_seconds",
			Help:      "Time taken by a case, from rendering to evaluation",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{
			"result",
		}),
		suiteErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "suite_errors_total",
			Help:      "Count of suites that could not be run",
		}, []string{
			"suite",
			"reason",
		}),
		runCases: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_cases",
			Help:      "Number of cases in the last run by result",
		}, []string{
			"result",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run",
		}),
		lastRunSuccessful: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "last_run_successful",
			Help:      "1 if the last run had no failed cases and no suite errors",
		}),
		lastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run started",
		}),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func (m *Metrics) RecordError(error string) {
	m.log.Debug("metric inc", "m", "errors_total", "error", error)
	m.errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func (m *Metrics) RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	m.RecordError(label)
}

func (m *Metrics) RecordCase(outcome types.CaseOutcome) {
	result := outcome.Status()
	if !isValidResult(result) {
		m.log.Error("RecordCase - invalid result", "result", result)
		return
	}
	m.casesTotal.WithLabelValues(outcome.Suite, string(result)).Inc()
	m.caseDuration.WithLabelValues(string(result)).Observe(outcome.Duration.Seconds())
}

func (m *Metrics) RecordSuiteError(suiteErr types.SuiteError) {
	m.suiteErrorsTotal.WithLabelValues(suiteErr.Suite, string(suiteErr.Reason)).Inc()
}

func (m *Metrics) RecordRun(result *types.RunResult) {
	m.runCases.WithLabelValues(string(types.TestStatusPass)).Set(float64(result.Tally.Successful))
	m.runCases.WithLabelValues(string(types.TestStatusFail)).Set(float64(result.Tally.Failed()))
	m.runDuration.Set(result.Duration.Seconds())
	m.lastRunTimestamp.Set(float64(result.StartTime.Unix()))
	if result.Failed() {
		m.lastRunSuccessful.Set(0)
	} else {
		m.lastRunSuccessful.Set(1)
	}
}

// Push sends every collected metric to the Pushgateway at url, grouped by
// run ID.
func (m *Metrics) Push(ctx context.Context, url, runID string) error {
	err := push.New(url, PushJobName).
		Gatherer(m.registry).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
