package types

import (
	"fmt"
	"time"
)

// TestStatus represents the possible states of a case or suite once it has run
type TestStatus string

const (
	TestStatusPass  TestStatus = "pass"
	TestStatusFail  TestStatus = "fail"
	TestStatusError TestStatus = "error"
)

// CaseState is the last state a case reached before it was reported.
type CaseState string

const (
	CaseStatePending    CaseState = "pending"
	CaseStateRendered   CaseState = "rendered"
	CaseStateHookFailed CaseState = "hook_failed"
	CaseStateExecFailed CaseState = "exec_failed"
	CaseStateExecuted   CaseState = "executed"
	CaseStateEvaluated  CaseState = "evaluated"
)

// ExecutionResult is what one target invocation produced.
type ExecutionResult struct {
	ExitStatus int
	Stdout     []byte
}

// CaseOutcome is the verdict for a single case.
type CaseOutcome struct {
	Suite    string        `json:"suite"`
	CaseName string        `json:"name"`
	Passed   bool          `json:"passed"`
	Messages []string      `json:"messages,omitempty"`
	State    CaseState     `json:"state"`
	Duration time.Duration `json:"duration"`
}

// Status maps the outcome to a TestStatus.
func (o CaseOutcome) Status() TestStatus {
	if o.Passed {
		return TestStatusPass
	}
	return TestStatusFail
}

// Tally counts completed cases. Counters only ever grow.
type Tally struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
}

// Record counts one completed case.
func (t *Tally) Record(passed bool) {
	t.Total++
	if passed {
		t.Successful++
	}
}

// Add merges another tally into t.
func (t *Tally) Add(other Tally) {
	t.Total += other.Total
	t.Successful += other.Successful
}

// Failed returns the number of cases that did not pass.
func (t Tally) Failed() int {
	return t.Total - t.Successful
}

func (t Tally) String() string {
	return fmt.Sprintf("%d/%d tests successful.", t.Successful, t.Total)
}

// SuiteErrorReason classifies why a suite could not be run.
type SuiteErrorReason string

const (
	SuiteErrorMissing    SuiteErrorReason = "missing"
	SuiteErrorMalformed  SuiteErrorReason = "malformed"
	SuiteErrorUnreadable SuiteErrorReason = "unreadable"
)

// SuiteError records a suite that was skipped.
type SuiteError struct {
	Suite   string           `json:"suite"`
	Reason  SuiteErrorReason `json:"reason"`
	Message string           `json:"message"`
}

// SuiteResult holds every outcome of one suite, in case order.
type SuiteResult struct {
	ID       string        `json:"id"`
	Path     string        `json:"path"`
	Outcomes []CaseOutcome `json:"cases"`
	Tally    Tally         `json:"tally"`
	Duration time.Duration `json:"duration"`
}

// Status is pass when every case in the suite passed.
func (s SuiteResult) Status() TestStatus {
	if s.Tally.Failed() > 0 {
		return TestStatusFail
	}
	return TestStatusPass
}

// RunResult is the complete result of one run.
type RunResult struct {
	RunID       string        `json:"run_id"`
	Suites      []SuiteResult `json:"suites"`
	SuiteErrors []SuiteError  `json:"suite_errors,omitempty"`
	Tally       Tally         `json:"tally"`
	StartTime   time.Time     `json:"start_time"`
	Duration    time.Duration `json:"duration"`
}

// Failed reports whether any case failed or any suite could not be run.
func (r *RunResult) Failed() bool {
	return r.Tally.Successful < r.Tally.Total || len(r.SuiteErrors) > 0
}

// Status returns the overall status of the run.
func (r *RunResult) Status() TestStatus {
	switch {
	case len(r.SuiteErrors) > 0:
		return TestStatusError
	case r.Tally.Failed() > 0:
		return TestStatusFail
	default:
		return TestStatusPass
	}
}
