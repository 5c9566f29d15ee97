package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectationKind(t *testing.T) {
	assert.True(t, ExpectStatus.IsValid())
	assert.True(t, ExpectStdout.IsValid())
	assert.False(t, ExpectationKind("stderr").IsValid())

	assert.Equal(t, "expect_status", ExpectStatus.Key())
	assert.Equal(t, "expect_stdout", ExpectStdout.Key())
}

func TestExpectationKindValidate(t *testing.T) {
	tests := []struct {
		name    string
		kind    ExpectationKind
		value   string
		wantErr bool
	}{
		{name: "status integer", kind: ExpectStatus, value: "5"},
		{name: "status padded", kind: ExpectStatus, value: " 42 "},
		{name: "status negative", kind: ExpectStatus, value: "-1"},
		{name: "status not a number", kind: ExpectStatus, value: "five", wantErr: true},
		{name: "status empty", kind: ExpectStatus, value: "", wantErr: true},
		{name: "stdout anything", kind: ExpectStdout, value: "hello\nworld"},
		{name: "unknown kind", kind: ExpectationKind("stderr"), value: "x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.kind.Validate(tt.value)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParamsPreserveOrder(t *testing.T) {
	p := Params{{Key: "b", Value: "2"}, {Key: "a", Value: "1"}, {Key: "c", Value: "3"}}
	assert.Equal(t, []string{"b", "a", "c"}, p.Keys())

	v, ok := p.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = p.Get("missing")
	assert.False(t, ok)
}

func TestCaseArgs(t *testing.T) {
	c := Case{Name: "x", Params: Params{{Key: "args", Value: " -v  --fast "}}}
	assert.Equal(t, []string{"-v", "--fast"}, c.Args())

	assert.Nil(t, Case{Name: "y"}.Args())
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "make build", Command{"make", "build"}.String())
	assert.Equal(t, "", Command(nil).String())
}

func TestTally(t *testing.T) {
	var tally Tally
	tally.Record(true)
	tally.Record(false)
	tally.Record(true)

	assert.Equal(t, 3, tally.Total)
	assert.Equal(t, 2, tally.Successful)
	assert.Equal(t, 1, tally.Failed())
	assert.Equal(t, "2/3 tests successful.", tally.String())

	tally.Add(Tally{Total: 2, Successful: 2})
	assert.Equal(t, Tally{Total: 5, Successful: 4}, tally)
}

func TestRunResultStatus(t *testing.T) {
	r := &RunResult{Tally: Tally{Total: 2, Successful: 2}}
	assert.False(t, r.Failed())
	assert.Equal(t, TestStatusPass, r.Status())

	r.Tally.Record(false)
	assert.True(t, r.Failed())
	assert.Equal(t, TestStatusFail, r.Status())

	r = &RunResult{SuiteErrors: []SuiteError{{Suite: "broken", Reason: SuiteErrorMalformed}}}
	assert.True(t, r.Failed())
	assert.Equal(t, TestStatusError, r.Status())
}

func TestSuiteResultStatus(t *testing.T) {
	assert.Equal(t, TestStatusPass, SuiteResult{Tally: Tally{Total: 1, Successful: 1}}.Status())
	assert.Equal(t, TestStatusFail, SuiteResult{Tally: Tally{Total: 1}}.Status())
	assert.Equal(t, TestStatusPass, SuiteResult{}.Status())
}

func TestCaseOutcomeStatus(t *testing.T) {
	assert.Equal(t, TestStatusPass, CaseOutcome{Passed: true}.Status())
	assert.Equal(t, TestStatusFail, CaseOutcome{}.Status())
}
