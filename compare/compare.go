package compare

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ethereum-optimism/infra/asmtest/types"
)

// checker compares one expected value against a result and returns the
// actual value as text along with whether they matched.
type checker func(expected string, result types.ExecutionResult) (actual string, ok bool)

var checkers = map[types.ExpectationKind]checker{
	types.ExpectStatus: checkStatus,
	types.ExpectStdout: checkStdout,
}

// Evaluate checks every declared expectation against result and returns one
// message per mismatch. Kinds that are not declared are not checked. A
// declared kind that no checker knows fails the case with its own message.
func Evaluate(expectations map[types.ExpectationKind]string, result types.ExecutionResult) []string {
	var messages []string
	for _, kind := range types.ExpectationKinds {
		expected, ok := expectations[kind]
		if !ok {
			continue
		}
		check, ok := checkers[kind]
		if !ok {
			messages = append(messages, fmt.Sprintf("No checker for expectation %s.", kind))
			continue
		}
		if actual, ok := check(expected, result); !ok {
			messages = append(messages, Mismatch(string(kind), expected, actual))
		}
	}
	for _, kind := range unknownKinds(expectations) {
		messages = append(messages, fmt.Sprintf("Unknown expectation %s.", kind.Key()))
	}
	return messages
}

func unknownKinds(expectations map[types.ExpectationKind]string) []types.ExpectationKind {
	var kinds []types.ExpectationKind
	for kind := range expectations {
		if !kind.IsValid() {
			kinds = append(kinds, kind)
		}
	}
	slices.Sort(kinds)
	return kinds
}

// Mismatch formats the message reported when a value differs from its expectation.
func Mismatch(field, expected, actual string) string {
	return fmt.Sprintf("Expected %s [%s] but found [%s].", field, expected, actual)
}

func checkStatus(expected string, result types.ExecutionResult) (string, bool) {
	actual := strconv.Itoa(result.ExitStatus)
	want, err := types.ParseStatus(expected)
	if err != nil {
		return actual, false
	}
	return actual, want == result.ExitStatus
}

// checkStdout trims surrounding whitespace from the captured output only; the
// expected text is compared as declared.
func checkStdout(expected string, result types.ExecutionResult) (string, bool) {
	actual := strings.TrimSpace(string(result.Stdout))
	return actual, actual == expected
}
