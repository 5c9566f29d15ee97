package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ExpectationKind names a property of an execution result that a case can assert on.
type ExpectationKind string

const (
	ExpectStatus ExpectationKind = "status"
	ExpectStdout ExpectationKind = "stdout"
)

// ExpectationPrefix marks case fields that declare expectations rather than template parameters.
const ExpectationPrefix = "expect_"

// NameField is the case field used for reporting.
const NameField = "name"

// ArgsParam is the parameter whose value is appended to the target command.
const ArgsParam = "args"

// ExpectationKinds lists every known kind in evaluation order.
var ExpectationKinds = []ExpectationKind{ExpectStatus, ExpectStdout}

// IsValid reports whether k is a known expectation kind.
func (k ExpectationKind) IsValid() bool {
	return slices.Contains(ExpectationKinds, k)
}

// Key returns the suite file field name for k, e.g. "expect_status".
func (k ExpectationKind) Key() string {
	return ExpectationPrefix + string(k)
}

// Validate checks that value is acceptable as an expected value of kind k.
func (k ExpectationKind) Validate(value string) error {
	switch k {
	case ExpectStatus:
		if _, err := ParseStatus(value); err != nil {
			return err
		}
		return nil
	case ExpectStdout:
		return nil
	default:
		return fmt.Errorf("unknown expectation kind %q", string(k))
	}
}

// ParseStatus parses an expected exit status.
func ParseStatus(value string) (int, error) {
	status, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("status %q is not an integer", value)
	}
	return status, nil
}

// Param is a single named template parameter.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Params holds template parameters in declaration order.
type Params []Param

// Get returns the value of the parameter named key.
func (p Params) Get(key string) (string, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}
	return "", false
}

// Keys returns the parameter names in declaration order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for _, param := range p {
		keys = append(keys, param.Key)
	}
	return keys
}

// Case is one parameterized instantiation of a suite template.
type Case struct {
	Name         string
	Params       Params
	Expectations map[ExpectationKind]string
}

// Args returns the extra target arguments declared by the case, if any.
func (c Case) Args() []string {
	v, ok := c.Params.Get(ArgsParam)
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

// Document is a parsed suite file.
type Document struct {
	Template string
	Cases    []Case
}

// Command is an argument vector: the program followed by its arguments.
type Command []string

// String returns the command as it would be typed, for reporting.
func (c Command) String() string {
	return strings.Join(c, " ")
}
