package suite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/asmtest/types"
)

// Delimiter is the line separating the template from the case list.
const Delimiter = "-----"

// CasesField is the top-level field holding the case list.
const CasesField = "cases"

var (
	ErrMalformedSuite   = errors.New("malformed suite")
	ErrMissingSuiteFile = errors.New("missing suite file")
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedSuite, fmt.Sprintf(format, args...))
}

// ParseFile reads and parses the suite file at path.
func ParseFile(path string) (*types.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSuiteFile, path)
		}
		return nil, fmt.Errorf("reading suite %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse splits raw suite text at the delimiter line and decodes the case list.
// The template is everything before the delimiter line, unmodified.
func Parse(raw []byte) (*types.Document, error) {
	template, structured, err := split(string(raw))
	if err != nil {
		return nil, err
	}
	cases, err := parseCases(structured)
	if err != nil {
		return nil, err
	}
	return &types.Document{
		Template: template,
		Cases:    cases,
	}, nil
}

// split returns the text before the first delimiter line and the text after it.
func split(text string) (string, string, error) {
	offset := 0
	found := -1
	var rest string
	for offset <= len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		line := text[offset:]
		next := len(text) + 1
		if end >= 0 {
			line = text[offset : offset+end]
			next = offset + end + 1
		}
		if isDelimiterLine(line) {
			if found >= 0 {
				return "", "", malformed("more than one %q delimiter line", Delimiter)
			}
			found = offset
			if next <= len(text) {
				rest = text[next:]
			}
		}
		offset = next
	}
	if found < 0 {
		return "", "", malformed("no %q delimiter line", Delimiter)
	}
	return text[:found], rest, nil
}

func isDelimiterLine(line string) bool {
	return strings.TrimRight(line, " \t\r") == Delimiter
}

// parseCases decodes the structured section. Text that starts with "{" is
// read as JSON first; if it is not JSON it is read as YAML, which also covers
// flow style mappings such as {cases: [...]}.
func parseCases(structured string) ([]types.Case, error) {
	text := strings.TrimSpace(structured)
	if strings.HasPrefix(text, "{") {
		cases, err := parseJSONCases(text)
		var notJSON *notJSONError
		if !errors.As(err, &notJSON) {
			return cases, err
		}
	}
	return parseYAMLCases(text)
}

func parseYAMLCases(text string) ([]types.Case, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, malformed("invalid case list: %v", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, malformed("empty case list section")
	}
	top := resolve(root.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, malformed("case list section must be an object")
	}
	casesNode := lookup(top, CasesField)
	if casesNode == nil {
		return nil, malformed("missing %q field", CasesField)
	}
	if casesNode.Kind != yaml.SequenceNode {
		return nil, malformed("%q must be a list", CasesField)
	}

	cases := make([]types.Case, 0, len(casesNode.Content))
	for i, node := range casesNode.Content {
		c, err := parseYAMLCase(resolve(node))
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i+1, err)
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func parseYAMLCase(node *yaml.Node) (types.Case, error) {
	if node.Kind != yaml.MappingNode {
		return types.Case{}, malformed("case must be an object")
	}
	b := newCaseBuilder()
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value, err := scalar(node.Content[i+1])
		if err != nil {
			return types.Case{}, malformed("field %q: %v", key, err)
		}
		if err := b.add(key, value); err != nil {
			return types.Case{}, err
		}
	}
	return b.build()
}

// caseBuilder sorts the fields of one case record into the name, an
// expectation or a template parameter, keeping declaration order.
type caseBuilder struct {
	c       types.Case
	seen    map[string]struct{}
	hasName bool
}

func newCaseBuilder() *caseBuilder {
	return &caseBuilder{
		c:    types.Case{Expectations: make(map[types.ExpectationKind]string)},
		seen: make(map[string]struct{}),
	}
}

func (b *caseBuilder) add(key, value string) error {
	if _, dup := b.seen[key]; dup {
		return malformed("duplicate field %q", key)
	}
	b.seen[key] = struct{}{}

	switch {
	case key == types.NameField:
		b.c.Name = value
		b.hasName = true
	case strings.HasPrefix(key, types.ExpectationPrefix):
		kind := types.ExpectationKind(strings.TrimPrefix(key, types.ExpectationPrefix))
		// Unknown kinds are kept; the comparator fails the case that uses them.
		if kind.IsValid() {
			if err := kind.Validate(value); err != nil {
				return malformed("field %q: %v", key, err)
			}
		}
		b.c.Expectations[kind] = value
	default:
		b.c.Params = append(b.c.Params, types.Param{Key: key, Value: value})
	}
	return nil
}

func (b *caseBuilder) build() (types.Case, error) {
	if !b.hasName || strings.TrimSpace(b.c.Name) == "" {
		return b.c, malformed("missing %q", types.NameField)
	}
	return b.c, nil
}

func scalar(node *yaml.Node) (string, error) {
	node = resolve(node)
	if node.Kind != yaml.ScalarNode {
		return "", errors.New("value must be a string")
	}
	if node.ShortTag() == "!!null" {
		return "", errors.New("value must not be null")
	}
	return node.Value, nil
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return resolve(mapping.Content[i+1])
		}
	}
	return nil
}

func resolve(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}
