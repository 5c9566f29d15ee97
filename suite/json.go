package suite

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ethereum-optimism/infra/asmtest/types"
)

// notJSONError reports that the structured section could not be tokenized as
// JSON at all, as opposed to JSON with the wrong shape.
type notJSONError struct {
	err error
}

func (e *notJSONError) Error() string {
	return fmt.Sprintf("not JSON: %v", e.err)
}

func (e *notJSONError) Unwrap() error {
	return e.err
}

// parseJSONCases walks the case list token by token so that field order is
// kept. Fields other than "cases" at the top level are skipped.
func parseJSONCases(text string) ([]types.Case, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	if err := expectDelim(dec, '{', "case list section must be an object"); err != nil {
		return nil, err
	}
	var (
		cases []types.Case
		found bool
	)
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return nil, err
		}
		if key != CasesField {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, &notJSONError{err}
			}
			continue
		}
		if found {
			return nil, malformed("duplicate field %q", CasesField)
		}
		found = true
		if cases, err = jsonCaseList(dec); err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, '}', "case list section must be an object"); err != nil {
		return nil, err
	}
	if tok, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, &notJSONError{err}
		}
		return nil, malformed("unexpected %v after case list", tok)
	}
	if !found {
		return nil, malformed("missing %q field", CasesField)
	}
	return cases, nil
}

func jsonCaseList(dec *json.Decoder) ([]types.Case, error) {
	if err := expectDelim(dec, '[', fmt.Sprintf("%q must be a list", CasesField)); err != nil {
		return nil, err
	}
	cases := []types.Case{}
	for dec.More() {
		c, err := jsonCase(dec)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", len(cases)+1, err)
		}
		cases = append(cases, c)
	}
	if err := expectDelim(dec, ']', fmt.Sprintf("%q must be a list", CasesField)); err != nil {
		return nil, err
	}
	return cases, nil
}

func jsonCase(dec *json.Decoder) (types.Case, error) {
	if err := expectDelim(dec, '{', "case must be an object"); err != nil {
		return types.Case{}, err
	}
	b := newCaseBuilder()
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return types.Case{}, err
		}
		value, err := jsonScalar(dec)
		if err != nil {
			return types.Case{}, fmt.Errorf("field %q: %w", key, err)
		}
		if err := b.add(key, value); err != nil {
			return types.Case{}, err
		}
	}
	if err := expectDelim(dec, '}', "case must be an object"); err != nil {
		return types.Case{}, err
	}
	return b.build()
}

// jsonScalar reads one value and returns its literal text. Numbers keep the
// spelling they have in the file.
func jsonScalar(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", &notJSONError{err}
	}
	switch v := tok.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", malformed("value must not be null")
	default:
		return "", malformed("value must be a string")
	}
}

func objectKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", &notJSONError{err}
	}
	key, ok := tok.(string)
	if !ok {
		return "", &notJSONError{fmt.Errorf("unexpected %v in place of a field name", tok)}
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim, shape string) error {
	tok, err := dec.Token()
	if err != nil {
		return &notJSONError{err}
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return malformed("%s", shape)
	}
	return nil
}
