// Package render expands suite templates for a single case.
//
// A placeholder is the literal token "{{ key }}": two opening braces, one
// space, the key, one space, two closing braces. The template is scanned once
// from left to right; every placeholder whose key is a parameter name is
// replaced by the parameter value and everything else is copied unchanged.
// Substituted values are never scanned again, so a value that itself looks
// like a placeholder stays literal. Keys are matched as whole tokens, which
// means a key that is a substring of another key cannot interfere with it.
package render

import (
	"strings"

	"github.com/ethereum-optimism/infra/asmtest/types"
)

const (
	openDelim  = "{{ "
	closeDelim = " }}"
)

// Render returns template with every known placeholder substituted.
// Placeholders without a matching parameter are left as they are.
func Render(template string, params types.Params) string {
	if len(params) == 0 {
		return template
	}
	values := make(map[string]string, len(params))
	for _, p := range params {
		if _, ok := values[p.Key]; !ok {
			values[p.Key] = p.Value
		}
	}

	var b strings.Builder
	b.Grow(len(template))
	rest := template
	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			break
		}
		keyStart := start + len(openDelim)
		end := strings.Index(rest[keyStart:], closeDelim)
		if end < 0 {
			break
		}
		key := rest[keyStart : keyStart+end]

		b.WriteString(rest[:start])
		if value, ok := values[key]; ok {
			b.WriteString(value)
			rest = rest[keyStart+end+len(closeDelim):]
			continue
		}
		// No such parameter: keep the opening brace pair and rescan after it,
		// so a placeholder nested in the unmatched text is still found.
		b.WriteString(openDelim[:2])
		rest = rest[start+2:]
	}
	b.WriteString(rest)
	return b.String()
}
