package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/asmtest/types"
)

func params(kv ...string) types.Params {
	var p types.Params
	for i := 0; i+1 < len(kv); i += 2 {
		p = append(p, types.Param{Key: kv[i], Value: kv[i+1]})
	}
	return p
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		params   types.Params
		want     string
	}{
		{
			name:     "single placeholder",
			template: "mov eax, {{ val }}\nret",
			params:   params("val", "5"),
			want:     "mov eax, 5\nret",
		},
		{
			name:     "every occurrence",
			template: "{{ r }} {{ r }}\n{{ r }}",
			params:   params("r", "rax"),
			want:     "rax rax\nrax",
		},
		{
			name:     "several keys",
			template: "mov {{ dst }}, {{ src }}",
			params:   params("src", "rbx", "dst", "rax"),
			want:     "mov rax, rbx",
		},
		{
			name:     "unknown placeholder kept",
			template: "mov eax, {{ missing }}",
			params:   params("val", "1"),
			want:     "mov eax, {{ missing }}",
		},
		{
			name:     "unused parameters ignored",
			template: "ret",
			params:   params("a", "1", "b", "2"),
			want:     "ret",
		},
		{
			name:     "value not rescanned",
			template: "{{ a }}",
			params:   params("a", "{{ b }}", "b", "boom"),
			want:     "{{ b }}",
		},
		{
			name:     "overlapping keys",
			template: "{{ a }} {{ ab }} {{ b }}",
			params:   params("a", "1", "ab", "2", "b", "3"),
			want:     "1 2 3",
		},
		{
			name:     "overlapping keys reversed order",
			template: "{{ ab }} {{ a }}",
			params:   params("ab", "2", "a", "1"),
			want:     "2 1",
		},
		{
			name:     "placeholder inside unmatched text",
			template: "{{ x {{ val }}",
			params:   params("val", "9"),
			want:     "{{ x 9",
		},
		{
			name:     "non canonical spacing is not a placeholder",
			template: "{{val}} {{  val  }}",
			params:   params("val", "1"),
			want:     "{{val}} {{  val  }}",
		},
		{
			name:     "unterminated placeholder",
			template: "mov eax, {{ val",
			params:   params("val", "1"),
			want:     "mov eax, {{ val",
		},
		{
			name:     "empty value",
			template: "a{{ v }}b",
			params:   params("v", ""),
			want:     "ab",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, tt.params))
		})
	}
}

func TestRenderIdentityWithoutMatches(t *testing.T) {
	templates := []string{
		"",
		"section .text\nglobal _start\n",
		"{{ other }} and {{ more }}",
		"{{ {{ }} }}",
	}
	p := params("val", "5", "reg", "rax")
	for _, tmpl := range templates {
		assert.Equal(t, tmpl, Render(tmpl, p))
		assert.Equal(t, tmpl, Render(tmpl, nil))
	}
}

func TestRenderSinglePlaceholderChangesNothingElse(t *testing.T) {
	prefix := "section .text\n  mov eax, "
	suffix := "\n  ret ; {{ not a key }}\n"
	got := Render(prefix+"{{ k }}"+suffix, params("k", "0x10"))
	assert.Equal(t, prefix+"0x10"+suffix, got)
}
