package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestApplyTemplateVars(t *testing.T) {
	t.Parallel()

	vars := map[string]string{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"title":      "Staff Engineer",
		"location":   "London",
		"email":      "ada@example.com",
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"all keys", "Hi {first_name} {last_name}, {title} in {location} <{email}>",
			"Hi Ada Lovelace, Staff Engineer in London <ada@example.com>"},
		{"repeated key", "{first_name}{first_name}", "AdaAda"},
		{"unknown key verbatim", "Hi {first_name}, about {company}", "Hi Ada, about {company}"},
		{"no placeholders", "Plain text", "Plain text"},
		{"unbalanced brace", "Hi {first_name", "Hi {first_name"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ApplyTemplateVars(tc.in, vars))
		})
	}
}

func TestApplyTemplateVarsDoesNotReexpandValues(t *testing.T) {
	t.Parallel()

	vars := map[string]string{"first_name": "{last_name}", "last_name": "Lovelace"}
	assert.Equal(t, "{last_name} Lovelace", ApplyTemplateVars("{first_name} {last_name}", vars))
}

var placeholderKeys = []string{"first_name", "last_name", "title", "location", "email"}

func TestApplyTemplateVarsProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		vars := make(map[string]string, len(placeholderKeys))
		for _, k := range placeholderKeys {
			vars[k] = rapid.StringMatching(`[A-Za-z@. ]{0,12}`).Draw(t, k)
		}

		segments := rapid.SliceOfN(rapid.IntRange(0, 2), 0, 12).Draw(t, "segments")

		var in, want strings.Builder
		for _, kind := range segments {
			switch kind {
			case 0:
				lit := rapid.StringMatching(`[a-z ,.!]{0,8}`).Draw(t, "literal")
				in.WriteString(lit)
				want.WriteString(lit)
			case 1:
				key := rapid.SampledFrom(placeholderKeys).Draw(t, "key")
				in.WriteString("{" + key + "}")
				want.WriteString(vars[key])
			default:
				unknown := "{unknown_" + rapid.StringMatching(`[a-z]{1,5}`).Draw(t, "unknown") + "}"
				in.WriteString(unknown)
				want.WriteString(unknown)
			}
		}

		got := ApplyTemplateVars(in.String(), vars)
		if got != want.String() {
			t.Fatalf("ApplyTemplateVars(%q) = %q, want %q", in.String(), got, want.String())
		}
	})
}
