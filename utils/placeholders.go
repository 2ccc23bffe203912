package utils

import (
	"sort"
	"strings"
)

// ApplyTemplateVars replaces every {key} in text with vars[key]. Placeholders
// without a matching key are left untouched. Substitution is a single pass, so
// values that themselves contain braces are never expanded again.
func ApplyTemplateVars(text string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(text, "{") {
		return text
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
