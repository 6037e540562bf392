package refs

import (
	"regexp"
	"strings"

	"github.com/nugget/hacheck/internal/entityid"
)

// templateCalls are the substrings that mark a string as worth scanning.
var templateCalls = []string{"state_attr(", "states(", "is_state("}

// templatePatterns match literal entity ids passed to the common state
// helpers, plus the states.domain.object attribute form.
var templatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`states\('([^']+)'\)`),
	regexp.MustCompile(`states\("([^"]+)"\)`),
	regexp.MustCompile(`states\.([a-zA-Z_][a-zA-Z0-9_]*\.[a-zA-Z_][a-zA-Z0-9_]*)`),
	regexp.MustCompile(`is_state\('([^']+)'`),
	regexp.MustCompile(`is_state\("([^"]+)"`),
	regexp.MustCompile(`state_attr\('([^']+)'`),
	regexp.MustCompile(`state_attr\("([^"]+)"`),
}

func hasTemplateCall(s string) bool {
	for _, call := range templateCalls {
		if strings.Contains(s, call) {
			return true
		}
	}
	return false
}

// FromTemplate returns entity ids written literally inside a template
// string. It is lexical only: ids assembled by concatenation, passed
// through variables, or reached through helpers such as expand() or
// area_entities() are not found. A match must have exactly two
// dot-separated parts.
func FromTemplate(tmpl string) entityid.Set {
	out := entityid.Set{}
	for _, re := range templatePatterns {
		for _, m := range re.FindAllStringSubmatch(tmpl, -1) {
			if strings.Count(m[1], ".") == 1 {
				out.Add(m[1])
			}
		}
	}
	return out
}
