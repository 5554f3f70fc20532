package enrollment

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\[([a-z_]+)\]`)

// RenderTemplate substitutes bracketed placeholders like [buyer_name]
// with their values. Unrecognized placeholders stay verbatim. Every
// placeholder is visited exactly once, so rendering is a single pass and
// never re-substitutes inside an inserted value.
func RenderTemplate(template string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := values[name]; ok {
			return value
		}
		return match
	})
}

// ParticipantList renders participant names as a newline-joined list with
// a "- " prefix, the expansion of the [participants] placeholder.
func ParticipantList(names []string) string {
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = "- " + name
	}
	return strings.Join(lines, "\n")
}
