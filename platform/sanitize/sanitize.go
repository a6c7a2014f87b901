// Package sanitize cleans free text typed by agents before it is stored.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	spaceRunPattern   = regexp.MustCompile(`[ \t]+`)
	entityReplacement = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
)

// StripHTML removes markup. Entities are decoded and the result stripped
// again so encoded tags do not survive.
func StripHTML(s string) string {
	result := tagPattern.ReplaceAllString(s, "")
	result = entityReplacement.Replace(result)
	result = tagPattern.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips markup and collapses runs of spaces and tabs. Line breaks are
// kept because interaction notes are often multi-line.
func Text(s string) string {
	lines := strings.Split(StripHTML(s), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRunPattern.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Line is Text for single-line fields such as names.
func Line(s string) string {
	return strings.Join(strings.Fields(StripHTML(s)), " ")
}

// LinePtr applies Line to an optional field.
func LinePtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Line(*s)
	return &result
}
