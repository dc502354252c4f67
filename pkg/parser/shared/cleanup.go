package shared

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// cleanupPattern is a pre-compiled regex transform, the same shape the
// teacher's masking package uses for its CompiledPattern (pkg/masking/
// pattern.go), repurposed here for whitespace/punctuation cleanup
// instead of secret redaction.
type cleanupPattern struct {
	name    string
	regex   *regexp.Regexp
	replace string
}

var cleanupPatterns = []cleanupPattern{
	{name: "collapse_whitespace", regex: regexp.MustCompile(`[ \t\f\v\r]+`), replace: " "},
	{name: "collapse_blank_lines", regex: regexp.MustCompile(`\n{3,}`), replace: "\n\n"},
	{name: "trim_line_spaces", regex: regexp.MustCompile(`[ \t]*\n[ \t]*`), replace: "\n"},
}

// CleanText collapses whitespace runs and normalizes full-width ASCII
// punctuation/digits to their half-width form (spec.md §4.2's "text
// cleanup: collapse whitespace runs; decode HTML entities; normalize
// full-width/half-width punctuation"). HTML entity decoding happens for
// free inside html.Parse, so this only needs whitespace and width work.
func CleanText(s string) string {
	s = width.Narrow.String(s)
	for _, p := range cleanupPatterns {
		s = p.regex.ReplaceAllString(s, p.replace)
	}
	return strings.TrimSpace(s)
}

// Substantial reports whether s has more than minChars characters once
// cleaned — spec.md §4.2's ">50 chars" substantiality test for
// candidate field content.
func Substantial(s string, minChars int) bool {
	return len([]rune(CleanText(s))) > minChars
}
