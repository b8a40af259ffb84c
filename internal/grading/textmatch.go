package grading

import "strings"

// normalize trims surrounding whitespace and case-folds. Inner spacing and
// punctuation are significant.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// mentions reports whether haystack contains needle, ignoring case.
func mentions(haystack, needle string) bool {
	return strings.Contains(normalize(haystack), normalize(needle))
}
