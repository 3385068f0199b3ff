package utils

import "unicode/utf8"

// Truncate cuts s to at most maxLen bytes, never splitting a rune, and marks
// the cut with an ellipsis.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
