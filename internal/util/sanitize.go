package util

import (
	"strings"
	"unicode"
)

// SanitizeText strips control characters (keeping \r, \n and \t), trims
// surrounding whitespace and truncates the result to maxLen runes.
// It is applied to every string that crosses a trust boundary: user answers
// before they reach the scoring model, and model output before it is stored.
func SanitizeText(s string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)

	cleaned = strings.TrimSpace(cleaned)
	if maxLen >= 0 {
		if runes := []rune(cleaned); len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}
