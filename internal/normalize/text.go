package normalize

import "strings"

// CleanText collapses whitespace runs to single spaces, removes control
// characters other than newline and tab, and trims the result.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
