package probe

import "strings"

// Preview returns the first limit characters of s. Characters are counted as
// runes, so a multi-byte character is never split. Invalid UTF-8 is replaced
// with U+FFFD first.
func Preview(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.ToValidUTF8(s, "\uFFFD")
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
