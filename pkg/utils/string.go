package utils

import "unicode/utf8"

// Truncate shortens s to at most maxLen runes, appending "..." when
// anything was cut.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return Head(s, maxLen) + "..."
}

// Head returns the first n runes of s without splitting a multi-byte
// character.
func Head(s string, n int) string {
	if n <= 0 {
		return ""
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
