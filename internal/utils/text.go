package utils

import (
	"strings"
	"unicode/utf8"
)

// Truncate returns at most limit runes of s. A non-positive limit
// returns s unchanged.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// IsURL reports whether ref is an http or https address
func IsURL(ref string) bool {
	ref = strings.TrimSpace(ref)
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// CollapseWhitespace trims every line and drops the empty ones
func CollapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
