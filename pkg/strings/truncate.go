// Package strings holds small text helpers for terminal output.
package strings

import (
	"strings"
)

// DefaultLineMaxLen bounds provider response bodies echoed to the terminal.
const DefaultLineMaxLen = 200

// minLineLen leaves room for one character and the ellipsis.
const minLineLen = 4

// TruncateLine collapses all whitespace in s to single spaces and cuts the
// result to at most maxLen runes, ending in "..." when shortened.
func TruncateLine(s string, maxLen int) string {
	if maxLen < minLineLen {
		maxLen = minLineLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
