// Package strings holds text helpers for terminal output.
package strings

import "strings"

// minWidth leaves room for one rune and the ellipsis.
const minWidth = 4

// OneLine collapses all whitespace in s to single spaces and shortens the
// result to at most width runes, ending with "..." when cut.
func OneLine(s string, width int) string {
	if width < minWidth {
		width = minWidth
	}
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
