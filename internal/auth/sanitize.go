package auth

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Sanitize strips markup and script content from externally sourced text.
// Entities are decoded again afterwards; the loop catches markup that was
// smuggled in escaped form.
func Sanitize(s string) string {
	for i := 0; i < 4; i++ {
		out := html.UnescapeString(strict.Sanitize(s))
		if out == s {
			return out
		}
		s = out
	}
	return strict.Sanitize(s)
}
