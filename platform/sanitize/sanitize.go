// Package sanitize provides text clean-up for user input and scraped text.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// htmlTagRegex matches HTML tags
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
)

// Text removes HTML tags and collapses whitespace runs to a single space.
// Applying it twice gives the same result as applying it once.
func Text(s string) string {
	return strings.Join(strings.Fields(htmlTagRegex.ReplaceAllString(s, " ")), " ")
}
