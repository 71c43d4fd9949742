package textutil

import (
	"html"
	"strings"
)

// DecodeEntities replaces named and numeric HTML entities with the
// characters they stand for and drops invalid UTF-8 sequences.
func DecodeEntities(s string) string {
	return html.UnescapeString(strings.ToValidUTF8(s, ""))
}

// EscapeHTML escapes the five characters that are special in HTML.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}
