// Package sanitize strips markup from free-text intake fields.
//
// Registration forms accept names, cities, and notes as plain text. Any
// HTML that arrives in those fields is hostile or accidental, so we run
// everything through bluemonday's strict policy (no tags survive) and
// unescape the entities it leaves behind.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes all HTML from s and collapses surrounding whitespace.
// The result is safe to store and index as a plain-text value.
func Text(s string) string {
	if s == "" {
		return ""
	}
	cleaned := strict.Sanitize(s)
	// StrictPolicy escapes residual entities; fields are stored as
	// plain text, so undo the escaping.
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// ContainsMarkup reports whether s appears to contain HTML tags.
// Used to reject rather than silently mangle suspicious input.
func ContainsMarkup(s string) bool {
	open := strings.IndexByte(s, '<')
	if open < 0 {
		return false
	}
	return strings.IndexByte(s[open:], '>') > 0
}
