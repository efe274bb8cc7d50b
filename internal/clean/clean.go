// Package clean normalises upstream HTML comments for storage in match
// records and for the documents handed to the analysis collaborator.
package clean

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict strips every tag; safe for concurrent use.
var strict = bluemonday.StrictPolicy()

var (
	brRe        = regexp.MustCompile(`(?i)<br\s*/?>`)
	quoteLinkRe = regexp.MustCompile(`>>\d+`)
	multiNLRe   = regexp.MustCompile(`\n+`)
)

// Text converts an upstream HTML comment to readable plain text:
// line breaks survive as newlines, tags and quote-links (>>12345678) are
// dropped, entities are unescaped, runs of newlines collapse.
func Text(s string) string {
	if s == "" {
		return ""
	}

	s = brRe.ReplaceAllString(s, "\n")
	s = strict.Sanitize(s)
	// The sanitizer re-escapes text content, so the first pass undoes its
	// escaping and the second undoes entities from the upstream payload.
	s = html.UnescapeString(html.UnescapeString(s))
	s = quoteLinkRe.ReplaceAllString(s, "")
	s = multiNLRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// Truncate shortens cleaned text to max runes with an ellipsis marker.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
