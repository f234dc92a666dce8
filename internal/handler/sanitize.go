package handler

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// The strict policy removes every element; free text is stored as plain text.
var strictPolicy = bluemonday.StrictPolicy()

// cleanText strips markup and surrounding whitespace.  Entities escaped by
// the policy are decoded again so "A & B" survives unchanged.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func cleanTextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := cleanText(*s)
	return &v
}
