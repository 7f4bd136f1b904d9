package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer turns HTML fragments from syndicated feeds into plain text.
type Sanitizer struct {
	strict *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{strict: bluemonday.StrictPolicy()}
}

// PlainText removes every HTML element and collapses the whitespace left
// behind. Entities are decoded afterwards, so input must be HTML; text
// typed by readers is not.
func (s *Sanitizer) PlainText(input string) string {
	if input == "" {
		return ""
	}
	out := html.UnescapeString(s.strict.Sanitize(input))
	return strings.Join(strings.Fields(out), " ")
}
