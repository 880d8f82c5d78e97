package common

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText cleans untrusted free text (SMS counterparties, OCR business
// names, manual descriptions) before it reaches the ledger: markup is removed,
// control characters are dropped and runs of whitespace collapse to one space.
// The policy escapes entities, so the result is unescaped back to plain text.
func SanitizeText(s string) string {
	cleaned := html.UnescapeString(strictPolicy.Sanitize(s))
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}
