package normalization

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ParseInputString case-folds, NFC-normalizes, trims and collapses inner whitespace.
func ParseInputString(input string) string {
	s := norm.NFC.String(input)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Phrase is ParseInputString with surrounding punctuation removed, so
// "¡Bonjour!" and "bonjour" share a key.
func Phrase(input string) string {
	s := ParseInputString(input)
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

// ContainsFold reports whether needle appears in haystack after folding both.
func ContainsFold(haystack, needle string) bool {
	n := ParseInputString(needle)
	if n == "" {
		return false
	}
	return strings.Contains(ParseInputString(haystack), n)
}
