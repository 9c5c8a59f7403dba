// Package textnorm provides text normalization utilities for comparing
// user-entered Brazilian place names.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold lowercases s, strips diacritics, and collapses surrounding whitespace,
// so "São Paulo" and "sao paulo" compare equal.
func Fold(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}

	folded, _, err := transform.String(foldTransformer, trimmed)
	if err != nil {
		folded = trimmed
	}
	return strings.ToLower(folded)
}

// EqualFold reports whether a and b are equal after Fold normalization.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}
