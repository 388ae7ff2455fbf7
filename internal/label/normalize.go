// Package label decides whether a recognized word names a sample's label.
package label

import (
	"strings"
	"unicode"
)

// Normalize lowercases word, trims it and strips punctuation and symbols.
func Normalize(word string) string {
	word = strings.ToLower(strings.TrimSpace(word))
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, word)
}

// Words splits text into normalized words, dropping any that normalize to
// nothing (a lone "-" or "...").
func Words(text string) []string {
	var out []string
	for _, f := range strings.Fields(text) {
		if w := Normalize(f); w != "" {
			out = append(out, w)
		}
	}
	return out
}
