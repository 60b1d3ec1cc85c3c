// Package normalize holds the text folding rules shared by storage, search and sorting.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// leadingArticles are stripped once from the front of title and author sort keys.
var leadingArticles = []string{"the ", "a ", "an "}

// Value cleans an attribute value for storage: NUL bytes dropped, NFC composed, trimmed.
func Value(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(norm.NFC.String(s))
}

// Fold returns the trimmed Unicode case fold of s.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(norm.NFC.String(s)))
}

// Contains reports whether needle occurs in haystack ignoring case.
func Contains(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

// SortKey folds s and strips one leading "the", "a" or "an".
// "The Zebra" -> "zebra", "An Apple" -> "apple", "Anthology" -> "anthology".
func SortKey(s string) string {
	folded := Fold(s)
	for _, article := range leadingArticles {
		if strings.HasPrefix(folded, article) {
			return strings.TrimSpace(folded[len(article):])
		}
	}
	return folded
}

// DOI strips resolver prefixes so "https://doi.org/10.1/x" and "doi:10.1/x" both become "10.1/x".
func DOI(raw string) string {
	d := strings.TrimSpace(raw)
	lower := strings.ToLower(d)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(d[len(prefix):])
		}
	}
	return d
}
