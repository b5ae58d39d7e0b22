package fuzzy

import (
	"strings"
	"unicode"
)

// Normalize lowercases a string, strips everything that is not a letter,
// digit or space, and collapses runs of whitespace to single spaces.
// Unicode letters are kept so non-ASCII descriptions still match.
func Normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			// Punctuation separates words rather than gluing them together:
			// "Letters(24x18)" should still contain "letters".
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ContainsNormalized reports whether the normalized text contains the
// normalized keyword as a substring. Empty keywords never match.
func ContainsNormalized(text, keyword string) bool {
	k := Normalize(keyword)
	if k == "" {
		return false
	}
	return strings.Contains(Normalize(text), k)
}

// NameMatches is the catalog lookup rule: case-insensitive substring
// containment in either direction, so "aluminum" matches "Brushed Aluminum"
// and "Channel Letters - Lit" matches "channel letters".
func NameMatches(query, name string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	n := strings.ToLower(strings.TrimSpace(name))
	if q == "" || n == "" {
		return false
	}
	return strings.Contains(n, q) || strings.Contains(q, n)
}
