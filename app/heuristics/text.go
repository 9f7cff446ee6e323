package heuristics

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CollapseSpace trims s and folds every whitespace run (including NBSP) into
// a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FoldAccents strips combining marks: "São Paulo" -> "Sao Paulo".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// NormalizeTitle is the comparison form of an event title used by the
// fallback identity key: lowercase, accent-free, single-spaced.
func NormalizeTitle(title string) string {
	return strings.ToLower(FoldAccents(CollapseSpace(title)))
}

// HasLetters reports whether s contains at least one letter.
func HasLetters(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
