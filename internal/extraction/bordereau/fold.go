package bordereau

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "`", "'", " ", " ")

// fold lowercases s, strips diacritics, normalizes apostrophes and collapses
// whitespace, so "Unité  d’accueil" becomes "unite d'accueil".
func fold(s string) string {
	return collapse(apostrophes.Replace(strings.ToLower(stripMarks(s))))
}

// stripMarks removes combining diacritics: "é" becomes "e".
func stripMarks(s string) string {
	// transform.Chain keeps state, one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// collapse replaces newlines, tabs and runs of spaces with one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
