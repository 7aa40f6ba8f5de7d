package game

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes characters and removes combining marks, so that
// "Pokémon" and "Pokemon" normalize identically.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName returns a canonical form of a game name or query: lowercase,
// diacritics folded, punctuation dropped, whitespace collapsed. All name
// matching and dedupe keys go through this.
func NormalizeName(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// DedupeKey returns the identity key used when merging candidate sets.
// The external ID wins when present; otherwise the normalized name stands in.
func DedupeKey(c *Candidate) string {
	if c.IGDBID > 0 {
		return "igdb:" + strconv.FormatInt(c.IGDBID, 10)
	}
	return "name:" + NormalizeName(c.Name)
}

// ContainsWord reports whether the normalized haystack contains word as a
// whole word.
func ContainsWord(normalized, word string) bool {
	return strings.Contains(" "+normalized+" ", " "+word+" ")
}
