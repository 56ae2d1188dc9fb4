// Package textnorm provides the default text normalizer used for keyword matching
// and natural-language date detection.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer folds case, strips diacritics and replaces punctuation with spaces.
// The zero value is ready to use and safe for concurrent use.
type Normalizer struct{}

// New returns a Normalizer.
func New() Normalizer {
	return Normalizer{}
}

// Normalize implements ports.TextNormalizer.
func (Normalizer) Normalize(s string) string {
	return Normalize(s)
}

// Normalize folds case, removes accents and punctuation, and collapses whitespace.
func Normalize(s string) string {
	// transformers carry state, so build a fresh chain per call
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	out = cases.Fold().String(out)

	var b strings.Builder
	b.Grow(len(out))
	for _, r := range out {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens returns the whitespace-separated tokens of the normalized text.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}
