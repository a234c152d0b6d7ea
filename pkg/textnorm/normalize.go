package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after NFD decomposition, so that
// "café" and "cafe" normalize to the same string.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases text, strips diacritics and punctuation, and
// collapses runs of whitespace to a single space. Used by the degraded
// substring matcher so that trivial formatting differences don't block
// an otherwise exact phrasing match.
func Normalize(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		// Transform failures only happen on invalid UTF-8; fall back
		// to the raw input rather than dropping the utterance.
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Contains reports whether the normalized haystack contains the
// normalized needle. An empty needle never matches.
func Contains(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), n)
}

// Tokens returns the normalized words of s.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}
