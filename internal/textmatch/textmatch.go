// Package textmatch normalizes bilingual (Latin/Devanagari) free text and
// scores how alike two strings are.
package textmatch

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/unicode/norm"
)

// Devanagari Unicode block.
const (
	devanagariFirst = 'ऀ'
	devanagariLast  = 'ॿ'
)

var levenshtein = metrics.NewLevenshtein()

// Normalize lower-cases Latin letters, drops everything except a-z, 0-9,
// whitespace and Devanagari, and collapses whitespace runs to a single space.
func Normalize(text string) string {
	text = norm.NFC.String(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
			continue
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r >= devanagariFirst && r <= devanagariLast:
		default:
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Distance is the Levenshtein edit distance between a and b, counted in runes.
// Insertions, deletions and substitutions each cost 1.
func Distance(a, b string) int {
	return levenshtein.Distance(a, b)
}

// Similarity returns a symmetric score in [0,1]: 1 for identical normalized
// strings, otherwise (L - Distance) / L where L is the longer rune length.
func Similarity(a, b string) float64 {
	s1, s2 := Normalize(a), Normalize(b)
	if s1 == s2 {
		return 1
	}

	longer := utf8.RuneCountInString(s1)
	if n := utf8.RuneCountInString(s2); n > longer {
		longer = n
	}
	if longer == 0 {
		return 0
	}

	return float64(longer-Distance(s1, s2)) / float64(longer)
}

// NameParts splits an already normalized name into tokens longer than one rune.
func NameParts(normalized string) []string {
	fields := strings.Fields(normalized)
	parts := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			parts = append(parts, f)
		}
	}
	return parts
}

// NormalizeEPIC upper-cases an EPIC number and strips anything that is not
// A-Z or 0-9.
func NormalizeEPIC(s string) string {
	s = strings.ToUpper(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}
