package catalog

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize prepares a product name or a query for comparison:
//  1. NFD decomposition, drop nonspacing marks, NFC recomposition
//  2. Uppercase (Unicode simple case mapping, no language tables)
//  3. Strip marks again, since a few letters only decompose once uppercased
//
// Digits, punctuation and whitespace are left alone. Normalize is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	if isASCII(s) {
		return strings.ToUpper(s)
	}
	return stripMarks(strings.ToUpper(stripMarks(s)))
}

func stripMarks(s string) string {
	// A transform.Chain keeps state, so every call gets its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Initials returns the bucket key for a product name: the first character of
// every whitespace-separated token of the normalized name, kept only when it
// is a letter. "Pan Lactal" -> "PL", "7 Up Lima" -> "UL".
func Initials(name string) string {
	var sb strings.Builder
	for _, tok := range strings.Fields(Normalize(name)) {
		r, _ := utf8.DecodeRuneInString(tok)
		if unicode.IsLetter(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
