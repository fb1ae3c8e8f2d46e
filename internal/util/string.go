package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanText NFC-normalizes s and collapses runs of whitespace into one space.
func CleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// FoldKey strips diacritics and case so "Torbjörn" and "torbjorn" compare equal.
func FoldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// LastWord returns the final whitespace-separated word of s, or "".
func LastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// BeforeParen returns the trimmed text preceding the first "(".
func BeforeParen(s string) string {
	if i := strings.Index(s, "("); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// CollapseRepeat turns "Victoria HousekeepingVictoria Housekeeping" and
// "Victoria Housekeeping Victoria Housekeeping" into "Victoria Housekeeping".
// Other strings are returned unchanged.
func CollapseRepeat(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) == 0 {
		return s
	}
	half := len(r) / 2
	if len(r)%2 == 0 {
		if string(r[:half]) == string(r[half:]) {
			return string(r[:half])
		}
		return s
	}
	if half > 0 && unicode.IsSpace(r[half]) && string(r[:half]) == string(r[half+1:]) {
		return string(r[:half])
	}
	return s
}

// WikiTitle converts a display name into a fandom page title.
func WikiTitle(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}
