// Package normalize canonicalizes header names, person identifiers, dates and
// numbers so that values written by different spreadsheet authors compare equal.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var signGlyphs = strings.NewReplacer(
	"＋", "+", // fullwidth plus
	"⁺", "+", // superscript plus
	"₊", "+", // subscript plus
	"﹢", "+", // small plus
	"−", "-", // minus sign
	"－", "-", // fullwidth hyphen-minus
	"‒", "-", // figure dash
	"–", "-", // en dash
	"﹣", "-", // small hyphen-minus
	"⁻", "-", // superscript minus
	"₋", "-", // subscript minus
)

var (
	// 1ª, 2º, 1ºº -> 1, 2, 1
	ordinalIndicator = regexp.MustCompile(`(\d)(?:\s*[ªº])+`)
	// 1.er, 1 er, 2. da -> 1er, 2da
	ordinalSuffix = regexp.MustCompile(`(\d)\s*\.?\s*(er|ra|ro|da|do|ta|to|vo|va)\b`)
)

// Name canonicalizes a header or label for fuzzy comparison: lower case,
// no diacritics, ASCII sign glyphs, unified ordinals and single spaces.
// Name is idempotent.
func Name(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s, _, _ = transform.String(stripMarks, s)
	s = signGlyphs.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = ordinals(s)
	return strings.Join(strings.Fields(s), " ")
}

// ordinals rewrites ordinal markers until none are left. Every rewrite
// shortens s, so the loop ends.
func ordinals(s string) string {
	for {
		next := ordinalIndicator.ReplaceAllString(s, "$1")
		next = ordinalSuffix.ReplaceAllString(next, "$1$2")
		if next == s {
			return s
		}
		s = next
	}
}

// NameOf normalizes v when it is a string and returns "" for anything else.
func NameOf(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Name(s)
}
