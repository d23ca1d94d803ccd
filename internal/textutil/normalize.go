package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTag drops NUL padding, collapses internal whitespace and trims a
// tag value.
func NormalizeTag(value string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(value, "\x00", "")), " ")
}

// NormalizeGenre title-cases a genre tag so "hip hop" and "HIP HOP" are
// stored identically. ID3v1 numeric genres such as "(17)" are dropped.
func NormalizeGenre(value string) string {
	value = NormalizeTag(value)
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")") {
		return ""
	}
	return cases.Title(language.Und).String(strings.ToLower(value))
}

// FoldKey returns value normalized, NFC composed and Unicode case folded, for
// case-insensitive matching. "BJÖRK" and "björk" fold to the same key.
func FoldKey(value string) string {
	return norm.NFC.String(cases.Fold().String(norm.NFC.String(NormalizeTag(value))))
}
