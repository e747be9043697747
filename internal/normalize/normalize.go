// Package normalize cleans user-supplied folder text and compares listing
// categories.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Text returns s in Unicode NFC form with surrounding whitespace removed and
// interior whitespace runs collapsed to a single space. Control characters
// are dropped.
func Text(s string) string {
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsControl(r):
			// dropped
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Multiline is like Text but keeps line breaks, trimming each line.
// Used for folder descriptions.
func Multiline(s string) string {
	s = norm.NFC.String(strings.ReplaceAll(s, "\r\n", "\n"))
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = Text(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Color lowercases a hex color such as "#FFAA00".
func Color(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CategoryKey returns the case-folded form of a category used for
// case-insensitive comparison.
func CategoryKey(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// SameCategory reports whether two categories are equal ignoring case.
func SameCategory(a, b string) bool {
	return CategoryKey(a) == CategoryKey(b)
}
