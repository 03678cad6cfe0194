// Package normalize implements the single normalization function shared by
// the lookup path and the ingestion quality filter. Inconsistent
// normalization between those two paths is a frequent bug class, so both
// call Normalize rather than rolling their own lowercase/trim logic.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases, applies NFKC normalization, and trims leading and
// trailing whitespace. An empty or whitespace-only input normalizes to "".
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	return s
}

// FirstRune returns the first rune of a normalized string and true, or
// (0, false) if s is empty.
func FirstRune(s string) (rune, bool) {
	for _, r := range s {
		return r, true
	}
	return 0, false
}
