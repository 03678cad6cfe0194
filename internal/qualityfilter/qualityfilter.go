// Package qualityfilter rejects low-value phrases before they ever reach the
// delta map or trending counter: too short, too long, digit-only, or a run of
// letters from a single QWERTY row ("keyboard smash"). Rejections are reported
// by reason so the pipeline can emit per-reason metrics; the event itself is
// dropped silently from the caller's point of view.
package qualityfilter

import (
	"unicode"

	"github.com/typeahead/engine/internal/normalize"
)

// Reason identifies why a phrase was rejected.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonTooShort      Reason = "too_short"
	ReasonTooLong       Reason = "too_long"
	ReasonOnlyDigits    Reason = "only_digits"
	ReasonKeyboardSmash Reason = "keyboard_smash"
)

const (
	minLength = 2
	maxLength = 100
)

// keyboardRows are the three QWERTY letter rows. A "keyboard smash" string
// (length >= 10) drawn entirely from one row — top, home, or bottom — is
// rejected; spec.md's own worked example ("asdfghjkla") is a home-row run
// even though its prose calls out "bottom-row" specifically, so the rows are
// checked independently rather than only the bottom one.
var keyboardRows = []string{
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
}

// Check normalizes phrase and decides whether it should be accepted.
// Accept reports the normalized phrase alongside a ReasonNone.
func Check(phrase string) (normalized string, reason Reason) {
	n := normalize.Normalize(phrase)
	length := len([]rune(n))

	if length < minLength {
		return n, ReasonTooShort
	}
	if length > maxLength {
		return n, ReasonTooLong
	}
	if isOnlyDigits(n) {
		return n, ReasonOnlyDigits
	}
	if length >= 10 && isKeyboardSmash(n) {
		return n, ReasonKeyboardSmash
	}
	return n, ReasonNone
}

// Accept reports whether phrase passes the quality filter.
func Accept(phrase string) bool {
	_, reason := Check(phrase)
	return reason == ReasonNone
}

func isOnlyDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isKeyboardSmash reports whether s is composed solely of letters from a
// single QWERTY row, the heuristic for strings of length >= 10.
func isKeyboardSmash(s string) bool {
	for _, row := range keyboardRows {
		if allRunesIn(s, row) {
			return true
		}
	}
	return false
}

func allRunesIn(s, alphabet string) bool {
	for _, r := range s {
		found := false
		for _, a := range alphabet {
			if r == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
