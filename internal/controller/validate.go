package controller

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	ErrBlankField  = errors.New("name and phone are required")
	ErrInvalidName = errors.New("name has characters other than letters, spaces, periods, hyphens and apostrophes")
)

// validName accepts letters of any script, space, period, apostrophe and
// hyphen, and nothing else.
var validName = regexp.MustCompile(`^[\p{L} .'-]+$`)

// ValidName reports whether name satisfies the name format rule. The rule
// is checked on the NFC form, so a letter typed as base plus combining mark
// ("e" + U+0301) counts as the single letter "é". The empty string never
// matches.
func ValidName(name string) bool {
	return validName.MatchString(norm.NFC.String(name))
}

// clean trims s. The stored value keeps the caller's code points.
func clean(s string) string {
	return strings.TrimSpace(s)
}
