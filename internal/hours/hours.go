// Package hours classifies free-text opening-hours values. Several source
// datasets carry numeric survey codes in their hours column; those are
// bogus and get cleared rather than displayed.
package hours

import (
	"regexp"
	"strings"
)

// numericOnly matches strings made of digits, whitespace, commas, and
// periods, the shape of survey codes like "44.0" or "9, 17".
var numericOnly = regexp.MustCompile(`^[\d\s,.]+$`)

// IsBogus reports whether an hours value looks like a numeric code rather
// than real hours text. Empty values are not bogus, just absent.
func IsBogus(h string) bool {
	s := strings.TrimSpace(h)
	if s == "" {
		return false
	}
	if numericOnly.MatchString(s) {
		return true
	}
	if len(s) <= 4 && isDigits(strings.ReplaceAll(s, ".", "")) {
		return true
	}
	return false
}

// Usable reports whether an hours value is present and not bogus.
func Usable(h string) bool {
	return strings.TrimSpace(h) != "" && !IsBogus(h)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
