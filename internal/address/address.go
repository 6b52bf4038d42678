// Package address normalizes the free-text location fields carried by
// restroom records: title-casing, state backfill from ZIP codes, facility
// name suffixes, and the city/state parsing behind place lookups.
package address

import (
	"strings"
	"unicode"
)

// TitleCase converts "CITYNAME TOWN HALL" to "Cityname Town Hall".
// Two-letter state abbreviations (MA, CA, NY) are kept upper-case.
// Idempotent: applying it twice yields the same string.
func TitleCase(s string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	words := strings.Fields(s)
	for i, w := range words {
		up := strings.ToUpper(w)
		if len(w) == 2 && IsStateAbbrev(up) {
			words[i] = up
			continue
		}
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	r := []rune(strings.ToLower(w))
	if len(r) == 0 {
		return w
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// EnsureStateInAddress appends or inserts a state abbreviation when the
// address lacks one and the ZIP resolves to a state. A trailing in-address
// ZIP is replaced by the state; addresses already ending in a state pass
// through untouched.
func EnsureStateInAddress(address, zip string) string {
	if strings.TrimSpace(address) == "" {
		return address
	}
	addr := strings.TrimSpace(address)
	parts := splitParts(addr)
	if len(parts) == 0 {
		return address
	}

	last := strings.ToUpper(parts[len(parts)-1])
	if len(last) == 2 && IsStateAbbrev(last) {
		return address
	}
	if len(last) == 5 && isDigits(last) {
		src := zip
		if src == "" {
			src = last
		}
		state, ok := StateForZip(src)
		if ok && len(parts) >= 2 {
			secondLast := strings.ToUpper(parts[len(parts)-2])
			if len(secondLast) == 2 && IsStateAbbrev(secondLast) {
				return address
			}
			// "123 Main St, Boston, 02101" -> "123 Main St, Boston, MA"
			head := addr[:strings.LastIndex(addr, ",")]
			return strings.TrimSpace(head) + ", " + state
		}
		return address
	}

	state, ok := StateForZip(zip)
	if !ok {
		return address
	}
	return addr + ", " + state
}

// EnsureSuffix appends "Library", "City Hall", or "Town Hall" to facility
// names that mention one without ending in it.
func EnsureSuffix(name string) string {
	if strings.TrimSpace(name) == "" {
		return name
	}
	n := strings.TrimSpace(name)
	nl := strings.ToLower(n)
	switch {
	case (strings.Contains(nl, "library") || strings.Contains(nl, " lib ") || strings.HasSuffix(nl, " lib")) &&
		!strings.HasSuffix(nl, "library"):
		return n + " Library"
	case strings.Contains(nl, "municipal") && !strings.Contains(nl, "city hall"):
		return n + " City Hall"
	case (strings.Contains(nl, "town hall") || strings.Contains(nl, "city hall")) &&
		!strings.HasSuffix(nl, "town hall") && !strings.HasSuffix(nl, "city hall"):
		if strings.Contains(nl, "city") {
			return n + " City Hall"
		}
		return n + " Town Hall"
	}
	return n
}

// splitParts splits an address on commas, trimming whitespace and dropping
// empty segments.
func splitParts(address string) []string {
	var parts []string
	for _, p := range strings.Split(address, ",") {
		if t := strings.TrimSpace(p); t != "" {
			parts = append(parts, t)
		}
	}
	return parts
}
