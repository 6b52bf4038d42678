package address

import "strings"

// ParseCityState extracts (city, state) from a free-text address, falling
// back to the record ZIP for the state. Either value may be empty. Handled
// shapes: "123 Main St, Boston, MA", "123 Main St, Boston, 02101",
// "123 Main St, Boston", "Boston".
func ParseCityState(address, zip string) (city, state string) {
	parts := splitParts(address)
	if len(parts) == 0 {
		return "", ""
	}

	if len(parts) == 1 {
		city = parts[0]
		if zip != "" {
			state, _ = StateForZip(zip)
		}
		return city, state
	}

	last := strings.ToUpper(parts[len(parts)-1])
	switch {
	case len(last) == 2 && IsStateAbbrev(last):
		return parts[len(parts)-2], last
	case len(last) == 5 && isDigits(last):
		city = parts[len(parts)-2]
		if zip != "" {
			state, _ = StateForZip(zip)
		} else {
			state, _ = StateForZip(last)
		}
		return city, state
	default:
		city = parts[len(parts)-1]
		if zip != "" {
			state, _ = StateForZip(zip)
		}
		return city, state
	}
}

// CitySlug builds the URL slug for a place, e.g. ("Belmont", "MA") ->
// "belmont-massachusetts". Empty when either input is blank or the state is
// unknown.
func CitySlug(city, state string) string {
	if city == "" || state == "" {
		return ""
	}
	full, ok := StateSlug(state)
	if !ok {
		return ""
	}
	c := strings.ToLower(strings.TrimSpace(city))
	c = strings.ReplaceAll(c, " ", "-")
	c = strings.ReplaceAll(c, "'", "")
	return c + "-" + full
}

// ParseCitySlug parses "belmont-massachusetts" or "concord-new-hampshire"
// into a city and state abbreviation. Multi-word state names are probed by
// trying trailing suffixes of one to five slug segments. Slugs without a
// recognized state suffix, or with nothing left over for the city, are
// rejected.
func ParseCitySlug(slug string) (city, state string, ok bool) {
	s := strings.ToLower(strings.TrimSpace(slug))
	parts := strings.Split(s, "-")
	if len(parts) < 2 {
		return "", "", false
	}
	maxLen := len(parts)
	if maxLen > 5 {
		maxLen = 5
	}
	for n := 1; n <= maxLen; n++ {
		suffix := strings.Join(parts[len(parts)-n:], "-")
		abbrev, found := StateForSlug(suffix)
		if !found {
			continue
		}
		if n == len(parts) {
			return "", "", false
		}
		city = TitleCase(strings.Join(parts[:len(parts)-n], " "))
		return city, abbrev, true
	}
	return "", "", false
}
