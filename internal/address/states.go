package address

import "strings"

// stateAbbrevToSlug maps the 50 state abbreviations plus DC to the
// lowercase hyphenated full name used in place URL slugs.
var stateAbbrevToSlug = map[string]string{
	"AL": "alabama", "AK": "alaska", "AZ": "arizona", "AR": "arkansas",
	"CA": "california", "CO": "colorado", "CT": "connecticut", "DE": "delaware",
	"FL": "florida", "GA": "georgia", "HI": "hawaii", "ID": "idaho",
	"IL": "illinois", "IN": "indiana", "IA": "iowa", "KS": "kansas",
	"KY": "kentucky", "LA": "louisiana", "ME": "maine", "MD": "maryland",
	"MA": "massachusetts", "MI": "michigan", "MN": "minnesota", "MS": "mississippi",
	"MO": "missouri", "MT": "montana", "NE": "nebraska", "NV": "nevada",
	"NH": "new-hampshire", "NJ": "new-jersey", "NM": "new-mexico", "NY": "new-york",
	"NC": "north-carolina", "ND": "north-dakota", "OH": "ohio", "OK": "oklahoma",
	"OR": "oregon", "PA": "pennsylvania", "RI": "rhode-island", "SC": "south-carolina",
	"SD": "south-dakota", "TN": "tennessee", "TX": "texas", "UT": "utah",
	"VT": "vermont", "VA": "virginia", "WA": "washington", "WV": "west-virginia",
	"WI": "wisconsin", "WY": "wyoming", "DC": "district-of-columbia",
}

var slugToStateAbbrev = make(map[string]string, len(stateAbbrevToSlug))

func init() {
	for abbrev, slug := range stateAbbrevToSlug {
		slugToStateAbbrev[slug] = abbrev
	}
}

// IsStateAbbrev reports whether s is a US state abbreviation (or DC),
// case-insensitively.
func IsStateAbbrev(s string) bool {
	_, ok := stateAbbrevToSlug[strings.ToUpper(s)]
	return ok
}

// StateSlug returns the hyphenated full name for a state abbreviation,
// e.g. "NH" -> "new-hampshire".
func StateSlug(abbrev string) (string, bool) {
	slug, ok := stateAbbrevToSlug[strings.ToUpper(abbrev)]
	return slug, ok
}

// StateForSlug returns the abbreviation for a hyphenated full state name,
// e.g. "new-hampshire" -> "NH".
func StateForSlug(slug string) (string, bool) {
	abbrev, ok := slugToStateAbbrev[strings.ToLower(slug)]
	return abbrev, ok
}
