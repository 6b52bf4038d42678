package address

import (
	"strconv"
	"strings"
)

// zipRange maps an inclusive range of 3-digit ZIP prefixes to a state.
type zipRange struct {
	lo, hi int
	state  string
}

// zipRanges covers USPS prefix allocations for the 50 states and DC.
// Territories and military prefixes are deliberately absent. Single-prefix
// entries carry the carve-outs (055 Andover MA, 569 DC, 733/885 TX).
var zipRanges = []zipRange{
	{5, 5, "NY"},
	{10, 27, "MA"},
	{28, 29, "RI"},
	{30, 38, "NH"},
	{39, 49, "ME"},
	{50, 54, "VT"},
	{55, 55, "MA"},
	{56, 59, "VT"},
	{60, 69, "CT"},
	{70, 89, "NJ"},
	{100, 149, "NY"},
	{150, 196, "PA"},
	{197, 199, "DE"},
	{200, 200, "DC"},
	{201, 201, "VA"},
	{202, 205, "DC"},
	{206, 219, "MD"},
	{220, 246, "VA"},
	{247, 268, "WV"},
	{270, 289, "NC"},
	{290, 299, "SC"},
	{300, 319, "GA"},
	{320, 339, "FL"},
	{341, 342, "FL"},
	{344, 344, "FL"},
	{346, 347, "FL"},
	{349, 349, "FL"},
	{350, 369, "AL"},
	{370, 385, "TN"},
	{386, 397, "MS"},
	{398, 399, "GA"},
	{400, 427, "KY"},
	{430, 459, "OH"},
	{460, 479, "IN"},
	{480, 499, "MI"},
	{500, 528, "IA"},
	{530, 549, "WI"},
	{550, 567, "MN"},
	{569, 569, "DC"},
	{570, 577, "SD"},
	{580, 588, "ND"},
	{590, 599, "MT"},
	{600, 629, "IL"},
	{630, 658, "MO"},
	{660, 679, "KS"},
	{680, 693, "NE"},
	{700, 714, "LA"},
	{716, 729, "AR"},
	{730, 732, "OK"},
	{733, 733, "TX"},
	{734, 749, "OK"},
	{750, 799, "TX"},
	{800, 816, "CO"},
	{820, 831, "WY"},
	{832, 838, "ID"},
	{840, 847, "UT"},
	{850, 865, "AZ"},
	{870, 884, "NM"},
	{885, 885, "TX"},
	{889, 898, "NV"},
	{900, 961, "CA"},
	{967, 968, "HI"},
	{970, 979, "OR"},
	{980, 994, "WA"},
	{995, 999, "AK"},
}

// StateForZip returns the state abbreviation for a US ZIP code. Zip+4
// suffixes are tolerated; the all-zeros sentinel and anything that does not
// start with five digits miss.
func StateForZip(zip string) (string, bool) {
	z := strings.TrimSpace(zip)
	if i := strings.IndexByte(z, '-'); i >= 0 {
		z = z[:i]
	}
	if len(z) < 5 || !isDigits(z[:5]) {
		return "", false
	}
	z = z[:5]
	if z == "00000" {
		return "", false
	}
	prefix, err := strconv.Atoi(z[:3])
	if err != nil {
		return "", false
	}
	for _, r := range zipRanges {
		if prefix >= r.lo && prefix <= r.hi {
			return r.state, true
		}
	}
	return "", false
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
