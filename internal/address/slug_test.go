package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCityState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		address  string
		zip      string
		wantCity string
		wantSt   string
	}{
		{"trailing state", "123 Main St, Boston, MA", "", "Boston", "MA"},
		{"trailing zip with record zip", "123 Main St, Boston, 02101", "02101", "Boston", "MA"},
		{"trailing zip without record zip", "123 Main St, Boston, 02101", "", "Boston", "MA"},
		{"city last with zip", "123 Main St, Palo Alto", "94301", "Palo Alto", "CA"},
		{"city last without zip", "123 Main St, Boston", "", "Boston", ""},
		{"single part with zip", "Boston", "02101", "Boston", "MA"},
		{"single part without zip", "Boston", "", "Boston", ""},
		{"unknown zip", "123 Main St, Hagatna", "96910", "Hagatna", ""},
		{"empty", "", "02101", "", ""},
		{"commas only", ", ,", "02101", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			city, state := ParseCityState(tt.address, tt.zip)
			assert.Equal(t, tt.wantCity, city)
			assert.Equal(t, tt.wantSt, state)
		})
	}
}

func TestCitySlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		city  string
		state string
		want  string
	}{
		{"simple", "Belmont", "MA", "belmont-massachusetts"},
		{"multi-word city", "Palo Alto", "CA", "palo-alto-california"},
		{"multi-word state", "Concord", "NH", "concord-new-hampshire"},
		{"apostrophe stripped", "O'Fallon", "MO", "ofallon-missouri"},
		{"lowercase state accepted", "Belmont", "ma", "belmont-massachusetts"},
		{"unknown state", "Belmont", "ZZ", ""},
		{"empty city", "", "MA", ""},
		{"empty state", "Belmont", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CitySlug(tt.city, tt.state))
		})
	}
}

func TestParseCitySlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		slug     string
		wantCity string
		wantSt   string
		wantOK   bool
	}{
		{"single-word state", "belmont-massachusetts", "Belmont", "MA", true},
		{"two-word state", "concord-new-hampshire", "Concord", "NH", true},
		{"three-word state", "georgetown-district-of-columbia", "Georgetown", "DC", true},
		{"multi-word city", "palo-alto-california", "Palo Alto", "CA", true},
		// Shortest trailing state name wins, so "west" sticks to the city.
		{"nested state name", "washington-west-virginia", "Washington West", "VA", true},
		{"state only", "new-hampshire", "", "", false},
		{"unrecognized suffix", "belmont-nowhere", "", "", false},
		{"single segment", "belmont", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			city, state, ok := ParseCitySlug(tt.slug)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCity, city)
			assert.Equal(t, tt.wantSt, state)
		})
	}
}

func TestSlugRoundTrip(t *testing.T) {
	t.Parallel()

	for _, pair := range [][2]string{
		{"Belmont", "MA"},
		{"Palo Alto", "CA"},
		{"Concord", "NH"},
	} {
		slug := CitySlug(pair[0], pair[1])
		city, state, ok := ParseCitySlug(slug)
		assert.True(t, ok, slug)
		assert.Equal(t, pair[0], city)
		assert.Equal(t, pair[1], state)
	}
}
