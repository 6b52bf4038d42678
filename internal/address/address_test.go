package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleCase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"all caps", "BELMONT TOWN HALL", "Belmont Town Hall"},
		{"preserves state abbrev", "123 MAIN ST, BELMONT, MA", "123 Main St, Belmont, MA"},
		{"lower state abbrev upgraded", "belmont, ma", "Belmont, MA"},
		{"mixed case", "bOsToN pUbLiC LiBrArY", "Boston Public Library"},
		{"collapses whitespace", "  BELMONT   PUBLIC  LIBRARY ", "Belmont Public Library"},
		{"digits untouched", "02478 MAIN ST", "02478 Main St"},
		{"empty", "", ""},
		{"whitespace only", "   ", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TitleCase(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, TitleCase(got), "must be idempotent")
		})
	}
}

func TestEnsureStateInAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		zip     string
		want    string
	}{
		{
			"trailing zip replaced by state",
			"123 Main St, Belmont, 02478", "02478",
			"123 Main St, Belmont, MA",
		},
		{
			"trailing zip resolved from address when zip empty",
			"123 Main St, Belmont, 02478", "",
			"123 Main St, Belmont, MA",
		},
		{
			"already ends in state",
			"123 Main St, Belmont, MA", "02478",
			"123 Main St, Belmont, MA",
		},
		{
			"state before trailing zip kept",
			"123 Main St, Belmont, MA, 02478", "02478",
			"123 Main St, Belmont, MA, 02478",
		},
		{
			"state appended from zip",
			"123 Main St, Belmont", "02478",
			"123 Main St, Belmont, MA",
		},
		{
			"unknown zip leaves address alone",
			"123 Main St, Belmont", "96910",
			"123 Main St, Belmont",
		},
		{
			"sentinel zip leaves address alone",
			"123 Main St, Belmont", "00000",
			"123 Main St, Belmont",
		},
		{
			"single zip-only part unchanged",
			"02478", "02478",
			"02478",
		},
		{"blank address", "   ", "02478", "   "},
		{"empty address", "", "02478", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EnsureStateInAddress(tt.address, tt.zip))
		})
	}
}

func TestEnsureSuffix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no mention untouched", "Belmont Public", "Belmont Public"},
		{"library interior", "Belmont Library Annex", "Belmont Library Annex Library"},
		{"ends in library unchanged", "Belmont Public Library", "Belmont Public Library"},
		{"lib abbreviation suffix", "Belmont Pub Lib", "Belmont Pub Lib Library"},
		{"lib abbreviation interior", "Main Lib Branch", "Main Lib Branch Library"},
		{"municipal gets city hall", "Waltham Municipal Center", "Waltham Municipal Center City Hall"},
		{"municipal already city hall", "Waltham Municipal City Hall", "Waltham Municipal City Hall"},
		{"town hall prefix", "Town Hall Annex", "Town Hall Annex Town Hall"},
		{"city hall prefix", "City Hall Annex", "City Hall Annex City Hall"},
		{"ends in town hall unchanged", "Belmont Town Hall", "Belmont Town Hall"},
		{"plain name untouched", "Dunkin Donuts", "Dunkin Donuts"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EnsureSuffix(tt.in))
		})
	}
}
