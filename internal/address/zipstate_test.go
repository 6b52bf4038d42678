package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateForZip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		zip   string
		state string
		ok    bool
	}{
		{"02478", "MA", true},
		{"05501", "MA", true}, // Andover IRS carve-out inside VT's block
		{"05672", "VT", true},
		{"10001", "NY", true},
		{"00501", "NY", true},
		{"20500", "DC", true},
		{"22203", "VA", true},
		{"60601", "IL", true},
		{"73301", "TX", true}, // Austin carve-out inside OK's block
		{"73000", "OK", true},
		{"88510", "TX", true},
		{"94301", "CA", true},
		{"99801", "AK", true},
		{"02478-1234", "MA", true},
		{"024781234", "MA", true},
		{" 02478 ", "MA", true},
		{"00000", "", false},
		{"96910", "", false}, // Guam
		{"00901", "", false}, // Puerto Rico
		{"1234", "", false},
		{"abcde", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.zip, func(t *testing.T) {
			t.Parallel()
			state, ok := StateForZip(tt.zip)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.state, state)
		})
	}
}

func TestIsStateAbbrev(t *testing.T) {
	t.Parallel()

	assert.True(t, IsStateAbbrev("MA"))
	assert.True(t, IsStateAbbrev("ma"))
	assert.True(t, IsStateAbbrev("Dc"))
	assert.False(t, IsStateAbbrev("ZZ"))
	assert.False(t, IsStateAbbrev("MAS"))
	assert.False(t, IsStateAbbrev(""))
}
