package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMapping(t *testing.T) {
	t.Parallel()

	yml := "fields:\n" +
		"  address: [street_address, location]\n" +
		"  hours: [operating_hours]\n"
	path := writeTemp(t, "map.yaml", []byte(yml))

	m, err := LoadMapping(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"street_address", "location"}, m.Fields["address"])
	assert.Equal(t, []string{"operating_hours"}, m.Fields["hours"])
}

func TestLoadMappingUnknownField(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "map.yaml", []byte("fields:\n  adress: [street]\n"))
	_, err := LoadMapping(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"adress"`)
}

func TestLoadMappingBadYAML(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "map.yaml", []byte("fields: [not, a, map]"))
	_, err := LoadMapping(path)
	require.Error(t, err)
}

func TestLoadMappingMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadMapping("/nonexistent/map.yaml")
	require.Error(t, err)
}
