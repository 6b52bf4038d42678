package ingest

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Mapping extends the column synonym lists from a YAML file, e.g.:
//
//	fields:
//	  address: [street_address, location]
//	  hours: [operating_hours]
//
// Mapped names are probed before the built-in synonyms for that field.
type Mapping struct {
	Fields map[string][]string `yaml:"fields"`
}

// LoadMapping reads a mapping file and rejects unknown field keys so a
// typo surfaces before a silent no-op import.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read mapping %s", path)
	}

	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "ingest: parse mapping")
	}

	for field := range m.Fields {
		if _, ok := defaultSynonyms[field]; !ok {
			return nil, eris.Errorf("ingest: mapping has unknown field %q", field)
		}
	}
	return &m, nil
}
