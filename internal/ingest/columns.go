package ingest

import (
	"strings"

	"github.com/rotisserie/eris"
)

// defaultSynonyms maps each logical field to the header names it may
// appear under, in probe order.
var defaultSynonyms = map[string][]string{
	"name":      {"name", "libname"},
	"address":   {"address"},
	"zip":       {"zip"},
	"city":      {"city"},
	"hours":     {"hours"},
	"remarks":   {"remarks"},
	"latitude":  {"latitude"},
	"longitude": {"longitude", "longitud"},
}

// columnSet holds resolved column indexes for one import; -1 means the
// field has no column. Resolution happens once per file, never per row.
type columnSet struct {
	name      int
	address   int
	zip       int
	city      int
	hours     int
	remarks   int
	latitude  int
	longitude int
}

func resolveColumns(header []string, m *Mapping) (*columnSet, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}

	find := func(field string) int {
		if m != nil {
			for _, syn := range m.Fields[field] {
				if i, ok := index[strings.ToLower(syn)]; ok {
					return i
				}
			}
		}
		for _, syn := range defaultSynonyms[field] {
			if i, ok := index[syn]; ok {
				return i
			}
		}
		return -1
	}

	cols := &columnSet{
		name:      find("name"),
		address:   find("address"),
		zip:       find("zip"),
		city:      find("city"),
		hours:     find("hours"),
		remarks:   find("remarks"),
		latitude:  find("latitude"),
		longitude: find("longitude"),
	}
	if cols.address < 0 {
		return nil, eris.New(`ingest: missing required column "address"`)
	}
	if cols.zip < 0 {
		return nil, eris.New(`ingest: missing required column "zip"`)
	}
	return cols, nil
}

// get returns the trimmed cell for a resolved column, tolerating short rows.
func (c *columnSet) get(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
