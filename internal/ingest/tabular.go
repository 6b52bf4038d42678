package ingest

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ImportCSV imports a delimited text file. The whole file is read up front
// because encoding detection needs to see all of it.
func (imp *Importer) ImportCSV(ctx context.Context, path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}

	text, encoding, err := DecodeText(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: parse csv %s", path)
	}
	if len(records) == 0 {
		return nil, eris.Errorf("ingest: %s has no rows", path)
	}

	rep := newReport(filepath.Base(path), "csv")
	rep.Encoding = encoding
	return imp.importRows(ctx, rep, records[0], records[1:])
}
