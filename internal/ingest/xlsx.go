package ingest

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ImportXLSX imports the first sheet of an XLSX workbook. Row 0 is the
// header; cells are stringified through the library so numeric zip codes
// survive as text.
func (imp *Importer) ImportXLSX(ctx context.Context, path string) (*Report, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("ingest: %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("ingest: %s has no rows", path)
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}

	rep := newReport(filepath.Base(path), "xlsx")
	rep.Encoding = "utf-8"
	return imp.importRows(ctx, rep, rows[0], rows[1:])
}
