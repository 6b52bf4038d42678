// Package ingest imports restroom records from the file formats cities
// publish: delimited text, XLSX workbooks, and zipped shapefiles. All
// formats feed one row pipeline that repairs what it can, collects row
// errors without aborting, and bulk-creates the survivors.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/restroom-access/restroom-cli/internal/hours"
	"github.com/restroom-access/restroom-cli/internal/model"
	"github.com/restroom-access/restroom-cli/pkg/geocode"
)

// Creator is the slice of the store an import needs.
type Creator interface {
	BulkCreateRestrooms(ctx context.Context, rs []model.Restroom) (int64, error)
	RecordImport(ctx context.Context, rec model.ImportRecord) error
}

// Geocoder resolves free-form addresses to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*geocode.Result, error)
}

// Importer runs file imports against a store.
type Importer struct {
	store    Creator
	geocoder Geocoder
	mapping  *Mapping
	preview  int
}

// Option configures an Importer.
type Option func(*Importer)

// WithGeocoder enables coordinate backfill for rows without explicit
// latitude/longitude columns.
func WithGeocoder(g Geocoder) Option {
	return func(imp *Importer) { imp.geocoder = g }
}

// WithMapping extends the column synonym lists from a mapping file.
func WithMapping(m *Mapping) Option {
	return func(imp *Importer) { imp.mapping = m }
}

// WithErrorPreview caps how many row errors are persisted per import.
func WithErrorPreview(n int) Option {
	return func(imp *Importer) {
		if n >= 0 {
			imp.preview = n
		}
	}
}

// New creates an Importer.
func New(store Creator, opts ...Option) *Importer {
	imp := &Importer{store: store, preview: 20}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// importRows runs the shared pipeline over pre-split tabular data. The
// header has already been consumed; row numbers reported to the operator
// count from the top of the file, so data row i is file row i+2.
func (imp *Importer) importRows(ctx context.Context, rep *Report, header []string, rows [][]string) (*Report, error) {
	cols, err := resolveColumns(header, imp.mapping)
	if err != nil {
		return nil, err
	}

	var batch []model.Restroom
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r, ok := imp.buildRow(ctx, cols, row, i+2, rep); ok {
			batch = append(batch, *r)
		}
	}

	n, err := imp.store.BulkCreateRestrooms(ctx, batch)
	if err != nil {
		return nil, err
	}
	rep.Created = int(n)

	imp.finish(ctx, rep)
	return rep, nil
}

// buildRow turns one tabular row into a Restroom, or reports why it can't.
func (imp *Importer) buildRow(ctx context.Context, cols *columnSet, row []string, rowNum int, rep *Report) (*model.Restroom, bool) {
	address := cols.get(row, cols.address)
	if address == "" {
		rep.addRowError(rowNum, "missing address")
		return nil, false
	}
	zip := cols.get(row, cols.zip)
	if zip == "" {
		rep.addRowError(rowNum, "missing zip")
		return nil, false
	}

	if city := cols.get(row, cols.city); city != "" {
		address = address + ", " + city
	}
	zip = normalizeZip(zip)

	name := cols.get(row, cols.name)
	if name == "" {
		name = address
	}

	hrs := cols.get(row, cols.hours)
	if !hours.Usable(hrs) {
		hrs = ""
	}
	remarks := cols.get(row, cols.remarks)

	// Explicit coordinate cells win; rows without them geocode. A value
	// that is present but unparseable is a row error, not a geocode
	// candidate, so the report surfaces the bad data.
	var lat, lon float64
	latRaw := cols.get(row, cols.latitude)
	lonRaw := cols.get(row, cols.longitude)
	if latRaw != "" && lonRaw != "" {
		pLat, errLat := strconv.ParseFloat(latRaw, 64)
		pLon, errLon := strconv.ParseFloat(lonRaw, 64)
		if errLat != nil || errLon != nil {
			rep.addRowError(rowNum, fmt.Sprintf("bad coordinates %q, %q", latRaw, lonRaw))
		} else {
			if !model.ValidCoordinates(pLat, pLon) {
				rep.addRowError(rowNum, fmt.Sprintf("coordinates out of range: %v, %v", pLat, pLon))
				return nil, false
			}
			lat, lon = pLat, pLon
		}
	} else {
		lat, lon = imp.geocodeAddress(ctx, address, zip)
	}
	lat = model.Round6(lat)
	lon = model.Round6(lon)

	return &model.Restroom{
		Name:      name,
		Address:   address,
		Zip:       zip,
		Latitude:  &lat,
		Longitude: &lon,
		Hours:     hrs,
		Remarks:   remarks,
	}, true
}

// geocodeAddress resolves "address, zip" to coordinates. Misses and
// failures both come back as (0, 0); the record still imports.
func (imp *Importer) geocodeAddress(ctx context.Context, address, zip string) (lat, lon float64) {
	if imp.geocoder == nil {
		return 0, 0
	}
	res, err := imp.geocoder.Geocode(ctx, address+", "+zip)
	if err != nil {
		zap.L().Warn("ingest: geocode failed",
			zap.String("address", address),
			zap.Error(err))
		return 0, 0
	}
	if !res.Matched {
		return 0, 0
	}
	return res.Latitude, res.Longitude
}

// finish persists the import-log entry and writes the summary line.
func (imp *Importer) finish(ctx context.Context, rep *Report) {
	rec := model.ImportRecord{
		ID:         rep.ID,
		Source:     rep.Source,
		Format:     rep.Format,
		Created:    rep.Created,
		ErrorCount: len(rep.RowErrors),
		Errors:     rep.Preview(imp.preview),
		ImportedAt: time.Now().UTC(),
	}
	if err := imp.store.RecordImport(ctx, rec); err != nil {
		zap.L().Warn("ingest: record import", zap.Error(err))
	}

	zap.L().Info("ingest: import complete",
		zap.String("source", rep.Source),
		zap.String("format", rep.Format),
		zap.String("encoding", rep.Encoding),
		zap.Int("created", rep.Created),
		zap.Int("row_errors", len(rep.RowErrors)))
}

// normalizeZip truncates Zip+4 style values to the 5-digit prefix.
func normalizeZip(zip string) string {
	if len(zip) > 5 && isDigits(zip[:5]) {
		return zip[:5]
	}
	return zip
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
