package ingest

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/restroom-access/restroom-cli/internal/hours"
	"github.com/restroom-access/restroom-cli/internal/model"
	"github.com/restroom-access/restroom-cli/internal/proj"
)

// Attribute synonym lists, probed per record until a non-empty value turns
// up. DBF field names vary wildly between municipal GIS exports.
var (
	shpNameAttrs    = []string{"name", "town", "facility", "site_name", "label", "title"}
	shpAddressAttrs = []string{"address", "addr", "street", "st_addr", "location"}
	shpCityAttrs    = []string{"city", "municipali", "place"}
	shpZipAttrs     = []string{"zip", "zipcode", "zip_code", "postal", "postcode"}
	shpHoursAttrs   = []string{"hours", "open_hours", "hrs"}
	shpRemarksAttrs = []string{"remarks", "comment", "comments", "note", "notes"}
)

// ImportShapefileZip imports point features from a zipped shapefile. The
// first .shp member is used; a sibling .prj with the same stem selects the
// projection, and an unreadable or missing one falls back to treating
// coordinates as geographic.
func (imp *Importer) ImportShapefileZip(ctx context.Context, zipPath string) (*Report, error) {
	tmpDir, err := os.MkdirTemp("", "restroom-shp-*")
	if err != nil {
		return nil, eris.Wrap(err, "ingest: temp dir")
	}
	defer os.RemoveAll(tmpDir) //nolint:errcheck

	files, err := extractZip(zipPath, tmpDir)
	if err != nil {
		return nil, err
	}

	shpPath := ""
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f), ".shp") {
			shpPath = f
			break
		}
	}
	if shpPath == "" {
		return nil, eris.Errorf("ingest: no .shp member in %s", filepath.Base(zipPath))
	}

	projection := loadProjection(files, shpPath)

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open shapefile %s", filepath.Base(shpPath))
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	rep := newReport(filepath.Base(zipPath), "shapefile")

	var batch []model.Restroom
	rowNum := 0
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rowNum++
		_, shape := reader.Shape()

		x, y, ok := pointXY(shape)
		if !ok {
			rep.addRowError(rowNum, "unsupported geometry")
			continue
		}

		ll, err := projection.Inverse(geom.Coord{x, y})
		if err != nil {
			rep.addRowError(rowNum, "reproject: "+err.Error())
			continue
		}
		lon, lat := ll.X(), ll.Y()
		if !model.ValidCoordinates(lat, lon) {
			rep.addRowError(rowNum, fmt.Sprintf("coordinates out of range: %v, %v", lat, lon))
			continue
		}
		lat = model.Round6(lat)
		lon = model.Round6(lon)

		name := probeAttr(reader, fieldIdx, shpNameAttrs)
		address := probeAttr(reader, fieldIdx, shpAddressAttrs)
		city := probeAttr(reader, fieldIdx, shpCityAttrs)
		zipCode := probeAttr(reader, fieldIdx, shpZipAttrs)

		if address == "" {
			address = name
		}
		if address == "" {
			address = model.AddressUnavailable
		}
		if city != "" {
			address = address + ", " + city
		}
		if zipCode == "" {
			zipCode = model.ZipUnknown
		} else {
			zipCode = normalizeZip(zipCode)
		}
		if name == "" {
			name = address
		}

		hrs := probeAttr(reader, fieldIdx, shpHoursAttrs)
		if !hours.Usable(hrs) {
			hrs = ""
		}

		batch = append(batch, model.Restroom{
			Name:      name,
			Address:   address,
			Zip:       zipCode,
			Latitude:  &lat,
			Longitude: &lon,
			Hours:     hrs,
			Remarks:   probeAttr(reader, fieldIdx, shpRemarksAttrs),
		})
	}

	n, err := imp.store.BulkCreateRestrooms(ctx, batch)
	if err != nil {
		return nil, err
	}
	rep.Created = int(n)

	imp.finish(ctx, rep)
	return rep, nil
}

// loadProjection reads the .prj sidecar matching the shapefile stem. Any
// problem degrades to identity, since plenty of exports are already in
// lon/lat and ship no descriptor at all.
func loadProjection(files []string, shpPath string) *proj.Projection {
	stem := strings.TrimSuffix(filepath.Base(shpPath), filepath.Ext(shpPath))

	for _, f := range files {
		base := filepath.Base(f)
		if !strings.EqualFold(base, stem+".prj") {
			continue
		}
		data, err := os.ReadFile(f)
		if err != nil {
			zap.L().Warn("ingest: read projection sidecar", zap.String("file", base), zap.Error(err))
			return proj.Identity()
		}
		p, err := proj.Parse(string(data))
		if err != nil {
			zap.L().Warn("ingest: unsupported projection, treating coordinates as geographic",
				zap.String("file", base), zap.Error(err))
			return proj.Identity()
		}
		if !p.IsIdentity() {
			zap.L().Info("ingest: reprojecting shapefile", zap.String("crs", p.Name))
		}
		return p
	}
	return proj.Identity()
}

// pointXY extracts the coordinate from supported point-like shapes. For
// multipoints the first point stands in for the feature.
func pointXY(s shp.Shape) (x, y float64, ok bool) {
	switch v := s.(type) {
	case *shp.Point:
		return v.X, v.Y, true
	case *shp.PointZ:
		return v.X, v.Y, true
	case *shp.PointM:
		return v.X, v.Y, true
	case *shp.MultiPoint:
		if len(v.Points) > 0 {
			return v.Points[0].X, v.Points[0].Y, true
		}
	case *shp.MultiPointZ:
		if len(v.Points) > 0 {
			return v.Points[0].X, v.Points[0].Y, true
		}
	case *shp.MultiPointM:
		if len(v.Points) > 0 {
			return v.Points[0].X, v.Points[0].Y, true
		}
	}
	return 0, 0, false
}

// probeAttr returns the first non-empty value among the given DBF fields.
func probeAttr(r *shp.Reader, fieldIdx map[string]int, names []string) string {
	for _, n := range names {
		idx, ok := fieldIdx[n]
		if !ok {
			continue
		}
		val := strings.TrimSpace(strings.TrimRight(r.Attribute(idx), "\x00"))
		if val != "" {
			return val
		}
	}
	return ""
}

// extractZip unpacks an archive, refusing entries that would escape the
// destination directory.
func extractZip(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open archive %s", filepath.Base(zipPath))
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		destPath := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
			return nil, eris.Errorf("ingest: illegal archive path %q", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return nil, eris.Wrap(err, "ingest: create directory")
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return nil, eris.Wrap(err, "ingest: create parent directory")
		}
		if err := copyZipEntry(f, destPath); err != nil {
			return nil, err
		}
		extracted = append(extracted, destPath)
	}
	return extracted, nil
}

func copyZipEntry(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return eris.Wrap(err, "ingest: open archive entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return eris.Wrap(err, "ingest: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return eris.Wrap(err, "ingest: write file")
	}
	return nil
}
