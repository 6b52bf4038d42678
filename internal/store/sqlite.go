package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/restroom-access/restroom-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS restrooms (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	address    TEXT NOT NULL,
	zip        TEXT NOT NULL DEFAULT '00000',
	latitude   REAL,
	longitude  REAL,
	hours      TEXT NOT NULL DEFAULT '',
	remarks    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_restrooms_coords ON restrooms(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_restrooms_zip ON restrooms(zip);

CREATE TABLE IF NOT EXISTS import_log (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	format      TEXT NOT NULL,
	created     INTEGER NOT NULL DEFAULT 0,
	error_count INTEGER NOT NULL DEFAULT 0,
	errors      TEXT,
	imported_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_import_log_imported_at ON import_log(imported_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRestroom(ctx context.Context, r *model.Restroom) (*model.Restroom, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO restrooms (name, address, zip, latitude, longitude, hours, remarks, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.Address, r.Zip, nullFloat(r.Latitude), nullFloat(r.Longitude),
		r.Hours, r.Remarks, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert restroom")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last insert id")
	}

	out := *r
	out.ID = id
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

func (s *SQLiteStore) BulkCreateRestrooms(ctx context.Context, rs []model.Restroom) (int64, error) {
	if len(rs) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin bulk insert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO restrooms (name, address, zip, latitude, longitude, hours, remarks, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare bulk insert")
	}
	defer stmt.Close()

	var n int64
	for _, r := range rs {
		if _, err := stmt.ExecContext(ctx,
			r.Name, r.Address, r.Zip, nullFloat(r.Latitude), nullFloat(r.Longitude),
			r.Hours, r.Remarks, now, now,
		); err != nil {
			return 0, eris.Wrap(err, "sqlite: bulk insert restroom")
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit bulk insert")
	}
	return n, nil
}

func (s *SQLiteStore) GetRestroom(ctx context.Context, id int64) (*model.Restroom, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, address, zip, latitude, longitude, hours, remarks, created_at, updated_at
		 FROM restrooms WHERE id = ?`, id)

	r, err := scanRestroom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get restroom %d", id)
	}
	return r, nil
}

func (s *SQLiteStore) UpdateRestroom(ctx context.Context, r *model.Restroom) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE restrooms SET name = ?, address = ?, zip = ?, latitude = ?, longitude = ?,
		 hours = ?, remarks = ?, updated_at = ? WHERE id = ?`,
		r.Name, r.Address, r.Zip, nullFloat(r.Latitude), nullFloat(r.Longitude),
		r.Hours, r.Remarks, time.Now().UTC(), r.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update restroom %d", r.ID)
	}
	return checkRowsAffected(res, "restroom", r.ID)
}

func (s *SQLiteStore) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !restroomColumns[col] {
			return eris.Errorf("sqlite: unknown restroom column %q", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var sets []string
	var args []any
	for _, col := range cols {
		sets = append(sets, col+" = ?")
		val := fields[col]
		if f, ok := val.(*float64); ok {
			val = nullFloat(f)
		}
		args = append(args, val)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE restrooms SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update restroom fields %d", id)
	}
	return checkRowsAffected(res, "restroom", id)
}

func (s *SQLiteStore) DeleteRestrooms(ctx context.Context, ids []int64) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += 500 {
		end := start + 500
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		res, err := s.db.ExecContext(ctx,
			`DELETE FROM restrooms WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return total, eris.Wrap(err, "sqlite: delete restrooms")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, eris.Wrap(err, "sqlite: rows affected")
		}
		total += n
	}
	return total, nil
}

func (s *SQLiteStore) ListRestrooms(ctx context.Context, filter Filter) ([]model.Restroom, error) {
	query := `SELECT id, name, address, zip, latitude, longitude, hours, remarks, created_at, updated_at
	          FROM restrooms WHERE 1=1`
	var args []any

	if filter.Zip != "" {
		query += ` AND zip = ?`
		args = append(args, filter.Zip)
	}
	query += ` ORDER BY id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list restrooms")
	}
	return collectRestrooms(rows, "sqlite: list restrooms")
}

func (s *SQLiteStore) ListLocated(ctx context.Context) ([]model.Restroom, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address, zip, latitude, longitude, hours, remarks, created_at, updated_at
		 FROM restrooms WHERE latitude IS NOT NULL AND longitude IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list located")
	}
	return collectRestrooms(rows, "sqlite: list located")
}

func (s *SQLiteStore) ListWithinBounds(ctx context.Context, minLat, minLon, maxLat, maxLon float64, limit int) ([]model.Restroom, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address, zip, latitude, longitude, hours, remarks, created_at, updated_at
		 FROM restrooms
		 WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
		 ORDER BY id LIMIT ?`,
		minLat, maxLat, minLon, maxLon, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list within bounds")
	}
	return collectRestrooms(rows, "sqlite: list within bounds")
}

func (s *SQLiteStore) CountRestrooms(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM restrooms`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count restrooms")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN latitude IS NOT NULL AND longitude IS NOT NULL THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN hours <> '' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN zip = '00000' THEN 1 ELSE 0 END), 0)
		 FROM restrooms`,
	).Scan(&st.Total, &st.Located, &st.WithHours, &st.UnknownZip)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	return &st, nil
}

func (s *SQLiteStore) RecordImport(ctx context.Context, rec model.ImportRecord) error {
	errorsJSON, err := json.Marshal(rec.Errors)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal import errors")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO import_log (id, source, format, created, error_count, errors, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Source, rec.Format, rec.Created, rec.ErrorCount, string(errorsJSON), rec.ImportedAt,
	)
	return eris.Wrap(err, "sqlite: record import")
}

func (s *SQLiteStore) ListImports(ctx context.Context, limit int) ([]model.ImportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, format, created, error_count, errors, imported_at
		 FROM import_log ORDER BY imported_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list imports")
	}
	defer rows.Close()

	var recs []model.ImportRecord
	for rows.Next() {
		var rec model.ImportRecord
		var errorsJSON sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Format, &rec.Created,
			&rec.ErrorCount, &errorsJSON, &rec.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan import")
		}
		if errorsJSON.Valid && errorsJSON.String != "" {
			if err := json.Unmarshal([]byte(errorsJSON.String), &rec.Errors); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal import errors")
			}
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list imports iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %d", entity, id)
	}
	return nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRestroom(row scannable) (*model.Restroom, error) {
	var r model.Restroom
	var lat, lon sql.NullFloat64

	err := row.Scan(&r.ID, &r.Name, &r.Address, &r.Zip, &lat, &lon,
		&r.Hours, &r.Remarks, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Latitude = floatPtr(lat)
	r.Longitude = floatPtr(lon)
	return &r, nil
}

func collectRestrooms(rows *sql.Rows, op string) ([]model.Restroom, error) {
	defer rows.Close()

	var out []model.Restroom
	for rows.Next() {
		r, err := scanRestroom(rows)
		if err != nil {
			return nil, eris.Wrap(err, op+" scan")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), op+" iterate")
}
