package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/restroom-access/restroom-cli/internal/db"
	"github.com/restroom-access/restroom-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const restroomCols = `id, name, address, zip, latitude, longitude, hours, remarks, created_at, updated_at`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_restroom": `INSERT INTO restrooms (name, address, zip, latitude, longitude, hours, remarks, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
	"get_restroom":    `SELECT ` + restroomCols + ` FROM restrooms WHERE id = $1`,
	"within_bounds":   `SELECT ` + restroomCols + ` FROM restrooms WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4 ORDER BY id LIMIT $5`,
	"record_import":   `INSERT INTO import_log (id, source, format, created, error_count, errors, imported_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS restrooms (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	address    TEXT NOT NULL,
	zip        TEXT NOT NULL DEFAULT '00000',
	latitude   DOUBLE PRECISION,
	longitude  DOUBLE PRECISION,
	hours      TEXT NOT NULL DEFAULT '',
	remarks    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_restrooms_coords ON restrooms(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_restrooms_zip ON restrooms(zip);

CREATE TABLE IF NOT EXISTS import_log (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	format      TEXT NOT NULL,
	created     INTEGER NOT NULL DEFAULT 0,
	error_count INTEGER NOT NULL DEFAULT 0,
	errors      JSONB,
	imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_import_log_imported_at ON import_log(imported_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRestroom(ctx context.Context, r *model.Restroom) (*model.Restroom, error) {
	now := time.Now().UTC()

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO restrooms (name, address, zip, latitude, longitude, hours, remarks, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		r.Name, r.Address, r.Zip, r.Latitude, r.Longitude, r.Hours, r.Remarks, now, now,
	).Scan(&id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert restroom")
	}

	out := *r
	out.ID = id
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

func (s *PostgresStore) BulkCreateRestrooms(ctx context.Context, rs []model.Restroom) (int64, error) {
	if len(rs) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()

	rows := make([][]any, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, []any{
			r.Name, r.Address, r.Zip, r.Latitude, r.Longitude, r.Hours, r.Remarks, now, now,
		})
	}
	n, err := db.CopyFrom(ctx, s.pool, "restrooms",
		[]string{"name", "address", "zip", "latitude", "longitude", "hours", "remarks", "created_at", "updated_at"},
		rows,
	)
	return n, eris.Wrap(err, "postgres: bulk insert restrooms")
}

func (s *PostgresStore) GetRestroom(ctx context.Context, id int64) (*model.Restroom, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+restroomCols+` FROM restrooms WHERE id = $1`, id)

	var r model.Restroom
	err := row.Scan(&r.ID, &r.Name, &r.Address, &r.Zip, &r.Latitude, &r.Longitude,
		&r.Hours, &r.Remarks, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get restroom %d", id)
	}
	return &r, nil
}

func (s *PostgresStore) UpdateRestroom(ctx context.Context, r *model.Restroom) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE restrooms SET name = $1, address = $2, zip = $3, latitude = $4, longitude = $5,
		 hours = $6, remarks = $7, updated_at = $8 WHERE id = $9`,
		r.Name, r.Address, r.Zip, r.Latitude, r.Longitude, r.Hours, r.Remarks,
		time.Now().UTC(), r.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update restroom %d", r.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("restroom not found: %d", r.ID)
	}
	return nil
}

func (s *PostgresStore) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !restroomColumns[col] {
			return eris.Errorf("postgres: unknown restroom column %q", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	query := `UPDATE restrooms SET `
	args := []any{}
	argIdx := 1
	for _, col := range cols {
		if argIdx > 1 {
			query += ", "
		}
		query += fmt.Sprintf("%s = $%d", col, argIdx)
		args = append(args, fields[col])
		argIdx++
	}
	query += fmt.Sprintf(", updated_at = $%d WHERE id = $%d", argIdx, argIdx+1)
	args = append(args, time.Now().UTC(), id)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update restroom fields %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("restroom not found: %d", id)
	}
	return nil
}

func (s *PostgresStore) DeleteRestrooms(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM restrooms WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete restrooms")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListRestrooms(ctx context.Context, filter Filter) ([]model.Restroom, error) {
	query := `SELECT ` + restroomCols + ` FROM restrooms WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Zip != "" {
		query += fmt.Sprintf(` AND zip = $%d`, argIdx)
		args = append(args, filter.Zip)
		argIdx++
	}
	query += ` ORDER BY id`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list restrooms")
	}
	return scanRestroomRows(rows, "postgres: list restrooms")
}

func (s *PostgresStore) ListLocated(ctx context.Context) ([]model.Restroom, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+restroomCols+` FROM restrooms
		 WHERE latitude IS NOT NULL AND longitude IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list located")
	}
	return scanRestroomRows(rows, "postgres: list located")
}

func (s *PostgresStore) ListWithinBounds(ctx context.Context, minLat, minLon, maxLat, maxLon float64, limit int) ([]model.Restroom, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+restroomCols+` FROM restrooms
		 WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4
		 ORDER BY id LIMIT $5`,
		minLat, maxLat, minLon, maxLon, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list within bounds")
	}
	return scanRestroomRows(rows, "postgres: list within bounds")
}

func (s *PostgresStore) CountRestrooms(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM restrooms`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count restrooms")
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE latitude IS NOT NULL AND longitude IS NOT NULL),
		        COUNT(*) FILTER (WHERE hours <> ''),
		        COUNT(*) FILTER (WHERE zip = '00000')
		 FROM restrooms`,
	).Scan(&st.Total, &st.Located, &st.WithHours, &st.UnknownZip)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return &st, nil
}

func (s *PostgresStore) RecordImport(ctx context.Context, rec model.ImportRecord) error {
	errorsJSON, err := json.Marshal(rec.Errors)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal import errors")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO import_log (id, source, format, created, error_count, errors, imported_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Source, rec.Format, rec.Created, rec.ErrorCount, errorsJSON, rec.ImportedAt,
	)
	return eris.Wrap(err, "postgres: record import")
}

func (s *PostgresStore) ListImports(ctx context.Context, limit int) ([]model.ImportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, format, created, error_count, errors, imported_at
		 FROM import_log ORDER BY imported_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list imports")
	}
	defer rows.Close()

	var recs []model.ImportRecord
	for rows.Next() {
		var rec model.ImportRecord
		var errorsJSON []byte
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Format, &rec.Created,
			&rec.ErrorCount, &errorsJSON, &rec.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan import")
		}
		if len(errorsJSON) > 0 {
			if err := json.Unmarshal(errorsJSON, &rec.Errors); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal import errors")
			}
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list imports iterate")
}

func scanRestroomRows(rows pgx.Rows, op string) ([]model.Restroom, error) {
	defer rows.Close()

	var out []model.Restroom
	for rows.Next() {
		var r model.Restroom
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.Zip, &r.Latitude, &r.Longitude,
			&r.Hours, &r.Remarks, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, op+" scan")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), op+" iterate")
}
