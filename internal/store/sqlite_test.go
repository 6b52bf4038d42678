package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restroom-access/restroom-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func ptr(f float64) *float64 { return &f }

func testRestroom(name string) model.Restroom {
	return model.Restroom{
		Name:      name,
		Address:   "123 Main St, Belmont, MA",
		Zip:       "02478",
		Latitude:  ptr(42.3956),
		Longitude: ptr(-71.1776),
		Hours:     "Mon-Fri 9-5",
		Remarks:   "ground floor",
	}
}

func TestSQLite_CreateAndGetRestroom(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	in := testRestroom("Town Hall")
	created, err := st.CreateRestroom(ctx, &in)
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	got, err := st.GetRestroom(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Town Hall", got.Name)
	assert.Equal(t, "123 Main St, Belmont, MA", got.Address)
	assert.Equal(t, "02478", got.Zip)
	require.NotNil(t, got.Latitude)
	require.NotNil(t, got.Longitude)
	assert.InDelta(t, 42.3956, *got.Latitude, 1e-9)
	assert.InDelta(t, -71.1776, *got.Longitude, 1e-9)
	assert.Equal(t, "Mon-Fri 9-5", got.Hours)
}

func TestSQLite_GetRestroom_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetRestroom(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_CreateRestroom_NilCoordinates(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateRestroom(ctx, &model.Restroom{
		Name:    "No Location",
		Address: model.AddressUnavailable,
		Zip:     model.ZipUnknown,
	})
	require.NoError(t, err)

	got, err := st.GetRestroom(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Latitude)
	assert.Nil(t, got.Longitude)
}

func TestSQLite_BulkCreateAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.BulkCreateRestrooms(ctx, []model.Restroom{
		testRestroom("A"), testRestroom("B"), testRestroom("C"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err := st.ListRestrooms(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].Name)
	assert.Equal(t, "C", all[2].Name)
	assert.Less(t, all[0].ID, all[1].ID)
}

func TestSQLite_BulkCreate_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.BulkCreateRestrooms(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_ListRestrooms_ZipAndPaging(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testRestroom("A")
	b := testRestroom("B")
	b.Zip = "02139"
	c := testRestroom("C")
	_, err := st.BulkCreateRestrooms(ctx, []model.Restroom{a, b, c})
	require.NoError(t, err)

	byZip, err := st.ListRestrooms(ctx, Filter{Zip: "02139"})
	require.NoError(t, err)
	require.Len(t, byZip, 1)
	assert.Equal(t, "B", byZip[0].Name)

	page, err := st.ListRestrooms(ctx, Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "B", page[0].Name)
}

func TestSQLite_UpdateRestroom(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	in := testRestroom("Library")
	created, err := st.CreateRestroom(ctx, &in)
	require.NoError(t, err)

	created.Hours = "Daily 8-8"
	created.Remarks = "second floor"
	require.NoError(t, st.UpdateRestroom(ctx, created))

	got, err := st.GetRestroom(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Daily 8-8", got.Hours)
	assert.Equal(t, "second floor", got.Remarks)
}

func TestSQLite_UpdateRestroom_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateRestroom(context.Background(), &model.Restroom{ID: 424242, Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_UpdateFields(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	in := testRestroom("Park")
	created, err := st.CreateRestroom(ctx, &in)
	require.NoError(t, err)

	err = st.UpdateFields(ctx, created.ID, map[string]any{
		"hours":   "24/7",
		"address": "1 Park Ave, Belmont, MA",
	})
	require.NoError(t, err)

	got, err := st.GetRestroom(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "24/7", got.Hours)
	assert.Equal(t, "1 Park Ave, Belmont, MA", got.Address)
	assert.Equal(t, "Park", got.Name) // untouched
}

func TestSQLite_UpdateFields_Coordinates(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	in := testRestroom("Square")
	created, err := st.CreateRestroom(ctx, &in)
	require.NoError(t, err)

	err = st.UpdateFields(ctx, created.ID, map[string]any{
		"latitude":  ptr(41.9),
		"longitude": (*float64)(nil),
	})
	require.NoError(t, err)

	got, err := st.GetRestroom(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, 41.9, *got.Latitude, 1e-9)
	assert.Nil(t, got.Longitude)
}

func TestSQLite_UpdateFields_UnknownColumn(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateFields(context.Background(), 1, map[string]any{"nope": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown restroom column")
}

func TestSQLite_DeleteRestrooms(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRestroom(ctx, &model.Restroom{Name: "A", Address: "x"})
	require.NoError(t, err)
	b, err := st.CreateRestroom(ctx, &model.Restroom{Name: "B", Address: "x"})
	require.NoError(t, err)
	_, err = st.CreateRestroom(ctx, &model.Restroom{Name: "C", Address: "x"})
	require.NoError(t, err)

	n, err := st.DeleteRestrooms(ctx, []int64{a.ID, b.ID, 99999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := st.CountRestrooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLite_DeleteRestrooms_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.DeleteRestrooms(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_ListLocated(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	located := testRestroom("Located")
	missing := model.Restroom{Name: "Missing", Address: "x"}
	half := model.Restroom{Name: "Half", Address: "x", Latitude: ptr(42.0)}
	_, err := st.BulkCreateRestrooms(ctx, []model.Restroom{located, missing, half})
	require.NoError(t, err)

	got, err := st.ListLocated(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Located", got[0].Name)
}

func TestSQLite_ListWithinBounds(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	inside := testRestroom("Inside")
	outside := testRestroom("Outside")
	outside.Latitude = ptr(40.0)
	noCoords := model.Restroom{Name: "None", Address: "x"}
	_, err := st.BulkCreateRestrooms(ctx, []model.Restroom{inside, outside, noCoords})
	require.NoError(t, err)

	got, err := st.ListWithinBounds(ctx, 42.0, -72.0, 43.0, -71.0, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Inside", got[0].Name)
}

func TestSQLite_ListWithinBounds_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.BulkCreateRestrooms(ctx, []model.Restroom{
		testRestroom("A"), testRestroom("B"), testRestroom("C"),
	})
	require.NoError(t, err)

	got, err := st.ListWithinBounds(ctx, 42.0, -72.0, 43.0, -71.0, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLite_Stats(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	withHours := testRestroom("A")
	noHours := testRestroom("B")
	noHours.Hours = ""
	unknown := model.Restroom{Name: "C", Address: model.AddressUnavailable, Zip: model.ZipUnknown}
	_, err := st.BulkCreateRestrooms(ctx, []model.Restroom{withHours, noHours, unknown})
	require.NoError(t, err)

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Located)
	assert.Equal(t, 1, stats.WithHours)
	assert.Equal(t, 1, stats.UnknownZip)
}

func TestSQLite_Stats_EmptyTable(t *testing.T) {
	st := newTestSQLiteStore(t)

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.Located)
}

func TestSQLite_ImportLog(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := model.ImportRecord{
		ID:         uuid.New().String(),
		Source:     "bathrooms.csv",
		Format:     "csv",
		Created:    120,
		ErrorCount: 2,
		Errors:     []string{"row 4: missing address", "row 9: bad latitude"},
		ImportedAt: time.Now().UTC(),
	}
	require.NoError(t, st.RecordImport(ctx, rec))

	recs, err := st.ListImports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, rec.ID, recs[0].ID)
	assert.Equal(t, "bathrooms.csv", recs[0].Source)
	assert.Equal(t, "csv", recs[0].Format)
	assert.Equal(t, 120, recs[0].Created)
	assert.Equal(t, 2, recs[0].ErrorCount)
	assert.Equal(t, rec.Errors, recs[0].Errors)
	assert.WithinDuration(t, rec.ImportedAt, recs[0].ImportedAt, time.Second)
}

func TestSQLite_ListImports_Order(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	older := model.ImportRecord{ID: "a", Source: "old.csv", Format: "csv",
		ImportedAt: time.Now().UTC().Add(-time.Hour)}
	newer := model.ImportRecord{ID: "b", Source: "new.csv", Format: "csv",
		ImportedAt: time.Now().UTC()}
	require.NoError(t, st.RecordImport(ctx, older))
	require.NoError(t, st.RecordImport(ctx, newer))

	recs, err := st.ListImports(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "new.csv", recs[0].Source)
}
