package query

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restroom-access/restroom-cli/internal/model"
	"github.com/restroom-access/restroom-cli/pkg/geocode"
)

// fakeSource serves canned rows and records how it was called.
type fakeSource struct {
	mu        sync.Mutex
	rows      []model.Restroom
	listErr   error
	boundsErr error
	listCalls int
	lastLimit int
}

func (f *fakeSource) ListLocated(context.Context) ([]model.Restroom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Restroom, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeSource) ListWithinBounds(_ context.Context, minLat, minLon, maxLat, maxLon float64, limit int) ([]model.Restroom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	if f.boundsErr != nil {
		return nil, f.boundsErr
	}
	var out []model.Restroom
	for _, r := range f.rows {
		if !r.HasCoordinates() {
			continue
		}
		lat, lon := r.Coords()
		if lat < minLat || lat > maxLat || lon < minLon || lon > maxLon {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type fakeGeocoder struct {
	res   *geocode.Result
	err   error
	calls int
	last  string
}

func (f *fakeGeocoder) Geocode(_ context.Context, query string) (*geocode.Result, error) {
	f.calls++
	f.last = query
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func row(id int64, name, addr, zip string, lat, lon float64) model.Restroom {
	r := model.Restroom{ID: id, Name: name, Address: addr, Zip: zip}
	r.SetCoordinates(lat, lon)
	return r
}

func TestNewBBoxNormalizes(t *testing.T) {
	t.Parallel()

	want := BBox{MinLat: 42.0, MinLon: -71.2, MaxLat: 42.5, MaxLon: -71.0}
	assert.Equal(t, want, NewBBox(42.0, -71.2, 42.5, -71.0))
	assert.Equal(t, want, NewBBox(42.5, -71.0, 42.0, -71.2))
	assert.Equal(t, want, NewBBox(42.5, -71.2, 42.0, -71.0))
}

func TestWithinBounds(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: []model.Restroom{
		row(1, "Inside", "10 Main St, Boston", "02101", 42.35, -71.06),
		row(2, "Outside", "1 Elm St, Portland, ME", "04101", 43.66, -70.25),
	}}
	e := New(src, nil, Config{})

	locs, err := e.WithinBounds(context.Background(), NewBBox(42.0, -71.5, 42.5, -70.5))
	require.NoError(t, err)
	require.Len(t, locs, 1)

	assert.Equal(t, int64(1), locs[0].ID)
	assert.Equal(t, "10 Main St, Boston, MA", locs[0].Address, "state repaired on the way out")
	assert.Nil(t, locs[0].DistanceMi)
	assert.Equal(t, defaultBBoxLimit, src.lastLimit)
}

func TestWithinBoundsHonorsCap(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: []model.Restroom{
		row(1, "A", "x", "02101", 42.10, -71.0),
		row(2, "B", "x", "02101", 42.11, -71.0),
		row(3, "C", "x", "02101", 42.12, -71.0),
	}}
	e := New(src, nil, Config{BBoxLimit: 2})

	locs, err := e.WithinBounds(context.Background(), NewBBox(42.0, -72.0, 43.0, -70.0))
	require.NoError(t, err)
	assert.Len(t, locs, 2)
	assert.Equal(t, 2, src.lastLimit)
}

func TestWithinBoundsStoreError(t *testing.T) {
	t.Parallel()

	src := &fakeSource{boundsErr: errors.New("connection refused")}
	e := New(src, nil, Config{})

	_, err := e.WithinBounds(context.Background(), NewBBox(42.0, -71.5, 42.5, -70.5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query: within bounds")
}

func TestNearbyOrdersByDistance(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: []model.Restroom{
		row(2, "Far", "x", "02101", 42.10, -71.0),
		row(3, "Mid", "x", "02101", 42.05, -71.0),
		row(1, "Here", "x", "02101", 42.00, -71.0),
	}}
	e := New(src, nil, Config{})

	lat, lon := 42.0, -71.0
	locs, err := e.Nearby(context.Background(), &lat, &lon)
	require.NoError(t, err)
	require.Len(t, locs, 3)

	assert.Equal(t, []int64{1, 3, 2}, []int64{locs[0].ID, locs[1].ID, locs[2].ID})
	require.NotNil(t, locs[0].DistanceMi)
	assert.InDelta(t, 0, *locs[0].DistanceMi, 0.001)
	assert.Less(t, *locs[0].DistanceMi, *locs[1].DistanceMi)
	assert.Less(t, *locs[1].DistanceMi, *locs[2].DistanceMi)
}

func TestNearbyDefaultCenter(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: []model.Restroom{
		row(2, "New York", "x", "10001", 40.7128, -74.0060),
		row(1, "Boston", "x", "02101", 42.3601, -71.0589),
	}}
	e := New(src, nil, Config{})

	locs, err := e.Nearby(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, int64(1), locs[0].ID, "default center sits in Boston")
	assert.InDelta(t, 0, *locs[0].DistanceMi, 0.01)
}

func TestNearbyRejectsInvalidCenter(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: []model.Restroom{
		row(1, "Boston", "x", "02101", 42.3601, -71.0589),
	}}
	e := New(src, nil, Config{})

	lat, lon := 200.0, -71.0
	locs, err := e.Nearby(context.Background(), &lat, &lon)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.InDelta(t, 0, *locs[0].DistanceMi, 0.01, "out-of-range center falls back to the default")
}

func TestNearbyHonorsCap(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: []model.Restroom{
		row(1, "A", "x", "02101", 42.00, -71.0),
		row(2, "B", "x", "02101", 42.01, -71.0),
		row(3, "C", "x", "02101", 42.02, -71.0),
	}}
	e := New(src, nil, Config{NearbyLimit: 2})

	lat, lon := 42.0, -71.0
	locs, err := e.Nearby(context.Background(), &lat, &lon)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, int64(1), locs[0].ID)
	assert.Equal(t, int64(2), locs[1].ID)
}

func TestNearbyPlace(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: []model.Restroom{
		row(1, "Common", "5 Tremont St, Boston, MA", "02101", 42.355, -71.065),
		row(2, "Library", "700 Boylston St, Boston, MA", "02116", 42.349, -71.078),
		row(3, "Away", "1 Elm St, Portland, ME", "04101", 43.66, -70.25),
	}}
	e := New(src, nil, Config{})

	place, locs, err := e.NearbyPlace(context.Background(), "boston-massachusetts")
	require.NoError(t, err)
	require.NotNil(t, place)

	assert.Equal(t, "Boston, MA", place.Name)
	assert.Equal(t, 2, place.Members)
	require.Len(t, locs, 3, "a place search still ranks the whole set")
	assert.NotEqual(t, int64(3), locs[0].ID)
}

func TestNearbyPlaceUnknownSlug(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: []model.Restroom{
		row(1, "Common", "5 Tremont St, Boston, MA", "02101", 42.355, -71.065),
	}}
	e := New(src, nil, Config{})

	place, locs, err := e.NearbyPlace(context.Background(), "atlantis")
	require.NoError(t, err)
	assert.Nil(t, place)
	assert.Nil(t, locs)
}

func TestHaversine(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Haversine(42.36, -71.06, 42.36, -71.06))

	// Boston to New York, great-circle.
	d := Haversine(42.3601, -71.0589, 40.7128, -74.0060)
	assert.InDelta(t, 306_000, d, 3_000)

	// One degree of latitude is about 111 km anywhere.
	assert.InDelta(t, 111_195, Haversine(0, 0, 1, 0), 100)
}
