package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restroom-access/restroom-cli/internal/model"
	"github.com/restroom-access/restroom-cli/pkg/geocode"
)

func placeRows() []model.Restroom {
	rows := []model.Restroom{
		row(1, "Common", "5 Tremont St, Boston, MA", "02101", 42.355, -71.065),
		row(2, "Library", "700 Boylston St, Boston, MA", "02116", 42.349, -71.078),
		row(3, "City Hall", "795 Mass Ave, Cambridge, MA", "02139", 42.367, -71.106),
		{ID: 4, Name: "Unlocated", Address: "9 Oak St, Boston, MA", Zip: "02101"},
	}
	lost := row(5, "Lost", "1 Pier Rd, Gloucester, MA", "01930", 0, 0)
	blank := row(6, "Blank", "", "", 41.0, -70.0)
	return append(rows, lost, blank)
}

func TestPlaceIndexBuild(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: placeRows()}
	pi := NewPlaceIndex(src, nil, 0, 0)

	places, err := pi.Search(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, places, 2, "null island and blank addresses never become places")

	assert.Equal(t, "Boston, MA", places[0].Name)
	assert.Equal(t, "boston-massachusetts", places[0].Slug)
	assert.Equal(t, 2, places[0].Members)
	assert.InDelta(t, 42.352, places[0].Latitude, 1e-9)
	assert.InDelta(t, -71.0715, places[0].Longitude, 1e-9)

	assert.Equal(t, "Cambridge, MA", places[1].Name)
	assert.Equal(t, 1, places[1].Members)
}

func TestPlaceIndexSearchRanking(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: []model.Restroom{
		row(1, "A", "1 Main St, Boston, MA", "02101", 42.35, -71.06),
		row(2, "B", "2 Main St, New Boston, NH", "03070", 42.97, -71.69),
		row(3, "C", "3 Main St, Cambridge, MA", "02139", 42.37, -71.10),
	}}
	pi := NewPlaceIndex(src, nil, 0, 0)

	got, err := pi.Search(context.Background(), "bos")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Boston, MA", got[0].Name, "prefix match ranks first")
	assert.Equal(t, "New Boston, NH", got[1].Name)

	got, err = pi.Search(context.Background(), "BOSTON")
	require.NoError(t, err)
	assert.Len(t, got, 2, "matching is case-insensitive")

	got, err = pi.Search(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPlaceIndexSearchCap(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: []model.Restroom{
		row(1, "A", "1 St, Andover, MA", "01810", 42.65, -71.14),
		row(2, "B", "2 St, Arlington, MA", "02474", 42.41, -71.16),
		row(3, "C", "3 St, Ashland, MA", "01721", 42.26, -71.46),
	}}
	pi := NewPlaceIndex(src, nil, 0, 2)

	got, err := pi.Search(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPlaceIndexTTLAndInvalidate(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: placeRows()}
	pi := NewPlaceIndex(src, nil, 300*time.Second, 0)
	now := time.Unix(1_700_000_000, 0)
	var mu sync.Mutex
	pi.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	ctx := context.Background()
	_, err := pi.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls())

	// Fresh snapshot, no rebuild.
	advance(299 * time.Second)
	_, err = pi.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls())

	// Expired snapshot rebuilds.
	advance(2 * time.Second)
	_, err = pi.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls())

	// Invalidate forces a rebuild regardless of age.
	pi.Invalidate()
	_, err = pi.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls())
}

func TestPlaceIndexConcurrentRebuildCollapses(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: placeRows()}
	pi := NewPlaceIndex(src, nil, 300*time.Second, 0)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pi.Search(context.Background(), "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, src.calls(), "concurrent cold reads share one build")
}

func TestPlaceIndexResolveHit(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: placeRows()}
	gc := &fakeGeocoder{}
	pi := NewPlaceIndex(src, gc, 0, 0)

	p, err := pi.Resolve(context.Background(), "Boston-Massachusetts")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Boston, MA", p.Name)
	assert.Equal(t, 2, p.Members)
	assert.Zero(t, gc.calls, "index hits never geocode")
}

func TestPlaceIndexResolveFallback(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: placeRows()}
	gc := &fakeGeocoder{res: &geocode.Result{Latitude: 43.298, Longitude: -72.482, Matched: true}}
	pi := NewPlaceIndex(src, gc, 0, 0)

	p, err := pi.Resolve(context.Background(), "springfield-vermont")
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "Springfield, VT", p.Name)
	assert.Equal(t, "springfield-vermont", p.Slug)
	assert.Equal(t, 43.298, p.Latitude)
	assert.Zero(t, p.Members)
	assert.Equal(t, 1, gc.calls)
	assert.Equal(t, "Springfield, VT", gc.last)
}

func TestPlaceIndexResolveRejectsArbitrarySlugs(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: placeRows()}
	gc := &fakeGeocoder{res: &geocode.Result{Matched: true}}
	pi := NewPlaceIndex(src, gc, 0, 0)

	for _, slug := range []string{"favicon.ico", "robots.txt", "boston", "massachusetts"} {
		p, err := pi.Resolve(context.Background(), slug)
		require.NoError(t, err, slug)
		assert.Nil(t, p, slug)
	}
	assert.Zero(t, gc.calls, "unparseable slugs never reach the geocoder")
}

func TestPlaceIndexResolveGeocoderMiss(t *testing.T) {
	t.Parallel()

	src := &fakeSource{rows: placeRows()}

	gc := &fakeGeocoder{res: &geocode.Result{Matched: false}}
	pi := NewPlaceIndex(src, gc, 0, 0)
	p, err := pi.Resolve(context.Background(), "nowhere-vermont")
	require.NoError(t, err)
	assert.Nil(t, p)

	gc = &fakeGeocoder{err: errors.New("nominatim: status 503")}
	pi = NewPlaceIndex(src, gc, 0, 0)
	p, err = pi.Resolve(context.Background(), "nowhere-vermont")
	require.NoError(t, err, "a geocoder outage reads as not found")
	assert.Nil(t, p)
}

func TestPlaceIndexTop(t *testing.T) {
	t.Parallel()

	rows := []model.Restroom{
		row(1, "A", "1 St, Boston, MA", "02101", 42.35, -71.06),
		row(2, "B", "2 St, Boston, MA", "02101", 42.36, -71.05),
		row(3, "C", "3 St, Cambridge, MA", "02139", 42.37, -71.10),
		row(4, "D", "4 St, Worcester, MA", "01601", 42.26, -71.80),
		row(5, "E", "5 St, Worcester, MA", "01601", 42.27, -71.81),
		row(6, "F", "6 St, Worcester, MA", "01601", 42.28, -71.79),
	}
	pi := NewPlaceIndex(&fakeSource{rows: rows}, nil, 0, 0)

	top, err := pi.Top(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Worcester, MA", top[0].Name)
	assert.Equal(t, 3, top[0].Members)
	assert.Equal(t, "Boston, MA", top[1].Name)
}
