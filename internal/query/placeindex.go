package query

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/restroom-access/restroom-cli/internal/address"
	"github.com/restroom-access/restroom-cli/internal/model"
)

// Place is one entry of the city/state index: a display name, an optional
// URL slug, and the centroid of the member records.
type Place struct {
	Name      string  `json:"name"`
	Slug      string  `json:"slug,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Members   int     `json:"members,omitempty"`
}

// placeSnapshot is one immutable build of the index. Readers share a
// snapshot; rebuilds construct a fresh one and swap the pointer.
type placeSnapshot struct {
	builtAt time.Time
	byName  map[string]Place
	bySlug  map[string]Place
	names   []string // display names, sorted
}

// PlaceIndex caches the city/state aggregation of the record set with a
// TTL. Expired reads trigger a rebuild; concurrent triggers collapse to a
// single builder and everyone gets its result.
type PlaceIndex struct {
	source   Source
	geocoder Geocoder
	ttl      time.Duration
	matchCap int

	now   func() time.Time
	snap  atomic.Pointer[placeSnapshot]
	group singleflight.Group
}

// NewPlaceIndex creates a PlaceIndex over the given record source. The
// geocoder may be nil to disable the slug-miss network fallback.
func NewPlaceIndex(source Source, geocoder Geocoder, ttl time.Duration, matchCap int) *PlaceIndex {
	if ttl <= 0 {
		ttl = defaultPlaceTTL
	}
	if matchCap <= 0 {
		matchCap = defaultMatchCap
	}
	return &PlaceIndex{
		source:   source,
		geocoder: geocoder,
		ttl:      ttl,
		matchCap: matchCap,
		now:      time.Now,
	}
}

// Invalidate drops the current snapshot so the next read rebuilds.
func (pi *PlaceIndex) Invalidate() {
	pi.snap.Store(nil)
}

// Search returns up to the configured cap of places whose display name
// contains q, case-insensitively. Prefix matches rank ahead of interior
// matches; each band is in name order.
func (pi *PlaceIndex) Search(ctx context.Context, q string) ([]Place, error) {
	s, err := pi.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(q))
	var prefix, interior []Place
	for _, name := range s.names {
		ln := strings.ToLower(name)
		switch {
		case strings.HasPrefix(ln, needle):
			prefix = append(prefix, s.byName[name])
		case needle != "" && strings.Contains(ln, needle):
			interior = append(interior, s.byName[name])
		}
		if len(prefix) >= pi.matchCap {
			break
		}
	}

	matches := append(prefix, interior...)
	if len(matches) > pi.matchCap {
		matches = matches[:pi.matchCap]
	}
	return matches, nil
}

// Resolve looks a place slug up in the index, falling back to geocoding
// the parsed city/state on a miss. An unrecognized slug, a geocoder miss,
// or a geocoder failure all resolve to (nil, nil): not found.
func (pi *PlaceIndex) Resolve(ctx context.Context, slug string) (*Place, error) {
	s, err := pi.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(strings.TrimSpace(slug))
	if p, ok := s.bySlug[key]; ok {
		return &p, nil
	}

	// Geocode only slugs that parse to a city plus a recognized state, so
	// arbitrary request paths never turn into upstream queries.
	city, state, ok := address.ParseCitySlug(key)
	if !ok || pi.geocoder == nil {
		return nil, nil
	}
	res, err := pi.geocoder.Geocode(ctx, city+", "+state)
	if err != nil {
		zap.L().Warn("query: place geocode failed",
			zap.String("slug", key),
			zap.Error(err))
		return nil, nil
	}
	if !res.Matched {
		return nil, nil
	}
	return &Place{
		Name:      city + ", " + state,
		Slug:      address.CitySlug(city, state),
		Latitude:  res.Latitude,
		Longitude: res.Longitude,
	}, nil
}

// Top returns up to n places ordered by member count, largest first, then
// by name.
func (pi *PlaceIndex) Top(ctx context.Context, n int) ([]Place, error) {
	s, err := pi.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(s.names))
	for _, name := range s.names {
		places = append(places, s.byName[name])
	}
	sort.SliceStable(places, func(i, j int) bool {
		return places[i].Members > places[j].Members
	})
	if n > 0 && len(places) > n {
		places = places[:n]
	}
	return places, nil
}

// snapshot returns a fresh-enough snapshot, rebuilding when the cached one
// is absent or expired. Concurrent rebuild triggers share one build.
func (pi *PlaceIndex) snapshot(ctx context.Context) (*placeSnapshot, error) {
	if s := pi.snap.Load(); s != nil && pi.now().Sub(s.builtAt) < pi.ttl {
		return s, nil
	}

	v, err, _ := pi.group.Do("rebuild", func() (any, error) {
		// A rebuild may have finished while this caller queued.
		if s := pi.snap.Load(); s != nil && pi.now().Sub(s.builtAt) < pi.ttl {
			return s, nil
		}
		s, err := pi.build(ctx)
		if err != nil {
			return nil, err
		}
		pi.snap.Store(s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*placeSnapshot), nil
}

// build aggregates every located record into per-(city, state) centroids.
func (pi *PlaceIndex) build(ctx context.Context) (*placeSnapshot, error) {
	rs, err := pi.source.ListLocated(ctx)
	if err != nil {
		return nil, err
	}

	type accum struct {
		city, state    string
		sumLat, sumLon float64
		n              int
	}
	acc := make(map[string]*accum)
	for i := range rs {
		r := &rs[i]
		lat, lon := r.Coords()
		if !model.ValidCoordinates(lat, lon) {
			continue
		}
		if lat == 0 && lon == 0 {
			// (0, 0) marks a failed geocode, not a location.
			continue
		}
		city, state := address.ParseCityState(r.Address, r.Zip)
		if city == "" {
			continue
		}
		key := strings.ToLower(city) + "\x00" + state
		a := acc[key]
		if a == nil {
			a = &accum{city: city, state: state}
			acc[key] = a
		}
		a.sumLat += lat
		a.sumLon += lon
		a.n++
	}

	s := &placeSnapshot{
		builtAt: pi.now(),
		byName:  make(map[string]Place, len(acc)),
		bySlug:  make(map[string]Place, len(acc)),
	}
	for _, a := range acc {
		name := address.TitleCase(a.city)
		if a.state != "" {
			name += ", " + a.state
		}
		p := Place{
			Name:      name,
			Latitude:  model.Round6(a.sumLat / float64(a.n)),
			Longitude: model.Round6(a.sumLon / float64(a.n)),
			Members:   a.n,
		}
		if slug := address.CitySlug(a.city, a.state); slug != "" {
			p.Slug = slug
			s.bySlug[slug] = p
		}
		s.byName[name] = p
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)

	zap.L().Debug("query: place index rebuilt",
		zap.Int("records", len(rs)),
		zap.Int("places", len(s.names)))
	return s, nil
}
