// Package query answers the read-side lookups behind the map client:
// viewport (bounding-box) scans, nearest-first center searches, and named
// place resolution through a cached city/state index. It never writes to
// the store.
package query

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/restroom-access/restroom-cli/internal/address"
	"github.com/restroom-access/restroom-cli/internal/model"
	"github.com/restroom-access/restroom-cli/pkg/geocode"
)

// Source is the slice of the store the query engine reads.
type Source interface {
	ListLocated(ctx context.Context) ([]model.Restroom, error)
	ListWithinBounds(ctx context.Context, minLat, minLon, maxLat, maxLon float64, limit int) ([]model.Restroom, error)
}

// Geocoder resolves place names when the slug index misses.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*geocode.Result, error)
}

const (
	defaultBBoxLimit   = 25000
	defaultNearbyLimit = 2000
	defaultPlaceTTL    = 300 * time.Second
	defaultMatchCap    = 12

	metersPerMile = 1609.344
)

// Config tunes result caps and fallbacks. Zero values use the defaults
// above; the default center is downtown Boston, the heart of the original
// dataset.
type Config struct {
	BBoxLimit   int
	NearbyLimit int
	DefaultLat  float64
	DefaultLon  float64
	PlaceTTL    time.Duration
	MatchCap    int
}

func (c Config) withDefaults() Config {
	if c.BBoxLimit <= 0 {
		c.BBoxLimit = defaultBBoxLimit
	}
	if c.NearbyLimit <= 0 {
		c.NearbyLimit = defaultNearbyLimit
	}
	if c.PlaceTTL <= 0 {
		c.PlaceTTL = defaultPlaceTTL
	}
	if c.MatchCap <= 0 {
		c.MatchCap = defaultMatchCap
	}
	if c.DefaultLat == 0 && c.DefaultLon == 0 {
		c.DefaultLat, c.DefaultLon = 42.3601, -71.0589
	}
	return c
}

// Location is one restroom as served to clients. The address carries a
// state whenever one is derivable, regardless of what is stored.
type Location struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Zip        string   `json:"zip"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Hours      string   `json:"hours,omitempty"`
	Remarks    string   `json:"remarks,omitempty"`
	DistanceMi *float64 `json:"distance_mi,omitempty"`
}

// BBox is a viewport in geographic coordinates with MinLat <= MaxLat and
// MinLon <= MaxLon.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// NewBBox builds a normalized box from any two opposite corners, so a
// client may send them in whichever order its map library produces.
func NewBBox(lat1, lon1, lat2, lon2 float64) BBox {
	return BBox{
		MinLat: math.Min(lat1, lat2),
		MinLon: math.Min(lon1, lon2),
		MaxLat: math.Max(lat1, lat2),
		MaxLon: math.Max(lon1, lon2),
	}
}

// Engine answers read-only spatial queries over the restroom set.
type Engine struct {
	store  Source
	cfg    Config
	places *PlaceIndex
}

// New creates an Engine. The geocoder may be nil, which disables the
// place-resolution network fallback but nothing else.
func New(store Source, geocoder Geocoder, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		store:  store,
		cfg:    cfg,
		places: NewPlaceIndex(store, geocoder, cfg.PlaceTTL, cfg.MatchCap),
	}
}

// Places exposes the engine's place index.
func (e *Engine) Places() *PlaceIndex {
	return e.places
}

// WithinBounds returns every located restroom inside the box, capped at
// the configured viewport limit. No ordering is applied; at viewport scale
// the client draws all of them anyway.
func (e *Engine) WithinBounds(ctx context.Context, b BBox) ([]Location, error) {
	rs, err := e.store.ListWithinBounds(ctx, b.MinLat, b.MinLon, b.MaxLat, b.MaxLon, e.cfg.BBoxLimit)
	if err != nil {
		return nil, eris.Wrap(err, "query: within bounds")
	}

	out := make([]Location, 0, len(rs))
	for i := range rs {
		r := &rs[i]
		if !r.HasCoordinates() {
			continue
		}
		lat, lon := r.Coords()
		if !model.ValidCoordinates(lat, lon) {
			continue
		}
		out = append(out, toLocation(r, nil))
	}
	return out, nil
}

// Nearby returns located restrooms ordered by great-circle distance from
// the center, capped at the configured limit. Nil components fall back to
// the default center.
func (e *Engine) Nearby(ctx context.Context, lat, lon *float64) ([]Location, error) {
	centerLat, centerLon := e.cfg.DefaultLat, e.cfg.DefaultLon
	if lat != nil && lon != nil && model.ValidCoordinates(*lat, *lon) {
		centerLat, centerLon = *lat, *lon
	}

	rs, err := e.store.ListLocated(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "query: nearby")
	}

	out := make([]Location, 0, len(rs))
	for i := range rs {
		r := &rs[i]
		rLat, rLon := r.Coords()
		if !model.ValidCoordinates(rLat, rLon) {
			continue
		}
		mi := Haversine(centerLat, centerLon, rLat, rLon) / metersPerMile
		out = append(out, toLocation(r, &mi))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].DistanceMi < *out[j].DistanceMi
	})
	if len(out) > e.cfg.NearbyLimit {
		out = out[:e.cfg.NearbyLimit]
	}
	return out, nil
}

// NearbyPlace resolves a place slug and runs a center search from its
// centroid. A slug that resolves to nothing returns (nil, nil, nil).
func (e *Engine) NearbyPlace(ctx context.Context, slug string) (*Place, []Location, error) {
	place, err := e.places.Resolve(ctx, slug)
	if err != nil || place == nil {
		return nil, nil, err
	}
	locs, err := e.Nearby(ctx, &place.Latitude, &place.Longitude)
	if err != nil {
		return nil, nil, err
	}
	return place, locs, nil
}

// toLocation converts a stored record into the client shape, repairing the
// display address on the way out. The repair is never written back.
func toLocation(r *model.Restroom, distanceMi *float64) Location {
	lat, lon := r.Coords()
	return Location{
		ID:         r.ID,
		Name:       r.Name,
		Address:    address.EnsureStateInAddress(r.Address, r.Zip),
		Zip:        r.Zip,
		Latitude:   lat,
		Longitude:  lon,
		Hours:      r.Hours,
		Remarks:    r.Remarks,
		DistanceMi: distanceMi,
	}
}

// Haversine returns the great-circle distance between two points in
// meters, using the mean Earth radius.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusM = 6371000

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
