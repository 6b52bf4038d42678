// Package geocode provides forward geocoding via the OpenStreetMap
// Nominatim API. Nominatim's usage policy caps anonymous clients at one
// request per second and requires an identifying User-Agent; the client
// enforces both by default.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client resolves free-text location queries to coordinates.
type Client interface {
	// Geocode resolves a single query like "123 Main St, Belmont, MA" or
	// "Belmont, MA". An unmatched query is not an error.
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Result holds the geocoding output for a query.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Matched     bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithBaseURL points the client at a different Nominatim endpoint, such as
// a self-hosted instance or a test server.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithCache caches results per query string, keeping repeated lookups of
// the same place off the network.
func WithCache(maxEntries int, ttl time.Duration) Option {
	return func(g *geocoder) {
		g.cache = newQueryCache(maxEntries, ttl)
	}
}

type geocoder struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *queryCache
}

// NewClient creates a geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		baseURL:    "https://nominatim.openstreetmap.org",
		userAgent:  "restroom-cli/1.0",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode resolves a query, consulting the cache first when configured.
// Cached non-matches are served too, so a known-bad query is not retried
// until its entry expires.
func (g *geocoder) Geocode(ctx context.Context, query string) (*Result, error) {
	if g.cache != nil {
		if r, ok := g.cache.get(query); ok {
			return r, nil
		}
	}

	r, err := g.search(ctx, query)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		g.cache.put(query, r)
	}
	return r, nil
}
