// Package overpass looks up OpenStreetMap opening_hours tags near a
// coordinate through the Overpass API. Lookups are throttled to stay
// within the public instance's fair-use expectations.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client finds opening hours for points of interest near a coordinate.
type Client interface {
	// NearbyHours returns the first usable opening_hours value within the
	// configured radius of (lat, lon). Finding nothing is not an error.
	NearbyHours(ctx context.Context, lat, lon float64) (*Result, error)
}

// Result holds one lookup's outcome. Reason is set when Found is false:
// "no_elements" when nothing tagged was nearby, "no_usable_tag" when tags
// existed but none looked like real hours text.
type Result struct {
	Hours  string
	Found  bool
	Reason string
}

// Option configures the client.
type Option func(*client)

// WithBaseURL points the client at a different Overpass interpreter.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithRadius sets the search radius in meters.
func WithRadius(meters int) Option {
	return func(c *client) {
		c.radius = meters
	}
}

// WithMinInterval spaces successive requests at least d apart.
func WithMinInterval(d time.Duration) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithTimeout sets the Overpass server-side timeout in seconds; the HTTP
// client allows a little extra on top of it.
func WithTimeout(secs int) Option {
	return func(c *client) {
		c.timeoutSecs = secs
		c.httpClient.Timeout = time.Duration(secs+2) * time.Second
	}
}

type client struct {
	baseURL     string
	userAgent   string
	radius      int
	timeoutSecs int
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewClient creates an Overpass client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:     "https://overpass-api.de/api/interpreter",
		userAgent:   "restroom-cli/1.0",
		radius:      80,
		timeoutSecs: 5,
		httpClient:  &http.Client{Timeout: 7 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(1050*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// overpassResponse is the Overpass JSON envelope; only tags matter here.
type overpassResponse struct {
	Elements []struct {
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// numericOnly rejects tag values that are survey codes, not hours text.
var numericOnly = regexp.MustCompile(`^[\d\s,.]+$`)

func (c *client) NearbyHours(ctx context.Context, lat, lon float64) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limit")
	}

	latS := strconv.FormatFloat(lat, 'f', -1, 64)
	lonS := strconv.FormatFloat(lon, 'f', -1, 64)
	query := fmt.Sprintf(
		"[out:json][timeout:%d];(node(around:%d,%s,%s)[opening_hours];way(around:%d,%s,%s)[opening_hours];);out body tags;",
		c.timeoutSecs, c.radius, latS, lonS, c.radius, latS, lonS,
	)

	reqURL := c.baseURL + "?" + url.Values{"data": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("overpass: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read body")
	}

	var parsed overpassResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "overpass: parse response")
	}

	if len(parsed.Elements) == 0 {
		return &Result{Reason: "no_elements"}, nil
	}

	for _, el := range parsed.Elements {
		hrs := el.Tags["opening_hours"]
		if hrs == "" {
			hrs = el.Tags["opening_hours:source"]
		}
		if len(hrs) > 3 && !numericOnly.MatchString(strings.TrimSpace(hrs)) {
			return &Result{Hours: strings.TrimSpace(hrs), Found: true}, nil
		}
	}

	return &Result{Reason: "no_usable_tag"}, nil
}
