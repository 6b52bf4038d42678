package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/restroom-access/restroom-cli/internal/store"
	"github.com/restroom-access/restroom-cli/pkg/geocode"
	"github.com/restroom-access/restroom-cli/pkg/overpass"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "restrooms.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initGeocoder(opts ...geocode.Option) geocode.Client {
	base := []geocode.Option{
		geocode.WithBaseURL(cfg.Geocoder.BaseURL),
		geocode.WithUserAgent(cfg.Geocoder.UserAgent),
		geocode.WithRateLimit(cfg.Geocoder.RatePerSec),
		geocode.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Geocoder.TimeoutSecs) * time.Second,
		}),
	}
	return geocode.NewClient(append(base, opts...)...)
}

func initOverpass() overpass.Client {
	return overpass.NewClient(
		overpass.WithBaseURL(cfg.Overpass.BaseURL),
		overpass.WithUserAgent(cfg.Overpass.UserAgent),
		overpass.WithRadius(cfg.Overpass.RadiusMeters),
		overpass.WithMinInterval(time.Duration(cfg.Overpass.MinIntervalSecs*float64(time.Second))),
		overpass.WithTimeout(cfg.Overpass.TimeoutSecs),
	)
}
