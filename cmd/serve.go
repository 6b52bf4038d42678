package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/restroom-access/restroom-cli/internal/query"
	"github.com/restroom-access/restroom-cli/pkg/geocode"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only restroom API",
	Long:  "Starts the JSON API: bounding-box and center searches over the directory plus place lookup backed by the cached place index.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		// Place-slug misses would otherwise re-geocode on every request.
		gc := initGeocoder(geocode.WithCache(512, 24*time.Hour))

		engine := query.New(st, gc, query.Config{
			BBoxLimit:   cfg.Query.BBoxLimit,
			NearbyLimit: cfg.Query.NearbyLimit,
			DefaultLat:  cfg.Query.DefaultLat,
			DefaultLon:  cfg.Query.DefaultLon,
			PlaceTTL:    cfg.Query.PlaceTTL(),
			MatchCap:    cfg.Query.PlaceMatchCap,
		})

		return startServer(ctx, buildRouter(engine), resolvePort(servePort, cfg.Server.Port))
	},
}

// buildRouter assembles the read-only JSON API over the query engine.
func buildRouter(eng *query.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/restrooms", handleBBox(eng))
		r.Get("/restrooms/nearby", handleNearby(eng))
		r.Get("/places", handlePlaces(eng))
		r.Get("/places/{slug}/restrooms", handlePlaceRestrooms(eng))
	})

	return r
}

type restroomsResponse struct {
	Place     *query.Place     `json:"place,omitempty"`
	Count     int              `json:"count"`
	Restrooms []query.Location `json:"restrooms"`
}

type placesResponse struct {
	Count  int           `json:"count"`
	Places []query.Place `json:"places"`
}

func handleBBox(eng *query.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		corners := make([]float64, 0, 4)
		for _, name := range []string{"min_lat", "min_lon", "max_lat", "max_lon"} {
			raw := q.Get(name)
			if raw == "" {
				writeError(w, http.StatusBadRequest, name+" is required")
				return
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid "+name)
				return
			}
			corners = append(corners, v)
		}

		locs, err := eng.WithinBounds(r.Context(), query.NewBBox(corners[0], corners[1], corners[2], corners[3]))
		if err != nil {
			zap.L().Error("server: bbox query failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		writeJSON(w, http.StatusOK, restroomsResponse{Count: len(locs), Restrooms: locs})
	}
}

func handleNearby(eng *query.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		locs, err := eng.Nearby(r.Context(), parseCoord(q.Get("latitude")), parseCoord(q.Get("longitude")))
		if err != nil {
			zap.L().Error("server: nearby query failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		writeJSON(w, http.StatusOK, restroomsResponse{Count: len(locs), Restrooms: locs})
	}
}

func handlePlaces(eng *query.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matches, err := eng.Places().Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			zap.L().Error("server: place search failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		if matches == nil {
			matches = []query.Place{}
		}
		writeJSON(w, http.StatusOK, placesResponse{Count: len(matches), Places: matches})
	}
}

func handlePlaceRestrooms(eng *query.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		place, locs, err := eng.NearbyPlace(r.Context(), slug)
		if err != nil {
			zap.L().Error("server: place query failed", zap.String("slug", slug), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		if place == nil {
			writeError(w, http.StatusNotFound, "unknown place")
			return
		}
		writeJSON(w, http.StatusOK, restroomsResponse{Place: place, Count: len(locs), Restrooms: locs})
	}
}

// parseCoord returns nil for absent or malformed values; the engine then
// falls back to the configured default center.
func parseCoord(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// resolvePort prefers the flag value over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server: shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("server: listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
