package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Geocoder GeocoderConfig `yaml:"geocoder" mapstructure:"geocoder"`
	Overpass OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Import   ImportConfig   `yaml:"import" mapstructure:"import"`
	Query    QueryConfig    `yaml:"query" mapstructure:"query"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// GeocoderConfig configures the Nominatim forward-geocoding client.
type GeocoderConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OverpassConfig configures the OSM Overpass opening-hours lookup.
type OverpassConfig struct {
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent       string  `yaml:"user_agent" mapstructure:"user_agent"`
	RadiusMeters    int     `yaml:"radius_meters" mapstructure:"radius_meters"`
	MinIntervalSecs float64 `yaml:"min_interval_secs" mapstructure:"min_interval_secs"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ImportConfig configures file ingestion behavior.
type ImportConfig struct {
	GeocodeMissing bool   `yaml:"geocode_missing" mapstructure:"geocode_missing"`
	ErrorPreview   int    `yaml:"error_preview" mapstructure:"error_preview"`
	MappingFile    string `yaml:"mapping_file" mapstructure:"mapping_file"`
}

// QueryConfig configures the read-side query engine.
type QueryConfig struct {
	BBoxLimit     int     `yaml:"bbox_limit" mapstructure:"bbox_limit"`
	NearbyLimit   int     `yaml:"nearby_limit" mapstructure:"nearby_limit"`
	PlaceTTLSecs  int     `yaml:"place_ttl_secs" mapstructure:"place_ttl_secs"`
	DefaultLat    float64 `yaml:"default_lat" mapstructure:"default_lat"`
	DefaultLon    float64 `yaml:"default_lon" mapstructure:"default_lon"`
	PlaceMatchCap int     `yaml:"place_match_cap" mapstructure:"place_match_cap"`
}

// PlaceTTL returns the place-index TTL as a duration.
func (q QueryConfig) PlaceTTL() time.Duration {
	return time.Duration(q.PlaceTTLSecs) * time.Second
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty path searches
// the working directory for restroom-cli.yaml; a missing search file is fine,
// a missing explicit file is not.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("restroom-cli")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("RESTROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "restrooms.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "restroom-cli/1.0")
	v.SetDefault("geocoder.rate_per_sec", 1.0)
	v.SetDefault("geocoder.timeout_secs", 10)
	v.SetDefault("overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.user_agent", "restroom-cli/1.0")
	v.SetDefault("overpass.radius_meters", 80)
	v.SetDefault("overpass.min_interval_secs", 1.05)
	v.SetDefault("overpass.timeout_secs", 5)
	v.SetDefault("import.geocode_missing", true)
	v.SetDefault("import.error_preview", 20)
	v.SetDefault("query.bbox_limit", 25000)
	v.SetDefault("query.nearby_limit", 2000)
	v.SetDefault("query.place_ttl_secs", 300)
	v.SetDefault("query.place_match_cap", 12)
	v.SetDefault("query.default_lat", 42.3601)
	v.SetDefault("query.default_lon", -71.0589)

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if path != "" || !notFound {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration needed by a command mode. Problems are
// collected so the operator sees everything wrong at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
		problems = append(problems, fmt.Sprintf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for the postgres driver")
	}

	switch mode {
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			problems = append(problems, fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port))
		}
		if c.Query.BBoxLimit < 1 || c.Query.NearbyLimit < 1 {
			problems = append(problems, "query.bbox_limit and query.nearby_limit must be positive")
		}
		if c.Query.PlaceTTLSecs < 1 {
			problems = append(problems, "query.place_ttl_secs must be positive")
		}
	case "import":
		if c.Import.ErrorPreview < 0 {
			problems = append(problems, "import.error_preview cannot be negative")
		}
		if c.Import.GeocodeMissing && c.Geocoder.UserAgent == "" {
			problems = append(problems, "geocoder.user_agent is required when import.geocode_missing is set")
		}
	case "clean":
		if c.Overpass.RadiusMeters < 1 {
			problems = append(problems, "overpass.radius_meters must be positive")
		}
		if c.Overpass.MinIntervalSecs < 0 {
			problems = append(problems, "overpass.min_interval_secs cannot be negative")
		}
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
