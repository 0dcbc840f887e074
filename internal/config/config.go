// Package config loads service configuration from defaults, an optional
// YAML file and environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/neexbeast/cafe-swipe/internal/cafe"
)

// PathEnvVar overrides where the YAML config file is read from.
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths are searched in order when PathEnvVar is unset.
var DefaultPaths = []string{"config.yaml", "config.yml"}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Auth     AuthConfig     `koanf:"auth"`
	Google   GoogleConfig   `koanf:"google"`
	Search   SearchConfig   `koanf:"search"`
	Session  SessionConfig  `koanf:"session"`
	CORS     CORSConfig     `koanf:"cors"`
}

// ServerConfig controls the HTTP listener and per-IP rate limit.
type ServerConfig struct {
	Port               string `koanf:"port" validate:"required,numeric"`
	RateLimitPerMinute int    `koanf:"rate_limit_per_minute" validate:"gte=1"`
}

// DatabaseConfig holds the PostgreSQL connection URL for favorites.
type DatabaseConfig struct {
	URL string `koanf:"url" validate:"required"`
}

// RedisConfig holds the Redis connection URL for sessions.
type RedisConfig struct {
	URL string `koanf:"url" validate:"required"`
}

// AuthConfig holds the static bearer token required by the API.
type AuthConfig struct {
	BearerToken string `koanf:"bearer_token" validate:"required"`
}

// GoogleConfig holds the key for the Places, Geocoding and photo APIs.
// It stays server-side.
type GoogleConfig struct {
	APIKey string `koanf:"api_key" validate:"required"`
}

// SearchConfig controls the tiered nearby search and the fallback location.
type SearchConfig struct {
	RadiiMeters      []int   `koanf:"radii_meters" validate:"required,min=1,dive,gt=0,lte=50000"`
	MaxPerTier       int     `koanf:"max_per_tier" validate:"gte=1,lte=20"`
	DefaultLatitude  float64 `koanf:"default_latitude" validate:"gte=-90,lte=90"`
	DefaultLongitude float64 `koanf:"default_longitude" validate:"gte=-180,lte=180"`
	DefaultLabel     string  `koanf:"default_label" validate:"required"`
}

// FetcherOptions converts the search settings for cafe.NewFetcher.
func (s SearchConfig) FetcherOptions() cafe.Options {
	return cafe.Options{
		Radii:         append([]int(nil), s.RadiiMeters...),
		MaxPerTier:    s.MaxPerTier,
		DefaultCenter: &cafe.LatLng{Latitude: s.DefaultLatitude, Longitude: s.DefaultLongitude},
		DefaultLabel:  s.DefaultLabel,
	}
}

// SessionConfig controls how long a search session stays swipeable.
type SessionConfig struct {
	TTL time.Duration `koanf:"ttl" validate:"gt=0"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               "8080",
			RateLimitPerMinute: 60,
		},
		Search: SearchConfig{
			RadiiMeters:      []int{5000, 10000, 15000},
			MaxPerTier:       20,
			DefaultLatitude:  28.6139,
			DefaultLongitude: 77.2090,
			DefaultLabel:     "Delhi",
		},
		Session: SessionConfig{TTL: 2 * time.Hour},
		CORS:    CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

var envMappings = map[string]string{
	"port":                   "server.port",
	"rate_limit_per_minute":  "server.rate_limit_per_minute",
	"database_url":           "database.url",
	"redis_url":              "redis.url",
	"bearer_token":           "auth.bearer_token",
	"google_maps_api_key":    "google.api_key",
	"search_radii":           "search.radii_meters",
	"search_max_per_tier":    "search.max_per_tier",
	"default_latitude":       "search.default_latitude",
	"default_longitude":      "search.default_longitude",
	"default_location_label": "search.default_label",
	"session_ttl":            "session.ttl",
	"cors_allowed_origins":   "cors.allowed_origins",
}

// envTransformFunc maps known environment variables to config paths.
// Unknown variables map to "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{"search.radii_meters", "cors.allowed_origins"}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("setting %s: %w", path, err)
		}
	}
	return nil
}

// Load builds the configuration: defaults, then the YAML file if one is
// found, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required settings and ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
