package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/warming-map/internal/dataset"
)

type AppConfig struct {
	Port string `validate:"required,numeric"`

	// DataDir holds the ERA5 NetCDF files; DataVariable is the temperature variable in them.
	DataDir      string `validate:"required"`
	DataVariable string `validate:"required"`
	PolicyDir    string `validate:"required"`

	// CacheSize bounds each in-process memo (fields, renders, points).
	CacheSize int `validate:"gte=1"`
	// RedisURL enables a shared second cache tier when set.
	RedisURL string        `validate:"omitempty,url"`
	CacheTTL time.Duration `validate:"gte=0"`

	// Session retention (0 = unlimited).
	SessionMaxAge   time.Duration `validate:"gte=0"`
	SessionMaxCount int           `validate:"gte=0"`

	// WarmInterval controls how often the scheduler warms caches and sweeps sessions.
	WarmInterval time.Duration `validate:"gte=1m"`

	SeriesFrom   int `validate:"gte=1900"`
	SeriesTo     int `validate:"gtefield=SeriesFrom"`
	DefaultAlpha int `validate:"gte=0,lte=255"`

	BasemapURL     string        `validate:"omitempty,url"`
	BasemapTTL     time.Duration `validate:"gte=0"`
	GeocoderAPIKey string
	HTTPTimeout    time.Duration `validate:"gt=0"`

	LogLevel        string        `validate:"oneof=debug info warn warning error"`
	LogFormat       string        `validate:"oneof=json text"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv builds and validates an AppConfig from the current environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:            getenvDefault("PORT", "8080"),
		DataDir:         getenvDefault("DATA_DIR", "data"),
		DataVariable:    getenvDefault("DATA_VARIABLE", dataset.DefaultVariable),
		PolicyDir:       getenvDefault("POLICY_DIR", "policies"),
		CacheSize:       getenvInt("CACHE_SIZE", 64),
		RedisURL:        os.Getenv("REDIS_URL"),
		SessionMaxCount: getenvInt("SESSION_MAX_COUNT", 10000),
		SeriesFrom:      getenvInt("SERIES_FROM", 1940),
		SeriesTo:        getenvInt("SERIES_TO", 2024),
		DefaultAlpha:    getenvInt("DEFAULT_ALPHA", 190),
		BasemapURL:      os.Getenv("BASEMAP_URL"),
		GeocoderAPIKey:  os.Getenv("GEOCODER_API_KEY"),
		LogLevel:        getenvDefault("LOG_LEVEL", "info"),
		LogFormat:       getenvDefault("LOG_FORMAT", "json"),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"CACHE_TTL", "24h", &cfg.CacheTTL},
		{"SESSION_MAX_AGE", "2h", &cfg.SessionMaxAge},
		{"WARM_INTERVAL", "30m", &cfg.WarmInterval},
		{"BASEMAP_TTL", "6h", &cfg.BasemapTTL},
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"SHUTDOWN_TIMEOUT", "10s", &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
