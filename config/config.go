package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the CLI and the HTTP service.
type Config struct {
	// Routing
	WalkingSpeed float64 // m/s
	BusSpeed     float64 // m/s
	WaitPenalty  time.Duration
	Workers      int

	// Datasets. Paths, file:// or http(s) URLs.
	RoutesSource     string
	StopsSource      string
	StreetsSource    string
	ScreeningsSource string
	Timezone         *time.Location

	// Downloads. An empty DownloadCache keeps fetched datasets in
	// memory only.
	DownloadCache   string
	DownloadTTL     time.Duration
	RefreshInterval time.Duration

	// Graph cache
	CacheBackend    string
	CacheDir        string
	CacheName       string
	PostgresConnStr string

	// HTTP
	ListenAddr string
}

var cacheBackends = map[string]bool{
	"memory":   true,
	"file":     true,
	"sqlite":   true,
	"postgres": true,
}

// Load reads configuration from environment variables with sensible
// defaults. Any given env files are loaded first. Missing env files
// are ignored, and variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var err error
	cfg := &Config{
		RoutesSource:     getEnv("CINEBUS_ROUTES", "data/busRoutes.json"),
		StopsSource:      getEnv("CINEBUS_STOPS", "data/busStops.json"),
		StreetsSource:    getEnv("CINEBUS_STREETS", "data/streets.json"),
		ScreeningsSource: getEnv("CINEBUS_SCREENINGS", "data/screenings.csv"),

		DownloadCache: getEnv("CINEBUS_DOWNLOAD_CACHE", ""),

		CacheBackend:    getEnv("CINEBUS_CACHE_BACKEND", "file"),
		CacheDir:        getEnv("CINEBUS_CACHE_DIR", ".cinebus"),
		CacheName:       getEnv("CINEBUS_CACHE_NAME", "barcelona"),
		PostgresConnStr: getEnv("CINEBUS_POSTGRES", ""),

		ListenAddr: getEnv("CINEBUS_LISTEN", ":8080"),
	}

	if cfg.WalkingSpeed, err = getEnvFloat("CINEBUS_WALKING_SPEED", 1.4); err != nil {
		return nil, err
	}
	if cfg.BusSpeed, err = getEnvFloat("CINEBUS_BUS_SPEED", 30.0*1000/3600); err != nil {
		return nil, err
	}
	if cfg.WaitPenalty, err = getEnvDuration("CINEBUS_WAIT_PENALTY", 3*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DownloadTTL, err = getEnvDuration("CINEBUS_DOWNLOAD_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getEnvDuration("CINEBUS_REFRESH_INTERVAL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getEnvInt("CINEBUS_WORKERS", 8); err != nil {
		return nil, err
	}

	tz := getEnv("CINEBUS_TIMEZONE", "Europe/Madrid")
	if cfg.Timezone, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("CINEBUS_TIMEZONE: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Checks values that would otherwise fail deep inside graph
// construction.
func (c *Config) Validate() error {
	if c.WalkingSpeed <= 0 {
		return fmt.Errorf("walking speed must be positive, got %f", c.WalkingSpeed)
	}
	if c.BusSpeed <= 0 {
		return fmt.Errorf("bus speed must be positive, got %f", c.BusSpeed)
	}
	if c.WaitPenalty < 0 {
		return fmt.Errorf("wait penalty can't be negative, got %s", c.WaitPenalty)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if !cacheBackends[c.CacheBackend] {
		return fmt.Errorf("unknown cache backend '%s'", c.CacheBackend)
	}
	if c.CacheBackend == "postgres" && c.PostgresConnStr == "" {
		return fmt.Errorf("postgres cache backend requires CINEBUS_POSTGRES")
	}
	if c.CacheName == "" {
		return fmt.Errorf("cache name can't be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
