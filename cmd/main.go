package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cinebus "github.com/PDelos/CineBus-AP2"
	"github.com/PDelos/CineBus-AP2/config"
	"github.com/PDelos/CineBus-AP2/downloader"
	"github.com/PDelos/CineBus-AP2/model"
	"github.com/PDelos/CineBus-AP2/parse"
	"github.com/PDelos/CineBus-AP2/storage"
)

var rootCmd = &cobra.Command{
	Use:          "cinebus",
	Short:        "CineBus",
	Long:         "Finds the earliest film screening reachable on foot and by bus",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		return err
	},
}

var (
	envFile string
	headers []string

	cfg *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFile, "env", "", ".env", "Environment file")
	rootCmd.PersistentFlags().StringSliceVarP(
		&headers,
		"header",
		"",
		[]string{},
		"HTTP header sent when fetching datasets",
	)
}

func setupLogging() {
	if os.Getenv("CINEBUS_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if os.Getenv("CINEBUS_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}
}

func main() {
	setupLogging()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseHeaders(headers []string) (map[string]string, error) {
	parsed := map[string]string{}
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("'%s' is not on form <key>:<value>", header)
		}
		parsed[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return parsed, nil
}

// Parses a "lon,lat" argument.
func parseCoordinate(value string) (orb.Point, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("'%s' is not on form <lon>,<lat>", value)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid lon: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid lat: %w", err)
	}
	return orb.Point{lon, lat}, nil
}

func openStorage() (storage.Storage, error) {
	switch cfg.CacheBackend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "file":
		return storage.NewFileStorage(cfg.CacheDir)
	case "sqlite":
		if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", cfg.CacheDir, err)
		}
		return storage.NewSQLiteStorage(storage.SQLiteConfig{OnDisk: true, Directory: cfg.CacheDir})
	case "postgres":
		return storage.NewPSQLStorage(cfg.PostgresConnStr, false)
	}
	return nil, fmt.Errorf("unknown cache backend '%s'", cfg.CacheBackend)
}

func newDownloader() (downloader.Downloader, error) {
	if cfg.DownloadCache == "" {
		return downloader.NewMemoryDownloader(), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DownloadCache), 0755); err != nil {
		return nil, fmt.Errorf("creating download cache: %w", err)
	}
	fs, err := downloader.NewFilesystem(cfg.DownloadCache)
	if err != nil {
		return nil, fmt.Errorf("creating download cache: %w", err)
	}
	return fs, nil
}

func newManager(dl downloader.Downloader) (*cinebus.Manager, error) {
	s, err := openStorage()
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	h, err := parseHeaders(headers)
	if err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	m := cinebus.NewManager(s, cinebus.Sources{
		Routes:  cfg.RoutesSource,
		Stops:   cfg.StopsSource,
		Streets: cfg.StreetsSource,
		Headers: h,
	})
	m.Name = cfg.CacheName
	m.RefreshInterval = cfg.RefreshInterval
	m.Downloader = dl
	m.Options = cinebus.BuildOptions{
		WalkingSpeed: cfg.WalkingSpeed,
		BusSpeed:     cfg.BusSpeed,
		WaitPenalty:  cfg.WaitPenalty,
	}

	return m, nil
}

// Loads the city graph, building it if storage has none or it's due
// for a refresh.
func loadCity(ctx context.Context) (*cinebus.City, error) {
	dl, err := newDownloader()
	if err != nil {
		return nil, err
	}
	m, err := newManager(dl)
	if err != nil {
		return nil, err
	}

	if _, err := m.Refresh(ctx); err != nil {
		return nil, err
	}
	return m.City()
}

// Fetches and parses the screening catalog. Fetches are cached for
// the configured TTL.
func loadScreenings(ctx context.Context, dl downloader.Downloader) ([]model.Event, error) {
	body, err := dl.Get(ctx, cfg.ScreeningsSource, nil, downloader.GetOptions{
		Cache:    true,
		CacheTTL: cfg.DownloadTTL,
		Timeout:  cinebus.DefaultDatasetTimeout,
		MaxSize:  cinebus.DefaultDatasetMaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching screenings: %w", err)
	}

	events, err := parse.ParseScreenings(bytes.NewReader(body), cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("parsing screenings: %w", err)
	}
	return events, nil
}
