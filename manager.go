package cinebus

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/PDelos/CineBus-AP2/downloader"
	"github.com/PDelos/CineBus-AP2/storage"
)

const (
	DefaultRefreshInterval = 12 * time.Hour
	DefaultDatasetTimeout  = 60 * time.Second
	DefaultDatasetMaxSize  = 200 << 20 // 200 MB
	DefaultGraphName       = "barcelona"
)

var ErrNoCity = errors.New("no city graph available")

var (
	graphBuildCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinebus_graph_build_count",
		Help: "Number of city graph builds, by result",
	}, []string{"graph", "result"})
	graphBuildDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Name: "cinebus_graph_build_duration_seconds",
		Help: "Time spent parsing datasets and composing a city graph",
	})
)

func init() {
	prometheus.MustRegister(graphBuildCount, graphBuildDuration)
}

// Where the datasets behind a city graph live. Each is a path, a
// file:// URL or an http(s) URL.
type Sources struct {
	Routes  string
	Stops   string
	Streets string

	// Sent with every http(s) request.
	Headers map[string]string
}

// Manager keeps a city graph built from a set of datasets, cached in
// storage under Name, and hands out the current City.
//
// Queries against a City never see a graph being built: Refresh builds
// a new graph on the side and swaps it in.
type Manager struct {
	Name            string
	Sources         Sources
	Options         BuildOptions
	RefreshInterval time.Duration
	DatasetTimeout  time.Duration
	DatasetMaxSize  int
	Downloader      downloader.Downloader
	TimeNow         func() time.Time

	storage storage.Storage
	city    atomic.Pointer[City]

	// Serializes loads and refreshes.
	mutex sync.Mutex
}

// Creates a new Manager of city graphs, on top of the given storage.
//
// Datasets are not cached by the default downloader, as the built
// graph is persisted in storage.
func NewManager(s storage.Storage, sources Sources) *Manager {
	return &Manager{
		Name:            DefaultGraphName,
		Sources:         sources,
		Options:         DefaultBuildOptions(),
		RefreshInterval: DefaultRefreshInterval,
		DatasetTimeout:  DefaultDatasetTimeout,
		DatasetMaxSize:  DefaultDatasetMaxSize,
		Downloader:      downloader.NewMemoryDownloader(),
		TimeNow:         time.Now,

		storage: s,
	}
}

// Returns the current City. If none has been built in this process,
// the graph cached in storage is loaded. Fails with ErrNoCity if
// storage has none.
func (m *Manager) City() (*City, error) {
	if c := m.city.Load(); c != nil {
		return c, nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if c := m.city.Load(); c != nil {
		return c, nil
	}

	c, err := m.loadStored()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (m *Manager) loadStored() (*City, error) {
	g, metadata, err := m.storage.ReadGraph(m.Name)
	if errors.Is(err, storage.ErrGraphNotFound) {
		return nil, fmt.Errorf("graph '%s': %w", m.Name, ErrNoCity)
	}
	if err != nil {
		return nil, fmt.Errorf("reading graph: %w", err)
	}

	if !m.builtWithSettings(metadata) {
		return nil, fmt.Errorf("graph '%s' was built with other settings: %w", m.Name, ErrNoCity)
	}

	c := &City{Graph: g, BuiltAt: metadata.BuiltAt}
	m.city.Store(c)

	log.Debug().
		Str("graph", m.Name).
		Time("built_at", metadata.BuiltAt).
		Int("nodes", metadata.Nodes).
		Int("edges", metadata.Edges).
		Msg("loaded city graph from storage")

	return c, nil
}

// Rebuilds the city graph if the one in storage is older than
// RefreshInterval, was built with other options or sources, or if
// there is none. Returns true if a new graph was built.
//
// Datasets are fetched and hashed first. If they hash the same as
// the stored graph's inputs, the stored graph is only marked as
// refreshed.
func (m *Manager) Refresh(ctx context.Context) (bool, error) {
	return m.refresh(ctx, false)
}

// Like Refresh, but fetches the datasets regardless of when the stored
// graph was last refreshed. Unchanged datasets still skip the build.
func (m *Manager) ForceRefresh(ctx context.Context) (bool, error) {
	return m.refresh(ctx, true)
}

func (m *Manager) refresh(ctx context.Context, force bool) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.TimeNow().UTC()

	graphs, err := m.storage.ListGraphs(storage.ListGraphsFilter{Names: []string{m.Name}})
	if err != nil {
		return false, fmt.Errorf("listing graphs: %w", err)
	}

	var stored *storage.GraphMetadata
	if len(graphs) > 0 {
		stored = graphs[0]
	}

	if !force && stored != nil &&
		m.builtWithSettings(stored) &&
		stored.RefreshedAt.After(now.Add(-m.RefreshInterval)) {
		if m.city.Load() == nil {
			if _, err := m.loadStored(); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	return m.rebuild(ctx, now, stored)
}

func (m *Manager) rebuild(ctx context.Context, now time.Time, stored *storage.GraphMetadata) (bool, error) {
	data, err := m.fetch(ctx)
	if err != nil {
		return false, err
	}
	hash := m.hash(data)

	if stored != nil && stored.Hash == hash {
		stored.RefreshedAt = now
		if err := m.storage.WriteMetadata(stored); err != nil {
			return false, fmt.Errorf("writing metadata: %w", err)
		}
		if m.city.Load() == nil {
			if _, err := m.loadStored(); err != nil {
				return false, err
			}
		}
		log.Debug().Str("graph", m.Name).Str("hash", hash).Msg("datasets unchanged")
		return false, nil
	}

	start := time.Now()
	g, err := BuildCityGraph(data, m.Options)
	if err != nil {
		graphBuildCount.With(prometheus.Labels{"graph": m.Name, "result": "error"}).Inc()
		return false, fmt.Errorf("building city graph: %w", err)
	}
	graphBuildDuration.Observe(time.Since(start).Seconds())
	graphBuildCount.With(prometheus.Labels{"graph": m.Name, "result": "ok"}).Inc()

	metadata := &storage.GraphMetadata{
		Name:        m.Name,
		Hash:        hash,
		BuiltAt:     now,
		RefreshedAt: now,
	}
	if err := m.storage.WriteGraph(metadata, g); err != nil {
		return false, fmt.Errorf("writing graph: %w", err)
	}

	m.city.Store(&City{Graph: g, BuiltAt: now})

	log.Info().
		Str("graph", m.Name).
		Str("hash", hash).
		Int("nodes", metadata.Nodes).
		Int("edges", metadata.Edges).
		Dur("took", time.Since(start)).
		Msg("built city graph")

	return true, nil
}

func (m *Manager) fetch(ctx context.Context) (Datasets, error) {
	opts := downloader.GetOptions{
		Cache:   false,
		Timeout: m.DatasetTimeout,
		MaxSize: m.DatasetMaxSize,
	}

	data := Datasets{}
	for _, ds := range []struct {
		name   string
		source string
		dst    *[]byte
	}{
		{"routes", m.Sources.Routes, &data.Routes},
		{"stops", m.Sources.Stops, &data.Stops},
		{"streets", m.Sources.Streets, &data.Streets},
	} {
		if ds.source == "" {
			return Datasets{}, fmt.Errorf("no source for %s", ds.name)
		}
		body, err := m.Downloader.Get(ctx, ds.source, m.Sources.Headers, opts)
		if err != nil {
			return Datasets{}, fmt.Errorf("fetching %s from %s: %w", ds.name, ds.source, err)
		}
		*ds.dst = body
	}

	return data, nil
}

// Identifies the build options and sources. A stored graph built
// under other settings is never served, however fresh.
func (m *Manager) settingsHash() string {
	h := sha256.New()
	fmt.Fprintf(h, "%g %g %d\n", m.Options.WalkingSpeed, m.Options.BusSpeed, m.Options.WaitPenalty)
	fmt.Fprintf(h, "%s\n%s\n%s\n", m.Sources.Routes, m.Sources.Stops, m.Sources.Streets)
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

func (m *Manager) builtWithSettings(metadata *storage.GraphMetadata) bool {
	return strings.HasPrefix(metadata.Hash, m.settingsHash()+"-")
}

// The settings hash followed by a hash of the datasets, so changing a
// speed, the wait penalty or a source forces a rebuild.
func (m *Manager) hash(data Datasets) string {
	h := sha256.New()
	for _, b := range [][]byte{data.Routes, data.Stops, data.Streets} {
		fmt.Fprintf(h, "%x\n", sha256.Sum256(b))
	}
	return fmt.Sprintf("%s-%x", m.settingsHash(), h.Sum(nil))
}
