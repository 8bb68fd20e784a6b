package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var ErrTooLarge = errors.New("dataset too large")

type GetOptions struct {
	MaxSize  int
	Timeout  time.Duration
	Cache    bool
	CacheTTL time.Duration
}

// A thing capable of fetching a dataset, optionally with caching.
// Sources are http(s) URLs, file:// URLs or plain filesystem paths.
type Downloader interface {
	Get(ctx context.Context, source string, headers map[string]string, options GetOptions) ([]byte, error)
}

var (
	downloadCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinebus_dataset_download_count",
		Help: "Number of times a dataset was fetched from its source (uncached)",
	}, []string{"source"})
	cachedCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinebus_dataset_cached_count",
		Help: "Number of times a dataset was served from cache",
	}, []string{"source"})
	errorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinebus_dataset_error_count",
		Help: "Number of times fetching a dataset failed",
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(downloadCount, cachedCount, errorCount)
}

func isHTTP(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetches a source without caching. Provided as convenience for
// implementing custom Downloaders.
func Fetch(ctx context.Context, source string, headers map[string]string, options GetOptions) ([]byte, error) {
	var body []byte
	var err error
	if isHTTP(source) {
		body, err = HTTPGet(ctx, source, headers, options)
	} else {
		body, err = readLocal(source, options)
	}
	if err != nil {
		errorCount.With(prometheus.Labels{"source": source}).Inc()
		return nil, err
	}

	downloadCount.With(prometheus.Labels{"source": source}).Inc()
	log.Debug().Str("source", source).Int("bytes", len(body)).Msg("fetched dataset")
	return body, nil
}

// Gets a file over HTTP. Doesn't cache.
func HTTPGet(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error) {
	client := &http.Client{
		Timeout: options.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range headers {
		req.Header.Add(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := readAll(resp.Body, options.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return body, nil
}

func readLocal(source string, options GetOptions) ([]byte, error) {
	path := source
	if strings.HasPrefix(source, "file://") {
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("parsing file url: %w", err)
		}
		path = u.Path
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening: %w", err)
	}
	defer f.Close()

	body, err := readAll(f, options.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}
	return body, nil
}

// Reads r to the end, failing with ErrTooLarge if there's more than
// maxSize bytes. No limit if maxSize is 0.
func readAll(r io.Reader, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		return io.ReadAll(r)
	}

	body, err := io.ReadAll(io.LimitReader(r, int64(maxSize)+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxSize {
		return nil, fmt.Errorf("dataset exceeds %d bytes: %w", maxSize, ErrTooLarge)
	}
	return body, nil
}
