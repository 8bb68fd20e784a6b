package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	requestDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "cinebus_request_duration_seconds",
		Help: "Time spent serving requests, by endpoint",
	}, []string{"endpoint"})
	requestCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinebus_request_count",
		Help: "Number of requests served, by endpoint and status code",
	}, []string{"endpoint", "status"})
)

func init() {
	prometheus.MustRegister(requestDuration, requestCount)
}

// Records latency and status of every request to endpoint.
func observe(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqStart := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				took := time.Since(reqStart)
				requestDuration.With(prometheus.Labels{"endpoint": endpoint}).Observe(took.Seconds())
				requestCount.With(prometheus.Labels{
					"endpoint": endpoint,
					"status":   strconv.Itoa(ww.Status()),
				}).Inc()

				log.Debug().
					Str("endpoint", endpoint).
					Str("query", r.URL.RawQuery).
					Int("status", ww.Status()).
					Dur("took", took).
					Msg("request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
