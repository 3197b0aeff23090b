// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "films_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "films_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "films_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "films_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)

	DigestsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "films_digests_total",
			Help: "Digest emails by outcome",
		},
		[]string{"outcome"}, // "sent", "failed"
	)
)

// RecordRequest updates the request counters for one finished request.
func RecordRequest(method, route string, status int, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RegisterDB exports the sql.DB pool statistics under db_name="films".
// Registering the same pool twice is a no-op.
func RegisterDB(db *sql.DB) error {
	err := prometheus.Register(collectors.NewDBStatsCollector(db, "films"))
	if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
		return nil
	}
	return err
}

func Handler() http.Handler {
	return promhttp.Handler()
}
