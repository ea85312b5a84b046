// Package metrics provides Prometheus metrics for price lookups and batches.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// StatusOK labels a successful price lookup.
	StatusOK = "ok"
	// StatusError labels a failed price lookup.
	StatusError = "error"
)

var (
	// PriceRequestsTotal is a counter of price lookups per source and outcome.
	PriceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_requests_total",
			Help: "Total number of price lookups issued to a source",
		},
		[]string{"source", "status"},
	)

	// PriceRequestDuration is a histogram of single price lookup latencies.
	PriceRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "price_request_duration_seconds",
			Help:    "Duration of single price lookups",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"source"},
	)

	// BatchDuration is a histogram of whole-batch wall-clock time.
	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batch_duration_seconds",
			Help:    "Wall-clock duration of price aggregation batches",
			Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 16},
		},
		[]string{"mode"},
	)

	// BatchFailuresTotal is a counter of batches that returned no result.
	BatchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_failures_total",
			Help: "Total number of price aggregation batches that failed",
		},
		[]string{"mode"},
	)
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			PriceRequestsTotal,
			PriceRequestDuration,
			BatchDuration,
			BatchFailuresTotal,
		)
	})
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordPriceRequest records one price lookup against a source.
func RecordPriceRequest(source string, err error, duration time.Duration) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	PriceRequestsTotal.WithLabelValues(source, status).Inc()
	PriceRequestDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordBatch records a completed or failed batch.
func RecordBatch(mode string, duration time.Duration, failed bool) {
	BatchDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if failed {
		BatchFailuresTotal.WithLabelValues(mode).Inc()
	}
}
