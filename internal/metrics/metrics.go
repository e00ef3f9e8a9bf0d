package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts completed ZivaCare API requests by host kind, method and status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ziva_api_requests_total",
			Help: "Total number of ZivaCare API requests (by host, method, and status).",
		},
		[]string{"host", "method", "status"},
	)

	// RequestDuration measures the wall time of a request including retries.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ziva_api_request_duration_seconds",
			Help:    "Duration of ZivaCare API requests in seconds, retries included.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms → ~41s
		},
		[]string{"host", "method"},
	)

	// RetriesTotal counts re-sent attempts.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ziva_api_retries_total",
			Help: "Number of request attempts re-sent after a network failure or 5xx.",
		},
		[]string{"host"},
	)

	// CacheErrors counts absorbed credential cache failures.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ziva_cache_errors_total",
			Help: "Credential cache I/O failures by backend and operation.",
		},
		[]string{"backend", "op"},
	)

	// Extractions counts credential extraction outcomes.
	Extractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ziva_credential_extractions_total",
			Help: "Credential field extractions by field and stage (structured, scan, none).",
		},
		[]string{"field", "via"},
	)

	// EventsPublished counts credential lifecycle notifications by subject and outcome.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ziva_events_published_total",
			Help: "Credential lifecycle events published to NATS (by subject and status).",
		},
		[]string{"subject", "status"},
	)

	// InFlight tracks requests currently owned by the transport queue.
	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ziva_transport_in_flight",
			Help: "Requests enqueued and not yet completed.",
		},
	)
)

// IncRequest increments the request counter.
func IncRequest(host, method string, status int) {
	RequestsTotal.WithLabelValues(host, method, strconv.Itoa(status)).Inc()
}

// ObserveDuration records elapsed time since start into a HistogramVec or SummaryVec.
func ObserveDuration(v any, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()
	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	}
}

// IncCacheError increments the cache failure counter.
func IncCacheError(backend, op string) {
	CacheErrors.WithLabelValues(backend, op).Inc()
}

// IncExtraction records which stage (if any) produced a field value.
func IncExtraction(field, via string) {
	Extractions.WithLabelValues(field, via).Inc()
}

// IncEvent increments the event publish counter.
func IncEvent(subject, status string) {
	EventsPublished.WithLabelValues(subject, status).Inc()
}
