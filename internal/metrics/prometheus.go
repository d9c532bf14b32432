// Package metrics provides Prometheus metrics for the tophits service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sampling paths recorded by [Manager.RecordSample].
const (
	PathFiltered = "filtered"
	PathFallback = "fallback"
	PathEmpty    = "empty"
)

// Manager owns the service metrics and the registry they are exposed from.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Catalog
	upstreamRequests        *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec

	// Sampler
	samplerRuns       *prometheus.CounterVec
	samplerThreshold  prometheus.Histogram
	samplerCandidates prometheus.Histogram
}

var defaultManager = NewManager() //nolint:gochecknoglobals // process-wide metrics

// Default returns the process-wide Manager.
func Default() *Manager {
	return defaultManager
}

// NewManager creates a Manager with its own registry unless [WithRegistry] is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tophits",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.upstreamRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "upstream_requests_total",
			Help:      "Total number of catalog service calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	m.upstreamRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "upstream_request_duration_milliseconds",
			Help:      "Catalog service call duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"operation"},
	)

	m.samplerRuns = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "sampler_runs_total",
			Help:      "Popular-track sampling runs by path (filtered, fallback, empty)",
		},
		[]string{"path"},
	)

	m.samplerThreshold = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sampler_admission_threshold",
		Help:      "Popularity threshold at which sampled tracks were admitted",
		Buckets:   []float64{50, 55, 60, 65, 70},
	})

	m.samplerCandidates = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sampler_candidates",
		Help:      "Size of the candidate page handed to the sampler",
		Buckets:   []float64{0, 1, 5, 10, 25, 50},
	})
}

// Registry returns the registry the metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(endpoint, method string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(milliseconds(elapsed))
}

// RecordUpstream records one catalog call. A nil err counts as "ok".
func (m *Manager) RecordUpstream(operation string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.upstreamRequests.WithLabelValues(operation, outcome).Inc()
	m.upstreamRequestDuration.WithLabelValues(operation).Observe(milliseconds(elapsed))
}

// RecordSample records one sampling run.
func (m *Manager) RecordSample(candidates, threshold int, fallback bool) {
	m.samplerCandidates.Observe(float64(candidates))

	switch {
	case candidates == 0:
		m.samplerRuns.WithLabelValues(PathEmpty).Inc()
	case fallback:
		m.samplerRuns.WithLabelValues(PathFallback).Inc()
	default:
		m.samplerRuns.WithLabelValues(PathFiltered).Inc()
		m.samplerThreshold.Observe(float64(threshold))
	}
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// UpstreamCounter returns the request counter for one catalog operation and outcome.
func (m *Manager) UpstreamCounter(operation, outcome string) prometheus.Counter {
	return m.upstreamRequests.WithLabelValues(operation, outcome)
}
