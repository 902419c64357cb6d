// Package observability holds the Prometheus metrics collector.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the service.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Refinement pipeline metrics
	Refinements       *prometheus.CounterVec
	SectionsChanged   prometheus.Histogram
	CompletionTokens  prometheus.Counter
	UpstreamDuration  prometheus.Histogram
	UpstreamFailures  *prometheus.CounterVec
	AnalysesPersisted prometheus.Counter
}

// NewCollector creates (or returns the already-created) metrics collector.
// The singleton avoids duplicate registration when tests construct the
// service more than once.
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	refinements := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refinements_total",
			Help:      "Total refinement requests by outcome",
		},
		[]string{"outcome"},
	)

	sectionsChanged := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refinement_sections_changed",
			Help:      "Number of sections changed per successful refinement",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
	)

	completionTokens := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_tokens_total",
			Help:      "Total tokens consumed by the completion service",
		},
	)

	upstreamDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Completion service call duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)

	upstreamFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Completion service failures by kind",
		},
		[]string{"kind"},
	)

	analysesPersisted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_persisted_total",
			Help:      "Total analyses saved to the store",
		},
	)

	registry.MustRegister(
		httpRequests, httpDuration,
		refinements, sectionsChanged, completionTokens,
		upstreamDuration, upstreamFailures, analysesPersisted,
	)

	globalCollector = &Collector{
		registry:          registry,
		HTTPRequests:      httpRequests,
		HTTPDuration:      httpDuration,
		Refinements:       refinements,
		SectionsChanged:   sectionsChanged,
		CompletionTokens:  completionTokens,
		UpstreamDuration:  upstreamDuration,
		UpstreamFailures:  upstreamFailures,
		AnalysesPersisted: analysesPersisted,
	}
	return globalCollector
}

// Registry exposes the collector's registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
