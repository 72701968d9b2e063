// Package metrics provides Prometheus metrics collection for stacgate.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stacgate"

// Collector holds all Prometheus metrics for stacgate.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Validation metrics
	ValidationFailures *prometheus.CounterVec

	// Storage metrics
	StorageOps      *prometheus.CounterVec
	StorageDuration *prometheus.HistogramVec

	// Cache metrics
	CacheResults *prometheus.CounterVec

	// Ingest metrics
	IngestItems *prometheus.CounterVec

	// Extension metrics
	ExtensionsEnabled *prometheus.GaugeVec
}

// New creates a metrics collector registered on the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Total number of request bodies rejected by validation",
			},
			[]string{"model"},
		),
		StorageOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations by outcome",
			},
			[]string{"backend", "operation", "outcome"},
		),
		StorageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"backend", "operation"},
		),
		CacheResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_results_total",
				Help:      "Read cache lookups by result",
			},
			[]string{"result"},
		),
		IngestItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_items_total",
				Help:      "Items processed by the ingest command by outcome",
			},
			[]string{"outcome"},
		),
		ExtensionsEnabled: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "extension_enabled",
				Help:      "Set to 1 for every extension registered at startup",
			},
			[]string{"extension"},
		),
	}
}

// StatusClass collapses a status code into 2xx, 4xx, ... to bound label cardinality.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// Cache result labels.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// RecordCache counts a cache lookup. Safe on a nil Collector.
func (c *Collector) RecordCache(result string) {
	if c == nil {
		return
	}
	c.CacheResults.WithLabelValues(result).Inc()
}

// RecordIngest counts an ingested item. Safe on a nil Collector.
func (c *Collector) RecordIngest(outcome string) {
	if c == nil {
		return
	}
	c.IngestItems.WithLabelValues(outcome).Inc()
}

// SetExtensions marks the given extensions as enabled.
func (c *Collector) SetExtensions(names []string) {
	if c == nil {
		return
	}
	for _, n := range names {
		c.ExtensionsEnabled.WithLabelValues(n).Set(1)
	}
}

// ValidationFailed counts a rejected request body for model. Safe on a nil Collector.
func (c *Collector) ValidationFailed(model string) {
	if c == nil {
		return
	}
	c.ValidationFailures.WithLabelValues(model).Inc()
}
