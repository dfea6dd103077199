package oboe

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the transport and the
// query/mutation adapters. A nil collector records nothing. It is safe for
// concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	errorsTotal *prometheus.CounterVec

	queryCacheHits   *prometheus.CounterVec
	queryCacheMisses *prometheus.CounterVec
	queryDedupHits   *prometheus.CounterVec
	queryCacheSize   prometheus.Gauge

	mutationsTotal *prometheus.CounterVec

	registerer prometheus.Registerer
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)

	return &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oboe_requests_total",
				Help: "Total number of API requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oboe_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oboe_requests_in_flight",
				Help: "Number of API requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oboe_errors_total",
				Help: "Total number of errors surfaced to callers",
			},
			[]string{"type", "method", "endpoint"},
		),
		queryCacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oboe_query_cache_hits_total",
				Help: "Total number of queries served from fresh cache",
			},
			[]string{"scope"},
		),
		queryCacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oboe_query_cache_misses_total",
				Help: "Total number of queries that had to fetch",
			},
			[]string{"scope"},
		),
		queryDedupHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oboe_query_dedup_hits_total",
				Help: "Total number of queries that joined an in-flight fetch",
			},
			[]string{"scope"},
		),
		queryCacheSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "oboe_query_cache_size",
				Help: "Current number of entries in the query cache",
			},
		),
		mutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oboe_mutations_total",
				Help: "Total number of mutations by outcome",
			},
			[]string{"name", "outcome"},
		),
		registerer: registry,
	}
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, statusCodeStr, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, statusCodeStr, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordError increments error counter by type.
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}

// RecordQueryCacheHit increments the fresh-cache counter for a query scope.
func (mc *MetricsCollector) RecordQueryCacheHit(scope string) {
	if mc == nil {
		return
	}

	mc.queryCacheHits.WithLabelValues(scope).Inc()
}

// RecordQueryCacheMiss increments the fetch counter for a query scope.
func (mc *MetricsCollector) RecordQueryCacheMiss(scope string) {
	if mc == nil {
		return
	}

	mc.queryCacheMisses.WithLabelValues(scope).Inc()
}

// RecordQueryDedupHit increments the coalesced-fetch counter for a query scope.
func (mc *MetricsCollector) RecordQueryDedupHit(scope string) {
	if mc == nil {
		return
	}

	mc.queryDedupHits.WithLabelValues(scope).Inc()
}

// RecordQueryCacheSize sets the query cache size gauge.
func (mc *MetricsCollector) RecordQueryCacheSize(size int) {
	if mc == nil {
		return
	}

	mc.queryCacheSize.Set(float64(size))
}

// RecordMutation counts a settled mutation. outcome is "success" or "error".
func (mc *MetricsCollector) RecordMutation(name, outcome string) {
	if mc == nil {
		return
	}

	mc.mutationsTotal.WithLabelValues(name, outcome).Inc()
}

// Registerer exposes the registerer the collector was built on.
func (mc *MetricsCollector) Registerer() prometheus.Registerer {
	if mc == nil {
		return nil
	}
	return mc.registerer
}
