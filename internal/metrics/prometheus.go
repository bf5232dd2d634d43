package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace for all reconai metrics
	namespace = "reconai"

	// Subsystems
	subsystemTool  = "tool"
	subsystemCache = "cache"
	subsystemScan  = "scan"
	subsystemHTTP  = "http"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Tool metrics
	toolExecutions *prometheus.CounterVec
	toolDuration   *prometheus.HistogramVec

	// Cache metrics
	cacheLookups   *prometheus.CounterVec
	cacheEvictions prometheus.Counter

	// Scan metrics
	scansStarted   prometheus.Counter
	scansCompleted prometheus.Counter
	scanDuration   prometheus.Histogram
	activeScans    prometheus.Gauge

	// API metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		registry: registry,
	}

	pm.initToolMetrics()
	pm.initCacheMetrics()
	pm.initScanMetrics()
	pm.initHTTPMetrics()

	pm.registerMetrics()

	// Register standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

func (pm *PrometheusMetrics) initToolMetrics() {
	pm.toolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemTool,
			Name:      "executions_total",
			Help:      "Total number of external tool invocations by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	pm.toolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemTool,
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of external tool invocations in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 600.0},
		},
		[]string{"tool"},
	)
}

func (pm *PrometheusMetrics) initCacheMetrics() {
	pm.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemCache,
			Name:      "lookups_total",
			Help:      "Total number of result cache lookups by result",
		},
		[]string{"result"},
	)

	pm.cacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemCache,
			Name:      "evictions_total",
			Help:      "Total number of cache entries evicted after their TTL",
		},
	)
}

func (pm *PrometheusMetrics) initScanMetrics() {
	pm.scansStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "started_total",
			Help:      "Total number of comprehensive scans started",
		},
	)

	pm.scansCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "completed_total",
			Help:      "Total number of comprehensive scans completed",
		},
	)

	pm.scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "duration_seconds",
			Help:      "Duration of comprehensive scans in seconds",
			Buckets:   []float64{1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 600.0, 1800.0},
		},
	)

	pm.activeScans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "active",
			Help:      "Number of currently running comprehensive scans",
		},
	)
}

func (pm *PrometheusMetrics) initHTTPMetrics() {
	pm.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemHTTP,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	pm.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemHTTP,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.toolExecutions,
		pm.toolDuration,
		pm.cacheLookups,
		pm.cacheEvictions,
		pm.scansStarted,
		pm.scansCompleted,
		pm.scanDuration,
		pm.activeScans,
		pm.httpRequests,
		pm.httpDuration,
	)
}

// Handler returns the exposition handler for this instance's registry.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// ToolExecuted implements Recorder.
func (pm *PrometheusMetrics) ToolExecuted(tool, outcome string, duration time.Duration) {
	pm.toolExecutions.WithLabelValues(tool, outcome).Inc()
	pm.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// CacheLookup implements Recorder.
func (pm *PrometheusMetrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	pm.cacheLookups.WithLabelValues(result).Inc()
}

// CacheEvicted implements Recorder.
func (pm *PrometheusMetrics) CacheEvicted() {
	pm.cacheEvictions.Inc()
}

// ScanStarted implements Recorder.
func (pm *PrometheusMetrics) ScanStarted() {
	pm.scansStarted.Inc()
	pm.activeScans.Inc()
}

// ScanCompleted implements Recorder.
func (pm *PrometheusMetrics) ScanCompleted(duration time.Duration) {
	pm.scansCompleted.Inc()
	pm.activeScans.Dec()
	pm.scanDuration.Observe(duration.Seconds())
}

// HTTPRequest implements Recorder.
func (pm *PrometheusMetrics) HTTPRequest(method, route, status string, duration time.Duration) {
	pm.httpRequests.WithLabelValues(method, route, status).Inc()
	pm.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
