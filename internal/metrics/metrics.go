// Package metrics provides monitoring for reconai. PrometheusMetrics backs
// the /metrics endpoint; Registry is an in-memory Recorder used when
// Prometheus export is not wanted, such as in tests and CLI one-shots.
package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Labels represents key-value pairs for metric labels.
type Labels map[string]string

// Registry holds counters and last-observed values in memory.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]float64
	gauges   map[string]float64
}

// NewRegistry creates a new in-memory registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]float64),
		gauges:   make(map[string]float64),
	}
}

// Counter returns the current value of a counter.
func (r *Registry) Counter(name string, labels Labels) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[makeKey(name, labels)]
}

// Gauge returns the current value of a gauge.
func (r *Registry) Gauge(name string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

func (r *Registry) inc(name string, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[makeKey(name, labels)]++
}

func (r *Registry) addGauge(name string, delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] += delta
}

// ToolExecuted implements Recorder.
func (r *Registry) ToolExecuted(tool, outcome string, _ time.Duration) {
	r.inc("tool_executions_total", Labels{"tool": tool, "outcome": outcome})
}

// CacheLookup implements Recorder.
func (r *Registry) CacheLookup(hit bool) {
	if hit {
		r.inc("cache_hits_total", nil)
		return
	}
	r.inc("cache_misses_total", nil)
}

// CacheEvicted implements Recorder.
func (r *Registry) CacheEvicted() {
	r.inc("cache_evictions_total", nil)
}

// ScanStarted implements Recorder.
func (r *Registry) ScanStarted() {
	r.inc("scans_started_total", nil)
	r.addGauge("scans_active", 1)
}

// ScanCompleted implements Recorder.
func (r *Registry) ScanCompleted(_ time.Duration) {
	r.inc("scans_completed_total", nil)
	r.addGauge("scans_active", -1)
}

// HTTPRequest implements Recorder.
func (r *Registry) HTTPRequest(method, route, status string, _ time.Duration) {
	r.inc("http_requests_total", Labels{"method": method, "route": route, "status": status})
}

// makeKey creates a unique key for a metric based on name and sorted labels.
func makeKey(name string, labels Labels) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(labels[k])
	}
	return b.String()
}
