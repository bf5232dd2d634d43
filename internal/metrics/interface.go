// Package metrics provides interfaces for metrics collection and monitoring.
package metrics

import "time"

//go:generate mockgen -destination=../mocks/mock_recorder.go -package=mocks github.com/anstrom/reconai/internal/metrics Recorder

// Recorder receives the operational events emitted by the runner, the
// result cache, the scan orchestrator and the HTTP layer.
type Recorder interface {
	// ToolExecuted records one external command invocation. Outcome is one of
	// the Outcome* constants.
	ToolExecuted(tool, outcome string, duration time.Duration)

	// CacheLookup records a cache hit or miss.
	CacheLookup(hit bool)

	// CacheEvicted records an entry removed because its TTL elapsed.
	CacheEvicted()

	// ScanStarted records a comprehensive scan entering the running state.
	ScanStarted()

	// ScanCompleted records a comprehensive scan reaching completion.
	ScanCompleted(duration time.Duration)

	// HTTPRequest records a served API request.
	HTTPRequest(method, route, status string, duration time.Duration)
}

// Outcome labels for ToolExecuted.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeTimeout  = "timeout"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Ensure that both implementations satisfy Recorder.
var (
	_ Recorder = (*Registry)(nil)
	_ Recorder = (*PrometheusMetrics)(nil)
)
