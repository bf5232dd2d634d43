// Package handlers provides HTTP request handlers for the reconai API.
// This file implements the health endpoint.
package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/anstrom/reconai/internal/cache"
	"github.com/anstrom/reconai/internal/tools"
)

// Status constants.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// availabilityTTL bounds how often executables are looked up on PATH.
const availabilityTTL = 30 * time.Second

// AvailabilityFunc reports which tool executables can be resolved.
type AvailabilityFunc func() map[tools.Name]bool

// HealthHandler handles the health endpoint.
type HealthHandler struct {
	jobs      JobReader
	cache     CacheStore
	available AvailabilityFunc
	logger    *slog.Logger
	startTime time.Time

	mu        sync.Mutex
	lastCheck time.Time
	lastTools map[tools.Name]bool
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(reader JobReader, store CacheStore, available AvailabilityFunc, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		jobs:      reader,
		cache:     store,
		available: available,
		logger:    logger.With("handler", "health"),
		startTime: time.Now(),
	}
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status         string              `json:"status"`
	Version        string              `json:"version"`
	Timestamp      time.Time           `json:"timestamp"`
	Uptime         string              `json:"uptime"`
	Tools          map[tools.Name]bool `json:"tools_available"`
	ActiveScans    int                 `json:"active_scans"`
	CompletedScans int                 `json:"completed_scans"`
	Cache          cache.Stats         `json:"cache"`
}

// Health handles GET /health. The server is degraded, not down, when a tool
// is missing: the remaining tools still serve requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested", "remote_addr", r.RemoteAddr)

	counts := h.jobs.Counts()
	resp := HealthResponse{
		Status:         StatusHealthy,
		Version:        version,
		Timestamp:      time.Now().UTC(),
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		Tools:          h.toolAvailability(),
		ActiveScans:    counts.Running,
		CompletedScans: counts.Completed,
	}
	if h.cache != nil {
		resp.Cache = h.cache.Stats()
	}

	for _, ok := range resp.Tools {
		if !ok {
			resp.Status = StatusDegraded
			break
		}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (h *HealthHandler) toolAvailability() map[tools.Name]bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.available == nil {
		return map[tools.Name]bool{}
	}
	if h.lastTools == nil || time.Since(h.lastCheck) > availabilityTTL {
		h.lastTools = h.available()
		h.lastCheck = time.Now()
	}

	out := make(map[tools.Name]bool, len(h.lastTools))
	for name, ok := range h.lastTools {
		out[name] = ok
	}
	return out
}

// Build information, set via ldflags through SetBuildInfo.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// SetBuildInfo sets build information (called by main package).
func SetBuildInfo(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
}

// BuildInfo returns the version, commit and build time.
func BuildInfo() (v, c, bt string) {
	return version, commit, buildTime
}
