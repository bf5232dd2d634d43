package handlers

import (
	"log/slog"
	"net/http"

	"github.com/anstrom/reconai/internal/api/middleware"
	"github.com/anstrom/reconai/internal/cache"
)

// CacheStore is the administrative view of the result cache.
// *cache.Cache implements it.
type CacheStore interface {
	Stats() cache.Stats
	Clear()
}

var _ CacheStore = (*cache.Cache)(nil)

// CacheHandler handles cache statistics and clearing.
type CacheHandler struct {
	cache  CacheStore
	logger *slog.Logger
}

// NewCacheHandler creates a new cache handler. A nil store reports an empty
// cache and clearing it is a no-op.
func NewCacheHandler(store CacheStore, logger *slog.Logger) *CacheHandler {
	return &CacheHandler{
		cache:  store,
		logger: logger.With("handler", "cache"),
	}
}

// Stats handles GET /api/cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var stats cache.Stats
	if h.cache != nil {
		stats = h.cache.Stats()
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// Clear handles POST /api/cache/clear.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		h.cache.Clear()
	}
	h.logger.Info("Cache cleared", "request_id", middleware.GetRequestID(r))

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": "Cache cleared",
	})
}
