// Package cache stores command outcomes keyed by command identity with a
// time-to-live that is checked lazily on lookup.
package cache

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/anstrom/reconai/internal/logging"
	"github.com/anstrom/reconai/internal/metrics"
	"github.com/anstrom/reconai/internal/runner"
)

// Stats is a point-in-time view of the cache.
type Stats struct {
	Size int `json:"size"`
	// TTL in whole seconds.
	TTL int `json:"ttl"`
}

type entry struct {
	outcome  runner.Outcome
	storedAt time.Time
}

// Cache is a concurrency-safe TTL store of runner outcomes.
// Every outcome is cacheable, failures and timeouts included.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics metrics.Recorder
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the cache logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics sets the recorder for hits, misses and evictions.
func WithMetrics(m metrics.Recorder) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates an empty cache whose entries live for ttl.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithComponent(c.logger, "cache")
	return c
}

// Key returns the cache key for spec: a 64-bit content hash of its
// space-joined tokens, hex encoded. Token order is significant.
func Key(spec runner.CommandSpec) string {
	return strconv.FormatUint(xxhash.Sum64String(spec.String()), 16)
}

// Lookup returns the stored outcome for spec. An entry whose age has reached
// the TTL is evicted and reported as absent.
func (c *Cache) Lookup(spec runner.CommandSpec) (runner.Outcome, bool) {
	key := Key(spec)

	c.mu.Lock()
	e, ok := c.entries[key]
	expired := ok && c.now().Sub(e.storedAt) >= c.ttl
	if expired {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if expired {
		c.logger.Debug("cache entry expired", "key", key)
		c.record(func(m metrics.Recorder) { m.CacheEvicted() })
	}
	hit := ok && !expired
	c.record(func(m metrics.Recorder) { m.CacheLookup(hit) })

	if !hit {
		return runner.Outcome{}, false
	}
	return e.outcome, true
}

// Store records outcome for spec, replacing any previous entry and
// resetting its age.
func (c *Cache) Store(spec runner.CommandSpec, outcome runner.Outcome) {
	key := Key(spec)

	c.mu.Lock()
	c.entries[key] = entry{outcome: outcome, storedAt: c.now()}
	c.mu.Unlock()

	c.logger.Debug("cache entry stored", "key", key, "command", outcome.Command)
}

// Clear drops every entry. It is safe to call on an empty cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.logger.Info("cache cleared", "entries", n)
}

// Stats reports the number of stored entries, expired ones included until a
// lookup evicts them, and the TTL in seconds.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Size: len(c.entries), TTL: int(c.ttl / time.Second)}
}

func (c *Cache) record(fn func(metrics.Recorder)) {
	if c.metrics != nil {
		fn(c.metrics)
	}
}
