package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/reconai/internal/logging"
	"github.com/anstrom/reconai/internal/metrics"
	"github.com/anstrom/reconai/internal/runner"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(ttl time.Duration) (*Cache, *fakeClock, *metrics.Registry) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := metrics.NewRegistry()
	c := New(ttl, WithClock(clock.Now), WithLogger(logging.Discard()), WithMetrics(m))
	return c, clock, m
}

func TestKey(t *testing.T) {
	a := runner.NewCommandSpec("nmap", "-T4", "-F", "example.com")
	b := runner.CommandSpec{"nmap", "-T4", "-F", "example.com"}
	reordered := runner.NewCommandSpec("nmap", "-F", "-T4", "example.com")

	assert.Equal(t, Key(a), Key(b))
	assert.NotEqual(t, Key(a), Key(reordered), "argument order is part of the key")
	assert.NotEmpty(t, Key(runner.CommandSpec{}))
}

func TestLookup_Determinism(t *testing.T) {
	outcomes := map[string]runner.Outcome{
		"success":   {Success: true, Stdout: "80/tcp open http", Command: "nmap x"},
		"failure":   {ExitCode: 2, Stderr: "bad flag", Command: "nmap x"},
		"timeout":   {TimedOut: true, ExitCode: runner.FailureExitCode, Error: "timed out"},
		"not found": {NotFound: true, ExitCode: runner.FailureExitCode, Error: "missing"},
	}

	for name, outcome := range outcomes {
		t.Run(name, func(t *testing.T) {
			c, _, _ := newTestCache(time.Hour)
			c.Store(runner.NewCommandSpec("nmap", "-sV", "example.com"), outcome)

			got, ok := c.Lookup(runner.CommandSpec{"nmap", "-sV", "example.com"})
			require.True(t, ok)
			assert.Equal(t, outcome, got)
		})
	}
}

func TestLookup_Miss(t *testing.T) {
	c, _, m := newTestCache(time.Hour)

	got, ok := c.Lookup(runner.NewCommandSpec("whois", "example.com"))

	assert.False(t, ok)
	assert.Equal(t, runner.Outcome{}, got)
	assert.Equal(t, 1.0, m.Counter("cache_misses_total", nil))
}

func TestLookup_TTLBoundary(t *testing.T) {
	ttl := 10 * time.Second
	spec := runner.NewCommandSpec("subfinder", "-d", "example.com", "-silent")

	tests := []struct {
		name    string
		advance time.Duration
		present bool
	}{
		{"at store time", 0, true},
		{"just before expiry", ttl - time.Nanosecond, true},
		{"exactly at ttl", ttl, false},
		{"after expiry", ttl + time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clock, m := newTestCache(ttl)
			c.Store(spec, runner.Outcome{Success: true})

			clock.Advance(tt.advance)
			_, ok := c.Lookup(spec)

			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.Equal(t, 1, c.Stats().Size)
				assert.Equal(t, 1.0, m.Counter("cache_hits_total", nil))
			} else {
				assert.Equal(t, 0, c.Stats().Size, "expired entry is evicted")
				assert.Equal(t, 1.0, m.Counter("cache_evictions_total", nil))
			}
		})
	}
}

func TestStore_OverwriteResetsAge(t *testing.T) {
	c, clock, _ := newTestCache(10 * time.Second)
	spec := runner.NewCommandSpec("whois", "example.com")

	c.Store(spec, runner.Outcome{Stdout: "first"})
	clock.Advance(8 * time.Second)
	c.Store(spec, runner.Outcome{Stdout: "second"})
	clock.Advance(8 * time.Second)

	got, ok := c.Lookup(spec)
	require.True(t, ok, "overwrite must reset stored_at")
	assert.Equal(t, "second", got.Stdout)
	assert.Equal(t, 1, c.Stats().Size)
}

func TestClear_Idempotent(t *testing.T) {
	c, _, _ := newTestCache(time.Minute)

	c.Clear()
	assert.Equal(t, 0, c.Stats().Size)

	c.Store(runner.NewCommandSpec("a"), runner.Outcome{})
	c.Store(runner.NewCommandSpec("b"), runner.Outcome{})
	require.Equal(t, 2, c.Stats().Size)

	c.Clear()
	c.Clear()
	assert.Equal(t, 0, c.Stats().Size)
	_, ok := c.Lookup(runner.NewCommandSpec("a"))
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	c, _, _ := newTestCache(3600 * time.Second)

	c.Store(runner.NewCommandSpec("x"), runner.Outcome{})

	assert.Equal(t, Stats{Size: 1, TTL: 3600}, c.Stats())
}

func TestConcurrentAccess(t *testing.T) {
	c, _, _ := newTestCache(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				spec := runner.NewCommandSpec("tool", fmt.Sprint(j%10))
				c.Store(spec, runner.Outcome{Stdout: fmt.Sprint(i)})
				c.Lookup(spec)
				if j%25 == 0 {
					c.Stats()
				}
				if i == 0 && j == 50 {
					c.Clear()
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Size, 10)
}
