// Package cache memoizes capability results with a time-to-live. Expiry is checked when an entry is
// read; nothing sweeps the store in the background.
package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"brainstorm-api/internal/domain/capability"
)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 5 * time.Minute

// Entry is a stored result and its expiry.
type Entry struct {
	Value     capability.Result `json:"value"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Expired reports whether the entry is past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Store is a cache backend. Get returns ok=false for missing or expired entries.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
}

// Recorder receives cache outcomes for metrics.
type Recorder interface {
	CacheLookup(capability string, hit bool)
	CacheError(operation string)
}

type nopRecorder struct{}

func (nopRecorder) CacheLookup(string, bool) {}
func (nopRecorder) CacheError(string)        {}

// ResponseCache is the best-effort result cache used by the dispatcher. Backend errors are logged
// and reported as misses.
type ResponseCache struct {
	store    Store
	ttl      time.Duration
	now      func() time.Time
	recorder Recorder
	log      zerolog.Logger
}

// Option configures a ResponseCache.
type Option func(*ResponseCache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) { c.now = now }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *ResponseCache) {
		if r != nil {
			c.recorder = r
		}
	}
}

// NewResponseCache wraps store. A non-positive ttl falls back to DefaultTTL.
func NewResponseCache(store Store, ttl time.Duration, log zerolog.Logger, opts ...Option) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &ResponseCache{
		store:    store,
		ttl:      ttl,
		now:      time.Now,
		recorder: nopRecorder{},
		log:      log.With().Str("component", "response-cache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultTTL returns the configured TTL.
func (c *ResponseCache) DefaultTTL() time.Duration {
	return c.ttl
}

// Get returns the cached result for key. The result is marked FromCache.
func (c *ResponseCache) Get(ctx context.Context, key string) (capability.Result, bool) {
	name := capabilityOf(key)
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache get failed, treating as miss")
		c.recorder.CacheError("get")
		c.recorder.CacheLookup(name, false)
		return capability.Result{}, false
	}
	if !ok || entry.Expired(c.now()) {
		c.recorder.CacheLookup(name, false)
		return capability.Result{}, false
	}

	c.recorder.CacheLookup(name, true)
	res := entry.Value
	res.FromCache = true
	return res, true
}

// Set stores value under key for ttl. A non-positive ttl uses the configured default.
func (c *ResponseCache) Set(ctx context.Context, key string, value capability.Result, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	value.FromCache = false
	entry := Entry{Value: value, ExpiresAt: c.now().Add(ttl)}
	if err := c.store.Set(ctx, key, entry); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		c.recorder.CacheError("set")
	}
}

func capabilityOf(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return "unknown"
}
