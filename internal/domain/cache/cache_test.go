package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainstorm-api/internal/domain/cache"
	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/project"
	infracache "brainstorm-api/internal/infrastructure/cache"
)

type mockStore struct {
	GetFunc func(ctx context.Context, key string) (cache.Entry, bool, error)
	SetFunc func(ctx context.Context, key string, entry cache.Entry) error
}

func (m *mockStore) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return cache.Entry{}, false, nil
}

func (m *mockStore) Set(ctx context.Context, key string, entry cache.Entry) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, entry)
	}
	return nil
}

type countingRecorder struct {
	hits, misses, errors int
}

func (r *countingRecorder) CacheLookup(_ string, hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *countingRecorder) CacheError(string) { r.errors++ }

func newMemoryCache(t *testing.T, ttl time.Duration, now func() time.Time) *cache.ResponseCache {
	t.Helper()
	store, err := infracache.NewMemoryStore(100, now)
	require.NoError(t, err)
	opts := []cache.Option{}
	if now != nil {
		opts = append(opts, cache.WithClock(now))
	}
	return cache.NewResponseCache(store, ttl, zerolog.Nop(), opts...)
}

func verificationResult(confidence int) capability.Result {
	approved := true
	return capability.Result{
		Capability: capability.Verification,
		Approved:   &approved,
		Confidence: &confidence,
		Payload:    capability.VerificationPayload{Approved: true, Confidence: confidence},
	}
}

// Same key before expiry returns the same value twice; after expiry it is a miss without any delete.
func TestResponseCache_HitsUntilExpiry(t *testing.T) {
	now := time.Unix(5000, 0)
	clock := func() time.Time { return now }
	c := newMemoryCache(t, time.Minute, clock)
	ctx := context.Background()

	p := &project.Project{ID: "p1"}
	key, ok := cache.KeyFor(capability.Verification, "We decided on Go", p, nil)
	require.True(t, ok)

	c.Set(ctx, key, verificationResult(91), 0)

	first, ok := c.Get(ctx, key)
	require.True(t, ok)
	second, ok := c.Get(ctx, key)
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.True(t, first.FromCache)
	assert.Equal(t, 91, *first.Confidence)

	now = now.Add(time.Minute + time.Millisecond)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestResponseCache_ExpiresAfterWallClockTTL(t *testing.T) {
	c := newMemoryCache(t, cache.DefaultTTL, nil)
	ctx := context.Background()
	key := cache.Key(capability.GapDetection, "what about costs", "")

	c.Set(ctx, key, capability.Result{Capability: capability.GapDetection}, 1000*time.Millisecond)
	_, ok := c.Get(ctx, key)
	require.True(t, ok)

	time.Sleep(1100 * time.Millisecond)

	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestResponseCache_ExpiryIsCheckedEvenIfStoreReturnsEntry(t *testing.T) {
	now := time.Unix(100, 0)
	store := &mockStore{
		GetFunc: func(ctx context.Context, key string) (cache.Entry, bool, error) {
			return cache.Entry{Value: verificationResult(50), ExpiresAt: now.Add(-time.Second)}, true, nil
		},
	}
	c := cache.NewResponseCache(store, time.Minute, zerolog.Nop(), cache.WithClock(func() time.Time { return now }))

	_, ok := c.Get(context.Background(), "verification:x")
	assert.False(t, ok)
}

func TestResponseCache_SwallowsStoreErrors(t *testing.T) {
	rec := &countingRecorder{}
	store := &mockStore{
		GetFunc: func(ctx context.Context, key string) (cache.Entry, bool, error) {
			return cache.Entry{}, false, errors.New("connection refused")
		},
		SetFunc: func(ctx context.Context, key string, entry cache.Entry) error {
			return errors.New("connection refused")
		},
	}
	c := cache.NewResponseCache(store, time.Minute, zerolog.Nop(), cache.WithRecorder(rec))

	assert.NotPanics(t, func() {
		c.Set(context.Background(), "recording:k", capability.Result{}, 0)
	})
	_, ok := c.Get(context.Background(), "recording:k")
	assert.False(t, ok)
	assert.Equal(t, 2, rec.errors)
	assert.Equal(t, 1, rec.misses)
}

func TestResponseCache_DefaultTTL(t *testing.T) {
	c := cache.NewResponseCache(&mockStore{}, 0, zerolog.Nop())
	assert.Equal(t, cache.DefaultTTL, c.DefaultTTL())
}
