package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	domaincache "brainstorm-api/internal/domain/cache"
)

// MemoryStore is a bounded in-process LRU. Expired entries are removed when read.
type MemoryStore struct {
	cache *lru.Cache
	now   func() time.Time
}

// NewMemoryStore creates an LRU store holding at most maxEntries results.
func NewMemoryStore(maxEntries int, now func() time.Time) (*MemoryStore, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	c, err := lru.New(maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{cache: c, now: now}, nil
}

// Get returns the entry for key unless it is missing or expired.
func (s *MemoryStore) Get(_ context.Context, key string) (domaincache.Entry, bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return domaincache.Entry{}, false, nil
	}
	entry, ok := v.(domaincache.Entry)
	if !ok {
		s.cache.Remove(key)
		return domaincache.Entry{}, false, fmt.Errorf("unexpected cache value type %T", v)
	}
	if entry.Expired(s.now()) {
		s.cache.Remove(key)
		return domaincache.Entry{}, false, nil
	}
	return entry, true, nil
}

// Set stores entry under key, evicting the least recently used entry when full.
func (s *MemoryStore) Set(_ context.Context, key string, entry domaincache.Entry) error {
	s.cache.Add(key, entry)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
