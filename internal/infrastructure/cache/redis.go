package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	domaincache "brainstorm-api/internal/domain/cache"
)

// CacheVersion is part of every key so a format change never reads old entries.
const CacheVersion = "v1"

// RedisStore keeps entries in Redis as JSON. The entry's own expiresAt is checked on read; the Redis
// expiry is only a storage bound.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisClient connects to the comma separated Redis URL(s).
func NewRedisClient(redisURL string, log zerolog.Logger) (redis.UniversalClient, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL must be provided")
	}

	opts, err := buildUniversalOptions(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if len(opts.Addrs) > 1 && opts.DB != 0 {
		log.Warn().Msg("Ignoring non-zero DB when using Redis Cluster configuration")
		opts.DB = 0
	}

	client := redis.NewUniversalClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisStore wraps client. prefix namespaces the keys; a nil now uses time.Now.
func NewRedisStore(client redis.UniversalClient, prefix string, now func() time.Time) *RedisStore {
	prefix = strings.TrimRight(prefix, ":")
	if prefix == "" {
		prefix = "brainstorm:cache"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, prefix: prefix, now: now}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + CacheVersion + ":" + k
}

// Get reads and decodes the entry for key.
func (s *RedisStore) Get(ctx context.Context, key string) (domaincache.Entry, bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domaincache.Entry{}, false, nil
		}
		return domaincache.Entry{}, false, fmt.Errorf("failed to get value from cache: %w", err)
	}

	var entry domaincache.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domaincache.Entry{}, false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	if entry.Expired(s.now()) {
		return domaincache.Entry{}, false, nil
	}
	return entry, true, nil
}

// Set writes the entry with a Redis expiry matching expiresAt.
func (s *RedisStore) Set(ctx context.Context, key string, entry domaincache.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	ttl := s.ttl(entry)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.key(key), data, ttl).Err()
}

func (s *RedisStore) ttl(entry domaincache.Entry) time.Duration {
	return entry.ExpiresAt.Sub(s.now())
}

func buildUniversalOptions(raw string) (*redis.UniversalOptions, error) {
	parts := strings.Split(raw, ",")
	opts := &redis.UniversalOptions{}

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "://") {
			opts.Addrs = append(opts.Addrs, part)
			continue
		}

		parsed, err := redis.ParseURL(part)
		if err != nil {
			return nil, err
		}
		opts.Addrs = append(opts.Addrs, parsed.Addr)
		if opts.Username == "" {
			opts.Username = parsed.Username
		}
		if opts.Password == "" {
			opts.Password = parsed.Password
		}
		if opts.DB == 0 {
			opts.DB = parsed.DB
		}
		if opts.TLSConfig == nil {
			opts.TLSConfig = parsed.TLSConfig
		}
		if opts.DialTimeout == 0 {
			opts.DialTimeout = parsed.DialTimeout
		}
		if opts.PoolSize == 0 {
			opts.PoolSize = parsed.PoolSize
		}
	}

	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("no Redis addresses provided")
	}
	return opts, nil
}
