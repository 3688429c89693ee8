package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const lockPrefix = "brainstorm:lock:project:"

// RedisLocker serializes work per project across processes with a redsync mutex.
type RedisLocker struct {
	rs  *redsync.Redsync
	ttl time.Duration
	log zerolog.Logger
}

// NewRedisLocker builds a locker whose locks expire after ttl.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *RedisLocker {
	return &RedisLocker{
		rs:  redsync.New(goredis.NewPool(client)),
		ttl: ttl,
		log: log.With().Str("component", "redis-locker").Logger(),
	}
}

// WithLock runs fn while holding the project's distributed lock.
func (l *RedisLocker) WithLock(ctx context.Context, projectID string, fn func(ctx context.Context) error) error {
	mutex := l.rs.NewMutex(lockPrefix+projectID, redsync.WithExpiry(l.ttl), redsync.WithTries(64))
	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("lock project %s: %w", projectID, err)
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if _, err := mutex.UnlockContext(unlockCtx); err != nil {
			l.log.Error().Err(err).Str("project_id", projectID).Msg("failed to unlock project")
		}
	}()

	return fn(ctx)
}
