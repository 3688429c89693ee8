package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaincache "brainstorm-api/internal/domain/cache"
)

func TestBuildUniversalOptions(t *testing.T) {
	opts, err := buildUniversalOptions("redis://:secret@localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:6379"}, opts.Addrs)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildUniversalOptions("node1:7000, node2:7001")
	require.NoError(t, err)
	assert.Equal(t, []string{"node1:7000", "node2:7001"}, opts.Addrs)

	_, err = buildUniversalOptions(" , ")
	assert.Error(t, err)
}

func TestRedisStore_KeyIsVersioned(t *testing.T) {
	s := NewRedisStore(nil, "", nil)
	assert.Equal(t, "brainstorm:cache:v1:verification:abc", s.key("verification:abc"))

	s = NewRedisStore(nil, "brainstorm:cache:", nil)
	assert.Equal(t, "brainstorm:cache:v1:verification:abc", s.key("verification:abc"))
}

func TestRedisStore_TTLUsesStoreClock(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewRedisStore(nil, "", func() time.Time { return now })

	entry := domaincache.Entry{ExpiresAt: now.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, s.ttl(entry))

	entry.ExpiresAt = now.Add(-time.Second)
	assert.LessOrEqual(t, s.ttl(entry), time.Duration(0))
}
