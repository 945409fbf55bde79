package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	m := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), "redis://"+m.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return m, s
}

func TestRedisStoreSetRefreshesTTL(t *testing.T) {
	m, s := newMiniredisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "u1", "sess-a"))
	assert.Equal(t, time.Hour, m.TTL(keyPrefix+"u1"))

	// Burn half the retention window, then write again: the full window
	// must come back, not the remainder.
	m.FastForward(30 * time.Minute)
	assert.Equal(t, 30*time.Minute, m.TTL(keyPrefix+"u1"))

	require.NoError(t, s.Set(ctx, "u1", "sess-b"))
	assert.Equal(t, time.Hour, m.TTL(keyPrefix+"u1"))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "sess-b", got)
}

func TestRedisStoreExpiredSessionIsEmpty(t *testing.T) {
	m, s := newMiniredisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "u1", "sess-a"))
	m.FastForward(2 * time.Hour)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "", got, "expired session must read as missing")
}

// Needs a live Redis; set TEST_REDIS_URL (e.g. redis://localhost:6379/15)
// to run.
func TestRedisStoreRoundTrip(t *testing.T) {
	rawURL := os.Getenv("TEST_REDIS_URL")
	if rawURL == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	s, err := NewRedisStore(ctx, rawURL, time.Minute)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "redis-test-user")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	require.NoError(t, s.Set(ctx, "redis-test-user", "sess-1"))
	got, err = s.Get(ctx, "redis-test-user")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got)
}

func TestNewRedisStoreBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url", time.Minute)
	require.Error(t, err)
}
