package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fbrelay:session:"

// RedisStore persists the user → session mapping in Redis. Every Set resets
// the retention window, so a mapping expires only after the user has been
// silent for the full TTL; after expiry the next Get returns "" and a fresh
// Engine session starts transparently.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the Redis instance at rawURL
// (redis://[user:pass@]host:port/db) and verifies the connection.
func NewRedisStore(ctx context.Context, rawURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Get(ctx context.Context, userID string) (string, error) {
	val, err := s.client.Get(ctx, keyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, userID, sessionID string) error {
	if err := s.client.Set(ctx, keyPrefix+userID, sessionID, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
