package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a shared Redis so that multiple instances
// see the same dedup window. Redis handles TTL eviction itself.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore from a Redis URL.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) ShouldProcess(ctx context.Context, messageID string) (bool, error) {
	n, err := s.client.Exists(ctx, messageKey(messageID)).Result()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (s *RedisStore) MarkProcessed(ctx context.Context, messageID string) error {
	return s.client.Set(ctx, messageKey(messageID), "1", s.ttl).Err()
}

func messageKey(messageID string) string {
	return fmt.Sprintf("dedup:msg:%s", messageID)
}
