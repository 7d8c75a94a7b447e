package cachebackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisBackend is a Backend over a single Redis database, grounded on the
// teacher's RedisClient (core/redis_client.go): a namespaced key prefix
// plus plain Get/Set over go-redis, generalized here to round-trip
// arbitrary values through JSON rather than the teacher's string-only
// namespace operations.
type RedisBackend struct {
	client    *redis.Client
	namespace string
}

// NewRedisBackend wraps client, prefixing every key with namespace+":" the
// way the teacher's RedisClient.formatKey does.
func NewRedisBackend(client *redis.Client, namespace string) *RedisBackend {
	return &RedisBackend{client: client, namespace: namespace}
}

func (b *RedisBackend) DisplayName() string { return "redis" }

func (b *RedisBackend) formatKey(key string) string {
	if b.namespace == "" {
		return key
	}
	return b.namespace + ":" + key
}

func (b *RedisBackend) Get(ctx context.Context, key string) (interface{}, bool, error) {
	raw, err := b.client.Get(ctx, b.formatKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cachebackend: redis get %s: %w", key, err)
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, fmt.Errorf("cachebackend: decode %s: %w", key, err)
	}
	return value, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cachebackend: encode %s: %w", key, err)
	}
	if err := b.client.Set(ctx, b.formatKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cachebackend: redis set %s: %w", key, err)
	}
	return nil
}
