package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV stores entries as plain Redis strings under an optional namespace.
type RedisKV struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisKV returns a KV over client. Keys are stored as namespace+key.
// A zero ttl keeps entries until deleted.
func NewRedisKV(client *redis.Client, namespace string, ttl time.Duration) *RedisKV {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisKV{client: client, namespace: namespace, ttl: ttl}
}

func (s *RedisKV) key(k string) string {
	return s.namespace + k
}

func (s *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (s *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisKV) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
