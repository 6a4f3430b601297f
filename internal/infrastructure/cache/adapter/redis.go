package adapter

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"go-duet/internal/infrastructure/cache/port"
)

// RedisCache satisfies port.Cache on top of a shared go-redis v9 client.
// The client is owned by the caller; Close here is a no-op on it so the same
// client can also back the push channel.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an already-connected client.
func NewRedisCache(client *redis.Client) (*RedisCache, error) {
	if client == nil {
		return nil, errors.New("redis cache: nil client")
	}
	return &RedisCache{client: client}, nil
}

var _ port.Cache = (*RedisCache)(nil)

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	res, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", port.ErrMiss
	}
	if err != nil {
		return "", err
	}
	return res, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = port.NoExpiration
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return r.client.Del(ctx, keys...).Result()
}

func (r *RedisCache) Close() error {
	// Shared client; lifecycle belongs to the composition root.
	return nil
}
