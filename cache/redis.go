package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a CacheProvider backed by a shared Redis instance.
// Use it when several middleware deployments (e.g. separate reader and
// writer processes) must see the same namespace tokens.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) RedisCache {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return RedisCache{client: client}
}

func (r RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

func (r RedisCache) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r RedisCache) Purge(ctx context.Context, key string) {
	r.client.Del(ctx, key)
}
