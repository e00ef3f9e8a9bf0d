package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps the blob under a single Redis string key.
type RedisCache struct {
	rdb *redis.Client
	key string
}

// NewRedisCache wraps an existing client.
func NewRedisCache(rdb *redis.Client, key string) *RedisCache {
	return &RedisCache{rdb: rdb, key: key}
}

// DialRedis connects to addr and verifies the connection with a PING.
func DialRedis(ctx context.Context, addr, password string, db int, key string) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisCache(rdb, key), nil
}

func (c *RedisCache) Backend() string { return "redis" }

func (c *RedisCache) Read(ctx context.Context) (string, error) {
	val, err := c.rdb.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", c.key, err)
	}
	return val, nil
}

// Write uses APPEND for appends, which Redis applies atomically to the key.
func (c *RedisCache) Write(ctx context.Context, content string, appending bool) error {
	var err error
	if appending {
		err = c.rdb.Append(ctx, c.key, content).Err()
	} else {
		err = c.rdb.Set(ctx, c.key, content, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("redis write %s: %w", c.key, err)
	}
	return nil
}

func (c *RedisCache) Clear(ctx context.Context) error {
	return c.Write(ctx, "", false)
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
