// Package contractcache invalidates the smart contract lookups the lending
// platform keeps in redis.
package contractcache

import (
	"context"
	"fmt"

	"lendingops/internal/config"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) Cache {
	return Cache{client: client}
}

// Open connects and pings the configured redis, the returned client must
// be closed by the caller.
func Open(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	err := client.Ping(ctx).Err()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// Invalidate deletes key and reports whether it existed. A key that is not
// there is not an error.
func (c Cache) Invalidate(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("del %s: %w", key, err)
	}
	return n == 1, nil
}
