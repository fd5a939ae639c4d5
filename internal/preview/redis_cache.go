package preview

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares previews between server instances.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: "preview:"}
}

func (c *RedisCache) Get(ctx context.Context, url string) (*Result, bool, error) {
	data, err := c.rdb.Get(ctx, c.prefix+url).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, err
	}
	return &r, true, nil
}

func (c *RedisCache) Set(ctx context.Context, url string, r *Result, ttl time.Duration) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.prefix+url, data, ttl).Err()
}
