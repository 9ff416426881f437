package authstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisBackend namespaces keys under a per-terminal prefix.
type RedisBackend struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisBackend(rdb *redis.Client, terminal string) *RedisBackend {
	return &RedisBackend{rdb: rdb, prefix: "authstore:" + terminal + ":"}
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := b.rdb.Get(ctx, b.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	return b.rdb.Set(ctx, b.prefix+key, value, 0).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = b.prefix + k
	}
	return b.rdb.Del(ctx, full...).Err()
}
