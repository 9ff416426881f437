package infra

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"ventafacil/internal/permission"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const permCachePrefix = "perm:"

// PermissionCache keeps each user's effective permission keys in Redis for
// a short TTL. Redis failures degrade to a cache miss.
type PermissionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPermissionCache(rdb *redis.Client, ttl time.Duration) *PermissionCache {
	return &PermissionCache{rdb: rdb, ttl: ttl}
}

func permCacheKey(usuarioID int64) string {
	return permCachePrefix + strconv.FormatInt(usuarioID, 10)
}

func (c *PermissionCache) Get(ctx context.Context, usuarioID int64) (permission.Set, bool) {
	raw, err := c.rdb.Get(ctx, permCacheKey(usuarioID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Int64("user_id", usuarioID).Msg("permission cache: get failed")
		}
		return permission.Set{}, false
	}
	var keys []permission.Key
	if err := json.Unmarshal(raw, &keys); err != nil {
		return permission.Set{}, false
	}
	return permission.NewSet(keys...), true
}

func (c *PermissionCache) Set(ctx context.Context, usuarioID int64, set permission.Set) {
	data, err := json.Marshal(set.Keys())
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, permCacheKey(usuarioID), data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Int64("user_id", usuarioID).Msg("permission cache: set failed")
	}
}

func (c *PermissionCache) Invalidate(ctx context.Context, usuarioID int64) {
	if err := c.rdb.Del(ctx, permCacheKey(usuarioID)).Err(); err != nil {
		log.Warn().Err(err).Int64("user_id", usuarioID).Msg("permission cache: invalidate failed")
	}
}
