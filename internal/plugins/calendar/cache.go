package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/almanac/internal/plugins/calendar/layout"
)

// Redis keys used by the layout cache.
const (
	layoutRevisionKey = "calendar:layout:rev"
	layoutKeyPrefix   = "calendar:layout:v1:"
)

// LayoutCache stores computed layouts. Entries are keyed by a revision
// counter that every event write bumps, so stale layouts are never read
// and simply expire.
type LayoutCache interface {
	Get(ctx context.Context, key string) (*layout.LayoutModel, bool)
	Set(ctx context.Context, key string, m *layout.LayoutModel)
	Key(ctx context.Context, parts ...string) (string, bool)
	Invalidate(ctx context.Context)
}

// redisLayoutCache is the Redis implementation of LayoutCache. Failures
// are logged and treated as misses; the cache never fails a request.
type redisLayoutCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewLayoutCache creates a Redis-backed layout cache. A nil client returns
// a cache that never hits.
func NewLayoutCache(rdb *redis.Client, ttl time.Duration) LayoutCache {
	if rdb == nil || ttl <= 0 {
		return noopCache{}
	}
	return &redisLayoutCache{redis: rdb, ttl: ttl}
}

// Key builds a cache key from the current revision and the given parts.
// It reports false when the revision cannot be read.
func (c *redisLayoutCache) Key(ctx context.Context, parts ...string) (string, bool) {
	rev, err := c.redis.Get(ctx, layoutRevisionKey).Int64()
	if err != nil && err != redis.Nil {
		slog.Warn("layout cache: reading revision", slog.Any("error", err))
		return "", false
	}
	key := fmt.Sprintf("%s%d", layoutKeyPrefix, rev)
	for _, p := range parts {
		key += ":" + p
	}
	return key, true
}

// Get returns the cached layout for key.
func (c *redisLayoutCache) Get(ctx context.Context, key string) (*layout.LayoutModel, bool) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("layout cache: get", slog.String("key", key), slog.Any("error", err))
		return nil, false
	}

	var m layout.LayoutModel
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Warn("layout cache: decoding entry", slog.String("key", key), slog.Any("error", err))
		return nil, false
	}
	return &m, true
}

// Set stores a layout under key with the cache TTL.
func (c *redisLayoutCache) Set(ctx context.Context, key string, m *layout.LayoutModel) {
	data, err := json.Marshal(m)
	if err != nil {
		slog.Warn("layout cache: encoding entry", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("layout cache: set", slog.String("key", key), slog.Any("error", err))
	}
}

// Invalidate bumps the revision, orphaning every cached layout.
func (c *redisLayoutCache) Invalidate(ctx context.Context) {
	if err := c.redis.Incr(ctx, layoutRevisionKey).Err(); err != nil {
		slog.Warn("layout cache: bumping revision", slog.Any("error", err))
	}
}

// noopCache is used when Redis is not configured.
type noopCache struct{}

func (noopCache) Get(context.Context, string) (*layout.LayoutModel, bool) { return nil, false }
func (noopCache) Set(context.Context, string, *layout.LayoutModel) {}
func (noopCache) Key(context.Context, ...string) (string, bool) { return "", false }
func (noopCache) Invalidate(context.Context) {}
