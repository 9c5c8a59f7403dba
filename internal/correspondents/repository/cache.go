package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"jurisconnect_backend/internal/correspondents/matcher"
	"jurisconnect_backend/platform/logger"
)

const poolKeyPrefix = "correspondents:pool:"

// PoolCache keeps per-state matching pool snapshots in Redis. A stale
// snapshot only risks a marginally suboptimal match, never a correctness
// violation, so cache errors degrade to a database read.
type PoolCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewPoolCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *PoolCache {
	return &PoolCache{client: client, ttl: ttl, log: log}
}

// Get returns the cached pool for a state, or ok=false on miss or error.
func (c *PoolCache) Get(ctx context.Context, state string) ([]matcher.Profile, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, poolKeyPrefix+state).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("pool cache read failed", "state", state, "error", err)
		}
		return nil, false
	}
	var pool []matcher.Profile
	if err := json.Unmarshal(raw, &pool); err != nil {
		c.log.Warn("pool cache entry corrupt", "state", state, "error", err)
		return nil, false
	}
	return pool, true
}

// Set stores a pool snapshot. Failures are logged and ignored.
func (c *PoolCache) Set(ctx context.Context, state string, pool []matcher.Profile) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(pool)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, poolKeyPrefix+state, raw, c.ttl).Err(); err != nil {
		c.log.Warn("pool cache write failed", "state", state, "error", err)
	}
}

// Invalidate drops the snapshot for a state after a profile mutation.
func (c *PoolCache) Invalidate(ctx context.Context, state string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, poolKeyPrefix+state).Err(); err != nil {
		c.log.Warn("pool cache invalidation failed", "state", state, "error", err)
	}
}
