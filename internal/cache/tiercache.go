// Package cache holds the optional Redis-backed cache for resolved
// entitlement tiers. The cache only short-circuits the user-document
// read; a miss or any Redis failure falls back to resolving from the
// store, so the service runs fine without Redis at all.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"innerlab/internal/entitlement"
)

// TierCache caches ResolveTier output per user id with a short TTL.
// Entries expire rather than being invalidated; a tier change becomes
// visible within the TTL window.
type TierCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// NewTierCache connects to Redis at addr. Returns nil when addr is
// empty, which callers treat as "cache disabled".
func NewTierCache(addr string, ttl time.Duration, log *zap.Logger) *TierCache {
	if addr == "" {
		return nil
	}
	return &TierCache{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
		log: log,
	}
}

func tierKey(userID string) string {
	return "innerlab:tier:" + userID
}

// Get returns the cached tier for userID, if present.
func (c *TierCache) Get(ctx context.Context, userID string) (entitlement.Tier, bool) {
	if c == nil {
		return entitlement.TierFree, false
	}
	label, err := c.rdb.Get(ctx, tierKey(userID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("tier cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
		return entitlement.TierFree, false
	}
	tier, ok := entitlement.ParseTier(label)
	return tier, ok
}

// Put stores the resolved tier. Best-effort.
func (c *TierCache) Put(ctx context.Context, userID string, tier entitlement.Tier) {
	if c == nil {
		return
	}
	if err := c.rdb.Set(ctx, tierKey(userID), tier.String(), c.ttl).Err(); err != nil {
		c.log.Debug("tier cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
}
