package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/ChurchDesk/internal/pkg/entitlements"
)

// DefaultFeatureTTL bounds how long a feature matrix may be served after a
// change if an invalidation was lost.
const DefaultFeatureTTL = 5 * time.Minute

// FeatureCache caches a church's computed feature matrix. It is a read
// optimisation for listings only; gated operations always evaluate live.
type FeatureCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewFeatureCache(rdb *redis.Client, ttl time.Duration) *FeatureCache {
	if ttl <= 0 {
		ttl = DefaultFeatureTTL
	}
	return &FeatureCache{rdb: rdb, ttl: ttl}
}

func featureKey(churchID uint) string {
	return fmt.Sprintf("church:%d:features", churchID)
}

// Get returns the cached matrix and whether it was present.
func (c *FeatureCache) Get(ctx context.Context, churchID uint) (map[entitlements.Feature]bool, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}
	raw, err := c.rdb.Get(ctx, featureKey(churchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var matrix map[entitlements.Feature]bool
	if err := json.Unmarshal(raw, &matrix); err != nil {
		// Corrupt entries are treated as misses and overwritten later.
		return nil, false, nil
	}
	return matrix, true, nil
}

func (c *FeatureCache) Set(ctx context.Context, churchID uint, matrix map[entitlements.Feature]bool) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(matrix)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, featureKey(churchID), raw, c.ttl).Err()
}

// Invalidate drops the cached matrix after a sponsorship, unlimited-use or
// subscription change.
func (c *FeatureCache) Invalidate(ctx context.Context, churchID uint) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, featureKey(churchID)).Err()
}
