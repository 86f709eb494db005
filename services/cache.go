package services

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CacheVersionKey is bumped whenever an import changes the catalog. Readers
// embed the version in their cache keys, so a bump orphans every cached page.
const CacheVersionKey = "catalog:version"

// CacheInvalidator drops cached catalog views.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// CacheManager handles catalog cache versioning in Redis
type CacheManager struct {
	redis *redis.Client
}

func NewCacheManager(rdb *redis.Client) *CacheManager {
	return &CacheManager{redis: rdb}
}

// Invalidate invalidates all catalog caches by bumping the version
func (cm *CacheManager) Invalidate(ctx context.Context) error {
	if cm == nil || cm.redis == nil {
		return nil
	}
	newVersion, err := cm.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	zap.L().Info("Cache invalidated", zap.Int64("new_version", newVersion))
	return nil
}

// Version returns the current cache version, 0 when it was never bumped.
func (cm *CacheManager) Version(ctx context.Context) (int64, error) {
	ver, err := cm.redis.Get(ctx, CacheVersionKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return ver, err
}
