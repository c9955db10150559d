package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"class-election/internal/domain"
	"class-election/pkg/redis"

	"go.uber.org/zap"
)

// CacheService keeps computed tallies in Redis using cache-aside. A nil
// Redis client turns every call into a pass-through.
//
// A tally loaded while InvalidateResults runs in this process is never left
// in the cache. Invalidations from other processes only reach this one
// through Redis, so a tally they overlap can stay cached for at most ttl.
type CacheService struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	// generation is bumped by every InvalidateResults.
	generation atomic.Uint64
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *CacheService {
	if ttl <= 0 {
		ttl = redis.TTLResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// Enabled reports whether a Redis backend is attached.
func (c *CacheService) Enabled() bool {
	return c != nil && c.redis != nil
}

// TalliesWithCache returns the tallies for one position (positionID set) or
// all active positions, loading them with dbFallback on a miss. Cache errors
// never fail the request.
func (c *CacheService) TalliesWithCache(ctx context.Context, positionID *int64, dbFallback func(ctx context.Context) ([]domain.PositionTally, error)) ([]domain.PositionTally, error) {
	if !c.Enabled() {
		return dbFallback(ctx)
	}

	cacheKey := c.talliesKey(positionID)

	cached, err := c.redis.Get(ctx, cacheKey)
	switch {
	case err == nil:
		var tallies []domain.PositionTally
		if jsonErr := json.Unmarshal([]byte(cached), &tallies); jsonErr == nil {
			c.logger.Debug("Tally cache hit", zap.String("key", cacheKey))
			return tallies, nil
		} else {
			c.logger.Warn("Tally cache corrupted, falling back to database",
				zap.String("key", cacheKey),
				zap.Error(jsonErr))
		}
	case errors.Is(err, redis.Nil):
		c.logger.Debug("Tally cache miss", zap.String("key", cacheKey))
	default:
		c.logger.Warn("Tally cache error, falling back to database",
			zap.String("key", cacheKey),
			zap.Error(err))
	}

	generation := c.generation.Load()
	tallies, err := dbFallback(ctx)
	if err != nil {
		return nil, err
	}
	if c.generation.Load() != generation {
		c.logger.Debug("Results invalidated during load, not caching", zap.String("key", cacheKey))
		return tallies, nil
	}

	data, err := json.Marshal(tallies)
	if err != nil {
		c.logger.Error("Failed to marshal tallies for caching", zap.Error(err))
		return tallies, nil
	}
	if err := c.redis.Set(ctx, cacheKey, string(data), c.ttl); err != nil {
		c.logger.Warn("Failed to cache tallies", zap.String("key", cacheKey), zap.Error(err))
		return tallies, nil
	}
	// An invalidation may have deleted the key just before Set landed.
	if c.generation.Load() != generation {
		if err := c.redis.Delete(ctx, cacheKey); err != nil {
			c.logger.Warn("Failed to drop stale tallies", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return tallies, nil
}

// InvalidateResults drops every cached tally. It runs on a detached context
// so a cancelled request still clears stale results.
func (c *CacheService) InvalidateResults() {
	if !c.Enabled() {
		return
	}

	c.generation.Add(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	kb := c.redis.KeyBuilder
	if err := c.redis.Delete(ctx, kb.KeyResultsAll()); err != nil {
		c.logger.Error("Failed to invalidate results key", zap.Error(err))
	}
	if err := c.redis.InvalidatePattern(ctx, kb.KeyResultsPattern()); err != nil {
		c.logger.Error("Failed to invalidate results pattern", zap.Error(err))
	}
	c.logger.Debug("Results caches invalidated")
}

// HealthCheck performs a health check on the cache system
func (c *CacheService) HealthCheck(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	start := time.Now()
	err := c.redis.Health(ctx)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("Cache health check failed",
			zap.Duration("duration", duration),
			zap.Error(err))
		return err
	}

	c.logger.Debug("Cache health check passed", zap.Duration("duration", duration))
	return nil
}

func (c *CacheService) talliesKey(positionID *int64) string {
	if positionID != nil {
		return c.redis.KeyBuilder.KeyResultsPosition(*positionID)
	}
	return c.redis.KeyBuilder.KeyResultsAll()
}
