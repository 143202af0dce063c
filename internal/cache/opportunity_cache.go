// Package cache holds the Redis-backed caches: the active opportunity list,
// the dashboard stats and the alert dedup and rate limit state.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/models"
)

// Keys owned by OpportunityCache.
const (
	ActiveOpportunitiesKey = "opportunities:active"
	DashboardStatsKey      = "stats:dashboard"
)

// DefaultOpportunityTTL bounds how stale a cached listing can be when the
// sync loop fails to invalidate it.
const DefaultOpportunityTTL = 30 * time.Second

// cacheEntry wraps cached payloads with the time they were written.
type cacheEntry[T any] struct {
	Data     T         `json:"data"`
	CachedAt time.Time `json:"cached_at"`
}

// CacheStats tracks cache performance metrics.
type CacheStats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Sets          int64 `json:"sets"`
	Invalidations int64 `json:"invalidations"`
}

// HitRate returns hits as a percentage of lookups.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// OpportunityCache caches the active opportunity list and dashboard stats in
// Redis. Lookups never fail: Redis errors and corrupt entries count as misses
// so callers fall back to the database.
type OpportunityCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *logrus.Logger

	mu    sync.Mutex
	stats CacheStats
}

// NewOpportunityCache creates a new Redis-based opportunity cache.
//
// Parameters:
//
//	client: The Redis client.
//	ttl: Lifetime of each cached entry; DefaultOpportunityTTL when zero.
//	logger: Logger for Redis errors; the standard logger when nil.
//
// Returns:
//
//	*OpportunityCache: The initialized cache.
func NewOpportunityCache(client redis.Cmdable, ttl time.Duration, logger *logrus.Logger) *OpportunityCache {
	if ttl <= 0 {
		ttl = DefaultOpportunityTTL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OpportunityCache{client: client, ttl: ttl, logger: logger}
}

// GetActive returns the cached active opportunities.
func (c *OpportunityCache) GetActive(ctx context.Context) ([]models.Opportunity, bool) {
	var entry cacheEntry[[]models.Opportunity]
	if !c.get(ctx, ActiveOpportunitiesKey, &entry) {
		return nil, false
	}
	return entry.Data, true
}

// SetActive caches the active opportunity list.
func (c *OpportunityCache) SetActive(ctx context.Context, opportunities []models.Opportunity) {
	if opportunities == nil {
		opportunities = []models.Opportunity{}
	}
	c.set(ctx, ActiveOpportunitiesKey, cacheEntry[[]models.Opportunity]{Data: opportunities, CachedAt: time.Now()})
}

// GetDashboardStats returns the cached dashboard stats.
func (c *OpportunityCache) GetDashboardStats(ctx context.Context) (*models.DashboardStats, bool) {
	var entry cacheEntry[models.DashboardStats]
	if !c.get(ctx, DashboardStatsKey, &entry) {
		return nil, false
	}
	return &entry.Data, true
}

// SetDashboardStats caches the dashboard stats.
func (c *OpportunityCache) SetDashboardStats(ctx context.Context, stats *models.DashboardStats) {
	if stats == nil {
		return
	}
	c.set(ctx, DashboardStatsKey, cacheEntry[models.DashboardStats]{Data: *stats, CachedAt: time.Now()})
}

// Invalidate drops both cached views. It is called after every sync cycle
// and status change.
func (c *OpportunityCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, ActiveOpportunitiesKey, DashboardStatsKey).Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.stats.Invalidations++
	c.mu.Unlock()
	return nil
}

// Stats returns a snapshot of the cache statistics.
func (c *OpportunityCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// LogStats logs current cache performance statistics.
func (c *OpportunityCache) LogStats() {
	s := c.Stats()
	c.logger.WithFields(logrus.Fields{
		"hits":          s.Hits,
		"misses":        s.Misses,
		"sets":          s.Sets,
		"invalidations": s.Invalidations,
		"hit_rate":      s.HitRate(),
	}).Info("Opportunity cache stats")
}

func (c *OpportunityCache) get(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("key", key).Warn("Redis cache read failed")
		}
		c.record(false)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Discarding corrupt cache entry")
		c.record(false)
		return false
	}
	c.record(true)
	return true
}

func (c *OpportunityCache) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("Failed to encode cache entry")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis cache write failed")
		return
	}
	c.mu.Lock()
	c.stats.Sets++
	c.mu.Unlock()
}

func (c *OpportunityCache) record(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
}
