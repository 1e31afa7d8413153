package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"

	"vitalsense/internal/models"
)

// InsightCache caches computed assessments and nudges per user. The insight
// engine itself is stateless; caching lives here, in the caller layer.
// Backed by Redis when configured so instances share entries, with an
// in-process TTL cache otherwise.
type InsightCache struct {
	redisService *RedisService // may be nil
	local        *cache.Cache
	ttl          time.Duration
}

// NewInsightCache creates an insight cache with the given TTL
func NewInsightCache(redisService *RedisService, ttl time.Duration) *InsightCache {
	return &InsightCache{
		redisService: redisService,
		local:        cache.New(ttl, 10*time.Minute),
		ttl:          ttl,
	}
}

func stabilityKey(userID string) string {
	return fmt.Sprintf("insights:stability:%s", userID)
}

func nudgesKey(userID string) string {
	return fmt.Sprintf("insights:nudges:%s", userID)
}

// GetStability returns a cached assessment, if fresh
func (c *InsightCache) GetStability(ctx context.Context, userID string) (*models.StabilityAssessment, bool) {
	var assessment models.StabilityAssessment
	if c.lookup(ctx, stabilityKey(userID), &assessment) {
		return &assessment, true
	}
	return nil, false
}

// SetStability caches an assessment for the configured TTL
func (c *InsightCache) SetStability(ctx context.Context, userID string, assessment *models.StabilityAssessment) {
	c.store(ctx, stabilityKey(userID), assessment)
}

// GetNudges returns a cached nudge set, if fresh
func (c *InsightCache) GetNudges(ctx context.Context, userID string) (*models.NudgeSet, bool) {
	var nudges models.NudgeSet
	if c.lookup(ctx, nudgesKey(userID), &nudges) {
		return &nudges, true
	}
	return nil, false
}

// SetNudges caches a nudge set for the configured TTL
func (c *InsightCache) SetNudges(ctx context.Context, userID string, nudges *models.NudgeSet) {
	c.store(ctx, nudgesKey(userID), nudges)
}

// Invalidate drops every cached insight for a user (the explicit
// "refresh insights" path)
func (c *InsightCache) Invalidate(ctx context.Context, userID string) {
	keys := []string{stabilityKey(userID), nudgesKey(userID)}
	if c.redisService != nil {
		_ = c.redisService.Delete(ctx, keys...)
	}
	for _, key := range keys {
		c.local.Delete(key)
	}
}

// lookup reads a value from Redis first, then the local cache
func (c *InsightCache) lookup(ctx context.Context, key string, out interface{}) bool {
	if c.redisService != nil {
		raw, err := c.redisService.Get(ctx, key)
		if err == nil {
			if jsonErr := json.Unmarshal([]byte(raw), out); jsonErr == nil {
				return true
			}
		}
		if IsNil(err) {
			// An authoritative miss: a local entry could outlive an
			// invalidation done by another instance, so don't consult it
			return false
		}
		// Redis being unreachable degrades to the local cache
	}

	if value, found := c.local.Get(key); found {
		raw, ok := value.([]byte)
		if ok && json.Unmarshal(raw, out) == nil {
			return true
		}
	}

	return false
}

// store writes a value to both backends
func (c *InsightCache) store(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}

	if c.redisService != nil {
		_ = c.redisService.Set(ctx, key, string(raw), c.ttl)
	}
	c.local.Set(key, raw, cache.DefaultExpiration)
}
