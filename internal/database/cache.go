package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/painradar/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Cache implementation on Redis
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewCache(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// Cache key constants
const (
	StatsKey       = "pipeline:stats"
	ScorecardKey   = "session:scorecard:%d"
	extractionLock = "pipeline:extraction:lock"
)

// CacheStats caches the aggregate stats response
func (c *Cache) CacheStats(ctx context.Context, stats *models.StatsResponse, expiration time.Duration) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	return c.client.Set(ctx, StatsKey, data, expiration).Err()
}

// GetCachedStats retrieves the cached stats response
func (c *Cache) GetCachedStats(ctx context.Context) (*models.StatsResponse, error) {
	data, err := c.client.Get(ctx, StatsKey).Result()
	if err != nil {
		return nil, err
	}

	var stats models.StatsResponse
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, err
	}

	return &stats, nil
}

// InvalidateStats removes the cached stats after pipeline writes
func (c *Cache) InvalidateStats(ctx context.Context) error {
	return c.client.Del(ctx, StatsKey).Err()
}

// CacheScorecard caches a completed session scorecard
func (c *Cache) CacheScorecard(ctx context.Context, sessionID uint, card *models.Scorecard, expiration time.Duration) error {
	data, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal scorecard: %w", err)
	}

	key := fmt.Sprintf(ScorecardKey, sessionID)
	return c.client.Set(ctx, key, data, expiration).Err()
}

// GetCachedScorecard retrieves a cached scorecard
func (c *Cache) GetCachedScorecard(ctx context.Context, sessionID uint) (*models.Scorecard, error) {
	key := fmt.Sprintf(ScorecardKey, sessionID)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var card models.Scorecard
	if err := json.Unmarshal([]byte(data), &card); err != nil {
		return nil, err
	}

	return &card, nil
}

// AcquireExtractionLock takes the single-writer lock for extraction sessions.
// The session tracker's candidate selection is read-then-write, so two
// concurrent sessions could extract the same raw item; the host acquires this
// lock before starting a run. Returns false when another run holds it.
func (c *Cache) AcquireExtractionLock(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, extractionLock, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire extraction lock: %w", err)
	}
	return ok, nil
}

// ReleaseExtractionLock frees the single-writer lock
func (c *Cache) ReleaseExtractionLock(ctx context.Context) error {
	if err := c.client.Del(ctx, extractionLock).Err(); err != nil {
		c.logger.WithError(err).Warn("Failed to release extraction lock")
		return err
	}
	return nil
}
