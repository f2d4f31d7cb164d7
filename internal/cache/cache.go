// Package cache provides a Redis-backed store for computed
// predictions so repeated requests for the same race skip the model
// entirely.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/models"
)

// PredictionCache caches full per-race prediction sets keyed by race
// and model version.
type PredictionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewPredictionCache(cfg config.RedisConfig, logger *logrus.Logger) (*PredictionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &PredictionCache{
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
		logger: logger,
	}, nil
}

func predictionKey(raceID string, modelVersion string) string {
	return fmt.Sprintf("gridline:predictions:%s:%s", raceID, modelVersion)
}

// Get returns the cached predictions for a race, or (nil, nil) on a
// cache miss.
func (c *PredictionCache) Get(ctx context.Context, raceID, modelVersion string) ([]*models.Prediction, error) {
	raw, err := c.client.Get(ctx, predictionKey(raceID, modelVersion)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var preds []*models.Prediction
	if err := json.Unmarshal(raw, &preds); err != nil {
		// A corrupt entry is treated as a miss rather than an outage.
		c.logger.WithError(err).WithField("race_id", raceID).Warn("Dropping corrupt cached predictions")
		c.client.Del(ctx, predictionKey(raceID, modelVersion))
		return nil, nil
	}
	return preds, nil
}

// Set stores a race's predictions with the configured TTL.
func (c *PredictionCache) Set(ctx context.Context, raceID, modelVersion string, preds []*models.Prediction) error {
	raw, err := json.Marshal(preds)
	if err != nil {
		return fmt.Errorf("marshal predictions: %w", err)
	}
	if err := c.client.Set(ctx, predictionKey(raceID, modelVersion), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate removes a race's cached predictions, typically after a
// new model version goes active.
func (c *PredictionCache) Invalidate(ctx context.Context, raceID, modelVersion string) error {
	return c.client.Del(ctx, predictionKey(raceID, modelVersion)).Err()
}

func (c *PredictionCache) Close() error {
	return c.client.Close()
}
