package api

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/biomarker-recon-server/internal/domain"
)

// ResultCache caches reconciliation results in redis, keyed by a digest of
// the input batch. Identical batches are pure recomputations, so serving the
// stored result is always safe until the catalog changes; the TTL bounds how
// stale a result can get after an override edit.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

// NewResultCache connects to redis using the cache configuration.
func NewResultCache(cfg domain.CacheConfig, logger *logrus.Logger) (*ResultCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	logger.WithField("ttl", ttl).Info("Result cache connected")
	return &ResultCache{client: client, ttl: ttl, log: logger}, nil
}

// Get returns the cached result for this batch, if any. Cache failures are
// logged and treated as misses.
func (c *ResultCache) Get(ctx context.Context, docs []domain.DocumentInput) (*domain.ReconciliationResult, bool) {
	key, err := batchKey(docs)
	if err != nil {
		return nil, false
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("Result cache read failed")
		}
		return nil, false
	}

	var result domain.ReconciliationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		c.log.WithError(err).Warn("Dropping undecodable cache entry")
		c.client.Del(ctx, key)
		return nil, false
	}
	return &result, true
}

// Set stores a result for this batch. Failures are logged, never fatal.
func (c *ResultCache) Set(ctx context.Context, docs []domain.DocumentInput, result *domain.ReconciliationResult) {
	key, err := batchKey(docs)
	if err != nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		c.log.WithError(err).Warn("Failed to encode result for cache")
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("Result cache write failed")
	}
}

// Close releases the redis connection.
func (c *ResultCache) Close() error {
	return c.client.Close()
}

func batchKey(docs []domain.DocumentInput) (string, error) {
	payload, err := json.Marshal(docs)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(payload)
	return fmt.Sprintf("recon:batch:%x", digest), nil
}
