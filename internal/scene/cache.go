package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"autoclip/pkg/metrics"
)

// FeatureCache caches the extracted audio feature map per content asset so
// concurrently executing rules over the same asset do not recompute the
// extraction. Entries expire after the TTL and are only checked lazily on
// the next access.
type FeatureCache interface {
	Get(ctx context.Context, contentID string) (map[string]AudioFeatures, bool, error)
	Set(ctx context.Context, contentID string, features map[string]AudioFeatures) error
}

const featureKeyPrefix = "audio:features:"

type RedisFeatureCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFeatureCache(client *redis.Client, ttl time.Duration) *RedisFeatureCache {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &RedisFeatureCache{client: client, ttl: ttl}
}

func (c *RedisFeatureCache) Get(ctx context.Context, contentID string) (map[string]AudioFeatures, bool, error) {
	val, err := c.client.Get(ctx, featureKeyPrefix+contentID).Result()
	if err == redis.Nil {
		metrics.FeatureCacheHitsTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var features map[string]AudioFeatures
	if err := json.Unmarshal([]byte(val), &features); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached features: %w", err)
	}

	metrics.FeatureCacheHitsTotal.WithLabelValues("hit").Inc()
	return features, true, nil
}

func (c *RedisFeatureCache) Set(ctx context.Context, contentID string, features map[string]AudioFeatures) error {
	body, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}
	if err := c.client.Set(ctx, featureKeyPrefix+contentID, body, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// MemoryFeatureCache is the in-process variant used in tests and single-node
// deployments. Expired entries are not evicted, only skipped on read.
type MemoryFeatureCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	features map[string]AudioFeatures
	storedAt time.Time
}

func NewMemoryFeatureCache(ttl time.Duration) *MemoryFeatureCache {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &MemoryFeatureCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryFeatureCache) Get(_ context.Context, contentID string) (map[string]AudioFeatures, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[contentID]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.storedAt) > c.ttl {
		metrics.FeatureCacheHitsTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}

	metrics.FeatureCacheHitsTotal.WithLabelValues("hit").Inc()
	return entry.features, true, nil
}

func (c *MemoryFeatureCache) Set(_ context.Context, contentID string, features map[string]AudioFeatures) error {
	c.mu.Lock()
	c.entries[contentID] = memoryEntry{features: features, storedAt: c.now()}
	c.mu.Unlock()
	return nil
}
