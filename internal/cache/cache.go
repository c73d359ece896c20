// Package cache memoizes extraction results in Redis keyed by a content
// hash, so re-submitted posts skip the model call.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edgeguard-ai/edgeguard/internal/extractor"
)

const keyPrefix = "edgeguard:extract:"

// ExtractionCache wraps a Redis client. A nil client disables caching;
// every lookup misses and stores are no-ops.
type ExtractionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *ExtractionCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &ExtractionCache{client: client, ttl: ttl}
}

// NewFromAddr dials Redis and verifies the connection.
func NewFromAddr(ctx context.Context, addr, password string, db int, ttl time.Duration) (*ExtractionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(client, ttl), nil
}

// contentKey hashes the sanitized content. The first 8 bytes of an md5
// digest are plenty for a cache key.
func contentKey(content string) string {
	sum := md5.Sum([]byte(content))
	return keyPrefix + hex.EncodeToString(sum[:8])
}

func (c *ExtractionCache) Get(ctx context.Context, content string) (*extractor.Result, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, contentKey(content)).Bytes()
	if err != nil {
		return nil, false
	}
	var res extractor.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (c *ExtractionCache) Set(ctx context.Context, content string, res *extractor.Result) {
	if c == nil || c.client == nil || res == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	c.client.Set(ctx, contentKey(content), raw, c.ttl)
}

func (c *ExtractionCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
