package biz

import (
	"context"
	"errors"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ai-nk/rag-service/pkg/utils/json"

	"github.com/ai-nk/rag-service/internal/model"
	"github.com/ai-nk/rag-service/internal/pkg/textutil"
)

// AnswerCacheConfig configures the consultation answer cache.
type AnswerCacheConfig struct {
	Enabled   bool
	TTL       time.Duration
	KeyPrefix string
}

// AnswerCache caches consultation answers in Redis, keyed by the SHA-256 of
// the question. A disabled or nil-client cache is a no-op: Get always
// misses, Set always succeeds.
type AnswerCache struct {
	redis  *goredis.Client
	config AnswerCacheConfig
}

// NewAnswerCache creates the cache.
func NewAnswerCache(redis *goredis.Client, config AnswerCacheConfig) *AnswerCache {
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rag:answer:"
	}
	return &AnswerCache{redis: redis, config: config}
}

func (c *AnswerCache) enabled() bool {
	return c.config.Enabled && c.redis != nil
}

func (c *AnswerCache) key(question string) string {
	return c.config.KeyPrefix + textutil.HashString(question)
}

// Get returns the cached answer or nil on a miss. Redis failures degrade to
// a miss.
func (c *AnswerCache) Get(ctx context.Context, question string) *model.ConsultationResult {
	if !c.enabled() {
		return nil
	}

	cacheKey := c.key(question)
	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			logger.Warnw("answer cache read failed", "key", cacheKey, "error", err)
		}
		return nil
	}

	var result model.ConsultationResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("dropping corrupt cache entry", "key", cacheKey, "error", err)
		_ = c.redis.Del(ctx, cacheKey).Err()
		return nil
	}
	return &result
}

// Set stores an answer. Failures are logged, not returned: caching is best
// effort.
func (c *AnswerCache) Set(ctx context.Context, question string, result *model.ConsultationResult) {
	if !c.enabled() || result == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("answer cache marshal failed", "error", err)
		return
	}

	cacheKey := c.key(question)
	if err := c.redis.Set(ctx, cacheKey, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("answer cache write failed", "key", cacheKey, "error", err)
	}
}

// Clear removes all cached answers and returns how many were deleted.
func (c *AnswerCache) Clear(ctx context.Context) (int, error) {
	if !c.enabled() {
		return 0, nil
	}

	deleted := 0
	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "key", iter.Val(), "error", err)
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}

	logger.Infow("answer cache cleared", "deleted", deleted)
	return deleted, nil
}

// Stats reports cache configuration and key count.
func (c *AnswerCache) Stats(ctx context.Context) map[string]any {
	if !c.enabled() {
		return map[string]any{"enabled": false}
	}

	keyCount := 0
	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keyCount++
	}
	if err := iter.Err(); err != nil {
		logger.Warnw("answer cache scan failed", "error", err)
	}

	return map[string]any{
		"enabled":    true,
		"key_count":  keyCount,
		"ttl":        c.config.TTL.String(),
		"key_prefix": c.config.KeyPrefix,
	}
}
