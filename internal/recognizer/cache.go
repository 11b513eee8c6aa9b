package recognizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/privashield/leakwatch/internal/metrics"
)

const cacheKeyPrefix = "leakwatch:recognizer:"

// RedisClient is the part of *redis.Client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedRecognizer is a read-through Redis cache in front of another
// recognizer. Redis faults never fail a detection; the call falls through to
// the wrapped recognizer.
type CachedRecognizer struct {
	next    Recognizer
	client  RedisClient
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type CacheOption func(*CachedRecognizer)

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CachedRecognizer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *CachedRecognizer) {
		c.metrics = m
	}
}

func NewCachedRecognizer(next Recognizer, client RedisClient, ttl time.Duration, opts ...CacheOption) *CachedRecognizer {
	c := &CachedRecognizer{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedRecognizer) Detect(ctx context.Context, text, language string) ([]Entity, error) {
	key := cacheKey(language, text)

	if entities, ok := c.lookup(ctx, key); ok {
		c.metrics.ObserveCacheLookup(true)
		return entities, nil
	}
	c.metrics.ObserveCacheLookup(false)

	entities, err := c.next.Detect(ctx, text, language)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(entities)
	if err != nil {
		c.logger.Warn("encoding recognizer result for cache", "error", err)
		return entities, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("writing recognizer cache", "error", err)
	}
	return entities, nil
}

func (c *CachedRecognizer) lookup(ctx context.Context, key string) ([]Entity, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("reading recognizer cache", "error", err)
		}
		return nil, false
	}

	var entities []Entity
	if err := json.Unmarshal(val, &entities); err != nil {
		c.logger.Warn("decoding cached recognizer result", "error", err)
		return nil, false
	}
	return entities, true
}

// cacheKey hashes the language and text so raw text never reaches Redis.
func cacheKey(language, text string) string {
	sum := sha256.Sum256([]byte(language + "\x00" + text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
