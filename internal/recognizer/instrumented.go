package recognizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/privashield/leakwatch/internal/metrics"
)

const (
	ProviderComprehend = "comprehend"
	ProviderRules      = "rules"
)

type instrumented struct {
	provider string
	next     Recognizer
	metrics  *metrics.Metrics
}

// Instrument records call count, failures and latency for next.
func Instrument(provider string, next Recognizer, m *metrics.Metrics) Recognizer {
	return &instrumented{provider: provider, next: next, metrics: m}
}

func (r *instrumented) Detect(ctx context.Context, text, language string) ([]Entity, error) {
	start := time.Now()
	entities, err := r.next.Detect(ctx, text, language)
	r.metrics.ObserveRecognizerCall(r.provider, time.Since(start), err)
	return entities, err
}

// Config selects and tunes the recognizer chain built by New.
type Config struct {
	Provider   string
	Comprehend ComprehendConfig
	CacheTTL   time.Duration
}

// New builds the configured provider, wraps it with metrics and, when redis
// is non-nil and CacheTTL is positive, a read-through cache.
func New(ctx context.Context, cfg Config, rdb *redis.Client, m *metrics.Metrics, logger *slog.Logger) (Recognizer, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderRules
	}

	var base Recognizer
	switch provider {
	case ProviderComprehend:
		c, err := NewComprehendRecognizer(ctx, cfg.Comprehend)
		if err != nil {
			return nil, err
		}
		base = c
	case ProviderRules:
		base = NewRuleBasedRecognizer()
	default:
		return nil, fmt.Errorf("unknown recognizer provider %q", cfg.Provider)
	}

	r := Instrument(provider, base, m)
	if rdb != nil && cfg.CacheTTL > 0 {
		r = NewCachedRecognizer(r, rdb, cfg.CacheTTL, WithCacheLogger(logger), WithCacheMetrics(m))
	}
	return r, nil
}
