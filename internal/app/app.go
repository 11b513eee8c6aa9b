// Package app assembles the service from configuration. Both binaries build
// their dependencies here so the server and the CLI read the same event log
// the same way.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/privashield/leakwatch/internal/analytics"
	"github.com/privashield/leakwatch/internal/api"
	"github.com/privashield/leakwatch/internal/auth"
	"github.com/privashield/leakwatch/internal/classifier"
	"github.com/privashield/leakwatch/internal/config"
	"github.com/privashield/leakwatch/internal/detection"
	"github.com/privashield/leakwatch/internal/metrics"
	"github.com/privashield/leakwatch/internal/notifications"
	"github.com/privashield/leakwatch/internal/recognizer"
	"github.com/privashield/leakwatch/internal/reports"
	"github.com/privashield/leakwatch/internal/scheduler"
	"github.com/privashield/leakwatch/internal/store"
)

// EventStore is an event log the app can health-check and release.
type EventStore interface {
	store.EventStore
	Ping(ctx context.Context) error
	Close() error
}

type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Store      EventStore
	Redis      *redis.Client
	Recognizer recognizer.Recognizer
	Detector   *detection.Service
	Aggregator *analytics.Aggregator
	Verifier   *auth.JWTVerifier
	Notifier   *notifications.Service
	Scheduler  *scheduler.Scheduler
	Reports    *reports.Generator
}

// NewLogger returns a JSON logger in production and a text logger otherwise.
func NewLogger(w io.Writer, environment string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if environment == config.EnvDevelopment {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = NewLogger(os.Stderr, cfg.Server.Environment, slog.LevelInfo)
	}

	loc, err := cfg.Analytics.Location()
	if err != nil {
		return nil, err
	}
	c, err := cfg.Classification.Classifier()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  metrics.New(reg),
	}

	a.Store, err = openStore(ctx, cfg, c, loc)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, recognizer cache will miss", "addr", cfg.Redis.Addr(), "error", err)
		}
	}

	a.Recognizer, err = recognizer.New(ctx, recognizer.Config{
		Provider: cfg.Recognizer.Provider,
		Comprehend: recognizer.ComprehendConfig{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			AssumeRoleARN:   cfg.AWS.AssumeRoleARN,
			ExternalID:      cfg.AWS.ExternalID,
		},
		CacheTTL: cfg.Recognizer.CacheTTL,
	}, a.Redis, a.Metrics, logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("building recognizer: %w", err)
	}

	a.Detector = detection.NewService(a.Recognizer, a.Store, c, detection.Config{
		Language: cfg.Recognizer.Language,
		Timeout:  cfg.Recognizer.Timeout,
	}, detection.WithLogger(logger), detection.WithMetrics(a.Metrics))

	a.Aggregator = analytics.New(a.Store,
		analytics.WithLocation(loc),
		analytics.WithConcurrency(cfg.Analytics.RollupConcurrency),
		analytics.WithLogger(logger),
	)

	a.Verifier = auth.NewJWTVerifier(auth.Config{
		JWTSecret: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
	})

	a.Notifier = notifications.NewService(notifications.Config{
		Slack: notifications.SlackConfig{
			WebhookURL: cfg.Notifications.Slack.WebhookURL,
			Channel:    cfg.Notifications.Slack.Channel,
			Enabled:    cfg.Notifications.Slack.Enabled,
		},
	}, logger)

	a.Scheduler = scheduler.NewScheduler(logger, 5*time.Minute)
	a.Scheduler.RegisterHandler(scheduler.JobTypeDailyDigest,
		scheduler.DigestHandler(a.Aggregator, a.Notifier, a.Metrics, nil))
	if err := a.Scheduler.AddJob(scheduler.NewDailyDigestJob(cfg.Scheduler.DailyDigest)); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("scheduling daily digest: %w", err)
	}

	a.Reports = reports.NewGenerator(a.Aggregator, nil)

	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, c *classifier.Classifier, loc *time.Location) (EventStore, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		return store.NewMemoryStore(c, loc), nil
	case config.StorageDriverPostgres:
		st, err := store.New(store.Config{
			DSN:          cfg.Database.DSN(),
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			Location:     loc,
			Classifier:   c,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing store: %w", err)
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("migrating store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Server builds the HTTP surface over the app's components.
func (a *App) Server() (*api.Server, error) {
	return api.NewServer(a.Config, api.Deps{
		Store:      a.Store,
		Detector:   a.Detector,
		Aggregator: a.Aggregator,
		Verifier:   a.Verifier,
		Scheduler:  a.Scheduler,
		Gatherer:   a.Registry,
	}, api.WithLogger(a.Logger))
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
