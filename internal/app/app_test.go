package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privashield/leakwatch/internal/config"
	"github.com/privashield/leakwatch/internal/models"
	"github.com/privashield/leakwatch/internal/scheduler"
	"github.com/privashield/leakwatch/internal/store"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Environment = config.EnvDevelopment
	cfg.Storage.Driver = config.StorageDriverMemory
	cfg.Recognizer.Provider = "rules"
	cfg.Recognizer.Timeout = time.Second
	cfg.Analytics.Timezone = "Asia/Seoul"
	cfg.Analytics.RollupConcurrency = 2
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Classification.Overrides = map[string]string{"AGE": "MEDIUM"}
	return cfg
}

func TestNew_MemoryStack(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), slog.Default())
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.Store.(*store.MemoryStore)
	assert.True(t, ok)
	assert.Nil(t, a.Redis)
	assert.Equal(t, "Asia/Seoul", a.Aggregator.Location().String())

	ctx := context.Background()
	res, err := a.Detector.Detect(ctx, "jane@example.com", "mail jane.doe@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"EMAIL"}, res.DetectedTypes)

	_, err = a.Store.Record(ctx, "jane@example.com", "AGE", time.Now())
	require.NoError(t, err)

	groups, _, err := a.Aggregator.TodayBreakdown(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Contains(t, groups, models.LeakGroup{ContentType: "AGE", SensitivityLevel: models.SensitivityMedium, Count: 1})

	_, ok = a.Scheduler.Job(scheduler.DailyDigestJobID)
	assert.True(t, ok)
	require.NoError(t, a.Scheduler.RunJobNow(ctx, scheduler.DailyDigestJobID))

	srv, err := a.Server()
	require.NoError(t, err)
	assert.NotNil(t, srv.Handler())
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad timezone", func(c *config.Config) { c.Analytics.Timezone = "Mars/Olympus" }},
		{"bad override", func(c *config.Config) { c.Classification.Overrides = map[string]string{"SSN": "CRITICAL"} }},
		{"bad provider", func(c *config.Config) { c.Recognizer.Provider = "oracle" }},
		{"bad driver", func(c *config.Config) { c.Storage.Driver = "sqlite" }},
		{"bad schedule", func(c *config.Config) { c.Scheduler.DailyDigest = "sometimes" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(cfg)
			_, err := New(context.Background(), cfg, slog.Default())
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, config.EnvProduction, slog.LevelInfo).Info("hello", "k", "v")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))

	buf.Reset()
	NewLogger(&buf, config.EnvDevelopment, slog.LevelInfo).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	NewLogger(&buf, config.EnvProduction, slog.LevelInfo).Debug("hidden")
	assert.Empty(t, buf.String())
}
