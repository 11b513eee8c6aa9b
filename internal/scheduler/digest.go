package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/privashield/leakwatch/internal/metrics"
	"github.com/privashield/leakwatch/internal/models"
	"github.com/privashield/leakwatch/internal/notifications"
)

const DailyDigestJobID = "daily-digest"

// Rollup produces the cross-user leak breakdown.
type Rollup interface {
	AllUsersLeaks(ctx context.Context) ([]models.UserLeaks, error)
	Location() *time.Location
}

// DigestNotifier delivers a digest.
type DigestNotifier interface {
	NotifyDailyDigest(ctx context.Context, stats notifications.DigestStats) error
}

// DigestHandler computes the rollup and sends it as a digest.
func DigestHandler(rollup Rollup, notifier DigestNotifier, m *metrics.Metrics, now func() time.Time) JobHandler {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, job *Job) error {
		err := runDigest(ctx, rollup, notifier, now)
		m.ObserveDigestRun(err)
		return err
	}
}

func runDigest(ctx context.Context, rollup Rollup, notifier DigestNotifier, now func() time.Time) error {
	leaks, err := rollup.AllUsersLeaks(ctx)
	if err != nil {
		return fmt.Errorf("computing rollup: %w", err)
	}

	period := now().In(rollup.Location()).Format("2006-01-02")
	if err := notifier.NotifyDailyDigest(ctx, notifications.BuildDigest(period, leaks)); err != nil {
		return fmt.Errorf("sending digest: %w", err)
	}
	return nil
}

// NewDailyDigestJob returns the digest job for schedule. An empty schedule
// yields a disabled job that can still be run on demand.
func NewDailyDigestJob(schedule string) *Job {
	return &Job{
		ID:       DailyDigestJobID,
		Name:     "Daily leak digest",
		Schedule: schedule,
		JobType:  JobTypeDailyDigest,
		Enabled:  schedule != "",
	}
}
