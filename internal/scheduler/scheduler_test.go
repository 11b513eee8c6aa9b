package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privashield/leakwatch/internal/metrics"
	"github.com/privashield/leakwatch/internal/models"
	"github.com/privashield/leakwatch/internal/notifications"
)

type fakeRollup struct {
	leaks []models.UserLeaks
	err   error
}

func (f *fakeRollup) AllUsersLeaks(context.Context) ([]models.UserLeaks, error) {
	return f.leaks, f.err
}

func (f *fakeRollup) Location() *time.Location { return time.UTC }

type fakeNotifier struct {
	sent []notifications.DigestStats
	err  error
}

func (f *fakeNotifier) NotifyDailyDigest(_ context.Context, stats notifications.DigestStats) error {
	f.sent = append(f.sent, stats)
	return f.err
}

func TestScheduler_RunDigestNow(t *testing.T) {
	rollup := &fakeRollup{leaks: []models.UserLeaks{
		{Email: "a@x.com", Leaks: []models.LeakGroup{{ContentType: "SSN", SensitivityLevel: models.SensitivityHigh, Count: 2}}},
	}}
	notifier := &fakeNotifier{}
	m := metrics.New(prometheus.NewRegistry())
	now := func() time.Time { return time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC) }

	s := NewScheduler(nil, time.Minute)
	s.RegisterHandler(JobTypeDailyDigest, DigestHandler(rollup, notifier, m, now))
	require.NoError(t, s.AddJob(NewDailyDigestJob("")))

	require.NoError(t, s.RunJobNow(context.Background(), DailyDigestJobID))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "2024-06-15", notifier.sent[0].Period)
	assert.Equal(t, 2, notifier.sent[0].Total)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DigestRuns.WithLabelValues("success")))

	execs := s.Executions(DailyDigestJobID)
	require.Len(t, execs, 1)
	assert.Equal(t, StatusCompleted, execs[0].Status)
}

func TestScheduler_RunDigestFailure(t *testing.T) {
	rollup := &fakeRollup{err: errors.New("db down")}
	notifier := &fakeNotifier{}
	m := metrics.New(prometheus.NewRegistry())

	s := NewScheduler(nil, 0)
	s.RegisterHandler(JobTypeDailyDigest, DigestHandler(rollup, notifier, m, nil))
	require.NoError(t, s.AddJob(NewDailyDigestJob("")))

	err := s.RunJobNow(context.Background(), DailyDigestJobID)
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, notifier.sent)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DigestRuns.WithLabelValues("failure")))

	execs := s.Executions(DailyDigestJobID)
	require.Len(t, execs, 1)
	assert.Equal(t, StatusFailed, execs[0].Status)
	assert.Contains(t, execs[0].Error, "db down")
}

func TestScheduler_UnknownJob(t *testing.T) {
	s := NewScheduler(nil, 0)
	assert.ErrorIs(t, s.RunJobNow(context.Background(), "missing"), ErrJobNotFound)
}

func TestScheduler_NoHandler(t *testing.T) {
	s := NewScheduler(nil, 0)
	require.NoError(t, s.AddJob(NewDailyDigestJob("")))
	assert.Error(t, s.RunJobNow(context.Background(), DailyDigestJobID))
}

func TestScheduler_AddJobSchedules(t *testing.T) {
	s := NewScheduler(nil, 0)
	job := NewDailyDigestJob("0 0 9 * * *")
	require.True(t, job.Enabled)
	require.NoError(t, s.AddJob(job))
	require.NotNil(t, job.NextRun)

	runs := s.GetNextRuns(DailyDigestJobID, 3)
	require.Len(t, runs, 3)
	for i, r := range runs {
		assert.Equal(t, 9, r.Hour())
		if i > 0 {
			assert.True(t, r.After(runs[i-1]))
		}
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler(nil, 0)
	assert.Error(t, s.AddJob(NewDailyDigestJob("every tuesday")))
}

func TestScheduler_HistoryIsCapped(t *testing.T) {
	s := NewScheduler(nil, 0)
	s.RegisterHandler(JobTypeDailyDigest, func(context.Context, *Job) error { return nil })
	require.NoError(t, s.AddJob(NewDailyDigestJob("")))

	for i := 0; i < historyLimit+5; i++ {
		require.NoError(t, s.RunJobNow(context.Background(), DailyDigestJobID))
	}
	assert.Len(t, s.Executions(DailyDigestJobID), historyLimit)
}
