package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrJobNotFound = errors.New("job not found")

// Job represents a scheduled job
type Job struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"` // Cron expression
	JobType  JobType    `json:"job_type"`
	Enabled  bool       `json:"enabled"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty"`
}

// JobType defines the type of scheduled job
type JobType string

const (
	JobTypeDailyDigest JobType = "daily_digest"
)

// JobExecution tracks job execution history
type JobExecution struct {
	JobID     string          `json:"job_id"`
	Status    ExecutionStatus `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	Error     string          `json:"error,omitempty"`
}

// ExecutionStatus represents job execution status
type ExecutionStatus string

const (
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

const historyLimit = 20

// JobHandler is a function that executes a job
type JobHandler func(ctx context.Context, job *Job) error

// Scheduler runs configured jobs on cron schedules. Jobs come from
// configuration and execution history is kept in memory.
type Scheduler struct {
	cron     *cron.Cron
	handlers map[JobType]JobHandler
	jobs     map[string]*Job
	entries  map[string]cron.EntryID
	history  map[string][]JobExecution
	timeout  time.Duration
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewScheduler creates a new scheduler. Each run gets timeout, or no limit
// when timeout is zero.
func NewScheduler(logger *slog.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
		handlers: make(map[JobType]JobHandler),
		jobs:     make(map[string]*Job),
		entries:  make(map[string]cron.EntryID),
		history:  make(map[string][]JobExecution),
		timeout:  timeout,
		logger:   logger,
	}
}

// RegisterHandler registers a handler for a job type
func (s *Scheduler) RegisterHandler(jobType JobType, handler JobHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = handler
}

// AddJob registers a job and schedules it when enabled.
func (s *Scheduler) AddJob(job *Job) error {
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if job.Enabled {
		return s.scheduleJob(job)
	}
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.mu.RLock()
	s.logger.Info("scheduler started", "jobs_count", len(s.entries))
	s.mu.RUnlock()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunJobNow runs a job synchronously, outside its schedule.
func (s *Scheduler) RunJobNow(ctx context.Context, id string) error {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}
	return s.executeJob(ctx, job)
}

func (s *Scheduler) Job(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	cp := *job
	return &cp, true
}

// Executions returns the most recent runs of a job, oldest first.
func (s *Scheduler) Executions(id string) []JobExecution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobExecution, len(s.history[id]))
	copy(out, s.history[id])
	return out
}

// GetNextRuns returns the next N runs for a job
func (s *Scheduler) GetNextRuns(id string, count int) []time.Time {
	s.mu.RLock()
	entryID, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil
	}

	entry := s.cron.Entry(entryID)
	if entry.ID == 0 {
		return nil
	}

	runs := make([]time.Time, 0, count)
	next := entry.Next
	if next.IsZero() {
		next = entry.Schedule.Next(time.Now())
	}
	for i := 0; i < count; i++ {
		runs = append(runs, next)
		next = entry.Schedule.Next(next)
	}

	return runs
}

// scheduleJob adds a job to the cron scheduler
func (s *Scheduler) scheduleJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.entries[job.ID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, job.ID)
	}

	entryID, err := s.cron.AddFunc(job.Schedule, func() {
		_ = s.executeJob(context.Background(), job)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	s.entries[job.ID] = entryID

	nextRun := s.cron.Entry(entryID).Schedule.Next(time.Now())
	job.NextRun = &nextRun

	s.logger.Info("scheduled job",
		"job_id", job.ID,
		"job_name", job.Name,
		"schedule", job.Schedule,
		"next_run", nextRun)

	return nil
}

// executeJob executes a job
func (s *Scheduler) executeJob(ctx context.Context, job *Job) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	startTime := time.Now()
	s.logger.Info("executing job",
		"job_id", job.ID,
		"job_name", job.Name)

	s.mu.RLock()
	handler, ok := s.handlers[job.JobType]
	s.mu.RUnlock()

	var err error
	if !ok {
		err = fmt.Errorf("no handler registered for job type: %s", job.JobType)
	} else {
		err = handler(ctx, job)
	}
	endTime := time.Now()

	exec := JobExecution{
		JobID:     job.ID,
		Status:    StatusCompleted,
		StartedAt: startTime,
		EndedAt:   endTime,
	}
	if err != nil {
		exec.Status = StatusFailed
		exec.Error = err.Error()
		s.logger.Error("job execution failed",
			"job_id", job.ID,
			"job_name", job.Name,
			"error", err,
			"duration", endTime.Sub(startTime))
	} else {
		s.logger.Info("job execution completed",
			"job_id", job.ID,
			"job_name", job.Name,
			"duration", endTime.Sub(startTime))
	}

	s.mu.Lock()
	job.LastRun = &startTime
	h := append(s.history[job.ID], exec)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	s.history[job.ID] = h
	s.mu.Unlock()

	return err
}
