package services

import (
	"context"
	"sync"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

const summaryLockName = "weekly-summary"

// JobLocker coordinates scheduled jobs across replicas.
// cache.RedisCache satisfies it.
type JobLocker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	RefreshLock(ctx context.Context, name string, ttl time.Duration) error
	ReleaseLock(ctx context.Context, name string) error
}

// SummaryJob produces and delivers one weekly report.
// WeeklySummaryGenerator satisfies it.
type SummaryJob interface {
	GenerateAndSend(ctx context.Context) (models.WeeklySummary, error)
}

// JobStatus represents the outcome of a scheduled run
type JobStatus string

const (
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusSkipped   JobStatus = "skipped"
)

// JobResult holds the result of one scheduled run
type JobResult struct {
	Status      JobStatus             `json:"status"`
	Attempts    int                   `json:"attempts"`
	Summary     *models.WeeklySummary `json:"summary,omitempty"`
	Error       string                `json:"error,omitempty"`
	Duration    time.Duration         `json:"duration"`
	CompletedAt time.Time             `json:"completed_at"`
}

// SchedulerConfig controls the weekly summary schedule
type SchedulerConfig struct {
	Interval      time.Duration
	RunOnStart    bool
	LockTTL       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.Interval <= 0 {
		c.Interval = summaryDays * 24 * time.Hour
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 5 * time.Minute
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = 5 * time.Minute
	}
	return c
}

// SummaryScheduler sends the weekly report on a fixed interval. When a
// locker is configured only one replica runs each cycle.
type SummaryScheduler struct {
	job    SummaryJob
	locker JobLocker
	cfg    SchedulerConfig
	logger *logger.Logger

	mu   sync.RWMutex
	last *JobResult
}

// NewSummaryScheduler creates a scheduler. locker may be nil.
func NewSummaryScheduler(job SummaryJob, locker JobLocker, cfg SchedulerConfig, log *logger.Logger) *SummaryScheduler {
	return &SummaryScheduler{
		job:    job,
		locker: locker,
		cfg:    cfg.withDefaults(),
		logger: log.WithComponent("summary-scheduler"),
	}
}

// Run blocks until ctx is cancelled
func (s *SummaryScheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Int("max_retries", s.cfg.MaxRetries).
		Bool("run_on_start", s.cfg.RunOnStart).
		Msg("starting weekly summary scheduler")

	if s.cfg.RunOnStart {
		s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("weekly summary scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one locked, retried cycle and records its result
func (s *SummaryScheduler) RunOnce(ctx context.Context) JobResult {
	start := time.Now()
	result := s.runLocked(ctx)
	result.Duration = time.Since(start)
	result.CompletedAt = time.Now()

	s.mu.Lock()
	s.last = &result
	s.mu.Unlock()

	return result
}

// Last returns the most recent run result
func (s *SummaryScheduler) Last() (JobResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return JobResult{}, false
	}
	return *s.last, true
}

func (s *SummaryScheduler) runLocked(ctx context.Context) JobResult {
	if s.locker == nil {
		return s.runWithRetry(ctx)
	}

	acquired, err := s.locker.AcquireLock(ctx, summaryLockName, s.cfg.LockTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to acquire lock")
		return JobResult{Status: JobStatusFailed, Error: err.Error()}
	}
	if !acquired {
		s.logger.Debug().Msg("another worker holds the summary lock, skipping")
		return JobResult{Status: JobStatusSkipped}
	}

	defer func() {
		// release even when ctx is already cancelled
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.locker.ReleaseLock(releaseCtx, summaryLockName); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release lock")
		}
	}()

	lockCtx, lockCancel := context.WithCancel(ctx)
	defer lockCancel()
	go s.refreshLock(lockCtx)

	return s.runWithRetry(ctx)
}

func (s *SummaryScheduler) refreshLock(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.LockTTL / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.locker.RefreshLock(ctx, summaryLockName, s.cfg.LockTTL); err != nil {
				s.logger.Warn().Err(err).Msg("failed to refresh lock")
			}
		}
	}
}

func (s *SummaryScheduler) runWithRetry(ctx context.Context) JobResult {
	var lastErr error

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff(s.cfg.RetryDelay, s.cfg.MaxRetryDelay, attempt)
			s.logger.Info().
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("retrying weekly summary after delay")

			select {
			case <-ctx.Done():
				return JobResult{Status: JobStatusFailed, Attempts: attempt, Error: ctx.Err().Error()}
			case <-time.After(delay):
			}
		}

		summary, err := s.job.GenerateAndSend(ctx)
		if err == nil {
			return JobResult{Status: JobStatusCompleted, Attempts: attempt + 1, Summary: &summary}
		}

		lastErr = err
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", s.cfg.MaxRetries).
			Msg("weekly summary failed")
	}

	s.logger.Error().
		Err(lastErr).
		Int("attempts", s.cfg.MaxRetries+1).
		Msg("weekly summary failed after all retries")
	return JobResult{Status: JobStatusFailed, Attempts: s.cfg.MaxRetries + 1, Error: lastErr.Error()}
}

// backoff doubles base per attempt, capped at limit
func backoff(base, limit time.Duration, attempt int) time.Duration {
	delay := base * time.Duration(1<<uint(attempt-1))
	if delay > limit || delay <= 0 {
		delay = limit
	}
	return delay
}
