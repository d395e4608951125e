package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

type fakeSummaryJob struct {
	mu       sync.Mutex
	calls    int
	failures int
}

func (j *fakeSummaryJob) GenerateAndSend(context.Context) (models.WeeklySummary, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	if j.calls <= j.failures {
		return models.WeeklySummary{}, errors.New("audit log unavailable")
	}
	return models.WeeklySummary{TotalEvents: 4}, nil
}

func (j *fakeSummaryJob) Calls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	released int
	err      error
}

func (l *fakeLocker) AcquireLock(context.Context, string, time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLocker) RefreshLock(context.Context, string, time.Duration) error { return nil }

func (l *fakeLocker) ReleaseLock(context.Context, string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.released++
	return nil
}

func fastSchedule() SchedulerConfig {
	return SchedulerConfig{
		Interval:      time.Hour,
		LockTTL:       time.Second,
		MaxRetries:    2,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 2 * time.Millisecond,
	}
}

func TestSummarySchedulerCompletes(t *testing.T) {
	job := &fakeSummaryJob{}
	locker := &fakeLocker{}
	s := NewSummaryScheduler(job, locker, fastSchedule(), logger.NewNop())

	_, ok := s.Last()
	assert.False(t, ok)

	res := s.RunOnce(context.Background())
	assert.Equal(t, JobStatusCompleted, res.Status)
	assert.Equal(t, 1, res.Attempts)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 4, res.Summary.TotalEvents)
	assert.Equal(t, 1, locker.released)
	assert.False(t, locker.held)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, JobStatusCompleted, last.Status)
	assert.False(t, last.CompletedAt.IsZero())
}

func TestSummarySchedulerRetries(t *testing.T) {
	job := &fakeSummaryJob{failures: 2}
	s := NewSummaryScheduler(job, nil, fastSchedule(), logger.NewNop())

	res := s.RunOnce(context.Background())
	assert.Equal(t, JobStatusCompleted, res.Status)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, job.Calls())
}

func TestSummarySchedulerGivesUp(t *testing.T) {
	job := &fakeSummaryJob{failures: 10}
	s := NewSummaryScheduler(job, nil, fastSchedule(), logger.NewNop())

	res := s.RunOnce(context.Background())
	assert.Equal(t, JobStatusFailed, res.Status)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "audit log unavailable", res.Error)
}

func TestSummarySchedulerSkipsWhenLocked(t *testing.T) {
	job := &fakeSummaryJob{}
	locker := &fakeLocker{held: true}
	s := NewSummaryScheduler(job, locker, fastSchedule(), logger.NewNop())

	res := s.RunOnce(context.Background())
	assert.Equal(t, JobStatusSkipped, res.Status)
	assert.Zero(t, job.Calls())
	assert.Zero(t, locker.released)
}

func TestSummarySchedulerLockError(t *testing.T) {
	job := &fakeSummaryJob{}
	locker := &fakeLocker{err: models.ErrStoreUnavailable}
	s := NewSummaryScheduler(job, locker, fastSchedule(), logger.NewNop())

	res := s.RunOnce(context.Background())
	assert.Equal(t, JobStatusFailed, res.Status)
	assert.Zero(t, job.Calls())
}

func TestSummarySchedulerRunOnStart(t *testing.T) {
	job := &fakeSummaryJob{}
	cfg := fastSchedule()
	cfg.RunOnStart = true
	s := NewSummaryScheduler(job, nil, cfg, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return job.Calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 30*time.Second, backoff(30*time.Second, 5*time.Minute, 1))
	assert.Equal(t, 60*time.Second, backoff(30*time.Second, 5*time.Minute, 2))
	assert.Equal(t, 120*time.Second, backoff(30*time.Second, 5*time.Minute, 3))
	assert.Equal(t, 5*time.Minute, backoff(30*time.Second, 5*time.Minute, 6))
}
