package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/internal/observability/metrics"
	"scamguard/pkg/logger"
)

// KeyValueStore is the persistence collaborator for detector state.
// cache.RedisCache satisfies it.
type KeyValueStore interface {
	HSet(ctx context.Context, key string, values ...any) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	SAdd(ctx context.Context, key string, members ...any) error
	SMembers(ctx context.Context, key string) ([]string, error)
	LPushTrim(ctx context.Context, key string, limit int64, values ...any) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Keys of the persisted detector state
const (
	KeyCallRecords    = "scamguard:calls"
	KeyFingerprints   = "scamguard:fingerprints"
	KeyLearnedWords   = "scamguard:learned:keywords"
	KeyLearnedPhrases = "scamguard:learned:patterns"
	KeyBlockedItems   = "scamguard:blocked"
)

// WriteFunc is a single persistence operation
type WriteFunc func(ctx context.Context, kv KeyValueStore) error

type writeOp struct {
	name string
	fn   WriteFunc
}

// StateWriter applies state writes off the evaluation path. Writes are queued
// in a bounded buffer; when the buffer is full the write is dropped and the
// in-memory state stays authoritative until the next successful write.
type StateWriter struct {
	kv      KeyValueStore
	ops     chan writeOp
	timeout time.Duration
	metrics *metrics.EngineMetrics
	logger  *logger.Logger

	dropped atomic.Int64
	failed  atomic.Int64
}

// NewStateWriter creates a writer. A nil store makes every write a no-op.
func NewStateWriter(kv KeyValueStore, buffer int, timeout time.Duration, m *metrics.EngineMetrics, log *logger.Logger) *StateWriter {
	if buffer <= 0 {
		buffer = 1024
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &StateWriter{
		kv:      kv,
		ops:     make(chan writeOp, buffer),
		timeout: timeout,
		metrics: m,
		logger:  log.WithComponent("state-writer"),
	}
}

// Enabled reports whether writes reach a store
func (w *StateWriter) Enabled() bool {
	return w != nil && w.kv != nil
}

// Store returns the underlying store, nil in memory-only mode
func (w *StateWriter) Store() KeyValueStore {
	if w == nil {
		return nil
	}
	return w.kv
}

// Enqueue schedules a write and never blocks. It returns false when the
// write was not queued.
func (w *StateWriter) Enqueue(name string, fn WriteFunc) bool {
	if !w.Enabled() {
		return false
	}
	select {
	case w.ops <- writeOp{name: name, fn: fn}:
		return true
	default:
		w.dropped.Add(1)
		w.metrics.ObserveDroppedWrite()
		w.logger.Warn().Str("op", name).Msg("state write queue full, dropping write")
		return false
	}
}

// Run applies queued writes until ctx is cancelled
func (w *StateWriter) Run(ctx context.Context) {
	if !w.Enabled() {
		return
	}
	w.logger.Info().Int("buffer", cap(w.ops)).Msg("state writer started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("state writer stopped")
			return
		case op := <-w.ops:
			w.apply(op)
		}
	}
}

// Flush synchronously applies every queued write. It stops early when ctx is
// done and reports how many writes were still pending.
func (w *StateWriter) Flush(ctx context.Context) error {
	if !w.Enabled() {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("flush interrupted with %d writes pending: %w", len(w.ops), ctx.Err())
		case op := <-w.ops:
			w.apply(op)
		default:
			return nil
		}
	}
}

// Pending returns the number of queued writes
func (w *StateWriter) Pending() int {
	if w == nil {
		return 0
	}
	return len(w.ops)
}

// Dropped returns the number of writes lost to a full queue
func (w *StateWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Failed returns the number of writes the store rejected
func (w *StateWriter) Failed() int64 {
	return w.failed.Load()
}

func (w *StateWriter) apply(op writeOp) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := op.fn(ctx, w.kv); err != nil {
		w.failed.Add(1)
		w.metrics.ObserveStoreError(op.name)
		w.logger.Warn().
			Err(fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)).
			Str("op", op.name).
			Msg("state write failed")
	}
}
