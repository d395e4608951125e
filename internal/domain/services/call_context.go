package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"scamguard/internal/domain/models"
	"scamguard/internal/domain/services/detection"
	"scamguard/pkg/logger"
)

// DefaultCorrelationWindow is how long a suspicious call keeps correlating
// with incoming codes
const DefaultCorrelationWindow = 5 * time.Minute

// nationalDigits is the significant length of a mobile number
const nationalDigits = 10

// NormalizeNumber reduces a phone number to its last ten digits so that
// "+91 98765 43210" and "09876543210" compare equal. Alphanumeric sender IDs
// are upper-cased and trimmed instead.
func NormalizeNumber(number string) string {
	number = strings.TrimSpace(number)
	var b strings.Builder
	letters := false
	for _, r := range number {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsLetter(r):
			letters = true
		}
	}
	if letters || b.Len() == 0 {
		return strings.ToUpper(number)
	}
	digits := b.String()
	if len(digits) > nationalDigits {
		digits = digits[len(digits)-nationalDigits:]
	}
	return digits
}

// CallContextStore remembers numbers that recently placed suspicious calls.
// Expired entries are pruned whenever a new call is recorded.
type CallContextStore struct {
	mu      sync.Mutex
	records map[string]time.Time
	window  time.Duration
	now     func() time.Time
	writer  *StateWriter
	logger  *logger.Logger
}

// NewCallContextStore creates a store with the given correlation window
func NewCallContextStore(window time.Duration, writer *StateWriter, log *logger.Logger) *CallContextStore {
	if window <= 0 {
		window = DefaultCorrelationWindow
	}
	return &CallContextStore{
		records: make(map[string]time.Time),
		window:  window,
		now:     time.Now,
		writer:  writer,
		logger:  log.WithComponent("call-context"),
	}
}

// SetClock replaces the time source
func (s *CallContextStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Window returns the correlation window
func (s *CallContextStore) Window() time.Duration {
	return s.window
}

// RecordSuspiciousCall stamps number with the current time. Empty numbers
// are ignored.
func (s *CallContextStore) RecordSuspiciousCall(number string) {
	key := NormalizeNumber(number)
	if key == "" {
		s.logger.Debug().Msg("ignoring suspicious call without a number")
		return
	}

	s.mu.Lock()
	now := s.now()
	s.records[key] = now
	expired := s.pruneLocked(now)
	s.mu.Unlock()

	s.logger.Info().Str("number", key).Msg("suspicious call recorded")

	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	s.writer.Enqueue("call.record", func(ctx context.Context, kv KeyValueStore) error {
		if err := kv.HSet(ctx, KeyCallRecords, key, stamp); err != nil {
			return err
		}
		if len(expired) > 0 {
			return kv.HDel(ctx, KeyCallRecords, expired...)
		}
		return nil
	})
}

// IsRecentlySuspicious reports whether number was recorded less than the
// store's window ago
func (s *CallContextStore) IsRecentlySuspicious(number string) bool {
	return s.IsRecentlySuspiciousWithin(number, s.window)
}

// IsRecentlySuspiciousWithin is IsRecentlySuspicious with an explicit window
func (s *CallContextStore) IsRecentlySuspiciousWithin(number string, window time.Duration) bool {
	key := NormalizeNumber(number)
	if key == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.records[key]
	if !ok {
		return false
	}
	return s.now().Sub(at) < window
}

// Record returns the stored record for number, if any, expired or not
func (s *CallContextStore) Record(number string) (models.CallSuspicionRecord, bool) {
	key := NormalizeNumber(number)
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.records[key]
	if !ok {
		return models.CallSuspicionRecord{}, false
	}
	return models.CallSuspicionRecord{PhoneNumber: key, DetectedAt: at}, true
}

// Len returns the number of stored records, including not yet pruned ones
func (s *CallContextStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Load hydrates the store from kv, skipping records that already expired
func (s *CallContextStore) Load(ctx context.Context, kv KeyValueStore) error {
	if kv == nil {
		return nil
	}
	raw, err := kv.HGetAll(ctx, KeyCallRecords)
	if err != nil {
		return fmt.Errorf("%w: load call records: %v", models.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	loaded := 0
	for number, stamp := range raw {
		ms, err := strconv.ParseInt(stamp, 10, 64)
		if err != nil {
			s.logger.Warn().Str("number", number).Msg("skipping malformed call record")
			continue
		}
		at := time.UnixMilli(ms)
		if now.Sub(at) >= s.window {
			continue
		}
		if prev, ok := s.records[number]; !ok || at.After(prev) {
			s.records[number] = at
			loaded++
		}
	}
	s.logger.Info().Int("records", loaded).Msg("call records loaded")
	return nil
}

func (s *CallContextStore) pruneLocked(now time.Time) []string {
	var expired []string
	for number, at := range s.records {
		if now.Sub(at) >= s.window {
			delete(s.records, number)
			expired = append(expired, number)
		}
	}
	return expired
}

// CallOTPCorrelator links a code-bearing message to a suspicious call from
// the same number moments earlier
type CallOTPCorrelator struct {
	calls *CallContextStore
	codes *detection.LinkAndCodeDetector
}

// NewCallOTPCorrelator creates a correlator over calls
func NewCallOTPCorrelator(calls *CallContextStore) *CallOTPCorrelator {
	return &CallOTPCorrelator{calls: calls, codes: detection.NewLinkAndCodeDetector()}
}

// HasCorrelation is true when body carries a 4-6 digit code and sender placed
// a suspicious call within the window
func (c *CallOTPCorrelator) HasCorrelation(sender, body string) bool {
	if !c.codes.ContainsOTP(body) {
		return false
	}
	return c.calls.IsRecentlySuspicious(sender)
}

// TrustChecker reports whether an identifier belongs to a trusted sender
type TrustChecker interface {
	IsTrusted(identifier string) bool
}

// SuspiciousCallDetector decides whether an incoming call should be tracked
type SuspiciousCallDetector struct {
	trust TrustChecker
}

// NewSuspiciousCallDetector creates a detector backed by trust
func NewSuspiciousCallDetector(trust TrustChecker) *SuspiciousCallDetector {
	return &SuspiciousCallDetector{trust: trust}
}

// IsSuspicious treats hidden numbers and numbers outside the trusted set as suspicious
func (d *SuspiciousCallDetector) IsSuspicious(number string) bool {
	if strings.TrimSpace(number) == "" {
		return true
	}
	return !d.trust.IsTrusted(number)
}
