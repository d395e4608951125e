package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/internal/domain/services/detection"
	"scamguard/pkg/logger"
)

// Repeat tracking defaults
const (
	DefaultRepeatWindow    = 24 * time.Hour
	DefaultRepeatThreshold = 3
)

// NotifyMode controls how often an escalated fingerprint notifies the guardian
type NotifyMode string

const (
	// NotifyOnce notifies on the hit that crosses the threshold and stays
	// quiet for the rest of that window
	NotifyOnce NotifyMode = "once"
	// NotifyEveryHit notifies on every hit at or above the threshold
	NotifyEveryHit NotifyMode = "every_hit"
)

// ParseNotifyMode maps a config value to a NotifyMode, defaulting to NotifyOnce
func ParseNotifyMode(s string) NotifyMode {
	if NotifyMode(strings.ToLower(strings.TrimSpace(s))) == NotifyEveryHit {
		return NotifyEveryHit
	}
	return NotifyOnce
}

// PatternTrackerConfig configures a PatternTracker
type PatternTrackerConfig struct {
	Window     time.Duration
	Threshold  int
	NotifyMode NotifyMode
}

// PatternTracker counts near-identical messages per (sender, keyword set)
// inside a window anchored at the first sighting
type PatternTracker struct {
	mu        sync.Mutex
	patterns  map[string]*models.PatternFingerprint
	window    time.Duration
	threshold int
	mode      NotifyMode
	now       func() time.Time
	writer    *StateWriter
	logger    *logger.Logger
}

// NewPatternTracker creates a tracker. Zero config values take the defaults.
func NewPatternTracker(cfg PatternTrackerConfig, writer *StateWriter, log *logger.Logger) *PatternTracker {
	if cfg.Window <= 0 {
		cfg.Window = DefaultRepeatWindow
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultRepeatThreshold
	}
	if cfg.NotifyMode == "" {
		cfg.NotifyMode = NotifyOnce
	}
	return &PatternTracker{
		patterns:  make(map[string]*models.PatternFingerprint),
		window:    cfg.Window,
		threshold: cfg.Threshold,
		mode:      cfg.NotifyMode,
		now:       time.Now,
		writer:    writer,
		logger:    log.WithComponent("pattern-tracker"),
	}
}

// SetClock replaces the time source
func (t *PatternTracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Fingerprint hashes sender with its sorted, deduplicated keyword set
func Fingerprint(sender string, keywords []string) string {
	set := make(map[string]struct{}, len(keywords))
	sorted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if _, dup := set[k]; dup || k == "" {
			continue
		}
		set[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.TrimSpace(sender) + ":" + strings.Join(sorted, ",")))
	return hex.EncodeToString(sum[:])
}

// Track records one sighting of (sender, keywords) and reports whether it is
// a repeat. A message with no keywords is not a campaign and is not tracked.
func (t *PatternTracker) Track(sender, body string, keywords []string) models.RepeatResult {
	if len(keywords) == 0 {
		return models.RepeatResult{}
	}
	hash := Fingerprint(sender, keywords)

	t.mu.Lock()
	now := t.now()
	expired := t.pruneLocked(now, hash)

	fp, ok := t.patterns[hash]
	switch {
	case !ok:
		fp = &models.PatternFingerprint{
			Hash:      hash,
			FirstSeen: now,
			LastSeen:  now,
			Count:     1,
			Sender:    sender,
			Keywords:  append([]string(nil), keywords...),
		}
		t.patterns[hash] = fp
	case now.Sub(fp.FirstSeen) <= t.window:
		fp.Count++
		fp.LastSeen = now
	default:
		fp.FirstSeen = now
		fp.LastSeen = now
		fp.Count = 1
		fp.Notified = false
	}

	res := models.RepeatResult{Count: fp.Count}
	if fp.Count >= t.threshold {
		res.IsRepeat = true
		res.ShouldEscalate = true
		res.Message = fmt.Sprintf("REPEATED SCAM ATTEMPT! This is the %s similar scam message. Protection level increased.", ordinal(fp.Count))
		switch t.mode {
		case NotifyEveryHit:
			res.ShouldNotify = true
		default:
			res.ShouldNotify = !fp.Notified
		}
		fp.Notified = true
	}
	snapshot := *fp
	t.mu.Unlock()

	if res.ShouldEscalate {
		t.logger.Warn().
			Str("sender", sender).
			Int("count", res.Count).
			Bool("notify", res.ShouldNotify).
			Str("preview", detection.Preview(body, 40)).
			Msg("repeated scam attempt")
	}
	t.persist(snapshot, expired)
	return res
}

// Get returns a copy of the fingerprint for hash
func (t *PatternTracker) Get(hash string) (models.PatternFingerprint, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fp, ok := t.patterns[hash]
	if !ok {
		return models.PatternFingerprint{}, false
	}
	return *fp, true
}

// Len returns the number of tracked fingerprints
func (t *PatternTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.patterns)
}

// Load hydrates fingerprints from kv, skipping stale ones
func (t *PatternTracker) Load(ctx context.Context, kv KeyValueStore) error {
	if kv == nil {
		return nil
	}
	raw, err := kv.HGetAll(ctx, KeyFingerprints)
	if err != nil {
		return fmt.Errorf("%w: load fingerprints: %v", models.ErrStoreUnavailable, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for hash, data := range raw {
		var fp models.PatternFingerprint
		if err := json.Unmarshal([]byte(data), &fp); err != nil {
			t.logger.Warn().Err(err).Str("hash", hash).Msg("skipping malformed fingerprint")
			continue
		}
		if now.Sub(fp.LastSeen) > t.window {
			continue
		}
		fp.Hash = hash
		t.patterns[hash] = &fp
	}
	t.logger.Info().Int("fingerprints", len(t.patterns)).Msg("fingerprints loaded")
	return nil
}

// Prune drops idle fingerprints now instead of waiting for the next Track
func (t *PatternTracker) Prune() int {
	t.mu.Lock()
	expired := t.pruneLocked(t.now(), "")
	t.mu.Unlock()
	if len(expired) > 0 {
		t.writer.Enqueue("fingerprint.prune", func(ctx context.Context, kv KeyValueStore) error {
			return kv.HDel(ctx, KeyFingerprints, expired...)
		})
	}
	return len(expired)
}

// pruneLocked drops fingerprints idle for longer than the window, except keep
func (t *PatternTracker) pruneLocked(now time.Time, keep string) []string {
	var expired []string
	for hash, fp := range t.patterns {
		if hash != keep && now.Sub(fp.LastSeen) > t.window {
			delete(t.patterns, hash)
			expired = append(expired, hash)
		}
	}
	return expired
}

func (t *PatternTracker) persist(fp models.PatternFingerprint, expired []string) {
	data, err := json.Marshal(fp)
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to encode fingerprint")
		return
	}
	t.writer.Enqueue("fingerprint.save", func(ctx context.Context, kv KeyValueStore) error {
		if err := kv.HSet(ctx, KeyFingerprints, fp.Hash, string(data)); err != nil {
			return err
		}
		if len(expired) > 0 {
			return kv.HDel(ctx, KeyFingerprints, expired...)
		}
		return nil
	})
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
