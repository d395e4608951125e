package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/internal/domain/services/detection"
	"scamguard/internal/observability/metrics"
	"scamguard/pkg/logger"
)

// LearnResult reports how many items a confirmation added
type LearnResult struct {
	NewKeywords int `json:"new_keywords"`
	NewPatterns int `json:"new_patterns"`
}

// LearnedExport is the portable form of the learned sets
type LearnedExport struct {
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Keywords  []string  `json:"keywords"`
	Patterns  []string  `json:"patterns"`
}

// LearningStore holds keywords and phrases learned from user-confirmed scams.
// Sets only grow; nothing expires.
type LearningStore struct {
	mu        sync.RWMutex
	items     map[string]models.LearnedPattern
	keywords  []string
	patterns  []string
	version   int64
	updatedAt time.Time
	now       func() time.Time

	writer  *StateWriter
	metrics *metrics.EngineMetrics
	logger  *logger.Logger
}

// NewLearningStore creates an empty store
func NewLearningStore(writer *StateWriter, m *metrics.EngineMetrics, log *logger.Logger) *LearningStore {
	return &LearningStore{
		items:   make(map[string]models.LearnedPattern),
		now:     time.Now,
		writer:  writer,
		metrics: m,
		logger:  log.WithComponent("learning-store"),
	}
}

func itemKey(kind models.LearnedKind, value string) string {
	return string(kind) + "|" + value
}

// Learn extracts keywords and phrases from body when the user confirmed it
// was a scam. Unconfirmed reports are ignored.
func (s *LearningStore) Learn(sender, body string, userConfirmed bool) LearnResult {
	if !userConfirmed {
		return LearnResult{}
	}
	keywords := detection.ExtractLearnableKeywords(body)
	phrases := detection.ExtractLearnablePhrases(body)

	s.mu.Lock()
	newKeywords := s.addLocked(models.LearnedKeyword, keywords, sender)
	newPhrases := s.addLocked(models.LearnedPhrase, phrases, sender)
	res := LearnResult{NewKeywords: len(newKeywords), NewPatterns: len(newPhrases)}
	s.mu.Unlock()

	s.metrics.ObserveLearned(string(models.LearnedKeyword), res.NewKeywords)
	s.metrics.ObserveLearned(string(models.LearnedPhrase), res.NewPatterns)
	s.logger.Info().
		Str("sender", sender).
		Int("keywords", res.NewKeywords).
		Int("patterns", res.NewPatterns).
		Msg("learned from confirmed scam")

	s.persist(newKeywords, newPhrases)
	return res
}

// addLocked inserts values and returns the ones that were new
func (s *LearningStore) addLocked(kind models.LearnedKind, values []string, source string) []string {
	var added []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		k := itemKey(kind, v)
		if _, ok := s.items[k]; ok {
			continue
		}
		s.items[k] = models.LearnedPattern{Value: v, Kind: kind, Source: source}
		added = append(added, v)
	}
	if len(added) == 0 {
		return nil
	}
	// Readers hold the old slices, so grow into fresh ones.
	switch kind {
	case models.LearnedKeyword:
		s.keywords = appendCopy(s.keywords, added)
	case models.LearnedPhrase:
		s.patterns = appendCopy(s.patterns, added)
	}
	s.version++
	s.updatedAt = s.now()
	return added
}

func appendCopy(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// Snapshot returns the current keyword and phrase lists. The slices must not
// be modified.
func (s *LearningStore) Snapshot() (keywords, patterns []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keywords, s.patterns
}

// Keywords returns the learned keywords
func (s *LearningStore) Keywords() []string {
	keywords, _ := s.Snapshot()
	return keywords
}

// Patterns returns the learned phrases
func (s *LearningStore) Patterns() []string {
	_, patterns := s.Snapshot()
	return patterns
}

// Items returns every learned item with its kind and source
func (s *LearningStore) Items() []models.LearnedPattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LearnedPattern, 0, len(s.items))
	for _, v := range s.keywords {
		out = append(out, s.items[itemKey(models.LearnedKeyword, v)])
	}
	for _, v := range s.patterns {
		out = append(out, s.items[itemKey(models.LearnedPhrase, v)])
	}
	return out
}

// Export returns a copy of the learned sets
func (s *LearningStore) Export() LearnedExport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return LearnedExport{
		Version:   s.version,
		UpdatedAt: s.updatedAt,
		Keywords:  append([]string{}, s.keywords...),
		Patterns:  append([]string{}, s.patterns...),
	}
}

// Import merges an export from another device and returns what was new
func (s *LearningStore) Import(exp LearnedExport) LearnResult {
	s.mu.Lock()
	newKeywords := s.addLocked(models.LearnedKeyword, exp.Keywords, "import")
	newPhrases := s.addLocked(models.LearnedPhrase, exp.Patterns, "import")
	s.mu.Unlock()

	s.persist(newKeywords, newPhrases)
	return LearnResult{NewKeywords: len(newKeywords), NewPatterns: len(newPhrases)}
}

// Load hydrates the learned sets from kv
func (s *LearningStore) Load(ctx context.Context, kv KeyValueStore) error {
	if kv == nil {
		return nil
	}
	keywords, err := kv.SMembers(ctx, KeyLearnedWords)
	if err != nil {
		return fmt.Errorf("%w: load learned keywords: %v", models.ErrStoreUnavailable, err)
	}
	phrases, err := kv.SMembers(ctx, KeyLearnedPhrases)
	if err != nil {
		return fmt.Errorf("%w: load learned patterns: %v", models.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(models.LearnedKeyword, keywords, "store")
	s.addLocked(models.LearnedPhrase, phrases, "store")
	s.logger.Info().Int("keywords", len(s.keywords)).Int("patterns", len(s.patterns)).Msg("learned patterns loaded")
	return nil
}

func (s *LearningStore) persist(keywords, phrases []string) {
	if len(keywords) == 0 && len(phrases) == 0 {
		return
	}
	s.writer.Enqueue("learned.save", func(ctx context.Context, kv KeyValueStore) error {
		if len(keywords) > 0 {
			if err := kv.SAdd(ctx, KeyLearnedWords, toAny(keywords)...); err != nil {
				return err
			}
		}
		if len(phrases) > 0 {
			return kv.SAdd(ctx, KeyLearnedPhrases, toAny(phrases)...)
		}
		return nil
	})
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
