package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"scamguard/internal/domain/models"
	"scamguard/internal/domain/services/detection"
	"scamguard/pkg/logger"
)

// DefaultBlockedHistoryLimit caps the blocked history
const DefaultBlockedHistoryLimit = 100

// BlockedHistory keeps the most recent blocked or warned items, newest first
type BlockedHistory struct {
	mu     sync.RWMutex
	items  []models.BlockedItem
	limit  int
	now    func() time.Time
	writer *StateWriter
	logger *logger.Logger
}

// NewBlockedHistory creates a history capped at limit items
func NewBlockedHistory(limit int, writer *StateWriter, log *logger.Logger) *BlockedHistory {
	if limit <= 0 {
		limit = DefaultBlockedHistoryLimit
	}
	return &BlockedHistory{
		limit:  limit,
		now:    time.Now,
		writer: writer,
		logger: log.WithComponent("blocked-history"),
	}
}

// Add records an item, evicting the oldest once the cap is reached. Codes in
// the content are masked before storage.
func (h *BlockedHistory) Add(channel models.Channel, sender, content, reason string, level models.RiskLevel) models.BlockedItem {
	item := models.BlockedItem{
		ID:        uuid.New(),
		Channel:   channel,
		Sender:    sender,
		Content:   detection.MaskCodes(content),
		Reason:    reason,
		Timestamp: h.now().UTC(),
		RiskLevel: level,
	}

	h.mu.Lock()
	h.items = append([]models.BlockedItem{item}, h.items...)
	if len(h.items) > h.limit {
		h.items = h.items[:h.limit]
	}
	h.mu.Unlock()

	data, err := json.Marshal(item)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode blocked item")
		return item
	}
	limit := int64(h.limit)
	h.writer.Enqueue("blocked.add", func(ctx context.Context, kv KeyValueStore) error {
		return kv.LPushTrim(ctx, KeyBlockedItems, limit, string(data))
	})
	return item
}

// List returns items newest first. An empty channel returns every item.
func (h *BlockedHistory) List(channel models.Channel) []models.BlockedItem {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.BlockedItem, 0, len(h.items))
	for _, it := range h.items {
		if channel == "" || it.Channel == channel {
			out = append(out, it)
		}
	}
	return out
}

// Len returns the number of stored items
func (h *BlockedHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

// Load hydrates the history from kv
func (h *BlockedHistory) Load(ctx context.Context, kv KeyValueStore) error {
	if kv == nil {
		return nil
	}
	raw, err := kv.LRange(ctx, KeyBlockedItems, 0, int64(h.limit-1))
	if err != nil {
		return fmt.Errorf("%w: load blocked history: %v", models.ErrStoreUnavailable, err)
	}
	items := make([]models.BlockedItem, 0, len(raw))
	for _, data := range raw {
		var it models.BlockedItem
		if err := json.Unmarshal([]byte(data), &it); err != nil {
			h.logger.Warn().Err(err).Msg("skipping malformed blocked item")
			continue
		}
		items = append(items, it)
	}

	h.mu.Lock()
	h.items = items
	h.mu.Unlock()
	h.logger.Info().Int("items", len(items)).Msg("blocked history loaded")
	return nil
}
