package handlers

import (
	"net/http"

	"scamguard/internal/domain/models"
	"scamguard/internal/domain/services"
	"scamguard/pkg/logger"
)

// BlockedHandler lists the blocked and warned history
type BlockedHandler struct {
	history *services.BlockedHistory
	logger  *logger.Logger
}

// NewBlockedHandler creates a new blocked-history handler
func NewBlockedHandler(history *services.BlockedHistory, log *logger.Logger) *BlockedHandler {
	return &BlockedHandler{
		history: history,
		logger:  log.WithComponent("blocked-handler"),
	}
}

// BlockedResponse is the history listing
type BlockedResponse struct {
	Items []models.BlockedItem `json:"items"`
	Count int                  `json:"count"`
}

// List handles GET /api/v1/blocked?channel=MESSAGE|CALL
func (h *BlockedHandler) List(w http.ResponseWriter, r *http.Request) {
	var channel models.Channel
	if raw := r.URL.Query().Get("channel"); raw != "" {
		c, err := models.ParseChannel(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		channel = c
	}

	items := h.history.List(channel)
	writeJSON(w, http.StatusOK, BlockedResponse{Items: items, Count: len(items)})
}
