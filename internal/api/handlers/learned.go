package handlers

import (
	"net/http"

	"scamguard/internal/domain/models"
	"scamguard/internal/domain/services"
	"scamguard/pkg/logger"
)

// LearnedHandler exposes the adaptive learning store
type LearnedHandler struct {
	learning *services.LearningStore
	logger   *logger.Logger
}

// NewLearnedHandler creates a new learned-patterns handler
func NewLearnedHandler(learning *services.LearningStore, log *logger.Logger) *LearnedHandler {
	return &LearnedHandler{
		learning: learning,
		logger:   log.WithComponent("learned-handler"),
	}
}

// LearnedResponse lists every learned item
type LearnedResponse struct {
	Items    []models.LearnedPattern `json:"items"`
	Keywords int                     `json:"keywords"`
	Patterns int                     `json:"patterns"`
}

// List handles GET /api/v1/learned
func (h *LearnedHandler) List(w http.ResponseWriter, r *http.Request) {
	keywords, patterns := h.learning.Snapshot()
	writeJSON(w, http.StatusOK, LearnedResponse{
		Items:    h.learning.Items(),
		Keywords: len(keywords),
		Patterns: len(patterns),
	})
}

// Export handles GET /api/v1/learned/export
func (h *LearnedHandler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="scamguard-learned.json"`)
	writeJSON(w, http.StatusOK, h.learning.Export())
}

// Import handles POST /api/v1/learned/import
func (h *LearnedHandler) Import(w http.ResponseWriter, r *http.Request) {
	var exp services.LearnedExport
	if err := decodeJSON(w, r, &exp); err != nil {
		writeError(w, http.StatusBadRequest, "invalid export document")
		return
	}

	result := h.learning.Import(exp)
	h.logger.Info().
		Int("new_keywords", result.NewKeywords).
		Int("new_patterns", result.NewPatterns).
		Msg("learned patterns imported")
	writeJSON(w, http.StatusOK, result)
}
