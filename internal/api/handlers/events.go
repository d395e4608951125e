package handlers

import (
	"net/http"
	"strconv"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

const maxEventLimit = 500

// EventsHandler lists the audit log
type EventsHandler struct {
	events EventLister
	logger *logger.Logger
}

// NewEventsHandler creates a new events handler. events may be nil.
func NewEventsHandler(events EventLister, log *logger.Logger) *EventsHandler {
	return &EventsHandler{
		events: events,
		logger: log.WithComponent("events-handler"),
	}
}

// EventsResponse is one page of audit events, newest first
type EventsResponse struct {
	Events []models.RiskEvent `json:"events"`
	Since  time.Time          `json:"since"`
	Count  int                `json:"count"`
}

// List handles GET /api/v1/events?since=RFC3339&limit=N (default: last 24h, 100)
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeError(w, http.StatusServiceUnavailable, "audit log not configured")
		return
	}

	q := r.URL.Query()
	since := time.Now().UTC().Add(-24 * time.Hour)
	if raw := q.Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = t
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxEventLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	events, err := h.events.ListSince(r.Context(), since, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list events")
		writeError(w, statusFor(err), "failed to list events")
		return
	}
	if events == nil {
		events = []models.RiskEvent{}
	}

	writeJSON(w, http.StatusOK, EventsResponse{Events: events, Since: since, Count: len(events)})
}
