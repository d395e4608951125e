package handlers

import (
	"net/http"

	"scamguard/internal/streaming"
	"scamguard/pkg/logger"
)

// StreamingHandler serves the live alert feed
type StreamingHandler struct {
	wsHub    *streaming.WebSocketHub
	eventBus *streaming.EventBus
	logger   *logger.Logger
}

// NewStreamingHandler creates a new streaming handler
func NewStreamingHandler(wsHub *streaming.WebSocketHub, eventBus *streaming.EventBus, log *logger.Logger) *StreamingHandler {
	return &StreamingHandler{
		wsHub:    wsHub,
		eventBus: eventBus,
		logger:   log.WithComponent("streaming-handler"),
	}
}

// StreamingStats reports connected consumers
type StreamingStats struct {
	WebSocketClients    int `json:"websocket_clients"`
	EventBusSubscribers int `json:"event_bus_subscribers"`
}

// HandleWebSocket handles GET /ws/alerts
func (h *StreamingHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		writeError(w, http.StatusServiceUnavailable, "alert feed not available")
		return
	}

	h.logger.Debug().
		Str("remote_addr", r.RemoteAddr).
		Str("user_agent", r.UserAgent()).
		Msg("WebSocket connection request")

	h.wsHub.ServeWebSocket(w, r)
}

// GetStats handles GET /api/v1/stream/stats
func (h *StreamingHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var stats StreamingStats
	if h.wsHub != nil {
		stats.WebSocketClients = h.wsHub.ClientCount()
	}
	if h.eventBus != nil {
		stats.EventBusSubscribers = h.eventBus.SubscriberCount()
	}
	writeJSON(w, http.StatusOK, stats)
}
