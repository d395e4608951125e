package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/internal/domain/services"
	"scamguard/internal/grpc/health"
	"scamguard/internal/streaming"
	"scamguard/pkg/logger"
)

// maxBodyBytes bounds request bodies; SMS bodies are far smaller
const maxBodyBytes = 256 * 1024

// EventLister reads the audit log. repository.EventRepository satisfies it.
type EventLister interface {
	ListSince(ctx context.Context, since time.Time, limit int) ([]models.RiskEvent, error)
}

// Handlers holds all API handlers
type Handlers struct {
	Health    *HealthHandler
	Messages  *MessagesHandler
	Calls     *CallsHandler
	Blocked   *BlockedHandler
	Learned   *LearnedHandler
	Contacts  *ContactsHandler
	Summary   *SummaryHandler
	Events    *EventsHandler
	Streaming *StreamingHandler
}

// Dependencies holds dependencies for handlers. Summary, Events, Health,
// WSHub and EventBus are optional.
type Dependencies struct {
	Engine   *services.ScamRuleEngine
	History  *services.BlockedHistory
	Learning *services.LearningStore
	Trusted  *services.TrustedSenderRegistry
	Summary  *services.WeeklySummaryGenerator
	Events   EventLister
	Health   *health.Checker
	WSHub    *streaming.WebSocketHub
	EventBus *streaming.EventBus
	Version  string
	Logger   *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Health, deps.Version, deps.Logger),
		Messages:  NewMessagesHandler(deps.Engine, deps.Logger),
		Calls:     NewCallsHandler(deps.Engine, deps.Logger),
		Blocked:   NewBlockedHandler(deps.History, deps.Logger),
		Learned:   NewLearnedHandler(deps.Learning, deps.Logger),
		Contacts:  NewContactsHandler(deps.Trusted, deps.Engine, deps.Logger),
		Summary:   NewSummaryHandler(deps.Summary, deps.Logger),
		Events:    NewEventsHandler(deps.Events, deps.Logger),
		Streaming: NewStreamingHandler(deps.WSHub, deps.EventBus, deps.Logger),
	}
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps domain sentinel errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
