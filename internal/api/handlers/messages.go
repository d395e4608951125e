package handlers

import (
	"net/http"

	"scamguard/internal/domain/models"
	"scamguard/internal/domain/services"
	"scamguard/pkg/logger"
)

// Actions returned with an evaluation
const (
	ActionBlock   = "block"
	ActionWarn    = "warn"
	ActionDeliver = "deliver"
)

// MessagesHandler handles message evaluation and scam confirmation
type MessagesHandler struct {
	engine *services.ScamRuleEngine
	logger *logger.Logger
}

// NewMessagesHandler creates a new messages handler
func NewMessagesHandler(engine *services.ScamRuleEngine, log *logger.Logger) *MessagesHandler {
	return &MessagesHandler{
		engine: engine,
		logger: log.WithComponent("messages-handler"),
	}
}

// EvaluateRequest is the request body for message evaluation
type EvaluateRequest struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

// EvaluateResponse is the RiskState plus what the client should do with the message
type EvaluateResponse struct {
	models.RiskState
	Action string `json:"action"`
}

// ConfirmRequest is the request body for scam confirmation
type ConfirmRequest struct {
	Sender    string `json:"sender"`
	Body      string `json:"body"`
	Confirmed bool   `json:"confirmed"`
}

// ActionFor maps a risk level to the client action
func ActionFor(level models.RiskLevel) string {
	switch level {
	case models.RiskDanger:
		return ActionBlock
	case models.RiskCaution:
		return ActionWarn
	default:
		return ActionDeliver
	}
}

// Evaluate handles POST /api/v1/messages/evaluate
func (h *MessagesHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug().Err(err).Msg("invalid request body")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state := h.engine.Evaluate(req.Sender, req.Body)

	h.logger.Info().
		Str("sender", req.Sender).
		Str("level", state.Level.String()).
		Int("reasons", len(state.Reasons)).
		Msg("message evaluated")

	writeJSON(w, http.StatusOK, EvaluateResponse{RiskState: state, Action: ActionFor(state.Level)})
}

// Confirm handles POST /api/v1/messages/confirm
func (h *MessagesHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Body == "" {
		writeError(w, http.StatusBadRequest, "message body is required")
		return
	}

	result := h.engine.ConfirmScam(req.Sender, req.Body, req.Confirmed)
	writeJSON(w, http.StatusOK, result)
}
