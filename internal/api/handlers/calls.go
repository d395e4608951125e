package handlers

import (
	"net/http"

	"scamguard/internal/domain/services"
	"scamguard/pkg/logger"
)

// CallsHandler handles incoming call notifications
type CallsHandler struct {
	engine *services.ScamRuleEngine
	logger *logger.Logger
}

// NewCallsHandler creates a new calls handler
func NewCallsHandler(engine *services.ScamRuleEngine, log *logger.Logger) *CallsHandler {
	return &CallsHandler{
		engine: engine,
		logger: log.WithComponent("calls-handler"),
	}
}

// CallRequest carries the caller's number; empty means hidden
type CallRequest struct {
	Number string `json:"number"`
}

// CallResponse reports whether the call was treated as suspicious
type CallResponse struct {
	Suspicious bool `json:"suspicious"`
}

// Incoming handles POST /api/v1/calls/incoming
func (h *CallsHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	suspicious := h.engine.HandleIncomingCall(req.Number)
	h.logger.Debug().Str("number", req.Number).Bool("suspicious", suspicious).Msg("incoming call")
	writeJSON(w, http.StatusOK, CallResponse{Suspicious: suspicious})
}

// RecordSuspicious handles POST /api/v1/calls/suspicious - records a call the
// client already judged suspicious
func (h *CallsHandler) RecordSuspicious(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Number == "" {
		writeError(w, http.StatusBadRequest, "number is required")
		return
	}

	h.engine.RecordSuspiciousCall(req.Number)
	w.WriteHeader(http.StatusNoContent)
}
