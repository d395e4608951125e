package handlers

import (
	"net/http"
	"strconv"

	"scamguard/internal/domain/models"
	"scamguard/internal/domain/services"
	"scamguard/pkg/logger"
)

// SummaryHandler serves the weekly protection report
type SummaryHandler struct {
	generator *services.WeeklySummaryGenerator
	logger    *logger.Logger
}

// NewSummaryHandler creates a new summary handler. A nil generator means the
// audit log is not configured.
func NewSummaryHandler(generator *services.WeeklySummaryGenerator, log *logger.Logger) *SummaryHandler {
	return &SummaryHandler{
		generator: generator,
		logger:    log.WithComponent("summary-handler"),
	}
}

// SummaryResponse is the weekly summary with its rendered text
type SummaryResponse struct {
	Summary models.WeeklySummary `json:"summary"`
	Report  string               `json:"report"`
	Sent    bool                 `json:"sent"`
}

// Weekly handles GET /api/v1/summary/weekly?send=true
func (h *SummaryHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		writeError(w, http.StatusServiceUnavailable, "audit log not configured")
		return
	}

	send, _ := strconv.ParseBool(r.URL.Query().Get("send"))

	var (
		s   models.WeeklySummary
		err error
	)
	if send {
		s, err = h.generator.GenerateAndSend(r.Context())
	} else {
		s, err = h.generator.Generate(r.Context())
	}
	if err != nil {
		h.logger.Error().Err(err).Bool("send", send).Msg("weekly summary failed")
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SummaryResponse{Summary: s, Report: h.generator.Format(s), Sent: send})
}
