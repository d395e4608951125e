package handlers

import (
	"net/http"
	"time"

	"scamguard/internal/grpc/health"
	"scamguard/pkg/logger"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checker   *health.Checker
	version   string
	logger    *logger.Logger
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler. A nil checker means no
// dependencies are probed.
func NewHealthHandler(checker *health.Checker, version string, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checker:   checker,
		version:   version,
		logger:    log.WithComponent("health"),
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Uptime    string          `json:"uptime"`
	Timestamp string          `json:"timestamp"`
	Checks    []health.Status `json:"checks,omitempty"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - pings every registered dependency
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	resp := HealthResponse{
		Status:    "ready",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.checker != nil {
		resp.Checks = h.checker.Check(r.Context())
		for _, c := range resp.Checks {
			if !c.Healthy {
				status = http.StatusServiceUnavailable
				resp.Status = "not ready"
			}
		}
	}

	writeJSON(w, status, resp)
}
