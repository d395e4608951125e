package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"scamguard/internal/domain/models"
	"scamguard/internal/domain/services"
	"scamguard/pkg/logger"
)

// ContactsHandler manages trusted contacts
type ContactsHandler struct {
	trusted *services.TrustedSenderRegistry
	engine  *services.ScamRuleEngine
	logger  *logger.Logger
}

// NewContactsHandler creates a new contacts handler
func NewContactsHandler(trusted *services.TrustedSenderRegistry, engine *services.ScamRuleEngine, log *logger.Logger) *ContactsHandler {
	return &ContactsHandler{
		trusted: trusted,
		engine:  engine,
		logger:  log.WithComponent("contacts-handler"),
	}
}

// ContactRequest is the request body for adding a contact
type ContactRequest struct {
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
}

// TrustResponse answers a trust lookup
type TrustResponse struct {
	Identifier string `json:"identifier"`
	Trusted    bool   `json:"trusted"`
}

// List handles GET /api/v1/contacts
func (h *ContactsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.trusted.Contacts())
}

// Add handles POST /api/v1/contacts
func (h *ContactsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.trusted.AddContact(r.Context(), models.TrustedContact{PhoneNumber: req.PhoneNumber, Name: req.Name})
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to add contact")
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// Remove handles DELETE /api/v1/contacts/{number}
func (h *ContactsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if err := h.trusted.RemoveContact(r.Context(), number); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Check handles GET /api/v1/trust?identifier=...
func (h *ContactsHandler) Check(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("identifier")
	if id == "" {
		writeError(w, http.StatusBadRequest, "identifier is required")
		return
	}
	writeJSON(w, http.StatusOK, TrustResponse{Identifier: id, Trusted: h.engine.IsTrusted(id)})
}
