package handlers

import (
	"net/http"

	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/session"
)

// SessionHandler exposes the inactivity settings of the caller.
type SessionHandler struct {
	settings *session.Settings
	idle     *session.IdleManager
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(settings *session.Settings, idle *session.IdleManager) *SessionHandler {
	return &SessionHandler{settings: settings, idle: idle}
}

// GetTimeout handles GET /api/session/timeout
func (h *SessionHandler) GetTimeout(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireCaller(w, r)
	if !ok {
		return
	}
	ts, err := h.settings.Get(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

// UpdateTimeout handles PUT /api/session/timeout. Live sessions of the
// caller pick up the new threshold immediately.
func (h *SessionHandler) UpdateTimeout(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var ts models.TimeoutSettings
	if !readJSON(w, r, &ts) {
		return
	}
	if err := h.settings.Set(r.Context(), claims.UserID, ts); err != nil {
		writeError(w, r, err)
		return
	}
	h.idle.Refresh(claims.UserID)
	writeJSON(w, http.StatusOK, ts)
}

// Activity handles POST /api/session/activity. Clients call it on user
// input that does not otherwise reach the API.
func (h *SessionHandler) Activity(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireCaller(w, r)
	if !ok {
		return
	}
	h.idle.Touch(claims.UserID, claims.SessionID)
	w.WriteHeader(http.StatusNoContent)
}
