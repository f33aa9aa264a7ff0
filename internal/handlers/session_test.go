package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/luxury-rentals/internal/models"
)

func TestSessionHandler_Timeout(t *testing.T) {
	f := newFixture(t)
	h := NewSessionHandler(f.settings, f.idle)

	w := httptest.NewRecorder()
	h.GetTimeout(w, newRequest(t, http.MethodGet, "/api/session/timeout", nil, customer()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"enabled":false,"minutes":30}`, w.Body.String())

	w = httptest.NewRecorder()
	h.UpdateTimeout(w, newRequest(t, http.MethodPut, "/api/session/timeout", models.TimeoutSettings{Enabled: true, Minutes: 15}, customer()))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.GetTimeout(w, newRequest(t, http.MethodGet, "/api/session/timeout", nil, customer()))
	assert.JSONEq(t, `{"enabled":true,"minutes":15}`, w.Body.String())

	w = httptest.NewRecorder()
	h.GetTimeout(w, newRequest(t, http.MethodGet, "/api/session/timeout", nil, admin()))
	assert.JSONEq(t, `{"enabled":false,"minutes":30}`, w.Body.String())
}

func TestSessionHandler_UpdateTimeoutRejectsOutOfRange(t *testing.T) {
	f := newFixture(t)
	h := NewSessionHandler(f.settings, f.idle)

	w := httptest.NewRecorder()
	h.UpdateTimeout(w, newRequest(t, http.MethodPut, "/api/session/timeout", models.TimeoutSettings{Enabled: true, Minutes: 0}, customer()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_UpdateTimeoutArmsLiveSession(t *testing.T) {
	f := newFixture(t)
	h := NewSessionHandler(f.settings, f.idle)

	w := httptest.NewRecorder()
	h.Activity(w, newRequest(t, http.MethodPost, "/api/session/activity", nil, customer()))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, f.idle.Tracked("s-1"))
	assert.False(t, f.idle.Armed("s-1"))

	w = httptest.NewRecorder()
	h.UpdateTimeout(w, newRequest(t, http.MethodPut, "/api/session/timeout", models.TimeoutSettings{Enabled: true, Minutes: 5}, customer()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.idle.Armed("s-1"))
}

func TestSessionHandler_RequiresCaller(t *testing.T) {
	f := newFixture(t)
	h := NewSessionHandler(f.settings, f.idle)

	w := httptest.NewRecorder()
	h.Activity(w, newRequest(t, http.MethodPost, "/api/session/activity", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	h.GetTimeout(w, newRequest(t, http.MethodGet, "/api/session/timeout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
