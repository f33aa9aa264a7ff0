// Package handlers implements the JSON HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/auth"
	"github.com/ukydev/luxury-rentals/internal/middleware"
	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/rental"
	"github.com/ukydev/luxury-rentals/internal/session"
)

const maxBodyBytes = 1 << 20

// readJSON decodes the request body into v.
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	var verr *rental.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, auth.ErrValidation),
		errors.Is(err, auth.ErrInvalidResetToken),
		errors.Is(err, rental.ErrInvalidPromotion),
		errors.Is(err, session.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, rental.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrSessionExpired),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUserInactive):
		return http.StatusUnauthorized
	case errors.Is(err, rental.ErrForbidden), errors.Is(err, auth.ErrEmailNotVerified):
		return http.StatusForbidden
	case errors.Is(err, rental.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, rental.ErrUnavailable),
		errors.Is(err, rental.ErrInvalidTransition),
		errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, auth.ErrOAuthDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with the status of err. Internal errors are logged
// and their details withheld.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		http.Error(w, "Internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

// caller returns the claims of the request. Routes without authentication
// get nil, which the services reject.
func caller(r *http.Request) *models.Claims {
	claims, _ := middleware.GetUserFromContext(r.Context())
	return claims
}

func requireCaller(w http.ResponseWriter, r *http.Request) (*models.Claims, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", v, time.UTC)
}

func queryDates(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	start, err := parseDate(q.Get("start"))
	if err != nil {
		return time.Time{}, time.Time{}, &rental.ValidationError{Field: "start", Message: "must be a date (YYYY-MM-DD)"}
	}
	end, err := parseDate(q.Get("end"))
	if err != nil {
		return time.Time{}, time.Time{}, &rental.ValidationError{Field: "end", Message: "must be a date (YYYY-MM-DD)"}
	}
	return start, end, nil
}

func queryFloat(r *http.Request, key string) (*float64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, &rental.ValidationError{Field: key, Message: "must be a number"}
	}
	return &f, nil
}

func queryBool(r *http.Request, key string) (*bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, &rental.ValidationError{Field: key, Message: "must be true or false"}
	}
	return &b, nil
}
