package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/rental"
)

// BookingHandler serves customer bookings and the admin booking desk.
type BookingHandler struct {
	bookings *rental.BookingService
}

// NewBookingHandler creates a booking handler.
func NewBookingHandler(svc *rental.Services) *BookingHandler {
	return &BookingHandler{bookings: svc.Bookings}
}

type statusRequest struct {
	Status models.BookingStatus `json:"status"`
}

// Create handles POST /api/bookings
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookingRequest
	if !readJSON(w, r, &req) {
		return
	}
	booking, err := h.bookings.CreateBooking(r.Context(), caller(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// Mine handles GET /api/bookings
func (h *BookingHandler) Mine(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.UserBookings(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// Cancel handles POST /api/bookings/{id}/cancel
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookings.CancelBooking(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// All handles GET /api/admin/bookings?status
func (h *BookingHandler) All(w http.ResponseWriter, r *http.Request) {
	status := models.BookingStatus(r.URL.Query().Get("status"))
	bookings, err := h.bookings.AllBookings(r.Context(), caller(r), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// UpdateStatus handles PUT /api/admin/bookings/{id}/status
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !readJSON(w, r, &req) {
		return
	}
	booking, err := h.bookings.UpdateStatus(r.Context(), caller(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
