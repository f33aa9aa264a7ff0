package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/rental"
)

// ReviewHandler serves review submission and the caller's reviews.
type ReviewHandler struct {
	reviews *rental.ReviewService
}

// NewReviewHandler creates a review handler.
func NewReviewHandler(svc *rental.Services) *ReviewHandler {
	return &ReviewHandler{reviews: svc.Reviews}
}

// Create handles POST /api/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReviewRequest
	if !readJSON(w, r, &req) {
		return
	}
	review, err := h.reviews.CreateReview(r.Context(), caller(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// Mine handles GET /api/reviews/mine
func (h *ReviewHandler) Mine(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.UserReviews(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// Delete handles DELETE /api/reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.DeleteReview(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
