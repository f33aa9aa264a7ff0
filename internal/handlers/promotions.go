package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/rental"
)

// PromotionHandler serves promotions and the FAQ.
type PromotionHandler struct {
	promotions *rental.PromotionService
	faqs       *rental.FAQService
}

// NewPromotionHandler creates a promotion and FAQ handler.
func NewPromotionHandler(svc *rental.Services) *PromotionHandler {
	return &PromotionHandler{promotions: svc.Promotions, faqs: svc.FAQs}
}

type validateCodeRequest struct {
	Code string `json:"code"`
}

// Active handles GET /api/promotions
func (h *PromotionHandler) Active(w http.ResponseWriter, r *http.Request) {
	promos, err := h.promotions.ActivePromotions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promos)
}

// Validate handles POST /api/promotions/validate
func (h *PromotionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateCodeRequest
	if !readJSON(w, r, &req) {
		return
	}
	promo, err := h.promotions.ValidatePromoCode(r.Context(), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promo)
}

// Create handles POST /api/admin/promotions
func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p models.Promotion
	if !readJSON(w, r, &p) {
		return
	}
	if err := h.promotions.CreatePromotion(r.Context(), caller(r), &p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Deactivate handles POST /api/admin/promotions/{id}/deactivate
func (h *PromotionHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.promotions.DeactivatePromotion(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FAQs handles GET /api/faqs?category
func (h *PromotionHandler) FAQs(w http.ResponseWriter, r *http.Request) {
	faqs, err := h.faqs.FetchFAQs(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, faqs)
}

// FAQCategories handles GET /api/faqs/categories
func (h *PromotionHandler) FAQCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.faqs.FAQCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// CreateFAQ handles POST /api/admin/faqs
func (h *PromotionHandler) CreateFAQ(w http.ResponseWriter, r *http.Request) {
	var f models.FAQ
	if !readJSON(w, r, &f) {
		return
	}
	if err := h.faqs.CreateFAQ(r.Context(), caller(r), f); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}
