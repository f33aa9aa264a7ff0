package handlers

import (
	"net/http"

	"github.com/ukydev/luxury-rentals/internal/rental"
)

// AdminHandler serves the admin dashboard.
type AdminHandler struct {
	admin *rental.AdminService
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(svc *rental.Services) *AdminHandler {
	return &AdminHandler{admin: svc.Admin}
}

// Dashboard handles GET /api/admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.admin.Dashboard(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
