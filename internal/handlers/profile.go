package handlers

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/ukydev/luxury-rentals/internal/models"
	"github.com/ukydev/luxury-rentals/internal/rental"
	"github.com/ukydev/luxury-rentals/internal/storage"
)

// ProfileHandler serves the caller's profile and avatar.
type ProfileHandler struct {
	profiles *rental.ProfileService
}

// NewProfileHandler creates a profile handler.
func NewProfileHandler(svc *rental.Services) *ProfileHandler {
	return &ProfileHandler{profiles: svc.Profiles}
}

// AvatarResponse carries the public URL of an avatar. Empty when none exists.
type AvatarResponse struct {
	URL string `json:"url"`
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetProfile(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Update handles PUT /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.ProfileUpdate
	if !readJSON(w, r, &patch) {
		return
	}
	profile, err := h.profiles.UpdateProfile(r.Context(), caller(r), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Avatar handles GET /api/profile/avatar
func (h *ProfileHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	url, err := h.profiles.AvatarURL(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AvatarResponse{URL: url})
}

// UploadAvatar handles POST /api/profile/avatar. The image is either the raw
// request body or the "file" part of a multipart form.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxObjectBytes+64<<10)

	contentType := r.Header.Get("Content-Type")
	var body io.Reader = r.Body
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Missing file field", http.StatusBadRequest)
			return
		}
		defer file.Close()
		body = file
		contentType = header.Header.Get("Content-Type")
	}

	url, err := h.profiles.UploadAvatar(r.Context(), caller(r), contentType, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AvatarResponse{URL: url})
}

// DeleteAvatar handles DELETE /api/profile/avatar?url
func (h *ProfileHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		http.Error(w, "Avatar url required", http.StatusBadRequest)
		return
	}
	if err := h.profiles.DeleteAvatar(r.Context(), caller(r), url); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
