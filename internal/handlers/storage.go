package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/luxury-rentals/internal/storage"
)

// StorageHandler serves the objects of a public bucket.
type StorageHandler struct {
	store storage.ObjectStore
}

// NewStorageHandler creates a handler serving store.
func NewStorageHandler(store storage.ObjectStore) *StorageHandler {
	return &StorageHandler{store: store}
}

// Object handles GET /storage/v1/object/public/avatars/*
func (h *StorageHandler) Object(w http.ResponseWriter, r *http.Request) {
	p, err := storage.CleanPath(chi.URLParam(r, "*"))
	if err != nil {
		http.Error(w, "Invalid object path", http.StatusBadRequest)
		return
	}
	rc, obj, err := h.store.Open(r.Context(), p)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Object not found", http.StatusNotFound)
			return
		}
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		log.WithError(err).WithField("path", p).Warn("Failed to stream object")
	}
}
