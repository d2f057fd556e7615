package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/storage"
)

// FilesHandler serves stored documents for the local filesystem backend
type FilesHandler struct {
	store storage.DocumentStore
}

// NewFilesHandler creates a new download handler
func NewFilesHandler(store storage.DocumentStore) *FilesHandler {
	return &FilesHandler{store: store}
}

// Download streams the object named by the {key} path variable
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if err := storage.ValidateKey(key); err != nil {
		http.Error(w, "Invalid key", http.StatusBadRequest)
		return
	}

	file, err := h.store.Open(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to open stored file", "key", key, "error", err)
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	// Determine content type from file extension
	contentType := "application/octet-stream"
	if filepath.Ext(key) == ".pdf" {
		contentType = "application/pdf"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if _, err := io.Copy(w, file); err != nil {
		logger.WarnContext(r.Context(), "File download interrupted", "key", key, "error", err)
	}
}
