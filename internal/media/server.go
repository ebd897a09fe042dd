package media

import (
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
)

// Handler serves stored attachments over HTTP.
type Handler struct {
	storage Storage
}

func NewHandler(storage Storage) *Handler {
	return &Handler{storage: storage}
}

// Register mounts GET /media/{fileId} on the router.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/media/{fileId}", h.serveFile).Methods(http.MethodGet)
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["fileId"]

	content, meta, err := h.storage.Open(r.Context(), fileID)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", contentType(meta))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", meta.Size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", meta.Filename))

	if _, err := io.Copy(w, content); err != nil {
		log.Printf("streaming %s: %v", fileID, err)
	}
}

// contentType prefers the stored MIME type and falls back to the filename
// extension.
func contentType(meta *File) string {
	if meta.MimeType != "" {
		return meta.MimeType
	}
	if ct := mime.TypeByExtension(filepath.Ext(meta.Filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
