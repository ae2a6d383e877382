package api

import (
	"net/http"
	"os"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/quizdy/ar-server/internal/models"
	"github.com/quizdy/ar-server/internal/storage"
)

// ImageHandler serves stored target images read-only.
type ImageHandler struct {
	images *storage.FS
}

// NewImageHandler creates a handler over the images root.
func NewImageHandler(images *storage.FS) *ImageHandler {
	return &ImageHandler{images: images}
}

// ServeFile handles GET /images/{venue}/{file}.
func (h *ImageHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	venue := chi.URLParam(r, "venue")
	file := chi.URLParam(r, "file")
	if models.ValidateVenueName(venue) != nil || file == "" || file != path.Base(file) || file[0] == '.' {
		http.NotFound(w, r)
		return
	}
	abs, err := h.images.Resolve(path.Join(venue, file))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if info, statErr := os.Stat(abs); statErr != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}
