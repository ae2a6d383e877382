package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quizdy/ar-server/internal/venueservice"
)

// NewRouter creates a chi router with all API routes mounted.
// bodyLimit caps request bodies in bytes.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *venueservice.Service, bodyLimit int64, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, bodyLimit)

	r := chi.NewRouter()

	// Venues.
	r.Get("/venues", h.ListVenues)
	r.Post("/update-venue", h.UpdateVenue)
	r.Post("/delete-venue", h.DeleteVenue)

	// Targets.
	r.Get("/targets", h.GetTargets)
	r.Post("/update-target", h.UpdateTarget)
	r.Post("/delete-target", h.DeleteTarget)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// MountImages registers GET /images/{venue}/{file} on r.
func MountImages(r chi.Router, images *ImageHandler) {
	r.Get("/images/{venue}/{file}", images.ServeFile)
}
