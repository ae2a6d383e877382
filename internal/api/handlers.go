package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/quizdy/ar-server/internal/apperr"
	"github.com/quizdy/ar-server/internal/checksum"
	"github.com/quizdy/ar-server/internal/models"
	"github.com/quizdy/ar-server/internal/venueservice"
)

var errNoTargetNo = apperr.New(apperr.ErrValidation, "target no is required")

// Handler holds API route handlers.
type Handler struct {
	svc       *venueservice.Service
	bodyLimit int64
}

// NewHandler creates a new Handler. Request bodies larger than bodyLimit
// bytes are rejected; zero disables the cap.
func NewHandler(svc *venueservice.Service, bodyLimit int64) *Handler {
	return &Handler{svc: svc, bodyLimit: bodyLimit}
}

// ListVenues handles GET /venues.
//
//	@Summary	List venue names
//	@Tags		venues
//	@Produce	json
//	@Success	200	{object}	VenuesResponse
//	@Router		/venues [get]
func (h *Handler) ListVenues(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.ListVenues(r.Context())
	if err != nil {
		writeError(w, r, "list venues", err)
		return
	}
	writeJSON(w, http.StatusOK, VenuesResponse{Venues: names})
}

// GetTargets handles GET /targets?venue=.
//
// Unknown venues yield the empty document. The response carries an ETag
// and honours If-None-Match.
//
//	@Summary	Get a venue document
//	@Tags		targets
//	@Produce	json
//	@Param		venue			query		string	false	"Venue name"
//	@Param		If-None-Match	header		string	false	"ETag of a cached document"
//	@Success	200				{object}	Venue
//	@Success	304				"Not modified"
//	@Failure	400				{object}	Result
//	@Router		/targets [get]
func (h *Handler) GetTargets(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("venue")
	v := models.NewVenue("")
	if name != "" {
		var err error
		if v, err = h.svc.GetVenue(r.Context(), name); err != nil {
			writeError(w, r, "get targets", err)
			return
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, "get targets", err)
		return
	}
	etag := checksum.ETag(data)
	w.Header().Set("ETag", etag)
	if etagMatch(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(data, '\n'))
}

// UpdateVenue handles POST /update-venue.
//
//	@Summary	Create a venue, or keep an existing one unchanged
//	@Tags		venues
//	@Accept		json,x-www-form-urlencoded
//	@Produce	json
//	@Param		body	body		VenueRequest	true	"Venue"
//	@Success	200		{object}	Result
//	@Failure	400		{object}	Result
//	@Router		/update-venue [post]
func (h *Handler) UpdateVenue(w http.ResponseWriter, r *http.Request) {
	var req VenueRequest
	if err := decode(w, r, h.bodyLimit, &req); err != nil {
		writeError(w, r, "update venue", err)
		return
	}
	if err := h.svc.UpdateVenue(r.Context(), req.Venue); err != nil {
		writeError(w, r, "update venue", err)
		return
	}
	writeJSON(w, http.StatusOK, success())
}

// DeleteVenue handles POST /delete-venue.
//
//	@Summary	Delete a venue and its images
//	@Tags		venues
//	@Accept		json,x-www-form-urlencoded
//	@Produce	json
//	@Param		body	body		VenueRequest	true	"Venue"
//	@Success	200		{object}	Result
//	@Failure	404		{object}	Result
//	@Router		/delete-venue [post]
func (h *Handler) DeleteVenue(w http.ResponseWriter, r *http.Request) {
	var req VenueRequest
	if err := decode(w, r, h.bodyLimit, &req); err != nil {
		writeError(w, r, "delete venue", err)
		return
	}
	if err := h.svc.DeleteVenue(r.Context(), req.Venue); err != nil {
		writeError(w, r, "delete venue", err)
		return
	}
	writeJSON(w, http.StatusOK, success())
}

// UpdateTarget handles POST /update-target.
//
//	@Summary	Create or update a target
//	@Tags		targets
//	@Accept		json,x-www-form-urlencoded
//	@Produce	json
//	@Param		body	body		TargetRequest	true	"Target"
//	@Success	200		{object}	Result
//	@Failure	400		{object}	Result
//	@Failure	404		{object}	Result
//	@Router		/update-target [post]
func (h *Handler) UpdateTarget(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if err := decode(w, r, h.bodyLimit, &req); err != nil {
		writeError(w, r, "update target", err)
		return
	}
	if _, err := h.svc.UpdateTarget(r.Context(), req.Venue, req.Target); err != nil {
		writeError(w, r, "update target", err)
		return
	}
	writeJSON(w, http.StatusOK, success())
}

// DeleteTarget handles POST /delete-target.
//
//	@Summary	Delete a target and its image
//	@Tags		targets
//	@Accept		json,x-www-form-urlencoded
//	@Produce	json
//	@Param		body	body		TargetRequest	true	"Target with no"
//	@Success	200		{object}	Result
//	@Failure	404		{object}	Result
//	@Router		/delete-target [post]
func (h *Handler) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if err := decode(w, r, h.bodyLimit, &req); err != nil {
		writeError(w, r, "delete target", err)
		return
	}
	if req.Target.No == nil {
		writeError(w, r, "delete target", errNoTargetNo)
		return
	}
	if err := h.svc.DeleteTarget(r.Context(), req.Venue, *req.Target.No); err != nil {
		writeError(w, r, "delete target", err)
		return
	}
	writeJSON(w, http.StatusOK, success())
}

func etagMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
