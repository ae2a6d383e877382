package api

import "github.com/quizdy/ar-server/internal/models"

// Result is the envelope returned by every mutating endpoint.
type Result struct {
	Ret bool   `json:"ret" example:"true"`
	Msg string `json:"msg" example:"success"`
}

// VenuesResponse is returned by GET /venues.
type VenuesResponse struct {
	Venues []string `json:"venues" example:"hall,garden"`
}

// Venue is the document returned by GET /targets.
type Venue = models.Venue

// VenueRequest is the body of update-venue and delete-venue.
type VenueRequest struct {
	Venue string `json:"venue" example:"hall"`
}

// TargetRequest is the body of update-target and delete-target.
type TargetRequest struct {
	Venue  string             `json:"venue" example:"hall"`
	Target models.TargetInput `json:"target"`
}
