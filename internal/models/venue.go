// Package models defines the domain types for venues and their targets.
package models

// Venue is the persisted document for one venue.
type Venue struct {
	Venue   string   `json:"venue"`
	Targets []Target `json:"targets"`
	// LastNo is the highest target number ever assigned in this venue.
	LastNo int `json:"last_no,omitempty"`
}

// NewVenue returns an empty document for name.
func NewVenue(name string) *Venue {
	return &Venue{Venue: name, Targets: []Target{}}
}

// Target is a point of interest within a venue.
type Target struct {
	No       int     `json:"no"`
	Title    string  `json:"title"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Image    string  `json:"image"`
	Comments string  `json:"comments"`
}

// TargetInput is the request form of a target. No and Base64 are optional:
// a nil No asks for a new target, a nil Base64 leaves the image untouched.
type TargetInput struct {
	No       *int    `json:"no,omitempty"`
	Title    string  `json:"title"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Image    string  `json:"image,omitempty"`
	Pic      string  `json:"pic,omitempty"` // accepted from older clients
	Comments string  `json:"comments"`
	Base64   *string `json:"base64,omitempty"`
}

// ImagePath returns the image reference carried by the input, preferring
// image over the legacy pic field.
func (in TargetInput) ImagePath() string {
	if in.Image != "" {
		return in.Image
	}
	return in.Pic
}

// Payload returns the embedded image payload, or "" when none was sent.
func (in TargetInput) Payload() string {
	if in.Base64 == nil {
		return ""
	}
	return *in.Base64
}

// FileMeta describes one file returned by a storage listing.
type FileMeta struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}
