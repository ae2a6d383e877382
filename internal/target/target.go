// Package target implements create-or-update and removal of targets inside
// an in-memory venue document. Targets are identified by their no only;
// array positions carry no meaning.
package target

import (
	"fmt"

	"github.com/quizdy/ar-server/internal/apperr"
	"github.com/quizdy/ar-server/internal/models"
)

var errNoTarget = apperr.New(apperr.ErrNotFound, "no exist target")

// Outcome reports what Upsert did.
type Outcome int

const (
	Created Outcome = iota + 1
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	}
	return "unknown"
}

// NextNo returns the number the next created target receives: one past the
// highest number ever assigned, so numbers freed by deletes are not reused.
func NextNo(v *models.Venue) int {
	last := v.LastNo
	for _, t := range v.Targets {
		if t.No > last {
			last = t.No
		}
	}
	return last + 1
}

// find returns the index of the target numbered no, or -1.
// More than one match means the document violates no uniqueness.
func find(v *models.Venue, no int) (int, error) {
	pos := -1
	for i, t := range v.Targets {
		if t.No != no {
			continue
		}
		if pos >= 0 {
			return -1, fmt.Errorf("target: venue %q: %w", v.Venue,
				apperr.New(apperr.ErrCorrupt, fmt.Sprintf("duplicate target no %d", no)))
		}
		pos = i
	}
	return pos, nil
}

// Upsert creates a target from in when in.No is absent or unknown, or
// overwrites the fields of the existing one. The returned pointer aliases
// the entry inside v.Targets.
//
// An existing image is kept when the input carries none; the image payload
// itself is not handled here.
func Upsert(v *models.Venue, in models.TargetInput) (*models.Target, Outcome, error) {
	if v.Targets == nil {
		v.Targets = []models.Target{}
	}

	pos := -1
	if in.No != nil {
		var err error
		if pos, err = find(v, *in.No); err != nil {
			return nil, 0, err
		}
	}

	if pos < 0 {
		no := NextNo(v)
		v.Targets = append(v.Targets, models.Target{
			No:       no,
			Title:    in.Title,
			Lat:      in.Lat,
			Lng:      in.Lng,
			Image:    in.ImagePath(),
			Comments: in.Comments,
		})
		v.LastNo = no
		return &v.Targets[len(v.Targets)-1], Created, nil
	}

	t := &v.Targets[pos]
	t.Title = in.Title
	t.Lat = in.Lat
	t.Lng = in.Lng
	if img := in.ImagePath(); img != "" {
		t.Image = img
	}
	t.Comments = in.Comments
	return t, Updated, nil
}

// Get returns a copy of the target numbered no.
func Get(v *models.Venue, no int) (models.Target, error) {
	pos, err := find(v, no)
	if err != nil {
		return models.Target{}, err
	}
	if pos < 0 {
		return models.Target{}, errNoTarget
	}
	return v.Targets[pos], nil
}

// Remove deletes the target numbered no, keeping the order and numbers of
// the others, and returns the removed entry. v is untouched on error.
func Remove(v *models.Venue, no int) (models.Target, error) {
	pos, err := find(v, no)
	if err != nil {
		return models.Target{}, err
	}
	if pos < 0 {
		return models.Target{}, errNoTarget
	}
	v.LastNo = NextNo(v) - 1
	removed := v.Targets[pos]
	v.Targets = append(v.Targets[:pos], v.Targets[pos+1:]...)
	return removed, nil
}

// Referenced reports whether any target of v other than no uses image.
func Referenced(v *models.Venue, image string, no int) bool {
	for _, t := range v.Targets {
		if t.No != no && t.Image == image {
			return true
		}
	}
	return false
}
