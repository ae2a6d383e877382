// Package venuestore persists venue documents as one JSON file per venue and
// owns the per-venue image directories.
package venuestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/quizdy/ar-server/internal/apperr"
	"github.com/quizdy/ar-server/internal/models"
	"github.com/quizdy/ar-server/internal/storage"
)

const ext = ".json"

// Store maps venue names to documents under the venues root and removes
// image directories under the images root.
type Store struct {
	venues storage.Provider
	images storage.Provider
	locks  *keyedLock
	logger *slog.Logger
}

// New creates a Store.
func New(venues, images storage.Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		venues: venues,
		images: images,
		locks:  newKeyedLock(),
		logger: logger,
	}
}

// FileName returns the document file name for a venue.
func FileName(name string) string {
	return name + ext
}

// NameFromFile returns the venue name for a document file name, or false
// if the file is not a venue document.
func NameFromFile(file string) (string, bool) {
	if strings.HasPrefix(file, ".") || !strings.HasSuffix(file, ext) {
		return "", false
	}
	name := strings.TrimSuffix(file, ext)
	return name, name != ""
}

// List returns venue names in lexical order. A missing venues directory
// yields an empty list.
func (s *Store) List(_ context.Context) ([]string, error) {
	files, err := s.venues.Names("", ext)
	if err != nil {
		return nil, fmt.Errorf("venuestore: list: %w", err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		if name, ok := NameFromFile(f); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// Load returns the venue document. An absent document is not an error: the
// result is then the empty default {venue:"", targets:[]}. Malformed JSON
// yields an error wrapping apperr.ErrParse.
func (s *Store) Load(_ context.Context, name string) (*models.Venue, error) {
	v, exists, err := s.load(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return models.NewVenue(""), nil
	}
	return v, nil
}

// Exists reports whether the venue document is present.
func (s *Store) Exists(_ context.Context, name string) (bool, error) {
	_, exists, err := s.load(name)
	return exists, err
}

func (s *Store) load(name string) (*models.Venue, bool, error) {
	if err := models.ValidateVenueName(name); err != nil {
		return nil, false, err
	}
	data, err := s.venues.Read(FileName(name))
	if errors.Is(err, os.ErrNotExist) {
		return models.NewVenue(name), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("venuestore: load %s: %w", name, err)
	}
	var v models.Venue
	if err := json.Unmarshal(data, &v); err != nil {
		s.logger.Error("venuestore: parse failed", slog.String("venue", name), slog.String("error", err.Error()))
		return nil, true, fmt.Errorf("venuestore: parse %s: %w", name, apperr.New(apperr.ErrParse, "malformed venue document"))
	}
	if v.Venue == "" {
		v.Venue = name
	}
	if v.Targets == nil {
		v.Targets = []models.Target{}
	}
	return &v, true, nil
}

// Save writes the document to <venue>.json, creating the venues directory
// when needed.
func (s *Store) Save(_ context.Context, v *models.Venue) error {
	return s.save(v)
}

func (s *Store) save(v *models.Venue) error {
	if err := models.ValidateVenueName(v.Venue); err != nil {
		return err
	}
	if v.Targets == nil {
		v.Targets = []models.Target{}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("venuestore: encode %s: %w", v.Venue, err)
	}
	data = append(data, '\n')
	if err := s.venues.Write(FileName(v.Venue), data); err != nil {
		return fmt.Errorf("venuestore: save %s: %w", v.Venue, err)
	}
	return nil
}

// Mutate runs fn on the venue document inside the venue's exclusive section
// and saves the document when fn returns nil. exists tells fn whether the
// document was on disk; if not, fn receives an empty document named name.
// Mutations of other venues proceed concurrently.
func (s *Store) Mutate(ctx context.Context, name string, fn func(v *models.Venue, exists bool) error) error {
	if err := models.ValidateVenueName(name); err != nil {
		return err
	}
	unlock, err := s.locks.Lock(ctx, name)
	if err != nil {
		return fmt.Errorf("venuestore: lock %s: %w", name, err)
	}
	defer unlock()

	v, exists, err := s.load(name)
	if err != nil {
		return err
	}
	if err := fn(v, exists); err != nil {
		return err
	}
	v.Venue = name
	return s.save(v)
}

// Delete removes the venue document and the venue's image directory. Both
// removals are attempted; a missing document is reported as
// apperr.ErrNotFound once the image directory is gone.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := models.ValidateVenueName(name); err != nil {
		return err
	}
	unlock, err := s.locks.Lock(ctx, name)
	if err != nil {
		return fmt.Errorf("venuestore: lock %s: %w", name, err)
	}
	defer unlock()

	var docErr error
	missing := false
	if err := s.venues.Delete(FileName(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			missing = true
		} else {
			docErr = fmt.Errorf("venuestore: delete %s: %w", name, err)
		}
	}

	var imgErr error
	if err := s.images.DeleteAll(name); err != nil {
		imgErr = fmt.Errorf("venuestore: delete images of %s: %w", name, err)
	}

	if err := errors.Join(docErr, imgErr); err != nil {
		return err
	}
	if missing {
		return fmt.Errorf("venuestore: delete %s: %w", name, apperr.New(apperr.ErrNotFound, "not found venue"))
	}
	s.logger.Debug("venuestore: deleted", slog.String("venue", name))
	return nil
}
