// Package venueservice implements the venue and target operations on top of
// the venue store, the target repository and the image writer.
package venueservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quizdy/ar-server/internal/apperr"
	"github.com/quizdy/ar-server/internal/imagewriter"
	"github.com/quizdy/ar-server/internal/metrics"
	"github.com/quizdy/ar-server/internal/models"
	"github.com/quizdy/ar-server/internal/target"
	"github.com/quizdy/ar-server/internal/venuestore"
)

var (
	errNoVenue    = apperr.New(apperr.ErrNotFound, "no exist venue")
	errImageWrite = apperr.New(apperr.ErrValidation, "failed to write image")
)

// Notifier receives target change events.
type Notifier interface {
	PublishTargetEvent(kind, venue string, no int)
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier publishes target events to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithMetrics records operation outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service coordinates venue persistence and image files.
type Service struct {
	store   *venuestore.Store
	images  *imagewriter.Writer
	notify  Notifier
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService creates a new venue service.
func NewService(store *venuestore.Store, images *imagewriter.Writer, opts ...Option) *Service {
	s := &Service{store: store, images: images, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListVenues returns all venue names.
func (s *Service) ListVenues(ctx context.Context) ([]string, error) {
	names, err := s.store.List(ctx)
	s.metrics.ObserveOperation("list_venues", err)
	return names, err
}

// GetVenue returns the venue document, or the empty default when the venue
// does not exist.
func (s *Service) GetVenue(ctx context.Context, name string) (*models.Venue, error) {
	v, err := s.store.Load(ctx, name)
	s.metrics.ObserveOperation("get_venue", err)
	return v, err
}

// UpdateVenue creates the venue with no targets, or rewrites it unchanged
// when it already exists.
func (s *Service) UpdateVenue(ctx context.Context, name string) (err error) {
	defer func() { s.metrics.ObserveOperation("update_venue", err) }()

	return s.store.Mutate(ctx, name, func(_ *models.Venue, exists bool) error {
		if !exists {
			s.logger.Info("venue created", slog.String("venue", name))
		}
		return nil
	})
}

// DeleteVenue removes the venue document and all of its images.
func (s *Service) DeleteVenue(ctx context.Context, name string) (err error) {
	defer func() { s.metrics.ObserveOperation("delete_venue", err) }()

	if err := s.store.Delete(ctx, name); err != nil {
		return err
	}
	s.logger.Info("venue deleted", slog.String("venue", name))
	return nil
}

// UpdateTarget creates or updates a target of an existing venue. When the
// input carries an image payload it is written to disk and the target's
// image points at it. A target must end up with an image; otherwise nothing
// is persisted and the error wraps apperr.ErrValidation. If the document
// cannot be saved the image write is undone.
func (s *Service) UpdateTarget(ctx context.Context, venue string, in models.TargetInput) (out *models.Target, err error) {
	defer func() { s.metrics.ObserveOperation("update_target", err) }()

	var (
		outcome target.Outcome
		stale   string
		written imagewriter.Result
	)
	err = s.store.Mutate(ctx, venue, func(v *models.Venue, exists bool) error {
		if !exists {
			return errNoVenue
		}
		var previous string
		if in.No != nil {
			if cur, err := target.Get(v, *in.No); err == nil {
				previous = cur.Image
			}
		}

		t, o, err := target.Upsert(v, in)
		if err != nil {
			return err
		}
		outcome = o

		res, err := s.images.Write(venue, t.Title, in.Payload())
		switch {
		case errors.Is(err, apperr.ErrValidation):
			s.logger.Warn("image payload rejected",
				slog.String("venue", venue),
				slog.Int("no", t.No),
				slog.String("error", err.Error()))
		case err != nil:
			return err
		case !res.Empty():
			written = res
			t.Image = res.Path
			s.metrics.AddImageBytes(res.Size)
		}
		if t.Image == "" {
			return errImageWrite
		}
		if previous != "" && previous != t.Image && !target.Referenced(v, previous, t.No) {
			stale = previous
		}
		cp := *t
		out = &cp
		return nil
	})
	if err != nil {
		if uerr := s.images.Undo(written); uerr != nil {
			s.logger.Warn("image write not undone", slog.String("image", written.Path), slog.String("error", uerr.Error()))
		}
		return nil, fmt.Errorf("venueservice: update target: %w", err)
	}

	if stale != "" {
		if err := s.images.Remove(venue, stale); err != nil {
			s.logger.Warn("stale image not removed", slog.String("image", stale), slog.String("error", err.Error()))
		}
	}
	s.logger.Debug("target saved",
		slog.String("venue", venue),
		slog.Int("no", out.No),
		slog.String("outcome", outcome.String()))
	if s.notify != nil {
		s.notify.PublishTargetEvent("updated", venue, out.No)
	}
	return out, nil
}

// DeleteTarget removes target no from the venue together with its image file.
func (s *Service) DeleteTarget(ctx context.Context, venue string, no int) (err error) {
	defer func() { s.metrics.ObserveOperation("delete_target", err) }()

	err = s.store.Mutate(ctx, venue, func(v *models.Venue, exists bool) error {
		if !exists {
			return errNoVenue
		}
		removed, err := target.Remove(v, no)
		if err != nil {
			return err
		}
		if removed.Image != "" && !target.Referenced(v, removed.Image, removed.No) {
			if err := s.images.Remove(venue, removed.Image); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("venueservice: delete target: %w", err)
	}

	s.logger.Debug("target deleted", slog.String("venue", venue), slog.Int("no", no))
	if s.notify != nil {
		s.notify.PublishTargetEvent("deleted", venue, no)
	}
	return nil
}
