package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/quizdy/ar-server/internal/checksum"
	"github.com/quizdy/ar-server/internal/storage"
	"github.com/quizdy/ar-server/internal/venuestore"
)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the venues directory and keeps the
// catalog current until ctx is cancelled. It calls cb (if non-nil) after
// each catalog change. Writes that leave a document byte-identical are not
// reported.
//
// Rename events trigger a debounced Sync pass that picks up documents moved
// into place and drops the ones moved away.
func Watch(ctx context.Context, c *Catalog, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if syncErr := Sync(c, store, logger, cb); syncErr != nil {
				logger.Warn("reconcile: sync failed", slog.String("error", syncErr.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			file := filepath.Base(ev.Name)
			name, isDoc := venuestore.NameFromFile(file)
			if !isDoc {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(file)
				if errors.Is(readErr, os.ErrNotExist) {
					continue
				}
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("venue", name), slog.String("error", readErr.Error()))
					continue
				}
				kind := c.set(name, checksum.Sum(data))
				if kind == "" {
					continue
				}
				logger.Debug("watcher: catalogued", slog.String("venue", name), slog.String("op", kind))
				if cb != nil {
					cb(kind, name)
				}

			case ev.Op&fsnotify.Remove != 0:
				if !c.remove(name) {
					continue
				}
				logger.Debug("watcher: deleted", slog.String("venue", name))
				if cb != nil {
					cb("deleted", name)
				}

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old name only; the new name arrives
				// as a Create if it stays in the directory.
				if c.remove(name) {
					logger.Debug("watcher: renamed away", slog.String("venue", name))
					if cb != nil {
						cb("deleted", name)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
