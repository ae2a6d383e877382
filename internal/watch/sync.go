package watch

import (
	"log/slog"

	"github.com/quizdy/ar-server/internal/storage"
	"github.com/quizdy/ar-server/internal/venuestore"
)

const docExt = ".json"

// EventCallback is called after a catalog change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind, venue string)

// Sync lists the venues directory and brings the catalog up to date:
//   - new/changed documents are recorded with their checksum
//   - documents removed from disk are dropped
//
// cb, if non-nil, is called for every change.
func Sync(c *Catalog, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	metas, err := store.List("", docExt)
	if err != nil {
		return err
	}

	known := c.snapshot()
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		name, ok := venuestore.NameFromFile(m.Path)
		if !ok {
			continue
		}
		disk[name] = struct{}{}
		if kind := c.set(name, m.Checksum); kind != "" {
			logger.Debug("sync: catalogued", slog.String("venue", name), slog.String("op", kind))
			if cb != nil {
				cb(kind, name)
			}
		}
	}

	for name := range known {
		if _, ok := disk[name]; ok {
			continue
		}
		if c.remove(name) {
			logger.Debug("sync: removed stale", slog.String("venue", name))
			if cb != nil {
				cb("deleted", name)
			}
		}
	}
	return nil
}
