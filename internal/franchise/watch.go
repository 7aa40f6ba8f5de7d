package franchise

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pikestaff/cartridge/internal/event"
)

// Watcher hot-reloads a Map when its override file changes on disk. It
// watches the parent directory rather than the file itself so atomic
// save-and-rename writes are still seen.
type Watcher struct {
	m        *Map
	bus      *event.Bus
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher for the map's override file.
func NewWatcher(m *Map, bus *event.Bus, logger *slog.Logger) *Watcher {
	return &Watcher{
		m:        m,
		bus:      bus,
		logger:   logger.With(slog.String("component", "franchise-watcher")),
		debounce: 500 * time.Millisecond,
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start blocks until ctx is canceled. When the map has no override file, or
// fsnotify is unavailable, it returns immediately and the embedded map stays
// in effect.
func (w *Watcher) Start(ctx context.Context) {
	if w.m.path == "" {
		w.logger.Debug("no franchise file configured, hot reload disabled")
		return
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("fsnotify unavailable, franchise hot reload disabled", "error", err)
		return
	}
	defer fw.Close() //nolint:errcheck

	dir := filepath.Dir(w.m.path)
	if err := fw.Add(dir); err != nil {
		w.logger.Warn("cannot watch franchise directory", "dir", dir, "error", err)
		return
	}
	w.logger.Info("watching franchise file", "path", w.m.path)

	// Debounce timer for coalescing editor write bursts into one reload.
	// Starts stopped; reset on each relevant event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	reloadPending := false

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("franchise watcher stopping")
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(w.debounce)
			reloadPending = true

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", "error", err)

		case <-debounceTimer.C:
			if !reloadPending {
				continue
			}
			reloadPending = false
			if err := w.m.Reload(); err != nil {
				w.logger.Warn("franchise reload failed, keeping current map", "error", err)
				continue
			}
			w.bus.Publish(event.Event{
				Type: event.FranchiseReloaded,
				Data: map[string]any{
					"path":   w.m.path,
					"tokens": w.m.Len(),
				},
			})
		}
	}
}

// relevant reports whether a filesystem event concerns the override file.
// Create and Rename cover atomic saves; Remove alone is ignored since there
// is nothing to read yet.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return filepath.Base(ev.Name) == filepath.Base(w.m.path)
}
