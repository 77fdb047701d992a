package mailbox

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/event"
)

const (
	// defaultPollInterval is the default interval for the fallback poller.
	defaultPollInterval = 500 * time.Millisecond

	// maxWatchErrors is the number of consecutive read errors before the
	// watcher logs at error level. Individual failures are expected while the
	// peer is mid-rename; sustained failures indicate a real problem.
	maxWatchErrors = 5
)

// Change is one observed slot value.
type Change struct {
	Content string
	Present bool // false when the slot file does not exist
	At      time.Time
}

// Watcher reports changes of a Slot's content without ever writing to it.
//
// On the OS filesystem it listens to fsnotify events for the slot's
// directory. A polling ticker runs alongside, since writers replace the file
// by rename and some platforms coalesce or drop those events. Other
// filesystems are polled only.
type Watcher struct {
	slot         *Slot
	pollInterval time.Duration
	bus          *event.Bus
	logger       *slog.Logger

	last    Change
	started bool
	errs    int
}

// NewWatcher creates a Watcher for slot.
func NewWatcher(slot *Slot, opts ...WatchOption) *Watcher {
	w := &Watcher{
		slot:         slot,
		pollInterval: defaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks until ctx is done, calling handler for the initial slot value
// and for every subsequent change. Handler runs on the calling goroutine.
func (w *Watcher) Watch(ctx context.Context, handler func(Change)) error {
	var events <-chan fsnotify.Event
	var watchErrs <-chan error

	if _, isOS := w.slot.Fs().(*afero.OsFs); isOS {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			w.logger.Warn("fsnotify unavailable, polling only", "error", err)
		} else {
			defer func() { _ = fw.Close() }()
			dir := filepath.Dir(w.slot.Path())
			if err := fw.Add(dir); err != nil {
				w.logger.Warn("cannot watch mailbox directory, polling only",
					"dir", dir, "error", err)
			} else {
				events = fw.Events
				watchErrs = fw.Errors
			}
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.check(handler)

	target := filepath.Clean(w.slot.Path())
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			w.check(handler)

		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			w.logger.Debug("fsnotify error", "error", err)

		case <-ticker.C:
			w.check(handler)
		}
	}
}

// check reads the slot and reports it if it differs from the last observation.
func (w *Watcher) check(handler func(Change)) {
	content, _, err := w.slot.Read()
	if err != nil {
		w.errs++
		if w.errs >= maxWatchErrors {
			w.logger.Error("mailbox unreadable", "path", w.slot.Path(), "error", err)
			w.errs = 0
		}
		return
	}
	w.errs = 0

	cur := Change{
		Content: content,
		Present: w.slot.Exists(),
		At:      time.Now(),
	}
	if w.started && cur.Content == w.last.Content && cur.Present == w.last.Present {
		return
	}
	w.started = true
	w.last = cur

	if w.bus != nil {
		w.bus.Publish(NewMailboxChangedEvent(w.slot.Path(), cur))
	}
	handler(cur)
}
