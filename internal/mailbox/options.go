package mailbox

import (
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/event"
)

// Option configures a Slot.
type Option func(*Slot)

// WithFs backs the slot with fs instead of the OS filesystem.
// Tests use afero.NewMemMapFs.
func WithFs(fs afero.Fs) Option {
	return func(s *Slot) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithBus attaches an event bus to the Watcher. When set, a
// MailboxChangedEvent is published for every observed change.
func WithBus(bus *event.Bus) WatchOption {
	return func(w *Watcher) {
		w.bus = bus
	}
}

// WithPollInterval sets the fallback polling interval.
// Zero or negative values are ignored.
func WithPollInterval(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithLogger sets the logger used for watcher diagnostics.
func WithLogger(logger *slog.Logger) WatchOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}
