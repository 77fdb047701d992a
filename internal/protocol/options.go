package protocol

import (
	"context"
	"time"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/codec"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/config"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/errors"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/event"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/logging"
)

// Slot is the single-value mailbox both sides share. *mailbox.Slot
// satisfies it.
type Slot interface {
	Read() (content string, ok bool, err error)
	Write(content string) error
	Clear() error
	Remove() error
	Exists() bool
	Path() string
}

// SleepFunc pauses for d or until ctx is done, returning ctx.Err() in the latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ClientConfig holds the client's protocol settings.
type ClientConfig struct {
	Framing      codec.Framing
	PollInterval time.Duration
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	// Correlation is config.CorrelationCounter or config.CorrelationUUID.
	Correlation string
}

// ServerConfig holds the server's protocol settings.
type ServerConfig struct {
	Framing            codec.Framing
	PollInterval       time.Duration
	ProcessingDelay    time.Duration
	GraceDelay         time.Duration
	ClearAfterResponse bool
}

// ClientConfigFrom extracts the client settings from the loaded configuration.
func ClientConfigFrom(cfg *config.Config) ClientConfig {
	return ClientConfig{
		Framing:      codec.FramingFor(cfg.Protocol.StrictFraming),
		PollInterval: cfg.Protocol.PollInterval(),
		Timeout:      cfg.Client.Timeout(),
		MaxRetries:   cfg.Client.MaxRetries,
		RetryDelay:   cfg.Client.RetryDelay(),
		Correlation:  cfg.Client.Correlation,
	}
}

// ServerConfigFrom extracts the server settings from the loaded configuration.
func ServerConfigFrom(cfg *config.Config) ServerConfig {
	return ServerConfig{
		Framing:            codec.FramingFor(cfg.Protocol.StrictFraming),
		PollInterval:       cfg.Protocol.PollInterval(),
		ProcessingDelay:    cfg.Server.ProcessingDelay(),
		GraceDelay:         cfg.Server.GraceDelay(),
		ClearAfterResponse: cfg.Server.ClearAfterResponse,
	}
}

// Option configures a Client or Server.
type Option func(*options)

type options struct {
	logger *logging.Logger
	bus    *event.Bus
	sleep  SleepFunc
	now    func() time.Time
}

func defaultOptions() options {
	return options{
		logger: logging.NopLogger(),
		sleep:  Sleep,
		now:    time.Now,
	}
}

// WithLogger sets the logger. The role attribute is added automatically.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBus attaches an event bus. When set, state transitions and outcomes
// are published on it.
func WithBus(bus *event.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// WithClock replaces the wall clock and sleep used for deadlines and delays.
// Tests pass a fake clock so that timeouts and retries run instantly.
func WithClock(now func() time.Time, sleep SleepFunc) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// logFailure logs err at the level its severity calls for, tagged with the
// taxonomy kind.
func logFailure(logger *logging.Logger, msg string, err error, args ...any) {
	severity := errors.GetSeverity(err)
	attrs := []any{"kind", errors.Kind(err), "severity", severity.String(), "error", err.Error()}
	logger.Log(severity.Level(), msg, append(attrs, args...)...)
}

// Sleep waits for d, returning early with ctx.Err() when ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
