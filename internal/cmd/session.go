package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/config"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/event"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/logging"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/mailbox"
)

// session bundles what every mailbox command needs: the loaded config, a
// logger, an event bus for progress output, and the mailbox slot.
type session struct {
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus
	slot   *mailbox.Slot
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.Logging.File, cfg.Logging.Level,
		logging.WithRotation(logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		}),
		logging.WithStderr(cmd.ErrOrStderr()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger = logger.WithMailbox(cfg.Mailbox.Path)

	bus := event.NewBus()
	bus.SetLogger(logger.Slog())

	return &session{
		cfg:    cfg,
		logger: logger,
		bus:    bus,
		slot:   mailbox.NewSlot(cfg.Mailbox.Path),
	}, nil
}

func (s *session) Close() {
	s.bus.Clear()
	_ = s.logger.Close()
}
