package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/codec"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/event"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/mailbox"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print every change of the mailbox content",
	Long: `Observe the shared mailbox without taking part in the exchange.

Each distinct content is printed once with its classification (request,
response or error). Useful for following a client and server side by side.
The watcher never writes to the mailbox.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchLimit int // Stop after this many changes; 0 means no limit

func init() {
	watchCmd.Flags().IntVar(&watchLimit, "limit", 0, "exit after N observed changes (0 = until Ctrl+C)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()
	width := terminalWidth(out)
	c := codec.New(codec.FramingFor(sess.cfg.Protocol.StrictFraming))
	sess.bus.Subscribe(event.TypeMailboxChanged, func(e event.Event) {
		changed := e.(event.MailboxChangedEvent)
		at := changed.Timestamp().Format("15:04:05.000")
		switch {
		case !changed.Present:
			printLine(out, mutedStyle, "%s  (absent)", at)
		case changed.Content == "":
			printLine(out, mutedStyle, "%s  (empty)", at)
		default:
			line := fmt.Sprintf("%s  %-8s %s", at, classify(c, changed.Content), changed.Content)
			printLine(out, classStyle(c, changed.Content), "%s", fitWidth(line, width))
		}
	})

	watcher := mailbox.NewWatcher(sess.slot,
		mailbox.WithBus(sess.bus),
		mailbox.WithPollInterval(sess.cfg.Protocol.PollInterval()),
		mailbox.WithLogger(sess.logger.Slog()),
	)

	seen := 0
	err = watcher.Watch(ctx, func(mailbox.Change) {
		seen++
		if watchLimit > 0 && seen >= watchLimit {
			cancel()
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// classify names what a reader of the given framing would make of content.
func classify(c codec.Codec, content string) string {
	msg, err := c.Decode(content)
	if err != nil {
		return "invalid"
	}
	return msg.Direction.String()
}

func classStyle(c codec.Codec, content string) lipgloss.Style {
	switch classify(c, content) {
	case "request":
		return titleStyle
	case "response":
		return successStyle
	case "error":
		return errorStyle
	default:
		return warningStyle
	}
}
