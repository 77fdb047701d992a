package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/event"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/protocol"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Answer ping requests arriving in the mailbox",
	Long: `Poll the shared mailbox for client requests and answer each ping with
pong. Anything else is answered with an ERROR: notice so the client does not
have to wait for its timeout.

Any stale mailbox file is removed on start, and the mailbox is removed again
when the server stops: after --max-requests responses, or on Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().IntP("max-requests", "n", 0, "stop after N responses (0 = unlimited)")
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()
	sess.bus.Subscribe(event.TypeRequestProcessed, func(e event.Event) {
		done := e.(event.RequestProcessedEvent)
		printLine(out, successStyle, "✓ pong #%d (request %s)", done.Total, displayID(done.CorrelationID))
	})
	sess.bus.Subscribe(event.TypeProtocolError, func(e event.Event) {
		failed := e.(event.ProtocolErrorEvent)
		printLine(out, warningStyle, "! %s: %s", failed.Kind, failed.Message)
	})

	server := protocol.NewServer(sess.slot, protocol.ServerConfigFrom(sess.cfg),
		protocol.WithLogger(sess.logger),
		protocol.WithBus(sess.bus),
	)

	printBanner(out, protocol.RoleServer, sess.cfg)
	if limit := sess.cfg.Server.MaxRequests; limit > 0 {
		printLine(out, mutedStyle, "serving %d request(s), Ctrl+C to stop", limit)
	} else {
		printLine(out, mutedStyle, "serving until Ctrl+C")
	}

	runErr := server.Run(ctx, sess.cfg.Server.MaxRequests)
	printLine(out, mutedStyle, "served %d request(s)", server.Processed())
	return runErr
}
