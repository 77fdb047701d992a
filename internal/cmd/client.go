package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/codec"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/errors"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/event"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/protocol"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Send requests through the mailbox",
	Long: `Send requests to a running server through the shared mailbox.

With --count, sends the payload N times and exits; a non-zero exit status
means at least one request failed after all retries.

Without --count, reads one payload per line from standard input and sends
each one. Type exit, quit or q (or press Ctrl+C) to leave. The mailbox file
is removed on exit.`,
	Args: cobra.NoArgs,
	RunE: runClient,
}

var (
	clientCount   int    // Number of requests in batch mode
	clientPayload string // Payload for batch mode
)

func init() {
	clientCmd.Flags().IntVarP(&clientCount, "count", "n", 0, "send the payload N times and exit (0 reads payloads from stdin)")
	clientCmd.Flags().StringVarP(&clientPayload, "payload", "p", codec.CommandPing, "payload sent in --count mode")
	rootCmd.AddCommand(clientCmd)
}

func runClient(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()
	client := protocol.NewClient(sess.slot, protocol.ClientConfigFrom(sess.cfg),
		protocol.WithLogger(sess.logger),
		protocol.WithBus(sess.bus),
	)
	defer func() {
		if err := client.Cleanup(); err != nil {
			printLine(cmd.ErrOrStderr(), warningStyle, "! failed to remove mailbox: %v", err)
		}
	}()

	subscribeClientProgress(sess.bus, out)
	printBanner(out, protocol.RoleClient, sess.cfg)

	if clientCount > 0 {
		return sendBatch(ctx, client, out, clientCount, clientPayload)
	}
	return sendInteractive(ctx, client, cmd.InOrStdin(), out)
}

// subscribeClientProgress prints retries and failed attempts as they happen.
func subscribeClientProgress(bus *event.Bus, w io.Writer) {
	bus.Subscribe(event.TypeRequestSent, func(e event.Event) {
		sent := e.(event.RequestSentEvent)
		if sent.Attempt > 1 {
			printLine(w, mutedStyle, "  retry %d, request %s", sent.Attempt-1, displayID(sent.CorrelationID))
		}
	})
	bus.Subscribe(event.TypeProtocolError, func(e event.Event) {
		failed := e.(event.ProtocolErrorEvent)
		printLine(w, warningStyle, "  ! %s: %s", failed.Kind, failed.Message)
	})
}

// exchange sends one payload and prints the outcome. It returns the error
// from RunOnce so callers can count failures.
func exchange(ctx context.Context, client *protocol.Client, w io.Writer, payload string) error {
	msg, err := client.RunOnce(ctx, payload)
	if err != nil {
		if errors.Is(err, errors.ErrCanceled) {
			return err
		}
		printLine(w, errorStyle, "✗ %s failed after %d attempt(s): %s", payload, client.Attempts(), err)
		return err
	}
	printLine(w, successStyle, "✓ %s -> %s (request %s)", payload, msg.Payload, displayID(msg.CorrelationID))
	return nil
}

func sendBatch(ctx context.Context, client *protocol.Client, w io.Writer, count int, payload string) error {
	failed := 0
	for i := 0; i < count; i++ {
		err := exchange(ctx, client, w, payload)
		if errors.Is(err, errors.ErrCanceled) {
			printLine(w, mutedStyle, "interrupted")
			return nil
		}
		if err != nil {
			failed++
		}
	}

	printLine(w, mutedStyle, "%d/%d requests succeeded", count-failed, count)
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, count)
	}
	return nil
}

func sendInteractive(ctx context.Context, client *protocol.Client, in io.Reader, w io.Writer) error {
	prompt := isTerminal(in)
	lines := readLines(ctx, in)

	for {
		if prompt {
			_, _ = fmt.Fprint(w, titleStyle.Render("payload> "))
		}

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit", "q":
			return nil
		}

		if err := exchange(ctx, client, w, line); errors.Is(err, errors.ErrCanceled) {
			return nil
		}
	}
}

// readLines delivers lines from in until EOF or ctx is done. Scanning runs
// on its own goroutine so that an interrupt is not blocked by a pending read.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func displayID(id string) string {
	if id == "" {
		return "-"
	}
	return id
}
