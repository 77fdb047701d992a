// Package internal contains integration tests that verify the client, server
// and mailbox watcher work together over a real file and a shared event bus.
package internal

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/codec"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/config"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/event"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/mailbox"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/protocol"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/testutil"
)

func clientConfig() protocol.ClientConfig {
	return protocol.ClientConfig{
		Framing:      codec.FramingTagged,
		PollInterval: 5 * time.Millisecond,
		Timeout:      5 * time.Second,
		MaxRetries:   0,
		RetryDelay:   10 * time.Millisecond,
		Correlation:  config.CorrelationCounter,
	}
}

func serverConfig() protocol.ServerConfig {
	return protocol.ServerConfig{
		Framing:            codec.FramingTagged,
		PollInterval:       5 * time.Millisecond,
		ProcessingDelay:    30 * time.Millisecond,
		GraceDelay:         100 * time.Millisecond,
		ClearAfterResponse: true,
	}
}

// startServer runs a server on path until the test ends and returns once it
// is polling.
func startServer(t *testing.T, path string, bus *event.Bus) {
	t.Helper()

	polling := make(chan struct{})
	var once sync.Once
	id := bus.Subscribe(event.TypeStateChanged, func(e event.Event) {
		sc := e.(event.StateChangeEvent)
		if sc.Role == protocol.RoleServer.String() && sc.To == protocol.ServerWaitingRequest.String() {
			once.Do(func() { close(polling) })
		}
	})
	defer bus.Unsubscribe(id)

	server := protocol.NewServer(mailbox.NewSlot(path), serverConfig(), protocol.WithBus(bus))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Run(ctx, 0)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-polling:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start polling")
	}
}

// TestEventFlowIntegration runs a full exchange with a watcher observing the
// mailbox and checks that every component reports on the shared bus.
func TestEventFlowIntegration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared_communication.txt")
	bus := event.NewBus()

	var mu sync.Mutex
	var types []string
	var contents []string
	bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, e.EventType())
		if changed, ok := e.(event.MailboxChangedEvent); ok && changed.Content != "" {
			contents = append(contents, changed.Content)
		}
	})

	startServer(t, path, bus)

	watchCtx, stopWatch := context.WithCancel(context.Background())
	watchDone := make(chan error, 1)
	watcher := mailbox.NewWatcher(mailbox.NewSlot(path),
		mailbox.WithBus(bus),
		mailbox.WithPollInterval(5*time.Millisecond))
	go func() {
		watchDone <- watcher.Watch(watchCtx, func(mailbox.Change) {})
	}()
	defer func() {
		stopWatch()
		if err := <-watchDone; err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	}()

	client := protocol.NewClient(mailbox.NewSlot(path), clientConfig(), protocol.WithBus(bus))
	msg, err := client.RunOnce(context.Background(), "ping")
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if msg.Payload != "pong" || msg.CorrelationID != "1" {
		t.Errorf("RunOnce() = %+v, want pong for id 1", msg)
	}

	testutil.WaitFor(t, 5*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return hasPrefix(contents, codec.TagRequest) && hasPrefix(contents, codec.TagResponse)
	}, "watcher to observe request and response")

	mu.Lock()
	defer mu.Unlock()

	for _, want := range []string{
		event.TypeStateChanged,
		event.TypeRequestSent,
		event.TypeRequestProcessed,
		event.TypeResponseReceived,
		event.TypeMailboxChanged,
	} {
		if !contains(types, want) {
			t.Errorf("event %q not published; got %v", want, types)
		}
	}

	// The watcher sees the request before the response.
	reqAt, respAt := -1, -1
	for i, c := range contents {
		if reqAt < 0 && strings.HasPrefix(c, codec.TagRequest) {
			reqAt = i
		}
		if respAt < 0 && strings.HasPrefix(c, codec.TagResponse) {
			respAt = i
		}
	}
	if reqAt > respAt {
		t.Errorf("watcher order = %q, want request before response", contents)
	}
}

// TestSuccessiveClientSessions checks that a new client session, whose
// counter starts over at 1, is answered once the previous session removed
// the mailbox.
func TestSuccessiveClientSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared_communication.txt")
	bus := event.NewBus()
	startServer(t, path, bus)

	var mu sync.Mutex
	var processed []string
	bus.Subscribe(event.TypeRequestProcessed, func(e event.Event) {
		mu.Lock()
		processed = append(processed, e.(event.RequestProcessedEvent).CorrelationID)
		mu.Unlock()
	})

	for session := 1; session <= 2; session++ {
		client := protocol.NewClient(mailbox.NewSlot(path), clientConfig())
		msg, err := client.RunOnce(context.Background(), "ping")
		if err != nil {
			t.Fatalf("session %d: RunOnce() error = %v", session, err)
		}
		if msg.CorrelationID != "1" {
			t.Errorf("session %d: CorrelationID = %q, want 1", session, msg.CorrelationID)
		}
		if err := client.Cleanup(); err != nil {
			t.Fatalf("session %d: Cleanup() error = %v", session, err)
		}
		// Let the server finish its grace delay and poll the absent mailbox.
		time.Sleep(serverConfig().GraceDelay + 100*time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(processed) != 2 {
		t.Errorf("server answered %v, want two requests", processed)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func hasPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
