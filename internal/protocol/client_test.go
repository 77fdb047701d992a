package protocol

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/codec"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/config"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/errors"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/event"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/testutil"
)

var epoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func taggedClientConfig() ClientConfig {
	return ClientConfig{
		Framing:      codec.FramingTagged,
		PollInterval: 500 * time.Millisecond,
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryDelay:   time.Second,
		Correlation:  config.CorrelationCounter,
	}
}

func newTestClient(t *testing.T, cfg ClientConfig, opts ...Option) (*Client, *testutil.RecordingSlot, *testutil.FakeClock) {
	t.Helper()
	slot := testutil.NewRecordingSlot(t)
	clock := testutil.NewFakeClock(epoch)
	opts = append([]Option{WithClock(clock.Now, clock.Sleep)}, opts...)
	return NewClient(slot, cfg, opts...), slot, clock
}

// answerRequests makes slot reply to every tagged request with reply(request).
func answerRequests(t *testing.T, slot *testutil.RecordingSlot, reply func(req codec.Message) string) {
	t.Helper()
	slot.OnWrite = func(content string) {
		req, err := codec.Decode(content)
		if err != nil {
			t.Errorf("client wrote undecodable request %q: %v", content, err)
			return
		}
		slot.Inject(t, reply(req))
	}
}

func pongFor(t *testing.T) func(codec.Message) string {
	return func(req codec.Message) string {
		text, err := codec.EncodeResponse(codec.ReplyPong, req.CorrelationID, epoch)
		if err != nil {
			t.Fatalf("EncodeResponse() error = %v", err)
		}
		return text
	}
}

func TestClient_CreateRequest(t *testing.T) {
	t.Run("counter ids increase from one", func(t *testing.T) {
		client, _, _ := newTestClient(t, taggedClientConfig())

		first := client.CreateRequest("ping")
		second := client.CreateRequest("ping")

		if first.CorrelationID != "1" || second.CorrelationID != "2" {
			t.Errorf("ids = %q, %q, want 1, 2", first.CorrelationID, second.CorrelationID)
		}
		if first.Direction != codec.DirectionRequest || first.Payload != "ping" {
			t.Errorf("CreateRequest() = %+v, want a ping request", first)
		}
		if !first.Timestamp.Equal(epoch) {
			t.Errorf("Timestamp = %v, want %v", first.Timestamp, epoch)
		}
		if client.State() != ClientCreatingRequest {
			t.Errorf("State() = %v, want CreatingRequest", client.State())
		}
	})

	t.Run("uuid ids are unique", func(t *testing.T) {
		cfg := taggedClientConfig()
		cfg.Correlation = config.CorrelationUUID
		client, _, _ := newTestClient(t, cfg)

		first := client.CreateRequest("ping").CorrelationID
		second := client.CreateRequest("ping").CorrelationID

		if _, err := uuid.Parse(first); err != nil {
			t.Errorf("id %q is not a uuid: %v", first, err)
		}
		if first == second {
			t.Errorf("ids should differ, both %q", first)
		}
	})

	t.Run("raw framing has no id", func(t *testing.T) {
		cfg := taggedClientConfig()
		cfg.Framing = codec.FramingRaw
		client, _, _ := newTestClient(t, cfg)

		if id := client.CreateRequest("ping").CorrelationID; id != "" {
			t.Errorf("CorrelationID = %q, want empty", id)
		}
	})
}

func TestClient_Submit(t *testing.T) {
	client, slot, _ := newTestClient(t, taggedClientConfig())

	if err := client.Submit(client.CreateRequest("ping")); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	content := slot.Content(t)
	if !strings.HasPrefix(content, "CLIENT_REQUEST|ping|1|") {
		t.Errorf("mailbox = %q, want tagged request with id 1", content)
	}
	msg, err := codec.Decode(content)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !msg.Timestamp.Equal(epoch) {
		t.Errorf("encoded timestamp = %v, want %v", msg.Timestamp, epoch)
	}
}

func TestClient_Submit_RejectsUnencodablePayload(t *testing.T) {
	client, slot, _ := newTestClient(t, taggedClientConfig())

	err := client.Submit(client.CreateRequest("pi|ng"))

	var malformed *errors.MalformedMessageError
	if !errors.As(err, &malformed) {
		t.Fatalf("Submit() error = %v, want MalformedMessageError", err)
	}
	if len(slot.Writes()) != 0 {
		t.Errorf("nothing should be written, got %q", slot.Writes())
	}
}

func TestClient_AwaitResponse_TimeoutIsBounded(t *testing.T) {
	client, _, clock := newTestClient(t, taggedClientConfig())
	req := client.CreateRequest("ping")
	if err := client.Submit(req); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	_, err := client.AwaitResponse(context.Background(), req, 10*time.Second)

	var timeout *errors.TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("AwaitResponse() error = %v, want TimeoutError", err)
	}
	if !errors.Is(err, errors.ErrTimeout) {
		t.Error("timeout should match ErrTimeout")
	}
	if elapsed := clock.Now().Sub(epoch); elapsed != 10*time.Second {
		t.Errorf("waited %v, want exactly 10s", elapsed)
	}
	for _, d := range clock.Sleeps() {
		if d > 500*time.Millisecond {
			t.Errorf("slept %v, want at most the poll interval", d)
		}
	}
}

func TestClient_AwaitResponse_ShortTimeoutClampsSleep(t *testing.T) {
	client, _, clock := newTestClient(t, taggedClientConfig())
	req := client.CreateRequest("ping")
	if err := client.Submit(req); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	_, err := client.AwaitResponse(context.Background(), req, 300*time.Millisecond)
	if !errors.Is(err, errors.ErrTimeout) {
		t.Fatalf("AwaitResponse() error = %v, want timeout", err)
	}
	if elapsed := clock.Now().Sub(epoch); elapsed != 300*time.Millisecond {
		t.Errorf("waited %v, want 300ms", elapsed)
	}
}

func TestClient_AwaitResponse_IgnoresReadErrors(t *testing.T) {
	client, slot, _ := newTestClient(t, taggedClientConfig())
	req := client.CreateRequest("ping")
	if err := client.Submit(req); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	slot.FailReads(stderrors.New("sharing violation"))

	_, err := client.AwaitResponse(context.Background(), req, time.Second)

	var timeout *errors.TimeoutError
	if !errors.As(err, &timeout) {
		t.Errorf("AwaitResponse() error = %v, want TimeoutError", err)
	}
}

func TestClient_AwaitResponse_Canceled(t *testing.T) {
	client, _, _ := newTestClient(t, taggedClientConfig())
	req := client.CreateRequest("ping")
	if err := client.Submit(req); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.AwaitResponse(ctx, req, time.Second)

	if !errors.Is(err, errors.ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Errorf("AwaitResponse() error = %v, want ErrCanceled wrapping context.Canceled", err)
	}
}

func TestClient_RunOnce_Success(t *testing.T) {
	bus := event.NewBus()
	var types []string
	bus.SubscribeAll(func(e event.Event) {
		types = append(types, e.EventType())
	})

	client, slot, _ := newTestClient(t, taggedClientConfig(), WithBus(bus))
	answerRequests(t, slot, pongFor(t))

	msg, err := client.RunOnce(context.Background(), "ping")
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if msg.Payload != "pong" || msg.CorrelationID != "1" {
		t.Errorf("RunOnce() = %+v, want pong for id 1", msg)
	}
	if msg.Direction != codec.DirectionResponse {
		t.Errorf("Direction = %v, want response", msg.Direction)
	}
	if client.State() != ClientCompleted {
		t.Errorf("State() = %v, want Completed", client.State())
	}
	if client.Attempts() != 1 {
		t.Errorf("Attempts() = %d, want 1", client.Attempts())
	}
	if got := slot.Content(t); got != "" {
		t.Errorf("consumed response should be cleared, mailbox = %q", got)
	}

	for _, want := range []string{event.TypeStateChanged, event.TypeRequestSent, event.TypeResponseReceived} {
		found := false
		for _, got := range types {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("event %q not published; got %v", want, types)
		}
	}
}

func TestClient_RunOnce_LeavesForeignContent(t *testing.T) {
	client, slot, _ := newTestClient(t, taggedClientConfig())
	answerRequests(t, slot, pongFor(t))

	bus := event.NewBus()
	bus.Subscribe(event.TypeResponseReceived, func(event.Event) {
		// Another writer replaces the reply before the client clears it.
		slot.Inject(t, "CLIENT_REQUEST|ping|other|2024-05-01T10:00:00Z")
	})
	client.bus = bus

	if _, err := client.RunOnce(context.Background(), "ping"); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if slot.Clears() != 0 {
		t.Errorf("Clears() = %d, want 0", slot.Clears())
	}
	if got := slot.Content(t); !strings.Contains(got, "|other|") {
		t.Errorf("foreign content was lost, mailbox = %q", got)
	}
}

func TestClient_RunOnce_RetriesUntilExhausted(t *testing.T) {
	cfg := taggedClientConfig()
	cfg.Timeout = time.Second
	cfg.RetryDelay = 500 * time.Millisecond
	client, slot, clock := newTestClient(t, cfg)

	_, err := client.RunOnce(context.Background(), "ping")

	if !errors.Is(err, errors.ErrRetriesExhausted) {
		t.Fatalf("RunOnce() error = %v, want ErrRetriesExhausted", err)
	}
	if !errors.Is(err, errors.ErrTimeout) {
		t.Errorf("RunOnce() error = %v, want the last timeout wrapped", err)
	}

	requests := slot.WritesWithPrefix(codec.TagRequest + codec.Delimiter)
	if len(requests) != cfg.MaxRetries+1 {
		t.Fatalf("wrote %d requests, want %d", len(requests), cfg.MaxRetries+1)
	}
	for i, raw := range requests {
		msg, derr := codec.Decode(raw)
		if derr != nil {
			t.Fatalf("Decode(%q) error = %v", raw, derr)
		}
		if want := []string{"1", "2", "3", "4"}[i]; msg.CorrelationID != want {
			t.Errorf("request %d id = %q, want %q", i, msg.CorrelationID, want)
		}
	}
	if client.Attempts() != 4 {
		t.Errorf("Attempts() = %d, want 4", client.Attempts())
	}
	if client.State() != ClientError {
		t.Errorf("State() = %v, want Error", client.State())
	}
	if elapsed := clock.Now().Sub(epoch); elapsed != 5500*time.Millisecond {
		t.Errorf("elapsed = %v, want 4 timeouts plus 3 retry delays (5.5s)", elapsed)
	}
}

func TestClient_RunOnce_ServerErrorNotice(t *testing.T) {
	cfg := taggedClientConfig()
	cfg.MaxRetries = 0
	client, slot, _ := newTestClient(t, cfg)
	slot.OnWrite = func(string) {
		slot.Inject(t, "ERROR: expected 'ping', got 'banana'")
	}

	_, err := client.RunOnce(context.Background(), "banana")

	var serverErr *errors.ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("RunOnce() error = %v, want ServerError", err)
	}
	if serverErr.Reason != "expected 'ping', got 'banana'" {
		t.Errorf("Reason = %q", serverErr.Reason)
	}
	if !errors.Is(err, errors.ErrRetriesExhausted) {
		t.Errorf("RunOnce() error = %v, want ErrRetriesExhausted", err)
	}
	if client.Attempts() != 1 {
		t.Errorf("Attempts() = %d, want 1", client.Attempts())
	}
}

func TestClient_RunOnce_RecoversAfterErrorNotice(t *testing.T) {
	client, slot, _ := newTestClient(t, taggedClientConfig())
	calls := 0
	answerRequests(t, slot, func(req codec.Message) string {
		calls++
		if calls == 1 {
			return "ERROR:busy"
		}
		return pongFor(t)(req)
	})

	msg, err := client.RunOnce(context.Background(), "ping")
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if msg.CorrelationID != "2" {
		t.Errorf("CorrelationID = %q, want 2 (the retry)", msg.CorrelationID)
	}
	if client.Attempts() != 2 {
		t.Errorf("Attempts() = %d, want 2", client.Attempts())
	}
}

func TestClient_RunOnce_MismatchedCorrelation(t *testing.T) {
	cfg := taggedClientConfig()
	cfg.MaxRetries = 0
	client, slot, _ := newTestClient(t, cfg)
	answerRequests(t, slot, func(codec.Message) string {
		return "SERVER_RESPONSE|pong|999|2024-05-01T10:00:00Z"
	})

	_, err := client.RunOnce(context.Background(), "ping")

	var malformed *errors.MalformedMessageError
	if !errors.As(err, &malformed) {
		t.Fatalf("RunOnce() error = %v, want MalformedMessageError", err)
	}
	if !strings.Contains(malformed.Reason(), "999") {
		t.Errorf("Reason() = %q, want the foreign id mentioned", malformed.Reason())
	}
}

func TestClient_RunOnce_WriteFailure(t *testing.T) {
	cfg := taggedClientConfig()
	cfg.MaxRetries = 2
	client, slot, _ := newTestClient(t, cfg)
	slot.FailWrites(stderrors.New("read-only filesystem"))

	_, err := client.RunOnce(context.Background(), "ping")

	var access *errors.AccessError
	if !errors.As(err, &access) {
		t.Fatalf("RunOnce() error = %v, want AccessError", err)
	}
	if client.Attempts() != 3 {
		t.Errorf("Attempts() = %d, want 3", client.Attempts())
	}
}

func TestClient_RunOnce_Canceled(t *testing.T) {
	client, slot, _ := newTestClient(t, taggedClientConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.RunOnce(ctx, "ping")

	if !errors.Is(err, errors.ErrCanceled) {
		t.Errorf("RunOnce() error = %v, want ErrCanceled", err)
	}
	if len(slot.Writes()) != 0 {
		t.Errorf("canceled run should not write, got %q", slot.Writes())
	}
}

func TestClient_RunOnce_RawFraming(t *testing.T) {
	cfg := taggedClientConfig()
	cfg.Framing = codec.FramingRaw
	client, slot, _ := newTestClient(t, cfg)
	slot.OnWrite = func(content string) {
		if content != "ping" {
			t.Errorf("raw request = %q, want bare ping", content)
		}
		slot.Inject(t, "PONG")
	}

	msg, err := client.RunOnce(context.Background(), "ping")
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if msg.Payload != "PONG" || msg.Direction != codec.DirectionResponse {
		t.Errorf("RunOnce() = %+v, want the raw reply as a response", msg)
	}
	if slot.Clears() != 0 {
		t.Error("raw framing should leave the reply for the server to clear")
	}
}

func TestClient_HandleError(t *testing.T) {
	client, _, clock := newTestClient(t, taggedClientConfig())
	failure := errors.NewTimeoutError("waiting", time.Second)

	for attempt, want := range []bool{true, true, true, false} {
		if got := client.HandleError(context.Background(), failure, attempt); got != want {
			t.Errorf("HandleError(attempt=%d) = %v, want %v", attempt, got, want)
		}
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 3 {
		t.Errorf("slept %d times, want 3 retry delays", len(sleeps))
	}
	if client.State() != ClientError {
		t.Errorf("State() = %v, want Error", client.State())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if client.HandleError(ctx, failure, 0) {
		t.Error("HandleError should not retry once the context is canceled")
	}
}

func TestClient_HandleError_PublishesKind(t *testing.T) {
	bus := event.NewBus()
	var got []event.ProtocolErrorEvent
	bus.Subscribe(event.TypeProtocolError, func(e event.Event) {
		got = append(got, e.(event.ProtocolErrorEvent))
	})
	client, _, _ := newTestClient(t, taggedClientConfig(), WithBus(bus))

	client.HandleError(context.Background(), errors.NewServerError("nope"), 0)

	if len(got) != 1 {
		t.Fatalf("published %d error events, want 1", len(got))
	}
	if got[0].Role != "CLIENT" || got[0].Kind != "ServerError" {
		t.Errorf("event = %+v, want CLIENT/ServerError", got[0])
	}
}

func TestClient_HandleError_LogsSeverity(t *testing.T) {
	logger, buf := bufferLogger(t)
	client, _, _ := newTestClient(t, taggedClientConfig(), WithLogger(logger))

	client.HandleError(context.Background(), errors.NewTimeoutError("waiting", time.Second), 0)
	client.HandleError(context.Background(), errors.NewServerError("nope"), 1)

	entries := logEntries(t, buf, "attempt failed")
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %s", len(entries), buf.String())
	}
	if e := entries[0]; e["level"] != "WARN" || e["retryable"] != true || e["role"] != "CLIENT" {
		t.Errorf("timeout entry = %v, want WARN, retryable, CLIENT", e)
	}
	if e := entries[1]; e["kind"] != "ServerError" || e["retryable"] != false || e["attempt"] != float64(2) {
		t.Errorf("server error entry = %v, want ServerError, not retryable, attempt 2", e)
	}
}

func TestClient_Cleanup(t *testing.T) {
	client, slot, _ := newTestClient(t, taggedClientConfig())
	if err := client.Submit(client.CreateRequest("ping")); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if err := client.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if slot.Exists() {
		t.Error("mailbox should be removed")
	}
	if err := client.Cleanup(); err != nil {
		t.Errorf("second Cleanup() error = %v", err)
	}
}
