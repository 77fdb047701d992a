package protocol

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/codec"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/config"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/errors"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/event"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/logging"
)

// Client drives the request side of the exchange: write a request, poll for
// the reply, validate it, and retry on failure.
//
// A Client is not safe for concurrent use. It runs on the caller's goroutine.
type Client struct {
	slot   Slot
	codec  codec.Codec
	cfg    ClientConfig
	logger *logging.Logger
	bus    *event.Bus
	sleep  SleepFunc
	now    func() time.Time

	state       ClientState
	counter     uint64
	lastWritten string // exact text of our last request
	pendingID   string // correlation id of the in-flight request
	detected    string // content AwaitResponse stopped on
	attempts    int
}

// NewClient creates a Client over slot.
func NewClient(slot Slot, cfg ClientConfig, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		slot:   slot,
		codec:  codec.New(cfg.Framing),
		cfg:    cfg,
		logger: o.logger.WithRole(RoleClient.String()),
		bus:    o.bus,
		sleep:  o.sleep,
		now:    o.now,
		state:  ClientIdle,
	}
}

// State returns the current state.
func (c *Client) State() ClientState {
	return c.state
}

// Attempts returns how many attempts the last RunOnce made.
func (c *Client) Attempts() int {
	return c.attempts
}

func (c *Client) setState(to ClientState) {
	from := c.state
	c.state = to
	if from == to {
		return
	}
	c.logger.Debug("state transition", "from", from.String(), "to", to.String())
	if c.bus != nil {
		c.bus.Publish(event.NewStateChangeEvent(RoleClient.String(), from.String(), to.String()))
	}
}

// CreateRequest builds a request message with a fresh correlation id.
// Raw framing carries no correlation id.
func (c *Client) CreateRequest(payload string) codec.Message {
	c.setState(ClientCreatingRequest)

	msg := codec.Message{
		Direction: codec.DirectionRequest,
		Payload:   payload,
		Timestamp: c.now(),
	}
	if c.codec.Tagged() {
		msg.CorrelationID = c.nextID()
	}
	return msg
}

func (c *Client) nextID() string {
	if c.cfg.Correlation == config.CorrelationUUID {
		if id, err := uuid.NewV7(); err == nil {
			return id.String()
		}
		return uuid.NewString()
	}
	c.counter++
	return strconv.FormatUint(c.counter, 10)
}

// Submit encodes msg and writes it to the mailbox.
func (c *Client) Submit(msg codec.Message) error {
	text, err := c.codec.EncodeRequest(msg.Payload, msg.CorrelationID, msg.Timestamp)
	if err != nil {
		return err
	}
	if err := c.slot.Write(text); err != nil {
		return err
	}
	c.lastWritten = text
	c.pendingID = msg.CorrelationID
	c.detected = ""

	c.logger.Info("request sent", "correlation_id", msg.CorrelationID, "content", text)
	if c.bus != nil {
		c.bus.Publish(event.NewRequestSentEvent(RoleClient.String(), msg.CorrelationID, c.attempts))
	}
	return nil
}

// AwaitResponse polls the mailbox until it holds something that could be the
// reply to sent, or timeout elapses.
//
// Raw framing stops on any content that differs from the text just written.
// Tagged framing stops on a server response or an error notice. The
// detected content is classified but not validated; call ReadResponse for that.
func (c *Client) AwaitResponse(ctx context.Context, sent codec.Message, timeout time.Duration) (codec.Message, error) {
	c.setState(ClientWaitingResponse)

	deadline := c.now().Add(timeout)
	for {
		content, ok, err := c.slot.Read()
		switch {
		case err != nil:
			c.logger.Debug("mailbox read failed while waiting", "error", err)
		case ok && c.isReply(content):
			c.detected = content
			msg, derr := c.codec.Decode(content)
			if derr != nil {
				msg = codec.Message{Raw: content}
			}
			return msg, nil
		}

		remaining := deadline.Sub(c.now())
		if remaining <= 0 {
			return codec.Message{}, errors.NewTimeoutError(
				fmt.Sprintf("waiting for response to request %q", sent.CorrelationID), timeout)
		}
		if err := c.sleep(ctx, min(c.cfg.PollInterval, remaining)); err != nil {
			return codec.Message{}, canceled(err)
		}
	}
}

func (c *Client) isReply(content string) bool {
	if strings.TrimSpace(content) == strings.TrimSpace(c.lastWritten) {
		return false
	}
	return c.codec.IsReply(content)
}

// ReadResponse validates the content found by AwaitResponse.
//
// An error notice becomes a ServerError. Content that does not decode, is
// not a response, or answers a different request is a MalformedMessage.
func (c *Client) ReadResponse() (codec.Message, error) {
	c.setState(ClientReadingResponse)

	if c.detected == "" {
		return codec.Message{}, errors.ErrMailboxEmpty
	}
	raw := c.detected

	msg, err := c.codec.Decode(raw)
	if err != nil {
		return codec.Message{}, err
	}
	if msg.IsErrorNotice() {
		return codec.Message{}, errors.NewServerError(msg.Payload)
	}

	if c.codec.Tagged() {
		if msg.Direction != codec.DirectionResponse {
			return codec.Message{}, errors.NewMalformedMessageError("expected a server response", raw)
		}
		if msg.CorrelationID != c.pendingID {
			return codec.Message{}, errors.NewMalformedMessageError(
				fmt.Sprintf("response id %q does not match request id %q", msg.CorrelationID, c.pendingID), raw)
		}
	} else {
		// Raw framing has no way to tell a reply from other content; whatever
		// replaced our request is the reply.
		msg.Direction = codec.DirectionResponse
	}

	c.logger.Info("response received", "correlation_id", msg.CorrelationID, "content", raw)
	if c.bus != nil {
		c.bus.Publish(event.NewResponseReceivedEvent(RoleClient.String(), msg.CorrelationID, msg.Payload))
	}
	return msg, nil
}

// HandleError records a failed attempt and decides whether to retry.
// attempt counts retries already made (0 after the first failure). While
// attempt < MaxRetries it waits RetryDelay and returns true.
func (c *Client) HandleError(ctx context.Context, err error, attempt int) bool {
	c.setState(ClientError)
	logFailure(c.logger, "attempt failed", err,
		"retryable", errors.IsRetryable(err),
		"attempt", attempt+1,
		"max_retries", c.cfg.MaxRetries)
	if c.bus != nil {
		c.bus.Publish(event.NewProtocolErrorEvent(RoleClient.String(), errors.Kind(err), err.Error()))
	}

	if attempt >= c.cfg.MaxRetries {
		return false
	}
	c.logger.Info("retrying", "delay", c.cfg.RetryDelay.String(), "retry", attempt+1)
	return c.sleep(ctx, c.cfg.RetryDelay) == nil
}

// RunOnce performs one full exchange with retries: the initial attempt plus
// up to MaxRetries more. On success in tagged framing the consumed response
// is cleared from the mailbox.
func (c *Client) RunOnce(ctx context.Context, payload string) (codec.Message, error) {
	c.attempts = 0

	var lastErr error
	for retry := 0; ; retry++ {
		if err := ctx.Err(); err != nil {
			return codec.Message{}, canceled(err)
		}
		c.attempts++

		msg, err := c.attempt(ctx, payload)
		if err == nil {
			c.setState(ClientCompleted)
			if c.codec.Tagged() {
				c.clearConsumed()
			}
			return msg, nil
		}
		if ctx.Err() != nil {
			return codec.Message{}, canceled(ctx.Err())
		}

		lastErr = err
		if !c.HandleError(ctx, err, retry) {
			break
		}
	}

	if ctx.Err() != nil {
		return codec.Message{}, canceled(ctx.Err())
	}
	c.logger.Error("giving up", "attempts", c.attempts, "kind", errors.Kind(lastErr))
	return codec.Message{}, fmt.Errorf("%w after %d attempts: %w", errors.ErrRetriesExhausted, c.attempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, payload string) (codec.Message, error) {
	req := c.CreateRequest(payload)
	if err := c.Submit(req); err != nil {
		return codec.Message{}, err
	}
	if _, err := c.AwaitResponse(ctx, req, c.cfg.Timeout); err != nil {
		return codec.Message{}, err
	}
	return c.ReadResponse()
}

// clearConsumed empties the mailbox if it still holds the response we read.
func (c *Client) clearConsumed() {
	content, ok, err := c.slot.Read()
	if err != nil || !ok || content != c.detected {
		return
	}
	if err := c.slot.Clear(); err != nil {
		c.logger.Warn("failed to clear consumed response", "error", err)
	}
}

// Cleanup removes the mailbox file. It is safe to call more than once.
func (c *Client) Cleanup() error {
	if err := c.slot.Remove(); err != nil {
		c.logger.Warn("cleanup failed", "error", err)
		return err
	}
	c.logger.Debug("mailbox removed", "path", c.slot.Path())
	return nil
}

// canceled wraps a context error so that it matches both errors.ErrCanceled
// and the original context error.
func canceled(err error) error {
	return fmt.Errorf("%w: %w", errors.ErrCanceled, err)
}
