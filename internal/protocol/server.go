package protocol

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/codec"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/errors"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/event"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/logging"
)

// RequestData is a request that passed validation.
type RequestData struct {
	Payload       string
	CorrelationID string
	Timestamp     time.Time
	Raw           string
	// Duplicate is set when CorrelationID equals the last accepted id.
	Duplicate bool
}

// Server drives the answering side of the exchange: poll for a request,
// validate it, reply, and clear its own write after a grace delay.
//
// A Server is not safe for concurrent use. Run blocks the caller's goroutine.
type Server struct {
	slot   Slot
	codec  codec.Codec
	cfg    ServerConfig
	logger *logging.Logger
	bus    *event.Bus
	sleep  SleepFunc
	now    func() time.Time

	state          ServerState
	lastWritten    string
	lastAcceptedID string
	lastDuplicate  string // raw text of the last skipped duplicate
	processed      int
	stopped        bool
}

// NewServer creates a Server over slot.
func NewServer(slot Slot, cfg ServerConfig, opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		slot:   slot,
		codec:  codec.New(cfg.Framing),
		cfg:    cfg,
		logger: o.logger.WithRole(RoleServer.String()),
		bus:    o.bus,
		sleep:  o.sleep,
		now:    o.now,
		state:  ServerIdle,
	}
}

// State returns the current state.
func (s *Server) State() ServerState {
	return s.state
}

// Processed returns the number of responses sent in the current run.
func (s *Server) Processed() int {
	return s.processed
}

func (s *Server) setState(to ServerState) {
	from := s.state
	s.state = to
	if from == to {
		return
	}
	s.logger.Debug("state transition", "from", from.String(), "to", to.String())
	if s.bus != nil {
		s.bus.Publish(event.NewStateChangeEvent(RoleServer.String(), from.String(), to.String()))
	}
}

// PollRequest reads the mailbox once. It reports no request when the slot is
// absent or empty, holds the server's own last write, or (tagged framing) is
// not tagged as a client request.
func (s *Server) PollRequest() (codec.Message, bool, error) {
	s.setState(ServerWaitingRequest)

	content, ok, err := s.slot.Read()
	if err != nil {
		return codec.Message{}, false, err
	}
	if !ok {
		// A removed mailbox means the client session ended. Its successor
		// restarts its counter, so the duplicate window closes here.
		if s.lastAcceptedID != "" && !s.slot.Exists() {
			s.lastAcceptedID = ""
			s.lastDuplicate = ""
		}
		return codec.Message{}, false, nil
	}
	if content == strings.TrimSpace(s.lastWritten) || content == s.lastDuplicate {
		return codec.Message{}, false, nil
	}
	if !s.codec.IsRequest(content) {
		return codec.Message{}, false, nil
	}

	s.logger.Debug("request detected", "content", content)
	return codec.Message{Direction: codec.DirectionRequest, Raw: content}, true, nil
}

// ParseRequest validates raw as a ping request and performs duplicate
// detection. Duplicate detection applies to tagged framing only, since raw
// requests carry no correlation id.
func (s *Server) ParseRequest(raw string) (RequestData, error) {
	s.setState(ServerProcessingRequest)

	msg, err := s.codec.Decode(raw)
	if err != nil {
		var malformed *errors.MalformedMessageError
		if errors.As(err, &malformed) {
			return RequestData{}, errors.NewInvalidRequestError(malformed.Reason(), raw).WithCause(err)
		}
		return RequestData{}, errors.NewInvalidRequestError("unreadable request", raw).WithCause(err)
	}
	if msg.Direction != codec.DirectionRequest {
		return RequestData{}, errors.NewInvalidRequestError(
			fmt.Sprintf("expected a client request, got %s", msg.Direction), raw)
	}
	// Tagged decoding already checked the literal; raw requests carry any text.
	if !s.codec.Tagged() && !strings.EqualFold(strings.TrimSpace(msg.Payload), codec.CommandPing) {
		return RequestData{}, errors.NewInvalidRequestError(
			fmt.Sprintf("expected '%s', got '%s'", codec.CommandPing, msg.Payload), raw)
	}

	req := RequestData{
		Payload:       msg.Payload,
		CorrelationID: msg.CorrelationID,
		Timestamp:     msg.Timestamp,
		Raw:           msg.Raw,
	}
	if s.codec.Tagged() {
		if req.CorrelationID == s.lastAcceptedID {
			req.Duplicate = true
		} else {
			s.lastAcceptedID = req.CorrelationID
		}
	}

	if !req.Duplicate {
		s.logger.Info("request accepted", "correlation_id", req.CorrelationID)
	}
	return req, nil
}

// SynthesizeResponse builds the pong reply for req.
func (s *Server) SynthesizeResponse(req RequestData) codec.Message {
	return codec.Message{
		Direction:     codec.DirectionResponse,
		Payload:       codec.ReplyPong,
		CorrelationID: req.CorrelationID,
		Timestamp:     s.now(),
	}
}

// SendResponse writes msg to the mailbox and counts it as processed.
func (s *Server) SendResponse(msg codec.Message) error {
	s.setState(ServerSendingResponse)

	text, err := s.codec.EncodeResponse(msg.Payload, msg.CorrelationID, msg.Timestamp)
	if err != nil {
		return err
	}
	if err := s.slot.Write(text); err != nil {
		return err
	}
	s.lastWritten = text
	s.processed++

	s.logger.Info("response sent",
		"correlation_id", msg.CorrelationID,
		"content", text,
		"total", s.processed)
	if s.bus != nil {
		s.bus.Publish(event.NewRequestProcessedEvent(msg.CorrelationID, s.processed))
	}
	return nil
}

// HandleError logs err together with the offending content. Rejected
// requests are answered with an ERROR: notice, which is cleared after the
// grace delay if nothing replaced it. Other failures clear the mailbox.
func (s *Server) HandleError(ctx context.Context, err error) {
	s.setState(ServerError)

	var args []any
	var invalid *errors.InvalidRequestError
	if errors.As(err, &invalid) {
		args = append(args, "content", invalid.Raw)
	}
	logFailure(s.logger, "request failed", err, args...)
	if s.bus != nil {
		s.bus.Publish(event.NewProtocolErrorEvent(RoleServer.String(), errors.Kind(err), err.Error()))
	}

	if errors.IsRejection(err) {
		reason := err.Error()
		if invalid != nil {
			reason = invalid.Reason()
		}
		notice := s.codec.EncodeError(reason)
		if werr := s.slot.Write(notice); werr != nil {
			s.logger.Warn("failed to write error notice", "error", werr)
			return
		}
		s.lastWritten = notice
		if s.sleep(ctx, s.cfg.GraceDelay) != nil {
			return
		}
		s.clearIfHolds(notice)
		return
	}

	if cerr := s.slot.Clear(); cerr != nil {
		s.logger.Warn("failed to clear mailbox after error", "error", cerr)
	}
}

// clearIfHolds empties the mailbox only when it still contains text.
func (s *Server) clearIfHolds(text string) {
	content, ok, err := s.slot.Read()
	if err != nil || !ok || content != strings.TrimSpace(text) {
		return
	}
	if err := s.slot.Clear(); err != nil {
		s.logger.Warn("failed to clear mailbox", "error", err)
	}
}

// ProcessOne runs one poll/parse/respond cycle. It returns true only when a
// response was sent.
func (s *Server) ProcessOne(ctx context.Context) bool {
	msg, ok, err := s.PollRequest()
	if err != nil {
		s.logger.Debug("mailbox read failed", "error", err)
		return false
	}
	if !ok {
		return false
	}

	req, err := s.ParseRequest(msg.Raw)
	if err != nil {
		s.HandleError(ctx, err)
		return false
	}
	if req.Duplicate {
		// The duplicate stays in the slot; later polls skip it without parsing.
		s.lastDuplicate = req.Raw
		logFailure(s.logger, "skipping request",
			fmt.Errorf("%w: id %q", errors.ErrDuplicateRequest, req.CorrelationID),
			"correlation_id", req.CorrelationID)
		return false
	}

	if s.sleep(ctx, s.cfg.ProcessingDelay) != nil {
		return false
	}

	resp := s.SynthesizeResponse(req)
	if err := s.SendResponse(resp); err != nil {
		s.HandleError(ctx, err)
		return false
	}
	s.setState(ServerCompleted)

	if s.cfg.ClearAfterResponse {
		if s.sleep(ctx, s.cfg.GraceDelay) == nil {
			s.clearIfHolds(s.lastWritten)
		}
	}
	return true
}

// Run serves requests until maxRequests responses were sent (0 means no
// limit) or ctx is canceled. A stale mailbox is removed first, and Stop runs
// on every exit path.
func (s *Server) Run(ctx context.Context, maxRequests int) error {
	s.stopped = false
	s.processed = 0
	s.lastWritten = ""
	s.lastDuplicate = ""

	s.logger.Info("starting server",
		"mailbox", s.slot.Path(),
		"framing", s.codec.Framing.String(),
		"poll_interval", s.cfg.PollInterval.String(),
		"max_requests", maxRequests)

	if err := s.slot.Remove(); err != nil {
		return errors.Wrapf(err, "remove stale mailbox %s", s.slot.Path())
	}
	defer s.Stop()

	for {
		if ctx.Err() != nil {
			s.logger.Info("server interrupted")
			return nil
		}

		processed := s.ProcessOne(ctx)
		if maxRequests > 0 && s.processed >= maxRequests {
			s.logger.Info("request limit reached", "max_requests", maxRequests)
			return nil
		}
		if !processed {
			s.setState(ServerWaitingRequest)
			if s.sleep(ctx, s.cfg.PollInterval) != nil {
				s.logger.Info("server interrupted")
				return nil
			}
		}
	}
}

// Stop removes the mailbox and returns the number of responses sent. Calls
// after the first are no-ops.
func (s *Server) Stop() int {
	if s.stopped {
		return s.processed
	}
	s.stopped = true

	if err := s.slot.Remove(); err != nil {
		s.logger.Warn("failed to remove mailbox on stop", "error", err)
	}
	s.setState(ServerIdle)
	s.logger.Info("server stopped", "processed", s.processed)
	return s.processed
}
