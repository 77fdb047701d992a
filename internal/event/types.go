package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "protocol.request_sent", "mailbox.changed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// Event type names.
const (
	TypeStateChanged     = "protocol.state_changed"
	TypeRequestSent      = "protocol.request_sent"
	TypeResponseReceived = "protocol.response_received"
	TypeRequestProcessed = "protocol.request_processed"
	TypeProtocolError    = "protocol.error"
	TypeMailboxChanged   = "mailbox.changed"
)

// -----------------------------------------------------------------------------
// Protocol Events
// -----------------------------------------------------------------------------

// StateChangeEvent is emitted whenever a client or server session moves to a
// new state.
type StateChangeEvent struct {
	baseEvent
	Role string // CLIENT or SERVER
	From string
	To   string
}

// NewStateChangeEvent creates a StateChangeEvent.
func NewStateChangeEvent(role, from, to string) StateChangeEvent {
	return StateChangeEvent{
		baseEvent: newBaseEvent(TypeStateChanged),
		Role:      role,
		From:      from,
		To:        to,
	}
}

// RequestSentEvent is emitted after the client writes a request to the mailbox.
type RequestSentEvent struct {
	baseEvent
	Role          string
	CorrelationID string
	Attempt       int // 1-based
}

// NewRequestSentEvent creates a RequestSentEvent.
func NewRequestSentEvent(role, correlationID string, attempt int) RequestSentEvent {
	return RequestSentEvent{
		baseEvent:     newBaseEvent(TypeRequestSent),
		Role:          role,
		CorrelationID: correlationID,
		Attempt:       attempt,
	}
}

// ResponseReceivedEvent is emitted when the client accepts a valid reply.
type ResponseReceivedEvent struct {
	baseEvent
	Role          string
	CorrelationID string
	Payload       string
}

// NewResponseReceivedEvent creates a ResponseReceivedEvent.
func NewResponseReceivedEvent(role, correlationID, payload string) ResponseReceivedEvent {
	return ResponseReceivedEvent{
		baseEvent:     newBaseEvent(TypeResponseReceived),
		Role:          role,
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

// RequestProcessedEvent is emitted after the server writes a response.
type RequestProcessedEvent struct {
	baseEvent
	CorrelationID string
	Total         int // responses sent so far in this run
}

// NewRequestProcessedEvent creates a RequestProcessedEvent.
func NewRequestProcessedEvent(correlationID string, total int) RequestProcessedEvent {
	return RequestProcessedEvent{
		baseEvent:     newBaseEvent(TypeRequestProcessed),
		CorrelationID: correlationID,
		Total:         total,
	}
}

// ProtocolErrorEvent is emitted when either side handles a protocol error.
type ProtocolErrorEvent struct {
	baseEvent
	Role    string
	Kind    string // error class, see errors.Kind
	Message string
}

// NewProtocolErrorEvent creates a ProtocolErrorEvent.
func NewProtocolErrorEvent(role, kind, message string) ProtocolErrorEvent {
	return ProtocolErrorEvent{
		baseEvent: newBaseEvent(TypeProtocolError),
		Role:      role,
		Kind:      kind,
		Message:   message,
	}
}

// -----------------------------------------------------------------------------
// Mailbox Events
// -----------------------------------------------------------------------------

// MailboxChangedEvent is emitted by the mailbox watcher when the slot content changes.
type MailboxChangedEvent struct {
	baseEvent
	Path    string
	Content string
	Present bool // false when the slot file was removed
}

// NewMailboxChangedEvent creates a MailboxChangedEvent.
func NewMailboxChangedEvent(path, content string, present bool) MailboxChangedEvent {
	return MailboxChangedEvent{
		baseEvent: newBaseEvent(TypeMailboxChanged),
		Path:      path,
		Content:   content,
		Present:   present,
	}
}
