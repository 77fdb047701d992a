// Package codec converts between protocol messages and the text stored in the
// shared mailbox.
//
// Two framings are supported. Tagged framing writes
//
//	CLIENT_REQUEST|ping|<correlationId>|<timestamp>
//	SERVER_RESPONSE|pong|<correlationId>|<timestamp>
//
// so that each side can recognize the other's writes by prefix. Raw framing
// writes the bare payload ("ping", "pong") and leaves it to the reader to
// ignore the text it wrote itself. Both framings report failures as
// "ERROR:<reason>".
package codec

import (
	"strings"
	"time"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/errors"
)

// Wire constants.
const (
	TagRequest  = "CLIENT_REQUEST"
	TagResponse = "SERVER_RESPONSE"
	ErrorPrefix = "ERROR:"
	Delimiter   = "|"
	CommandPing = "ping"
	ReplyPong   = "pong"
)

// minTaggedFields is the number of fields in a tagged message. Extra trailing
// fields are tolerated and ignored.
const minTaggedFields = 4

// TimestampLayout is used when encoding timestamps.
const TimestampLayout = time.RFC3339Nano

// legacyTimestampLayouts are accepted on decode. Older peers wrote local
// ISO-8601 timestamps without a zone offset.
var legacyTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Direction classifies a decoded message.
type Direction int

const (
	// DirectionRequest is a client request.
	DirectionRequest Direction = iota
	// DirectionResponse is a server reply.
	DirectionResponse
	// DirectionErrorNotice is a server-side rejection written as ERROR:<reason>.
	DirectionErrorNotice
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionRequest:
		return "request"
	case DirectionResponse:
		return "response"
	case DirectionErrorNotice:
		return "error"
	default:
		return "unknown"
	}
}

// Message is one unit of mailbox content.
type Message struct {
	Direction     Direction
	Payload       string
	CorrelationID string
	Timestamp     time.Time
	// Raw is the exact mailbox text the message was decoded from, or the text
	// it was encoded to.
	Raw string
}

// IsErrorNotice reports whether the message is an ERROR: notice.
func (m Message) IsErrorNotice() bool {
	return m.Direction == DirectionErrorNotice
}

// EncodeRequest renders a tagged client request.
func EncodeRequest(payload, correlationID string, ts time.Time) (string, error) {
	return encodeTagged(TagRequest, payload, correlationID, ts)
}

// EncodeResponse renders a tagged server response.
func EncodeResponse(payload, correlationID string, ts time.Time) (string, error) {
	return encodeTagged(TagResponse, payload, correlationID, ts)
}

// EncodeError renders an error notice. Line breaks in reason are flattened so
// the notice stays on one line.
func EncodeError(reason string) string {
	reason = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(reason)
	return ErrorPrefix + reason
}

func encodeTagged(tag, payload, correlationID string, ts time.Time) (string, error) {
	if correlationID == "" {
		return "", errors.NewMalformedMessageError("empty correlation id", "")
	}
	fields := []struct{ name, value string }{
		{"payload", payload},
		{"correlation id", correlationID},
	}
	for _, f := range fields {
		if strings.Contains(f.value, Delimiter) {
			return "", errors.NewMalformedMessageError(f.name+" contains the field delimiter", f.value)
		}
		if strings.ContainsAny(f.value, "\r\n") {
			return "", errors.NewMalformedMessageError(f.name+" contains a line break", f.value)
		}
	}
	return strings.Join([]string{tag, payload, correlationID, ts.Format(TimestampLayout)}, Delimiter), nil
}

// Decode parses tagged mailbox content.
//
// Content starting with ERROR: decodes to an error notice. Anything else must
// have at least four delimiter-separated fields, a known tag, a non-empty
// correlation id, and the literal payload matching the tag ("ping" for
// requests, "pong" for responses, compared case-insensitively). The timestamp
// is informational: one that does not parse leaves Timestamp zero.
func Decode(raw string) (Message, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Message{}, errors.ErrMailboxEmpty
	}
	if notice, ok := decodeNotice(text); ok {
		return notice, nil
	}

	parts := strings.Split(text, Delimiter)
	if len(parts) < minTaggedFields {
		return Message{}, errors.NewMalformedMessageError("expected 4 fields", text)
	}

	msg := Message{
		Payload:       parts[1],
		CorrelationID: parts[2],
		Raw:           text,
	}

	var want string
	switch parts[0] {
	case TagRequest:
		msg.Direction = DirectionRequest
		want = CommandPing
	case TagResponse:
		msg.Direction = DirectionResponse
		want = ReplyPong
	default:
		return Message{}, errors.NewMalformedMessageError("unknown tag "+quote(parts[0]), text)
	}

	if !strings.EqualFold(strings.TrimSpace(msg.Payload), want) {
		return Message{}, errors.NewMalformedMessageError(
			"expected "+quote(want)+", got "+quote(msg.Payload), text)
	}
	if msg.CorrelationID == "" {
		return Message{}, errors.NewMalformedMessageError("empty correlation id", text)
	}

	if ts, err := ParseTimestamp(parts[3]); err == nil {
		msg.Timestamp = ts
	}

	return msg, nil
}

// DecodeRaw classifies untagged mailbox content. It never fails on non-empty
// content: "pong" is a response, ERROR: is a notice, and anything else is a
// request candidate carrying the text as its payload.
func DecodeRaw(raw string) (Message, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Message{}, errors.ErrMailboxEmpty
	}
	if notice, ok := decodeNotice(text); ok {
		return notice, nil
	}
	if strings.EqualFold(text, ReplyPong) {
		return Message{Direction: DirectionResponse, Payload: text, Raw: text}, nil
	}
	return Message{Direction: DirectionRequest, Payload: text, Raw: text}, nil
}

// ParseTimestamp parses an encoded timestamp, accepting RFC 3339 and the
// zone-less legacy layouts (interpreted in local time).
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	ts, err := time.Parse(TimestampLayout, s)
	if err == nil {
		return ts, nil
	}
	for _, layout := range legacyTimestampLayouts {
		if ts, lerr := time.ParseInLocation(layout, s, time.Local); lerr == nil {
			return ts, nil
		}
	}
	return time.Time{}, err
}

func decodeNotice(text string) (Message, bool) {
	if !strings.HasPrefix(text, ErrorPrefix) {
		return Message{}, false
	}
	return Message{
		Direction: DirectionErrorNotice,
		Payload:   strings.TrimSpace(strings.TrimPrefix(text, ErrorPrefix)),
		Raw:       text,
	}, true
}

func quote(s string) string {
	return "'" + s + "'"
}
