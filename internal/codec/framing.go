package codec

import (
	"strings"
	"time"
)

// Framing selects how messages are laid out in the mailbox.
type Framing int

const (
	// FramingTagged prefixes every message with its sender's tag.
	FramingTagged Framing = iota
	// FramingRaw writes the bare payload.
	FramingRaw
)

// String returns the framing name.
func (f Framing) String() string {
	switch f {
	case FramingTagged:
		return "tagged"
	case FramingRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// FramingFor maps the strict_framing setting to a Framing.
func FramingFor(strict bool) Framing {
	if strict {
		return FramingTagged
	}
	return FramingRaw
}

// Codec encodes and decodes messages under a fixed framing.
type Codec struct {
	Framing Framing
}

// New returns a Codec for the given framing.
func New(framing Framing) Codec {
	return Codec{Framing: framing}
}

// Tagged reports whether the codec uses tagged framing.
func (c Codec) Tagged() bool {
	return c.Framing == FramingTagged
}

// EncodeRequest renders a request. Raw framing writes only the payload.
func (c Codec) EncodeRequest(payload, correlationID string, ts time.Time) (string, error) {
	if !c.Tagged() {
		return payload, nil
	}
	return EncodeRequest(payload, correlationID, ts)
}

// EncodeResponse renders a response. Raw framing writes only the payload.
func (c Codec) EncodeResponse(payload, correlationID string, ts time.Time) (string, error) {
	if !c.Tagged() {
		return payload, nil
	}
	return EncodeResponse(payload, correlationID, ts)
}

// EncodeError renders an error notice. The notice format is shared by both framings.
func (c Codec) EncodeError(reason string) string {
	return EncodeError(reason)
}

// Decode parses mailbox content under the codec's framing.
func (c Codec) Decode(raw string) (Message, error) {
	if !c.Tagged() {
		return DecodeRaw(raw)
	}
	return Decode(raw)
}

// IsRequest reports whether raw looks like a client request. Tagged framing
// requires the request tag; raw framing accepts any non-empty content that is
// not an error notice.
func (c Codec) IsRequest(raw string) bool {
	text := strings.TrimSpace(raw)
	if c.Tagged() {
		return strings.HasPrefix(text, TagRequest+Delimiter)
	}
	return text != "" && !strings.HasPrefix(text, ErrorPrefix)
}

// IsReply reports whether raw is something a waiting client should act on:
// a response or an error notice. Raw framing cannot tell a reply from any
// other non-empty content, so the caller must also compare against its own write.
func (c Codec) IsReply(raw string) bool {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, ErrorPrefix) {
		return true
	}
	if c.Tagged() {
		return strings.HasPrefix(text, TagResponse+Delimiter)
	}
	return text != ""
}
