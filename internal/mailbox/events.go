package mailbox

import "github.com/YaroslavSolovev/AKOS-Laba2/internal/event"

// NewMailboxChangedEvent creates an event.MailboxChangedEvent from a Change.
func NewMailboxChangedEvent(path string, c Change) event.MailboxChangedEvent {
	return event.NewMailboxChangedEvent(path, c.Content, c.Present)
}
