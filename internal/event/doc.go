// Package event provides a synchronous pub-sub bus that decouples the
// client/server protocol state machines from whatever renders their progress.
//
// The protocols publish; the CLI subscribes. Neither side knows about the other.
//
// # Event Types
//
// Event types follow the pattern "category.action":
//
//   - [StateChangeEvent] (protocol.state_changed): a session changed state
//   - [RequestSentEvent] (protocol.request_sent): the client wrote a request
//   - [ResponseReceivedEvent] (protocol.response_received): the client accepted a reply
//   - [RequestProcessedEvent] (protocol.request_processed): the server wrote a response
//   - [ProtocolErrorEvent] (protocol.error): either side handled an error
//   - [MailboxChangedEvent] (mailbox.changed): the watcher saw new slot content
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine and are protected against panics.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeRequestProcessed, func(e event.Event) {
//	    done := e.(event.RequestProcessedEvent)
//	    fmt.Printf("answered %s (%d total)\n", done.CorrelationID, done.Total)
//	})
package event
