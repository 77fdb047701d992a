// Package protocol implements the two sides of the file mailbox exchange.
//
// A Client writes a ping request to the shared slot and polls for the reply,
// retrying on timeouts and rejected replies. A Server polls the same slot,
// validates each request, answers it with pong, and reports unacceptable
// content back to the client as an ERROR: notice.
//
// Neither side holds a lock on the slot. Ownership is inferred from content:
// each side ignores the text it wrote itself, and with tagged framing each
// side only acts on the other side's tag. Clears happen only while the slot
// still holds the clearing side's own write.
//
// # State Machines
//
// Both sides expose their progress as a state ([ClientState], [ServerState])
// and publish transitions on an optional event bus, so a CLI can render
// progress without the protocol knowing about the terminal.
//
// # Timing
//
// All waiting goes through a [SleepFunc] and a clock function, both
// replaceable with [WithClock]. Production code uses [Sleep] and time.Now.
package protocol
