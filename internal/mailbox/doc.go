// Package mailbox implements the shared single-slot file through which the
// filepong client and server exchange messages.
//
// The slot is one plain text file (shared_communication.txt by default). It
// holds at most one value. A write replaces the value, a clear empties it,
// and a remove deletes the file. An absent or blank file means "no message".
//
// # Main Types
//
//   - [Slot]: read/write/clear/remove primitives over an afero filesystem
//   - [Watcher]: read-only observer that reports each distinct slot value
//   - [Change]: one value seen by the watcher
//
// # Atomicity
//
// Writes go to a temporary file in the slot's directory, are synced and then
// renamed over the slot. A reader in another process therefore sees either
// the previous value or the new one, never a torn write. There is no locking
// between processes: the last writer wins.
//
// # Basic Usage
//
//	slot := mailbox.NewSlot("shared_communication.txt")
//	if err := slot.Write("ping"); err != nil { ... }
//	content, ok, err := slot.Read()
//	defer slot.Remove()
//
//	w := mailbox.NewWatcher(slot, mailbox.WithPollInterval(100*time.Millisecond))
//	err = w.Watch(ctx, func(c mailbox.Change) { fmt.Println(c.Content) })
package mailbox
