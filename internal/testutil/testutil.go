// Package testutil provides fakes shared by the filepong package tests.
package testutil

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/errors"
	"github.com/YaroslavSolovev/AKOS-Laba2/internal/mailbox"
)

// MemSlot returns a mailbox slot backed by a fresh in-memory filesystem.
// An empty name uses mailbox.DefaultPath.
func MemSlot(t testing.TB, name string) *mailbox.Slot {
	t.Helper()
	if name == "" {
		name = mailbox.DefaultPath
	}
	return mailbox.NewSlot(filepath.Join("/mailbox", name), mailbox.WithFs(afero.NewMemMapFs()))
}

// RecordingSlot wraps a mailbox slot and records every Write. Read and Write
// failures can be injected.
//
// OnWrite, when set, runs after each successful Write with the written text.
// Tests use it to play the peer synchronously, typically by calling Inject.
type RecordingSlot struct {
	*mailbox.Slot

	OnWrite func(content string)

	mu       sync.Mutex
	writes   []string
	clears   int
	removes  int
	readErr  error
	writeErr error
}

// NewRecordingSlot wraps an in-memory slot.
func NewRecordingSlot(t testing.TB) *RecordingSlot {
	t.Helper()
	return &RecordingSlot{Slot: MemSlot(t, "")}
}

// Read returns the injected read error, if any, or the slot content.
func (r *RecordingSlot) Read() (string, bool, error) {
	r.mu.Lock()
	err := r.readErr
	r.mu.Unlock()
	if err != nil {
		return "", false, err
	}
	return r.Slot.Read()
}

// Write records content and writes it unless a write error is injected.
func (r *RecordingSlot) Write(content string) error {
	r.mu.Lock()
	if r.writeErr != nil {
		err := r.writeErr
		r.mu.Unlock()
		return err
	}
	r.writes = append(r.writes, content)
	hook := r.OnWrite
	r.mu.Unlock()

	if err := r.Slot.Write(content); err != nil {
		return err
	}
	if hook != nil {
		hook(content)
	}
	return nil
}

// Clear counts the call and clears the slot.
func (r *RecordingSlot) Clear() error {
	r.mu.Lock()
	r.clears++
	r.mu.Unlock()
	return r.Slot.Clear()
}

// Remove counts the call and removes the slot file.
func (r *RecordingSlot) Remove() error {
	r.mu.Lock()
	r.removes++
	r.mu.Unlock()
	return r.Slot.Remove()
}

// Inject writes content as the peer would, without recording it.
func (r *RecordingSlot) Inject(t testing.TB, content string) {
	t.Helper()
	if err := r.Slot.Write(content); err != nil {
		t.Fatalf("inject %q: %v", content, err)
	}
}

// Content returns the current slot content, failing the test on read errors.
func (r *RecordingSlot) Content(t testing.TB) string {
	t.Helper()
	content, _, err := r.Slot.Read()
	if err != nil {
		t.Fatalf("read slot: %v", err)
	}
	return content
}

// Writes returns a copy of every recorded write, oldest first.
func (r *RecordingSlot) Writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.writes...)
}

// WritesWithPrefix returns the recorded writes that start with prefix.
func (r *RecordingSlot) WritesWithPrefix(prefix string) []string {
	var out []string
	for _, w := range r.Writes() {
		if strings.HasPrefix(w, prefix) {
			out = append(out, w)
		}
	}
	return out
}

// Clears returns how many times Clear was called.
func (r *RecordingSlot) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

// Removes returns how many times Remove was called.
func (r *RecordingSlot) Removes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removes
}

// FailReads makes subsequent reads fail with an access error. Pass nil to
// restore normal reads.
func (r *RecordingSlot) FailReads(cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readErr = accessError("read", r.Path(), cause)
}

// FailWrites makes subsequent writes fail with an access error. Pass nil to
// restore normal writes.
func (r *RecordingSlot) FailWrites(cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeErr = accessError("write", r.Path(), cause)
}

func accessError(op, path string, cause error) error {
	if cause == nil {
		return nil
	}
	return errors.NewAccessError(op, path, cause)
}

// FakeClock is a manual clock whose Sleep advances time instantly.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewFakeClock returns a clock reading start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleep records d and advances the clock by it. It returns ctx.Err() without
// advancing when ctx is already done.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

// Sleeps returns every duration passed to Sleep.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// WaitFor polls cond every few milliseconds and fails the test if it does
// not hold within timeout.
func WaitFor(t testing.TB, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %v waiting for %s", timeout, msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
