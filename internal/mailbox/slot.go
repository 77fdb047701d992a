package mailbox

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/errors"
)

// DefaultPath is the mailbox file used when none is configured.
const DefaultPath = "shared_communication.txt"

// Slot is a single-value mailbox stored in one file.
//
// There is no history and no queue: each Write replaces the previous value.
// A missing or blank file means "no message" and is never an error.
type Slot struct {
	fs   afero.Fs
	path string
}

// NewSlot creates a Slot for the file at path. The file is not touched until
// the first write.
func NewSlot(path string, opts ...Option) *Slot {
	if path == "" {
		path = DefaultPath
	}
	s := &Slot{
		fs:   afero.NewOsFs(),
		path: path,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the slot's file path.
func (s *Slot) Path() string {
	return s.path
}

// Fs returns the filesystem backing the slot.
func (s *Slot) Fs() afero.Fs {
	return s.fs
}

// Read returns the current content trimmed of surrounding whitespace.
// ok is false when the file is absent or holds only whitespace.
func (s *Slot) Read() (content string, ok bool, err error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, errors.NewAccessError("read", s.path, err)
	}
	content = strings.TrimSpace(string(data))
	return content, content != "", nil
}

// Write replaces the slot content with content followed by a newline.
// The data is written to a temporary file in the same directory, synced and
// renamed over the slot, so a concurrent reader sees either the previous value
// or the new one.
func (s *Slot) Write(content string) error {
	return s.replace("write", []byte(content+"\n"))
}

// Clear replaces the slot content with empty text.
func (s *Slot) Clear() error {
	return s.replace("clear", nil)
}

// Remove deletes the slot file. Removing an absent slot is a no-op.
func (s *Slot) Remove() error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.NewAccessError("remove", s.path, err)
	}
	return nil
}

// Exists reports whether the slot file is present.
func (s *Slot) Exists() bool {
	ok, err := afero.Exists(s.fs, s.path)
	return err == nil && ok
}

func (s *Slot) replace(op string, data []byte) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.NewAccessError(op, s.path, err)
		}
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.NewAccessError(op, s.path, err)
	}
	tmpName := tmp.Name()

	// Any failure below leaves the slot untouched and removes the temp file.
	fail := func(err error) error {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return errors.NewAccessError(op, s.path, err)
	}

	if len(data) > 0 {
		if _, err := tmp.Write(data); err != nil {
			return fail(err)
		}
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return errors.NewAccessError(op, s.path, err)
	}
	if err := s.fs.Chmod(tmpName, 0o644); err != nil {
		_ = s.fs.Remove(tmpName)
		return errors.NewAccessError(op, s.path, err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return errors.NewAccessError(op, s.path, err)
	}
	return nil
}
