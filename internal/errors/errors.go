// Package errors provides the error taxonomy shared by the filepong client and
// server protocols. It defines sentinel errors, typed protocol errors carrying
// context, and classification helpers used at the RunOnce/ProcessOne boundary.
//
// # Error Types
//
//   - AccessError: the shared mailbox file could not be read or written
//   - MalformedMessageError: mailbox content does not match the wire grammar
//   - InvalidRequestError: the server rejected a request (bad framing or command)
//   - TimeoutError: no qualifying mailbox content appeared before the deadline
//   - ServerError: the server answered with an error notice
//
// A duplicate request is not an error. The server logs it with the
// ErrDuplicateRequest sentinel, which GetSeverity ranks as debug.
//
// # Usage
//
//	err := errors.NewAccessError("write", path, cause)
//
//	var accessErr *errors.AccessError
//	if errors.As(err, &accessErr) { ... }
//
//	logger.Warn("attempt failed",
//		"kind", errors.Kind(err),
//		"severity", errors.GetSeverity(err),
//		"retryable", errors.IsRetryable(err))
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is  = errors.Is
	As  = errors.As
	New = errors.New
)

// Severity ranks a failure and picks the level it is logged at.
type Severity int

const (
	// SeverityDebug covers expected skips such as a replayed request.
	SeverityDebug Severity = iota
	// SeverityInfo covers operator-initiated stops.
	SeverityInfo
	// SeverityWarning covers failures the protocol recovers from.
	SeverityWarning
	// SeverityError covers storage faults and errors outside the taxonomy.
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Level maps the severity onto a slog level.
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityDebug:
		return slog.LevelDebug
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrDuplicateRequest marks a replayed request id. It is a skip signal, not a failure.
	ErrDuplicateRequest = New("duplicate request")
	// ErrRetriesExhausted indicates the client gave up after its last retry.
	ErrRetriesExhausted = New("retries exhausted")
	// ErrMailboxEmpty indicates there was no content to decode.
	ErrMailboxEmpty = New("mailbox is empty")
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ProtocolError is the base interface for all filepong errors.
type ProtocolError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Kind returns the taxonomy class name used in logs.
	Kind() string

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Storage Errors
// -----------------------------------------------------------------------------

// AccessError reports an I/O fault on the shared mailbox file. An absent file
// is never an AccessError; it is the "no message" state.
//
// Example:
//
//	err := errors.NewAccessError("write", "shared_communication.txt", os.ErrPermission)
//	fmt.Println(err) // "access error [op=write, path=shared_communication.txt]: permission denied"
type AccessError struct {
	baseError
	Op   string
	Path string
}

// NewAccessError creates a new AccessError.
func NewAccessError(op, path string, cause error) *AccessError {
	return &AccessError{
		baseError: baseError{
			message:   fmt.Sprintf("failed to %s mailbox", op),
			cause:     cause,
			severity:  SeverityError,
			retryable: true, // the peer may hold the file briefly
		},
		Op:   op,
		Path: path,
	}
}

// Kind returns the taxonomy class name.
func (e *AccessError) Kind() string { return "AccessError" }

// Error returns the formatted error message.
func (e *AccessError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}

	prefix := "access error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("access error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.cause)
	}
	return prefix
}

// Is checks if this error matches the target.
func (e *AccessError) Is(target error) bool {
	if _, ok := target.(*AccessError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Framing Errors
// -----------------------------------------------------------------------------

// MalformedMessageError reports mailbox content that does not follow the wire
// grammar: too few fields, an unknown tag, or an unexpected literal payload.
type MalformedMessageError struct {
	baseError
	Raw string
}

// NewMalformedMessageError creates a new MalformedMessageError.
func NewMalformedMessageError(message, raw string) *MalformedMessageError {
	return &MalformedMessageError{
		baseError: baseError{
			message:   message,
			severity:  SeverityWarning,
			retryable: false,
		},
		Raw: raw,
	}
}

// WithCause adds a cause to the error.
func (e *MalformedMessageError) WithCause(cause error) *MalformedMessageError {
	e.cause = cause
	return e
}

// Kind returns the taxonomy class name.
func (e *MalformedMessageError) Kind() string { return "MalformedMessage" }

// Reason returns the bare description without the raw content.
func (e *MalformedMessageError) Reason() string { return e.message }

// Error returns the formatted error message.
func (e *MalformedMessageError) Error() string {
	base := fmt.Sprintf("malformed message: %s", e.message)
	if e.Raw != "" {
		base = fmt.Sprintf("%s (raw: %q)", base, e.Raw)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *MalformedMessageError) Is(target error) bool {
	if _, ok := target.(*MalformedMessageError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// InvalidRequestError is the server-side rejection of a request, either
// because its framing is malformed or because the command is not recognized.
//
// Example:
//
//	err := errors.NewInvalidRequestError("expected 'ping', got 'pingg'", "pingg")
//	fmt.Println(err.Reason()) // "expected 'ping', got 'pingg'"
type InvalidRequestError struct {
	baseError
	Raw string
}

// NewInvalidRequestError creates a new InvalidRequestError.
func NewInvalidRequestError(message, raw string) *InvalidRequestError {
	return &InvalidRequestError{
		baseError: baseError{
			message:   message,
			severity:  SeverityWarning,
			retryable: false,
		},
		Raw: raw,
	}
}

// WithCause adds a cause to the error.
func (e *InvalidRequestError) WithCause(cause error) *InvalidRequestError {
	e.cause = cause
	return e
}

// Kind returns the taxonomy class name.
func (e *InvalidRequestError) Kind() string { return "InvalidRequest" }

// Reason returns the human-readable reason sent back to the client.
func (e *InvalidRequestError) Reason() string { return e.message }

// Error returns the formatted error message.
func (e *InvalidRequestError) Error() string {
	base := fmt.Sprintf("invalid request: %s", e.message)
	if e.Raw != "" {
		base = fmt.Sprintf("%s (raw: %q)", base, e.Raw)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *InvalidRequestError) Is(target error) bool {
	if _, ok := target.(*InvalidRequestError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ServerError carries an error notice the server wrote back to the client.
type ServerError struct {
	baseError
	Reason string
}

// NewServerError creates a new ServerError.
func NewServerError(reason string) *ServerError {
	return &ServerError{
		baseError: baseError{
			message:   reason,
			severity:  SeverityWarning,
			retryable: false,
		},
		Reason: reason,
	}
}

// Kind returns the taxonomy class name.
func (e *ServerError) Kind() string { return "ServerError" }

// Error returns the formatted error message.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned error: %s", e.Reason)
}

// Is checks if this error matches the target.
func (e *ServerError) Is(target error) bool {
	if _, ok := target.(*ServerError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Timeout Errors
// -----------------------------------------------------------------------------

// TimeoutError represents an operation that exceeded its time limit.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for response", 10*time.Second)
//	fmt.Println(err) // "timeout error: waiting for response (timeout: 10s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:   operation,
			severity:  SeverityWarning,
			retryable: true, // Timeouts are generally retryable
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Kind returns the taxonomy class name.
func (e *TimeoutError) Kind() string { return "TimeoutError" }

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// Kind returns the taxonomy class name of err for logging. Errors outside the
// taxonomy are reported by their sentinel name when known, otherwise as
// "Error".
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var protoErr ProtocolError
	if As(err, &protoErr) {
		return protoErr.Kind()
	}

	switch {
	case Is(err, ErrDuplicateRequest):
		return "DuplicateRequest"
	case Is(err, ErrRetriesExhausted):
		return "RetriesExhausted"
	case Is(err, ErrTimeout):
		return "TimeoutError"
	case Is(err, ErrCanceled):
		return "Canceled"
	}
	return "Error"
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var protoErr ProtocolError
	if As(err, &protoErr) {
		return protoErr.IsRetryable()
	}

	if Is(err, ErrTimeout) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error. A duplicate request
// is debug and a cancellation is info. Errors outside the taxonomy are
// SeverityError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var protoErr ProtocolError
	if As(err, &protoErr) {
		return protoErr.Severity()
	}

	switch {
	case Is(err, ErrDuplicateRequest):
		return SeverityDebug
	case Is(err, ErrCanceled):
		return SeverityInfo
	case Is(err, ErrTimeout):
		return SeverityWarning
	}
	return SeverityError
}

// IsRejection reports whether err means the content itself was unacceptable
// (malformed framing or an invalid request), as opposed to a storage or
// timing failure.
func IsRejection(err error) bool {
	var malformed *MalformedMessageError
	var invalid *InvalidRequestError
	return As(err, &malformed) || As(err, &invalid)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrapf wraps an error with a formatted context message.
// Unlike fmt.Errorf with %w, this returns nil for a nil error.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "remove stale mailbox %s", path)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
