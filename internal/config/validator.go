package config

import (
	"fmt"
	"slices"
	"strings"
)

// Correlation id strategies
const (
	CorrelationCounter = "counter"
	CorrelationUUID    = "uuid"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "client.max_retries")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidCorrelations returns the list of valid correlation id strategies
func ValidCorrelations() []string {
	return []string{CorrelationCounter, CorrelationUUID}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateMailbox()...)
	errors = append(errors, c.validateProtocol()...)
	errors = append(errors, c.validateClient()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateMailbox() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Mailbox.Path) == "" {
		errors = append(errors, ValidationError{
			Field:   "mailbox.path",
			Value:   c.Mailbox.Path,
			Message: "must not be empty",
		})
	}

	return errors
}

func (c *Config) validateProtocol() []ValidationError {
	var errors []ValidationError

	const minPollInterval = 0.001 // 1ms minimum
	const maxPollInterval = 60.0  // 1 minute maximum

	if c.Protocol.PollIntervalSeconds < minPollInterval {
		errors = append(errors, ValidationError{
			Field:   "protocol.poll_interval_seconds",
			Value:   c.Protocol.PollIntervalSeconds,
			Message: fmt.Sprintf("must be at least %gs", minPollInterval),
		})
	}
	if c.Protocol.PollIntervalSeconds > maxPollInterval {
		errors = append(errors, ValidationError{
			Field:   "protocol.poll_interval_seconds",
			Value:   c.Protocol.PollIntervalSeconds,
			Message: fmt.Sprintf("exceeds maximum of %gs", maxPollInterval),
		})
	}

	return errors
}

func (c *Config) validateClient() []ValidationError {
	var errors []ValidationError

	if c.Client.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "client.timeout_seconds",
			Value:   c.Client.TimeoutSeconds,
			Message: "must be positive",
		})
	}

	const maxRetriesLimit = 100
	if c.Client.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "client.max_retries",
			Value:   c.Client.MaxRetries,
			Message: "must be non-negative",
		})
	}
	if c.Client.MaxRetries > maxRetriesLimit {
		errors = append(errors, ValidationError{
			Field:   "client.max_retries",
			Value:   c.Client.MaxRetries,
			Message: fmt.Sprintf("exceeds maximum of %d", maxRetriesLimit),
		})
	}

	if c.Client.RetryDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "client.retry_delay_ms",
			Value:   c.Client.RetryDelayMs,
			Message: "must be non-negative",
		})
	}

	if !slices.Contains(ValidCorrelations(), c.Client.Correlation) {
		errors = append(errors, ValidationError{
			Field:   "client.correlation",
			Value:   c.Client.Correlation,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidCorrelations(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.MaxRequests < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.max_requests",
			Value:   c.Server.MaxRequests,
			Message: "must be non-negative (0 = unlimited)",
		})
	}
	if c.Server.ProcessingDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.processing_delay_ms",
			Value:   c.Server.ProcessingDelayMs,
			Message: "must be non-negative",
		})
	}
	if c.Server.GraceDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.grace_delay_ms",
			Value:   c.Server.GraceDelayMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative (0 disables rotation)",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
