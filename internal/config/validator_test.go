package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "client.max_retries",
		Value:   -1,
		Message: "must be non-negative",
	}

	expected := "client.max_retries: must be non-negative (got: -1)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	if errs := Default().Validate(); len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty mailbox path", func(c *Config) { c.Mailbox.Path = " " }, "mailbox.path"},
		{"zero poll interval", func(c *Config) { c.Protocol.PollIntervalSeconds = 0 }, "protocol.poll_interval_seconds"},
		{"sub-millisecond poll interval", func(c *Config) { c.Protocol.PollIntervalSeconds = 0.0001 }, "protocol.poll_interval_seconds"},
		{"huge poll interval", func(c *Config) { c.Protocol.PollIntervalSeconds = 120 }, "protocol.poll_interval_seconds"},
		{"zero timeout", func(c *Config) { c.Client.TimeoutSeconds = 0 }, "client.timeout_seconds"},
		{"negative retries", func(c *Config) { c.Client.MaxRetries = -1 }, "client.max_retries"},
		{"too many retries", func(c *Config) { c.Client.MaxRetries = 1000 }, "client.max_retries"},
		{"negative retry delay", func(c *Config) { c.Client.RetryDelayMs = -5 }, "client.retry_delay_ms"},
		{"unknown correlation", func(c *Config) { c.Client.Correlation = "random" }, "client.correlation"},
		{"negative max requests", func(c *Config) { c.Server.MaxRequests = -1 }, "server.max_requests"},
		{"negative processing delay", func(c *Config) { c.Server.ProcessingDelayMs = -1 }, "server.processing_delay_ms"},
		{"negative grace delay", func(c *Config) { c.Server.GraceDelayMs = -1 }, "server.grace_delay_ms"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"negative log size", func(c *Config) { c.Logging.MaxSizeMB = -1 }, "logging.max_size_mb"},
		{"negative log backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("Validate() returned %d errors, want 1: %v", len(errs), errs)
			}
			if errs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.field)
			}
		})
	}
}

func TestConfig_Validate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Mailbox.Path = ""
	cfg.Client.TimeoutSeconds = -1
	cfg.Logging.Level = "loud"

	if errs := cfg.Validate(); len(errs) != 3 {
		t.Errorf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}
}

func TestConfig_Validate_LogLevelCaseInsensitive(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "DEBUG"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}
