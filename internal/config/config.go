package config

import (
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (FILEPONG_CLIENT_MAX_RETRIES, ...).
const EnvPrefix = "FILEPONG"

// LocalConfigFile is looked up in the working directory before the user config.
const LocalConfigFile = "filepong.yaml"

// Config represents the complete filepong configuration
type Config struct {
	Mailbox  MailboxConfig  `mapstructure:"mailbox" yaml:"mailbox"`
	Protocol ProtocolConfig `mapstructure:"protocol" yaml:"protocol"`
	Client   ClientConfig   `mapstructure:"client" yaml:"client"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// MailboxConfig locates the shared file
type MailboxConfig struct {
	// Path is the shared mailbox file (default: "shared_communication.txt")
	Path string `mapstructure:"path" yaml:"path"`
}

// ProtocolConfig holds settings both sides must agree on
type ProtocolConfig struct {
	// StrictFraming selects tagged framing (true) or raw payloads (false)
	StrictFraming bool `mapstructure:"strict_framing" yaml:"strict_framing"`
	// PollIntervalSeconds is how often a waiting side re-reads the mailbox.
	// Fractions are allowed (default: 0.1)
	PollIntervalSeconds float64 `mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds"`
}

// ClientConfig controls the request/retry loop
type ClientConfig struct {
	// TimeoutSeconds bounds the wait for one response (default: 10)
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	// MaxRetries is the number of retries after the first attempt (default: 3)
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// RetryDelayMs is the fixed pause between attempts (default: 1000)
	RetryDelayMs int `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`
	// Correlation selects how request ids are generated: "counter" or "uuid"
	Correlation string `mapstructure:"correlation" yaml:"correlation"`
}

// ServerConfig controls the serve loop
type ServerConfig struct {
	// MaxRequests stops the server after this many responses (0 = unlimited)
	MaxRequests int `mapstructure:"max_requests" yaml:"max_requests"`
	// ProcessingDelayMs simulates work between parsing and responding (default: 50)
	ProcessingDelayMs int `mapstructure:"processing_delay_ms" yaml:"processing_delay_ms"`
	// GraceDelayMs is how long the server's own write stays visible before it is cleared (default: 200)
	GraceDelayMs int `mapstructure:"grace_delay_ms" yaml:"grace_delay_ms"`
	// ClearAfterResponse clears the slot after the grace delay if it still holds the response
	ClearAfterResponse bool `mapstructure:"clear_after_response" yaml:"clear_after_response"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// File is the JSON log file; empty writes to stderr
	File string `mapstructure:"file" yaml:"file"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// Default returns a Config with the documented default values
func Default() *Config {
	return &Config{
		Mailbox: MailboxConfig{
			Path: "shared_communication.txt",
		},
		Protocol: ProtocolConfig{
			StrictFraming:       true,
			PollIntervalSeconds: 0.1,
		},
		Client: ClientConfig{
			TimeoutSeconds: 10,
			MaxRetries:     3,
			RetryDelayMs:   1000,
			Correlation:    CorrelationCounter,
		},
		Server: ServerConfig{
			MaxRequests:        0, // unlimited
			ProcessingDelayMs:  50,
			GraceDelayMs:       200,
			ClearAfterResponse: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// PollInterval returns the polling interval as a time.Duration
func (c *ProtocolConfig) PollInterval() time.Duration {
	return time.Duration(math.Round(c.PollIntervalSeconds * float64(time.Second)))
}

// Timeout returns the response timeout as a time.Duration
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryDelay returns the pause between attempts as a time.Duration
func (c *ClientConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// ProcessingDelay returns the simulated processing time as a time.Duration
func (c *ServerConfig) ProcessingDelay() time.Duration {
	return time.Duration(c.ProcessingDelayMs) * time.Millisecond
}

// GraceDelay returns the grace delay as a time.Duration
func (c *ServerConfig) GraceDelay() time.Duration {
	return time.Duration(c.GraceDelayMs) * time.Millisecond
}

// SetDefaults registers default values with the global viper instance
func SetDefaults() {
	SetDefaultsOn(viper.GetViper())
}

// SetDefaultsOn registers default values with v
func SetDefaultsOn(v *viper.Viper) {
	defaults := Default()

	// Mailbox defaults
	v.SetDefault("mailbox.path", defaults.Mailbox.Path)

	// Protocol defaults
	v.SetDefault("protocol.strict_framing", defaults.Protocol.StrictFraming)
	v.SetDefault("protocol.poll_interval_seconds", defaults.Protocol.PollIntervalSeconds)

	// Client defaults
	v.SetDefault("client.timeout_seconds", defaults.Client.TimeoutSeconds)
	v.SetDefault("client.max_retries", defaults.Client.MaxRetries)
	v.SetDefault("client.retry_delay_ms", defaults.Client.RetryDelayMs)
	v.SetDefault("client.correlation", defaults.Client.Correlation)

	// Server defaults
	v.SetDefault("server.max_requests", defaults.Server.MaxRequests)
	v.SetDefault("server.processing_delay_ms", defaults.Server.ProcessingDelayMs)
	v.SetDefault("server.grace_delay_ms", defaults.Server.GraceDelayMs)
	v.SetDefault("server.clear_after_response", defaults.Server.ClearAfterResponse)

	// Logging defaults
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from the global viper instance and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v and validates it
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "filepong")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".filepong"
	}
	return filepath.Join(home, ".config", "filepong")
}

// ConfigFile returns the path to the user config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
