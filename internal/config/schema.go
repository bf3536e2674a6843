// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for mirrorgram.
package config

import (
	"time"

	"github.com/mirrorgram/mirrorgram/pkg/message"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Telegram    TelegramConfig    `yaml:"telegram"`
	Pairs       PairsConfig       `yaml:"pairs"`
	Filters     FiltersConfig     `yaml:"filters,omitempty"`
	Poll        PollConfig        `yaml:"poll,omitempty"`
	Retry       RetryConfig       `yaml:"retry,omitempty"`
	Limits      LimitsConfig      `yaml:"limits,omitempty"`
	Storage     StorageConfig     `yaml:"storage,omitempty"`
	Gateway     GatewayConfig     `yaml:"gateway,omitempty"`
	Maintenance MaintenanceConfig `yaml:"maintenance,omitempty"`
	Telemetry   TelemetryConfig   `yaml:"telemetry,omitempty"`
}

// TelegramConfig holds the Bot API connection settings.
type TelegramConfig struct {
	// Token is the bot token. Required.
	Token string `yaml:"token"`

	// APIURL overrides the Bot API base URL, for self-hosted servers.
	APIURL string `yaml:"api_url,omitempty"`

	// Timeout bounds each HTTP request. Defaults to 60s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// PairsConfig lists the source and destination chat links, matched by index.
// Links accept t.me/c/ URLs, web client fragment URLs, and bare
// "chat", "chat/topic" or "chat_topic" forms.
type PairsConfig struct {
	From []string `yaml:"from"`
	To   []string `yaml:"to"`
}

// FiltersConfig holds the two optional message filters, as case-insensitive
// regular expressions.
type FiltersConfig struct {
	// IgnoreFiles drops attachments whose filename matches.
	IgnoreFiles string `yaml:"ignore_files,omitempty"`

	// Cleanup strips every matching span from message text.
	Cleanup string `yaml:"cleanup,omitempty"`
}

// PollConfig bounds the duplication cycle.
type PollConfig struct {
	// Interval is the sleep between cycles. Defaults to 30s.
	Interval time.Duration `yaml:"interval,omitempty"`

	// BatchSize caps messages fetched per cycle. Defaults to 50.
	BatchSize int `yaml:"batch_size,omitempty"`
}

// RetryConfig bounds the retry controller applied to every API call.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts,omitempty"`
	InitialBackoff time.Duration `yaml:"initial_backoff,omitempty"`
	MaxBackoff     time.Duration `yaml:"max_backoff,omitempty"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout,omitempty"`
}

// LimitsConfig overrides the destination's length limits. The defaults match
// Telegram's documented values.
type LimitsConfig struct {
	MaxMessage int `yaml:"max_message,omitempty"`
	MaxCaption int `yaml:"max_caption,omitempty"`
}

// StorageConfig locates the daemon's on-disk state.
type StorageConfig struct {
	// DataDir holds the offset database and attachment scratch space.
	// Defaults to "./data".
	DataDir string `yaml:"data_dir,omitempty"`
}

// GatewayConfig configures the optional HTTP surface. An empty Listen
// disables the gateway.
type GatewayConfig struct {
	Listen    string `yaml:"listen,omitempty"`
	AuthToken string `yaml:"auth_token,omitempty"`
}

// MaintenanceConfig schedules the background jobs.
type MaintenanceConfig struct {
	// ScratchTTL is how long abandoned scratch space survives. Defaults to 24h.
	ScratchTTL time.Duration `yaml:"scratch_ttl,omitempty"`

	// SweepSchedule is the scratch sweep cron expression. Defaults to "*/30 * * * *".
	SweepSchedule string `yaml:"sweep_schedule,omitempty"`

	// CheckpointSchedule is the offset checkpoint cron expression. Defaults to "0 * * * *".
	CheckpointSchedule string `yaml:"checkpoint_schedule,omitempty"`
}

// TelemetryConfig configures optional trace export.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP/HTTP collector address. Empty disables export.
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`

	// Insecure switches the exporter to plain HTTP.
	Insecure bool `yaml:"insecure,omitempty"`
}

// ApplyDefaults fills in every unset optional field.
func (c *Config) ApplyDefaults() {
	if c.Telegram.Timeout <= 0 {
		c.Telegram.Timeout = 60 * time.Second
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = 30 * time.Second
	}
	if c.Poll.BatchSize <= 0 {
		c.Poll.BatchSize = 50
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialBackoff <= 0 {
		c.Retry.InitialBackoff = time.Second
	}
	if c.Retry.MaxBackoff <= 0 {
		c.Retry.MaxBackoff = time.Minute
	}
	if c.Limits.MaxMessage <= 0 {
		c.Limits.MaxMessage = 4096
	}
	if c.Limits.MaxCaption <= 0 {
		c.Limits.MaxCaption = 1024
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "./data"
	}
	if c.Maintenance.ScratchTTL <= 0 {
		c.Maintenance.ScratchTTL = 24 * time.Hour
	}
	if c.Maintenance.SweepSchedule == "" {
		c.Maintenance.SweepSchedule = "*/30 * * * *"
	}
	if c.Maintenance.CheckpointSchedule == "" {
		c.Maintenance.CheckpointSchedule = "0 * * * *"
	}
}

// ParsePairs resolves the configured chat links into pairs.
func (c *Config) ParsePairs() ([]message.Pair, error) {
	return message.ParsePairs(c.Pairs.From, c.Pairs.To)
}
