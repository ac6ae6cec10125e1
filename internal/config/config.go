// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New(ctx) builds a Config with defaults; Load(ctx) layers overrides on top.
// - All functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"time"
)

// Default values.
const (
	DefaultAPIBase        = "http://localhost:8000"
	defaultAddr           = ":8080"
	defaultTimeoutMS      = 60_000
	defaultMaxUploadBytes = 32 << 20
	defaultMaxRespBytes   = 8 << 20
	defaultWorkerCount    = 4
	defaultQueueSize      = 64
	defaultSessionLimit   = 1024
	defaultSessionBytes   = 512 << 20
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// APIBase is the base URL of the analysis service that serves POST /analyze.
	APIBase string `koanf:"api_base"`

	// RequestTimeoutMS bounds one analysis round trip.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// MaxUploadBytes caps the size of a selected document.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// MaxResponseBytes caps how much of an analysis response is read.
	MaxResponseBytes int64 `koanf:"max_response_bytes"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the number of analyses waiting for a worker.
	QueueSize int `koanf:"queue_size"`

	// SessionLimit caps the number of browser sessions kept in memory.
	SessionLimit int `koanf:"session_limit"`

	// SessionBytesLimit caps the document bytes held across all sessions.
	// The least recently used sessions are dropped to stay under it.
	SessionBytesLimit int64 `koanf:"session_bytes_limit"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              defaultAddr,
		APIBase:           DefaultAPIBase,
		RequestTimeoutMS:  defaultTimeoutMS,
		MaxUploadBytes:    defaultMaxUploadBytes,
		MaxResponseBytes:  defaultMaxRespBytes,
		WorkerCount:       defaultWorkerCount,
		QueueSize:         defaultQueueSize,
		SessionLimit:      defaultSessionLimit,
		SessionBytesLimit: defaultSessionBytes,
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}
