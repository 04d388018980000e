// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer sources.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MaxConcurrent bounds the number of simulations running at once.
	MaxConcurrent int `koanf:"max_concurrent"`

	// BacklogLimit bounds the admission pending queue; jobs beyond it are rejected.
	BacklogLimit int `koanf:"backlog_limit"`

	// TickRate is the default ticks per wall-clock second for realtime jobs.
	TickRate int `koanf:"tick_rate"`

	// QueueCapacity bounds the asynchronous intake queue.
	QueueCapacity int `koanf:"queue_capacity"`

	// MaxRedeliveries caps intake message redelivery before dead-lettering.
	MaxRedeliveries int `koanf:"max_redeliveries"`

	// ThrottleWindowMS and ThrottleMaxRequests configure the per-origin
	// sliding window on the synchronous submission path.
	ThrottleWindowMS    int `koanf:"throttle_window_ms"`
	ThrottleMaxRequests int `koanf:"throttle_max_requests"`

	// SubscriberBuffer sets the per-subscriber update buffer in the broadcast hub.
	SubscriberBuffer int `koanf:"subscriber_buffer"`

	// StreamRetentionS sets how many seconds a finished match's replay
	// buffer stays available for late resyncs.
	StreamRetentionS int `koanf:"stream_retention_s"`

	// Feature toggle defaults applied when a job omits its options.
	EnableCommentary bool `koanf:"enable_commentary"`
	EnableStatistics bool `koanf:"enable_statistics"`
	EnableFatigue    bool `koanf:"enable_fatigue"`
	EnableMomentum   bool `koanf:"enable_momentum"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		MaxConcurrent:       runtime.NumCPU(),
		BacklogLimit:        256,
		TickRate:            60,
		QueueCapacity:       1024,
		MaxRedeliveries:     3,
		ThrottleWindowMS:    1000,
		ThrottleMaxRequests: 10,
		SubscriberBuffer:    64,
		StreamRetentionS:    120,
		EnableCommentary:    false,
		EnableStatistics:    true,
		EnableFatigue:       true,
		EnableMomentum:      true,
	}
}
