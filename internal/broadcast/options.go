package broadcast

import "time"

// HubOption applies a configuration option to the Hub.
type HubOption func(*Hub)

// WithSubscriberBuffer sets the bounded per-subscriber live queue size.
func WithSubscriberBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.bufSize = n
		}
	}
}

// WithStreamRetention sets how long a finished match's replay buffer is
// kept for late resyncs before the stream is dropped.
func WithStreamRetention(d time.Duration) HubOption {
	return func(h *Hub) {
		if d >= 0 {
			h.retention = d
		}
	}
}
