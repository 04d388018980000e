package app

import (
	"time"

	"github.com/pitchline/pitchline/internal/domain/match"
	"github.com/pitchline/pitchline/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithMaxConcurrent bounds simultaneously running simulations.
func WithMaxConcurrent(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithBacklogLimit bounds the admission pending queue.
func WithBacklogLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.backlogLimit = n
		}
	}
}

// WithQueueCapacity bounds the asynchronous intake queue.
func WithQueueCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueCapacity = n
		}
	}
}

// WithMaxRedeliveries caps intake message redelivery before dead-lettering.
func WithMaxRedeliveries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRedeliveries = n
		}
	}
}

// WithSubscriberBuffer sets the per-subscriber live buffer in the hub.
func WithSubscriberBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.subscriberBuffer = n
		}
	}
}

// WithStreamRetention sets how long finished match streams are kept for
// late resyncs before the hub drops them.
func WithStreamRetention(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.streamRetention = d
		}
	}
}

// WithDefaultTickRate sets the tick rate applied to realtime jobs that
// omit one.
func WithDefaultTickRate(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.tickRate = n
		}
	}
}

// WithFeatureDefaults sets the option block applied to submissions that
// omit theirs entirely.
func WithFeatureDefaults(opts match.Options) Option {
	return func(s *Service) {
		s.featureDefaults = opts
	}
}

// WithEngineOptions forwards options to every match engine. Tests use
// this to shorten halves.
func WithEngineOptions(opts ...match.EngineOption) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}
