package scheduler

import (
	"github.com/pitchline/pitchline/internal/domain/match"
	"github.com/pitchline/pitchline/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithPublisher sets the tick update sink, typically the broadcast hub.
func WithPublisher(pub Publisher) Option {
	return func(s *Scheduler) {
		if pub != nil {
			s.pub = pub
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithEngineOptions forwards options to the underlying engine.
func WithEngineOptions(opts ...match.EngineOption) Option {
	return func(s *Scheduler) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}
