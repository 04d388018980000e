package admission

import (
	"github.com/pitchline/pitchline/internal/sim/scheduler"
	"github.com/pitchline/pitchline/pkg/logger"
)

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithMaxConcurrent bounds the number of simultaneously running simulations.
func WithMaxConcurrent(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithBacklogLimit bounds the pending queue; jobs beyond it are rejected.
func WithBacklogLimit(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.backlogLimit = n
		}
	}
}

// WithSchedulerOptions forwards options to every job's tick scheduler.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(c *Controller) {
		c.schedOpts = append(c.schedOpts, opts...)
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}
