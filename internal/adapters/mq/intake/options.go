package intake

import (
	"github.com/pitchline/pitchline/pkg/logger"
)

// Option applies a configuration option to the Consumer.
type Option func(*Consumer)

// WithLogger sets a custom logger for the consumer.
func WithLogger(log logger.Logger) Option {
	return func(c *Consumer) {
		if log != nil {
			c.log = log
		}
	}
}
