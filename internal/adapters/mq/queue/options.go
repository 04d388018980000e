// Package queue provides the asynchronous intake work queue.
package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum capacity of the queue.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithMaxRedeliveries caps how often a message is redelivered before
// being dead-lettered.
func WithMaxRedeliveries(n int) Option {
	return func(q *InMemoryQueue) {
		if n >= 0 {
			q.maxRedel = n
		}
	}
}
