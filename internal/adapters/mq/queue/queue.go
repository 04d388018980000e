// Package queue provides the asynchronous intake work queue.
//
// The in-memory implementation stands in for an external broker: it keeps
// at-least-once semantics through explicit acknowledgement, bounded
// redelivery, and a dead-letter buffer for poison messages.
package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pitchline/pitchline/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity        = 1024
	defaultMaxRedeliveries = 3
)

// Message is one intake payload plus delivery bookkeeping.
type Message struct {
	ID         string
	Payload    []byte
	Deliveries int
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics
// with explicit acknowledgement.
type Queue interface {
	// Enqueue adds a payload to the queue.
	// Returns false if the queue is full and the payload was not enqueued.
	Enqueue(ctx context.Context, payload []byte) bool

	// Dequeue returns a channel that will receive messages as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Message

	// Ack confirms a delivered message; it will not be redelivered.
	Ack(ctx context.Context, id string)

	// Nack returns a delivered message for redelivery, or dead-letters it
	// once the redelivery limit is exceeded.
	Nack(ctx context.Context, id string)

	// Len returns the current number of queued messages.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel plus an
// in-flight table for unacknowledged deliveries.
type InMemoryQueue struct {
	messages chan Message
	capacity int
	maxRedel int

	// Senders hold the read lock across channel sends; Close takes the
	// write lock before closing the channel.
	mu         sync.RWMutex
	inflight   map[string]Message
	deadLetter []Message
	closed     bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
		maxRedel: defaultMaxRedeliveries,
		inflight: make(map[string]Message),
	}

	for _, opt := range opts {
		opt(q)
	}

	q.messages = make(chan Message, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueDepth(0)

	return q
}

// Enqueue adds a payload to the queue.
func (q *InMemoryQueue) Enqueue(_ context.Context, payload []byte) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	msg := Message{ID: uuid.NewString(), Payload: payload}
	select {
	case q.messages <- msg:
		metrics.UpdateQueueDepth(len(q.messages))
		return true
	default:
		return false
	}
}

// Dequeue returns a channel that receives messages as they become
// available. Each delivered message is tracked in-flight until Ack/Nack.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Message {
	out := make(chan Message)
	go func() {
		defer close(out)
		for msg := range q.messages {
			msg.Deliveries++
			q.mu.Lock()
			q.inflight[msg.ID] = msg
			q.mu.Unlock()

			select {
			case out <- msg:
				metrics.UpdateQueueDepth(len(q.messages))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Ack confirms a delivered message.
func (q *InMemoryQueue) Ack(_ context.Context, id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inflight[id]; !ok {
		return
	}
	delete(q.inflight, id)
	metrics.RecordMessageAcked()
}

// Nack returns a message for redelivery, or dead-letters it once the
// redelivery limit is exceeded.
func (q *InMemoryQueue) Nack(_ context.Context, id string) {
	q.mu.Lock()
	msg, ok := q.inflight[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	delete(q.inflight, id)

	if msg.Deliveries > q.maxRedel {
		q.deadLetter = append(q.deadLetter, msg)
		q.mu.Unlock()
		metrics.RecordMessageDeadLettered()
		return
	}
	q.mu.Unlock()

	metrics.RecordMessageNacked()

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return
	}
	select {
	case q.messages <- msg:
		q.mu.RUnlock()
		return
	default:
	}
	q.mu.RUnlock()

	// Queue full on redelivery; treat as dead-lettered rather than
	// blocking the consumer.
	q.mu.Lock()
	q.deadLetter = append(q.deadLetter, msg)
	q.mu.Unlock()
	metrics.RecordMessageDeadLettered()
}

// DeadLetters returns messages that exceeded the redelivery limit.
func (q *InMemoryQueue) DeadLetters(_ context.Context) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Message, len(q.deadLetter))
	copy(out, q.deadLetter)
	return out
}

// Len returns the current number of queued messages.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.messages)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.messages)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
