// Package broadcast fans out live tick updates to subscribers keyed by
// match id. Slow or disconnected subscribers never block tick production.
package broadcast

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pitchline/pitchline/internal/domain/match"
	"github.com/pitchline/pitchline/pkg/metrics"
)

// Default hub configuration constants.
const (
	defaultSubscriberBuffer = 64
	defaultStreamRetention  = 2 * time.Minute
)

// Kind discriminates hub messages.
type Kind string

const (
	// KindTick carries one tick update.
	KindTick Kind = "tick"
	// KindEvents carries the events resolved during one tick.
	KindEvents Kind = "events"
	// KindTerminal marks the end of a match's stream.
	KindTerminal Kind = "terminal"
)

// Message is the envelope pushed to subscribers.
type Message struct {
	Kind   Kind              `json:"kind"`
	Tick   *match.TickUpdate `json:"tick,omitempty"`
	Events []match.Event     `json:"events,omitempty"`
	Status match.Status      `json:"status,omitempty"`
}

// matchStream is the per-match subscription set plus the replay buffer.
type matchStream struct {
	subs   map[string]*Subscriber
	buffer []Message
	done   bool
	status match.Status
}

// Hub maintains subscriptions keyed by match id. It implements the
// scheduler's Publisher interface.
type Hub struct {
	mu        sync.RWMutex
	streams   map[string]*matchStream
	bufSize   int
	retention time.Duration
	subCount  int
}

// NewHub creates a Hub with configuration options.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		streams:   make(map[string]*matchStream),
		bufSize:   defaultSubscriberBuffer,
		retention: defaultStreamRetention,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe attaches a consumer to a match stream. If the match is already
// producing, every buffered update is replayed first so late subscribers
// miss nothing; live updates follow in order. Subscribing to a finished
// match yields the buffered history plus the terminal marker immediately.
func (h *Hub) Subscribe(matchID string) (*Subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stream := h.streams[matchID]
	if stream == nil {
		stream = &matchStream{subs: make(map[string]*Subscriber)}
		h.streams[matchID] = stream
	}

	sub := newSubscriber(uuid.NewString(), matchID, h.bufSize)
	for _, msg := range stream.buffer {
		sub.push(msg, true)
	}

	if stream.done {
		sub.push(Message{Kind: KindTerminal, Status: stream.status}, true)
		sub.stop()
		return sub, nil
	}

	stream.subs[sub.id] = sub
	h.subCount++
	metrics.UpdateSubscriberCount(h.subCount)
	return sub, nil
}

// Unsubscribe detaches a consumer. Unknown ids are a no-op error for the
// transport layer to log.
func (h *Hub) Unsubscribe(matchID, subID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	stream := h.streams[matchID]
	if stream == nil {
		return fmt.Errorf("unsubscribe %s: %w", matchID, ErrUnknownMatch)
	}
	sub, ok := stream.subs[subID]
	if !ok {
		return fmt.Errorf("unsubscribe %s: %w", subID, ErrUnknownSubscriber)
	}
	delete(stream.subs, subID)
	h.subCount--
	metrics.UpdateSubscriberCount(h.subCount)
	sub.stop()
	return nil
}

// Publish fans one tick update out to all current subscribers for the
// match id and appends it to the replay buffer.
func (h *Hub) Publish(matchID string, update match.TickUpdate) {
	u := update
	h.broadcast(matchID, Message{Kind: KindTick, Tick: &u})
}

// PublishEvents fans out the events resolved during one tick.
func (h *Hub) PublishEvents(matchID string, events []match.Event) {
	h.broadcast(matchID, Message{Kind: KindEvents, Events: events})
}

func (h *Hub) broadcast(matchID string, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stream := h.streams[matchID]
	if stream == nil {
		stream = &matchStream{subs: make(map[string]*Subscriber)}
		h.streams[matchID] = stream
	}
	if stream.done {
		return
	}
	stream.buffer = append(stream.buffer, msg)
	for _, sub := range stream.subs {
		sub.push(msg, false)
	}
}

// Complete sends the terminal marker to every subscriber and releases the
// match id's subscription set. The replay buffer survives for the
// retention window so that a subscriber racing completion still gets the
// full history, then the stream is dropped.
func (h *Hub) Complete(matchID string, status match.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stream := h.streams[matchID]
	if stream == nil {
		stream = &matchStream{subs: make(map[string]*Subscriber)}
		h.streams[matchID] = stream
	}
	stream.done = true
	stream.status = status

	terminal := Message{Kind: KindTerminal, Status: status}
	for id, sub := range stream.subs {
		sub.push(terminal, true)
		sub.stop()
		delete(stream.subs, id)
		h.subCount--
	}
	metrics.UpdateSubscriberCount(h.subCount)

	time.AfterFunc(h.retention, func() { h.release(matchID, stream) })
}

// release drops a finished stream once its retention window has elapsed,
// unless the match id has since been reused by a new stream.
func (h *Hub) release(matchID string, stream *matchStream) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streams[matchID] != stream {
		return
	}
	delete(h.streams, matchID)
}

// Forget drops a match's replay buffer immediately, ahead of the
// retention window Complete schedules.
func (h *Hub) Forget(matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stream := h.streams[matchID]
	if stream == nil {
		return
	}
	for id, sub := range stream.subs {
		sub.stop()
		delete(stream.subs, id)
		h.subCount--
	}
	delete(h.streams, matchID)
	metrics.UpdateSubscriberCount(h.subCount)
}

// SubscriberCount reports currently attached subscribers across matches.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subCount
}

// StreamCount reports match streams currently held, finished ones within
// their retention window included.
func (h *Hub) StreamCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams)
}
