package broadcast

import (
	"sync"
	"time"

	"github.com/pitchline/pitchline/pkg/metrics"
)

// drainGrace bounds how long a stopped subscriber waits for its reader to
// take each remaining message before the stream is abandoned.
const drainGrace = 5 * time.Second

// Subscriber is one attached consumer of a match's update stream. Delivery
// is decoupled from tick production: pushes land in a bounded queue and a
// pump goroutine feeds the outbound channel. When the queue is full the
// oldest update is dropped and the subscriber is marked lagging.
type Subscriber struct {
	id      string
	matchID string

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Message
	cap     int
	lagging bool
	closed  bool
	done    chan struct{}

	out chan Message
}

func newSubscriber(id, matchID string, capacity int) *Subscriber {
	s := &Subscriber{
		id:      id,
		matchID: matchID,
		cap:     capacity,
		done:    make(chan struct{}),
		out:     make(chan Message),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	return s
}

// ID returns the subscriber's unique id.
func (s *Subscriber) ID() string { return s.id }

// MatchID returns the match this subscription is keyed by.
func (s *Subscriber) MatchID() string { return s.matchID }

// Updates is the subscriber-facing stream. It is closed after the
// terminal marker is delivered or the subscription is removed.
func (s *Subscriber) Updates() <-chan Message { return s.out }

// Lagging reports whether this subscriber has dropped updates.
func (s *Subscriber) Lagging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lagging
}

// push enqueues a message without ever blocking the publisher. The
// unbounded flag lets replay preloads exceed the live bound so a late
// subscriber sees the full history with no gaps.
func (s *Subscriber) push(msg Message, unbounded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if !unbounded && len(s.queue) >= s.cap {
		s.queue = s.queue[1:]
		s.lagging = true
		metrics.RecordUpdateDropped()
	}
	s.queue = append(s.queue, msg)
	metrics.RecordUpdateSent()
	s.cond.Signal()
}

// stop terminates delivery. Queued messages are still drained to the
// outbound channel unless the reader is gone.
func (s *Subscriber) stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.cond.Signal()
	s.mu.Unlock()
}

// pump moves messages from the queue to the outbound channel. A slow
// reader stalls only this goroutine; publishers keep appending (and
// dropping) through push.
func (s *Subscriber) pump() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			close(s.out)
			return
		}
		msg := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- msg:
		case <-s.done:
			// No more pushes are coming, but queued history still
			// belongs to the reader. Keep delivering while the reader
			// keeps taking; give up only on an absent one.
			timer := time.NewTimer(drainGrace)
			select {
			case s.out <- msg:
				timer.Stop()
			case <-timer.C:
				close(s.out)
				return
			}
		}
	}
}
