// Package intake consumes simulation requests from the work queue and
// submits them to the admission controller.
//
// A message is acknowledged once its job is admitted, not when the
// simulation completes: holding queue resources for the full match
// duration would starve the broker, and at-least-once semantics survive
// a crash before admission. Malformed payloads are negatively
// acknowledged and eventually dead-lettered, never retried forever.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pitchline/pitchline/internal/adapters/mq/queue"
	"github.com/pitchline/pitchline/internal/domain/match"
	"github.com/pitchline/pitchline/internal/sim/admission"
	"github.com/pitchline/pitchline/pkg/logger"
)

// Admitter is how intake hands jobs to the admission controller.
type Admitter interface {
	Submit(ctx context.Context, job *match.Job) (<-chan *match.Result, error)
}

// ResultSink stores finished results for later retrieval by job id.
type ResultSink interface {
	Put(ctx context.Context, result *match.Result) error
}

// jobPayload mirrors the queue message schema for a simulation request.
type jobPayload struct {
	JobID      string            `json:"job_id"`
	HomeRoster match.Roster      `json:"home_roster"`
	AwayRoster match.Roster      `json:"away_roster"`
	HomeTactic match.Tactic      `json:"home_tactic"`
	AwayTactic match.Tactic      `json:"away_tactic"`
	Env        match.Environment `json:"environment"`
	Opts       match.Options     `json:"options"`
}

// Consumer runs the asynchronous intake loop.
type Consumer struct {
	queue    queue.Queue
	admitter Admitter
	sink     ResultSink

	shutdown chan struct{}
	done     chan struct{}

	log logger.Logger
}

// NewConsumer creates an intake consumer with configuration options.
func NewConsumer(q queue.Queue, admitter Admitter, sink ResultSink, opts ...Option) *Consumer {
	c := &Consumer{
		queue:    q,
		admitter: admitter,
		sink:     sink,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		log:      logger.Get().Named("intake"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes messages until ctx is cancelled or Shutdown is called.
// A failure on one message never blocks subsequent messages.
func (c *Consumer) Run(ctx context.Context) {
	defer close(c.done)

	messages := c.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := c.process(ctx, msg); err != nil {
				c.log.Error(ctx, "intake message failed",
					logger.String("message_id", msg.ID),
					logger.Int("deliveries", msg.Deliveries),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the consumer loop.
func (c *Consumer) Shutdown(ctx context.Context) error {
	close(c.shutdown)
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("intake shutdown timed out: %w", ctx.Err())
	}
}

// process normalizes one message into a job and submits it.
func (c *Consumer) process(ctx context.Context, msg queue.Message) error {
	job, err := c.decode(msg.Payload)
	if err != nil {
		// Poison message: bounded redelivery, then dead-letter.
		c.queue.Nack(ctx, msg.ID)
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	resultCh, err := c.admitter.Submit(ctx, job)
	if err != nil {
		if errors.Is(err, admission.ErrBacklogFull) {
			// At capacity: let the broker redeliver once load drops.
			c.queue.Nack(ctx, msg.ID)
			return err
		}
		c.queue.Nack(ctx, msg.ID)
		return err
	}

	// Admitted: acknowledge now, persist the result when it lands.
	c.queue.Ack(ctx, msg.ID)
	go c.await(job.ID, resultCh)
	return nil
}

// await moves a finished result into the sink.
func (c *Consumer) await(jobID string, resultCh <-chan *match.Result) {
	result := <-resultCh
	ctx := context.Background()
	if err := c.sink.Put(ctx, result); err != nil {
		c.log.Error(ctx, "storing result failed",
			logger.String("job_id", jobID),
			logger.Error(err),
		)
	}
}

// decode unmarshals and validates a payload into an immutable job.
func (c *Consumer) decode(payload []byte) (*match.Job, error) {
	var req jobPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	job := &match.Job{
		ID:         req.JobID,
		HomeRoster: req.HomeRoster,
		AwayRoster: req.AwayRoster,
		HomeTactic: req.HomeTactic,
		AwayTactic: req.AwayTactic,
		Env:        req.Env,
		Opts:       req.Opts,
	}
	if job.Opts.Mode == "" {
		job.Opts.Mode = match.ModeBatch
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}
