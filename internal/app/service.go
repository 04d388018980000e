// Package app provides the core service that wires the simulation
// runtime together and implements the dependencies required by the HTTP
// API and the queue intake.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pitchline/pitchline/internal/adapters/mq/intake"
	"github.com/pitchline/pitchline/internal/adapters/mq/queue"
	"github.com/pitchline/pitchline/internal/adapters/repository"
	"github.com/pitchline/pitchline/internal/broadcast"
	"github.com/pitchline/pitchline/internal/domain/match"
	"github.com/pitchline/pitchline/internal/sim/admission"
	"github.com/pitchline/pitchline/internal/sim/scheduler"
	"github.com/pitchline/pitchline/pkg/logger"
	"github.com/pitchline/pitchline/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultMaxConcurrent    = 4
	defaultBacklogLimit     = 64
	defaultQueueCapacity    = 1024
	defaultMaxRedeliveries  = 3
	defaultSubscriberBuffer = 64
	defaultStreamRetention  = 2 * time.Minute
	defaultTickRate         = 60

	intakeShutdownTimeout = 5 * time.Second
)

// Service implements the simulation runtime behind the external surfaces.
type Service struct {
	mu sync.RWMutex

	// Core components
	hub        *broadcast.Hub
	controller *admission.Controller
	jobQueue   queue.Queue
	consumer   *intake.Consumer
	results    repository.Store

	// Configuration
	maxConcurrent    int
	backlogLimit     int
	queueCapacity    int
	maxRedeliveries  int
	subscriberBuffer int
	streamRetention  time.Duration
	tickRate         int
	featureDefaults  match.Options
	engineOpts       []match.EngineOption

	// State
	started    bool
	consumerWG sync.WaitGroup

	log logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		maxConcurrent:    defaultMaxConcurrent,
		backlogLimit:     defaultBacklogLimit,
		queueCapacity:    defaultQueueCapacity,
		maxRedeliveries:  defaultMaxRedeliveries,
		subscriberBuffer: defaultSubscriberBuffer,
		streamRetention:  defaultStreamRetention,
		tickRate:         defaultTickRate,
		featureDefaults: match.Options{
			EnableStatistics: true,
			EnableFatigue:    true,
			EnableMomentum:   true,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.log == nil {
		s.log = logger.Get().Named("app")
	}

	s.hub = broadcast.NewHub(
		broadcast.WithSubscriberBuffer(s.subscriberBuffer),
		broadcast.WithStreamRetention(s.streamRetention),
	)
	s.results = repository.NewMemoryStore()
	s.controller = admission.New(
		admission.WithMaxConcurrent(s.maxConcurrent),
		admission.WithBacklogLimit(s.backlogLimit),
		admission.WithSchedulerOptions(
			scheduler.WithPublisher(s.hub),
			scheduler.WithEngineOptions(s.engineOpts...),
		),
	)
	s.jobQueue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueCapacity),
		queue.WithMaxRedeliveries(s.maxRedeliveries),
	)
	s.consumer = intake.NewConsumer(s.jobQueue, s.controller, s.results)

	s.consumerWG.Add(1)
	go func() {
		defer s.consumerWG.Done()
		s.consumer.Run(ctx)
	}()

	s.started = true
	s.log.Info(ctx, "simulation service started",
		logger.Int("max_concurrent", s.maxConcurrent),
		logger.Int("backlog_limit", s.backlogLimit),
		logger.Int("queue_capacity", s.queueCapacity),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), intakeShutdownTimeout)
	defer cancel()

	if err := s.consumer.Shutdown(ctx); err != nil {
		s.log.Warn(ctx, "intake shutdown", logger.Error(err))
	}
	_ = s.jobQueue.Close()
	s.consumerWG.Wait()
	s.controller.Close()

	s.started = false
	s.log.Info(context.Background(), "simulation service stopped")
}

// NewJob normalizes raw submission fields into an immutable job. A missing
// id is generated; zero options fall back to configured defaults.
func (s *Service) NewJob(id string, home, away match.Roster, homeTactic, awayTactic match.Tactic, env match.Environment, opts match.Options) *match.Job {
	if id == "" {
		id = uuid.NewString()
	}
	if opts == (match.Options{}) {
		opts = s.featureDefaults
	}
	if opts.Mode == "" {
		opts.Mode = match.ModeBatch
	}
	if opts.Mode == match.ModeRealtime && opts.TickRate == 0 {
		opts.TickRate = s.tickRate
	}
	return &match.Job{
		ID:         id,
		HomeRoster: home,
		AwayRoster: away,
		HomeTactic: homeTactic,
		AwayTactic: awayTactic,
		Env:        env,
		Opts:       opts,
	}
}

// SubmitSync admits a job and blocks until its result is available or ctx
// is done. The result is also persisted for later retrieval.
func (s *Service) SubmitSync(ctx context.Context, job *match.Job) (*match.Result, error) {
	resultCh, err := s.submit(ctx, job)
	if err != nil {
		return nil, err
	}

	select {
	case result := <-resultCh:
		if err := s.results.Put(ctx, result); err != nil {
			s.log.Error(ctx, "storing result failed", logger.String("job_id", job.ID), logger.Error(err))
		}
		return result, nil
	case <-ctx.Done():
		// Caller gave up; let the simulation finish and persist so the
		// result stays reachable by job id.
		go func() {
			result := <-resultCh
			_ = s.results.Put(context.Background(), result)
		}()
		return nil, fmt.Errorf("submit %s: %w", job.ID, ctx.Err())
	}
}

// SubmitDetached admits a job and returns immediately with its id. The
// result lands in the store; progress streams through the hub.
func (s *Service) SubmitDetached(ctx context.Context, job *match.Job) (string, error) {
	resultCh, err := s.submit(ctx, job)
	if err != nil {
		return "", err
	}
	go func() {
		result := <-resultCh
		_ = s.results.Put(context.Background(), result)
	}()
	return job.ID, nil
}

func (s *Service) submit(ctx context.Context, job *match.Job) (<-chan *match.Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	metrics.RecordJobSubmitted()
	return s.controller.Submit(ctx, job)
}

// EnqueueAsync pushes a raw job payload onto the intake queue. Returns
// false on backpressure.
func (s *Service) EnqueueAsync(ctx context.Context, payload []byte) bool {
	return s.jobQueue.Enqueue(ctx, payload)
}

// Result returns the stored result for a finished job.
func (s *Service) Result(ctx context.Context, jobID string) (*match.Result, error) {
	return s.results.Get(ctx, jobID)
}

// Cancel requests cooperative cancellation of a job by id.
func (s *Service) Cancel(jobID string) bool {
	return s.controller.Cancel(jobID)
}

// Subscribe attaches a live consumer to a match id's update stream.
func (s *Service) Subscribe(matchID string) (*broadcast.Subscriber, error) {
	return s.hub.Subscribe(matchID)
}

// Unsubscribe detaches a live consumer.
func (s *Service) Unsubscribe(matchID, subID string) error {
	return s.hub.Unsubscribe(matchID, subID)
}

// Counts reports admitted and queued jobs for the health probe.
func (s *Service) Counts() (running, queued int) {
	return s.controller.Counts()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"max_concurrent": s.maxConcurrent,
		"backlog_limit":  s.backlogLimit,
	}

	if s.started {
		running, queued := s.controller.Counts()
		stats["running"] = running
		stats["queued"] = queued
		stats["queue_depth"] = s.jobQueue.Len(context.Background())
		stats["stored_results"] = s.results.Count(context.Background())
		stats["subscribers"] = s.hub.SubscriberCount()
		stats["live_streams"] = s.hub.StreamCount()

		metrics.UpdateJobsRunning(running)
		metrics.UpdateJobsQueued(queued)
	}

	return stats
}
