// Package scheduler drives one match state machine through all of its
// ticks, in batch or wall-clock-paced mode.
package scheduler

import (
	"context"
	"time"

	"github.com/pitchline/pitchline/internal/domain/match"
	"github.com/pitchline/pitchline/pkg/logger"
	"github.com/pitchline/pitchline/pkg/metrics"
)

// Publisher receives tick updates and the terminal marker for a match.
// The broadcast hub implements this; a no-op publisher is valid.
type Publisher interface {
	Publish(matchID string, update match.TickUpdate)
	PublishEvents(matchID string, events []match.Event)
	Complete(matchID string, status match.Status)
}

// nopPublisher drops everything. Used when no hub is wired, e.g. in tests.
type nopPublisher struct{}

func (nopPublisher) Publish(string, match.TickUpdate)   {}
func (nopPublisher) PublishEvents(string, []match.Event) {}
func (nopPublisher) Complete(string, match.Status)       {}

// Scheduler wraps one engine and drives it to completion.
type Scheduler struct {
	job    *match.Job
	engine *match.Engine
	pub    Publisher
	log    logger.Logger

	engineOpts []match.EngineOption
}

// New builds a scheduler and its engine for the given job.
func New(job *match.Job, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		job: job,
		pub: nopPublisher{},
		log: logger.Get().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine, err := match.NewEngine(job, s.engineOpts...)
	if err != nil {
		return nil, err
	}
	s.engine = engine
	return s, nil
}

// Run advances the match to FullTime or cancellation and returns the full
// result. Cancellation is cooperative: the context is checked once per
// tick boundary, never mid-tick, so the state machine is never observed
// partially updated.
func (s *Scheduler) Run(ctx context.Context) *match.Result {
	start := time.Now()
	timeline := make([]match.TickUpdate, 0, 5600)

	var pacing *time.Ticker
	if s.job.Opts.Mode == match.ModeRealtime {
		interval := time.Second / time.Duration(s.job.Opts.TickRate)
		pacing = time.NewTicker(interval)
		defer pacing.Stop()
	}

	status := match.StatusCompleted
	var simErr error

loop:
	for !s.engine.Done() {
		select {
		case <-ctx.Done():
			status = match.StatusCancelled
			break loop
		default:
		}

		if pacing != nil {
			select {
			case <-ctx.Done():
				status = match.StatusCancelled
				break loop
			case <-pacing.C:
			}
		}

		tickStart := time.Now()
		update, events, err := s.engine.Tick()
		if err != nil {
			status = match.StatusFailed
			simErr = err
			break loop
		}
		metrics.RecordTickSimulated()
		metrics.RecordTickDuration(float64(time.Since(tickStart).Microseconds()) / 1000)

		timeline = append(timeline, update)
		s.pub.Publish(s.job.ID, update)
		if len(events) > 0 {
			s.pub.PublishEvents(s.job.ID, events)
			for _, ev := range events {
				metrics.RecordMatchEvent(string(ev.Type))
			}
		}
	}

	wall := time.Since(start)
	result := &match.Result{
		JobID:        s.job.ID,
		Status:       status,
		Score:        s.engine.Score(),
		Timeline:     timeline,
		Events:       s.engine.Events(),
		Stats:        s.engine.Stats(),
		WallDuration: wall,
	}
	if secs := wall.Seconds(); secs > 0 {
		result.TicksPerSecond = float64(len(timeline)) / secs
	}
	if simErr != nil {
		result.Err = simErr.Error()
	}

	metrics.RecordMatchDuration(wall.Seconds())
	metrics.UpdateThroughput(result.TicksPerSecond)
	metrics.RecordJobCompleted(string(status))

	s.pub.Complete(s.job.ID, status)

	s.log.Debug(ctx, "match finished",
		logger.String("job_id", s.job.ID),
		logger.String("status", string(status)),
		logger.Int("ticks", len(timeline)),
		logger.Duration("wall", wall),
	)
	return result
}
