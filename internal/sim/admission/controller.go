// Package admission bounds how many simulations run simultaneously.
//
// The slot count and pending queue are the only state shared across jobs;
// both are mutated under one mutex so a slot can never be double-admitted
// or leaked.
package admission

import (
	"context"
	"fmt"
	"sync"

	"github.com/pitchline/pitchline/internal/domain/match"
	"github.com/pitchline/pitchline/internal/sim/scheduler"
	"github.com/pitchline/pitchline/pkg/logger"
	"github.com/pitchline/pitchline/pkg/metrics"
)

// Default admission configuration constants.
const (
	defaultMaxConcurrent = 4
	defaultBacklogLimit  = 64
)

type pendingJob struct {
	job      *match.Job
	resultCh chan *match.Result
}

type runningJob struct {
	cancel context.CancelFunc
}

// Controller admits jobs into bounded running slots with a FIFO backlog.
type Controller struct {
	mu      sync.Mutex
	running map[string]*runningJob
	pending []*pendingJob
	closed  bool

	maxConcurrent int
	backlogLimit  int
	schedOpts     []scheduler.Option

	rootCtx  context.Context
	rootStop context.CancelFunc
	wg       sync.WaitGroup

	log logger.Logger
}

// New creates a Controller with default configuration.
func New(opts ...Option) *Controller {
	ctx, stop := context.WithCancel(context.Background())
	c := &Controller{
		running:       make(map[string]*runningJob),
		maxConcurrent: defaultMaxConcurrent,
		backlogLimit:  defaultBacklogLimit,
		rootCtx:       ctx,
		rootStop:      stop,
		log:           logger.Get().Named("admission"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit admits a job immediately when a slot is free, queues it FIFO
// when the backlog has room, and rejects it otherwise. The returned
// channel receives exactly one result when the job finishes.
func (c *Controller) Submit(_ context.Context, job *match.Job) (<-chan *match.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("submit %s: %w", job.ID, ErrClosed)
	}
	if _, dup := c.running[job.ID]; dup {
		return nil, fmt.Errorf("submit %s: %w", job.ID, ErrDuplicateJob)
	}
	for _, p := range c.pending {
		if p.job.ID == job.ID {
			return nil, fmt.Errorf("submit %s: %w", job.ID, ErrDuplicateJob)
		}
	}

	resultCh := make(chan *match.Result, 1)

	if len(c.running) < c.maxConcurrent {
		c.startLocked(job, resultCh)
		return resultCh, nil
	}

	if len(c.pending) >= c.backlogLimit {
		metrics.RecordJobRejected()
		return nil, fmt.Errorf("submit %s: %w", job.ID, ErrBacklogFull)
	}

	c.pending = append(c.pending, &pendingJob{job: job, resultCh: resultCh})
	metrics.UpdateJobsQueued(len(c.pending))
	return resultCh, nil
}

// startLocked occupies a slot and launches the job. Caller holds c.mu.
func (c *Controller) startLocked(job *match.Job, resultCh chan *match.Result) {
	jobCtx, cancel := context.WithCancel(c.rootCtx)
	c.running[job.ID] = &runningJob{cancel: cancel}
	metrics.UpdateJobsRunning(len(c.running))

	c.wg.Add(1)
	go c.run(jobCtx, job, resultCh)
}

// run executes one job in isolation. A panic inside the scheduler or
// engine becomes a failed result for this job only; the slot is always
// released and the next queued job admitted.
func (c *Controller) run(ctx context.Context, job *match.Job, resultCh chan *match.Result) {
	defer c.wg.Done()
	defer c.release(job.ID)

	result := c.runGuarded(ctx, job)
	resultCh <- result
}

func (c *Controller) runGuarded(ctx context.Context, job *match.Job) (result *match.Result) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error(ctx, "simulation panicked",
				logger.String("job_id", job.ID),
				logger.Any("panic", r),
			)
			metrics.RecordJobCompleted(string(match.StatusFailed))
			result = &match.Result{
				JobID:  job.ID,
				Status: match.StatusFailed,
				Err:    fmt.Sprintf("%v: %v", match.ErrSimulationFault, r),
			}
		}
	}()

	sched, err := scheduler.New(job, c.schedOpts...)
	if err != nil {
		metrics.RecordJobCompleted(string(match.StatusFailed))
		return &match.Result{JobID: job.ID, Status: match.StatusFailed, Err: err.Error()}
	}
	return sched.Run(ctx)
}

// release frees a slot and admits the oldest queued job, if any.
func (c *Controller) release(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rj, ok := c.running[jobID]; ok {
		rj.cancel()
		delete(c.running, jobID)
	}

	if !c.closed && len(c.pending) > 0 && len(c.running) < c.maxConcurrent {
		next := c.pending[0]
		c.pending = c.pending[1:]
		c.startLocked(next.job, next.resultCh)
	}

	metrics.UpdateJobsRunning(len(c.running))
	metrics.UpdateJobsQueued(len(c.pending))
}

// Cancel requests cooperative cancellation of a running job, or drops it
// from the backlog. Returns false when the id is unknown.
func (c *Controller) Cancel(jobID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rj, ok := c.running[jobID]; ok {
		rj.cancel()
		return true
	}
	for i, p := range c.pending {
		if p.job.ID == jobID {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			metrics.UpdateJobsQueued(len(c.pending))
			p.resultCh <- &match.Result{JobID: jobID, Status: match.StatusCancelled}
			return true
		}
	}
	return false
}

// Counts reports running and queued jobs for the health probe.
func (c *Controller) Counts() (running, queued int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.running), len(c.pending)
}

// Close cancels all running jobs, flushes the backlog as cancelled, and
// waits for slots to drain.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, p := range c.pending {
		p.resultCh <- &match.Result{JobID: p.job.ID, Status: match.StatusCancelled}
	}
	c.pending = nil
	c.mu.Unlock()

	c.rootStop()
	c.wg.Wait()
}
