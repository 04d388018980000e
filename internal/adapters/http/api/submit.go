package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/pitchline/pitchline/internal/domain/match"
	"github.com/pitchline/pitchline/internal/sim/admission"
)

// submitRequest mirrors the submission schema shared with queue intake.
type submitRequest struct {
	JobID      string            `json:"job_id"`
	HomeRoster match.Roster      `json:"home_roster"`
	AwayRoster match.Roster      `json:"away_roster"`
	HomeTactic match.Tactic      `json:"home_tactic"`
	AwayTactic match.Tactic      `json:"away_tactic"`
	Env        match.Environment `json:"environment"`
	Opts       match.Options     `json:"options"`
}

type jobHandleResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// SubmitDependencies defines the interface for submission handlers.
type SubmitDependencies interface {
	NewJob(id string, home, away match.Roster, homeTactic, awayTactic match.Tactic, env match.Environment, opts match.Options) *match.Job
	SubmitSync(ctx context.Context, job *match.Job) (*match.Result, error)
	SubmitDetached(ctx context.Context, job *match.Job) (string, error)
	EnqueueAsync(ctx context.Context, payload []byte) bool
}

// SubmitHandler handles the three submission entry points.
type SubmitHandler struct {
	deps SubmitDependencies
}

// NewSubmitHandler creates a submission handler.
func NewSubmitHandler(deps SubmitDependencies) *SubmitHandler {
	return &SubmitHandler{deps: deps}
}

// HandleSimulate handles POST /simulate: the caller blocks until the full
// result is available.
func (h *SubmitHandler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	job, ok := h.decodeJob(w, r)
	if !ok {
		return
	}
	job.Opts.Mode = match.ModeBatch

	result, err := h.deps.SubmitSync(r.Context(), job)
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleSimulateRealtime handles POST /simulate-realtime: the job runs
// paced and the caller gets a handle to stream or poll.
func (h *SubmitHandler) HandleSimulateRealtime(w http.ResponseWriter, r *http.Request) {
	job, ok := h.decodeJob(w, r)
	if !ok {
		return
	}
	job.Opts.Mode = match.ModeRealtime
	if job.Opts.TickRate == 0 {
		// NewJob only defaults the rate when the mode was already realtime.
		*job = *h.deps.NewJob(job.ID, job.HomeRoster, job.AwayRoster, job.HomeTactic, job.AwayTactic, job.Env, job.Opts)
	}

	jobID, err := h.deps.SubmitDetached(r.Context(), job)
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, jobHandleResponse{JobID: jobID, Status: "running"})
}

// HandleSimulateAsync handles POST /simulate-async: the raw payload goes
// onto the intake queue and is validated by the consumer.
func (h *SubmitHandler) HandleSimulateAsync(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil || len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if ok := h.deps.EnqueueAsync(r.Context(), payload); !ok {
		writeError(w, http.StatusServiceUnavailable, "backlog_full", ErrBackpressure)
		return
	}
	writeJSON(w, http.StatusAccepted, jobHandleResponse{Status: "queued"})
}

// decodeJob parses and validates the request body into a job.
func (h *SubmitHandler) decodeJob(w http.ResponseWriter, r *http.Request) (*match.Job, bool) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return nil, false
	}
	if req.Opts.Mode == "" {
		req.Opts.Mode = match.ModeBatch
	}
	job := h.deps.NewJob(req.JobID, req.HomeRoster, req.AwayRoster, req.HomeTactic, req.AwayTactic, req.Env, req.Opts)
	if err := job.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return nil, false
	}
	return job, true
}

// writeSubmitError maps submission failures onto the error taxonomy:
// malformed input, backlog rejection, or internal failure.
func writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, match.ErrInvalidJob):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, admission.ErrBacklogFull):
		writeError(w, http.StatusServiceUnavailable, "backlog_full", err)
	case errors.Is(err, admission.ErrDuplicateJob):
		writeError(w, http.StatusConflict, "duplicate_job", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
