package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pitchline/pitchline/internal/adapters/repository"
	"github.com/pitchline/pitchline/internal/domain/match"
)

// JobsDependencies defines the interface for job retrieval handlers.
type JobsDependencies interface {
	Result(ctx context.Context, jobID string) (*match.Result, error)
	Cancel(jobID string) bool
}

// JobsHandler handles result polling and cancellation.
type JobsHandler struct {
	deps JobsDependencies
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(deps JobsDependencies) *JobsHandler {
	return &JobsHandler{deps: deps}
}

// HandleGetJob handles GET /jobs/{id}: returns the stored result for a
// finished job, 404 while unknown or still running.
func (h *JobsHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	result, err := h.deps.Result(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleCancelJob handles DELETE /jobs/{id}: requests cooperative
// cancellation of a running or queued job.
func (h *JobsHandler) HandleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	if !h.deps.Cancel(jobID) {
		writeError(w, http.StatusNotFound, "not_found", ErrUnknownJob)
		return
	}
	writeJSON(w, http.StatusAccepted, jobHandleResponse{JobID: jobID, Status: "cancelling"})
}
