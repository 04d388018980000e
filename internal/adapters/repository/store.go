// Package repository defines the result store interface and errors.
//
// Finished simulations are kept for retrieval by job id until evicted;
// this is the poll path for asynchronously submitted jobs.
package repository

import (
	"context"

	"github.com/pitchline/pitchline/internal/domain/match"
)

// Store provides read/write access to finished simulation results.
type Store interface {
	// Put stores a result, overwriting any previous result for the id.
	Put(ctx context.Context, result *match.Result) error

	// Get returns the result for a job id.
	// Returns ErrNotFound if the job is unknown or still running.
	Get(ctx context.Context, jobID string) (*match.Result, error)

	// Delete removes a stored result. Unknown ids are a no-op.
	Delete(ctx context.Context, jobID string)

	// Count returns the number of stored results.
	Count(ctx context.Context) int
}
