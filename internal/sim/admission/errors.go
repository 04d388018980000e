package admission

import "errors"

// Sentinel kinds for admission errors.
var (
	// ErrBacklogFull signals load shedding: the caller should retry later.
	ErrBacklogFull = errors.New("backlog full")
	// ErrDuplicateJob rejects a job id that is already running.
	ErrDuplicateJob = errors.New("duplicate job id")
	// ErrClosed rejects submissions after shutdown began.
	ErrClosed = errors.New("admission controller closed")
)
