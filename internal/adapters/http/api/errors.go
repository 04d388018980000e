package api

import "errors"

var (
	// ErrBadRequest indicates a request body that could not be decoded
	// or failed validation.
	ErrBadRequest = errors.New("bad request")
	// ErrBackpressure indicates intake refused the request because the
	// backlog is full.
	ErrBackpressure = errors.New("backlog full, retry later")
	// ErrUnknownJob indicates no running, queued, or stored job matches
	// the requested id.
	ErrUnknownJob = errors.New("unknown job")
	// ErrThrottled indicates the caller exceeded the per-origin request
	// budget for the current window.
	ErrThrottled = errors.New("too many requests")
)
