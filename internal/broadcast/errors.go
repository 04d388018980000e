package broadcast

import "errors"

// Sentinel kinds for broadcast errors.
var (
	ErrUnknownMatch      = errors.New("unknown match")
	ErrUnknownSubscriber = errors.New("unknown subscriber")
)
