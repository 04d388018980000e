package intake

import "errors"

// Sentinel kinds for intake errors.
var (
	ErrMalformedPayload = errors.New("malformed job payload")
)
