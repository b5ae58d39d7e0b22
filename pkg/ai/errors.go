package ai

import "errors"

var (
	// ErrNoResponse means the provider returned nothing usable at all.
	ErrNoResponse = errors.New("ai provider returned no response")
	// ErrInvalidResponse means the provider answered but the payload failed
	// schema validation. Callers can tell the two apart; neither is retried.
	ErrInvalidResponse = errors.New("ai provider returned invalid response")
)
