package domain

import "errors"

// Error kinds surfaced to the transport layer. Handlers map these to HTTP
// status codes; everything else is treated as an internal error.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionConflict   = errors.New("session already exists")
	ErrInvalidTurn       = errors.New("invalid turn")
	ErrNoValidComments   = errors.New("no valid comments found to analyze")
	ErrUpstream          = errors.New("upstream LLM call failed")
)
