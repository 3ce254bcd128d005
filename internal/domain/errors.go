package domain

import "errors"

// Domain errors
var (
	ErrPlayerNotFound   = errors.New("player not found")
	ErrStatsUnavailable = errors.New("monitoring data unavailable")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnauthorized     = errors.New("permission denied")
	ErrInternalError    = errors.New("internal server error")
)
