package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInstrumentNotFound = errors.New("instrument_not_found")
	ErrUnknownCriterion   = errors.New("unknown_criterion")
)

// ValidationError represents a payload validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
