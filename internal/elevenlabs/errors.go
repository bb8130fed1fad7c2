package elevenlabs

import (
	"errors"
	"fmt"
)

// ErrProtocolViolation indicates the server broke the response contract, for
// example by omitting the correlation header. Never retried by the pipeline.
var ErrProtocolViolation = errors.New("protocol violation")

// ErrCancelled indicates the caller's context was cancelled while the request
// was in flight.
var ErrCancelled = errors.New("request cancelled")

// ValidationError reports a request rejected before any network or disk I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid synthesis request: %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is a request validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
