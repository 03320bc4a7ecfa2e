package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable covers transport-level failures: the server cannot
	// be reached or did not produce a usable response. Sync treats it as
	// retry-later, never as data.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized means the stored token is missing or expired.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when the remote service no longer knows
	// the record. Reconciliation treats it as a benign no-op.
	ErrNotFound = errors.New("not found")
)

// ValidationError is a rejection the server expressed through the API's
// error codes rather than transport failure.
type ValidationError struct {
	Code string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("remote validation error: %s", e.Code)
}

// IsRetryable reports whether a failed remote call is worth retrying:
// transport failures are, validation rejections are not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
