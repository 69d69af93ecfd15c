package fetch

import (
	"errors"
	"fmt"
)

// Error is the typed failure surfaced by the executor after local retries are
// exhausted or a non-retryable failure occurs. Status is zero when the
// failure happened before an HTTP response arrived (timeout, connection
// reset).
type Error struct {
	URL       string
	Status    int
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a fetch error caused by a transient
// condition (timeout, connection failure, 5xx). Callers use this to decide
// between cache fallback and propagation.
func IsTransient(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Transient
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}
