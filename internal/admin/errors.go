package admin

import (
	"errors"
	"fmt"
)

// TransientError is returned after the retry budget is exhausted on
// connect/timeout failures.
type TransientError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("admin API %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// RemoteError is a non-2xx response from the proxy. Remote rejections are
// never retried.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("admin API %s rejected (status %d): %s", e.Op, e.StatusCode, e.Body)
}

// IsTransient reports whether err represents an exhausted-retries transport
// failure.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// AsRemoteError extracts a RemoteError from err if present.
func AsRemoteError(err error, target **RemoteError) bool {
	return errors.As(err, target)
}
