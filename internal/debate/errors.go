package debate

import (
	"errors"
	"fmt"
)

// Sentinel errors for caller mistakes. They are never retried.
var (
	// ErrValidation marks malformed or missing request fields.
	ErrValidation = errors.New("invalid request")
	// ErrNotFound is returned when resuming an unknown session.
	ErrNotFound = errors.New("session not found")
	// ErrSessionNotBound is returned when posting to a session the caller
	// has not started or resumed.
	ErrSessionNotBound = errors.New("session not bound to caller")
	// ErrBusy is returned when a caller issues a request while one of its
	// replies is still streaming.
	ErrBusy = errors.New("a reply is still streaming for this caller")
	// ErrSequenceConsumed is yielded when a completion sequence is ranged
	// over a second time.
	ErrSequenceConsumed = errors.New("completion sequence already consumed")
)

// BackendError reports that the completion service rejected a request.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend error: status %d: %s", e.StatusCode, e.Message)
}

// TransportError reports a failure talking to the completion service that
// did not come with a status code.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// classifyBackendErr keeps typed backend errors and wraps anything else as a
// TransportError.
func classifyBackendErr(err error) error {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return err
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return err
	}
	return &TransportError{Err: err}
}
