package arena

import (
	"errors"
	"fmt"
)

// BackendError is a logical failure reported by the backend with
// success:false. Message is shown to the user verbatim.
type BackendError struct {
	Op      string
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return e.Op + " failed"
	}
	return e.Message
}

// TransportError is a network, HTTP status or decode failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is wrapped by TransportError when the backend answers with a
// non-2xx status and no usable body.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// IsBackendError reports whether err carries a backend logical failure.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// IsTransportError reports whether err is a transport failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
