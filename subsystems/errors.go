package subsystems

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned (possibly wrapped) by a RemoteStore when it explicitly reports that a
// record does not exist. Unlike an outage, this makes the domain stores seed the compiled default.
var ErrNotFound = errors.New("record not found")

// UnavailableError means the remote store could not be reached or did not return a success status.
type UnavailableError struct {
	// Op describes the operation that failed, for instance "get settings/footer_settings".
	Op string
	// StatusCode is the HTTP status, if the failure was a non-success response; otherwise 0.
	StatusCode int
	// Err is the underlying cause.
	Err error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote store unavailable (%s): HTTP status %d: %s", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote store unavailable (%s): %s", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// MalformedPayloadError means that a remote response or a local snapshot could not be parsed as
// the expected structure.
type MalformedPayloadError struct {
	// Source names where the payload came from, for instance "remote" or "snapshot".
	Source string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: %s", e.Source, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

// IsUnavailable returns true if the error (or anything it wraps) is an *UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
