package syncbundle

import "fmt"

// MalformedBundleError means a document could not be parsed as a bundle, or lacks required fields.
type MalformedBundleError struct {
	Reason string
	Err    error
}

func (e *MalformedBundleError) Error() string {
	if e.Err == nil {
		return "malformed bundle: " + e.Reason
	}
	return fmt.Sprintf("malformed bundle: %s: %s", e.Reason, e.Err)
}

func (e *MalformedBundleError) Unwrap() error {
	return e.Err
}
