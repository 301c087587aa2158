package interfaces

import (
	"fmt"
	"time"
)

// RegistryStatus describes whether the settings registry is currently able to reach the remote
// store.
type RegistryStatus struct {
	// Initialized is true once the registry has completed at least one load attempt, whether or
	// not it succeeded.
	Initialized bool

	// Available is true if the most recent remote operation succeeded. While it is false, reads
	// fall back to local snapshots and compiled defaults.
	Available bool

	// StateSince is the time at which Available last changed.
	StateSince time.Time

	// LastError describes the most recent remote failure, if any.
	LastError RegistryErrorInfo
}

// RegistryErrorInfo is a description of a remote store failure.
type RegistryErrorInfo struct {
	// Op is the operation that failed.
	Op string
	// StatusCode is the HTTP status of the failure, or 0.
	StatusCode int
	// Message is the error text.
	Message string
	// Time is when the failure happened.
	Time time.Time
}

// String returns a compact description of the error, for logging.
func (e RegistryErrorInfo) String() string {
	if e.Op == "" {
		return ""
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s(%d) %q", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %q", e.Op, e.Message)
}

// RegistryStatusProvider gives access to the registry's status and to a stream of status changes.
type RegistryStatusProvider interface {
	// GetStatus returns the current status.
	GetStatus() RegistryStatus

	// AddStatusListener subscribes to status changes. The channel receives a value each time the
	// status changes. It is the caller's responsibility to read from it, or to call
	// RemoveStatusListener when it is no longer needed.
	AddStatusListener() <-chan RegistryStatus

	// RemoveStatusListener unsubscribes and closes the channel.
	RemoveStatusListener(<-chan RegistryStatus)
}
