package subsystems

// SnapshotStore is a minimal durable key-value store used for the last known-good copy of each
// domain's settings. It is a fallback only: values read from it are never treated as
// authoritative while the remote store can be reached.
//
// Values are stored as raw bytes; the domain stores write JSON. Implementations must be safe for
// concurrent use. Get on a missing key returns (nil, false, nil).
type SnapshotStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
}
