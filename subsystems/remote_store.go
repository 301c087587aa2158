package subsystems

import (
	"context"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// KeyedValue is a single record as it is exchanged with the remote store: a key that is unique
// within its DataKind, and an opaque JSON value.
type KeyedValue struct {
	// Key is the unique key of this record within its DataKind.
	Key string
	// Value is the record's value. It can be any JSON value, although the domain stores only
	// ever write objects.
	Value ldvalue.Value
}

// RemoteStore is the authoritative store of settings and content pages.
//
// The settings registry is the only component that calls a RemoteStore during normal operation;
// the bundle exporter and importer also call it directly, since they must bypass the registry's
// cache. Implementations must be safe for concurrent use.
//
// Errors should be classified so that callers can tell them apart with errors.Is and errors.As:
// a record that definitely does not exist is reported as ErrNotFound, and anything that prevented
// the store from answering (a transport failure or a non-success status) as an *UnavailableError.
// A response that arrived but could not be understood is a *MalformedPayloadError.
type RemoteStore interface {
	// GetAll returns every record of the given kind. The order of the result is not significant.
	GetAll(ctx context.Context, kind DataKind) ([]KeyedValue, error)

	// Get returns a single record. If the store reports that no such record exists, the error
	// must match ErrNotFound.
	Get(ctx context.Context, kind DataKind, key string) (ldvalue.Value, error)

	// Upsert creates or replaces a record. There is no version check: the last successful write
	// wins.
	Upsert(ctx context.Context, kind DataKind, key string, value ldvalue.Value) error

	// Close releases any resources held by the store.
	Close() error
}

// RemoteStoreAvailability is an optional interface that a RemoteStore can implement to support a
// cheap availability probe. The registry calls it at intervals after an outage, until it returns
// true. If a store does not implement it, the registry probes with GetAll(Settings) instead.
type RemoteStoreAvailability interface {
	IsStoreAvailable(ctx context.Context) bool
}
