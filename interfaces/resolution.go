package interfaces

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Source describes where a resolved value came from, or why there is none.
type Source int

const (
	// SourceCache means the value was already in the registry's cache.
	SourceCache Source = iota + 1
	// SourceRemote means the value was fetched from the remote store just now, and is now cached.
	SourceRemote
	// SourceNotFound means the remote store answered that no such record exists.
	SourceNotFound
	// SourceUnavailable means the remote store could not answer; callers should fall back to a
	// local snapshot or a compiled default.
	SourceUnavailable
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceRemote:
		return "remote"
	case SourceNotFound:
		return "not found"
	case SourceUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of reading one record through the registry.
type Resolution struct {
	// Value is the record's value if Found() is true; otherwise it is ldvalue.Null().
	Value ldvalue.Value
	// Source tells where the value came from.
	Source Source
	// Err is the remote failure behind SourceUnavailable.
	Err error
}

// Found returns true if the resolution produced a value.
func (r Resolution) Found() bool {
	return r.Source == SourceCache || r.Source == SourceRemote
}
