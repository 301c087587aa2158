package subsystems

import (
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

// ClientContext provides context information from the client when creating other components.
//
// This is passed as a parameter to ComponentConfigurer.Build. For test purposes you may use the
// simple struct type BasicClientContext.
type ClientContext interface {
	// GetContextID returns the unique ID of this execution context. Cross-context mirrors use it to
	// recognize their own messages.
	GetContextID() string
	// GetLoggers returns the configured loggers.
	GetLoggers() ldlog.Loggers
	// GetFetchTimeout returns the configured bound on a single remote call.
	GetFetchTimeout() time.Duration
}

// BasicClientContext is the basic implementation of the ClientContext interface.
type BasicClientContext struct {
	ContextID    string
	Loggers      ldlog.Loggers
	FetchTimeout time.Duration
}

func (b BasicClientContext) GetContextID() string { return b.ContextID } //nolint:revive

func (b BasicClientContext) GetLoggers() ldlog.Loggers { return b.Loggers } //nolint:revive

func (b BasicClientContext) GetFetchTimeout() time.Duration { return b.FetchTimeout } //nolint:revive
