package sitesync

import (
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/sitesync/go-site-settings/internal/registry"
	"github.com/sitesync/go-site-settings/stores"
	"github.com/sitesync/go-site-settings/subsystems"
)

// DefaultStartWaitTime is the default value for Config.StartWaitTime.
const DefaultStartWaitTime = 5 * time.Second

// DefaultFetchTimeout is the default value for Config.FetchTimeout.
const DefaultFetchTimeout = registry.DefaultFetchTimeout

// Config exposes configuration options for the Client.
//
// All fields except RemoteStore are optional. See the description of each field for the default
// behavior if it is not set.
//
// The component fields are factories; the actual implementations, with methods for configuring
// them, are provided by the remotestore, localstore and mirror packages. For instance:
//
//	config := sitesync.Config{
//	    RemoteStore: remotestore.HTTP("https://cms.example.com").Header("Authorization", token),
//	    Snapshots:   localstore.Directory(dir),
//	}
type Config struct {
	// RemoteStore is the authoritative store of settings and pages. It is required.
	RemoteStore subsystems.ComponentConfigurer[subsystems.RemoteStore]

	// Snapshots is the durable local store for last known-good values. If nil, the default is
	// localstore.InMemory(), which does not survive a restart.
	Snapshots subsystems.ComponentConfigurer[subsystems.SnapshotStore]

	// SnapshotNamespace is prefixed to every snapshot key. If empty, the default is
	// localstore.DefaultNamespace.
	SnapshotNamespace string

	// Mirror carries change signals to other execution contexts. If nil, signals stay within this
	// client.
	Mirror subsystems.ComponentConfigurer[subsystems.CrossContextMirror]

	// ContextID identifies this execution context to the mirror. If empty, a random one is generated.
	ContextID string

	// CacheTTL is how long the registry keeps a cached value. Zero (the default) means values are
	// kept until they are replaced, refreshed or invalidated by another context.
	CacheTTL time.Duration

	// FetchTimeout bounds every remote call. If zero, the default is DefaultFetchTimeout.
	FetchTimeout time.Duration

	// StartWaitTime is how long MakeClient waits for the startup sequence. If zero, the default is
	// DefaultStartWaitTime; a negative value means MakeClient does not wait at all. The startup
	// sequence continues in the background either way.
	StartWaitTime time.Duration

	// RecoveryPollInterval, if positive, makes the registry probe the remote store at this interval
	// after an outage, and reload everything as soon as it is reachable again.
	RecoveryPollInterval time.Duration

	// DefaultPages are the compiled-in defaults of the content pages. If nil, the default is
	// stores.DefaultContentPages(); to have no default pages, set an empty slice.
	DefaultPages []stores.ContentPage

	// PageCacheSize is the number of resolved pages kept in memory. If zero, the default is
	// stores.DefaultPageCacheSize.
	PageCacheSize int

	// Loggers is the logging configuration. The zero value logs at Info level and above to standard
	// error.
	Loggers ldlog.Loggers
}
