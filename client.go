package sitesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/sitesync/go-site-settings/bootstrap"
	"github.com/sitesync/go-site-settings/interfaces"
	"github.com/sitesync/go-site-settings/internal/bus"
	"github.com/sitesync/go-site-settings/internal/registry"
	"github.com/sitesync/go-site-settings/localstore"
	"github.com/sitesync/go-site-settings/stores"
	"github.com/sitesync/go-site-settings/subsystems"
	"github.com/sitesync/go-site-settings/syncbundle"
)

// ErrInitializationTimeout is returned by MakeClient if the startup sequence did not finish within
// Config.StartWaitTime. The client is still usable, and the sequence continues in the background.
var ErrInitializationTimeout = errors.New("timeout encountered waiting for settings to load")

var errMissingRemoteStore = errors.New("Config.RemoteStore is required")

// Client is one execution context's view of the site settings. It owns a settings registry, a
// notification bus, the domain stores, and the startup sequence that connects them.
//
// Client methods are safe for concurrent use.
type Client struct {
	contextID   string
	remote      subsystems.RemoteStore
	bus         *bus.NotificationBus
	registry    *registry.SettingsRegistry
	logo        *stores.LogoStore
	footer      *stores.FooterStore
	navigation  *stores.NavigationStore
	pages       *stores.ContentPageStore
	sequencer   *bootstrap.Sequencer
	exporter    *syncbundle.Exporter
	importer    *syncbundle.Importer
	startupDone chan struct{}
	startupErr  error
	closeOnce   sync.Once
	loggers     ldlog.Loggers
}

// MakeClient creates a client and runs the startup sequence, waiting up to Config.StartWaitTime
// for it to finish.
//
// If the remote store could not be reached, or a domain store could not be initialized, the
// returned error describes what failed, but the client is still returned and usable: reads fall
// back to snapshots and defaults. The error is ErrInitializationTimeout if the sequence did not
// finish in time. The only case where no client is returned is an invalid configuration.
func MakeClient(config Config) (*Client, error) {
	client, err := newClient(config)
	if err != nil {
		return nil, err
	}

	waitFor := config.StartWaitTime
	if waitFor == 0 {
		waitFor = DefaultStartWaitTime
	}
	go func() {
		client.startupErr = client.sequencer.RunStartup(context.Background())
		close(client.startupDone)
	}()
	if waitFor < 0 {
		return client, nil
	}

	client.loggers.Infof("Waiting up to %d milliseconds for settings to load...", waitFor/time.Millisecond)
	select {
	case <-client.startupDone:
		if client.startupErr != nil {
			client.loggers.Warnf("Started with degraded settings: %s", client.startupErr)
			return client, client.startupErr
		}
		client.loggers.Info("Settings loaded")
		return client, nil
	case <-time.After(waitFor):
		client.loggers.Warn("Timeout encountered waiting for settings to load")
		return client, ErrInitializationTimeout
	}
}

func newClient(config Config) (*Client, error) {
	if config.RemoteStore == nil {
		return nil, errMissingRemoteStore
	}
	contextID := config.ContextID
	if contextID == "" {
		contextID = uuid.NewString()
	}
	loggers := config.Loggers
	fetchTimeout := config.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	clientContext := subsystems.BasicClientContext{
		ContextID:    contextID,
		Loggers:      loggers,
		FetchTimeout: fetchTimeout,
	}

	remote, err := config.RemoteStore.Build(clientContext)
	if err != nil {
		return nil, fmt.Errorf("unable to create remote store: %w", err)
	}

	snapshotsConfig := config.Snapshots
	if snapshotsConfig == nil {
		snapshotsConfig = localstore.InMemory()
	}
	snapshots, err := snapshotsConfig.Build(clientContext)
	if err != nil {
		_ = remote.Close()
		return nil, fmt.Errorf("unable to create snapshot store: %w", err)
	}
	namespace := config.SnapshotNamespace
	if namespace == "" {
		namespace = localstore.DefaultNamespace
	}
	snapshots = localstore.Namespaced(namespace, snapshots)

	var contextMirror subsystems.CrossContextMirror
	if config.Mirror != nil {
		if contextMirror, err = config.Mirror.Build(clientContext); err != nil {
			_ = remote.Close()
			return nil, fmt.Errorf("unable to create cross-context mirror: %w", err)
		}
	}
	notificationBus, err := bus.NewNotificationBus(contextID, contextMirror, loggers)
	if err != nil {
		_ = remote.Close()
		return nil, fmt.Errorf("unable to start cross-context mirror: %w", err)
	}

	settingsRegistry := registry.NewSettingsRegistry(remote, notificationBus, registry.Options{
		CacheTTL:             config.CacheTTL,
		FetchTimeout:         fetchTimeout,
		RecoveryPollInterval: config.RecoveryPollInterval,
	}, loggers)

	deps := stores.Dependencies{
		Registry:  settingsRegistry,
		Bus:       notificationBus,
		Snapshots: snapshots,
		Loggers:   loggers,
	}
	c := &Client{
		contextID:   contextID,
		remote:      remote,
		bus:         notificationBus,
		registry:    settingsRegistry,
		logo:        stores.NewLogoStore(deps),
		footer:      stores.NewFooterStore(deps),
		navigation:  stores.NewNavigationStore(deps),
		pages:       stores.NewContentPageStore(deps, config.PageCacheSize),
		exporter:    syncbundle.NewExporter(remote, loggers),
		importer:    syncbundle.NewImporter(remote, loggers),
		startupDone: make(chan struct{}),
		loggers:     loggers,
	}
	defaultPages := config.DefaultPages
	if defaultPages == nil {
		defaultPages = stores.DefaultContentPages()
	}
	for _, page := range defaultPages {
		c.pages.RegisterDefault(page)
	}
	c.sequencer = bootstrap.NewSequencer(settingsRegistry, loggers,
		bootstrap.Step{Name: "content pages", Run: c.pages.Init},
		bootstrap.Step{Name: "footer", Run: c.footer.Init},
		bootstrap.Step{Name: "logo", Run: c.logo.Init},
		bootstrap.Step{Name: "navigation", Run: c.navigation.Init},
	)
	return c, nil
}

// ContextID returns the identifier of this execution context.
func (c *Client) ContextID() string {
	return c.contextID
}

// StartupComplete returns a channel that is closed when the startup sequence has finished,
// successfully or not.
func (c *Client) StartupComplete() <-chan struct{} {
	return c.startupDone
}

// Logo returns the logo settings store.
func (c *Client) Logo() *stores.LogoStore {
	return c.logo
}

// Footer returns the footer settings store.
func (c *Client) Footer() *stores.FooterStore {
	return c.footer
}

// Navigation returns the navigation settings store.
func (c *Client) Navigation() *stores.NavigationStore {
	return c.navigation
}

// ContentPages returns the content page store.
func (c *Client) ContentPages() *stores.ContentPageStore {
	return c.pages
}

// GetSetting returns the value of any named setting, or false if it could not be resolved. No
// defaults are applied.
func (c *Client) GetSetting(ctx context.Context, key string) (ldvalue.Value, bool) {
	return c.registry.GetSetting(ctx, key)
}

// SaveSetting writes any named setting. Errors from the remote store are returned.
func (c *Client) SaveSetting(ctx context.Context, key string, value ldvalue.Value) error {
	return c.registry.SaveSetting(ctx, key, value)
}

// GetAllSettings returns every setting currently cached.
func (c *Client) GetAllSettings(ctx context.Context) map[string]ldvalue.Value {
	return c.registry.GetAllSettings(ctx)
}

// Refresh discards every cached value and loads everything again from the remote store. The domain
// stores are not re-resolved; use Resume for that.
func (c *Client) Refresh(ctx context.Context) error {
	return c.registry.Refresh(ctx)
}

// Resume refreshes the registry and re-resolves every domain store. Call it when the application
// returns to the foreground.
func (c *Client) Resume(ctx context.Context) error {
	return c.sequencer.Resume(ctx)
}

// WatchResume calls Resume each time a value arrives on triggers, until the context ends or the
// channel is closed. See bootstrap.Sequencer.WatchResume.
func (c *Client) WatchResume(ctx context.Context, triggers <-chan struct{}) {
	c.sequencer.WatchResume(ctx, triggers)
}

// Subscribe returns a channel that receives every signal with the given name, whether it was
// published in this context or arrived from another. Call Unsubscribe when it is no longer needed.
func (c *Client) Subscribe(name interfaces.EventName) <-chan interfaces.Event {
	return c.bus.Subscribe(name)
}

// Unsubscribe ends a subscription created by Subscribe.
func (c *Client) Unsubscribe(name interfaces.EventName, ch <-chan interfaces.Event) {
	c.bus.Unsubscribe(name, ch)
}

// GetRegistryStatusProvider returns an interface for tracking whether the remote store is reachable.
func (c *Client) GetRegistryStatusProvider() interfaces.RegistryStatusProvider {
	return c.registry
}

// Export reads the whole configuration straight from the remote store.
func (c *Client) Export(ctx context.Context) (syncbundle.Bundle, error) {
	return c.exporter.Export(ctx)
}

// ExportBundle reads the whole configuration straight from the remote store and serializes it.
func (c *Client) ExportBundle(ctx context.Context) ([]byte, error) {
	b, err := c.exporter.Export(ctx)
	if err != nil {
		return nil, err
	}
	return syncbundle.Marshal(b)
}

// Import writes a bundle to the remote store and then refreshes this client, so that it sees the
// imported values. Other contexts see them after their own refresh.
func (c *Client) Import(ctx context.Context, b syncbundle.Bundle) (syncbundle.ImportResult, error) {
	result, err := c.importer.Import(ctx, b)
	if len(result.Settings)+len(result.Pages) > 0 {
		if resumeErr := c.sequencer.Resume(ctx); resumeErr != nil {
			c.loggers.Warnf("Refresh after import completed with errors: %s", resumeErr)
		}
	}
	return result, err
}

// ImportBundle parses a serialized bundle, JSON or YAML, and imports it as Import does.
func (c *Client) ImportBundle(ctx context.Context, data []byte) (syncbundle.ImportResult, error) {
	b, err := syncbundle.Parse(data)
	if err != nil {
		return syncbundle.ImportResult{}, err
	}
	return c.Import(ctx, b)
}

// Close shuts down the client. Signals stop flowing and the remote store is closed. It is safe to
// call Close more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.loggers.Info("Closing client")
		c.logo.Close()
		c.footer.Close()
		c.navigation.Close()
		c.pages.Close()
		c.registry.Close()
		err = c.bus.Close()
		if closeErr := c.remote.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	})
	return err
}
