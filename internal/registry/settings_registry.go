package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/sitesync/go-site-settings/interfaces"
	"github.com/sitesync/go-site-settings/subsystems"
)

// DefaultFetchTimeout bounds every remote call the registry makes on its own behalf.
const DefaultFetchTimeout = 10 * time.Second

// EventBus is the part of the notification bus that the registry uses.
type EventBus interface {
	Publish(name interfaces.EventName, payload ldvalue.Value)
	Subscribe(name interfaces.EventName) <-chan interfaces.Event
	Unsubscribe(name interfaces.EventName, ch <-chan interfaces.Event)
}

// Options are the tunable parameters of a SettingsRegistry.
type Options struct {
	// CacheTTL is how long a cached value is kept before it must be fetched again. Zero or a
	// negative value means cached values never expire; they are only replaced by saves, refreshes
	// and cross-context invalidations.
	CacheTTL time.Duration
	// FetchTimeout bounds each remote call. Zero means DefaultFetchTimeout.
	FetchTimeout time.Duration
	// RecoveryPollInterval, if positive, makes the registry probe the remote store at this interval
	// after an outage and refresh itself as soon as the store is reachable again.
	RecoveryPollInterval time.Duration
}

// SettingsRegistry is the single owner of remote calls, of the in-memory cache, and of the decision
// of when the remote store must be consulted. Domain stores never call the remote store directly.
//
// Initialization loads every record of every kind. It is idempotent, and concurrent callers share
// one in-flight load. A failed load still counts as initialization, so that readers never wait
// forever; records that could not be loaded are simply absent from the cache, and later reads try
// the remote store again for each key.
type SettingsRegistry struct {
	remote       subsystems.RemoteStore
	bus          EventBus
	cache        *cache.Cache
	requests     singleflight.Group
	fetchTimeout time.Duration
	status       *statusManager
	remoteCh     <-chan interfaces.Event
	inited       bool
	generation   uint64
	initLock     sync.RWMutex
	loggers      ldlog.Loggers
}

// NewSettingsRegistry creates a registry. It starts listening for cross-context update signals on
// the bus straight away; the remote store is not contacted until the first call that needs it.
func NewSettingsRegistry(
	remote subsystems.RemoteStore,
	bus EventBus,
	options Options,
	loggers ldlog.Loggers,
) *SettingsRegistry {
	ttl := options.CacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	fetchTimeout := options.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	r := &SettingsRegistry{
		remote:       remote,
		bus:          bus,
		cache:        cache.New(ttl, 5*time.Minute),
		fetchTimeout: fetchTimeout,
		loggers:      loggers,
	}
	r.loggers.SetPrefix("SettingsRegistry:")
	r.status = newStatusManager(r.pollAvailability, r.refreshAfterRecovery, options.RecoveryPollInterval, r.loggers)
	r.remoteCh = bus.Subscribe(interfaces.EventSettingUpdated)
	go r.consumeRemoteUpdates(r.remoteCh)
	return r
}

// Initialize loads every record from the remote store, unless that has already happened. If a load
// is already in progress, Initialize waits for it instead of starting another.
//
// Remote failures are logged and reflected in the status, but not returned. The only error is the
// caller's own context ending first, in which case the shared load carries on without it.
func (r *SettingsRegistry) Initialize(ctx context.Context) error {
	r.initLock.RLock()
	inited, gen := r.inited, r.generation
	r.initLock.RUnlock()
	if inited {
		return nil
	}
	ch := r.requests.DoChan(fmt.Sprintf("init:%d", gen), func() (interface{}, error) {
		r.load(gen)
		return nil, nil
	})
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsInitialized returns true once a load attempt has completed since creation or the last Refresh.
func (r *SettingsRegistry) IsInitialized() bool {
	r.initLock.RLock()
	defer r.initLock.RUnlock()
	return r.inited
}

func (r *SettingsRegistry) load(gen uint64) {
	r.initLock.RLock()
	done := r.inited || r.generation != gen
	r.initLock.RUnlock()
	if done {
		return // a concurrent caller's flight finished between its check and ours
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.fetchTimeout)
	defer cancel()
	loaded := make(map[subsystems.DataKind][]subsystems.KeyedValue)
	failed := false
	for _, kind := range subsystems.AllDataKinds() {
		items, err := r.remote.GetAll(ctx, kind)
		if err != nil {
			r.loggers.Warnf("Unable to load %s from remote store: %s", kind, err)
			r.status.markUnavailable("load "+kind.String(), err)
			failed = true
			continue
		}
		loaded[kind] = items
	}

	r.initLock.Lock()
	if r.generation != gen {
		r.initLock.Unlock()
		r.loggers.Debug("Discarding results of a load that was superseded by a refresh")
		return
	}
	for kind, items := range loaded {
		for _, item := range items {
			r.cache.Set(cacheKey(kind, item.Key), item.Value, cache.DefaultExpiration)
		}
	}
	r.inited = true
	r.initLock.Unlock()

	r.status.markInitialized()
	if failed {
		return
	}
	r.status.markAvailable()
	r.loggers.Infof("Loaded %d settings and %d content pages", len(loaded[subsystems.Settings]),
		len(loaded[subsystems.ContentPages]))
	r.bus.Publish(interfaces.EventSettingsInitialized, ldvalue.ObjectBuild().
		Set("settings", valueMapToObject(r.cachedItems(subsystems.Settings))).
		Build())
}

// Resolve returns the value of one record. The cache is consulted first; on a miss the remote store
// is asked directly, with concurrent requests for the same record sharing one remote call. Remote
// failures are never returned as errors: they produce SourceUnavailable, so that the caller can fall
// back to a snapshot or a default.
func (r *SettingsRegistry) Resolve(ctx context.Context, kind subsystems.DataKind, key string) interfaces.Resolution {
	if err := r.Initialize(ctx); err != nil {
		return interfaces.Resolution{Value: ldvalue.Null(), Source: interfaces.SourceUnavailable, Err: err}
	}
	if data, present := r.cache.Get(cacheKey(kind, key)); present {
		if value, ok := data.(ldvalue.Value); ok {
			return interfaces.Resolution{Value: value, Source: interfaces.SourceCache}
		}
	}

	r.initLock.RLock()
	gen := r.generation
	r.initLock.RUnlock()
	ch := r.requests.DoChan(fmt.Sprintf("get:%s:%s", kind, key), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.Background(), r.fetchTimeout)
		defer cancel()
		value, err := r.remote.Get(fetchCtx, kind, key)
		if err != nil {
			return nil, err
		}
		r.initLock.RLock()
		if r.generation == gen {
			r.cache.Set(cacheKey(kind, key), value, cache.DefaultExpiration)
		}
		r.initLock.RUnlock()
		return value, nil
	})

	var result singleflight.Result
	select {
	case result = <-ch:
	case <-ctx.Done():
		return interfaces.Resolution{Value: ldvalue.Null(), Source: interfaces.SourceUnavailable, Err: ctx.Err()}
	}
	if result.Err != nil {
		if errors.Is(result.Err, subsystems.ErrNotFound) {
			r.status.markAvailable()
			return interfaces.Resolution{Value: ldvalue.Null(), Source: interfaces.SourceNotFound}
		}
		r.loggers.Warnf("Unable to fetch %s %q from remote store: %s", kind, key, result.Err)
		var malformed *subsystems.MalformedPayloadError
		if !errors.As(result.Err, &malformed) {
			r.status.markUnavailable(fmt.Sprintf("get %s/%s", kind, key), result.Err)
		}
		return interfaces.Resolution{Value: ldvalue.Null(), Source: interfaces.SourceUnavailable, Err: result.Err}
	}
	r.status.markAvailable()
	if value, ok := result.Val.(ldvalue.Value); ok {
		return interfaces.Resolution{Value: value, Source: interfaces.SourceRemote}
	}
	r.loggers.Errorf("Remote query returned unexpected type %T", result.Val)
	return interfaces.Resolution{Value: ldvalue.Null(), Source: interfaces.SourceUnavailable}
}

// GetSetting returns the value of a named setting, or false if it could not be resolved from the
// cache or the remote store. Callers are expected to substitute their own defaults.
func (r *SettingsRegistry) GetSetting(ctx context.Context, key string) (ldvalue.Value, bool) {
	res := r.Resolve(ctx, subsystems.Settings, key)
	return res.Value, res.Found()
}

// SaveSetting writes a named setting. See Save.
func (r *SettingsRegistry) SaveSetting(ctx context.Context, key string, value ldvalue.Value) error {
	return r.Save(ctx, subsystems.Settings, key, value)
}

// Save writes a record to the remote store. Only after the remote store accepts it is the cache
// updated and an EventSettingUpdated signal published. Unlike reads, a failed save is returned to
// the caller, and the cache keeps its previous value.
func (r *SettingsRegistry) Save(ctx context.Context, kind subsystems.DataKind, key string, value ldvalue.Value) error {
	if err := r.Initialize(ctx); err != nil {
		return err
	}
	saveCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()
	if err := r.remote.Upsert(saveCtx, kind, key, value); err != nil {
		r.status.markUnavailable(fmt.Sprintf("save %s/%s", kind, key), err)
		r.loggers.Errorf("Failed to save %s %q: %s", kind, key, err)
		return fmt.Errorf("failed to save %s %q: %w", kind, key, err)
	}
	r.status.markAvailable()
	r.cache.Set(cacheKey(kind, key), value, cache.DefaultExpiration)
	r.bus.Publish(interfaces.EventSettingUpdated, interfaces.SettingUpdatedPayload(kind.String(), key, value))
	return nil
}

// GetAllSettings returns a copy of every cached setting.
func (r *SettingsRegistry) GetAllSettings(ctx context.Context) map[string]ldvalue.Value {
	return r.GetAll(ctx, subsystems.Settings)
}

// GetAll returns a copy of every cached record of one kind.
func (r *SettingsRegistry) GetAll(ctx context.Context, kind subsystems.DataKind) map[string]ldvalue.Value {
	_ = r.Initialize(ctx)
	return r.cachedItems(kind)
}

// Refresh discards the cache and the initialization state, then initializes again. A load that was
// in progress when Refresh was called cannot repopulate the cache afterward.
func (r *SettingsRegistry) Refresh(ctx context.Context) error {
	r.initLock.Lock()
	r.generation++
	r.inited = false
	r.cache.Flush()
	r.initLock.Unlock()
	return r.Initialize(ctx)
}

// Invalidate drops one cached record, so that the next read goes back to the remote store.
func (r *SettingsRegistry) Invalidate(kind subsystems.DataKind, key string) {
	r.cache.Delete(cacheKey(kind, key))
}

// GetStatus returns the registry's current status.
func (r *SettingsRegistry) GetStatus() interfaces.RegistryStatus {
	return r.status.getStatus()
}

// AddStatusListener subscribes to status changes.
func (r *SettingsRegistry) AddStatusListener() <-chan interfaces.RegistryStatus {
	return r.status.broadcaster.AddListener()
}

// RemoveStatusListener unsubscribes from status changes.
func (r *SettingsRegistry) RemoveStatusListener(ch <-chan interfaces.RegistryStatus) {
	r.status.broadcaster.RemoveListener(ch)
}

// Close stops background activity. It does not close the remote store.
func (r *SettingsRegistry) Close() {
	r.status.close()
	r.bus.Unsubscribe(interfaces.EventSettingUpdated, r.remoteCh)
}

// Another context saved a record; our copy may be stale, so the next read must re-resolve it.
func (r *SettingsRegistry) consumeRemoteUpdates(ch <-chan interfaces.Event) {
	for event := range ch {
		if !event.Remote {
			continue
		}
		kind := subsystems.DataKind(event.Payload.GetByKey("kind").StringValue())
		if kind == "" {
			kind = subsystems.Settings
		}
		key := event.Payload.GetByKey("key").StringValue()
		if key == "" {
			continue
		}
		if r.loggers.IsDebugEnabled() {
			r.loggers.Debugf("Invalidating %s %q after an update in context %s", kind, key, event.Origin)
		}
		r.Invalidate(kind, key)
	}
}

func (r *SettingsRegistry) cachedItems(kind subsystems.DataKind) map[string]ldvalue.Value {
	prefix := kind.String() + ":"
	ret := make(map[string]ldvalue.Value)
	for cacheKey, item := range r.cache.Items() {
		if !strings.HasPrefix(cacheKey, prefix) {
			continue
		}
		if value, ok := item.Object.(ldvalue.Value); ok {
			ret[strings.TrimPrefix(cacheKey, prefix)] = value
		}
	}
	return ret
}

func (r *SettingsRegistry) pollAvailability() bool {
	ctx, cancel := context.WithTimeout(context.Background(), r.fetchTimeout)
	defer cancel()
	if probe, ok := r.remote.(subsystems.RemoteStoreAvailability); ok {
		return probe.IsStoreAvailable(ctx)
	}
	_, err := r.remote.GetAll(ctx, subsystems.Settings)
	return err == nil
}

func (r *SettingsRegistry) refreshAfterRecovery() {
	if err := r.Refresh(context.Background()); err != nil {
		r.loggers.Warnf("Refresh after remote store recovery failed: %s", err)
	}
}

func cacheKey(kind subsystems.DataKind, key string) string {
	return kind.String() + ":" + key
}

func valueMapToObject(items map[string]ldvalue.Value) ldvalue.Value {
	b := ldvalue.ObjectBuildWithCapacity(len(items))
	for k, v := range items {
		b.Set(k, v)
	}
	return b.Build()
}
