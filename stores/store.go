package stores

import (
	"context"
	"sync"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/sitesync/go-site-settings/interfaces"
	"github.com/sitesync/go-site-settings/subsystems"
)

// Registry is the part of the settings registry that domain stores use.
type Registry interface {
	Resolve(ctx context.Context, kind subsystems.DataKind, key string) interfaces.Resolution
	Save(ctx context.Context, kind subsystems.DataKind, key string, value ldvalue.Value) error
	GetAll(ctx context.Context, kind subsystems.DataKind) map[string]ldvalue.Value
}

// Bus is the part of the notification bus that domain stores use.
type Bus interface {
	Publish(name interfaces.EventName, payload ldvalue.Value)
	Subscribe(name interfaces.EventName) <-chan interfaces.Event
	Unsubscribe(name interfaces.EventName, ch <-chan interfaces.Event)
}

// Dependencies are the shared components every domain store is built on. One set is created per
// execution context and passed to every store.
type Dependencies struct {
	Registry  Registry
	Bus       Bus
	Snapshots subsystems.SnapshotStore
	Loggers   ldlog.Loggers
}

// Definition describes one settings domain.
type Definition[T any] struct {
	// Name is the domain name used in log messages, snapshot keys, and the "type" property of
	// EventSettingsChanged.
	Name string
	// SettingKey is the key of the setting record in the remote store.
	SettingKey string
	// Event is the domain-specific signal published after every save.
	Event interfaces.EventName
	// Defaults returns a fresh copy of the compiled-in default value.
	Defaults func() T
}

// Store is a typed view of one setting record.
//
// The merged value is held as an ldvalue.Value, which is immutable, and decoded on every read, so
// callers can modify what they get back without affecting the store.
type Store[T any] struct {
	def           Definition[T]
	registry      Registry
	bus           Bus
	snapshots     subsystems.SnapshotStore
	current       ldvalue.Value
	resolved      bool
	lock          sync.RWMutex
	subscriptions map[<-chan T]<-chan interfaces.Event
	subsLock      sync.Mutex
	remoteCh      <-chan interfaces.Event
	loggers       ldlog.Loggers
}

// NewStore creates a domain store. It starts listening for this domain's signals from other
// contexts immediately.
func NewStore[T any](def Definition[T], deps Dependencies) *Store[T] {
	s := &Store[T]{
		def:           def,
		registry:      deps.Registry,
		bus:           deps.Bus,
		snapshots:     deps.Snapshots,
		subscriptions: make(map[<-chan T]<-chan interfaces.Event),
		loggers:       deps.Loggers,
	}
	s.loggers.SetPrefix(def.Name + "Store:")
	s.remoteCh = s.bus.Subscribe(def.Event)
	go s.consumeRemoteUpdates(s.remoteCh)
	return s
}

// Name returns the domain name.
func (s *Store[T]) Name() string {
	return s.def.Name
}

// Resolve returns the current settings, resolved through the registry and merged over the
// defaults. It never fails: if the remote store cannot be reached, the result comes from the local
// snapshot or the defaults.
func (s *Store[T]) Resolve(ctx context.Context) T {
	ret, _ := s.resolve(ctx)
	return ret
}

// Init resolves the settings like Resolve, and reports an error if the result is degraded (came
// from a fallback tier) or if seeding the remote store with defaults failed. The store is usable
// either way.
func (s *Store[T]) Init(ctx context.Context) error {
	_, err := s.resolve(ctx)
	return err
}

func (s *Store[T]) resolve(ctx context.Context) (T, error) {
	res := s.registry.Resolve(ctx, subsystems.Settings, s.def.SettingKey)
	switch {
	case res.Found():
		merged, item, err := mergeAndDecode(s.def.Defaults(), res.Value, "remote")
		if err == nil {
			s.remember(merged, true)
			return item, nil
		}
		s.loggers.Warnf("Ignoring remote value of %q: %s", s.def.SettingKey, err)
		return s.fallBack(err)

	case res.Source == interfaces.SourceNotFound:
		defaults := s.def.Defaults()
		s.loggers.Infof("No stored value for %q; seeding the remote store with defaults", s.def.SettingKey)
		if err := s.Save(ctx, defaults); err != nil {
			s.loggers.Warnf("Unable to seed defaults for %q: %s", s.def.SettingKey, err)
			return defaults, err
		}
		return defaults, nil

	default:
		return s.fallBack(res.Err)
	}
}

func (s *Store[T]) fallBack(cause error) (T, error) {
	if merged, item, ok := s.readSnapshot(); ok {
		s.remember(merged, false)
		return item, degradedError{store: s.def.Name, fallback: "local snapshot", cause: cause}
	}
	defaults := s.def.Defaults()
	if value, err := toValue(defaults); err == nil {
		s.remember(value, false)
	}
	return defaults, degradedError{store: s.def.Name, fallback: "defaults", cause: cause}
}

// Peek returns the last resolved value without waiting for anything. Before the first resolution
// it returns the local snapshot, or if there is none the defaults.
func (s *Store[T]) Peek() T {
	s.lock.RLock()
	current, resolved := s.current, s.resolved
	s.lock.RUnlock()
	if resolved {
		if item, err := fromValue[T](current); err == nil {
			return item
		}
	}
	if _, item, ok := s.readSnapshot(); ok {
		return item
	}
	return s.def.Defaults()
}

// Save writes the whole settings object through the registry. If that succeeds, the store's own
// value and the local snapshot are updated, then the domain signal and EventSettingsChanged are
// published, in that order. Errors from the remote store are returned.
func (s *Store[T]) Save(ctx context.Context, item T) error {
	value, err := toValue(item)
	if err != nil {
		return err
	}
	if err := s.registry.Save(ctx, subsystems.Settings, s.def.SettingKey, value); err != nil {
		return err
	}
	s.remember(value, true)
	s.bus.Publish(s.def.Event, value)
	s.bus.Publish(interfaces.EventSettingsChanged, interfaces.SettingsChangedPayload(s.def.Name, value))
	return nil
}

// Update applies fn to the current settings and saves the result. See the package documentation
// about concurrent updates.
func (s *Store[T]) Update(ctx context.Context, fn func(*T)) (T, error) {
	item := s.Resolve(ctx)
	fn(&item)
	if err := s.Save(ctx, item); err != nil {
		return item, err
	}
	return item, nil
}

// Reset forgets the local value and snapshot, then saves the defaults.
func (s *Store[T]) Reset(ctx context.Context) error {
	s.lock.Lock()
	s.current, s.resolved = ldvalue.Null(), false
	s.lock.Unlock()
	if err := s.snapshots.Remove(s.snapshotKey()); err != nil {
		s.loggers.Warnf("Unable to remove local snapshot: %s", err)
	}
	return s.Save(ctx, s.def.Defaults())
}

// Subscribe returns a channel that receives the whole settings object each time this domain is
// saved, in this context or another. The caller must keep reading it, or call Unsubscribe.
func (s *Store[T]) Subscribe() <-chan T {
	valueCh := make(chan T, 10)
	eventCh := s.bus.Subscribe(s.def.Event)
	go s.forwardEvents(eventCh, valueCh)
	s.subsLock.Lock()
	s.subscriptions[valueCh] = eventCh
	s.subsLock.Unlock()
	return valueCh
}

// Unsubscribe stops a subscription created by Subscribe and closes its channel.
func (s *Store[T]) Unsubscribe(ch <-chan T) {
	s.subsLock.Lock()
	eventCh, ok := s.subscriptions[ch]
	delete(s.subscriptions, ch)
	s.subsLock.Unlock()
	if ok {
		s.bus.Unsubscribe(s.def.Event, eventCh)
	}
}

// Close stops listening for signals from other contexts and ends all subscriptions.
func (s *Store[T]) Close() {
	s.subsLock.Lock()
	subs := s.subscriptions
	s.subscriptions = make(map[<-chan T]<-chan interfaces.Event)
	s.subsLock.Unlock()
	for _, eventCh := range subs {
		s.bus.Unsubscribe(s.def.Event, eventCh)
	}
	s.bus.Unsubscribe(s.def.Event, s.remoteCh)
}

func (s *Store[T]) forwardEvents(eventCh <-chan interfaces.Event, valueCh chan<- T) {
	defer close(valueCh)
	for event := range eventCh {
		_, item, err := mergeAndDecode(s.def.Defaults(), event.Payload, "signal")
		if err != nil {
			s.loggers.Warnf("Ignoring malformed %q signal: %s", s.def.Event, err)
			continue
		}
		valueCh <- item
	}
}

func (s *Store[T]) consumeRemoteUpdates(ch <-chan interfaces.Event) {
	for event := range ch {
		if !event.Remote {
			continue
		}
		merged, _, err := mergeAndDecode(s.def.Defaults(), event.Payload, "signal")
		if err != nil {
			s.loggers.Warnf("Ignoring malformed %q signal from context %s: %s", s.def.Event, event.Origin, err)
			continue
		}
		s.remember(merged, true)
	}
}

// remember makes value the store's current value; if persist is true it is also written to the
// local snapshot.
func (s *Store[T]) remember(value ldvalue.Value, persist bool) {
	s.lock.Lock()
	s.current, s.resolved = value, true
	s.lock.Unlock()
	if !persist {
		return
	}
	if err := s.snapshots.Set(s.snapshotKey(), []byte(value.JSONString())); err != nil {
		s.loggers.Warnf("Unable to write local snapshot: %s", err)
	}
}

func (s *Store[T]) readSnapshot() (ldvalue.Value, T, bool) {
	var empty T
	data, ok, err := s.snapshots.Get(s.snapshotKey())
	if err != nil {
		s.loggers.Warnf("Unable to read local snapshot: %s", err)
		return ldvalue.Null(), empty, false
	}
	if !ok {
		return ldvalue.Null(), empty, false
	}
	stored := ldvalue.Parse(data)
	merged, item, err := mergeAndDecode(s.def.Defaults(), stored, "snapshot")
	if err != nil {
		s.loggers.Warnf("Ignoring local snapshot: %s", err)
		return ldvalue.Null(), empty, false
	}
	return merged, item, true
}

func (s *Store[T]) snapshotKey() string {
	return s.def.Name
}
