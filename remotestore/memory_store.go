package remotestore

import (
	"context"
	"sort"
	"sync"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/sitesync/go-site-settings/subsystems"
)

// MemoryStore is a RemoteStore that keeps records in memory. Several clients may share one
// MemoryStore, which makes them behave like several browser tabs talking to the same server.
//
// A MemoryStore is also its own ComponentConfigurer, so it can be set directly in
// sitesync.Config.RemoteStore.
type MemoryStore struct {
	data map[subsystems.DataKind]map[string]ldvalue.Value
	lock sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[subsystems.DataKind]map[string]ldvalue.Value)}
}

// Build returns the store itself.
func (m *MemoryStore) Build(clientContext subsystems.ClientContext) (subsystems.RemoteStore, error) {
	return m, nil
}

// GetAll is a standard RemoteStore method. Records are returned in key order.
func (m *MemoryStore) GetAll(ctx context.Context, kind subsystems.DataKind) ([]subsystems.KeyedValue, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	items := m.data[kind]
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ret := make([]subsystems.KeyedValue, 0, len(keys))
	for _, k := range keys {
		ret = append(ret, subsystems.KeyedValue{Key: k, Value: items[k]})
	}
	return ret, nil
}

// Get is a standard RemoteStore method.
func (m *MemoryStore) Get(ctx context.Context, kind subsystems.DataKind, key string) (ldvalue.Value, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if value, ok := m.data[kind][key]; ok {
		return value, nil
	}
	return ldvalue.Null(), subsystems.ErrNotFound
}

// Upsert is a standard RemoteStore method.
func (m *MemoryStore) Upsert(ctx context.Context, kind subsystems.DataKind, key string, value ldvalue.Value) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.data[kind] == nil {
		m.data[kind] = make(map[string]ldvalue.Value)
	}
	m.data[kind][key] = value
	return nil
}

// IsStoreAvailable is a standard RemoteStoreAvailability method.
func (m *MemoryStore) IsStoreAvailable(ctx context.Context) bool {
	return true
}

// Close is a standard RemoteStore method. It does nothing, since other clients may share the store.
func (m *MemoryStore) Close() error {
	return nil
}
