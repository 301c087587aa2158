package sharedtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/sitesync/go-site-settings/subsystems"
)

// MockUpsert records one call to MockRemoteStore.Upsert.
type MockUpsert struct {
	Kind  subsystems.DataKind
	Key   string
	Value ldvalue.Value
}

// MockRemoteStore is a test implementation of subsystems.RemoteStore. It keeps records in memory,
// counts every call, and can be told to fail or to slow down.
type MockRemoteStore struct {
	data           map[subsystems.DataKind]map[string]ldvalue.Value
	fakeError      error
	fakeWriteError error
	available      bool
	getAllCounts   map[subsystems.DataKind]int
	getCounts      map[string]int
	upserts        []MockUpsert
	queryDelay     time.Duration
	queryStartedCh chan struct{}
	closed         bool
	lock           sync.Mutex
}

// NewMockRemoteStore creates a MockRemoteStore with no records.
func NewMockRemoteStore() *MockRemoteStore {
	return &MockRemoteStore{
		data: map[subsystems.DataKind]map[string]ldvalue.Value{
			subsystems.Settings:     {},
			subsystems.ContentPages: {},
		},
		available:    true,
		getAllCounts: make(map[subsystems.DataKind]int),
		getCounts:    make(map[string]int),
	}
}

// EnableInstrumentedQueries puts the test store into a mode where all read operations begin by posting
// a signal to a channel and then waiting for some amount of time, to test coalescing of requests.
func (m *MockRemoteStore) EnableInstrumentedQueries(queryDelay time.Duration) <-chan struct{} {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.queryDelay = queryDelay
	m.queryStartedCh = make(chan struct{}, 10)
	return m.queryStartedCh
}

// ForceSet directly modifies a record in the test data.
func (m *MockRemoteStore) ForceSet(kind subsystems.DataKind, key string, value ldvalue.Value) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.data[kind][key] = value
}

// ForceGet retrieves a record directly from the test data.
func (m *MockRemoteStore) ForceGet(kind subsystems.DataKind, key string) (ldvalue.Value, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	value, ok := m.data[kind][key]
	return value, ok
}

// ForceRemove deletes a record from the test data.
func (m *MockRemoteStore) ForceRemove(kind subsystems.DataKind, key string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.data[kind], key)
}

// SetFakeError causes subsequent store operations to return an error.
func (m *MockRemoteStore) SetFakeError(fakeError error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.fakeError = fakeError
}

// SetFakeWriteError causes subsequent Upsert calls to return an error, while reads still work.
func (m *MockRemoteStore) SetFakeWriteError(fakeError error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.fakeWriteError = fakeError
}

// SetAvailable changes the value that will be returned by IsStoreAvailable().
func (m *MockRemoteStore) SetAvailable(available bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.available = available
}

// GetAllCount returns the number of GetAll calls made for a kind.
func (m *MockRemoteStore) GetAllCount(kind subsystems.DataKind) int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.getAllCounts[kind]
}

// GetCount returns the number of Get calls made for one record.
func (m *MockRemoteStore) GetCount(kind subsystems.DataKind, key string) int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.getCounts[kind.String()+":"+key]
}

// TotalGetCount returns the number of Get calls made for any record.
func (m *MockRemoteStore) TotalGetCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	n := 0
	for _, c := range m.getCounts {
		n += c
	}
	return n
}

// Upserts returns every Upsert call made so far, including failed ones, in order.
func (m *MockRemoteStore) Upserts() []MockUpsert {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]MockUpsert(nil), m.upserts...)
}

// IsClosed returns true if Close has been called.
func (m *MockRemoteStore) IsClosed() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.closed
}

func (m *MockRemoteStore) startQuery(ctx context.Context) error {
	m.lock.Lock()
	startedCh, delay := m.queryStartedCh, m.queryDelay
	m.lock.Unlock()
	if startedCh != nil {
		startedCh <- struct{}{}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// GetAll is a standard RemoteStore method.
func (m *MockRemoteStore) GetAll(ctx context.Context, kind subsystems.DataKind) ([]subsystems.KeyedValue, error) {
	m.lock.Lock()
	m.getAllCounts[kind]++
	m.lock.Unlock()
	if err := m.startQuery(ctx); err != nil {
		return nil, err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.fakeError != nil {
		return nil, m.fakeError
	}
	keys := make([]string, 0, len(m.data[kind]))
	for k := range m.data[kind] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ret := make([]subsystems.KeyedValue, 0, len(keys))
	for _, k := range keys {
		ret = append(ret, subsystems.KeyedValue{Key: k, Value: m.data[kind][k]})
	}
	return ret, nil
}

// Get is a standard RemoteStore method.
func (m *MockRemoteStore) Get(ctx context.Context, kind subsystems.DataKind, key string) (ldvalue.Value, error) {
	m.lock.Lock()
	m.getCounts[kind.String()+":"+key]++
	m.lock.Unlock()
	if err := m.startQuery(ctx); err != nil {
		return ldvalue.Null(), err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.fakeError != nil {
		return ldvalue.Null(), m.fakeError
	}
	if value, ok := m.data[kind][key]; ok {
		return value, nil
	}
	return ldvalue.Null(), subsystems.ErrNotFound
}

// Upsert is a standard RemoteStore method.
func (m *MockRemoteStore) Upsert(ctx context.Context, kind subsystems.DataKind, key string, value ldvalue.Value) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.upserts = append(m.upserts, MockUpsert{Kind: kind, Key: key, Value: value})
	if m.fakeError != nil {
		return m.fakeError
	}
	if m.fakeWriteError != nil {
		return m.fakeWriteError
	}
	m.data[kind][key] = value
	return nil
}

// IsStoreAvailable is a standard RemoteStoreAvailability method.
func (m *MockRemoteStore) IsStoreAvailable(ctx context.Context) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.available
}

// Close is a standard RemoteStore method.
func (m *MockRemoteStore) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.closed = true
	return nil
}
