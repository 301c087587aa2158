package localstore

import (
	"sync"

	"github.com/sitesync/go-site-settings/subsystems"
)

type memoryStore struct {
	data map[string][]byte
	lock sync.RWMutex
}

// NewMemoryStore returns a SnapshotStore that keeps values in memory only. Several contexts can share
// one instance to simulate a shared browser profile.
func NewMemoryStore() subsystems.SnapshotStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) Get(key string) ([]byte, bool, error) {
	s.lock.RLock()
	value, ok := s.data[key]
	s.lock.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *memoryStore) Set(key string, value []byte) error {
	s.lock.Lock()
	s.data[key] = append([]byte(nil), value...)
	s.lock.Unlock()
	return nil
}

func (s *memoryStore) Remove(key string) error {
	s.lock.Lock()
	delete(s.data, key)
	s.lock.Unlock()
	return nil
}
