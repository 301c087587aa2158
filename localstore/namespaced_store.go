package localstore

import (
	"github.com/sitesync/go-site-settings/subsystems"
)

// DefaultNamespace is the prefix the domain stores use for their snapshot keys, keeping them apart
// from the remote key space and from anything else sharing the same local store.
const DefaultNamespace = "sitesync:snapshot:"

type namespacedStore struct {
	prefix string
	store  subsystems.SnapshotStore
}

// Namespaced returns a view of a SnapshotStore in which every key is prefixed.
func Namespaced(prefix string, store subsystems.SnapshotStore) subsystems.SnapshotStore {
	return namespacedStore{prefix: prefix, store: store}
}

func (n namespacedStore) Get(key string) ([]byte, bool, error) {
	return n.store.Get(n.prefix + key)
}

func (n namespacedStore) Set(key string, value []byte) error {
	return n.store.Set(n.prefix+key, value)
}

func (n namespacedStore) Remove(key string) error {
	return n.store.Remove(n.prefix + key)
}
