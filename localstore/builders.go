package localstore

import (
	"github.com/sitesync/go-site-settings/subsystems"
)

type memoryStoreConfigurer struct{}

// InMemory returns a configurer for a SnapshotStore that keeps values in memory only, so nothing
// survives a restart. This is the default for sitesync.Config.Snapshots.
func InMemory() subsystems.ComponentConfigurer[subsystems.SnapshotStore] {
	return memoryStoreConfigurer{}
}

func (memoryStoreConfigurer) Build(subsystems.ClientContext) (subsystems.SnapshotStore, error) {
	return NewMemoryStore(), nil
}

type sharedStoreConfigurer struct {
	store subsystems.SnapshotStore
}

// Shared returns a configurer that always uses the same existing SnapshotStore. Giving several
// clients the same store makes them behave like several tabs of one browser profile.
func Shared(store subsystems.SnapshotStore) subsystems.ComponentConfigurer[subsystems.SnapshotStore] {
	return sharedStoreConfigurer{store: store}
}

func (c sharedStoreConfigurer) Build(subsystems.ClientContext) (subsystems.SnapshotStore, error) {
	return c.store, nil
}

type directoryStoreConfigurer struct {
	dir string
}

// Directory returns a configurer for a DirectoryStore.
func Directory(dir string) subsystems.ComponentConfigurer[subsystems.SnapshotStore] {
	return directoryStoreConfigurer{dir: dir}
}

func (c directoryStoreConfigurer) Build(subsystems.ClientContext) (subsystems.SnapshotStore, error) {
	return NewDirectoryStore(c.dir)
}
