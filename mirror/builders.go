package mirror

import (
	"time"

	"github.com/sitesync/go-site-settings/subsystems"
)

// Build attaches a new endpoint to the hub. This makes a MemoryHub usable as
// sitesync.Config.Mirror: every client configured with the same hub gets its own endpoint.
func (h *MemoryHub) Build(subsystems.ClientContext) (subsystems.CrossContextMirror, error) {
	return h.NewEndpoint(), nil
}

// DirectoryMirrorBuilder provides methods for configuring a DirectoryMirror.
type DirectoryMirrorBuilder struct {
	dir       string
	retention time.Duration
}

// Directory returns a configurable factory for a DirectoryMirror that uses dir.
func Directory(dir string) *DirectoryMirrorBuilder {
	return &DirectoryMirrorBuilder{dir: dir, retention: DefaultRetention}
}

// Retention sets how long signal files are kept. Values that are not positive mean DefaultRetention.
func (b *DirectoryMirrorBuilder) Retention(retention time.Duration) *DirectoryMirrorBuilder {
	if retention <= 0 {
		b.retention = DefaultRetention
	} else {
		b.retention = retention
	}
	return b
}

// Build is called by the client to create the mirror instance.
func (b *DirectoryMirrorBuilder) Build(clientContext subsystems.ClientContext) (subsystems.CrossContextMirror, error) {
	return NewDirectoryMirror(b.dir, clientContext.GetLoggers(), Retention(b.retention))
}
