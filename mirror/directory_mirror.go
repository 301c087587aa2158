package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jellydator/ttlcache/v3"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/sitesync/go-site-settings/subsystems"
)

const (
	// DefaultRetention is how long signal files are kept before any participant may remove them.
	DefaultRetention = 5 * time.Minute

	signalFileSuffix = ".signal.json"
	tempFilePrefix   = ".tmp-"
)

// DirectoryMirror is a CrossContextMirror that exchanges signals through files in a shared
// directory. Send writes each message to its own file (atomically, by renaming a temporary file into
// place); every other participant sees the new file through fsnotify and delivers it.
//
// Files are removed once they are older than the retention period, by whichever participant notices
// first. Message identifiers are remembered for the same period so that the several notifications
// fsnotify may raise for one file cause only one delivery.
type DirectoryMirror struct {
	dir       string
	retention time.Duration
	seen      *ttlcache.Cache[string, struct{}]
	watcher   *fsnotify.Watcher
	closeCh   chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
	loggers   ldlog.Loggers
}

// DirectoryOption is an optional setting for NewDirectoryMirror.
type DirectoryOption func(*DirectoryMirror)

// Retention overrides DefaultRetention.
func Retention(retention time.Duration) DirectoryOption {
	return func(m *DirectoryMirror) {
		m.retention = retention
	}
}

// NewDirectoryMirror creates the shared directory if necessary and returns a mirror that uses it.
func NewDirectoryMirror(dir string, loggers ldlog.Loggers, options ...DirectoryOption) (*DirectoryMirror, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to determine absolute path for %q: %w", dir, err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create mirror directory %q: %w", absDir, err)
	}
	m := &DirectoryMirror{
		dir:       absDir,
		retention: DefaultRetention,
		closeCh:   make(chan struct{}),
		loggers:   loggers,
	}
	for _, o := range options {
		o(m)
	}
	m.seen = ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](m.retention),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	m.loggers.SetPrefix("DirectoryMirror:")
	return m, nil
}

// Start begins watching the directory.
func (m *DirectoryMirror) Start(deliver func(subsystems.MirrorMessage)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create file watcher: %w", err)
	}
	if err := watcher.Add(m.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("unable to watch path %q: %w", m.dir, err)
	}
	m.watcher = watcher
	m.doneCh = make(chan struct{})
	go m.seen.Start()
	go m.run(deliver)
	return nil
}

// Send writes a message file into the shared directory.
func (m *DirectoryMirror) Send(msg subsystems.MirrorMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	m.seen.Set(msg.ID, struct{}{}, ttlcache.DefaultTTL)
	name := fmt.Sprintf("%020d-%s%s", msg.Time.UnixNano(), msg.ID, signalFileSuffix)
	tmp, err := os.CreateTemp(m.dir, tempFilePrefix)
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(m.dir, name))
}

// Close stops watching the directory.
func (m *DirectoryMirror) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.closeCh)
		if m.doneCh != nil {
			<-m.doneCh
			err = m.watcher.Close()
			m.seen.Stop()
		}
	})
	return err
}

func (m *DirectoryMirror) run(deliver func(subsystems.MirrorMessage)) {
	defer close(m.doneCh)
	pruneTicker := time.NewTicker(m.retention)
	defer pruneTicker.Stop()
	for {
		select {
		case <-m.closeCh:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isSignalFile(event.Name) {
				break
			}
			m.handleFile(event.Name, deliver)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.loggers.Errorf("Error from file watcher: %s", err)
		case <-pruneTicker.C:
			m.prune()
		}
	}
}

func (m *DirectoryMirror) handleFile(path string, deliver func(subsystems.MirrorMessage)) {
	data, err := os.ReadFile(path) //nolint:gosec // the path comes from the watched directory
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.loggers.Warnf("Unable to read signal file %q: %s", path, err)
		}
		return
	}
	var msg subsystems.MirrorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		m.loggers.Warnf("Ignoring malformed signal file %q: %s", path, err)
		return
	}
	if msg.ID == "" || m.seen.Has(msg.ID) {
		return
	}
	m.seen.Set(msg.ID, struct{}{}, ttlcache.DefaultTTL)
	deliver(msg)
}

func (m *DirectoryMirror) prune() {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.loggers.Warnf("Unable to list mirror directory: %s", err)
		return
	}
	cutoff := time.Now().Add(-m.retention)
	for _, entry := range entries {
		if !isSignalFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.loggers.Debugf("Unable to remove expired signal file %q: %s", entry.Name(), err)
		}
	}
}

func isSignalFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, signalFileSuffix) && !strings.HasPrefix(base, tempFilePrefix)
}
