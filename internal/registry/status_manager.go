package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/sitesync/go-site-settings/interfaces"
	"github.com/sitesync/go-site-settings/internal"
	"github.com/sitesync/go-site-settings/subsystems"
)

// statusManager tracks whether the remote store is reachable, broadcasts status changes, and, if a
// poll interval is configured, polls for recovery after an outage.
type statusManager struct {
	status       interfaces.RegistryStatus
	broadcaster  *internal.Broadcaster[interfaces.RegistryStatus]
	pollFn       func() bool
	onRecover    func()
	pollInterval time.Duration
	pollCloser   chan struct{}
	closed       bool
	lock         sync.Mutex
	loggers      ldlog.Loggers
}

func newStatusManager(
	pollFn func() bool,
	onRecover func(),
	pollInterval time.Duration,
	loggers ldlog.Loggers,
) *statusManager {
	return &statusManager{
		status:       interfaces.RegistryStatus{Available: true, StateSince: time.Now()},
		broadcaster:  internal.NewBroadcaster[interfaces.RegistryStatus](),
		pollFn:       pollFn,
		onRecover:    onRecover,
		pollInterval: pollInterval,
		loggers:      loggers,
	}
}

func (m *statusManager) getStatus() interfaces.RegistryStatus {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.status
}

func (m *statusManager) markInitialized() {
	m.update(func(s *interfaces.RegistryStatus) {
		s.Initialized = true
	})
}

func (m *statusManager) markAvailable() {
	m.update(func(s *interfaces.RegistryStatus) {
		if !s.Available {
			s.Available = true
			s.StateSince = time.Now()
		}
	})
}

func (m *statusManager) markUnavailable(op string, err error) {
	info := interfaces.RegistryErrorInfo{Op: op, Message: err.Error(), Time: time.Now()}
	var ue *subsystems.UnavailableError
	if errors.As(err, &ue) {
		info.StatusCode = ue.StatusCode
	}
	wasAvailable := false
	m.update(func(s *interfaces.RegistryStatus) {
		wasAvailable = s.Available
		if s.Available {
			s.Available = false
			s.StateSince = info.Time
		}
		s.LastError = info
	})
	if wasAvailable {
		m.loggers.Warnf("Remote store is unavailable (%s); reads will use local snapshots and defaults", err)
		m.startPollerIfNeeded()
	}
}

func (m *statusManager) update(fn func(*interfaces.RegistryStatus)) {
	m.lock.Lock()
	old := m.status
	fn(&m.status)
	newStatus := m.status
	closed := m.closed
	m.lock.Unlock()
	if newStatus != old && !closed {
		m.broadcaster.Broadcast(newStatus)
	}
}

func (m *statusManager) startPollerIfNeeded() {
	if m.pollInterval <= 0 || m.pollFn == nil {
		return
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed || m.pollCloser != nil {
		return
	}
	closer := make(chan struct{})
	m.pollCloser = closer
	go m.runPoller(closer)
}

func (m *statusManager) runPoller(closer <-chan struct{}) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !m.pollFn() {
				continue
			}
			m.lock.Lock()
			if m.pollCloser == closer {
				m.pollCloser = nil
			}
			m.lock.Unlock()
			m.loggers.Warn("Remote store is available again")
			m.markAvailable()
			if m.onRecover != nil {
				m.onRecover()
			}
			return
		case <-closer:
			return
		}
	}
}

func (m *statusManager) close() {
	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		return
	}
	m.closed = true
	if m.pollCloser != nil {
		close(m.pollCloser)
		m.pollCloser = nil
	}
	m.lock.Unlock()
	m.broadcaster.Close()
}
