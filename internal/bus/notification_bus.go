package bus

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/sitesync/go-site-settings/interfaces"
	"github.com/sitesync/go-site-settings/internal"
	"github.com/sitesync/go-site-settings/subsystems"
)

// Number of signals that can be waiting for the mirror before new ones are dropped.
const outboxLength = 100

// NotificationBus delivers change signals to subscribers in this execution context, and mirrors
// them to other contexts through a CrossContextMirror.
//
// Ordering: Publish delivers the signal to every in-context subscriber before the signal is handed
// to the mirror. Mirror sends happen on a single worker goroutine in publish order, so Publish never
// waits for mirror I/O.
type NotificationBus struct {
	contextID    string
	mirror       subsystems.CrossContextMirror
	broadcasters map[interfaces.EventName]*internal.Broadcaster[interfaces.Event]
	outbox       chan subsystems.MirrorMessage
	workerDone   chan struct{}
	closed       bool
	lock         sync.RWMutex
	loggers      ldlog.Loggers
}

// NewNotificationBus creates a bus for the execution context identified by contextID. If mirror is
// nil, signals stay within this context.
func NewNotificationBus(
	contextID string,
	mirror subsystems.CrossContextMirror,
	loggers ldlog.Loggers,
) (*NotificationBus, error) {
	b := &NotificationBus{
		contextID:    contextID,
		mirror:       mirror,
		broadcasters: make(map[interfaces.EventName]*internal.Broadcaster[interfaces.Event]),
		loggers:      loggers,
	}
	b.loggers.SetPrefix("NotificationBus:")
	if mirror == nil {
		return b, nil
	}
	b.outbox = make(chan subsystems.MirrorMessage, outboxLength)
	b.workerDone = make(chan struct{})
	go b.runMirrorWorker()
	if err := mirror.Start(b.deliverRemote); err != nil {
		close(b.outbox)
		<-b.workerDone
		return nil, err
	}
	return b, nil
}

// ContextID returns the identifier of the execution context that owns this bus.
func (b *NotificationBus) ContextID() string {
	return b.contextID
}

// Publish delivers a signal to in-context subscribers and then queues it for other contexts.
func (b *NotificationBus) Publish(name interfaces.EventName, payload ldvalue.Value) {
	b.broadcasterFor(name).Broadcast(interfaces.Event{
		Name:    name,
		Payload: payload,
		Origin:  b.contextID,
	})
	if b.mirror == nil || !isMirrored(name) {
		return
	}
	msg := subsystems.MirrorMessage{
		ID:      uuid.NewString(),
		Origin:  b.contextID,
		Event:   string(name),
		Payload: payload,
		Time:    time.Now(),
	}
	b.lock.RLock()
	defer b.lock.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.outbox <- msg:
	default:
		b.loggers.Warnf("Mirror queue is full; signal %q was not sent to other contexts", name)
	}
}

// Subscribe returns a channel that receives every signal with the given name, from this context or
// from others. The caller must keep reading it, or call Unsubscribe.
func (b *NotificationBus) Subscribe(name interfaces.EventName) <-chan interfaces.Event {
	return b.broadcasterFor(name).AddListener()
}

// Unsubscribe removes a subscription and closes its channel.
func (b *NotificationBus) Unsubscribe(name interfaces.EventName, ch <-chan interfaces.Event) {
	b.broadcasterFor(name).RemoveListener(ch)
}

// Close stops mirroring and closes every subscriber channel.
func (b *NotificationBus) Close() error {
	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		return nil
	}
	b.closed = true
	broadcasters := b.broadcasters
	b.broadcasters = make(map[interfaces.EventName]*internal.Broadcaster[interfaces.Event])
	b.lock.Unlock()

	var err error
	if b.mirror != nil {
		close(b.outbox)
		<-b.workerDone
		err = b.mirror.Close()
	}
	for _, bc := range broadcasters {
		bc.Close()
	}
	return err
}

func (b *NotificationBus) broadcasterFor(name interfaces.EventName) *internal.Broadcaster[interfaces.Event] {
	b.lock.Lock()
	defer b.lock.Unlock()
	bc, ok := b.broadcasters[name]
	if !ok {
		bc = internal.NewBroadcaster[interfaces.Event]()
		if b.closed {
			bc.Close()
			return bc
		}
		b.broadcasters[name] = bc
	}
	return bc
}

func (b *NotificationBus) runMirrorWorker() {
	defer close(b.workerDone)
	for msg := range b.outbox {
		if err := b.mirror.Send(msg); err != nil {
			b.loggers.Warnf("Unable to mirror signal %q to other contexts: %s", msg.Event, err)
		}
	}
}

func (b *NotificationBus) deliverRemote(msg subsystems.MirrorMessage) {
	if msg.Origin == b.contextID {
		return
	}
	if b.loggers.IsDebugEnabled() {
		b.loggers.Debugf("Received signal %q from context %s", msg.Event, msg.Origin)
	}
	name := interfaces.EventName(msg.Event)
	b.broadcasterFor(name).Broadcast(interfaces.Event{
		Name:    name,
		Payload: msg.Payload,
		Origin:  msg.Origin,
		Remote:  true,
	})
}

// The initialization snapshot describes this context's own cache and means nothing elsewhere.
func isMirrored(name interfaces.EventName) bool {
	return name != interfaces.EventSettingsInitialized
}
