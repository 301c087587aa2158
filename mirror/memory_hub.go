package mirror

import (
	"errors"
	"sync"

	"github.com/sitesync/go-site-settings/subsystems"
)

const endpointQueueLength = 100

var errEndpointClosed = errors.New("mirror endpoint is closed")

// MemoryHub connects any number of in-process endpoints. A message sent by one endpoint is delivered
// to every other endpoint that has been started and not closed.
type MemoryHub struct {
	endpoints []*memoryEndpoint
	lock      sync.Mutex
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{}
}

// NewEndpoint creates a mirror attached to this hub.
func (h *MemoryHub) NewEndpoint() subsystems.CrossContextMirror {
	e := &memoryEndpoint{hub: h}
	h.lock.Lock()
	h.endpoints = append(h.endpoints, e)
	h.lock.Unlock()
	return e
}

type memoryEndpoint struct {
	hub    *MemoryHub
	queue  chan subsystems.MirrorMessage
	done   chan struct{}
	closed bool
}

func (e *memoryEndpoint) Start(deliver func(subsystems.MirrorMessage)) error {
	e.hub.lock.Lock()
	defer e.hub.lock.Unlock()
	if e.closed {
		return errEndpointClosed
	}
	if e.queue != nil {
		return nil
	}
	e.queue = make(chan subsystems.MirrorMessage, endpointQueueLength)
	e.done = make(chan struct{})
	go func(queue <-chan subsystems.MirrorMessage, done chan<- struct{}) {
		defer close(done)
		for msg := range queue {
			deliver(msg)
		}
	}(e.queue, e.done)
	return nil
}

func (e *memoryEndpoint) Send(msg subsystems.MirrorMessage) error {
	e.hub.lock.Lock()
	defer e.hub.lock.Unlock()
	if e.closed {
		return errEndpointClosed
	}
	for _, other := range e.hub.endpoints {
		if other == e || other.closed || other.queue == nil {
			continue
		}
		select {
		case other.queue <- msg:
		default: // a context that is not keeping up misses the signal, as a frozen tab would
		}
	}
	return nil
}

func (e *memoryEndpoint) Close() error {
	e.hub.lock.Lock()
	if e.closed {
		e.hub.lock.Unlock()
		return nil
	}
	e.closed = true
	eps := e.hub.endpoints
	for i, other := range eps {
		if other == e {
			e.hub.endpoints = append(eps[:i], eps[i+1:]...)
			break
		}
	}
	queue, done := e.queue, e.done
	e.hub.lock.Unlock()
	if queue != nil {
		close(queue)
		<-done
	}
	return nil
}
