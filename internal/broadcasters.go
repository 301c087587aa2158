package internal

import (
	"sync"

	"golang.org/x/exp/slices"
)

// This file defines the publish-subscribe model used for change signals and status updates.
//
// AddListener returns a new receive-only channel; RemoveListener unsubscribes that channel and closes
// it once no send to it is in progress; Broadcast sends a value to every subscribed channel, in subscription order,
// and returns only once every send has completed; Close unsubscribes and closes all channels.

// Buffer size for subscriber channels. It is still the consumer's responsibility to keep reading
// the channel; Broadcast blocks while a subscriber's buffer is full.
const subscriberChannelBufferLength = 10

// Broadcaster delivers values of one type to any number of channel subscribers.
type Broadcaster[V any] struct {
	subscribers []*subscriber[V]
	closed      bool
	lock        sync.Mutex
}

// A subscriber's channel is closed only when it has been removed and no Broadcast is still sending
// to it. inflight and removed are guarded by the Broadcaster's lock.
type subscriber[V any] struct {
	ch       chan V
	done     chan struct{}
	inflight int
	removed  bool
}

// NewBroadcaster creates a Broadcaster for the specified value type.
func NewBroadcaster[V any]() *Broadcaster[V] {
	return &Broadcaster[V]{}
}

// AddListener adds a subscriber and returns a channel for it to receive values. If the Broadcaster
// has already been closed, the returned channel is closed.
func (b *Broadcaster[V]) AddListener() <-chan V {
	s := &subscriber[V]{
		ch:   make(chan V, subscriberChannelBufferLength),
		done: make(chan struct{}),
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		close(s.ch)
		return s.ch
	}
	b.subscribers = append(b.subscribers, s)
	return s.ch
}

// RemoveListener removes a subscriber and closes its channel. The parameter is the channel that was
// returned by AddListener; unknown channels are ignored. If a Broadcast is blocked on this
// subscriber, its value is dropped and the channel is closed once that Broadcast moves on.
func (b *Broadcaster[V]) RemoveListener(ch <-chan V) {
	b.lock.Lock()
	defer b.lock.Unlock()
	for i, s := range b.subscribers {
		if s.ch == ch {
			b.subscribers = slices.Delete(b.subscribers, i, i+1)
			b.remove(s)
			break
		}
	}
}

// HasListeners returns true if there are any current subscribers.
func (b *Broadcaster[V]) HasListeners() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.subscribers) > 0
}

// Broadcast sends a value to all current subscribers.
func (b *Broadcaster[V]) Broadcast(value V) {
	b.lock.Lock()
	ss := slices.Clone(b.subscribers)
	for _, s := range ss {
		s.inflight++
	}
	b.lock.Unlock()
	for _, s := range ss {
		b.send(s, value)
	}
}

func (b *Broadcaster[V]) send(s *subscriber[V], value V) {
	select {
	case <-s.done:
	default:
		select {
		case s.ch <- value:
		case <-s.done:
		}
	}
	b.lock.Lock()
	s.inflight--
	if s.removed && s.inflight == 0 {
		close(s.ch)
	}
	b.lock.Unlock()
}

// remove must be called with the lock held, for a subscriber that is no longer in b.subscribers.
func (b *Broadcaster[V]) remove(s *subscriber[V]) {
	s.removed = true
	close(s.done)
	if s.inflight == 0 {
		close(s.ch)
	}
}

// Close closes all current subscriber channels. Later calls to AddListener return closed channels.
func (b *Broadcaster[V]) Close() {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, s := range b.subscribers {
		b.remove(s)
	}
	b.subscribers = nil
	b.closed = true
}
