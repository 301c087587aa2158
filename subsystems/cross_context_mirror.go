package subsystems

import (
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// MirrorMessage is an invalidation signal as it travels between execution contexts.
type MirrorMessage struct {
	// ID uniquely identifies this message, so that a receiver can discard duplicates.
	ID string `json:"id"`
	// Origin is the context identifier of the publisher. Receivers ignore their own messages.
	Origin string `json:"origin"`
	// Event is the name of the signal, for instance "footer-updated".
	Event string `json:"event"`
	// Payload is the signal's payload.
	Payload ldvalue.Value `json:"payload"`
	// Time is when the message was published.
	Time time.Time `json:"time"`
}

// CrossContextMirror carries invalidation signals between concurrently open contexts of the same
// application (other processes on the same host, other instances sharing a directory, or other
// in-process contexts in tests).
//
// Delivery is advisory. A context that is not listening when a message is sent does not receive
// it later; it must rely on its own refresh when it becomes active again.
type CrossContextMirror interface {
	// Start begins delivering messages published by other contexts to the deliver function. The
	// function is called from a single goroutine, in the order in which messages were observed.
	Start(deliver func(MirrorMessage)) error

	// Send publishes a message to the other contexts. It must not deliver the message back to the
	// sending context.
	Send(msg MirrorMessage) error

	// Close stops delivery and releases resources.
	Close() error
}
