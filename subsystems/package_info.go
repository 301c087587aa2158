// Package subsystems contains the interfaces through which the settings synchronization core talks to
// the world outside it: the authoritative remote store, the durable local snapshot store, and the
// channel that mirrors invalidation signals to other execution contexts.
//
// Most applications will not need to implement these. Adapters for common cases live in the
// remotestore, localstore, and mirror packages; you will implement these interfaces yourself only if
// you are connecting the core to a different backend, or building a test fixture.
//
// The package also includes the concrete types and error values that are passed through these
// interfaces.
package subsystems
