// Package mirror provides implementations of subsystems.CrossContextMirror, which carry change
// signals between concurrently open execution contexts of the same application.
//
// MemoryHub connects contexts that live in one process, and is mostly useful for tests. A
// DirectoryMirror connects processes on one host (or on hosts sharing a filesystem) through a
// shared directory that every participant watches with fsnotify.
package mirror
