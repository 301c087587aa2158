// Package localstore provides implementations of subsystems.SnapshotStore, the durable local
// fallback for the last known-good value of each domain's settings.
package localstore
