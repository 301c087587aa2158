// Package sitesync is the main package of the site settings synchronization layer.
//
// It contains the Client, which owns one execution context's settings registry, notification bus,
// domain stores and startup sequence, and its overall configuration (Config).
//
// Subpackages provide the pluggable parts: remotestore for the authoritative remote store, localstore
// for the durable local snapshots, mirror for carrying change signals between execution contexts,
// stores for the typed domain stores, and syncbundle for whole-configuration export and import.
//
//	client, err := sitesync.MakeClient(sitesync.Config{
//	    RemoteStore: remotestore.HTTP("https://cms.example.com"),
//	    Snapshots:   localstore.Directory("/var/lib/mysite/snapshots"),
//	    Mirror:      mirror.Directory("/var/lib/mysite/signals"),
//	})
//	footer := client.Footer().Peek()
package sitesync
