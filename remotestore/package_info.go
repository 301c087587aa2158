// Package remotestore contains implementations of subsystems.RemoteStore: an adapter for the
// site's settings HTTP API, and an in-memory store for demos and local development.
//
// Both are configured through builders that are set in sitesync.Config:
//
//	config := sitesync.Config{
//	    RemoteStore: remotestore.HTTP("https://cms.example.com").Timeout(5 * time.Second),
//	}
package remotestore
