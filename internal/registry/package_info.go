// Package registry is an internal package containing the settings registry: the tiered cache that
// sits between the domain stores and the remote store, together with its status tracking.
package registry
