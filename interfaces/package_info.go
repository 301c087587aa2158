// Package interfaces contains the types that consumers of the settings synchronization core
// observe: the catalogue of change signals published on the notification bus, and the status of
// the settings registry.
package interfaces
