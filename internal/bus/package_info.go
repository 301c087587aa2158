// Package bus is an internal package containing the notification bus that carries change signals
// between the settings registry, the domain stores, their consumers, and other execution contexts.
package bus
