// Package bootstrap runs the startup sequence that brings the settings registry and every domain
// store to a usable state, and repeats it when the application comes back to the foreground.
package bootstrap
