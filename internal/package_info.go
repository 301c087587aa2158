// Package internal contains helpers shared by the settings synchronization packages. These types are
// not visible from outside of the module.
package internal
