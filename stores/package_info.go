// Package stores contains the domain stores: typed views over individual settings (logo, footer,
// navigation) and over content pages, each resolved through the settings registry and merged with
// compiled-in defaults.
//
// Every store offers two ways to read. Resolve goes through the registry and may wait for the
// remote store; Peek never waits, and returns the last resolved value, else the local snapshot,
// else the compiled default. Rendering code should use Peek.
//
// Item-level mutators such as FooterStore.UpdateSocialLink read the whole settings object, change
// one item, and save the whole object back. There is no locking or version check across that round
// trip: if two contexts update different items of the same object at the same time, the later save
// overwrites the earlier one.
package stores
