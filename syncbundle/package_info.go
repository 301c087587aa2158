// Package syncbundle exports the whole site configuration (every named setting and every content
// page) into one portable document, and imports such a document into another environment.
//
// Export and import talk to the remote store directly. An import does not change any client's
// cache; call sitesync.Client.Refresh afterward, or use sitesync.Client.ImportBundle which does so.
package syncbundle
