package subsystems

// DataKind represents a separately namespaced collection of records held by the remote store.
//
// The core treats every kind generically: a record is a key plus an opaque JSON value. The remote
// store implementation decides how each kind maps onto its own endpoints or tables.
type DataKind string

const (
	// Settings is the kind for named setting records, such as "footer_settings".
	Settings DataKind = "settings"
	// ContentPages is the kind for content page records. The key is the page identifier and the
	// value is the JSON form of the page (pageId, pageName, sections).
	ContentPages DataKind = "content_pages"
)

// AllDataKinds returns every kind the core knows about, in the order in which they are loaded.
func AllDataKinds() []DataKind {
	return []DataKind{Settings, ContentPages}
}

// String returns the namespace of the kind.
func (k DataKind) String() string {
	return string(k)
}
