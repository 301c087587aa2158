package syncbundle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/sitesync/go-site-settings/stores"
	"github.com/sitesync/go-site-settings/subsystems"
)

// CurrentFormatVersion is the format version written by Marshal.
const CurrentFormatVersion = 1

// Bundle is a point-in-time copy of the site configuration.
type Bundle struct {
	// FormatVersion identifies the document layout. Documents without one are treated as version 1.
	FormatVersion int
	// ExportedAt is when the bundle was created.
	ExportedAt time.Time
	// Settings holds the named settings, keyed by setting key. Nil means the bundle has no settings
	// section at all, as opposed to an empty one.
	Settings map[string]ldvalue.Value
	// Pages holds the content pages exactly as the remote store holds them, keyed by page ID. Each is
	// an object whose pageId matches its key. Nil means the bundle has no pages section.
	Pages map[string]ldvalue.Value
}

// LogoSettings returns the logo setting if the bundle contains one.
func (b Bundle) LogoSettings() (ldvalue.Value, bool) {
	value, ok := b.Settings[stores.LogoSettingKey]
	return value, ok
}

// Page decodes one page of the bundle. Properties that ContentPage does not model are not
// returned, but they stay in b.Pages and are written by Import. A missing page is reported as
// subsystems.ErrNotFound.
func (b Bundle) Page(pageID string) (stores.ContentPage, error) {
	var page stores.ContentPage
	value, ok := b.Pages[pageID]
	if !ok {
		return page, subsystems.ErrNotFound
	}
	if err := json.Unmarshal([]byte(value.JSONString()), &page); err != nil {
		return page, err
	}
	return page, nil
}

// checkPage verifies that a page stored under pageID is an object whose pageId, if present, is
// pageID. A page without a pageId gets one. Nothing else about the page is examined, since section
// contents vary with the section type.
func checkPage(pageID string, value ldvalue.Value) (ldvalue.Value, error) {
	if value.Type() != ldvalue.ObjectType {
		return ldvalue.Null(), fmt.Errorf("expected an object, got %s", value.Type())
	}
	id := value.GetByKey("pageId")
	switch {
	case id.IsNull():
		withID := ldvalue.ObjectBuildWithCapacity(value.Count() + 1)
		for _, k := range value.Keys(nil) {
			withID.Set(k, value.GetByKey(k))
		}
		return withID.Set("pageId", ldvalue.String(pageID)).Build(), nil
	case !id.IsString():
		return ldvalue.Null(), fmt.Errorf("pageId must be a string, got %s", id.Type())
	case id.StringValue() != pageID:
		return ldvalue.Null(), fmt.Errorf("page is stored under %q but its pageId is %q", pageID, id.StringValue())
	}
	return value, nil
}
