package syncbundle

import (
	"context"
	"fmt"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/sitesync/go-site-settings/subsystems"
)

// Exporter reads the current configuration straight from the remote store.
type Exporter struct {
	remote  subsystems.RemoteStore
	now     func() time.Time
	loggers ldlog.Loggers
}

// NewExporter creates an Exporter.
func NewExporter(remote subsystems.RemoteStore, loggers ldlog.Loggers) *Exporter {
	e := &Exporter{remote: remote, now: time.Now, loggers: loggers}
	e.loggers.SetPrefix("Exporter:")
	return e
}

// Export builds a bundle from every setting and page in the remote store. It bypasses every cache,
// including any response cache inside the remote store adapter. Pages are copied as stored. Remote
// failures are returned, and so is a page that is not a page object, rather than leaving it out.
func (e *Exporter) Export(ctx context.Context) (Bundle, error) {
	ctx = subsystems.WithFreshReads(ctx)
	settings, err := e.remote.GetAll(ctx, subsystems.Settings)
	if err != nil {
		return Bundle{}, err
	}
	pages, err := e.remote.GetAll(ctx, subsystems.ContentPages)
	if err != nil {
		return Bundle{}, err
	}

	b := Bundle{
		FormatVersion: CurrentFormatVersion,
		ExportedAt:    e.now().UTC(),
		Settings:      make(map[string]ldvalue.Value, len(settings)),
		Pages:         make(map[string]ldvalue.Value, len(pages)),
	}
	for _, item := range settings {
		b.Settings[item.Key] = item.Value
	}
	for _, item := range pages {
		page, err := checkPage(item.Key, item.Value)
		if err != nil {
			e.loggers.Errorf("Unable to export page %q: %s", item.Key, err)
			return Bundle{}, &subsystems.MalformedPayloadError{
				Source: "remote",
				Err:    fmt.Errorf("page %q: %w", item.Key, err),
			}
		}
		b.Pages[item.Key] = page
	}
	e.loggers.Infof("Exported %d settings and %d pages", len(b.Settings), len(b.Pages))
	return b, nil
}
