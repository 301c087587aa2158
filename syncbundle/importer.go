package syncbundle

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/sitesync/go-site-settings/subsystems"
)

// ImportResult lists what an import wrote.
type ImportResult struct {
	// Settings are the keys of the settings that were written, sorted.
	Settings []string
	// Pages are the IDs of the pages that were written, sorted.
	Pages []string
	// Failed are the settings and pages that could not be written, as "settings/<key>" or
	// "content_pages/<id>".
	Failed []string
}

// Importer writes bundles to the remote store.
type Importer struct {
	remote  subsystems.RemoteStore
	loggers ldlog.Loggers
}

// NewImporter creates an Importer.
func NewImporter(remote subsystems.RemoteStore, loggers ldlog.Loggers) *Importer {
	i := &Importer{remote: remote, loggers: loggers}
	i.loggers.SetPrefix("Importer:")
	return i
}

// Import writes every setting and page in the bundle to the remote store. Settings and pages that
// are not in the bundle are left as they are. A failure to write one item does not stop the others;
// all failures are returned together as a *multierror.Error.
func (i *Importer) Import(ctx context.Context, b Bundle) (ImportResult, error) {
	var result ImportResult
	var errs *multierror.Error

	for _, key := range sortedKeys(b.Settings) {
		if err := i.remote.Upsert(ctx, subsystems.Settings, key, b.Settings[key]); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("setting %q: %w", key, err))
			result.Failed = append(result.Failed, subsystems.Settings.String()+"/"+key)
			continue
		}
		result.Settings = append(result.Settings, key)
	}

	for _, id := range sortedKeys(b.Pages) {
		value, err := checkPage(id, b.Pages[id])
		if err == nil {
			err = i.remote.Upsert(ctx, subsystems.ContentPages, id, value)
		}
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("page %q: %w", id, err))
			result.Failed = append(result.Failed, subsystems.ContentPages.String()+"/"+id)
			continue
		}
		result.Pages = append(result.Pages, id)
	}

	if err := errs.ErrorOrNil(); err != nil {
		i.loggers.Errorf("Import incomplete: %d of %d items failed", len(result.Failed),
			len(b.Settings)+len(b.Pages))
		return result, err
	}
	i.loggers.Infof("Imported %d settings and %d pages", len(result.Settings), len(result.Pages))
	return result, nil
}

func sortedKeys[V any](m map[string]V) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
