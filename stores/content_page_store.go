package stores

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/launchdarkly/ccache"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/sitesync/go-site-settings/interfaces"
	"github.com/sitesync/go-site-settings/subsystems"
)

// DefaultPageCacheSize is the number of resolved pages a ContentPageStore keeps for Peek.
const DefaultPageCacheSize = 100

const pageCacheTTL = 24 * time.Hour

var errMissingPageID = errors.New("content page has no page ID")

// ContentPageStore manages content pages, one remote record per page ID. It follows the same
// resolution rules as Store, with per-page defaults registered through RegisterDefault. A page
// with no registered default defaults to an empty page, and is not written back to the remote
// store when it is missing there.
type ContentPageStore struct {
	registry      Registry
	bus           Bus
	snapshots     subsystems.SnapshotStore
	defaults      map[string]ContentPage
	defaultsLock  sync.RWMutex
	pageCache     *ccache.Cache
	cacheLock     sync.RWMutex
	subscriptions map[<-chan ContentPage]<-chan interfaces.Event
	subsLock      sync.Mutex
	remoteCh      <-chan interfaces.Event
	loggers       ldlog.Loggers
}

// NewContentPageStore creates a ContentPageStore that keeps up to cacheSize resolved pages in
// memory. If cacheSize is not positive, DefaultPageCacheSize is used.
func NewContentPageStore(deps Dependencies, cacheSize int) *ContentPageStore {
	if cacheSize <= 0 {
		cacheSize = DefaultPageCacheSize
	}
	s := &ContentPageStore{
		registry:      deps.Registry,
		bus:           deps.Bus,
		snapshots:     deps.Snapshots,
		defaults:      make(map[string]ContentPage),
		pageCache:     ccache.New(ccache.Configure().MaxSize(int64(cacheSize))),
		subscriptions: make(map[<-chan ContentPage]<-chan interfaces.Event),
		loggers:       deps.Loggers,
	}
	s.loggers.SetPrefix("ContentPageStore:")
	s.remoteCh = s.bus.Subscribe(interfaces.EventContentPageUpdated)
	go s.consumeRemoteUpdates(s.remoteCh)
	return s
}

// RegisterDefault sets the compiled-in default for a page.
func (s *ContentPageStore) RegisterDefault(page ContentPage) {
	s.defaultsLock.Lock()
	s.defaults[page.PageID] = page
	s.defaultsLock.Unlock()
}

// DefaultPageIDs returns the IDs of all pages that have a registered default, sorted.
func (s *ContentPageStore) DefaultPageIDs() []string {
	s.defaultsLock.RLock()
	defer s.defaultsLock.RUnlock()
	ret := make([]string, 0, len(s.defaults))
	for id := range s.defaults {
		ret = append(ret, id)
	}
	sort.Strings(ret)
	return ret
}

func (s *ContentPageStore) defaultFor(pageID string) (ContentPage, bool) {
	s.defaultsLock.RLock()
	page, ok := s.defaults[pageID]
	s.defaultsLock.RUnlock()
	if !ok {
		return EmptyContentPage(pageID), false
	}
	// round-trip so that callers never share slices with the registered default
	if value, err := toValue(page); err == nil {
		if copied, err := fromValue[ContentPage](value); err == nil {
			return copied, true
		}
	}
	return page, true
}

// Resolve returns a page, resolved through the registry and merged over its default. It never
// fails; if the remote store cannot be reached, the result comes from the local snapshot or the
// default.
func (s *ContentPageStore) Resolve(ctx context.Context, pageID string) ContentPage {
	page, _ := s.resolve(ctx, pageID)
	return page
}

// Init resolves every page that has a registered default, and returns an error if any of them
// resolved in a degraded way.
func (s *ContentPageStore) Init(ctx context.Context) error {
	var result *multierror.Error
	for _, id := range s.DefaultPageIDs() {
		if _, err := s.resolve(ctx, id); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (s *ContentPageStore) resolve(ctx context.Context, pageID string) (ContentPage, error) {
	defaultPage, registered := s.defaultFor(pageID)
	res := s.registry.Resolve(ctx, subsystems.ContentPages, pageID)
	switch {
	case res.Found():
		merged, page, err := mergeAndDecode(defaultPage, res.Value, "remote")
		if err == nil {
			page.PageID = pageID
			s.remember(pageID, merged, true)
			return page, nil
		}
		s.loggers.Warnf("Ignoring remote value of page %q: %s", pageID, err)
		return s.fallBack(pageID, defaultPage, err)

	case res.Source == interfaces.SourceNotFound:
		if !registered {
			return defaultPage, nil
		}
		s.loggers.Infof("No stored value for page %q; seeding the remote store with its default", pageID)
		if err := s.Save(ctx, defaultPage); err != nil {
			s.loggers.Warnf("Unable to seed default for page %q: %s", pageID, err)
			return defaultPage, err
		}
		return defaultPage, nil

	default:
		return s.fallBack(pageID, defaultPage, res.Err)
	}
}

func (s *ContentPageStore) fallBack(pageID string, defaultPage ContentPage, cause error) (ContentPage, error) {
	if merged, page, ok := s.readSnapshot(pageID, defaultPage); ok {
		s.remember(pageID, merged, false)
		return page, degradedError{store: "page " + pageID, fallback: "local snapshot", cause: cause}
	}
	return defaultPage, degradedError{store: "page " + pageID, fallback: "defaults", cause: cause}
}

// Peek returns the last resolved value of a page without waiting for anything. If the page has
// not been resolved, or has been evicted from memory, it returns the local snapshot, or if there
// is none the default.
func (s *ContentPageStore) Peek(pageID string) ContentPage {
	if item := s.cacheGet(pageID); item != nil && !item.Expired() {
		if value, ok := item.Value().(ldvalue.Value); ok {
			if page, err := fromValue[ContentPage](value); err == nil {
				return page
			}
		}
	}
	defaultPage, _ := s.defaultFor(pageID)
	if _, page, ok := s.readSnapshot(pageID, defaultPage); ok {
		return page
	}
	return defaultPage
}

// Save writes a whole page through the registry. If that succeeds, the in-memory copy and the
// local snapshot are updated, then EventContentPageUpdated and EventSettingsChanged are published.
func (s *ContentPageStore) Save(ctx context.Context, page ContentPage) error {
	if page.PageID == "" {
		return errMissingPageID
	}
	if page.Sections == nil {
		page.Sections = []ContentSection{}
	}
	value, err := toValue(page)
	if err != nil {
		return err
	}
	if err := s.registry.Save(ctx, subsystems.ContentPages, page.PageID, value); err != nil {
		return err
	}
	s.remember(page.PageID, value, true)
	s.bus.Publish(interfaces.EventContentPageUpdated, value)
	s.bus.Publish(interfaces.EventSettingsChanged, interfaces.SettingsChangedPayload("content-page", value))
	return nil
}

// UpdateSection applies a patch to one section of a page and saves the page. It returns
// subsystems.ErrNotFound if the page has no such section.
func (s *ContentPageStore) UpdateSection(
	ctx context.Context,
	pageID, sectionID string,
	patch SectionPatch,
) (ContentPage, error) {
	return s.mutate(ctx, pageID, func(p *ContentPage) bool {
		for i := range p.Sections {
			if p.Sections[i].ID == sectionID {
				patch.applyTo(&p.Sections[i])
				return true
			}
		}
		return false
	})
}

// AddSection appends a section to a page and saves the page. If the section has no ID, one is
// generated.
func (s *ContentPageStore) AddSection(ctx context.Context, pageID string, section ContentSection) (ContentPage, error) {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	return s.mutate(ctx, pageID, func(p *ContentPage) bool {
		p.Sections = append(p.Sections, section)
		return true
	})
}

// RemoveSection removes one section from a page and saves the page. It returns
// subsystems.ErrNotFound if the page has no such section.
func (s *ContentPageStore) RemoveSection(ctx context.Context, pageID, sectionID string) (ContentPage, error) {
	return s.mutate(ctx, pageID, func(p *ContentPage) bool {
		for i := range p.Sections {
			if p.Sections[i].ID == sectionID {
				p.Sections = append(p.Sections[:i], p.Sections[i+1:]...)
				return true
			}
		}
		return false
	})
}

func (s *ContentPageStore) mutate(ctx context.Context, pageID string, fn func(*ContentPage) bool) (ContentPage, error) {
	page := s.Resolve(ctx, pageID)
	if !fn(&page) {
		return page, subsystems.ErrNotFound
	}
	if err := s.Save(ctx, page); err != nil {
		return page, err
	}
	return page, nil
}

// Reset forgets the in-memory copy and snapshot of a page, then saves its default.
func (s *ContentPageStore) Reset(ctx context.Context, pageID string) error {
	s.cacheDelete(pageID)
	if err := s.snapshots.Remove(snapshotKeyForPage(pageID)); err != nil {
		s.loggers.Warnf("Unable to remove local snapshot of page %q: %s", pageID, err)
	}
	defaultPage, _ := s.defaultFor(pageID)
	return s.Save(ctx, defaultPage)
}

// List returns every page known to the registry, sorted by page ID. Pages whose stored value is
// malformed are skipped.
func (s *ContentPageStore) List(ctx context.Context) []ContentPage {
	all := s.registry.GetAll(ctx, subsystems.ContentPages)
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	ret := make([]ContentPage, 0, len(ids))
	for _, id := range ids {
		defaultPage, _ := s.defaultFor(id)
		_, page, err := mergeAndDecode(defaultPage, all[id], "remote")
		if err != nil {
			s.loggers.Warnf("Skipping malformed page %q: %s", id, err)
			continue
		}
		page.PageID = id
		ret = append(ret, page)
	}
	return ret
}

// Subscribe returns a channel that receives each page saved in this context or another. The
// caller must keep reading it, or call Unsubscribe.
func (s *ContentPageStore) Subscribe() <-chan ContentPage {
	pageCh := make(chan ContentPage, 10)
	eventCh := s.bus.Subscribe(interfaces.EventContentPageUpdated)
	go func() {
		defer close(pageCh)
		for event := range eventCh {
			page, err := fromValue[ContentPage](event.Payload)
			if err != nil || page.PageID == "" {
				s.loggers.Warnf("Ignoring malformed page signal from context %s", event.Origin)
				continue
			}
			pageCh <- page
		}
	}()
	s.subsLock.Lock()
	s.subscriptions[pageCh] = eventCh
	s.subsLock.Unlock()
	return pageCh
}

// Unsubscribe stops a subscription created by Subscribe and closes its channel.
func (s *ContentPageStore) Unsubscribe(ch <-chan ContentPage) {
	s.subsLock.Lock()
	eventCh, ok := s.subscriptions[ch]
	delete(s.subscriptions, ch)
	s.subsLock.Unlock()
	if ok {
		s.bus.Unsubscribe(interfaces.EventContentPageUpdated, eventCh)
	}
}

// Close ends all subscriptions and releases the in-memory page cache.
func (s *ContentPageStore) Close() {
	s.subsLock.Lock()
	subs := s.subscriptions
	s.subscriptions = make(map[<-chan ContentPage]<-chan interfaces.Event)
	s.subsLock.Unlock()
	for _, eventCh := range subs {
		s.bus.Unsubscribe(interfaces.EventContentPageUpdated, eventCh)
	}
	s.bus.Unsubscribe(interfaces.EventContentPageUpdated, s.remoteCh)

	s.cacheLock.Lock()
	if s.pageCache != nil {
		s.pageCache.Stop()
		s.pageCache = nil
	}
	s.cacheLock.Unlock()
}

func (s *ContentPageStore) consumeRemoteUpdates(ch <-chan interfaces.Event) {
	for event := range ch {
		if !event.Remote {
			continue
		}
		pageID := event.Payload.GetByKey("pageId").StringValue()
		if pageID == "" {
			continue
		}
		defaultPage, _ := s.defaultFor(pageID)
		merged, _, err := mergeAndDecode(defaultPage, event.Payload, "signal")
		if err != nil {
			s.loggers.Warnf("Ignoring malformed page signal from context %s: %s", event.Origin, err)
			continue
		}
		s.remember(pageID, merged, true)
	}
}

func (s *ContentPageStore) remember(pageID string, value ldvalue.Value, persist bool) {
	s.cacheSet(pageID, value)
	if !persist {
		return
	}
	if err := s.snapshots.Set(snapshotKeyForPage(pageID), []byte(value.JSONString())); err != nil {
		s.loggers.Warnf("Unable to write local snapshot of page %q: %s", pageID, err)
	}
}

func (s *ContentPageStore) readSnapshot(pageID string, defaultPage ContentPage) (ldvalue.Value, ContentPage, bool) {
	data, ok, err := s.snapshots.Get(snapshotKeyForPage(pageID))
	if err != nil {
		s.loggers.Warnf("Unable to read local snapshot of page %q: %s", pageID, err)
		return ldvalue.Null(), defaultPage, false
	}
	if !ok {
		return ldvalue.Null(), defaultPage, false
	}
	merged, page, err := mergeAndDecode(defaultPage, ldvalue.Parse(data), "snapshot")
	if err != nil {
		s.loggers.Warnf("Ignoring local snapshot of page %q: %s", pageID, err)
		return ldvalue.Null(), defaultPage, false
	}
	page.PageID = pageID
	return merged, page, true
}

// The page cache is nil after Close, and ccache panics if used after Stop.
func (s *ContentPageStore) cacheGet(pageID string) *ccache.Item {
	var ret *ccache.Item
	s.cacheLock.RLock()
	if s.pageCache != nil {
		ret = s.pageCache.Get(pageID)
	}
	s.cacheLock.RUnlock()
	return ret
}

func (s *ContentPageStore) cacheSet(pageID string, value ldvalue.Value) {
	s.cacheLock.RLock()
	if s.pageCache != nil {
		s.pageCache.Set(pageID, value, pageCacheTTL)
	}
	s.cacheLock.RUnlock()
}

func (s *ContentPageStore) cacheDelete(pageID string) {
	s.cacheLock.RLock()
	if s.pageCache != nil {
		s.pageCache.Delete(pageID)
	}
	s.cacheLock.RUnlock()
}

func snapshotKeyForPage(pageID string) string {
	return "content_page:" + pageID
}
