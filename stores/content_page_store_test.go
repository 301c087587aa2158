package stores

import (
	"context"
	"errors"
	"testing"

	th "github.com/launchdarkly/go-test-helpers/v3"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesync/go-site-settings/interfaces"
	"github.com/sitesync/go-site-settings/subsystems"
)

func newPageStoreWithDefaults(p storeTestParams) *ContentPageStore {
	s := NewContentPageStore(p.deps, 0)
	for _, page := range DefaultContentPages() {
		s.RegisterDefault(page)
	}
	return s
}

func TestContentPageDefaults(t *testing.T) {
	storeTest(t, func(p storeTestParams) {
		s := newPageStoreWithDefaults(p)
		defer s.Close()
		assert.Equal(t, []string{"about", "home"}, s.DefaultPageIDs())

		require.NoError(t, s.Init(context.Background()))
		_, ok := p.remote.ForceGet(subsystems.ContentPages, "home")
		assert.True(t, ok)
		_, ok = p.remote.ForceGet(subsystems.ContentPages, "about")
		assert.True(t, ok)

		home := s.Peek("home")
		assert.Equal(t, "Home", home.PageName)
		hero, ok := home.Section("home-hero")
		require.True(t, ok)
		assert.Equal(t, SectionHero, hero.Type)
	})
}

func TestUnregisteredPageIsNotSeeded(t *testing.T) {
	storeTest(t, func(p storeTestParams) {
		s := newPageStoreWithDefaults(p)
		defer s.Close()

		page := s.Resolve(context.Background(), "careers")
		assert.Equal(t, EmptyContentPage("careers"), page)
		_, ok := p.remote.ForceGet(subsystems.ContentPages, "careers")
		assert.False(t, ok)
	})
}

func TestContentPageSections(t *testing.T) {
	storeTest(t, func(p storeTestParams) {
		s := newPageStoreWithDefaults(p)
		defer s.Close()
		ctx := context.Background()

		title := "Hello"
		page, err := s.UpdateSection(ctx, "home", "home-hero", SectionPatch{Title: &title})
		require.NoError(t, err)
		hero, _ := page.Section("home-hero")
		assert.Equal(t, "Hello", hero.Title)
		assert.Equal(t, "/images/hero.jpg", hero.ImageURL)

		gallery := ContentSection{
			Type:  SectionGallery,
			Items: ldvalue.ArrayOf(ldvalue.String("/a.jpg"), ldvalue.String("/b.jpg")),
		}
		page, err = s.AddSection(ctx, "home", gallery)
		require.NoError(t, err)
		require.Len(t, page.Sections, 4)
		added := page.Sections[3]
		assert.NotEmpty(t, added.ID)
		assert.Equal(t, 2, added.Items.Count())

		page, err = s.RemoveSection(ctx, "home", "home-stats")
		require.NoError(t, err)
		assert.Len(t, page.Sections, 3)
		_, ok := page.Section("home-stats")
		assert.False(t, ok)

		_, err = s.RemoveSection(ctx, "home", "home-stats")
		assert.ErrorIs(t, err, subsystems.ErrNotFound)
		_, err = s.UpdateSection(ctx, "home", "nope", SectionPatch{})
		assert.ErrorIs(t, err, subsystems.ErrNotFound)

		assert.Equal(t, page, s.Resolve(ctx, "home"))
		stored, _ := p.remote.ForceGet(subsystems.ContentPages, "home")
		assert.Equal(t, 3, stored.GetByKey("sections").Count())
	})
}

func TestSavePagePublishesSignals(t *testing.T) {
	storeTest(t, func(p storeTestParams) {
		s := newPageStoreWithDefaults(p)
		defer s.Close()
		pageCh := s.Subscribe()
		changedCh := p.bus.Subscribe(interfaces.EventSettingsChanged)

		page := ContentPage{PageID: "careers", PageName: "Careers"}
		require.NoError(t, s.Save(context.Background(), page))

		received := th.RequireValue(t, pageCh, timeout)
		assert.Equal(t, "careers", received.PageID)
		assert.Equal(t, []ContentSection{}, received.Sections)
		changed := th.RequireValue(t, changedCh, timeout)
		assert.Equal(t, "content-page", changed.Payload.GetByKey("type").StringValue())

		s.Unsubscribe(pageCh)
		th.AssertChannelClosed(t, pageCh, timeout)
	})
}

func TestSavePageWithoutID(t *testing.T) {
	storeTest(t, func(p storeTestParams) {
		s := newPageStoreWithDefaults(p)
		defer s.Close()
		assert.Error(t, s.Save(context.Background(), ContentPage{PageName: "x"}))
		assert.Len(t, p.remote.Upserts(), 0)
	})
}

func TestContentPageFallsBackToSnapshot(t *testing.T) {
	storeTest(t, func(p storeTestParams) {
		s := newPageStoreWithDefaults(p)
		page := ContentPage{PageID: "home", PageName: "Offline home", Sections: []ContentSection{}}
		require.NoError(t, s.Save(context.Background(), page))
		s.Close()

		p.remote.SetFakeError(errors.New("offline"))
		require.NoError(t, p.registry.Refresh(context.Background()))
		s2 := newPageStoreWithDefaults(p)
		defer s2.Close()

		assert.Equal(t, "Offline home", s2.Peek("home").PageName)
		resolved := s2.Resolve(context.Background(), "home")
		assert.Equal(t, "Offline home", resolved.PageName)
		assert.Equal(t, "home", resolved.PageID)

		err := s2.Init(context.Background())
		assert.Error(t, err)
	})
}

func TestResetPage(t *testing.T) {
	storeTest(t, func(p storeTestParams) {
		s := newPageStoreWithDefaults(p)
		defer s.Close()
		ctx := context.Background()
		_, err := s.RemoveSection(ctx, "about", "about-text")
		require.NoError(t, err)

		require.NoError(t, s.Reset(ctx, "about"))
		assert.Len(t, s.Peek("about").Sections, 1)
		assert.Len(t, s.Resolve(ctx, "about").Sections, 1)
	})
}

func TestListPages(t *testing.T) {
	storeTest(t, func(p storeTestParams) {
		p.remote.ForceSet(subsystems.ContentPages, "zeta", ldvalue.Parse([]byte(`{"pageId":"zeta","pageName":"Z","sections":[]}`)))
		p.remote.ForceSet(subsystems.ContentPages, "broken", ldvalue.String("?"))
		s := newPageStoreWithDefaults(p)
		defer s.Close()
		require.NoError(t, s.Init(context.Background()))

		var ids []string
		for _, page := range s.List(context.Background()) {
			ids = append(ids, page.PageID)
		}
		assert.Equal(t, []string{"about", "home", "zeta"}, ids)
	})
}

func TestPeekAfterCloseUsesSnapshot(t *testing.T) {
	storeTest(t, func(p storeTestParams) {
		s := newPageStoreWithDefaults(p)
		require.NoError(t, s.Save(context.Background(), ContentPage{PageID: "faq", PageName: "FAQ"}))
		s.Close()
		assert.Equal(t, "FAQ", s.Peek("faq").PageName)
	})
}
