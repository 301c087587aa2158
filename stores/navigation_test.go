package stores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesync/go-site-settings/subsystems"
)

func TestUpdateNavItem(t *testing.T) {
	storeTest(t, func(p storeTestParams) {
		s := NewNavigationStore(p.deps)
		defer s.Close()
		ctx := context.Background()

		label := "Advisory"
		nav, err := s.UpdateNavItem(ctx, "consulting", NavItemPatch{Label: &label})
		require.NoError(t, err)
		assert.Equal(t, "Advisory", nav.Items[2].Children[0].Label)
		assert.Equal(t, "/services/consulting", nav.Items[2].Children[0].URL)

		disabled := false
		nav, err = s.UpdateNavItem(ctx, "about", NavItemPatch{Enabled: &disabled})
		require.NoError(t, err)
		assert.False(t, nav.Items[1].Enabled)
		assert.Equal(t, "Advisory", nav.Items[2].Children[0].Label)

		stored, _ := p.remote.ForceGet(subsystems.Settings, NavigationSettingKey)
		assert.Equal(t, "Advisory",
			stored.GetByKey("items").GetByIndex(2).GetByKey("children").GetByIndex(0).GetByKey("label").StringValue())
		assert.Equal(t, nav, s.Resolve(ctx))
	})
}

func TestUpdateNavItemUnknownID(t *testing.T) {
	storeTest(t, func(p storeTestParams) {
		s := NewNavigationStore(p.deps)
		defer s.Close()
		_, err := s.UpdateNavItem(context.Background(), "blog", NavItemPatch{})
		assert.ErrorIs(t, err, subsystems.ErrNotFound)
	})
}

func TestFindNavItem(t *testing.T) {
	items := DefaultNavigationSettings().Items
	assert.Equal(t, "Home", findNavItem(items, "home").Label)
	assert.Equal(t, "Development", findNavItem(items, "development").Label)
	assert.Nil(t, findNavItem(items, "missing"))
	assert.Nil(t, findNavItem(nil, "home"))
}
