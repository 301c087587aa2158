package stores

import (
	"context"

	"github.com/sitesync/go-site-settings/interfaces"
	"github.com/sitesync/go-site-settings/subsystems"
)

// NavigationSettingKey is the remote setting key of the navigation settings.
const NavigationSettingKey = "navigation_settings"

// NavItem is one entry of the site navigation. Items may be nested.
type NavItem struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	URL      string    `json:"url"`
	Enabled  bool      `json:"enabled"`
	Children []NavItem `json:"children"`
}

// NavItemPatch describes a partial update to a NavItem. Nil fields are left unchanged.
type NavItemPatch struct {
	Label   *string
	URL     *string
	Enabled *bool
}

// CallToAction is the navigation bar's highlighted button.
type CallToAction struct {
	Enabled bool   `json:"enabled"`
	Label   string `json:"label"`
	URL     string `json:"url"`
}

// NavigationSettings describes the site navigation bar.
type NavigationSettings struct {
	Items      []NavItem    `json:"items"`
	ShowSearch bool         `json:"showSearch"`
	CTA        CallToAction `json:"cta"`
}

// DefaultNavigationSettings returns the compiled-in navigation settings.
func DefaultNavigationSettings() NavigationSettings {
	return NavigationSettings{
		Items: []NavItem{
			{ID: "home", Label: "Home", URL: "/", Enabled: true, Children: []NavItem{}},
			{ID: "about", Label: "About", URL: "/about", Enabled: true, Children: []NavItem{}},
			{ID: "services", Label: "Services", URL: "/services", Enabled: true, Children: []NavItem{
				{ID: "consulting", Label: "Consulting", URL: "/services/consulting", Enabled: true, Children: []NavItem{}},
				{ID: "development", Label: "Development", URL: "/services/development", Enabled: true, Children: []NavItem{}},
			}},
			{ID: "contact", Label: "Contact", URL: "/contact", Enabled: true, Children: []NavItem{}},
		},
		ShowSearch: false,
		CTA:        CallToAction{Enabled: true, Label: "Get Started", URL: "/contact"},
	}
}

// NavigationStore is the domain store for the navigation settings.
type NavigationStore struct {
	*Store[NavigationSettings]
}

// NewNavigationStore creates a NavigationStore.
func NewNavigationStore(deps Dependencies) *NavigationStore {
	return &NavigationStore{
		Store: NewStore(Definition[NavigationSettings]{
			Name:       "navigation",
			SettingKey: NavigationSettingKey,
			Event:      interfaces.EventNavigationUpdated,
			Defaults:   DefaultNavigationSettings,
		}, deps),
	}
}

// UpdateNavItem applies a patch to the item with the given ID, at any depth, and saves the
// navigation. It returns subsystems.ErrNotFound if there is no such item.
func (s *NavigationStore) UpdateNavItem(ctx context.Context, id string, patch NavItemPatch) (NavigationSettings, error) {
	nav := s.Resolve(ctx)
	item := findNavItem(nav.Items, id)
	if item == nil {
		return nav, subsystems.ErrNotFound
	}
	setIfPresent(&item.Label, patch.Label)
	setIfPresent(&item.URL, patch.URL)
	setIfPresent(&item.Enabled, patch.Enabled)
	if err := s.Save(ctx, nav); err != nil {
		return nav, err
	}
	return nav, nil
}

func findNavItem(items []NavItem, id string) *NavItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
		if found := findNavItem(items[i].Children, id); found != nil {
			return found
		}
	}
	return nil
}
