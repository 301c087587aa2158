package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitesync/go-site-settings/interfaces"
	"github.com/sitesync/go-site-settings/subsystems"
)

// FooterSettingKey is the remote setting key of the footer settings.
const FooterSettingKey = "footer_settings"

// SocialLink is one social network link in the footer.
type SocialLink struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Icon     string `json:"icon"`
	Enabled  bool   `json:"enabled"`
}

// SocialLinkPatch describes a partial update to a SocialLink. Nil fields are left unchanged.
type SocialLinkPatch struct {
	Platform *string
	URL      *string
	Icon     *string
	Enabled  *bool
}

// QuickLink is one link in the footer's quick links column.
type QuickLink struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// QuickLinkPatch describes a partial update to a QuickLink. Nil fields are left unchanged.
type QuickLinkPatch struct {
	Label *string
	URL   *string
}

// FooterSettings describes the site footer.
type FooterSettings struct {
	CompanyName     string       `json:"companyName"`
	Description     string       `json:"description"`
	Address         string       `json:"address"`
	Phone           string       `json:"phone"`
	Email           string       `json:"email"`
	Copyright       string       `json:"copyright"`
	SocialLinks     []SocialLink `json:"socialLinks"`
	QuickLinks      []QuickLink  `json:"quickLinks"`
	ShowNewsletter  bool         `json:"showNewsletter"`
	NewsletterTitle string       `json:"newsletterTitle"`
}

// DefaultFooterSettings returns the compiled-in footer settings.
func DefaultFooterSettings() FooterSettings {
	return FooterSettings{
		CompanyName: "My Company",
		Description: "Building better solutions for tomorrow.",
		Address:     "123 Business Street, City, Country",
		Phone:       "+1 (555) 123-4567",
		Email:       "info@example.com",
		Copyright:   fmt.Sprintf("© %d My Company. All rights reserved.", time.Now().Year()),
		SocialLinks: []SocialLink{
			{ID: "facebook", Platform: "Facebook", URL: "https://facebook.com", Icon: "facebook", Enabled: true},
			{ID: "twitter", Platform: "Twitter", URL: "https://twitter.com", Icon: "twitter", Enabled: true},
			{ID: "linkedin", Platform: "LinkedIn", URL: "https://linkedin.com", Icon: "linkedin", Enabled: true},
			{ID: "instagram", Platform: "Instagram", URL: "https://instagram.com", Icon: "instagram", Enabled: true},
			{ID: "youtube", Platform: "YouTube", URL: "https://youtube.com", Icon: "youtube", Enabled: false},
		},
		QuickLinks: []QuickLink{
			{ID: "about", Label: "About Us", URL: "/about"},
			{ID: "services", Label: "Services", URL: "/services"},
			{ID: "contact", Label: "Contact", URL: "/contact"},
			{ID: "privacy", Label: "Privacy Policy", URL: "/privacy"},
		},
		ShowNewsletter:  true,
		NewsletterTitle: "Subscribe to our newsletter",
	}
}

// FooterStore is the domain store for the footer settings.
type FooterStore struct {
	*Store[FooterSettings]
}

// NewFooterStore creates a FooterStore.
func NewFooterStore(deps Dependencies) *FooterStore {
	return &FooterStore{
		Store: NewStore(Definition[FooterSettings]{
			Name:       "footer",
			SettingKey: FooterSettingKey,
			Event:      interfaces.EventFooterUpdated,
			Defaults:   DefaultFooterSettings,
		}, deps),
	}
}

// UpdateSocialLink applies a patch to the social link with the given ID and saves the footer.
// It returns subsystems.ErrNotFound if there is no such link.
func (s *FooterStore) UpdateSocialLink(ctx context.Context, id string, patch SocialLinkPatch) (FooterSettings, error) {
	return s.mutate(ctx, func(f *FooterSettings) bool {
		for i := range f.SocialLinks {
			if f.SocialLinks[i].ID != id {
				continue
			}
			link := &f.SocialLinks[i]
			setIfPresent(&link.Platform, patch.Platform)
			setIfPresent(&link.URL, patch.URL)
			setIfPresent(&link.Icon, patch.Icon)
			setIfPresent(&link.Enabled, patch.Enabled)
			return true
		}
		return false
	})
}

// UpdateQuickLink applies a patch to the quick link with the given ID and saves the footer.
// It returns subsystems.ErrNotFound if there is no such link.
func (s *FooterStore) UpdateQuickLink(ctx context.Context, id string, patch QuickLinkPatch) (FooterSettings, error) {
	return s.mutate(ctx, func(f *FooterSettings) bool {
		for i := range f.QuickLinks {
			if f.QuickLinks[i].ID == id {
				setIfPresent(&f.QuickLinks[i].Label, patch.Label)
				setIfPresent(&f.QuickLinks[i].URL, patch.URL)
				return true
			}
		}
		return false
	})
}

// AddQuickLink appends a quick link and saves the footer. If the link has no ID, one is generated.
func (s *FooterStore) AddQuickLink(ctx context.Context, link QuickLink) (FooterSettings, error) {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	return s.mutate(ctx, func(f *FooterSettings) bool {
		f.QuickLinks = append(f.QuickLinks, link)
		return true
	})
}

// RemoveQuickLink removes the quick link with the given ID and saves the footer. It returns
// subsystems.ErrNotFound if there is no such link.
func (s *FooterStore) RemoveQuickLink(ctx context.Context, id string) (FooterSettings, error) {
	return s.mutate(ctx, func(f *FooterSettings) bool {
		for i := range f.QuickLinks {
			if f.QuickLinks[i].ID == id {
				f.QuickLinks = append(f.QuickLinks[:i], f.QuickLinks[i+1:]...)
				return true
			}
		}
		return false
	})
}

func (s *FooterStore) mutate(ctx context.Context, fn func(*FooterSettings) bool) (FooterSettings, error) {
	item := s.Resolve(ctx)
	if !fn(&item) {
		return item, subsystems.ErrNotFound
	}
	if err := s.Save(ctx, item); err != nil {
		return item, err
	}
	return item, nil
}

func setIfPresent[V any](target *V, value *V) {
	if value != nil {
		*target = *value
	}
}
