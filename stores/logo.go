package stores

import (
	"github.com/sitesync/go-site-settings/interfaces"
)

// LogoSettingKey is the remote setting key of the logo settings.
const LogoSettingKey = "logo_settings"

// LogoSettings describes the site's branding.
type LogoSettings struct {
	LogoURL    string `json:"logoUrl"`
	AltText    string `json:"altText"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SiteName   string `json:"siteName"`
	FaviconURL string `json:"faviconUrl"`
}

// DefaultLogoSettings returns the compiled-in logo settings.
func DefaultLogoSettings() LogoSettings {
	return LogoSettings{
		LogoURL:    "/images/logo.png",
		AltText:    "Company Logo",
		Width:      150,
		Height:     50,
		SiteName:   "My Company",
		FaviconURL: "/favicon.ico",
	}
}

// LogoStore is the domain store for the logo settings.
type LogoStore struct {
	*Store[LogoSettings]
}

// NewLogoStore creates a LogoStore.
func NewLogoStore(deps Dependencies) *LogoStore {
	return &LogoStore{
		Store: NewStore(Definition[LogoSettings]{
			Name:       "logo",
			SettingKey: LogoSettingKey,
			Event:      interfaces.EventLogoUpdated,
			Defaults:   DefaultLogoSettings,
		}, deps),
	}
}
