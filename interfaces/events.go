package interfaces

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// EventName identifies a kind of change signal.
type EventName string

const (
	// EventSettingUpdated is published by the registry after every successful save. Its payload is
	// an object with "kind", "key" and "value" properties.
	EventSettingUpdated EventName = "setting-updated"

	// EventSettingsInitialized is published by the registry after each successful full load. Its
	// payload is an object with a "settings" property mapping every setting key to its value.
	EventSettingsInitialized EventName = "settings-initialized"

	// EventSettingsChanged is the catch-all signal for listeners that do not care which domain
	// changed. Domain stores publish it immediately after their domain-specific event; its payload
	// is an object with "type" (the domain name) and "settings" (the domain's whole value).
	EventSettingsChanged EventName = "settings-changed"

	// EventLogoUpdated is the logo store's domain-specific signal; the payload is the whole logo
	// settings object.
	EventLogoUpdated EventName = "logo-updated"

	// EventFooterUpdated is the footer store's domain-specific signal; the payload is the whole
	// footer settings object.
	EventFooterUpdated EventName = "footer-updated"

	// EventNavigationUpdated is the navigation store's domain-specific signal; the payload is the
	// whole navigation settings object.
	EventNavigationUpdated EventName = "navigation-updated"

	// EventContentPageUpdated is the content page store's signal; the payload is the whole page.
	EventContentPageUpdated EventName = "content-page-updated"
)

// Event is a change signal as delivered to a subscriber.
type Event struct {
	// Name is the kind of signal.
	Name EventName
	// Payload is the signal's payload; its shape depends on Name.
	Payload ldvalue.Value
	// Origin is the identifier of the execution context that published the signal.
	Origin string
	// Remote is true if the signal was published by another execution context and arrived
	// through the cross-context mirror.
	Remote bool
}

// SettingUpdatedPayload builds the payload of an EventSettingUpdated signal.
func SettingUpdatedPayload(kind, key string, value ldvalue.Value) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("kind", ldvalue.String(kind)).
		Set("key", ldvalue.String(key)).
		Set("value", value).
		Build()
}

// SettingsChangedPayload builds the payload of an EventSettingsChanged signal.
func SettingsChangedPayload(domain string, settings ldvalue.Value) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("type", ldvalue.String(domain)).
		Set("settings", settings).
		Build()
}
