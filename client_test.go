package sitesync

import (
	"context"
	"errors"
	"testing"
	"time"

	th "github.com/launchdarkly/go-test-helpers/v3"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesync/go-site-settings/interfaces"
	"github.com/sitesync/go-site-settings/internal/sharedtest"
	"github.com/sitesync/go-site-settings/localstore"
	"github.com/sitesync/go-site-settings/mirror"
	"github.com/sitesync/go-site-settings/remotestore"
	"github.com/sitesync/go-site-settings/stores"
	"github.com/sitesync/go-site-settings/subsystems"
)

func makeTestClient(t *testing.T, config Config) *Client {
	config.Loggers = sharedtest.NewTestLoggers()
	client, err := MakeClient(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestMakeClientRequiresRemoteStore(t *testing.T) {
	client, err := MakeClient(Config{})
	assert.Nil(t, client)
	assert.Error(t, err)
}

func TestMakeClientReportsComponentErrors(t *testing.T) {
	fakeErr := errors.New("no")
	_, err := MakeClient(Config{RemoteStore: sharedtest.ComponentConfigurerThatReturnsError[subsystems.RemoteStore]{Err: fakeErr}})
	assert.ErrorIs(t, err, fakeErr)

	_, err = MakeClient(Config{
		RemoteStore: remotestore.NewMemoryStore(),
		Snapshots:   sharedtest.ComponentConfigurerThatReturnsError[subsystems.SnapshotStore]{Err: fakeErr},
	})
	assert.ErrorIs(t, err, fakeErr)
}

func TestStartupSeedsDefaults(t *testing.T) {
	remote := remotestore.NewMemoryStore()
	client := makeTestClient(t, Config{RemoteStore: remote})

	th.AssertChannelClosed(t, client.StartupComplete(), time.Second)
	for _, key := range []string{stores.LogoSettingKey, stores.FooterSettingKey, stores.NavigationSettingKey} {
		_, err := remote.Get(context.Background(), subsystems.Settings, key)
		assert.NoError(t, err, key)
	}
	for _, id := range []string{"home", "about"} {
		_, err := remote.Get(context.Background(), subsystems.ContentPages, id)
		assert.NoError(t, err, id)
	}
	assert.Equal(t, stores.DefaultLogoSettings(), client.Logo().Peek())
	assert.True(t, client.GetRegistryStatusProvider().GetStatus().Initialized)
}

func TestStartupWithUnreachableRemoteStillReturnsClient(t *testing.T) {
	remote := sharedtest.NewMockRemoteStore()
	remote.SetFakeError(errors.New("offline"))
	client, err := MakeClient(Config{
		RemoteStore: sharedtest.SingleComponentConfigurer[subsystems.RemoteStore]{Instance: remote},
		Loggers:     sharedtest.NewTestLoggers(),
	})
	require.NotNil(t, client)
	defer client.Close()
	require.Error(t, err)
	assert.NotEqual(t, ErrInitializationTimeout, err)

	assert.Equal(t, stores.DefaultFooterSettings().CompanyName, client.Footer().Resolve(context.Background()).CompanyName)
	assert.False(t, client.GetRegistryStatusProvider().GetStatus().Available)
}

func TestStartupTimeout(t *testing.T) {
	remote := sharedtest.NewMockRemoteStore()
	remote.EnableInstrumentedQueries(200 * time.Millisecond)
	client, err := MakeClient(Config{
		RemoteStore:   sharedtest.SingleComponentConfigurer[subsystems.RemoteStore]{Instance: remote},
		StartWaitTime: 10 * time.Millisecond,
		Loggers:       sharedtest.NewTestLoggers(),
	})
	require.NotNil(t, client)
	defer client.Close()
	assert.Equal(t, ErrInitializationTimeout, err)
	th.AssertChannelClosed(t, client.StartupComplete(), 5*time.Second)
}

func TestNoWaitReturnsImmediately(t *testing.T) {
	remote := sharedtest.NewMockRemoteStore()
	remote.EnableInstrumentedQueries(100 * time.Millisecond)
	client, err := MakeClient(Config{
		RemoteStore:   sharedtest.SingleComponentConfigurer[subsystems.RemoteStore]{Instance: remote},
		StartWaitTime: -1,
		Loggers:       sharedtest.NewTestLoggers(),
	})
	require.NoError(t, err)
	defer client.Close()
	th.AssertChannelClosed(t, client.StartupComplete(), 5*time.Second)
}

func TestCloseClosesRemoteStore(t *testing.T) {
	remote := sharedtest.NewMockRemoteStore()
	client, err := MakeClient(Config{
		RemoteStore: sharedtest.SingleComponentConfigurer[subsystems.RemoteStore]{Instance: remote},
		Loggers:     sharedtest.NewTestLoggers(),
	})
	require.NoError(t, err)
	require.NoError(t, client.Close())
	assert.True(t, remote.IsClosed())
	assert.NoError(t, client.Close())
}

func TestClientContextIsPassedToComponents(t *testing.T) {
	capture := sharedtest.ComponentConfigurerThatCapturesClientContext[subsystems.RemoteStore]{
		Configurer: remotestore.NewMemoryStore(),
	}
	client := makeTestClient(t, Config{RemoteStore: &capture, ContextID: "tab-7", FetchTimeout: time.Second})
	assert.Equal(t, "tab-7", client.ContextID())
	require.NotNil(t, capture.ReceivedClientContext)
	assert.Equal(t, "tab-7", capture.ReceivedClientContext.GetContextID())
	assert.Equal(t, time.Second, capture.ReceivedClientContext.GetFetchTimeout())
}

func TestGenericSettings(t *testing.T) {
	client := makeTestClient(t, Config{RemoteStore: remotestore.NewMemoryStore()})
	ctx := context.Background()
	ch := client.Subscribe(interfaces.EventSettingUpdated)

	require.NoError(t, client.SaveSetting(ctx, "theme", ldvalue.String("dark")))
	value, ok := client.GetSetting(ctx, "theme")
	assert.True(t, ok)
	assert.Equal(t, ldvalue.String("dark"), value)
	assert.Contains(t, client.GetAllSettings(ctx), "theme")

	e := th.RequireValue(t, ch, time.Second)
	assert.Equal(t, "theme", e.Payload.GetByKey("key").StringValue())
	client.Unsubscribe(interfaces.EventSettingUpdated, ch)
}

func TestChangesPropagateBetweenContexts(t *testing.T) {
	remote := remotestore.NewMemoryStore()
	hub := mirror.NewMemoryHub()
	tab1 := makeTestClient(t, Config{RemoteStore: remote, Mirror: hub})
	tab2 := makeTestClient(t, Config{RemoteStore: remote, Mirror: hub})
	<-tab1.StartupComplete()
	<-tab2.StartupComplete()
	ch := tab2.Subscribe(interfaces.EventFooterUpdated)

	disabled := false
	_, err := tab1.Footer().UpdateSocialLink(context.Background(), "linkedin", stores.SocialLinkPatch{Enabled: &disabled})
	require.NoError(t, err)

	e := th.RequireValue(t, ch, time.Second)
	assert.True(t, e.Remote)
	assert.Equal(t, tab1.ContextID(), e.Origin)
	assert.Eventually(t, func() bool {
		for _, link := range tab2.Footer().Peek().SocialLinks {
			if link.ID == "linkedin" {
				return !link.Enabled
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestSharedSnapshotsSurviveRestartWhileOffline(t *testing.T) {
	remote := sharedtest.NewMockRemoteStore()
	snapshots := localstore.NewMemoryStore()
	config := Config{
		RemoteStore: sharedtest.SingleComponentConfigurer[subsystems.RemoteStore]{Instance: remote},
		Snapshots:   localstore.Shared(snapshots),
		Loggers:     sharedtest.NewTestLoggers(),
	}
	first, err := MakeClient(config)
	require.NoError(t, err)
	_, err = first.Logo().Update(context.Background(), func(l *stores.LogoSettings) { l.SiteName = "Acme" })
	require.NoError(t, err)
	require.NoError(t, first.Close())

	remote.SetFakeError(errors.New("offline"))
	second, err := MakeClient(config)
	require.Error(t, err)
	defer second.Close()
	assert.Equal(t, "Acme", second.Logo().Resolve(context.Background()).SiteName)
}

func TestExportAndImport(t *testing.T) {
	ctx := context.Background()
	source := makeTestClient(t, Config{RemoteStore: remotestore.NewMemoryStore()})
	<-source.StartupComplete()
	_, err := source.Navigation().Update(ctx, func(n *stores.NavigationSettings) { n.ShowSearch = true })
	require.NoError(t, err)

	data, err := source.ExportBundle(ctx)
	require.NoError(t, err)

	target := makeTestClient(t, Config{RemoteStore: remotestore.NewMemoryStore()})
	<-target.StartupComplete()
	assert.False(t, target.Navigation().Peek().ShowSearch)

	result, err := target.ImportBundle(ctx, data)
	require.NoError(t, err)
	assert.Contains(t, result.Settings, stores.NavigationSettingKey)
	assert.Contains(t, result.Pages, "home")
	assert.True(t, target.Navigation().Peek().ShowSearch, "import refreshes the importing client")
}

func TestImportBundleRejectsMalformedInput(t *testing.T) {
	client := makeTestClient(t, Config{RemoteStore: remotestore.NewMemoryStore()})
	_, err := client.ImportBundle(context.Background(), []byte(`{"settings":{}}`))
	assert.Error(t, err)
}
