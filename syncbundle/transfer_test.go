package syncbundle

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesync/go-site-settings/internal/sharedtest"
	"github.com/sitesync/go-site-settings/remotestore"
	"github.com/sitesync/go-site-settings/stores"
	"github.com/sitesync/go-site-settings/subsystems"
)

type freshReadRecorder struct {
	*remotestore.MemoryStore
	freshReads int
}

func (f *freshReadRecorder) GetAll(ctx context.Context, kind subsystems.DataKind) ([]subsystems.KeyedValue, error) {
	if subsystems.IsFreshRead(ctx) {
		f.freshReads++
	}
	return f.MemoryStore.GetAll(ctx, kind)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	remote := &freshReadRecorder{MemoryStore: remotestore.NewMemoryStore()}
	require.NoError(t, remote.Upsert(ctx, subsystems.Settings, "logo_settings", ldvalue.ObjectBuild().Build()))
	require.NoError(t, remote.Upsert(ctx, subsystems.ContentPages, "home",
		ldvalue.Parse([]byte(`{"pageId":"home","pageName":"Home","sections":[]}`))))

	e := NewExporter(remote, sharedtest.NewTestLoggers())
	e.now = func() time.Time { return exportTime }
	b, err := e.Export(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, remote.freshReads)
	assert.Equal(t, exportTime, b.ExportedAt)
	assert.Equal(t, CurrentFormatVersion, b.FormatVersion)
	assert.Len(t, b.Settings, 1)
	require.Len(t, b.Pages, 1)
	assert.Equal(t, "Home", b.Pages["home"].GetByKey("pageName").StringValue())
}

func TestExportFailsOnUnreadablePage(t *testing.T) {
	ctx := context.Background()
	remote := remotestore.NewMemoryStore()
	require.NoError(t, remote.Upsert(ctx, subsystems.ContentPages, "home",
		ldvalue.Parse([]byte(`{"pageId":"home","sections":[]}`))))
	require.NoError(t, remote.Upsert(ctx, subsystems.ContentPages, "broken", ldvalue.String("x")))

	_, err := NewExporter(remote, sharedtest.NewTestLoggers()).Export(ctx)
	var malformed *subsystems.MalformedPayloadError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, err.Error(), "broken")
}

func TestExportFailure(t *testing.T) {
	remote := sharedtest.NewMockRemoteStore()
	fakeErr := errors.New("offline")
	remote.SetFakeError(fakeErr)
	_, err := NewExporter(remote, sharedtest.NewTestLoggers()).Export(context.Background())
	assert.Equal(t, fakeErr, err)
}

func TestImportWritesOnlyWhatIsInTheBundle(t *testing.T) {
	ctx := context.Background()
	remote := sharedtest.NewMockRemoteStore()
	remote.ForceSet(subsystems.Settings, "navigation_settings", ldvalue.String("untouched"))

	result, err := NewImporter(remote, sharedtest.NewTestLoggers()).Import(ctx, makeTestBundle())
	require.NoError(t, err)
	assert.Equal(t, []string{"footer_settings", "logo_settings"}, result.Settings)
	assert.Equal(t, []string{"about"}, result.Pages)
	assert.Empty(t, result.Failed)

	upserts := remote.Upserts()
	require.Len(t, upserts, 3)
	assert.Equal(t, "footer_settings", upserts[0].Key)
	assert.Equal(t, "logo_settings", upserts[1].Key)
	assert.Equal(t, subsystems.ContentPages, upserts[2].Kind)
	assert.Equal(t, "about", upserts[2].Value.GetByKey("pageId").StringValue())

	nav, _ := remote.ForceGet(subsystems.Settings, "navigation_settings")
	assert.Equal(t, ldvalue.String("untouched"), nav)
}

func TestImportReportsEveryFailure(t *testing.T) {
	remote := sharedtest.NewMockRemoteStore()
	remote.SetFakeWriteError(errors.New("read-only"))

	result, err := NewImporter(remote, sharedtest.NewTestLoggers()).Import(context.Background(), makeTestBundle())
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 3)
	assert.Equal(t, []string{"settings/footer_settings", "settings/logo_settings", "content_pages/about"}, result.Failed)
	assert.Empty(t, result.Settings)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := remotestore.NewMemoryStore()
	page := stores.DefaultContentPages()[0]
	pageValue := ldvalue.FromJSONMarshal(page)
	require.NoError(t, source.Upsert(ctx, subsystems.ContentPages, page.PageID, pageValue))
	require.NoError(t, source.Upsert(ctx, subsystems.ContentPages, "landing", ldvalue.Parse([]byte(
		`{"pageId":"landing","sections":[{"id":"hero","type":"hero","buttonText":"Go","buttonLink":"/go"}]}`))))
	require.NoError(t, source.Upsert(ctx, subsystems.Settings, "logo_settings",
		ldvalue.ObjectBuild().Set("siteName", ldvalue.String("Acme")).Build()))

	b, err := NewExporter(source, sharedtest.NewTestLoggers()).Export(ctx)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), FileName(b.ExportedAt))
	require.NoError(t, WriteFile(path, b))
	loaded, err := ReadFile(path)
	require.NoError(t, err)

	target := remotestore.NewMemoryStore()
	_, err = NewImporter(target, sharedtest.NewTestLoggers()).Import(ctx, loaded)
	require.NoError(t, err)

	for _, kind := range subsystems.AllDataKinds() {
		expected, _ := source.GetAll(ctx, kind)
		actual, _ := target.GetAll(ctx, kind)
		assert.Equal(t, expected, actual, kind.String())
	}
	landing, err := target.Get(ctx, subsystems.ContentPages, "landing")
	require.NoError(t, err)
	assert.Equal(t, "Go", landing.GetByKey("sections").GetByIndex(0).GetByKey("buttonText").StringValue())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "site-settings-20260304-050607.json", FileName(exportTime))
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
