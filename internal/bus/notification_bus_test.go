package bus

import (
	"errors"
	"sync"
	"testing"
	"time"

	th "github.com/launchdarkly/go-test-helpers/v3"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldlogtest"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitesync/go-site-settings/interfaces"
	"github.com/sitesync/go-site-settings/internal/sharedtest"
	"github.com/sitesync/go-site-settings/mirror"
	"github.com/sitesync/go-site-settings/subsystems"
)

const timeout = time.Second

type recordingMirror struct {
	sent     chan subsystems.MirrorMessage
	onSend   func(subsystems.MirrorMessage)
	sendErr  error
	deliver  func(subsystems.MirrorMessage)
	startErr error
	closed   bool
	lock     sync.Mutex
}

func newRecordingMirror() *recordingMirror {
	return &recordingMirror{sent: make(chan subsystems.MirrorMessage, 10)}
}

func (m *recordingMirror) Start(deliver func(subsystems.MirrorMessage)) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.deliver = deliver
	return m.startErr
}

func (m *recordingMirror) Send(msg subsystems.MirrorMessage) error {
	if m.onSend != nil {
		m.onSend(msg)
	}
	m.sent <- msg
	return m.sendErr
}

func (m *recordingMirror) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.closed = true
	return nil
}

func (m *recordingMirror) receive(msg subsystems.MirrorMessage) {
	m.lock.Lock()
	deliver := m.deliver
	m.lock.Unlock()
	deliver(msg)
}

func TestPublishWithoutMirror(t *testing.T) {
	b, err := NewNotificationBus("ctx1", nil, sharedtest.NewTestLoggers())
	require.NoError(t, err)
	defer b.Close()

	ch := b.Subscribe(interfaces.EventFooterUpdated)
	other := b.Subscribe(interfaces.EventLogoUpdated)
	payload := ldvalue.ObjectBuild().Set("companyName", ldvalue.String("Acme")).Build()
	b.Publish(interfaces.EventFooterUpdated, payload)

	e := th.RequireValue(t, ch, timeout)
	assert.Equal(t, interfaces.EventFooterUpdated, e.Name)
	assert.Equal(t, payload, e.Payload)
	assert.Equal(t, "ctx1", e.Origin)
	assert.False(t, e.Remote)
	th.AssertNoMoreValues(t, other, 20*time.Millisecond)
}

func TestInContextDeliveryPrecedesMirrorSend(t *testing.T) {
	m := newRecordingMirror()
	b, err := NewNotificationBus("ctx1", m, sharedtest.NewTestLoggers())
	require.NoError(t, err)
	defer b.Close()

	ch := b.Subscribe(interfaces.EventSettingUpdated)
	var queuedAtSend int
	m.onSend = func(subsystems.MirrorMessage) { queuedAtSend = len(ch) }

	b.Publish(interfaces.EventSettingUpdated, ldvalue.String("x"))

	msg := th.RequireValue(t, m.sent, timeout)
	assert.Equal(t, 1, queuedAtSend)
	assert.Equal(t, "ctx1", msg.Origin)
	assert.Equal(t, string(interfaces.EventSettingUpdated), msg.Event)
	assert.Equal(t, ldvalue.String("x"), msg.Payload)
	assert.NotEmpty(t, msg.ID)
}

func TestMirrorSendsPreservePublishOrder(t *testing.T) {
	m := newRecordingMirror()
	b, err := NewNotificationBus("ctx1", m, sharedtest.NewTestLoggers())
	require.NoError(t, err)
	defer b.Close()

	for i := 0; i < 5; i++ {
		b.Publish(interfaces.EventSettingsChanged, ldvalue.Int(i))
	}
	for i := 0; i < 5; i++ {
		msg := th.RequireValue(t, m.sent, timeout)
		assert.Equal(t, ldvalue.Int(i), msg.Payload)
	}
}

func TestInitializationSignalIsNotMirrored(t *testing.T) {
	m := newRecordingMirror()
	b, err := NewNotificationBus("ctx1", m, sharedtest.NewTestLoggers())
	require.NoError(t, err)
	defer b.Close()

	ch := b.Subscribe(interfaces.EventSettingsInitialized)
	b.Publish(interfaces.EventSettingsInitialized, ldvalue.ObjectBuild().Build())
	th.RequireValue(t, ch, timeout)
	th.AssertNoMoreValues(t, m.sent, 50*time.Millisecond)
}

func TestRemoteMessagesAreDeliveredAsRemote(t *testing.T) {
	m := newRecordingMirror()
	b, err := NewNotificationBus("ctx1", m, sharedtest.NewTestLoggers())
	require.NoError(t, err)
	defer b.Close()

	ch := b.Subscribe(interfaces.EventLogoUpdated)
	m.receive(subsystems.MirrorMessage{
		ID:      "m1",
		Origin:  "ctx2",
		Event:   string(interfaces.EventLogoUpdated),
		Payload: ldvalue.String("v"),
		Time:    time.Now(),
	})

	e := th.RequireValue(t, ch, timeout)
	assert.True(t, e.Remote)
	assert.Equal(t, "ctx2", e.Origin)
	assert.Equal(t, ldvalue.String("v"), e.Payload)
	th.AssertNoMoreValues(t, m.sent, 50*time.Millisecond, "remote signals must not be mirrored again")
}

func TestOwnMessagesFromMirrorAreIgnored(t *testing.T) {
	m := newRecordingMirror()
	b, err := NewNotificationBus("ctx1", m, sharedtest.NewTestLoggers())
	require.NoError(t, err)
	defer b.Close()

	ch := b.Subscribe(interfaces.EventLogoUpdated)
	m.receive(subsystems.MirrorMessage{ID: "m1", Origin: "ctx1", Event: string(interfaces.EventLogoUpdated)})
	th.AssertNoMoreValues(t, ch, 50*time.Millisecond)
}

func TestMirrorSendFailureIsLogged(t *testing.T) {
	mockLog := ldlogtest.NewMockLog()
	defer mockLog.DumpIfTestFailed(t)
	m := newRecordingMirror()
	m.sendErr = errors.New("sorry")
	b, err := NewNotificationBus("ctx1", m, mockLog.Loggers)
	require.NoError(t, err)

	b.Publish(interfaces.EventFooterUpdated, ldvalue.Null())
	th.RequireValue(t, m.sent, timeout)
	require.NoError(t, b.Close()) // waits for the worker

	mockLog.AssertMessageMatch(t, true, ldlog.Warn, "Unable to mirror signal")
}

func TestMirrorStartFailure(t *testing.T) {
	m := newRecordingMirror()
	m.startErr = errors.New("no")
	_, err := NewNotificationBus("ctx1", m, sharedtest.NewTestLoggers())
	assert.Equal(t, m.startErr, err)
}

func TestCloseClosesSubscribersAndMirror(t *testing.T) {
	m := newRecordingMirror()
	b, err := NewNotificationBus("ctx1", m, sharedtest.NewTestLoggers())
	require.NoError(t, err)

	ch := b.Subscribe(interfaces.EventFooterUpdated)
	require.NoError(t, b.Close())
	th.AssertChannelClosed(t, ch, timeout)
	assert.True(t, m.closed)

	b.Publish(interfaces.EventFooterUpdated, ldvalue.Null())
	th.AssertNoMoreValues(t, m.sent, 20*time.Millisecond)
	th.AssertChannelClosed(t, b.Subscribe(interfaces.EventFooterUpdated), timeout)
	require.NoError(t, b.Close())
}

func TestUnsubscribe(t *testing.T) {
	b, err := NewNotificationBus("ctx1", nil, sharedtest.NewTestLoggers())
	require.NoError(t, err)
	defer b.Close()

	ch1 := b.Subscribe(interfaces.EventFooterUpdated)
	ch2 := b.Subscribe(interfaces.EventFooterUpdated)
	b.Unsubscribe(interfaces.EventFooterUpdated, ch1)
	th.AssertChannelClosed(t, ch1, timeout)

	b.Publish(interfaces.EventFooterUpdated, ldvalue.Bool(true))
	assert.Equal(t, ldvalue.Bool(true), th.RequireValue(t, ch2, timeout).Payload)
}

func TestTwoContextsThroughMemoryHub(t *testing.T) {
	hub := mirror.NewMemoryHub()
	b1, err := NewNotificationBus("tab1", hub.NewEndpoint(), sharedtest.NewTestLoggers())
	require.NoError(t, err)
	defer b1.Close()
	b2, err := NewNotificationBus("tab2", hub.NewEndpoint(), sharedtest.NewTestLoggers())
	require.NoError(t, err)
	defer b2.Close()

	ch1 := b1.Subscribe(interfaces.EventNavigationUpdated)
	ch2 := b2.Subscribe(interfaces.EventNavigationUpdated)

	b1.Publish(interfaces.EventNavigationUpdated, ldvalue.String("nav"))

	local := th.RequireValue(t, ch1, timeout)
	assert.False(t, local.Remote)
	remote := th.RequireValue(t, ch2, timeout)
	assert.True(t, remote.Remote)
	assert.Equal(t, "tab1", remote.Origin)
	assert.Equal(t, ldvalue.String("nav"), remote.Payload)
	th.AssertNoMoreValues(t, ch1, 50*time.Millisecond)
}
