package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/irrigation-controller/internal/fsm"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/schedule"
)

type harness struct {
	loop       *Loop
	clock      *clock
	radio      *fakeRadio
	transport  *fakeTransport
	store      *fakeStore
	console    *fakeConsole
	indicators *fakeIndicators
	reset      *fakeReset
	metrics    *recordingMetrics
	board      *Board
}

func newHarness() *harness {
	h := &harness{
		clock:      &clock{now: t0},
		radio:      &fakeRadio{networks: []model.Network{{SSID: "home", Signal: -52}, {SSID: "cafe", Signal: -80}}},
		transport:  &fakeTransport{status: 200, body: `{"zone1":true,"zone3":true}`},
		store:      &fakeStore{},
		console:    &fakeConsole{},
		indicators: &fakeIndicators{},
		reset:      &fakeReset{},
		metrics:    newRecordingMetrics(),
		board:      NewBoard("boot-1"),
	}
	h.loop = New(Deps{
		Radio:        h.radio,
		Transport:    h.transport,
		Codec:        schedule.JSONCodec{},
		Store:        h.store,
		Console:      h.console,
		Indicators:   h.indicators,
		Reset:        h.reset,
		Metrics:      h.metrics,
		Board:        h.board,
		TickInterval: time.Hour,
		SchedulePath: "/schedule",
		Now:          h.clock.Now,
	})
	return h
}

func (h *harness) cycle(t *testing.T) {
	t.Helper()
	h.clock.Advance(50 * time.Millisecond)
	require.NoError(t, h.loop.Cycle(context.Background()))
}

func TestLoop_CredentialEntryToSchedule(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.loop.Restore())
	assert.Equal(t, model.ModeEnteringCredentials, h.loop.State().Mode)

	h.cycle(t)
	assert.Contains(t, h.console.Printed(), "Enter SSID:")

	h.console.lines = append(h.console.lines, "home")
	h.cycle(t)
	assert.Contains(t, h.console.Printed(), "Enter Password:")
	assert.Equal(t, model.ModeEnteringCredentials, h.loop.State().Mode)

	// entered credentials select StartConnection in the same cycle
	h.console.lines = append(h.console.lines, "secret")
	h.cycle(t)
	st := h.loop.State()
	assert.Equal(t, model.ModeConnecting, st.Mode)
	assert.Equal(t, model.Credentials{SSID: "home", Password: "secret"}, st.Credentials)
	assert.False(t, st.ShouldReconnect)
	assert.True(t, st.CredentialsChanged)
	assert.Equal(t, []model.Credentials{{SSID: "home", Password: "secret"}}, h.radio.associated)
	assert.Contains(t, h.console.Printed(), "Credentials will be saved")
	assert.Contains(t, h.console.Printed(), "Initiating WiFi connection...")

	h.cycle(t)
	assert.False(t, h.loop.State().CredentialsChanged)
	require.NotNil(t, h.store.creds)
	assert.Equal(t, "home", h.store.creds.SSID)

	h.radio.status = model.RadioConnected
	h.cycle(t)
	st = h.loop.State()
	assert.Equal(t, model.ModeConnected, st.Mode)
	assert.False(t, st.ShouldPollNow)
	assert.Equal(t, [3]bool{true, false, true}, st.Schedule.Zones())
	assert.Equal(t, h.clock.Now(), st.LastPollTime)
	assert.Contains(t, h.console.Printed(), "Successfully connected to WiFi!")
	assert.Contains(t, h.console.Printed(), "Send 'c' to change credentials.")
	assert.Equal(t, []string{"/schedule"}, h.transport.paths)
	require.NotNil(t, h.store.schedule)
	assert.True(t, h.store.schedule.Zone1)

	assert.Equal(t, fsm.UpdateZones{}, fsm.Select(st, h.clock.Now()))
	h.cycle(t)
	assert.Equal(t, [3]bool{true, false, true}, h.indicators.zones)

	snap := h.board.Snapshot()
	assert.Equal(t, "boot-1", snap.BootID)
	assert.Equal(t, model.ModeConnected, snap.Mode)
	assert.Equal(t, "home", snap.SSID)
	require.NotNil(t, snap.LastPoll)
	assert.Equal(t, int64(1), h.metrics.counts["polls"])
	assert.Equal(t, int64(1), h.metrics.counts["credential_saves"])
	assert.Equal(t, 1.0, h.metrics.gauges["connected"])
}

func TestLoop_RestoreStoredState(t *testing.T) {
	h := newHarness()
	h.store.creds = &model.Credentials{SSID: "home", Password: "secret"}
	h.store.schedule = &model.Schedule{Zone2: true, LastUpdate: t0.Add(-time.Hour)}

	require.NoError(t, h.loop.Restore())
	st := h.loop.State()
	assert.Equal(t, model.ModeConnecting, st.Mode)
	assert.True(t, st.ShouldReconnect)
	assert.False(t, st.CredentialsChanged)
	assert.True(t, st.Schedule.Zone2)

	h.cycle(t)
	assert.Len(t, h.radio.associated, 1)
	assert.Nil(t, h.loop.pending)
}

func TestLoop_PollFailureSetsHTTPError(t *testing.T) {
	h := newHarness()
	h.store.creds = &model.Credentials{SSID: "home", Password: "secret"}
	require.NoError(t, h.loop.Restore())
	h.cycle(t)

	h.transport.status = 503
	h.radio.status = model.RadioConnected
	h.cycle(t)

	st := h.loop.State()
	assert.True(t, st.HTTPError)
	assert.False(t, st.ShouldPollNow)
	assert.False(t, st.Schedule.Received())
	assert.Equal(t, int64(1), h.metrics.counts["poll_errors"])
	assert.Nil(t, h.store.schedule)
}

func TestLoop_StorageFaultHalts(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.loop.Restore())
	h.loop.Step(fsm.CredentialsEntered{Credentials: model.Credentials{SSID: "home", Password: "secret"}})
	h.cycle(t)

	h.store.failSave = true
	h.clock.Advance(time.Millisecond)
	err := h.loop.Cycle(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorageFault))
	assert.True(t, errors.Is(err, errDisk))

	snap := h.board.Snapshot()
	assert.True(t, snap.Faulted)
	assert.Contains(t, snap.Fault, "storage fault")

	// a halted loop does not step again
	before := h.loop.State()
	assert.ErrorIs(t, h.loop.Cycle(context.Background()), ErrStorageFault)
	assert.Equal(t, before, h.loop.State())
}

func TestLoop_RestoreFault(t *testing.T) {
	h := newHarness()
	h.store.failLoad = true

	err := h.loop.Restore()
	assert.ErrorIs(t, err, ErrStorageFault)
	assert.True(t, h.board.Snapshot().Faulted)
}

func TestLoop_UnknownEventIgnored(t *testing.T) {
	type bogus struct{ fsm.None }

	h := newHarness()
	require.NoError(t, h.loop.Restore())
	before := h.loop.State()
	recorded := len(h.board.Events())

	h.loop.Step(bogus{})
	h.loop.Step(nil)
	assert.Equal(t, before, h.loop.State())
	assert.Len(t, h.board.Events(), recorded)
}

func TestLoop_ConnectTimeoutByTick(t *testing.T) {
	h := newHarness()
	h.radio.networks = nil
	h.store.creds = &model.Credentials{SSID: "home", Password: "secret"}
	h.loop = New(Deps{
		Radio:        h.radio,
		Transport:    h.transport,
		Codec:        schedule.JSONCodec{},
		Store:        h.store,
		Console:      h.console,
		Indicators:   h.indicators,
		Reset:        h.reset,
		Board:        h.board,
		TickInterval: 35 * time.Second,
		Now:          h.clock.Now,
	})
	require.NoError(t, h.loop.Restore())
	h.cycle(t)
	assert.Empty(t, h.radio.associated)
	assert.Equal(t, model.ModeConnecting, h.loop.State().Mode)

	// idle cycles leave lastUpdate alone
	for i := 0; i < 10; i++ {
		h.cycle(t)
	}
	assert.Equal(t, model.ModeConnecting, h.loop.State().Mode)

	h.clock.Advance(35 * time.Second)
	h.cycle(t)
	assert.Equal(t, model.ModeDisconnected, h.loop.State().Mode)
	assert.Contains(t, h.console.Printed(), "Not connected. Send 'r' to retry or 'c' to change credentials.")

	h.console.bytes = []byte{'r'}
	h.cycle(t)
	assert.Equal(t, model.ModeConnecting, h.loop.State().Mode)
	assert.Equal(t, 2, h.radio.scans)
}

func TestLoop_ScanFailureStillStartsConnecting(t *testing.T) {
	h := newHarness()
	h.radio.scanErr = errors.New("nmcli: no wifi device")
	h.store.creds = &model.Credentials{SSID: "home", Password: "secret"}
	require.NoError(t, h.loop.Restore())

	h.cycle(t)
	st := h.loop.State()
	assert.Equal(t, model.ModeConnecting, st.Mode)
	assert.False(t, st.ShouldReconnect)
	assert.Empty(t, h.radio.associated)
	assert.Equal(t, 1, h.radio.scans)
	assert.Equal(t, int64(1), h.metrics.counts["scan_errors"])
	assert.Equal(t, int64(1), h.metrics.counts["connection_attempts"])
}

func TestLoop_ConnectionLost(t *testing.T) {
	h := newHarness()
	h.store.creds = &model.Credentials{SSID: "home", Password: "secret"}
	require.NoError(t, h.loop.Restore())
	h.cycle(t)
	h.radio.status = model.RadioConnected
	h.cycle(t)

	h.radio.status = model.RadioConnectionLost
	h.cycle(t)
	st := h.loop.State()
	assert.Equal(t, model.ModeDisconnected, st.Mode)
	assert.Equal(t, model.RadioConnectionLost, st.RadioStatus)
	assert.Contains(t, h.console.Printed(), "WiFi connection lost")
	assert.False(t, h.indicators.status)
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, h.loop.Run(ctx))
	assert.Equal(t, model.ModeEnteringCredentials, h.loop.State().Mode)
}
