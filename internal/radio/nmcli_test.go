package radio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := args[len(args)-1]
	if strings.Contains(strings.Join(args, " "), "device wifi connect") {
		key = "connect"
	}
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	return []byte(f.outputs[key]), f.errs[key]
}

func newTestNMCLI(f *fakeRunner, now *time.Time) *NMCLI {
	n := NewNMCLI("wlan0", time.Second)
	n.run = f.run
	n.now = func() time.Time { return *now }
	return n
}

func TestParseScan(t *testing.T) {
	out := "home:72\nguest\\:5g:40\n:10\nhome:80\ncafe:n/a\nneighbor:33\n"

	networks := parseScan([]byte(out))
	assert.Equal(t, []model.Network{
		{SSID: "home", Signal: 80},
		{SSID: "guest:5g", Signal: 40},
		{SSID: "neighbor", Signal: 33},
	}, networks)
}

func TestDeviceState(t *testing.T) {
	out := []byte("eth0:connected\nwlan0:disconnected\nlo:unmanaged\n")
	assert.Equal(t, "disconnected", deviceState(out, "wlan0"))
	assert.Equal(t, "", deviceState(out, "wlan1"))
}

func TestSplitTerse(t *testing.T) {
	assert.Equal(t, []string{"a:b", "c"}, splitTerse(`a\:b:c`))
	assert.Equal(t, []string{`back\slash`, "1"}, splitTerse(`back\\slash:1`))
	assert.Equal(t, []string{""}, splitTerse(""))
}

func TestStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	f := &fakeRunner{outputs: map[string]string{"status": "wlan0:disconnected\n"}, errs: map[string]error{}}
	n := newTestNMCLI(f, &now)

	assert.Equal(t, model.RadioIdle, n.Status())

	f.outputs["status"] = "wlan0:connected\n"
	assert.Equal(t, model.RadioIdle, n.Status(), "cached within a second")

	now = now.Add(2 * time.Second)
	assert.Equal(t, model.RadioConnected, n.Status())

	f.outputs["status"] = "wlan0:disconnected\n"
	now = now.Add(2 * time.Second)
	assert.Equal(t, model.RadioConnectionLost, n.Status())

	f.outputs["status"] = "wlan0:unavailable\n"
	n.wasConnected = false
	now = now.Add(2 * time.Second)
	assert.Equal(t, model.RadioNoNetwork, n.Status())
}

func TestStatus_CommandFailureIsIdle(t *testing.T) {
	now := time.Now()
	f := &fakeRunner{outputs: map[string]string{}, errs: map[string]error{"status": errors.New("nmcli not found")}}
	n := newTestNMCLI(f, &now)

	assert.Equal(t, model.RadioIdle, n.Status())
}

func TestAssociate_FailureSurfacesThroughStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	f := &fakeRunner{
		outputs: map[string]string{"status": "wlan0:disconnected\n"},
		errs:    map[string]error{"connect": errors.New("exit status 4")},
	}
	n := newTestNMCLI(f, &now)

	n.Associate("home", "wrong")

	require.Eventually(t, func() bool { return !n.associating() }, time.Second, 5*time.Millisecond)

	assert.Equal(t, model.RadioConnectFailed, n.Status())

	f.outputs["status"] = "wlan0:connected\n"
	now = now.Add(2 * time.Second)
	assert.Equal(t, model.RadioConnected, n.Status())

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Contains(t, f.calls, "nmcli device wifi connect home password wrong ifname wlan0")
}

// blockingRunner holds connect for one SSID until its context ends.
type blockingRunner struct {
	mu       sync.Mutex
	block    string
	started  chan struct{}
	attempts []string
}

func (b *blockingRunner) run(ctx context.Context, _ string, args ...string) ([]byte, error) {
	if len(args) < 4 || args[2] != "connect" {
		return []byte("wlan0:disconnected\n"), nil
	}
	ssid := args[3]
	b.mu.Lock()
	b.attempts = append(b.attempts, ssid)
	b.mu.Unlock()

	if ssid == b.block {
		close(b.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, nil
}

func (b *blockingRunner) Attempts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.attempts...)
}

func TestAssociate_NewCredentialsReplaceInFlightAttempt(t *testing.T) {
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	b := &blockingRunner{block: "typo-net", started: make(chan struct{})}
	n := NewNMCLI("wlan0", time.Minute)
	n.run = b.run
	n.now = func() time.Time { return now }

	n.Associate("typo-net", "wrong")
	select {
	case <-b.started:
	case <-time.After(time.Second):
		t.Fatal("first association never started")
	}

	n.Associate("home", "secret")

	require.Eventually(t, func() bool { return !n.associating() }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(b.Attempts()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"typo-net", "home"}, b.Attempts())

	// the cancelled attempt does not mark the radio failed
	n.mu.Lock()
	failed := n.failed
	n.mu.Unlock()
	assert.False(t, failed)
	assert.Equal(t, model.RadioIdle, n.Status())
}

func TestScan_Failure(t *testing.T) {
	now := time.Now()
	f := &fakeRunner{outputs: map[string]string{}, errs: map[string]error{"wlan0": errors.New("no wifi device")}}
	n := newTestNMCLI(f, &now)

	networks, err := n.Scan()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no wifi device")
	assert.Empty(t, networks)
}
