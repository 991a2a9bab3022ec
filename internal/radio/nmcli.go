// Package radio drives the Wi-Fi interface through NetworkManager's nmcli.
package radio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

const statusCacheTTL = time.Second

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return out, fmt.Errorf("%s %s: %w (stderr: %s)", name, args[0], err, strings.TrimSpace(string(ee.Stderr)))
		}
		return out, fmt.Errorf("%s %s: %w", name, args[0], err)
	}
	return out, nil
}

// NMCLI reports radio status codes for one interface. Association runs in the
// background; its outcome only shows up through Status.
type NMCLI struct {
	iface   string
	run     Runner
	timeout time.Duration
	now     func() time.Time

	mu           sync.Mutex
	cached       model.RadioStatus
	cachedAt     time.Time
	wasConnected bool
	failed       bool

	// attempt is bumped on every Associate; only the newest attempt may
	// record its outcome.
	attempt uint64
	cancel  context.CancelFunc
}

func NewNMCLI(iface string, connectTimeout time.Duration) *NMCLI {
	return &NMCLI{
		iface:   iface,
		run:     execRunner,
		timeout: connectTimeout,
		now:     time.Now,
	}
}

// Status maps the interface's NetworkManager state onto a radio status code.
// Results are cached briefly so the loop can sample it every cycle.
func (n *NMCLI) Status() model.RadioStatus {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if !n.cachedAt.IsZero() && now.Sub(n.cachedAt) < statusCacheTTL {
		return n.cached
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := n.run(ctx, "nmcli", "-t", "-f", "DEVICE,STATE", "device", "status")
	state := ""
	if err != nil {
		log.Debug().Err(err).Msg("Failed to read device status")
	} else {
		state = deviceState(out, n.iface)
	}

	n.cached = n.classify(state)
	n.cachedAt = now
	return n.cached
}

func (n *NMCLI) classify(state string) model.RadioStatus {
	switch {
	case state == "connected":
		n.wasConnected = true
		n.failed = false
		return model.RadioConnected
	case n.failed:
		return model.RadioConnectFailed
	case n.wasConnected:
		return model.RadioConnectionLost
	case state == "unavailable":
		return model.RadioNoNetwork
	default:
		return model.RadioIdle
	}
}

// Scan triggers a rescan and returns the visible networks.
func (n *NMCLI) Scan() ([]model.Network, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	out, err := n.run(ctx, "nmcli", "-t", "-f", "SSID,SIGNAL", "device", "wifi", "list", "--rescan", "yes", "ifname", n.iface)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", n.iface, err)
	}
	return parseScan(out), nil
}

// Associate starts joining ssid and returns immediately. An attempt still in
// flight is cancelled in favour of the new credentials.
func (n *NMCLI) Associate(ssid, password string) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)

	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
		log.Info().Str("ssid", ssid).Msg("Replacing in-flight association")
	}
	n.attempt++
	attempt := n.attempt
	n.cancel = cancel
	n.mu.Unlock()

	go func() {
		defer cancel()

		_, err := n.run(ctx, "nmcli", "device", "wifi", "connect", ssid, "password", password, "ifname", n.iface)

		n.mu.Lock()
		defer n.mu.Unlock()
		if attempt != n.attempt {
			log.Debug().Str("ssid", ssid).Msg("Superseded association finished")
			return
		}
		n.cancel = nil
		n.cachedAt = time.Time{}
		if err != nil {
			n.failed = true
			log.Warn().Err(err).Str("ssid", ssid).Msg("Association failed")
			return
		}
		log.Info().Str("ssid", ssid).Msg("Association completed")
	}()
}

// associating reports whether an attempt is still in flight.
func (n *NMCLI) associating() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cancel != nil
}

// LocalAddress returns the interface's first IPv4 address, or "" when it has none.
func (n *NMCLI) LocalAddress() string {
	ifc, err := net.InterfaceByName(n.iface)
	if err != nil {
		return ""
	}
	addrs, err := ifc.Addrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() != nil {
			return ipn.IP.String()
		}
	}
	return ""
}

func deviceState(out []byte, iface string) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := splitTerse(scanner.Text())
		if len(fields) >= 2 && fields[0] == iface {
			return fields[1]
		}
	}
	return ""
}

func parseScan(out []byte) []model.Network {
	var networks []model.Network
	seen := map[string]int{}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := splitTerse(scanner.Text())
		if len(fields) < 2 || fields[0] == "" {
			continue
		}
		signal, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			continue
		}
		ssid := strings.Join(fields[:len(fields)-1], ":")

		// several access points can share a name; keep the strongest
		if i, ok := seen[ssid]; ok {
			if signal > networks[i].Signal {
				networks[i].Signal = signal
			}
			continue
		}
		seen[ssid] = len(networks)
		networks = append(networks, model.Network{SSID: ssid, Signal: signal})
	}
	return networks
}

// splitTerse splits one line of nmcli terse output on unescaped colons.
func splitTerse(line string) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}
