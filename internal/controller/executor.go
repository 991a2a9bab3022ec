package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/device"
	"github.com/thatsimonsguy/irrigation-controller/internal/fsm"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/schedule"
)

// ErrStorageFault marks a failed write or read of the durable store. The
// loop stops on it.
var ErrStorageFault = errors.New("storage fault")

// Stepper lets an effect feed an intermediate event back into the machine
// while it runs.
type Stepper interface {
	Step(fsm.Event)
	State() fsm.State
}

// Executor performs effects against the collaborators and reports the
// follow-up event, if any.
type Executor struct {
	radio      Radio
	transport  Transport
	codec      Codec
	store      Store
	console    Console
	indicators Indicators
	metrics    Metrics
	path       string
	now        func() time.Time

	signals map[string]int
}

func NewExecutor(d Deps) *Executor {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	return &Executor{
		radio:      d.Radio,
		transport:  d.Transport,
		codec:      d.Codec,
		store:      d.Store,
		console:    d.Console,
		indicators: d.Indicators,
		metrics:    d.Metrics,
		path:       d.SchedulePath,
		now:        now,
		signals:    map[string]int{},
	}
}

// Execute runs eff. The returned event is fsm.None when there is nothing to
// feed back; a non-nil error always wraps ErrStorageFault.
func (x *Executor) Execute(ctx context.Context, eff fsm.Effect, m Stepper) (fsm.Event, error) {
	switch e := eff.(type) {
	case fsm.NoEffect:

	case fsm.UpdateIndicators:
		x.indicators.SetStatus(device.StatusLevel(e.Mode, x.now()))

	case fsm.UpdateZones:
		x.indicators.SetZones(m.State().Schedule.Zones())

	case fsm.SaveCredentials:
		return x.saveCredentials(m.State().Credentials)

	case fsm.StartConnection:
		return x.startConnection(m.State().Credentials), nil

	case fsm.PollSchedule:
		m.Step(fsm.PollStarted{})
		return x.pollSchedule(ctx)

	case fsm.RenderStatus:
		x.renderStatus(e.Mode, m.State())

	case fsm.LogConnected:
		addr := x.radio.LocalAddress()
		x.console.Println("Successfully connected to WiFi!")
		x.console.Println("IP address:", addr)
		log.Info().Str("ssid", m.State().Credentials.SSID).Str("address", addr).Msg("Connected to WiFi")

	case fsm.LogDisconnected:
		x.console.Println("WiFi connection lost")
		log.Warn().Str("status", m.State().RadioStatus.String()).Msg("WiFi connection lost")

	default:
		log.Warn().Str("effect", fmt.Sprintf("%T", eff)).Msg("Unknown effect ignored")
	}
	return fsm.None{}, nil
}

func (x *Executor) saveCredentials(c model.Credentials) (fsm.Event, error) {
	if err := x.store.SaveCredentials(c); err != nil {
		return fsm.None{}, fmt.Errorf("%w: save credentials: %w", ErrStorageFault, err)
	}
	x.metrics.Count("credential_saves", 1)
	log.Info().Str("ssid", c.SSID).Msg("Credentials saved")
	return fsm.CredentialsSaved{}, nil
}

func (x *Executor) startConnection(c model.Credentials) fsm.Event {
	x.console.Println("Initiating WiFi connection...")

	networks, err := x.radio.Scan()
	switch {
	case err != nil:
		x.metrics.Count("scan_errors", 1)
		log.Warn().Err(err).Msg("WiFi scan failed")
	case len(networks) == 0:
		log.Warn().Msg("No networks found")
	}

	found := false
	for _, n := range networks {
		x.signals[n.SSID] = n.Signal
		log.Info().Str("ssid", n.SSID).Int("signal", n.Signal).Msg("Found network")
		if n.SSID == c.SSID {
			found = true
		}
	}

	if found {
		x.radio.Associate(c.SSID, c.Password)
	} else if len(networks) > 0 {
		log.Warn().Str("ssid", c.SSID).Msg("Target network not found in scan")
	}

	x.metrics.Count("connection_attempts", 1)
	return fsm.ConnectionStarted{}
}

func (x *Executor) pollSchedule(ctx context.Context) (fsm.Event, error) {
	x.metrics.Count("polls", 1)

	status, body, err := x.transport.Get(ctx, x.path)
	if err != nil {
		return x.pollFailed(err), nil
	}
	if status != http.StatusOK {
		return x.pollFailed(fmt.Errorf("%w: %d", schedule.ErrStatus, status)), nil
	}
	zones, err := x.codec.Decode(body)
	if err != nil {
		return x.pollFailed(err), nil
	}

	sch := zones.Schedule()
	sch.LastUpdate = x.now()
	if err := x.store.SaveSchedule(sch); err != nil {
		return fsm.None{}, fmt.Errorf("%w: save schedule: %w", ErrStorageFault, err)
	}

	log.Info().
		Bool("zone1", sch.Zone1).
		Bool("zone2", sch.Zone2).
		Bool("zone3", sch.Zone3).
		Msg("Schedule received")
	return fsm.ScheduleReceived{Schedule: sch}, nil
}

func (x *Executor) pollFailed(err error) fsm.Event {
	x.metrics.Count("poll_errors", 1)
	log.Warn().Err(err).Str("url", x.transport.URL(x.path)).Msg("Schedule poll failed")
	return fsm.HTTPError{}
}

func (x *Executor) renderStatus(mode model.Mode, st fsm.State) {
	switch mode {
	case model.ModeConnected:
		ssid := st.Credentials.SSID
		x.console.Println("Connected to:", ssid)
		x.console.Println("IP address:", x.radio.LocalAddress())
		if signal, ok := x.signals[ssid]; ok {
			x.console.Println("Signal strength:", signal)
		}
		x.console.Println("Send 'c' to change credentials.")
	case model.ModeDisconnected:
		x.console.Println("Not connected. Send 'r' to retry or 'c' to change credentials.")
	case model.ModeConnecting:
		x.console.Println("Connecting...")
	case model.ModeInitializing:
		x.console.Println("Initializing...")
	}
}
