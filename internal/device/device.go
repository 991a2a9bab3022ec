package device

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/gpio"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

const (
	connectingBlinkPhase = 250 * time.Millisecond // 2 Hz
	faultBlinkPhase      = 100 * time.Millisecond // 5 Hz
	buttonSampleInterval = 100 * time.Millisecond
)

// StatusLevel is the status LED level for mode at now: solid while
// connected, blinking while connecting, off otherwise.
func StatusLevel(mode model.Mode, now time.Time) bool {
	switch mode {
	case model.ModeConnected:
		return true
	case model.ModeConnecting:
		return blink(now, connectingBlinkPhase)
	default:
		return false
	}
}

// FaultLevel is the status LED level while the controller is halted.
func FaultLevel(now time.Time) bool {
	return blink(now, faultBlinkPhase)
}

func blink(now time.Time, phase time.Duration) bool {
	return (now.UnixMilli()/phase.Milliseconds())%2 == 0
}

type Pins struct {
	Status model.GPIOPin
	Zones  [3]model.GPIOPin
}

// Indicators drives the status and zone LEDs. Pins are only written when
// their level changes.
type Indicators struct {
	pins Pins

	mu     sync.Mutex
	status *bool
	zones  [3]*bool
}

func NewIndicators(pins Pins) *Indicators {
	return &Indicators{pins: pins}
}

func (i *Indicators) SetStatus(on bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status != nil && *i.status == on {
		return
	}
	gpio.Set(i.pins.Status, on)
	i.status = &on
}

func (i *Indicators) SetZones(zones [3]bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for n, on := range zones {
		if i.zones[n] != nil && *i.zones[n] == on {
			continue
		}
		log.Info().Int("zone", n+1).Bool("on", on).Msg("Zone indicator changed")
		gpio.Set(i.pins.Zones[n], on)
		v := on
		i.zones[n] = &v
	}
}

// Off drives every indicator inactive.
func (i *Indicators) Off() {
	i.SetStatus(false)
	i.SetZones([3]bool{})
}

// Named lists every output pin by name, for startup validation and the boot script.
func (p Pins) Named() map[string]model.GPIOPin {
	return map[string]model.GPIOPin{
		"status_led": p.Status,
		"zone1_led":  p.Zones[0],
		"zone2_led":  p.Zones[1],
		"zone3_led":  p.Zones[2],
	}
}

// ResetButton reports press edges of a momentary input, plus presses
// triggered remotely through Trigger.
type ResetButton struct {
	pin      model.GPIOPin
	read     func(model.GPIOPin) bool
	now      func() time.Time
	latched  atomic.Bool
	sampled  time.Time
	wasHeld  bool
	disabled bool
}

// NewResetButton watches pin. A zero pin number disables the physical
// button; Trigger still works.
func NewResetButton(pin model.GPIOPin) *ResetButton {
	b := &ResetButton{
		pin:      pin,
		read:     gpio.CurrentlyActive,
		now:      time.Now,
		disabled: pin.Number == 0,
	}
	if !b.disabled {
		gpio.ConfigureInput(pin)
	}
	return b
}

// Trigger latches one activation, consumed by the next Pressed call.
func (b *ResetButton) Trigger() {
	b.latched.Store(true)
}

// Pressed reports a new activation since the last call. The pin is sampled
// at most every buttonSampleInterval.
func (b *ResetButton) Pressed() bool {
	if b.latched.CompareAndSwap(true, false) {
		return true
	}
	if b.disabled {
		return false
	}

	now := b.now()
	if !b.sampled.IsZero() && now.Sub(b.sampled) < buttonSampleInterval {
		return false
	}
	b.sampled = now

	held := b.read(b.pin)
	edge := held && !b.wasHeld
	b.wasHeld = held
	return edge
}
