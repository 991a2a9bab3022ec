// Package fsm holds the controller's Moore machine: the State, the Event and
// Effect vocabularies, the transition function and the output selector.
// Nothing in this package performs I/O or reads the wall clock; the caller
// supplies "now" on every call.
package fsm

import (
	"time"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

// State is owned by the driver loop and only ever replaced by Transition.
type State struct {
	Mode               model.Mode
	Credentials        model.Credentials
	CredentialsChanged bool
	ShouldReconnect    bool
	ShouldPollNow      bool
	RadioStatus        model.RadioStatus
	Schedule           model.Schedule
	HTTPError          bool
	LastPollTime       time.Time
	LastUpdate         time.Time
}

// Initial is the state the machine starts in at boot.
func Initial() State {
	return State{Mode: model.ModeInitializing}
}

// Rules carries the timing constants used by Transition and Select.
type Rules struct {
	ConnectTimeout time.Duration
	PollInterval   time.Duration
}

const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultPollInterval   = 30 * time.Second
)

var DefaultRules = Rules{
	ConnectTimeout: DefaultConnectTimeout,
	PollInterval:   DefaultPollInterval,
}
