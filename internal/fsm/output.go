package fsm

import (
	"time"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

// Select returns the one effect the state calls for, first match wins.
// Effects with external consequences (connecting, committing credentials)
// come before observational ones.
func (r Rules) Select(s State, now time.Time) Effect {
	if s.ShouldReconnect {
		return StartConnection{}
	}

	if s.CredentialsChanged {
		return SaveCredentials{}
	}

	if s.Mode == model.ModeConnected {
		if s.ShouldPollNow {
			return PollSchedule{}
		}
		if now.Sub(s.LastPollTime) > r.PollInterval {
			return PollSchedule{}
		}
		if s.Schedule.Received() {
			return UpdateZones{}
		}
	}

	return UpdateIndicators{Mode: s.Mode}
}

// Select picks the effect using DefaultRules.
func Select(s State, now time.Time) Effect {
	return DefaultRules.Select(s, now)
}
