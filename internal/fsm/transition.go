package fsm

import (
	"errors"
	"fmt"
	"time"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

var ErrUnknownEvent = errors.New("unknown event")

// Transition applies e to s at time now and returns the next state.
// Every recognized event stamps LastUpdate. An unrecognized event returns s
// untouched together with ErrUnknownEvent; callers log it and carry on.
func (r Rules) Transition(s State, e Event, now time.Time) (State, error) {
	prior := s.LastUpdate
	next := s
	next.LastUpdate = now

	switch ev := e.(type) {
	case None:

	case RequestCredentials:
		next.Mode = model.ModeEnteringCredentials

	case CredentialsEntered:
		next.Credentials = ev.Credentials
		next.CredentialsChanged = true
		next.ShouldReconnect = true
		next.Mode = model.ModeConnecting

	case CredentialsLoaded:
		next.Credentials = ev.Credentials
		next.ShouldReconnect = true
		next.Mode = model.ModeConnecting

	case ConnectionStarted:
		next.ShouldReconnect = false

	case RetryConnection:
		next.ShouldReconnect = true
		next.Mode = model.ModeConnecting

	case RadioConnected:
		next.Mode = model.ModeConnected
		next.RadioStatus = ev.Status
		next.ShouldReconnect = false
		next.LastPollTime = time.Time{}
		next.ShouldPollNow = true

	case RadioDisconnected:
		next.Mode = model.ModeDisconnected
		next.RadioStatus = ev.Status

	case ScheduleReceived:
		next.Schedule = ev.Schedule
		next.LastPollTime = now
		next.HTTPError = false

	case ScheduleRestored:
		next.Schedule = ev.Schedule

	case HTTPError:
		next.HTTPError = true
		next.LastPollTime = now

	case CredentialsSaved:
		next.CredentialsChanged = false

	case PollStarted:
		next.ShouldPollNow = false

	case Tick:
		if next.Mode == model.ModeConnecting && now.Sub(prior) > r.ConnectTimeout {
			next.Mode = model.ModeDisconnected
		}

	default:
		return s, fmt.Errorf("%w: %T", ErrUnknownEvent, e)
	}

	return next, nil
}

// Transition applies e using DefaultRules.
func Transition(s State, e Event, now time.Time) (State, error) {
	return DefaultRules.Transition(s, e, now)
}
