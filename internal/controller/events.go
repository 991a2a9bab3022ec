package controller

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/fsm"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

type promptPhase int

const (
	promptIdle promptPhase = iota
	promptAwaitName
	promptAwaitSecret
)

// EventSource samples the inputs once per cycle and turns the highest
// priority one into an Event: console, then radio status, then the tick
// timer, then the reset control. It never blocks.
type EventSource struct {
	console      Console
	radio        Radio
	reset        ResetControl
	tickInterval time.Duration

	nextTick time.Time
	phase    promptPhase
	name     string
}

func NewEventSource(console Console, radio Radio, reset ResetControl, tickInterval time.Duration) *EventSource {
	return &EventSource{
		console:      console,
		radio:        radio,
		reset:        reset,
		tickInterval: tickInterval,
	}
}

// Next returns at most one event for the current cycle, fsm.None when
// nothing happened.
func (s *EventSource) Next(st fsm.State, now time.Time) fsm.Event {
	if st.Mode == model.ModeEnteringCredentials {
		if ev := s.prompt(); ev != nil {
			return s.emit(ev)
		}
	} else {
		s.resetPrompt()
		if c, ok := s.console.PollByte(); ok {
			return s.emit(parseCommand(c, st.Mode))
		}
	}

	if status := s.radio.Status(); status != st.RadioStatus {
		log.Debug().
			Str("from", st.RadioStatus.String()).
			Str("to", status.String()).
			Msg("Radio status changed")
		if status == model.RadioConnected {
			return fsm.RadioConnected{Status: status}
		}
		return fsm.RadioDisconnected{Status: status}
	}

	if s.tickDue(now) {
		return fsm.Tick{}
	}

	if s.reset != nil && s.reset.Pressed() {
		log.Info().Msg("Reset requested, entering credential mode")
		return s.emit(fsm.RequestCredentials{})
	}

	return fsm.None{}
}

func (s *EventSource) emit(ev fsm.Event) fsm.Event {
	if _, ok := ev.(fsm.RequestCredentials); ok {
		s.resetPrompt()
	}
	return ev
}

func (s *EventSource) tickDue(now time.Time) bool {
	if s.nextTick.IsZero() {
		s.nextTick = now.Add(s.tickInterval)
		return false
	}
	if now.Before(s.nextTick) {
		return false
	}
	s.nextTick = now.Add(s.tickInterval)
	return true
}

func parseCommand(c byte, mode model.Mode) fsm.Event {
	switch c {
	case 'r', 'R':
		if mode == model.ModeDisconnected {
			return fsm.RetryConnection{}
		}
	case 'c', 'C':
		return fsm.RequestCredentials{}
	}
	return fsm.None{}
}

// prompt advances the credential dialogue by at most one line. It returns
// nil while it is still waiting for input.
func (s *EventSource) prompt() fsm.Event {
	switch s.phase {
	case promptIdle:
		s.console.Drain()
		s.console.Println("Enter SSID:")
		s.phase = promptAwaitName
		return nil

	case promptAwaitName:
		line, ok := s.console.ReadLine()
		if !ok {
			return nil
		}
		name := strings.TrimSpace(line)
		if !model.ValidCredentialLength(name) {
			s.console.Println("Invalid SSID length. Aborting.")
			return fsm.RequestCredentials{}
		}
		s.name = name
		s.console.Println("Enter Password:")
		s.phase = promptAwaitSecret
		return nil

	case promptAwaitSecret:
		line, ok := s.console.ReadLine()
		if !ok {
			return nil
		}
		secret := strings.TrimSpace(line)
		if !model.ValidCredentialLength(secret) {
			s.console.Println("Invalid password length. Aborting.")
			return fsm.RequestCredentials{}
		}
		creds := model.Credentials{SSID: s.name, Password: secret}
		s.resetPrompt()
		log.Info().Str("ssid", creds.SSID).Msg("Credentials entered")
		return fsm.CredentialsEntered{Credentials: creds}
	}
	return nil
}

func (s *EventSource) resetPrompt() {
	s.phase = promptIdle
	s.name = ""
}
