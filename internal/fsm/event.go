package fsm

import "github.com/thatsimonsguy/irrigation-controller/internal/model"

// Event is an input symbol consumed by Transition. The set is closed: every
// implementation lives in this file.
type Event interface {
	Name() string
	isEvent()
}

type None struct{}

type RequestCredentials struct{}

type CredentialsEntered struct {
	Credentials model.Credentials
}

// CredentialsLoaded carries credentials restored from the store at boot.
type CredentialsLoaded struct {
	Credentials model.Credentials
}

type ConnectionStarted struct{}

type RetryConnection struct{}

type RadioConnected struct {
	Status model.RadioStatus
}

type RadioDisconnected struct {
	Status model.RadioStatus
}

type ScheduleReceived struct {
	Schedule model.Schedule
}

// ScheduleRestored carries the schedule restored from the store at boot.
type ScheduleRestored struct {
	Schedule model.Schedule
}

type HTTPError struct{}

type CredentialsSaved struct{}

type PollStarted struct{}

type Tick struct{}

func (None) Name() string               { return "none" }
func (RequestCredentials) Name() string { return "request_credentials" }
func (CredentialsEntered) Name() string { return "credentials_entered" }
func (CredentialsLoaded) Name() string  { return "credentials_loaded" }
func (ConnectionStarted) Name() string  { return "connection_started" }
func (RetryConnection) Name() string    { return "retry_connection" }
func (RadioConnected) Name() string     { return "radio_connected" }
func (RadioDisconnected) Name() string  { return "radio_disconnected" }
func (ScheduleReceived) Name() string   { return "schedule_received" }
func (ScheduleRestored) Name() string   { return "schedule_restored" }
func (HTTPError) Name() string          { return "http_error" }
func (CredentialsSaved) Name() string   { return "credentials_saved" }
func (PollStarted) Name() string        { return "poll_started" }
func (Tick) Name() string               { return "tick" }

func (None) isEvent()               {}
func (RequestCredentials) isEvent() {}
func (CredentialsEntered) isEvent() {}
func (CredentialsLoaded) isEvent()  {}
func (ConnectionStarted) isEvent()  {}
func (RetryConnection) isEvent()    {}
func (RadioConnected) isEvent()     {}
func (RadioDisconnected) isEvent()  {}
func (ScheduleReceived) isEvent()   {}
func (ScheduleRestored) isEvent()   {}
func (HTTPError) isEvent()          {}
func (CredentialsSaved) isEvent()   {}
func (PollStarted) isEvent()        {}
func (Tick) isEvent()               {}

// IsNone reports whether e carries no input.
func IsNone(e Event) bool {
	_, ok := e.(None)
	return ok || e == nil
}
