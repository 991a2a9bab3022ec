package fsm

import "github.com/thatsimonsguy/irrigation-controller/internal/model"

// Effect is the single side effect selected for a cycle.
type Effect interface {
	Name() string
	isEffect()
}

type NoEffect struct{}

type UpdateIndicators struct {
	Mode model.Mode
}

type SaveCredentials struct{}

type StartConnection struct{}

type RenderStatus struct {
	Mode model.Mode
}

type LogConnected struct{}

type LogDisconnected struct{}

type PollSchedule struct{}

type UpdateZones struct{}

func (NoEffect) Name() string         { return "none" }
func (UpdateIndicators) Name() string { return "update_indicators" }
func (SaveCredentials) Name() string  { return "save_credentials" }
func (StartConnection) Name() string  { return "start_connection" }
func (RenderStatus) Name() string     { return "render_status" }
func (LogConnected) Name() string     { return "log_connected" }
func (LogDisconnected) Name() string  { return "log_disconnected" }
func (PollSchedule) Name() string     { return "poll_schedule" }
func (UpdateZones) Name() string      { return "update_zones" }

func (NoEffect) isEffect()         {}
func (UpdateIndicators) isEffect() {}
func (SaveCredentials) isEffect()  {}
func (StartConnection) isEffect()  {}
func (RenderStatus) isEffect()     {}
func (LogConnected) isEffect()     {}
func (LogDisconnected) isEffect()  {}
func (PollSchedule) isEffect()     {}
func (UpdateZones) isEffect()      {}
