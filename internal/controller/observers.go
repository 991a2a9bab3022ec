package controller

import (
	"github.com/thatsimonsguy/irrigation-controller/internal/fsm"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

// Observe lists the presentation effects implied by a state change. They
// are run in order after the event is applied and never feed events back.
func Observe(prev, next fsm.State) []fsm.Effect {
	var effects []fsm.Effect

	switch {
	case prev.Mode == next.Mode:
	case next.Mode == model.ModeConnected:
		effects = append(effects, fsm.LogConnected{}, fsm.RenderStatus{Mode: model.ModeConnected})
	case prev.Mode == model.ModeConnected && next.Mode == model.ModeDisconnected:
		effects = append(effects, fsm.LogDisconnected{})
	default:
		effects = append(effects, fsm.RenderStatus{Mode: next.Mode})
	}

	return effects
}

// credentialsPending reports the moment new credentials start waiting to be saved.
func credentialsPending(prev, next fsm.State) bool {
	return !prev.CredentialsChanged && next.CredentialsChanged
}
