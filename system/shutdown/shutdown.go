package shutdown

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/device"
)

type Indicators interface {
	SetStatus(on bool)
	SetZones(zones [3]bool)
	Off()
}

type Notifier interface {
	Send(ctx context.Context, title, message string) error
}

const (
	faultBlinkStep = 50 * time.Millisecond
	notifyTimeout  = 10 * time.Second
)

var (
	ExitFunc = os.Exit
	now      = time.Now
)

// Shutdown darkens every indicator and exits cleanly.
func Shutdown(ind Indicators) {
	ind.Off()
	log.Info().Msg("Indicators off, exiting")
	ExitFunc(0)
}

// HoldFault parks the controller after a storage fault: zones off, the
// status LED blinking the fault pattern, an alert sent, until ctx ends.
// It then exits with status 1.
func HoldFault(ctx context.Context, ind Indicators, notifier Notifier, cause error) {
	log.Error().Err(cause).Msg("Controller halted, holding fault indicator")
	ind.SetZones([3]bool{})

	if notifier != nil {
		nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		if err := notifier.Send(nctx, "Irrigation controller halted", cause.Error()); err != nil {
			log.Warn().Err(err).Msg("Failed to send fault notification")
		}
		cancel()
	}

	ticker := time.NewTicker(faultBlinkStep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ind.Off()
			log.Info().Msg("Fault hold released, exiting")
			ExitFunc(1)
			return
		case <-ticker.C:
			ind.SetStatus(device.FaultLevel(now()))
		}
	}
}
