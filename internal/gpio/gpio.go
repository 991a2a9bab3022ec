package gpio

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/pinctrl"
)

var safeMode bool

func SetSafeMode(enabled bool) {
	safeMode = enabled
}

// ValidateStartupPins checks that every named output pin reads inactive,
// which the boot script guarantees unless something else drove it.
func ValidateStartupPins(pins map[string]model.GPIOPin) error {
	names := make([]string, 0, len(pins))
	for name := range pins {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pin := pins[name]
		level, err := ReadLevel(pin.Number)
		if err != nil {
			return fmt.Errorf("failed to read pin level for %s (GPIO %d): %w", name, pin.Number, err)
		}
		if pin.ActiveHigh == level {
			return fmt.Errorf("pin %d (%s) is active at startup", pin.Number, name)
		}
	}
	return nil
}

var ReadLevel = pinctrl.ReadLevel

// Read returns the raw level of pin. Read failures are logged and read as low.
func Read(pin model.GPIOPin) bool {
	level, err := ReadLevel(pin.Number)
	if err != nil {
		log.Error().Err(err).Int("pin", pin.Number).Msg("Failed to read pin level")
		return false
	}
	return level
}

// ConfigureInput sets pin as an input with a pull toward its inactive level.
func ConfigureInput(pin model.GPIOPin) {
	if safeMode {
		return
	}
	pull := "pu"
	if pin.ActiveHigh {
		pull = "pd"
	}
	if err := pinctrl.SetPin(pin.Number, "ip", pull); err != nil {
		log.Error().Err(err).Int("pin", pin.Number).Msg("Failed to configure input pin")
	}
}

var Activate = func(pin model.GPIOPin) {
	drive(pin, true)
}

var Deactivate = func(pin model.GPIOPin) {
	drive(pin, false)
}

// Set activates or deactivates pin.
func Set(pin model.GPIOPin, active bool) {
	if active {
		Activate(pin)
		return
	}
	Deactivate(pin)
}

var CurrentlyActive = func(pin model.GPIOPin) bool {
	return pin.ActiveHigh == Read(pin)
}

func drive(pin model.GPIOPin, active bool) {
	if safeMode {
		return
	}
	if err := pinctrl.SetPin(pin.Number, "op", "pn", DriveFor(pin, active)); err != nil {
		log.Error().Err(err).Int("pin", pin.Number).Bool("active", active).Msg("Failed to drive pin")
	}
}

// DriveFor returns the pinctrl drive option that puts pin in the given state.
func DriveFor(pin model.GPIOPin, active bool) string {
	if pin.ActiveHigh == active {
		return "dh"
	}
	return "dl"
}
