// Package controller runs the irrigation controller's state machine against
// the outside world: it samples inputs into events, applies them, executes
// the one selected effect per cycle and publishes the result.
package controller

import (
	"context"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/schedule"
)

type Radio interface {
	Status() model.RadioStatus
	Scan() ([]model.Network, error)
	Associate(ssid, password string)
	LocalAddress() string
}

type Transport interface {
	Get(ctx context.Context, path string) (int, []byte, error)
	URL(path string) string
}

type Codec interface {
	Decode(body []byte) (schedule.Zones, error)
}

// Store is the durable store. Load methods report absence with ok=false;
// any returned error is a storage fault.
type Store interface {
	SaveCredentials(model.Credentials) error
	LoadCredentials() (model.Credentials, bool, error)
	SaveSchedule(model.Schedule) error
	LoadSchedule() (model.Schedule, bool, error)
}

type Console interface {
	PollByte() (byte, bool)
	ReadLine() (string, bool)
	Drain()
	Println(a ...any)
}

type Indicators interface {
	SetStatus(on bool)
	SetZones(zones [3]bool)
}

type ResetControl interface {
	Pressed() bool
}

type Metrics interface {
	Gauge(name string, value float64, tags ...string)
	Count(name string, value int64, tags ...string)
}
