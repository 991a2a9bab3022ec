package model

import (
	"fmt"
	"time"
)

type Mode string

const (
	ModeInitializing        Mode = "initializing"
	ModeConnecting          Mode = "connecting"
	ModeConnected           Mode = "connected"
	ModeDisconnected        Mode = "disconnected"
	ModeEnteringCredentials Mode = "entering_credentials"
)

// Credentials identify the wireless network the controller joins.
type Credentials struct {
	SSID     string `json:"ssid"`
	Password string `json:"-"`
}

// MaxCredentialLength is the longest SSID or password accepted at the prompt.
const MaxCredentialLength = 63

// ValidCredentialLength reports whether an SSID or password has an acceptable length.
func ValidCredentialLength(s string) bool {
	return len(s) > 0 && len(s) <= MaxCredentialLength
}

// Schedule is the set of zones that should currently be watering.
// A zero LastUpdate means no schedule has ever been received.
type Schedule struct {
	Zone1      bool      `json:"zone1"`
	Zone2      bool      `json:"zone2"`
	Zone3      bool      `json:"zone3"`
	LastUpdate time.Time `json:"last_update"`
}

func (s Schedule) Zones() [3]bool {
	return [3]bool{s.Zone1, s.Zone2, s.Zone3}
}

// Received reports whether the schedule came from a poll or the store.
func (s Schedule) Received() bool {
	return !s.LastUpdate.IsZero()
}

type GPIOPin struct {
	Number     int  `json:"number"`
	ActiveHigh bool `json:"active_high"`
}

// Network is a single scan result.
type Network struct {
	SSID   string `json:"ssid"`
	Signal int    `json:"signal"`
}

// RadioStatus mirrors the status codes reported by the wireless driver.
type RadioStatus int

const (
	RadioIdle           RadioStatus = 0
	RadioNoNetwork      RadioStatus = 1
	RadioScanCompleted  RadioStatus = 2
	RadioConnected      RadioStatus = 3
	RadioConnectFailed  RadioStatus = 4
	RadioConnectionLost RadioStatus = 5
	RadioDisconnected   RadioStatus = 6
)

func (s RadioStatus) String() string {
	switch s {
	case RadioIdle:
		return "idle"
	case RadioNoNetwork:
		return "no_network"
	case RadioScanCompleted:
		return "scan_completed"
	case RadioConnected:
		return "connected"
	case RadioConnectFailed:
		return "connect_failed"
	case RadioConnectionLost:
		return "connection_lost"
	case RadioDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}
