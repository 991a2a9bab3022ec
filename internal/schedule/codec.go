package schedule

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

var ErrDecode = errors.New("malformed schedule")

// Zones is the decoded poll response. Missing keys stay false.
type Zones struct {
	Zone1 bool `json:"zone1"`
	Zone2 bool `json:"zone2"`
	Zone3 bool `json:"zone3"`
}

type JSONCodec struct{}

func (JSONCodec) Decode(body []byte) (Zones, error) {
	var z Zones
	if err := json.Unmarshal(body, &z); err != nil {
		return Zones{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return z, nil
}

// Schedule builds a schedule from decoded zones.
func (z Zones) Schedule() model.Schedule {
	return model.Schedule{Zone1: z.Zone1, Zone2: z.Zone2, Zone3: z.Zone3}
}
