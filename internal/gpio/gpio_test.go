package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

func mockLevels(t *testing.T, levels map[int]bool, failing ...int) {
	orig := ReadLevel
	ReadLevel = func(pin int) (bool, error) {
		for _, f := range failing {
			if f == pin {
				return false, errors.New("pinctrl not found")
			}
		}
		return levels[pin], nil
	}
	t.Cleanup(func() { ReadLevel = orig })
}

func TestValidateStartupPins_Valid(t *testing.T) {
	mockLevels(t, map[int]bool{17: false, 27: true})

	err := ValidateStartupPins(map[string]model.GPIOPin{
		"status_led": {Number: 17, ActiveHigh: true},
		"zone1_led":  {Number: 27, ActiveHigh: false},
	})
	assert.NoError(t, err)
}

func TestValidateStartupPins_Active(t *testing.T) {
	mockLevels(t, map[int]bool{17: true})

	err := ValidateStartupPins(map[string]model.GPIOPin{
		"status_led": {Number: 17, ActiveHigh: true},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status_led")
}

func TestValidateStartupPins_ReadFailure(t *testing.T) {
	mockLevels(t, map[int]bool{}, 22)

	err := ValidateStartupPins(map[string]model.GPIOPin{
		"zone2_led": {Number: 22, ActiveHigh: true},
	})
	assert.Error(t, err)
}

func TestCurrentlyActive(t *testing.T) {
	mockLevels(t, map[int]bool{5: true, 6: true}, 7)

	assert.True(t, CurrentlyActive(model.GPIOPin{Number: 5, ActiveHigh: true}))
	assert.False(t, CurrentlyActive(model.GPIOPin{Number: 6, ActiveHigh: false}))
	// read failure reads low
	assert.True(t, CurrentlyActive(model.GPIOPin{Number: 7, ActiveHigh: false}))
}

func TestDriveFor(t *testing.T) {
	tests := []struct {
		activeHigh bool
		active     bool
		expected   string
	}{
		{true, true, "dh"},
		{true, false, "dl"},
		{false, true, "dl"},
		{false, false, "dh"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, DriveFor(model.GPIOPin{Number: 1, ActiveHigh: tc.activeHigh}, tc.active))
	}
}

func TestSet_UsesActivateAndDeactivate(t *testing.T) {
	origA, origD := Activate, Deactivate
	t.Cleanup(func() { Activate, Deactivate = origA, origD })

	var calls []string
	Activate = func(pin model.GPIOPin) { calls = append(calls, "on") }
	Deactivate = func(pin model.GPIOPin) { calls = append(calls, "off") }

	Set(model.GPIOPin{Number: 3}, true)
	Set(model.GPIOPin{Number: 3}, false)
	assert.Equal(t, []string{"on", "off"}, calls)
}
