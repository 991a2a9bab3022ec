package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/thatsimonsguy/irrigation-controller/internal/gpio"
	"github.com/thatsimonsguy/irrigation-controller/internal/model"
)

type pinCall struct {
	pin int
	on  bool
}

func mockGPIO(t *testing.T) *[]pinCall {
	origA, origD := gpio.Activate, gpio.Deactivate
	t.Cleanup(func() { gpio.Activate, gpio.Deactivate = origA, origD })

	calls := &[]pinCall{}
	gpio.Activate = func(pin model.GPIOPin) { *calls = append(*calls, pinCall{pin.Number, true}) }
	gpio.Deactivate = func(pin model.GPIOPin) { *calls = append(*calls, pinCall{pin.Number, false}) }
	return calls
}

func testPins() Pins {
	return Pins{
		Status: model.GPIOPin{Number: 17, ActiveHigh: true},
		Zones: [3]model.GPIOPin{
			{Number: 22, ActiveHigh: true},
			{Number: 23, ActiveHigh: true},
			{Number: 24, ActiveHigh: true},
		},
	}
}

func TestStatusLevel(t *testing.T) {
	base := time.UnixMilli(1_000_000) // multiple of both blink phases

	assert.True(t, StatusLevel(model.ModeConnected, base))
	assert.True(t, StatusLevel(model.ModeConnected, base.Add(250*time.Millisecond)))

	assert.True(t, StatusLevel(model.ModeConnecting, base))
	assert.True(t, StatusLevel(model.ModeConnecting, base.Add(249*time.Millisecond)))
	assert.False(t, StatusLevel(model.ModeConnecting, base.Add(250*time.Millisecond)))
	assert.True(t, StatusLevel(model.ModeConnecting, base.Add(500*time.Millisecond)))

	for _, mode := range []model.Mode{model.ModeInitializing, model.ModeDisconnected, model.ModeEnteringCredentials} {
		assert.False(t, StatusLevel(mode, base), "mode %s", mode)
	}
}

func TestFaultLevel(t *testing.T) {
	base := time.UnixMilli(1_000_000)
	assert.True(t, FaultLevel(base))
	assert.False(t, FaultLevel(base.Add(100*time.Millisecond)))
	assert.True(t, FaultLevel(base.Add(200*time.Millisecond)))
}

func TestIndicators_OnlyWritesChanges(t *testing.T) {
	calls := mockGPIO(t)
	ind := NewIndicators(testPins())

	ind.SetStatus(true)
	ind.SetStatus(true)
	ind.SetStatus(false)
	assert.Equal(t, []pinCall{{17, true}, {17, false}}, *calls)

	*calls = nil
	ind.SetZones([3]bool{true, false, true})
	ind.SetZones([3]bool{true, false, true})
	assert.Equal(t, []pinCall{{22, true}, {23, false}, {24, true}}, *calls)

	*calls = nil
	ind.SetZones([3]bool{false, false, true})
	assert.Equal(t, []pinCall{{22, false}}, *calls)

	*calls = nil
	ind.Off()
	assert.Equal(t, []pinCall{{24, false}}, *calls)
}

func TestPinsNamed(t *testing.T) {
	named := testPins().Named()
	assert.Len(t, named, 4)
	assert.Equal(t, 17, named["status_led"].Number)
	assert.Equal(t, 24, named["zone3_led"].Number)
}

func TestResetButton_EdgeDetect(t *testing.T) {
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	held := false
	b := &ResetButton{
		pin:  model.GPIOPin{Number: 5},
		read: func(model.GPIOPin) bool { return held },
		now:  func() time.Time { return now },
	}

	assert.False(t, b.Pressed())

	held = true
	now = now.Add(150 * time.Millisecond)
	assert.True(t, b.Pressed(), "press edge")

	now = now.Add(150 * time.Millisecond)
	assert.False(t, b.Pressed(), "still held")

	held = false
	now = now.Add(150 * time.Millisecond)
	assert.False(t, b.Pressed())

	held = true
	now = now.Add(50 * time.Millisecond)
	assert.False(t, b.Pressed(), "sampled too soon")
	now = now.Add(100 * time.Millisecond)
	assert.True(t, b.Pressed())
}

func TestResetButton_Trigger(t *testing.T) {
	b := &ResetButton{disabled: true, now: time.Now}

	assert.False(t, b.Pressed())
	b.Trigger()
	b.Trigger()
	assert.True(t, b.Pressed())
	assert.False(t, b.Pressed(), "latch holds one activation")
}
