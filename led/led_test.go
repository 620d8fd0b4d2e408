package led

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestPulse(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pin := &gpiotest.Pin{N: "GPIO20", L: gpio.High}
	l := NewLED("status", pin, clock)

	assert.False(t, l.IsOn())
	assert.Equal(t, gpio.Low, pin.L)

	l.Pulse(50 * time.Millisecond)
	assert.True(t, l.IsOn())
	assert.Equal(t, gpio.High, pin.L)

	clock.Advance(49 * time.Millisecond)
	l.Expire()
	assert.True(t, l.IsOn())

	clock.Advance(time.Millisecond)
	l.Expire()
	assert.False(t, l.IsOn())
	assert.Equal(t, gpio.Low, pin.L)
}

func TestExpireLeavesSteadyOn(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pin := &gpiotest.Pin{N: "GPIO20"}
	l := NewLED("status", pin, clock)

	l.On()
	clock.Advance(time.Hour)
	l.Expire()
	assert.True(t, l.IsOn())
	assert.Equal(t, gpio.High, pin.L)

	l.Off()
	assert.False(t, l.IsOn())
}

func TestNoPin(t *testing.T) {
	l := NewLED("status", nil, clockwork.NewFakeClock())
	l.Pulse(time.Millisecond)
	assert.True(t, l.IsOn())
}
