package sensors

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func am2320Frame(data ...byte) []byte {
	frame := append([]byte{0x03, 0x04}, data...)
	crc := crc16(frame)
	return append(frame, byte(crc), byte(crc>>8))
}

func am2320Playback(response []byte) *i2ctest.Playback {
	return &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x5C, W: []byte{0x00}},
			{Addr: 0x5C, W: []byte{0x03, 0x00, 0x04}},
			{Addr: 0x5C, R: response},
		},
		DontPanic: true,
	}
}

func TestCRC16(t *testing.T) {
	assert.Equal(t, uint16(0x4B37), crc16([]byte("123456789")))
}

func TestAM2320Measure(t *testing.T) {
	bus := am2320Playback(am2320Frame(0x01, 0xF4, 0x00, 0xD7))
	a := NewAM2320(bus, 0x5C, clockwork.NewRealClock())

	temp, hum, err := a.Measure()
	require.NoError(t, err)
	assert.InDelta(t, 21.5, temp.Float64(), 1e-9)
	assert.InDelta(t, 50.0, hum.Float64(), 1e-9)
	require.NoError(t, bus.Close())
}

func TestAM2320NegativeTemperature(t *testing.T) {
	bus := am2320Playback(am2320Frame(0x02, 0x9A, 0x80, 0x65))
	a := NewAM2320(bus, 0x5C, clockwork.NewRealClock())

	temp, hum, err := a.Measure()
	require.NoError(t, err)
	assert.InDelta(t, -10.1, temp.Float64(), 1e-9)
	assert.InDelta(t, 66.6, hum.Float64(), 1e-9)
}

func TestAM2320Checksum(t *testing.T) {
	frame := am2320Frame(0x01, 0xF4, 0x00, 0xD7)
	frame[7] ^= 0xFF
	a := NewAM2320(am2320Playback(frame), 0x5C, clockwork.NewRealClock())

	_, _, err := a.Measure()
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestAM2320BadHeader(t *testing.T) {
	frame := am2320Frame(0x01, 0xF4, 0x00, 0xD7)
	frame[0] = 0x80
	a := NewAM2320(am2320Playback(frame), 0x5C, clockwork.NewRealClock())

	_, _, err := a.Measure()
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestAM2320BusError(t *testing.T) {
	// nothing recorded, every transfer fails
	a := NewAM2320(&i2ctest.Playback{DontPanic: true}, 0x5C, clockwork.NewRealClock())

	_, _, err := a.Measure()
	assert.Error(t, err)
}
