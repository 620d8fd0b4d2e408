package sensors

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/i2c"
)

type RelHumidity float64
type TemperatureC float64

func (r RelHumidity) Float64() float64 {
	return float64(r)
}

func (t TemperatureC) Float64() float64 {
	return float64(t)
}

const (
	am2320ReadRegisters = 0x03
	am2320FirstRegister = 0x00
	am2320RegisterCount = 0x04

	am2320WakeDelay = time.Millisecond
	am2320ReadDelay = 2 * time.Millisecond
)

var (
	ErrBadResponse = errors.New("unexpected response header")
	ErrChecksum    = errors.New("checksum mismatch")
)

// AM2320 reads temperature and humidity from an AM2320 on the I2C bus.
type AM2320 struct {
	dev   *i2c.Dev
	clock clockwork.Clock
}

func NewAM2320(bus i2c.Bus, addr uint16, clock clockwork.Clock) *AM2320 {
	return &AM2320{
		dev:   &i2c.Dev{Addr: addr, Bus: bus},
		clock: clock,
	}
}

// Measure wakes the sensor and reads humidity and temperature in one transfer.
func (a *AM2320) Measure() (TemperatureC, RelHumidity, error) {
	// the sensor sleeps between reads and NACKs the wake up write
	_ = a.dev.Tx([]byte{0x00}, nil)
	a.clock.Sleep(am2320WakeDelay)

	if err := a.dev.Tx([]byte{am2320ReadRegisters, am2320FirstRegister, am2320RegisterCount}, nil); err != nil {
		return 0, 0, fmt.Errorf("am2320 request: %w", err)
	}
	a.clock.Sleep(am2320ReadDelay)

	// func, count, hum hi, hum lo, temp hi, temp lo, crc lo, crc hi
	read := make([]byte, 8)
	if err := a.dev.Tx(nil, read); err != nil {
		return 0, 0, fmt.Errorf("am2320 read: %w", err)
	}
	if read[0] != am2320ReadRegisters || read[1] != am2320RegisterCount {
		return 0, 0, fmt.Errorf("am2320 [% x]: %w", read[:2], ErrBadResponse)
	}
	if crc := uint16(read[7])<<8 | uint16(read[6]); crc != crc16(read[:6]) {
		return 0, 0, fmt.Errorf("am2320: %w", ErrChecksum)
	}

	humidity := RelHumidity(float64(uint16(read[2])<<8|uint16(read[3])) / 10)
	raw := uint16(read[4])<<8 | uint16(read[5])
	temp := TemperatureC(float64(raw&0x7FFF) / 10)
	if raw&0x8000 != 0 {
		temp = -temp
	}
	return temp, humidity, nil
}

// crc16 is the Modbus CRC used by the AM2320.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x01 != 0 {
				crc >>= 1
				crc ^= 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
