package sensors

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
)

const mhzFrameLen = 9

// gas concentration read command, checksum included
var mhzReadCO2 = []byte{0xFF, 0x01, 0x86, 0x00, 0x00, 0x00, 0x00, 0x00, 0x79}

var (
	ErrNoResponse = errors.New("no response")
	ErrIncomplete = errors.New("incomplete response")
	ErrNotReady   = errors.New("sensor pre-heating")
)

type inputResetter interface {
	ResetInputBuffer() error
}

// MHZ14A reads CO2 concentration from a MH-Z14A over its UART.
type MHZ14A struct {
	port    io.ReadWriter
	clock   clockwork.Clock
	started time.Time
	preHeat time.Duration
}

// NewMHZ14A starts the pre-heat timer from the time of the call.
func NewMHZ14A(port io.ReadWriter, preHeat time.Duration, clock clockwork.Clock) *MHZ14A {
	return &MHZ14A{
		port:    port,
		clock:   clock,
		started: clock.Now(),
		preHeat: preHeat,
	}
}

func (m *MHZ14A) IsPreHeating() bool {
	return m.clock.Since(m.started) < m.preHeat
}

// ReadCO2 returns the concentration in ppm.
func (m *MHZ14A) ReadCO2() (int, error) {
	if m.IsPreHeating() {
		return 0, ErrNotReady
	}
	if r, ok := m.port.(inputResetter); ok {
		// drop anything left over from an earlier timed out read
		_ = r.ResetInputBuffer()
	}
	if _, err := m.port.Write(mhzReadCO2); err != nil {
		return 0, fmt.Errorf("mhz14a write: %w", err)
	}

	resp := make([]byte, mhzFrameLen)
	got := 0
	for got < mhzFrameLen {
		n, err := m.port.Read(resp[got:])
		got += n
		if n == 0 || err != nil {
			// a serial read timeout reads as 0 bytes with no error
			if got == 0 {
				return 0, ErrNoResponse
			}
			return 0, fmt.Errorf("mhz14a got %d of %d bytes: %w", got, mhzFrameLen, ErrIncomplete)
		}
	}

	if resp[0] != 0xFF || resp[1] != 0x86 {
		return 0, fmt.Errorf("mhz14a [% x]: %w", resp[:2], ErrBadResponse)
	}
	if mhzChecksum(resp) != resp[8] {
		return 0, fmt.Errorf("mhz14a: %w", ErrChecksum)
	}
	return int(resp[2])<<8 | int(resp[3]), nil
}

func mhzChecksum(frame []byte) byte {
	var sum byte
	for _, b := range frame[1:8] {
		sum += b
	}
	return 0xFF - sum + 1
}
