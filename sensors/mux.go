package sensors

import (
	"time"

	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
)

// Output is the part of a gpio.PinOut the mux drives.
type Output interface {
	Out(l gpio.Level) error
}

// Converter is the part of an analog.PinADC the mux reads.
type Converter interface {
	Read() (analog.Sample, error)
}

// Mux routes one of two analog sources onto a single converter input.
type Mux struct {
	reset  Output
	sel    Output
	adc    Converter
	settle time.Duration
	shift  uint
	clock  clockwork.Clock
}

func NewMux(reset, sel Output, adc Converter, settle time.Duration, shift uint, clock clockwork.Clock) *Mux {
	return &Mux{
		reset:  reset,
		sel:    sel,
		adc:    adc,
		settle: settle,
		shift:  shift,
		clock:  clock,
	}
}

// Read selects channel and returns one conversion. The settle delays between the
// pin changes let the mux output stabilise before sampling.
func (m *Mux) Read(channel bool) int {
	_ = m.reset.Out(gpio.High)
	m.clock.Sleep(m.settle)
	_ = m.sel.Out(gpio.Level(channel))
	m.clock.Sleep(m.settle)
	_ = m.reset.Out(gpio.Low)
	m.clock.Sleep(m.settle)

	sample, err := m.adc.Read()
	if err != nil {
		logger.Debugf("Error reading mux channel %v [%v]", channel, err)
		return 0
	}
	return int(sample.Raw >> m.shift)
}
