package sensors

import (
	"fmt"

	"github.com/gr-butler/airmon/env"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

/*
 * Sensors owns the hardware handles: the I2C bus (AM2320 climate sensor and the
 * ADS1115 behind the analog mux) and the UART of the MH-Z14A CO2 sensor.
 */

type Sensors struct {
	Bus     i2c.BusCloser
	Climate *AM2320
	CO2     *MHZ14A
	Mux     *Mux
	uart    serial.Port
}

func (s *Sensors) InitSensors(args env.Args, clock clockwork.Clock) error {
	if _, err := host.Init(); err != nil {
		logger.Errorf("Failed to init host drivers [%v]", err)
		return err
	}

	// Open default I²C bus.
	bus, err := i2creg.Open(*args.Bus)
	if err != nil {
		logger.Errorf("Failed to open I²C [%v]", err)
		return err
	}
	s.Bus = bus

	logger.Infof("Starting AM2320 climate sensor [%x]", env.AM2320Address)
	s.Climate = NewAM2320(bus, env.AM2320Address, clock)

	logger.Infof("Starting ADS1115 ADC [%x]", ads1x15.DefaultOpts.I2cAddress)
	adc, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		logger.Errorf("Failed to open ADS1115 [%v]", err)
		s.Close()
		return err
	}
	// the ADC converts at 250Hz; the mic is sampled every 20ms by the scheduler
	muxPin, err := adc.PinForChannel(ads1x15.Channel0, 5*physic.Volt, 250*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		logger.Errorf("Failed to open ADC channel [%v]", err)
		s.Close()
		return err
	}

	rst := gpioreg.ByName(env.MuxResetPin)
	sel := gpioreg.ByName(env.MuxSelectPin)
	if rst == nil || sel == nil {
		s.Close()
		return fmt.Errorf("failed to find mux pins %v, %v", env.MuxResetPin, env.MuxSelectPin)
	}
	logger.Infof("Mux reset %s: %s, select %s: %s", rst, rst.Function(), sel, sel.Function())
	_ = rst.Out(gpio.Low)
	_ = sel.Out(gpio.Low)
	s.Mux = NewMux(rst, sel, muxPin, env.MuxSettle, env.ADCShift, clock)

	logger.Infof("Starting MH-Z14A on [%v]", *args.Serial)
	port, err := serial.Open(*args.Serial, &serial.Mode{BaudRate: env.CO2BaudRate})
	if err != nil {
		logger.Errorf("Failed to open serial port %v [%v]", *args.Serial, err)
		s.Close()
		return err
	}
	if err := port.SetReadTimeout(env.CO2ReadTimeout); err != nil {
		logger.Errorf("Failed to set serial read timeout [%v]", err)
		_ = port.Close()
		s.Close()
		return err
	}
	s.uart = port
	s.CO2 = NewMHZ14A(port, env.CO2PreHeat, clock)

	logger.Info("Sensors initialized.")
	return nil
}

func (s *Sensors) Close() {
	if s.uart != nil {
		_ = s.uart.Close()
		s.uart = nil
	}
	if s.Bus != nil {
		_ = s.Bus.Close()
		s.Bus = nil
	}
}
