package led

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
)

// LED is a status LED. Pulse never sleeps: the caller polls Expire to end the pulse.
type LED struct {
	Name    string
	lock    *sync.Mutex
	on      bool
	offAt   time.Time
	gpioPin gpio.PinOut
	clock   clockwork.Clock
}

func NewLED(name string, pin gpio.PinOut, clock clockwork.Clock) *LED {
	if pin == nil {
		logger.Errorf("No pin for LED [%v]", name)
	} else {
		logger.Infof("Creating new LED on pin [%v] called [%v]", pin, name)
	}
	l := &LED{
		Name:    name,
		lock:    &sync.Mutex{},
		gpioPin: pin,
		clock:   clock,
	}
	l.Off()
	return l
}

func (l *LED) On() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.offAt = time.Time{}
	l.set(true)
}

func (l *LED) Off() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.offAt = time.Time{}
	l.set(false)
}

// Pulse switches the LED on until d has passed.
func (l *LED) Pulse(d time.Duration) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.offAt = l.clock.Now().Add(d)
	l.set(true)
}

// Expire ends a pulse that has run its course.
func (l *LED) Expire() {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.offAt.IsZero() || l.clock.Now().Before(l.offAt) {
		return
	}
	l.offAt = time.Time{}
	l.set(false)
}

func (l *LED) IsOn() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.on
}

func (l *LED) set(on bool) {
	l.on = on
	if l.gpioPin != nil {
		_ = l.gpioPin.Out(gpio.Level(on))
	}
}
