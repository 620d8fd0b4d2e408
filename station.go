package main

import (
	"context"
	"sync"
	"time"

	"github.com/gr-butler/airmon/buffer"
	"github.com/gr-butler/airmon/env"
	"github.com/gr-butler/airmon/led"
	"github.com/gr-butler/airmon/reading"
	"github.com/gr-butler/airmon/scheduler"
	"github.com/gr-butler/airmon/sensors"
	"github.com/gr-butler/airmon/sinks"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
)

type channelReader interface {
	Read(channel bool) int
}

type climateSensor interface {
	Measure() (sensors.TemperatureC, sensors.RelHumidity, error)
}

type co2Sensor interface {
	ReadCO2() (int, error)
	IsPreHeating() bool
}

type uploader interface {
	Send(ctx context.Context, set reading.Set) error
}

type station struct {
	mic      *buffer.SmoothingBuffer
	mux      channelReader
	climate  climateSensor
	co2      co2Sensor
	uplink   uploader
	sinks    sinks.Fanout
	status   *led.LED
	clock    clockwork.Clock
	readings reading.Set

	lock       sync.Mutex
	lastPosted reading.Set
	postedAt   time.Time
}

// schedule registers the station's periodic work.
func (s *station) schedule(sch *scheduler.Scheduler) {
	sch.Every("climate", env.ClimateInterval, s.updateClimate)
	sch.Every("audio", env.MicInterval, s.sampleAudio)
	sch.Every("post", env.PostInterval, s.post)
	if s.status != nil {
		sch.Every("led", env.LEDFlashDuration, func(context.Context, time.Time) { s.status.Expire() })
	}
}

func (s *station) updateClimate(_ context.Context, _ time.Time) {
	t, h, err := s.climate.Measure()
	if err != nil {
		logger.Debugf("Climate read failed [%v]", err)
		s.readings.Temperature = reading.Float{}
		s.readings.Humidity = reading.Float{}
		return
	}
	s.readings.Temperature = reading.FloatOf(t.Float64())
	s.readings.Humidity = reading.FloatOf(h.Float64())
}

func (s *station) sampleAudio(_ context.Context, _ time.Time) {
	s.mic.Push(s.mux.Read(env.MicChannel))
}

func (s *station) post(ctx context.Context, now time.Time) {
	start := s.clock.Now()

	s.readings.Volume = reading.IntOf(s.mic.Smoothed())
	logger.Debugf("Mic last sample [%v]", s.mic.GetLast())
	s.readings.Light = reading.IntOf(s.mux.Read(env.LightChannel))
	s.readings.CO2 = validCO2(s.co2.ReadCO2())

	set := s.readings
	logger.Infof("plot: volume %v co2 %v light %v temperature %v humidity %v",
		set.Volume, set.CO2, set.Light, set.Temperature, set.Humidity)

	if err := s.uplink.Send(ctx, set); err != nil {
		logger.Errorf("Failed to post readings [%v]", err)
		Prom_uploadFailures.Inc()
	} else if s.status != nil {
		s.status.Pulse(env.LEDFlashDuration)
	}
	if c, ok := s.uplink.(interface{ Connected() bool }); ok {
		setConnected(c.Connected())
	}

	publishMetrics(set)
	s.sinks.Write(ctx, now, set)

	s.lock.Lock()
	s.lastPosted = set
	s.postedAt = now
	s.lock.Unlock()

	logger.Infof("Done: %vms", s.clock.Since(start).Milliseconds())
	s.readings = reading.Set{}
}

// last returns the most recently posted set and when it was posted.
func (s *station) last() (reading.Set, time.Time) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lastPosted, s.postedAt
}

// validCO2 treats a failed read or a non-positive ppm as no reading.
func validCO2(ppm int, err error) reading.Int {
	if err != nil {
		logger.Debugf("CO2 read failed [%v]", err)
		return reading.Int{}
	}
	if ppm <= 0 {
		return reading.Int{}
	}
	return reading.IntOf(ppm)
}
