package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gr-butler/airmon/reading"
	"github.com/gr-butler/airmon/uplink"
	"github.com/prometheus/client_golang/prometheus"
	logger "github.com/sirupsen/logrus"
)

var Prom_volume = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "volume",
		Help: "Smoothed microphone level",
	},
)

var Prom_co2 = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "co2_ppm",
		Help: "CO2 concentration ppm",
	},
)

var Prom_light = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "light",
		Help: "Light level",
	},
)

var Prom_temperature = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "temperature",
		Help: "Temperature C",
	},
)

var Prom_humidity = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "relative_humidity",
		Help: "Relative Humidity",
	},
)

var Prom_uploadFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "upload_failures_total",
		Help: "Post cycles that did not reach the collector",
	},
)

var Prom_connected = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "collector_connected",
		Help: "1 while a connection to the collector is held",
	},
)

func init() {
	prometheus.MustRegister(
		Prom_volume,
		Prom_co2,
		Prom_light,
		Prom_temperature,
		Prom_humidity,
		Prom_uploadFailures,
		Prom_connected)
}

// publishMetrics sets the gauges of the readings present in set. Absent readings
// keep their last value.
func publishMetrics(set reading.Set) {
	if v, ok := set.Volume.Get(); ok {
		Prom_volume.Set(float64(v))
	}
	if v, ok := set.CO2.Get(); ok {
		Prom_co2.Set(float64(v))
	}
	if v, ok := set.Light.Get(); ok {
		Prom_light.Set(float64(v))
	}
	if v, ok := set.Temperature.Get(); ok {
		Prom_temperature.Set(v)
	}
	if v, ok := set.Humidity.Get(); ok {
		Prom_humidity.Set(v)
	}
}

func setConnected(up bool) {
	if up {
		Prom_connected.Set(1)
	} else {
		Prom_connected.Set(0)
	}
}

type webdata struct {
	TimeNow  string      `json:"time"`
	PostedAt string      `json:"posted_at,omitempty"`
	Readings reading.Set `json:"readings"`
}

func (s *station) handler(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	set, at := s.last()
	wd := webdata{
		TimeNow:  s.clock.Now().Format(time.RFC822),
		Readings: set,
	}
	if !at.IsZero() {
		wd.PostedAt = at.Format(time.RFC822)
	}

	js, err := json.Marshal(wd)
	if err != nil {
		logger.Errorf("JSON error [%v]", err)
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}

	logger.Debugf("Web read: [%v]", string(js))
	_, _ = rw.Write(js) // not much we can do if this fails
}

// dryRun stands in for the collector in test mode.
type dryRun struct{}

func (dryRun) Send(_ context.Context, set reading.Set) error {
	body, err := uplink.EncodeBody(set)
	if err != nil {
		return err
	}
	logger.Infof("Test mode, not sending [%v]", body)
	return nil
}
