package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gr-butler/airmon/buffer"
	"github.com/gr-butler/airmon/env"
	"github.com/gr-butler/airmon/led"
	"github.com/gr-butler/airmon/scheduler"
	"github.com/gr-butler/airmon/sensors"
	"github.com/gr-butler/airmon/sinks"
	"github.com/gr-butler/airmon/uplink"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"periph.io/x/conn/v3/gpio/gpioreg"

	logger "github.com/sirupsen/logrus"
)

const version = "GRB-Airmon-1.0.0"

func main() {
	logger.Infof("Starting air monitor [%v]", version)

	args := env.Args{
		Test:    flag.Bool("test", false, "test mode, does not send data to the collector"),
		Verbose: flag.Bool("verbose", false, "debug logging"),
		Bus:     flag.String("bus", "", "I²C bus, empty for the default"),
		Serial:  flag.String("serial", env.CO2Port, "CO2 sensor serial port"),
	}
	flag.Parse()

	if *args.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}
	if *args.Test {
		logger.Info("TEST MODE")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, args); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("Exiting [%v]", err)
		logger.Exit(1)
	}
	logger.Info("Exiting...")
}

func run(ctx context.Context, args env.Args) error {
	clock := clockwork.NewRealClock()

	logger.Info("Initialize sensors...")
	s := &sensors.Sensors{}
	if err := s.InitSensors(args, clock); err != nil {
		return fmt.Errorf("failed to initialise sensors: %w", err)
	}
	defer s.Close()

	for s.CO2.IsPreHeating() {
		logger.Info("CO2 sensor pre-heating")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(env.PreHeatPoll):
		}
	}

	mac, err := waitForNetwork(ctx, clock, env.NetworkPoll, hardwareAddr)
	if err != nil {
		return err
	}
	secret, ok := os.LookupEnv("APISECRET")
	if !ok {
		logger.Error("API secret not set! APISECRET must be set.")
	}
	id := deviceID(mac.String())
	token := authToken(id, secret)
	logger.Infof("MAC [%v] device [%v]", mac, id)
	logger.Debugf("Auth [%v]", token)
	logger.Infof("Fingerprint [%v]", env.Fingerprint)

	st := &station{
		mic:     buffer.NewSmoothingBuffer(env.MicBufferSize, env.MicDCOffset),
		mux:     s.Mux,
		climate: s.Climate,
		co2:     s.CO2,
		clock:   clock,
	}

	if pin := gpioreg.ByName(env.StatusLed); pin != nil {
		st.status = led.NewLED("status", pin, clock)
	}

	if *args.Test {
		st.uplink = dryRun{}
	} else {
		dialer, err := uplink.NewTLSDialer(env.Host, env.Port, env.Fingerprint)
		if err != nil {
			return err
		}
		client := uplink.New(dialer, uplink.Options{
			Host:        env.Host,
			Path:        env.Path,
			Auth:        token,
			Retries:     env.ConnectRetries,
			RetryPause:  env.ConnectRetryPause,
			ReadTimeout: env.ReadTimeout,
		}, clock)
		defer client.Close()
		st.uplink = client
	}

	st.sinks = openSinks(ctx, id)
	defer st.sinks.Close()

	http.HandleFunc("/", st.handler)
	sendData, ok := os.LookupEnv("SENDPROMDATA")
	if ok && sendData == "true" {
		logger.Info("Starting metrics endpoint...")
		http.Handle("/metrics", promhttp.Handler())
	}
	srv := &http.Server{Addr: env.StatusAddr}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Webservice stopped [%v]", err)
		}
	}()
	defer srv.Close()

	sch := scheduler.New(clock, env.LoopIdle)
	st.schedule(sch)
	logger.Info("Running")
	return sch.Run(ctx)
}

// openSinks connects the optional mirrors configured in the environment.
func openSinks(ctx context.Context, id string) sinks.Fanout {
	var out sinks.Fanout
	if broker, ok := os.LookupEnv("MQTTBROKER"); ok && broker != "" {
		topic := fmt.Sprintf("%v/%v/readings", env.MQTTTopicPrefix, id)
		m, err := sinks.NewMQTT(broker, "airmon-"+id, topic)
		if err != nil {
			logger.Errorf("Failed to connect to MQTT broker %v [%v]", broker, err)
		} else {
			out = append(out, m)
		}
	}
	if dsn, ok := os.LookupEnv("DATABASE_URL"); ok && dsn != "" {
		p, err := sinks.NewPostgres(ctx, dsn, id)
		if err != nil {
			logger.Errorf("Failed to connect to db [%v]", err)
		} else {
			out = append(out, p)
		}
	}
	return out
}
