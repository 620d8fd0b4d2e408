package main

import (
	"context"
	"encoding/base64"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
)

var errNoInterface = errors.New("no hardware interface with an IPv4 address")

// deviceID drops every third character of the MAC, the ':' separators in the
// usual notation, and upper cases the rest.
func deviceID(mac string) string {
	var b strings.Builder
	for i, r := range strings.ToUpper(mac) {
		if (i+1)%3 == 0 {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func authToken(id, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(id + ":" + secret))
}

// hardwareAddr returns the MAC of the first up, non loopback interface holding
// an IPv4 address.
func hardwareAddr() (net.HardwareAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for _, i := range ifaces {
		if i.Flags&net.FlagUp == 0 || i.Flags&net.FlagLoopback != 0 || len(i.HardwareAddr) == 0 {
			continue
		}
		addrs, err := i.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() != nil {
				return i.HardwareAddr, nil
			}
		}
	}
	return nil, errNoInterface
}

// waitForNetwork blocks until lookup finds an interface, logging every poll.
func waitForNetwork(ctx context.Context, clock clockwork.Clock, poll time.Duration,
	lookup func() (net.HardwareAddr, error)) (net.HardwareAddr, error) {
	for {
		mac, err := lookup()
		if err == nil {
			return mac, nil
		}
		logger.Infof("Waiting for network [%v]", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-clock.After(poll):
		}
	}
}
