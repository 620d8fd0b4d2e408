// Package sinks mirrors posted reading sets to optional secondary stores. A sink
// failing never affects the upload to the collector.
package sinks

import (
	"context"
	"time"

	"github.com/gr-butler/airmon/reading"
	logger "github.com/sirupsen/logrus"
)

type Sink interface {
	Name() string
	Write(ctx context.Context, at time.Time, set reading.Set) error
	Close() error
}

// WriteTimeout bounds each sink write so an unresponsive store cannot hold up the
// post cycle.
var WriteTimeout = 2 * time.Second

// Fanout writes to every sink, logging failures.
type Fanout []Sink

func (f Fanout) Write(ctx context.Context, at time.Time, set reading.Set) {
	for _, s := range f {
		if err := f.write(ctx, s, at, set); err != nil {
			logger.Errorf("Failed to write to %v [%v]", s.Name(), err)
		}
	}
}

func (f Fanout) write(ctx context.Context, s Sink, at time.Time, set reading.Set) error {
	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()
	return s.Write(ctx, at, set)
}

func (f Fanout) Close() {
	for _, s := range f {
		if err := s.Close(); err != nil {
			logger.Errorf("Failed to close %v [%v]", s.Name(), err)
		}
	}
}
