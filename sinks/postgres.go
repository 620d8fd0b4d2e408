package sinks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gr-butler/airmon/reading"
	_ "github.com/lib/pq"
	logger "github.com/sirupsen/logrus"
)

/*
CREATE TABLE readings (
	device      text        NOT NULL,
	recorded_at timestamptz NOT NULL,
	volume      integer,
	co2         integer,
	light       integer,
	temperature double precision,
	humidity    double precision
);
*/

const insertReading = `INSERT INTO readings (device, recorded_at, volume, co2, light, temperature, humidity)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const connectTimeout = 10 * time.Second

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Postgres archives each reading set as one row.
type Postgres struct {
	db     execer
	closer func() error
	device string
}

func NewPostgres(ctx context.Context, dsn, device string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("Postgres archive connected")
	return &Postgres{db: db, closer: db.Close, device: device}, nil
}

func (p *Postgres) Name() string {
	return "postgres"
}

func (p *Postgres) Write(ctx context.Context, at time.Time, set reading.Set) error {
	_, err := p.db.ExecContext(ctx, insertReading, rowArgs(p.device, at, set)...)
	return err
}

func (p *Postgres) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

func rowArgs(device string, at time.Time, set reading.Set) []interface{} {
	return []interface{}{
		device,
		at.UTC(),
		nullInt(set.Volume),
		nullInt(set.CO2),
		nullInt(set.Light),
		nullFloat(set.Temperature),
		nullFloat(set.Humidity),
	}
}

func nullInt(i reading.Int) sql.NullInt64 {
	v, ok := i.Get()
	return sql.NullInt64{Int64: int64(v), Valid: ok}
}

func nullFloat(f reading.Float) sql.NullFloat64 {
	v, ok := f.Get()
	return sql.NullFloat64{Float64: v, Valid: ok}
}
