package sinks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gr-butler/airmon/reading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

var set = reading.Set{
	Volume:      reading.IntOf(12),
	Light:       reading.IntOf(300),
	Temperature: reading.FloatOf(21.5),
}

type fakeToken struct {
	done bool
	err  error
}

func (t *fakeToken) Wait() bool                     { return t.done }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeMQTT struct {
	mqtt.Client
	token        *fakeToken
	published    []published
	disconnected bool
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.published = append(f.published, published{topic, qos, retained, payload.([]byte)})
	return f.token
}

func (f *fakeMQTT) Disconnect(uint) {
	f.disconnected = true
}

func TestMQTTWrite(t *testing.T) {
	client := &fakeMQTT{token: &fakeToken{done: true}}
	m := newMQTT(client, "airmon/5CCF7F123456/readings")

	require.NoError(t, m.Write(context.Background(), at, set))
	require.Len(t, client.published, 1)

	p := client.published[0]
	assert.Equal(t, "airmon/5CCF7F123456/readings", p.topic)
	assert.Equal(t, byte(0), p.qos)
	assert.False(t, p.retained)
	assert.JSONEq(t, `{"time":"2024-03-01T12:30:00Z","volume":12,"co2":null,"light":300,"temperature":21.5,"humidity":null}`, string(p.payload))

	require.NoError(t, m.Close())
	assert.True(t, client.disconnected)
}

func TestMQTTWriteErrors(t *testing.T) {
	m := newMQTT(&fakeMQTT{token: &fakeToken{done: false}}, "t")
	assert.ErrorIs(t, m.Write(context.Background(), at, set), ErrPublishTimeout)

	boom := errors.New("not connected")
	m = newMQTT(&fakeMQTT{token: &fakeToken{done: true, err: boom}}, "t")
	assert.ErrorIs(t, m.Write(context.Background(), at, set), boom)
}

type fakeExec struct {
	query string
	args  []interface{}
	err   error
}

func (f *fakeExec) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.query = query
	f.args = args
	return nil, f.err
}

func TestPostgresWrite(t *testing.T) {
	db := &fakeExec{}
	p := &Postgres{db: db, device: "5CCF7F123456"}

	require.NoError(t, p.Write(context.Background(), at, set))
	assert.Equal(t, insertReading, db.query)
	assert.Equal(t, []interface{}{
		"5CCF7F123456",
		at,
		sql.NullInt64{Int64: 12, Valid: true},
		sql.NullInt64{},
		sql.NullInt64{Int64: 300, Valid: true},
		sql.NullFloat64{Float64: 21.5, Valid: true},
		sql.NullFloat64{},
	}, db.args)
	assert.NoError(t, p.Close())
}

// stalledExec never answers; it only returns once the context ends.
type stalledExec struct{}

func (stalledExec) ExecContext(ctx context.Context, _ string, _ ...interface{}) (sql.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestFanoutBoundsStalledSink(t *testing.T) {
	saved := WriteTimeout
	WriteTimeout = 20 * time.Millisecond
	defer func() { WriteTimeout = saved }()

	stalled := &Postgres{db: stalledExec{}, device: "5CCF7F123456"}
	good := &failingSink{name: "good"}
	f := Fanout{stalled, good}

	done := make(chan struct{})
	go func() {
		f.Write(context.Background(), at, set)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("fanout blocked on a stalled sink")
	}
	assert.Equal(t, 1, good.writes)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, stalled.Write(ctx, at, set), context.DeadlineExceeded)
}

type failingSink struct {
	name   string
	writes int
	closed bool
	err    error
}

func (s *failingSink) Name() string { return s.name }
func (s *failingSink) Write(context.Context, time.Time, reading.Set) error {
	s.writes++
	return s.err
}
func (s *failingSink) Close() error {
	s.closed = true
	return s.err
}

func TestFanoutContinuesPastFailures(t *testing.T) {
	bad := &failingSink{name: "bad", err: errors.New("down")}
	good := &failingSink{name: "good"}
	f := Fanout{bad, good}

	f.Write(context.Background(), at, set)
	f.Close()

	assert.Equal(t, 1, bad.writes)
	assert.Equal(t, 1, good.writes)
	assert.True(t, bad.closed)
	assert.True(t, good.closed)
}

func TestMessageJSON(t *testing.T) {
	js, err := json.Marshal(mqttMessage{Time: at, Set: reading.Set{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":"2024-03-01T12:30:00Z","volume":null,"co2":null,"light":null,"temperature":null,"humidity":null}`, string(js))
}
