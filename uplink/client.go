// Package uplink posts reading sets to the collector over one long lived
// connection, reconnecting with a bounded number of attempts when it is down.
package uplink

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gr-butler/airmon/reading"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
)

var ErrConnectFailed = errors.New("connection failed")

// livenessWait bounds the read used to see whether the collector hung up on an
// idle connection.
const livenessWait = time.Millisecond

type Options struct {
	Host        string
	Path        string
	Auth        string // base64 of device-id:secret
	Retries     int
	RetryPause  time.Duration
	ReadTimeout time.Duration
}

type Client struct {
	dialer Dialer
	clock  clockwork.Clock
	opts   Options
	conn   net.Conn
	rd     *bufio.Reader
}

func New(dialer Dialer, opts Options, clock clockwork.Clock) *Client {
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	return &Client{
		dialer: dialer,
		clock:  clock,
		opts:   opts,
	}
}

// Connected reports whether a connection is held. It is given up after an I/O
// error, a "Connection: close" response or the collector hanging up while idle.
func (c *Client) Connected() bool {
	return c.conn != nil
}

// alive checks a held connection before reuse. A timed out read means the peer is
// still there with nothing to say; EOF or any other error means it is gone.
func (c *Client) alive() bool {
	if c.conn == nil {
		return false
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(livenessWait))
	_, err := c.rd.Peek(1)
	_ = c.conn.SetReadDeadline(time.Time{})
	if err == nil {
		// stray bytes from an earlier response
		_, _ = c.rd.Discard(c.rd.Buffered())
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	logger.Infof("Collector %v closed the connection [%v]", c.opts.Host, err)
	_ = c.Close()
	return false
}

// Send posts set and drains the response without looking at it. If no connection
// can be made the cycle is abandoned with ErrConnectFailed.
func (c *Client) Send(ctx context.Context, set reading.Set) error {
	body, err := EncodeBody(set)
	if err != nil {
		return err
	}
	logger.Debugf("Body [%v]", body)

	if !c.alive() {
		if err := c.connect(ctx); err != nil {
			return err
		}
	}
	if err := c.write(body); err != nil {
		c.drop(err)
		return fmt.Errorf("sending request: %w", err)
	}
	keep, err := c.drain()
	if err != nil {
		c.drop(err)
		return fmt.Errorf("reading response: %w", err)
	}
	if !keep {
		logger.Infof("Collector %v asked to close the connection", c.opts.Host)
		_ = c.Close()
	}
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	logger.Infof("Connecting to host %v", c.opts.Host)
	var err error
	for attempt := 1; attempt <= c.opts.Retries; attempt++ {
		var conn net.Conn
		conn, err = c.dial(ctx)
		if err == nil {
			c.conn = conn
			c.rd = bufio.NewReader(conn)
			logger.Infof("Connected! [%v attempts]", attempt)
			return nil
		}
		logger.Debugf("Connect attempt %v failed [%v]", attempt, err)
		if attempt == c.opts.Retries {
			break
		}
		select {
		case <-c.clock.After(c.opts.RetryPause):
		case <-ctx.Done():
			logger.Errorf("Connection failed! [%v]", ctx.Err())
			return fmt.Errorf("%w: %w", ErrConnectFailed, ctx.Err())
		}
	}
	logger.Errorf("Connection failed! [%v]", err)
	return fmt.Errorf("%w after %v attempts: %w", ErrConnectFailed, c.opts.Retries, err)
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	if c.opts.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ReadTimeout)
		defer cancel()
	}
	return c.dialer.Dial(ctx)
}

func (c *Client) write(body string) error {
	var req bytes.Buffer
	fmt.Fprintf(&req, "POST %s HTTP/1.1\r\n", c.opts.Path)
	fmt.Fprintf(&req, "Host: %s\r\n", c.opts.Host)
	fmt.Fprintf(&req, "Authorization: Basic %s\r\n", c.opts.Auth)
	req.WriteString("Content-Type: application/x-www-form-urlencoded\r\n")
	fmt.Fprintf(&req, "Content-Length: %d\r\n", len(body))
	req.WriteString("\r\n")
	req.WriteString(body)

	c.deadline(c.conn.SetWriteDeadline)
	_, err := c.conn.Write(req.Bytes())
	return err
}

// drain reads the status and header lines up to the blank line, then skips the
// body. Without a Content-Length only the part of the body already buffered is
// thrown away. keep is false when the collector announced it will close.
func (c *Client) drain() (keep bool, err error) {
	c.deadline(c.conn.SetReadDeadline)
	keep = true
	length := int64(-1)
	for {
		line, err := c.rd.ReadString('\n')
		if err != nil {
			return false, err
		}
		line = strings.TrimRight(line, "\r\n")
		logger.Debugf("< %v", line)
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch {
		case strings.EqualFold(name, "Connection"):
			if strings.EqualFold(value, "close") {
				keep = false
			}
		case strings.EqualFold(name, "Content-Length"):
			if n, err := strconv.ParseInt(value, 10, 64); err == nil && n >= 0 {
				length = n
			}
		}
	}
	if length >= 0 {
		n, err := io.CopyN(io.Discard, c.rd, length)
		logger.Debugf("< [%v bytes]", n)
		return keep, err
	}
	if n := c.rd.Buffered(); n > 0 {
		rest, _ := c.rd.Peek(n)
		logger.Debugf("< %v", string(rest))
		_, _ = c.rd.Discard(n)
	}
	return keep, nil
}

// deadline uses wall time, the connection knows nothing of c.clock.
func (c *Client) deadline(set func(time.Time) error) {
	if c.opts.ReadTimeout > 0 {
		_ = set(time.Now().Add(c.opts.ReadTimeout))
	}
}

func (c *Client) drop(err error) {
	logger.Errorf("Dropping connection to %v [%v]", c.opts.Host, err)
	_ = c.conn.Close()
	c.conn = nil
	c.rd = nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.rd = nil
	return err
}
