package uplink

import (
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

var ErrFingerprint = errors.New("certificate fingerprint mismatch")

// Dialer opens the connection to the collector.
type Dialer interface {
	Dial(ctx context.Context) (net.Conn, error)
}

// DialerFunc adapts a function to a Dialer.
type DialerFunc func(ctx context.Context) (net.Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (net.Conn, error) {
	return f(ctx)
}

// TLSDialer connects over TLS and accepts the server only when the SHA-1 of its
// leaf certificate matches the pinned fingerprint. The chain is not verified.
type TLSDialer struct {
	Host        string
	Port        int
	fingerprint []byte
}

// NewTLSDialer parses a fingerprint written as hex bytes, optionally space or colon
// separated.
func NewTLSDialer(host string, port int, fingerprint string) (*TLSDialer, error) {
	fp, err := ParseFingerprint(fingerprint)
	if err != nil {
		return nil, err
	}
	return &TLSDialer{Host: host, Port: port, fingerprint: fp}, nil
}

func ParseFingerprint(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "").Replace(s)
	fp, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid fingerprint %q: %w", s, err)
	}
	if len(fp) != sha1.Size {
		return nil, fmt.Errorf("invalid fingerprint %q: want %d bytes, got %d", s, sha1.Size, len(fp))
	}
	return fp, nil
}

func (d *TLSDialer) Dial(ctx context.Context) (net.Conn, error) {
	td := &tls.Dialer{
		Config: &tls.Config{
			ServerName: d.Host,
			// trust comes from the pinned fingerprint below
			InsecureSkipVerify: true, // #nosec G402
			VerifyConnection:   d.verify,
		},
	}
	return td.DialContext(ctx, "tcp", net.JoinHostPort(d.Host, strconv.Itoa(d.Port)))
}

func (d *TLSDialer) verify(cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return ErrFingerprint
	}
	sum := sha1.Sum(cs.PeerCertificates[0].Raw) // #nosec G401
	if !bytes.Equal(sum[:], d.fingerprint) {
		return fmt.Errorf("%w: got % X", ErrFingerprint, sum[:])
	}
	return nil
}
