package netpak

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/pkg/errors"
)

// Dial opens a plain TCP connection to the remote address and wraps it in a
// Conn. The Conn is not receiving yet; call Run or Start.
func Dial(addr string, opt ...Option) (*Conn, error) {
	return DialContext(context.Background(), addr, opt...)
}

// DialContext is the suspending variant of Dial. Cancellation during
// connection establishment aborts the dial with the context's error.
func DialContext(ctx context.Context, addr string, opt ...Option) (*Conn, error) {
	raw, err := dialRaw(ctx, addr)
	if err != nil {
		return nil, err
	}

	conn, err := NewConn(raw, opt...)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return conn, nil
}

// DialTLS opens a TCP connection and completes the client-side TLS
// handshake before returning. The peer's certificate is validated against
// cfg; validation failure aborts the connect. Passing a config with
// InsecureSkipVerify set is the only way to accept an unvalidated peer.
func DialTLS(addr string, cfg *tls.Config, opt ...Option) (*Conn, error) {
	return DialTLSContext(context.Background(), addr, cfg, opt...)
}

// DialTLSContext is the suspending variant of DialTLS.
func DialTLSContext(ctx context.Context, addr string, cfg *tls.Config, opt ...Option) (*Conn, error) {
	raw, err := dialRaw(ctx, addr)
	if err != nil {
		return nil, err
	}

	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" && !cfg.InsecureSkipVerify {
		if host, _, splitErr := net.SplitHostPort(addr); splitErr == nil {
			cfg = cfg.Clone()
			cfg.ServerName = host
		}
	}

	tlsConn := tls.Client(raw, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, errors.Wrapf(err, "tls handshake with %s", addr)
	}

	conn, err := NewConn(tlsConn, opt...)
	if err != nil {
		tlsConn.Close()
		return nil, err
	}
	return conn, nil
}

func dialRaw(ctx context.Context, addr string) (net.Conn, error) {
	if addr == "" {
		return nil, ErrInvalidAddress
	}

	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}

	if tcp, ok := raw.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return raw, nil
}
