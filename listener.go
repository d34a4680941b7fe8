package netpak

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync/atomic"
	"time"
)

// Listener owns a listening TCP socket and produces Conns for inbound
// connections, either one at a time through AcceptOne or continuously
// through Serve/Start. For TLS listeners the server-side handshake
// completes before a Conn is handed out. Options given at Listen time
// template every accepted Conn.
//
// The Listener does not own the Conns it produces; closing it leaves
// accepted connections running.
type Listener struct {
	listener  net.Listener
	tlsConfig *tls.Config
	logger    Logger
	connOpts  []Option

	connected hub[*Conn]
	stopped   hub[error]

	serving atomic.Bool
	closed  atomic.Bool
}

// Listen binds a TCP listener on addr. The pending-connection backlog is
// the OS default; Go's net package does not expose the listen backlog.
func Listen(addr string, opt ...Option) (*Listener, error) {
	if addr == "" {
		return nil, ErrInvalidAddress
	}

	// Validate the per-connection options now, so a bad value fails here
	// rather than at every accept.
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	if err := checkOptions(&opts); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Listener{
		listener: listener,
		logger:   opts.logger,
		connOpts: opt,
	}, nil
}

// ListenTLS binds a TCP listener whose accepted connections speak TLS. The
// config must carry a server certificate; the accepting side always
// presents one.
func ListenTLS(addr string, cfg *tls.Config, opt ...Option) (*Listener, error) {
	if cfg == nil || (len(cfg.Certificates) == 0 && cfg.GetCertificate == nil) {
		return nil, ErrMissingCertificate
	}

	l, err := Listen(addr, opt...)
	if err != nil {
		return nil, err
	}
	l.tlsConfig = cfg
	return l, nil
}

// Addr returns the listener's network address.
func (l *Listener) Addr() net.Addr { return l.listener.Addr() }

// Serving reports whether the accept loop is currently running.
func (l *Listener) Serving() bool { return l.serving.Load() }

// OnConnect registers a callback invoked for each connection accepted by
// the Serve loop. Ownership of the Conn passes to the subscriber.
func (l *Listener) OnConnect(fn func(*Conn)) Subscription {
	return l.connected.subscribe(fn)
}

// OnStopped registers a callback invoked exactly once when the Serve loop
// terminates: nil for a clean stop (Close or context cancellation), the
// fatal listen-socket error otherwise.
func (l *Listener) OnStopped(fn func(error)) Subscription {
	return l.stopped.subscribe(fn)
}

// AcceptOne blocks until one inbound connection arrives and returns it
// wrapped as a Conn, after the server-side TLS handshake if applicable.
// Safe to call repeatedly in sequence; mixing it with a running Serve loop
// is a usage error. Accepting on a closed listener returns
// ErrListenerClosed, never a platform error code.
func (l *Listener) AcceptOne(ctx context.Context) (*Conn, error) {
	if l.closed.Load() {
		return nil, ErrListenerClosed
	}
	if l.serving.Load() {
		return nil, ErrServeActive
	}

	raw, err := l.listener.Accept()
	if err != nil {
		if l.closed.Load() || errors.Is(err, net.ErrClosed) {
			return nil, ErrListenerClosed
		}
		return nil, err
	}

	return l.wrap(ctx, raw)
}

// Serve accepts connections continuously, emitting a connected event for
// each, until the context is canceled, the listener is closed, or a fatal
// listen-socket error occurs. It blocks until the loop terminates and
// returns the error later delivered to OnStopped subscribers.
func (l *Listener) Serve(ctx context.Context) error {
	if err := l.begin(); err != nil {
		return err
	}
	return l.serve(ctx)
}

// Start is the background variant of Serve.
func (l *Listener) Start(ctx context.Context) error {
	if err := l.begin(); err != nil {
		return err
	}
	go func() {
		_ = l.serve(ctx)
	}()
	return nil
}

func (l *Listener) begin() error {
	if l.closed.Load() {
		return ErrListenerClosed
	}
	if !l.serving.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return nil
}

func (l *Listener) serve(ctx context.Context) error {
	l.logger.Info("listener started", "addr", l.Addr())

	// Clear any deadline left over from a previous stop.
	if tcp, ok := l.listener.(*net.TCPListener); ok {
		_ = tcp.SetDeadline(time.Time{})
	}

	// A blocked Accept cannot observe cancellation by itself; poking the
	// deadline forces it to return so the loop can.
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			if tcp, ok := l.listener.(*net.TCPListener); ok {
				_ = tcp.SetDeadline(time.Now())
			}
		case <-watcherDone:
		}
	}()

	for {
		raw, err := l.listener.Accept()
		if err == nil {
			conn, wrapErr := l.wrap(ctx, raw)
			if wrapErr != nil {
				// A failed handshake or bad client is not fatal to the
				// loop; the next client may be fine.
				l.logger.Error("rejected inbound connection", "error", wrapErr)
				continue
			}
			l.logger.Debug("accepted connection", "id", conn.ID(), "remote_addr", conn.RemoteAddr())
			l.connected.publish(conn)
			continue
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() && ctx.Err() == nil {
			continue
		}

		var stopErr error
		if ctx.Err() == nil && !l.closed.Load() && !errors.Is(err, net.ErrClosed) {
			stopErr = err
		}

		l.serving.Store(false)
		if stopErr != nil {
			l.logger.Error("listener stopped with error", "addr", l.Addr(), "error", stopErr)
		} else {
			l.logger.Info("listener stopped", "addr", l.Addr())
		}
		l.stopped.publish(stopErr)
		return stopErr
	}
}

// wrap turns a raw accepted socket into a Conn, completing the server-side
// TLS handshake first when configured.
func (l *Listener) wrap(ctx context.Context, raw net.Conn) (*Conn, error) {
	if tcp, ok := raw.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	if l.tlsConfig != nil {
		tlsConn := tls.Server(raw, l.tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return nil, err
		}
		raw = tlsConn
	}

	conn, err := NewConn(raw, l.connOpts...)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return conn, nil
}

// Close stops the listener by closing the underlying socket. Idempotent.
// A blocked AcceptOne or Serve loop observes the closure as its clean stop
// condition.
func (l *Listener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	return l.listener.Close()
}
