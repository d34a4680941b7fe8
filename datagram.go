package netpak

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// PacketEndpoint exchanges whole messages over UDP. One datagram carries
// exactly one encoded message, so no framing engine is involved and no
// partial-message state exists. Received packages carry the sender's
// address in Package.From.
type PacketEndpoint struct {
	id     string
	conn   net.PacketConn
	logger Logger

	opts options

	packages hub[Package]
	stopped  hub[error]

	writeMu sync.Mutex

	stateMu sync.Mutex
	cancel  context.CancelFunc

	running atomic.Bool
	closed  atomic.Bool
}

// ListenPacket binds a UDP endpoint on addr.
func ListenPacket(addr string, opt ...Option) (*PacketEndpoint, error) {
	if addr == "" {
		return nil, ErrInvalidAddress
	}

	var opts options
	for _, o := range opt {
		o(&opts)
	}
	if err := checkOptions(&opts); err != nil {
		return nil, err
	}

	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}

	return &PacketEndpoint{
		id:     uuid.NewString(),
		conn:   conn,
		logger: opts.logger,
		opts:   opts,
	}, nil
}

// ID returns the endpoint's unique identifier.
func (e *PacketEndpoint) ID() string { return e.id }

// LocalAddr returns the endpoint's bound address.
func (e *PacketEndpoint) LocalAddr() net.Addr { return e.conn.LocalAddr() }

// Running reports whether the receive loop is currently running.
func (e *PacketEndpoint) Running() bool { return e.running.Load() }

// IsClosed returns true if the endpoint has been closed.
func (e *PacketEndpoint) IsClosed() bool { return e.closed.Load() }

// OnPackage registers a callback for received datagrams.
func (e *PacketEndpoint) OnPackage(fn func(Package)) Subscription {
	return e.packages.subscribe(fn)
}

// OnStopped registers a callback invoked exactly once when the receive
// loop terminates.
func (e *PacketEndpoint) OnStopped(fn func(error)) Subscription {
	return e.stopped.subscribe(fn)
}

// Send encodes the message and transmits it to the remote address as a
// single datagram, unframed.
func (e *PacketEndpoint) Send(message Message, to net.Addr) error {
	if e.closed.Load() {
		return ErrEndpointClosed
	}
	if to == nil {
		return ErrInvalidAddress
	}

	body, err := e.opts.codec.Encode(message)
	if err != nil {
		return err
	}
	if len(body) > e.opts.maxPackageSize {
		return ErrPackageTooLarge
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if e.closed.Load() {
		return ErrEndpointClosed
	}
	_, err = e.conn.WriteTo(body, to)
	return err
}

// To binds the endpoint to one remote address, yielding a Sender with the
// same contract as a stream Conn's send path.
func (e *PacketEndpoint) To(addr net.Addr) Sender {
	return &boundEndpoint{endpoint: e, addr: addr}
}

type boundEndpoint struct {
	endpoint *PacketEndpoint
	addr     net.Addr
}

func (b *boundEndpoint) Send(message Message) error {
	return b.endpoint.Send(message, b.addr)
}

// Run starts the receive loop and blocks until it terminates. Each
// non-empty datagram decodes as one message, delivered with its sender
// address. Starting twice is a usage error.
func (e *PacketEndpoint) Run(ctx context.Context) error {
	if err := e.begin(); err != nil {
		return err
	}
	return e.run(ctx)
}

// Start is the background variant of Run.
func (e *PacketEndpoint) Start(ctx context.Context) error {
	if err := e.begin(); err != nil {
		return err
	}
	go func() {
		_ = e.run(ctx)
	}()
	return nil
}

func (e *PacketEndpoint) begin() error {
	if e.closed.Load() {
		return ErrEndpointClosed
	}
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return nil
}

func (e *PacketEndpoint) run(ctx context.Context) error {
	e.logger.Debug("datagram receive loop started", "id", e.id, "addr", e.LocalAddr())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.stateMu.Lock()
	e.cancel = cancel
	e.stateMu.Unlock()

	// Clear any deadline left over from a previous stop.
	_ = e.conn.SetReadDeadline(time.Time{})

	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = e.conn.SetReadDeadline(time.Now())
		case <-watcherDone:
		}
	}()

	err := e.receiveLoop(ctx)
	e.running.Store(false)

	stopErr := err
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		stopErr = nil
	}

	if stopErr != nil {
		e.logger.Info("endpoint stopped with error", "id", e.id, "error", stopErr)
	} else {
		e.logger.Info("endpoint stopped", "id", e.id)
	}
	e.stopped.publish(stopErr)
	return stopErr
}

func (e *PacketEndpoint) receiveLoop(ctx context.Context) error {
	// One spare byte past the limit: a read that fills it means the
	// datagram exceeded the maximum package size and would otherwise be
	// silently truncated into a corrupt message.
	buf := make([]byte, e.opts.maxPackageSize+1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, from, err := e.conn.ReadFrom(buf)
		if n > e.opts.maxPackageSize {
			return ErrPackageTooLarge
		}
		if n > 0 {
			payload := make([]byte, n)
			copy(payload, buf[:n])

			message, derr := e.opts.codec.Decode(payload)
			if derr != nil {
				return derr
			}
			e.packages.publish(Package{Message: message, From: from})
		}

		if err == nil {
			continue
		}
		switch {
		case e.closed.Load() || errors.Is(err, net.ErrClosed):
			return nil
		default:
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return err
		}
	}
}

// Close releases the socket. Idempotent; unblocks a pending read.
func (e *PacketEndpoint) Close() error {
	if e.closed.Swap(true) {
		return nil
	}

	e.stateMu.Lock()
	cancel := e.cancel
	e.stateMu.Unlock()
	if cancel != nil {
		cancel()
	}

	return e.conn.Close()
}
