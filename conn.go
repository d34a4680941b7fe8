package netpak

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// errLoopDone marks a clean receive-loop exit inside the supervision group.
// Never returned to callers; run maps it back to a nil stop.
var errLoopDone = errors.New("receive loop done")

// Conn is one established stream-oriented channel, plain TCP or TLS. It
// owns the underlying stream, a Framer for inbound reassembly, and a single
// background receive loop. Received packages and loop termination are
// reported through OnPackage and OnStopped subscriptions.
//
// Ownership: whoever obtained the Conn (from Dial or from a Listener) must
// Close it. A Conn is terminal once closed; every later operation fails.
type Conn struct {
	id     string
	raw    net.Conn
	framer *Framer
	logger Logger

	opts options

	// Separate hubs with separate locks, so subscribing to packages never
	// contends with stopped delivery or vice versa.
	packages hub[Package]
	stopped  hub[error]

	// writeMu serializes Send calls; a frame is written in one logical
	// write and two concurrent sends must not interleave bytes.
	writeMu sync.Mutex

	stateMu sync.Mutex
	cancel  context.CancelFunc

	running atomic.Bool
	closed  atomic.Bool
}

// NewConn wraps an already-established stream in a Conn. The stream may be
// a plain *net.TCPConn or a *tls.Conn whose handshake has completed; framing
// is identical either way. Configuration errors are returned synchronously.
func NewConn(raw net.Conn, opt ...Option) (*Conn, error) {
	if raw == nil {
		return nil, ErrInvalidAddress
	}

	var opts options
	for _, o := range opt {
		o(&opts)
	}
	if err := checkOptions(&opts); err != nil {
		return nil, err
	}

	framer, err := NewFramer(opts.maxPackageSize)
	if err != nil {
		return nil, err
	}

	return &Conn{
		id:     uuid.NewString(),
		raw:    raw,
		framer: framer,
		logger: opts.logger,
		opts:   opts,
	}, nil
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// LocalAddr returns the local address of the connection.
func (c *Conn) LocalAddr() net.Addr { return c.raw.LocalAddr() }

// RemoteAddr returns the remote address of the connection.
func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }

// Running reports whether the receive loop is currently running.
func (c *Conn) Running() bool { return c.running.Load() }

// SetMaxPackageSize changes the connection's maximum package size at
// runtime. The new limit applies to frames whose prefix arrives after the
// call.
func (c *Conn) SetMaxPackageSize(n int) error {
	return c.framer.SetMaxPackageSize(n)
}

// IsClosed returns true if the connection has been closed.
func (c *Conn) IsClosed() bool { return c.closed.Load() }

// OnPackage registers a callback for received packages. Callbacks for one
// Conn run sequentially on its receive loop, in frame-completion order.
func (c *Conn) OnPackage(fn func(Package)) Subscription {
	return c.packages.subscribe(fn)
}

// OnStopped registers a callback invoked exactly once when the receive loop
// terminates. The argument is nil for a clean stop (peer closed, local
// Close, context canceled) and the fatal error otherwise.
func (c *Conn) OnStopped(fn func(error)) Subscription {
	return c.stopped.subscribe(fn)
}

// Send encodes the message, wraps it in a frame, and writes the frame to
// the underlying stream as one logical write. Concurrent Send calls are
// serialized. Send never blocks the receive loop; the two paths share only
// the OS stream.
func (c *Conn) Send(message Message) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	body, err := c.opts.codec.Encode(message)
	if err != nil {
		return err
	}
	frame, err := c.framer.Wrap(body)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return ErrConnClosed
	}
	_, err = c.raw.Write(frame)
	return err
}

// Run starts the receive loop and blocks until it terminates. It returns
// the error later delivered to OnStopped subscribers: nil for a clean stop.
// Starting twice is a usage error, not a silent no-op.
func (c *Conn) Run(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	return c.run(ctx)
}

// Start is the background variant of Run: it spawns the receive loop and
// returns immediately. Termination is observable through OnStopped.
func (c *Conn) Start(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	go func() {
		_ = c.run(ctx)
	}()
	return nil
}

func (c *Conn) begin() error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return nil
}

func (c *Conn) run(ctx context.Context) error {
	c.logger.Debug("receive loop started", "id", c.id,
		"remote_addr", c.RemoteAddr(),
		"buffer_size", c.opts.bufferSize,
		"max_package_size", c.framer.MaxPackageSize())

	ctx, cancel := context.WithCancel(ctx)
	c.stateMu.Lock()
	c.cancel = cancel
	c.stateMu.Unlock()

	// Clear any deadline left over from a previous stop.
	_ = c.raw.SetReadDeadline(time.Time{})

	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := c.receiveLoop(child); err != nil {
			return err
		}
		// The group cancels its context only on a non-nil return. A clean
		// exit must still release the watcher below, so it is reported as
		// a sentinel and mapped back to nil after Wait.
		return errLoopDone
	})

	// Cancellation is cooperative: the loop polls the context between
	// reads, but polling cannot interrupt a read already in flight. Poking
	// the read deadline forces the pending read to return so the loop can
	// observe cancellation promptly.
	group.Go(func() error {
		<-child.Done()
		_ = c.raw.SetReadDeadline(time.Now())
		return nil
	})

	err := group.Wait()
	cancel()
	c.running.Store(false)

	stopErr := err
	if errors.Is(err, errLoopDone) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		stopErr = nil
	}

	if stopErr != nil {
		c.logger.Info("connection stopped with error", "id", c.id, "error", stopErr)
	} else {
		c.logger.Info("connection stopped", "id", c.id)
	}
	c.stopped.publish(stopErr)
	return stopErr
}

// receiveLoop reads chunks from the stream, feeds them to the framer, and
// delivers one package event per completed frame, in order, from this
// single goroutine.
func (c *Conn) receiveLoop(ctx context.Context) error {
	buf := make([]byte, c.opts.bufferSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := c.raw.Read(buf)
		if n > 0 {
			payloads, ferr := c.framer.Feed(buf[:n])
			for _, payload := range payloads {
				message, derr := c.opts.codec.Decode(payload)
				if derr != nil {
					return derr
				}
				c.packages.publish(Package{Message: message, From: c.RemoteAddr()})
			}
			if ferr != nil {
				return ferr
			}
		}

		if err == nil {
			continue
		}
		switch {
		case errors.Is(err, io.EOF):
			// Peer closed its end; clean shutdown.
			return nil
		case c.closed.Load() || errors.Is(err, net.ErrClosed):
			// Local Close forced the read to fail; clean shutdown.
			return nil
		default:
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				// Deadline poke from the cancellation watcher; the next
				// iteration observes ctx.Done. No other deadline is set
				// on the stream by this package.
				continue
			}
			return err
		}
	}
}

// Close releases the stream. Idempotent; the first call cancels the receive
// loop's context and closes the socket, which unblocks a pending read.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.stateMu.Lock()
	cancel := c.cancel
	c.stateMu.Unlock()
	if cancel != nil {
		cancel()
	}

	return c.raw.Close()
}
