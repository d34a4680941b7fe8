package netpak

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func newTestListener(t *testing.T, opt ...Option) *Listener {
	t.Helper()

	l, err := Listen("127.0.0.1:0", opt...)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestListen_InvalidAddress(t *testing.T) {
	if _, err := Listen(""); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Listen(\"\") = %v, want ErrInvalidAddress", err)
	}
}

func TestListen_InvalidOptions(t *testing.T) {
	if _, err := Listen("127.0.0.1:0", BufferSizeOption(-1)); !errors.Is(err, ErrInvalidBufferSize) {
		t.Errorf("Listen = %v, want ErrInvalidBufferSize", err)
	}
}

func TestListenTLS_MissingCertificate(t *testing.T) {
	if _, err := ListenTLS("127.0.0.1:0", nil); !errors.Is(err, ErrMissingCertificate) {
		t.Errorf("ListenTLS(nil) = %v, want ErrMissingCertificate", err)
	}
}

func TestListener_AcceptOne(t *testing.T) {
	l := newTestListener(t)

	type result struct {
		conn *Conn
		err  error
	}
	accepted := make(chan result, 1)
	go func() {
		conn, err := l.AcceptOne(context.Background())
		accepted <- result{conn, err}
	}()

	client, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	select {
	case r := <-accepted:
		if r.err != nil {
			t.Fatalf("AcceptOne failed: %v", r.err)
		}
		defer r.conn.Close()
		if r.conn.RemoteAddr().String() != client.LocalAddr().String() {
			t.Errorf("accepted remote = %v, want %v", r.conn.RemoteAddr(), client.LocalAddr())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for AcceptOne")
	}
}

func TestListener_AcceptOneAfterClose(t *testing.T) {
	l := newTestListener(t)
	l.Close()

	if _, err := l.AcceptOne(context.Background()); !errors.Is(err, ErrListenerClosed) {
		t.Errorf("AcceptOne after close = %v, want ErrListenerClosed", err)
	}
}

func TestListener_AcceptOneUnblockedByClose(t *testing.T) {
	l := newTestListener(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := l.AcceptOne(context.Background())
		errCh <- err
	}()

	// Give the goroutine a moment to block in Accept.
	time.Sleep(50 * time.Millisecond)
	l.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrListenerClosed) {
			t.Errorf("AcceptOne = %v, want ErrListenerClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("AcceptOne not unblocked by Close")
	}
}

func TestListener_ServeEmitsConnected(t *testing.T) {
	l := newTestListener(t)

	connected := make(chan *Conn, 4)
	stopped := make(chan error, 1)
	l.OnConnect(func(c *Conn) { connected <- c })
	l.OnStopped(func(err error) { stopped <- err })

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		client, err := net.Dial("tcp", l.Addr().String())
		if err != nil {
			t.Fatalf("dial %d failed: %v", i, err)
		}
		defer client.Close()

		select {
		case conn := <-connected:
			conn.Close()
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for connected event %d", i)
		}
	}

	l.Close()
	if err := awaitStopped(t, stopped); err != nil {
		t.Errorf("stopped with %v, want nil after Close", err)
	}
	if l.Serving() {
		t.Error("listener still reports serving after stop")
	}
}

func TestListener_ServeContextCancel(t *testing.T) {
	l := newTestListener(t)

	stopped := make(chan error, 1)
	l.OnStopped(func(err error) { stopped <- err })

	ctx, cancel := context.WithCancel(context.Background())
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancel()

	if err := awaitStopped(t, stopped); err != nil {
		t.Errorf("stopped with %v, want nil for cancellation", err)
	}
}

func TestListener_StartTwice(t *testing.T) {
	l := newTestListener(t)

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := l.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}
}

func TestListener_AcceptOneWhileServing(t *testing.T) {
	l := newTestListener(t)

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := l.AcceptOne(context.Background()); !errors.Is(err, ErrServeActive) {
		t.Errorf("AcceptOne while serving = %v, want ErrServeActive", err)
	}
}

func TestListener_StartAfterClose(t *testing.T) {
	l := newTestListener(t)
	l.Close()

	if err := l.Start(context.Background()); !errors.Is(err, ErrListenerClosed) {
		t.Errorf("Start after close = %v, want ErrListenerClosed", err)
	}
}

func TestListener_CloseIdempotent(t *testing.T) {
	l := newTestListener(t)

	if err := l.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

// TestListener_AcceptedConnUsesOptions verifies that options given at
// Listen time template the accepted connections.
func TestListener_AcceptedConnUsesOptions(t *testing.T) {
	l := newTestListener(t, MaxPackageSizeOption(8), BufferSizeOption(16))

	accepted := make(chan *Conn, 1)
	go func() {
		conn, err := l.AcceptOne(context.Background())
		if err != nil {
			return
		}
		accepted <- conn
	}()

	client, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	select {
	case conn := <-accepted:
		defer conn.Close()
		if got := conn.framer.MaxPackageSize(); got != 8 {
			t.Errorf("accepted conn max package size = %d, want 8", got)
		}
		if conn.opts.bufferSize != 16 {
			t.Errorf("accepted conn buffer size = %d, want 16", conn.opts.bufferSize)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for accepted connection")
	}
}
