package netpak

import "errors"

// Configuration errors. These are returned synchronously from the call
// that introduced the bad value, never through an event.
var (
	// ErrInvalidBufferSize is returned when a negative read buffer size is configured.
	ErrInvalidBufferSize = errors.New("invalid buffer size")
	// ErrInvalidMaxPackageSize is returned when a negative or overflowing
	// maximum package size is configured.
	ErrInvalidMaxPackageSize = errors.New("invalid max package size")
	// ErrInvalidAddress is returned when an empty or nil address is supplied.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrMissingCertificate is returned by ListenTLS when the TLS config
	// carries no server certificate.
	ErrMissingCertificate = errors.New("tls config has no certificate")
)

// Protocol violations. Fatal to the connection that observed them; the
// receive loop exits and reports the error through the stopped event.
var (
	// ErrPackageTooLarge is returned when a package exceeds the configured
	// maximum size, on either the inbound or the outbound path.
	ErrPackageTooLarge = errors.New("package too large")
	// ErrNegativeLength is returned when a frame declares a negative
	// payload length.
	ErrNegativeLength = errors.New("negative length prefix")
)

// Usage errors.
var (
	// ErrConnClosed is returned when operating on a closed connection.
	ErrConnClosed = errors.New("connection closed")
	// ErrAlreadyRunning is returned when starting an entity whose loop is
	// already running.
	ErrAlreadyRunning = errors.New("already running")
	// ErrListenerClosed is returned when operating on a closed listener.
	ErrListenerClosed = errors.New("listener closed")
	// ErrServeActive is returned by AcceptOne while a Serve loop owns the
	// listener.
	ErrServeActive = errors.New("serve loop active")
	// ErrEndpointClosed is returned when operating on a closed datagram endpoint.
	ErrEndpointClosed = errors.New("endpoint closed")
)
