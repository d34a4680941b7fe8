// Package netpak provides symmetric client/server primitives for exchanging
// discrete packages over UDP, TCP, and TLS-over-TCP. Stream transports carry
// packages as length-prefixed frames; the Framer turns the arbitrarily
// chunked inbound byte stream back into whole packages.
package netpak

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/pkg/errors"
)

// lengthPrefixSize is the size of the frame header: a little-endian signed
// 32-bit payload length.
const lengthPrefixSize = 4

// Framer is an incremental frame parser. It performs no I/O: callers feed it
// raw chunks as they arrive and receive completed payloads back. A Framer
// belongs to exactly one connection and is not safe for concurrent Feed
// calls; SetMaxPackageSize may be called from any goroutine.
type Framer struct {
	max atomic.Int64

	// Parser state. Either the prefix or a payload is being accumulated;
	// awaitingLength tells which, filled counts bytes toward the active
	// target.
	awaitingLength bool
	prefix         [lengthPrefixSize]byte
	payload        []byte
	filled         int

	failed error
}

// NewFramer returns a Framer that rejects payloads longer than
// maxPackageSize bytes.
func NewFramer(maxPackageSize int) (*Framer, error) {
	f := &Framer{awaitingLength: true}
	if err := f.SetMaxPackageSize(maxPackageSize); err != nil {
		return nil, err
	}
	return f, nil
}

// SetMaxPackageSize changes the maximum accepted payload length. The new
// limit applies to frames whose prefix is decoded after the call.
func (f *Framer) SetMaxPackageSize(n int) error {
	if n <= 0 || n > math.MaxInt32 {
		return errors.Wrapf(ErrInvalidMaxPackageSize, "%d", n)
	}
	f.max.Store(int64(n))
	return nil
}

// MaxPackageSize returns the current maximum accepted payload length.
func (f *Framer) MaxPackageSize() int {
	return int(f.max.Load())
}

// Wrap produces the wire frame for one outbound payload: the 4-byte
// little-endian length prefix followed by the payload itself. It reads no
// parser state, so wrapping outbound packages while Feed runs is safe.
func (f *Framer) Wrap(payload []byte) ([]byte, error) {
	if int64(len(payload)) > f.max.Load() {
		return nil, errors.Wrapf(ErrPackageTooLarge, "payload %d bytes, limit %d", len(payload), f.max.Load())
	}

	frame := make([]byte, lengthPrefixSize+len(payload))
	binary.LittleEndian.PutUint32(frame[:lengthPrefixSize], uint32(len(payload)))
	copy(frame[lengthPrefixSize:], payload)
	return frame, nil
}

// Feed consumes the entire chunk and returns the payloads of every frame
// completed by it, in wire order. A chunk boundary may fall anywhere: inside
// the length prefix, inside a payload, or across several whole frames.
//
// A length prefix outside [0, max] is a protocol violation. Feed returns the
// error, emits nothing from that point on, and every subsequent call fails
// with the same error; the owning connection must tear down.
func (f *Framer) Feed(chunk []byte) ([][]byte, error) {
	if f.failed != nil {
		return nil, f.failed
	}

	var done [][]byte
	for len(chunk) > 0 {
		if f.awaitingLength {
			n := copy(f.prefix[f.filled:], chunk)
			f.filled += n
			chunk = chunk[n:]
			if f.filled < lengthPrefixSize {
				break
			}

			length := int32(binary.LittleEndian.Uint32(f.prefix[:]))
			switch {
			case length < 0:
				f.failed = errors.Wrapf(ErrNegativeLength, "%d", length)
				return done, f.failed
			case int64(length) > f.max.Load():
				f.failed = errors.Wrapf(ErrPackageTooLarge, "length prefix %d, limit %d", length, f.max.Load())
				return done, f.failed
			case length == 0:
				// Empty package: no payload buffer, straight back to
				// awaiting the next prefix.
				done = append(done, []byte{})
				f.filled = 0
			default:
				f.payload = make([]byte, length)
				f.awaitingLength = false
				f.filled = 0
			}
			continue
		}

		n := copy(f.payload[f.filled:], chunk)
		f.filled += n
		chunk = chunk[n:]
		if f.filled < len(f.payload) {
			break
		}

		done = append(done, f.payload)
		f.payload = nil
		f.awaitingLength = true
		f.filled = 0
	}

	return done, nil
}
