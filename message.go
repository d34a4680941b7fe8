package netpak

// Message is the interface for packages transmitted over a connection.
// The transport never interprets message contents; it only needs the raw
// bytes and their length.
type Message interface {
	// Length returns the length of the message body.
	Length() int
	// Body returns the raw message data.
	Body() []byte
}

// Codec turns domain messages into bytes and back. Applications implement
// this to define their own serialization format (JSON, Protocol Buffers,
// and so on).
//
// Decode receives exactly one complete payload: on stream transports the
// framer has already reassembled it and bounded its size, on UDP it is the
// whole datagram. Decode must therefore never need to read further.
type Codec interface {
	// Encode encodes a Message into raw bytes for transmission.
	Encode(Message) ([]byte, error)
	// Decode decodes one complete payload into a Message.
	Decode([]byte) (Message, error)
}

// RawMessage is a Message over a plain byte slice.
type RawMessage []byte

func (m RawMessage) Length() int { return len(m) }

func (m RawMessage) Body() []byte { return m }

// RawCodec passes message bytes through unchanged. It is the default codec.
type RawCodec struct{}

func (RawCodec) Encode(m Message) ([]byte, error) { return m.Body(), nil }

func (RawCodec) Decode(b []byte) (Message, error) { return RawMessage(b), nil }
