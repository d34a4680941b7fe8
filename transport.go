package netpak

import "context"

// Sender is the capability to send one package. Callers that only need the
// outbound path should accept a Sender rather than a concrete Conn, which
// also lets tests substitute the send behavior.
type Sender interface {
	Send(Message) error
}

// Accepter is the capability to yield inbound connections one at a time.
type Accepter interface {
	AcceptOne(context.Context) (*Conn, error)
}

var (
	_ Sender   = (*Conn)(nil)
	_ Sender   = (*boundEndpoint)(nil)
	_ Accepter = (*Listener)(nil)
)
