package netpak

import (
	"net"
	"sync"
)

// Package is the event delivered for each received message. From is the
// peer's address: the remote endpoint for stream connections, the datagram
// sender for UDP.
type Package struct {
	Message Message
	From    net.Addr
}

// Subscription is a handle for one registered event callback.
type Subscription interface {
	// Cancel removes the callback. Safe to call more than once, and safe
	// to call from inside the callback itself.
	Cancel()
}

// hub is an observer registry. Each hub has its own lock, so subscribing to
// one event stream never contends with delivery on another. Delivery
// iterates a snapshot taken under the lock, which keeps callbacks free to
// subscribe or cancel without deadlocking.
type hub[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

func (h *hub[T]) subscribe(fn func(T)) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs == nil {
		h.subs = make(map[int]func(T))
	}
	id := h.next
	h.next++
	h.subs[id] = fn

	return &subscription[T]{hub: h, id: id}
}

func (h *hub[T]) publish(v T) {
	h.mu.Lock()
	snapshot := make([]func(T), 0, len(h.subs))
	for _, fn := range h.subs {
		snapshot = append(snapshot, fn)
	}
	h.mu.Unlock()

	for _, fn := range snapshot {
		fn(v)
	}
}

type subscription[T any] struct {
	hub *hub[T]
	id  int
}

func (s *subscription[T]) Cancel() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	delete(s.hub.subs, s.id)
}
