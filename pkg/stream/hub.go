package stream

import (
	"context"
	"sync"
)

// Hub is a hot fan-out. Every value published is delivered to the
// subscribers attached at that moment; nothing is replayed.
type Hub[T any] struct {
	mu        sync.Mutex
	listeners map[*mailbox[T]]struct{}
	closed    bool
}

// NewHub creates an open Hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{
		listeners: make(map[*mailbox[T]]struct{}),
	}
}

// Publish delivers v to all current subscribers without blocking.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for mb := range h.listeners {
		mb.push(Notification[T]{Value: v})
	}
}

// Close completes every subscription. Later subscribers get a closed channel.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for mb := range h.listeners {
		mb.close()
	}
	h.listeners = nil
}

// Subscribers returns the number of attached listeners.
func (h *Hub[T]) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Subscribe implements Source. The listener is registered before Subscribe
// returns, so every value published afterwards is observed.
func (h *Hub[T]) Subscribe(ctx context.Context) <-chan Notification[T] {
	mb := newMailbox[T]()

	h.mu.Lock()
	if h.closed {
		mb.closed = true
	} else {
		h.listeners[mb] = struct{}{}
	}
	h.mu.Unlock()

	go mb.run(ctx, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, mb)
	})
	return mb.out
}
