package stream

import (
	"context"
	"sync"
)

// mailbox is an unbounded, ordered queue in front of one subscriber channel.
// Pushing never blocks, so producers are never slowed down by a consumer.
type mailbox[T any] struct {
	mu     sync.Mutex
	queue  []Notification[T]
	closed bool

	signal chan struct{}
	out    chan Notification[T]
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{
		signal: make(chan struct{}, 1),
		out:    make(chan Notification[T]),
	}
}

// push enqueues n. It reports false once the mailbox has been closed.
func (m *mailbox[T]) push(n Notification[T]) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, n)
	m.mu.Unlock()
	m.wake()
	return true
}

// close marks the mailbox terminal. Queued notifications are still delivered.
func (m *mailbox[T]) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wake()
}

func (m *mailbox[T]) wake() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// run pumps queued notifications into out until the mailbox is closed and
// drained, or ctx is done. detach is called only in the latter case.
func (m *mailbox[T]) run(ctx context.Context, detach func()) {
	defer close(m.out)
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			closed := m.closed
			m.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-m.signal:
				continue
			case <-ctx.Done():
				m.abandon()
				detach()
				return
			}
		}
		n := m.queue[0]
		m.queue[0] = Notification[T]{}
		m.queue = m.queue[1:]
		m.mu.Unlock()

		select {
		case m.out <- n:
		case <-ctx.Done():
			m.abandon()
			detach()
			return
		}
	}
}

func (m *mailbox[T]) abandon() {
	m.mu.Lock()
	m.closed = true
	m.queue = nil
	m.mu.Unlock()
}
