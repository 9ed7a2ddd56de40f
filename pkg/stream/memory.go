package stream

import (
	"context"
	"sync"
)

// MemoryOption configures a Memory source.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	onActive func()
	onIdle   func()
}

// OnActive registers a callback invoked on every Idle -> Active transition,
// right before the producer is started.
func OnActive(fn func()) MemoryOption {
	return func(c *memoryConfig) {
		c.onActive = fn
	}
}

// OnIdle registers a callback invoked on every Active -> Idle transition,
// whether caused by the last subscriber leaving or by the producer ending.
func OnIdle(fn func()) MemoryOption {
	return func(c *memoryConfig) {
		c.onIdle = fn
	}
}

// cycle is one Start/Stop pairing of the producer.
type cycle struct {
	token   Token
	started bool // Start returned without error
	stopped bool // teardown requested
}

// Memory is a lazy multicast source with replay of the latest value.
//
// The producer is started when the first subscriber attaches and stopped,
// with the token its Start returned, when the last subscriber leaves.
// Subscribers joining while active immediately receive the latest value.
// An error or completion from the producer is forwarded to every subscriber
// and tears the source down; the next subscriber starts a fresh cycle.
type Memory[T any] struct {
	producer Producer[T]
	config   memoryConfig

	mu        sync.Mutex
	listeners map[*mailbox[T]]struct{}
	current   *cycle
	last      T
	hasLast   bool
}

// NewMemory wraps producer in a lazy multicast source.
func NewMemory[T any](producer Producer[T], opts ...MemoryOption) *Memory[T] {
	m := &Memory[T]{
		producer:  producer,
		listeners: make(map[*mailbox[T]]struct{}),
	}
	for _, opt := range opts {
		opt(&m.config)
	}
	return m
}

// Subscribe attaches a listener. See Source.
func (m *Memory[T]) Subscribe(ctx context.Context) <-chan Notification[T] {
	if ctx.Err() != nil {
		done := make(chan Notification[T])
		close(done)
		return done
	}
	mb := newMailbox[T]()

	m.mu.Lock()
	m.listeners[mb] = struct{}{}
	var c *cycle
	if m.current == nil {
		c = &cycle{}
		m.current = c
	} else if m.hasLast {
		mb.push(Notification[T]{Value: m.last})
	}
	m.mu.Unlock()

	if c != nil && m.config.onActive != nil {
		m.config.onActive()
	}
	go mb.run(ctx, func() { m.detach(mb) })

	if c != nil {
		m.start(c)
	}
	return mb.out
}

// Subscribers returns the number of attached listeners.
func (m *Memory[T]) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// Active reports whether the producer is currently running.
func (m *Memory[T]) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

func (m *Memory[T]) start(c *cycle) {
	// The only subscriber may already have left.
	m.mu.Lock()
	abandoned := c.stopped
	m.mu.Unlock()
	if abandoned {
		return
	}

	token, err := m.producer.Start(&memoryEmitter[T]{m: m, c: c})

	m.mu.Lock()
	if err != nil {
		owned := m.current == c
		var failed []*mailbox[T]
		if owned {
			failed = m.reset()
		}
		c.stopped = true
		m.mu.Unlock()
		for _, mb := range failed {
			mb.push(Notification[T]{Err: err})
			mb.close()
		}
		if owned && m.config.onIdle != nil {
			m.config.onIdle()
		}
		return
	}
	c.token = token
	c.started = true
	stopNow := c.stopped
	m.mu.Unlock()

	if stopNow {
		m.producer.Stop(token)
	}
}

// detach removes a listener whose context is done.
func (m *Memory[T]) detach(mb *mailbox[T]) {
	m.mu.Lock()
	if _, ok := m.listeners[mb]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.listeners, mb)
	if len(m.listeners) > 0 || m.current == nil {
		m.mu.Unlock()
		return
	}
	c := m.current
	m.reset()
	stopNow := m.requestStop(c)
	m.mu.Unlock()

	if stopNow {
		m.producer.Stop(c.token)
	}
	if m.config.onIdle != nil {
		m.config.onIdle()
	}
}

// reset returns the source to Idle and hands back the listeners it had.
// Must be called with mu held.
func (m *Memory[T]) reset() []*mailbox[T] {
	detached := make([]*mailbox[T], 0, len(m.listeners))
	for mb := range m.listeners {
		detached = append(detached, mb)
	}
	m.listeners = make(map[*mailbox[T]]struct{})
	m.current = nil
	var zero T
	m.last = zero
	m.hasLast = false
	return detached
}

// requestStop marks c for teardown and reports whether Stop can be called
// right away. If Start has not returned yet, start calls Stop itself.
// Must be called with mu held.
func (m *Memory[T]) requestStop(c *cycle) bool {
	if c.stopped {
		return false
	}
	c.stopped = true
	return c.started
}

// terminate ends the cycle c with an optional error.
func (m *Memory[T]) terminate(c *cycle, err error) {
	m.mu.Lock()
	if m.current != c {
		m.mu.Unlock()
		return
	}
	listeners := m.reset()
	stopNow := m.requestStop(c)
	m.mu.Unlock()

	for _, mb := range listeners {
		if err != nil {
			mb.push(Notification[T]{Err: err})
		}
		mb.close()
	}
	if stopNow {
		m.producer.Stop(c.token)
	}
	if m.config.onIdle != nil {
		m.config.onIdle()
	}
}

// memoryEmitter is bound to a single cycle so that late emissions from a
// stopped producer never leak into the next cycle.
type memoryEmitter[T any] struct {
	m *Memory[T]
	c *cycle
}

func (e *memoryEmitter[T]) Next(v T) {
	m := e.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != e.c {
		return
	}
	m.last = v
	m.hasLast = true
	for mb := range m.listeners {
		mb.push(Notification[T]{Value: v})
	}
}

func (e *memoryEmitter[T]) Error(err error) {
	e.m.terminate(e.c, err)
}

func (e *memoryEmitter[T]) Complete() {
	e.m.terminate(e.c, nil)
}
