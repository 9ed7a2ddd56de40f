package stream_test

import (
	"sync"
	"testing"
	"time"

	"github.com/aretw0/firestream/pkg/stream"
)

const (
	waitTimeout = 2 * time.Second
	tick        = 5 * time.Millisecond
)

// fakeProducer records Start/Stop pairs and lets tests emit into the
// emitter of the current Start.
type fakeProducer[T any] struct {
	mu       sync.Mutex
	starts   int
	stops    []stream.Token
	tokens   []stream.Token
	emitter  stream.Emitter[T]
	initial  []T
	startErr error
}

func (p *fakeProducer[T]) Start(e stream.Emitter[T]) (stream.Token, error) {
	p.mu.Lock()
	p.starts++
	if p.startErr != nil {
		p.mu.Unlock()
		return "", p.startErr
	}
	token := stream.NewToken()
	p.tokens = append(p.tokens, token)
	p.emitter = e
	initial := p.initial
	p.mu.Unlock()

	for _, v := range initial {
		e.Next(v)
	}
	return token, nil
}

func (p *fakeProducer[T]) Stop(token stream.Token) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops = append(p.stops, token)
}

func (p *fakeProducer[T]) emit(v T) {
	p.mu.Lock()
	e := p.emitter
	p.mu.Unlock()
	e.Next(v)
}

func (p *fakeProducer[T]) fail(err error) {
	p.mu.Lock()
	e := p.emitter
	p.mu.Unlock()
	e.Error(err)
}

func (p *fakeProducer[T]) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts, len(p.stops)
}

func recv[T any](t *testing.T, ch <-chan stream.Notification[T]) stream.Notification[T] {
	t.Helper()
	select {
	case n, ok := <-ch:
		if !ok {
			t.Fatal("channel closed, expected a notification")
		}
		return n
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for notification")
	}
	return stream.Notification[T]{}
}

func expectClosed[T any](t *testing.T, ch <-chan stream.Notification[T]) {
	t.Helper()
	select {
	case n, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel, got %+v", n)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for channel to close")
	}
}

func expectSilent[T any](t *testing.T, ch <-chan stream.Notification[T]) {
	t.Helper()
	select {
	case n, ok := <-ch:
		t.Fatalf("expected no notification, got %+v (open=%v)", n, ok)
	case <-time.After(50 * time.Millisecond):
	}
}
