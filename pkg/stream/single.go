package stream

import (
	"context"
	"fmt"
)

// Single is a single-shot result: at most one value, or one error.
//
// The work behind a Single starts when it is created, not when it is first
// observed. Any number of subscribers may observe it and they all see the
// same outcome.
type Single[T any] struct {
	done  chan struct{}
	value T
	has   bool
	err   error
}

// Go runs fn in a new goroutine and returns the Single observing its result.
// A panic in fn is turned into an error result.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Single[T] {
	s := &Single[T]{done: make(chan struct{})}
	go func() {
		defer close(s.done)
		defer func() {
			if r := recover(); r != nil {
				s.err = fmt.Errorf("stream: effect panicked: %v", r)
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			s.err = err
			return
		}
		s.value, s.has = v, true
	}()
	return s
}

// Empty returns a Single that is already complete without a value.
func Empty[T any]() *Single[T] {
	s := &Single[T]{done: make(chan struct{})}
	close(s.done)
	return s
}

// Just returns a Single that is already complete with v.
func Just[T any](v T) *Single[T] {
	s := &Single[T]{done: make(chan struct{}), value: v, has: true}
	close(s.done)
	return s
}

// Fail returns a Single that has already failed with err.
func Fail[T any](err error) *Single[T] {
	s := &Single[T]{done: make(chan struct{}), err: err}
	close(s.done)
	return s
}

// Done is closed once the result is known.
func (s *Single[T]) Done() <-chan struct{} {
	return s.done
}

// Await blocks until the result is known or ctx is done.
// An empty Single returns the zero value and a nil error.
func (s *Single[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-s.done:
		return s.value, s.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Subscribe implements Source.
func (s *Single[T]) Subscribe(ctx context.Context) <-chan Notification[T] {
	out := make(chan Notification[T], 1)
	go func() {
		defer close(out)
		select {
		case <-s.done:
		case <-ctx.Done():
			return
		}
		switch {
		case s.err != nil:
			out <- Notification[T]{Err: s.err}
		case s.has:
			out <- Notification[T]{Value: s.value}
		}
	}()
	return out
}
