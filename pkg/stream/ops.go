package stream

import (
	"context"
	"sync"
)

// Filter passes through notifications from in for which keep returns true.
// Errors are always passed through. The returned channel is closed after in
// is closed or ctx is done.
func Filter[T any](
	ctx context.Context,
	in <-chan Notification[T],
	keep func(T) bool,
) <-chan Notification[T] {
	out := make(chan Notification[T])

	go func() {
		defer close(out)
		for n := range in {
			if n.Err == nil && !keep(n.Value) {
				continue
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Transform applies handle to each value from in. Errors are passed through.
// The returned channel is closed after in is closed or ctx is done.
func Transform[In, Out any](
	ctx context.Context,
	in <-chan Notification[In],
	handle func(In) Out,
) <-chan Notification[Out] {
	out := make(chan Notification[Out])

	go func() {
		defer close(out)
		for n := range in {
			m := Notification[Out]{Err: n.Err}
			if n.Err == nil {
				m.Value = handle(n.Value)
			}
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Concat subscribes to each source received from in, one after the other,
// and forwards everything it emits. An error from one source is forwarded
// and Concat moves on to the next source, so errors stay scoped to the
// source that produced them. An error notification on in itself ends Concat.
func Concat[T any](
	ctx context.Context,
	in <-chan Notification[Source[T]],
) <-chan Notification[T] {
	out := make(chan Notification[T])

	go func() {
		defer close(out)
		for n := range in {
			if n.Err != nil {
				select {
				case out <- Notification[T]{Err: n.Err}:
				case <-ctx.Done():
				}
				return
			}
			for m := range n.Value.Subscribe(ctx) {
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	return out
}

// DropRepeats wraps p so that consecutive values considered equal are
// emitted only once per Start.
func DropRepeats[T any](p Producer[T], equal func(a, b T) bool) Producer[T] {
	return ProducerFuncs[T]{
		StartFunc: func(e Emitter[T]) (Token, error) {
			return p.Start(&dropRepeats[T]{next: e, equal: equal})
		},
		StopFunc: p.Stop,
	}
}

// Same reports whether a and b are identical. With pointer types this is
// identity, not deep equality.
func Same[T comparable](a, b T) bool {
	return a == b
}

type dropRepeats[T any] struct {
	next  Emitter[T]
	equal func(a, b T) bool

	mu   sync.Mutex
	last T
	has  bool
}

func (d *dropRepeats[T]) Next(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.has && d.equal(d.last, v) {
		return
	}
	d.last, d.has = v, true
	d.next.Next(v)
}

func (d *dropRepeats[T]) Error(err error) { d.next.Error(err) }

func (d *dropRepeats[T]) Complete() { d.next.Complete() }

// Collect subscribes to src and gathers its values until it completes.
// It returns the first error notification, or ctx.Err() if ctx ends first.
func Collect[T any](ctx context.Context, src Source[T]) ([]T, error) {
	var values []T
	for n := range src.Subscribe(ctx) {
		if n.Err != nil {
			return values, n.Err
		}
		values = append(values, n.Value)
	}
	return values, ctx.Err()
}
