package firestream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/stream"
)

// factory builds the lazy sources of one driver.
type factory struct {
	ctx    context.Context
	logger *slog.Logger
	hooks  domain.Hooks
}

// source wraps p in a stream.Memory reporting its lifecycle under name.
func source[T any](f *factory, name string, p stream.Producer[T], attrs ...any) *stream.Memory[T] {
	logAttrs := append([]any{"source", name}, attrs...)
	return stream.NewMemory(p,
		stream.OnActive(func() {
			f.logger.Debug("source started", logAttrs...)
			if f.hooks.OnSourceStart != nil {
				f.hooks.OnSourceStart(&domain.SourceEvent{Timestamp: time.Now(), Source: name})
			}
		}),
		stream.OnIdle(func() {
			f.logger.Debug("source stopped", logAttrs...)
			if f.hooks.OnSourceStop != nil {
				f.hooks.OnSourceStop(&domain.SourceEvent{Timestamp: time.Now(), Source: name})
			}
		}),
	)
}

// lookup is a producer over a one-off backend call: the value is emitted
// once and the producer completes. Stop cancels a call still in flight.
type lookup[T any] struct {
	ctx  context.Context
	call func(context.Context) (T, error)

	mu      sync.Mutex
	cancels map[stream.Token]context.CancelFunc
}

func newLookup[T any](ctx context.Context, call func(context.Context) (T, error)) *lookup[T] {
	return &lookup[T]{
		ctx:     ctx,
		call:    call,
		cancels: make(map[stream.Token]context.CancelFunc),
	}
}

func (l *lookup[T]) Start(e stream.Emitter[T]) (stream.Token, error) {
	ctx, cancel := context.WithCancel(l.ctx)
	token := stream.NewToken()

	l.mu.Lock()
	l.cancels[token] = cancel
	l.mu.Unlock()

	go func() {
		v, err := l.call(ctx)
		if err != nil {
			e.Error(err)
			return
		}
		e.Next(v)
		e.Complete()
	}()
	return token, nil
}

func (l *lookup[T]) Stop(token stream.Token) {
	l.mu.Lock()
	cancel := l.cancels[token]
	delete(l.cancels, token)
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
