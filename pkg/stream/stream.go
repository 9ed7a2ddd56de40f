package stream

import (
	"context"

	"github.com/rs/xid"
)

// Notification is one element delivered to a subscriber.
// A non-nil Err is terminal: the channel is closed right after it, except
// for operators that document otherwise (see Concat).
type Notification[T any] struct {
	Value T
	Err   error
}

// Source is anything that can be observed through a channel.
type Source[T any] interface {
	// Subscribe attaches a new listener. The returned channel is closed when
	// the source completes, after an error, or when ctx is done.
	Subscribe(ctx context.Context) <-chan Notification[T]
}

// Emitter receives the output of a Producer.
// Implementations must be safe to call from any goroutine.
type Emitter[T any] interface {
	Next(T)
	Error(error)
	Complete()
}

// Token identifies one Start of a Producer. It is handed back to Stop so
// that the pairing never depends on callback identity.
type Token string

// NewToken returns a new globally unique token.
func NewToken() Token {
	return Token(xid.New().String())
}

// Producer is a subscribe/unsubscribe style resource.
type Producer[T any] interface {
	// Start begins emitting into e and returns the token to stop it with.
	// It may emit synchronously before returning.
	Start(e Emitter[T]) (Token, error)
	// Stop releases the subscription identified by token.
	Stop(token Token)
}

// ProducerFuncs adapts a pair of functions to the Producer interface.
type ProducerFuncs[T any] struct {
	StartFunc func(Emitter[T]) (Token, error)
	StopFunc  func(Token)
}

func (p ProducerFuncs[T]) Start(e Emitter[T]) (Token, error) {
	return p.StartFunc(e)
}

func (p ProducerFuncs[T]) Stop(token Token) {
	if p.StopFunc != nil {
		p.StopFunc(token)
	}
}

// EmitterFuncs adapts optional functions to the Emitter interface.
// Nil functions are ignored.
type EmitterFuncs[T any] struct {
	NextFunc     func(T)
	ErrorFunc    func(error)
	CompleteFunc func()
}

func (e EmitterFuncs[T]) Next(v T) {
	if e.NextFunc != nil {
		e.NextFunc(v)
	}
}

func (e EmitterFuncs[T]) Error(err error) {
	if e.ErrorFunc != nil {
		e.ErrorFunc(err)
	}
}

func (e EmitterFuncs[T]) Complete() {
	if e.CompleteFunc != nil {
		e.CompleteFunc()
	}
}
