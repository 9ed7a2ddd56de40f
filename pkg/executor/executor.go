// Package executor maps one action to one backend call.
//
// Execute starts the call immediately and hands back a stream.Single
// observing its outcome. The call is never cancelled once started: it runs to
// completion whether or not anyone is still interested in the result.
package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/ports"
	"github.com/aretw0/firestream/pkg/stream"
)

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger. Default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Executor) {
		x.logger = logger
	}
}

// WithHooks registers lifecycle hooks fired around every executed action.
func WithHooks(hooks domain.Hooks) Option {
	return func(x *Executor) {
		x.hooks = hooks
	}
}

// Executor runs actions against a backend.
type Executor struct {
	backend ports.Backend
	logger  *slog.Logger
	hooks   domain.Hooks
}

// New creates an executor bound to backend.
func New(backend ports.Backend, opts ...Option) *Executor {
	x := &Executor{
		backend: backend,
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Execute starts the backend call for action and returns its result.
// Kinds outside the closed set yield an already completed, empty result.
// Call it once per action: every call performs the backend operation again.
func (x *Executor) Execute(ctx context.Context, action domain.Action) *stream.Single[any] {
	call, ok := x.effect(action)
	if !ok {
		x.logger.Debug("ignoring action of unknown kind", "kind", action.Kind(), "key", action.Key())
		return stream.Empty[any]()
	}

	ctx = context.WithoutCancel(ctx)
	event := &domain.ActionEvent{Timestamp: time.Now(), Kind: action.Kind(), Key: action.Key()}
	if x.hooks.OnActionStart != nil {
		x.hooks.OnActionStart(ctx, event)
	}

	return stream.Go(ctx, func(ctx context.Context) (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("executor: %s panicked: %v", action.Kind(), r)
			}
			x.finish(ctx, event, err)
		}()
		return call(ctx)
	})
}

func (x *Executor) finish(ctx context.Context, start *domain.ActionEvent, err error) {
	done := *start
	done.Duration = time.Since(start.Timestamp)
	done.Err = err
	if err != nil {
		x.logger.Debug("action failed", "kind", done.Kind, "key", done.Key, "err", err)
	}
	if x.hooks.OnActionDone != nil {
		x.hooks.OnActionDone(ctx, &done)
	}
}
