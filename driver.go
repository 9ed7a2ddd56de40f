package firestream

import (
	"context"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/stream"
)

// Driver consumes actions until ctx is done or actions is closed.
//
// Every action received is executed immediately, in the order received, even
// if nobody ever reads its response.
type Driver func(ctx context.Context, actions <-chan domain.Action) *Sources

// Registration pairs an executed action's correlation key with its result.
type Registration struct {
	Key    string
	Result *stream.Single[any]
}

// Sources is the output bundle of a driver.
type Sources struct {
	Auth     *AuthSources
	Database *DatabaseSources

	registrations *stream.Hub[Registration]
}

func (a *App) drive(ctx context.Context, actions <-chan domain.Action) *Sources {
	f := &factory{ctx: ctx, logger: a.logger, hooks: a.hooks}
	s := &Sources{
		Auth:          newAuthSources(f, a.backend.Auth()),
		Database:      &DatabaseSources{factory: f, db: a.backend.Database(), url: a.config.DatabaseURL},
		registrations: stream.NewHub[Registration](),
	}
	go a.drain(ctx, actions, s.registrations)
	return s
}

// drain is the permanent consumer of the action channel.
func (a *App) drain(ctx context.Context, actions <-chan domain.Action, hub *stream.Hub[Registration]) {
	defer hub.Close()
	a.logger.Info("driver started")
	defer a.logger.Info("driver stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case action, ok := <-actions:
			if !ok {
				return
			}
			hub.Publish(Registration{Key: action.Key(), Result: a.executor.Execute(ctx, action)})
		}
	}
}

// Responses returns the results of the actions tagged with key.
//
// Only actions received by the driver after Responses is called are
// observed. Results of several actions are delivered in the order the actions
// were received, regardless of which backend call finished first. A failed
// action yields an error notification and the stream carries on with the
// next result. The channel is closed when ctx is done or the driver stops.
func (s *Sources) Responses(ctx context.Context, key string) <-chan stream.Notification[any] {
	regs := s.registrations.Subscribe(ctx)
	matching := stream.Filter(ctx, regs, func(r Registration) bool {
		return r.Key == key
	})
	results := stream.Transform(ctx, matching, func(r Registration) stream.Source[any] {
		return r.Result
	})
	return stream.Concat(ctx, results)
}
