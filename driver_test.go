package firestream_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/firestream"
	"github.com/aretw0/firestream/pkg/adapters/memory"
	"github.com/aretw0/firestream/pkg/domain"
)

func TestResponses_SetIsAcknowledgedOnce(t *testing.T) {
	app := newApp(t)
	ctx, actions, sources := start(t, app)

	results := sources.Responses(ctx, "op1")
	push(t, actions, domain.Ref("/a").Set(5).As("op1"))

	n := recv(t, results)
	require.NoError(t, n.Err)
	assert.Equal(t, domain.Ack{Kind: domain.KindSet, Path: "/a"}, n.Value)
	expectSilent(t, results)
}

func TestResponses_OnlyMatchingKey(t *testing.T) {
	app := newApp(t)
	ctx, actions, sources := start(t, app)

	mine := sources.Responses(ctx, "mine")
	other := sources.Responses(ctx, "other")
	push(t, actions, domain.Ref("/k").Set(1).As("mine"))

	require.NoError(t, recv(t, mine).Err)
	expectSilent(t, other)
}

func TestResponses_SharedKeyKeepsPushOrder(t *testing.T) {
	backend := &slowBackend{
		Backend: memory.New(),
		delays:  map[string]time.Duration{"/slow": 150 * time.Millisecond},
	}
	app := newApp(t, firestream.WithBackend(backend))
	ctx, actions, sources := start(t, app)

	results := sources.Responses(ctx, "k")
	push(t, actions, domain.Ref("/slow").Set(1).As("k"))
	push(t, actions, domain.Ref("/fast").Set(2).As("k"))

	first := recv(t, results)
	second := recv(t, results)
	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	assert.Equal(t, "/slow", first.Value.(domain.Ack).Path)
	assert.Equal(t, "/fast", second.Value.(domain.Ack).Path)

	assert.Equal(t, []string{"/fast", "/slow"}, backend.completed(), "backend finished out of order")
}

func TestResponses_ErrorIsScopedToItsResult(t *testing.T) {
	app := newApp(t)
	ctx, actions, sources := start(t, app)

	results := sources.Responses(ctx, "k")
	bystander := sources.Responses(ctx, "other")

	push(t, actions, domain.UpdateEmail("new@example.com").As("k"))
	push(t, actions, domain.Ref("/after").Set(true).As("other"))
	push(t, actions, domain.Ref("/after").Set(false).As("k"))

	failed := recv(t, results)
	assert.ErrorIs(t, failed.Err, domain.ErrNoCurrentUser)

	next := recv(t, results)
	require.NoError(t, next.Err)
	assert.Equal(t, domain.Ack{Kind: domain.KindSet, Path: "/after"}, next.Value)

	require.NoError(t, recv(t, bystander).Err)
}

func TestDriver_ExecutesWithoutReaders(t *testing.T) {
	backend := memory.New()
	app := newApp(t, firestream.WithBackend(backend))
	_, actions, _ := start(t, app)

	push(t, actions, domain.Ref("/unobserved").Set("ran"))

	assert.Eventually(t, func() bool {
		snap, err := backend.Database().Ref("/unobserved").Get(context.Background())
		return err == nil && snap.Exists
	}, waitTimeout, tick)
}

func TestDriver_UnknownKindYieldsNothing(t *testing.T) {
	app := newApp(t)
	ctx, actions, sources := start(t, app)

	results := sources.Responses(ctx, "k")
	push(t, actions, domain.NewAction(domain.Kind(99), nil).As("k"))
	push(t, actions, domain.Ref("/x").Set(1).As("k"))

	n := recv(t, results)
	require.NoError(t, n.Err)
	assert.Equal(t, domain.Ack{Kind: domain.KindSet, Path: "/x"}, n.Value)
}

func TestDriver_ResponsesDoNotReplay(t *testing.T) {
	app := newApp(t)
	ctx, actions, sources := start(t, app)

	early := sources.Responses(ctx, "k")
	push(t, actions, domain.Ref("/once").Set(1).As("k"))
	require.NoError(t, recv(t, early).Err)

	late := sources.Responses(ctx, "k")
	expectSilent(t, late)
}

func TestDriver_ClosingActionsEndsResponses(t *testing.T) {
	app := newApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	actions := make(chan domain.Action, 1)
	sources := app.Driver()(ctx, actions)

	results := sources.Responses(ctx, "k")
	actions <- domain.Ref("/last").Set(1).As("k")
	close(actions)

	require.NoError(t, recv(t, results).Err, "pending result is still delivered")
	expectClosed(t, results)
}

func TestDriver_CancelEndsResponses(t *testing.T) {
	app := newApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	sources := app.Driver()(ctx, make(chan domain.Action))

	results := sources.Responses(context.Background(), "k")
	cancel()
	expectClosed(t, results)
}

func TestDriver_ActionHooks(t *testing.T) {
	var mu sync.Mutex
	var done []domain.Kind
	hooks := domain.Hooks{
		OnActionDone: func(_ context.Context, e *domain.ActionEvent) {
			mu.Lock()
			defer mu.Unlock()
			done = append(done, e.Kind)
		},
	}
	app := newApp(t, firestream.WithHooks(hooks))
	ctx, actions, sources := start(t, app)

	results := sources.Responses(ctx, "k")
	push(t, actions, domain.SignInAnonymously().As("k"))
	require.NoError(t, recv(t, results).Err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.Kind{domain.KindSignInAnonymously}, done)
}
