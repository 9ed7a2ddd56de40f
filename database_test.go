package firestream_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/firestream"
	"github.com/aretw0/firestream/pkg/adapters/memory"
	"github.com/aretw0/firestream/pkg/domain"
)

func write(t *testing.T, ctx context.Context, actions chan<- domain.Action, sources *firestream.Sources, a domain.Action) {
	t.Helper()
	key := domain.NewKey()
	results := sources.Responses(ctx, key)
	push(t, actions, a.As(key))
	require.NoError(t, recv(t, results).Err)
}

func TestReference_ValueLifecycle(t *testing.T) {
	backend := &countingBackend{Backend: memory.New()}
	app := newApp(t, firestream.WithBackend(backend))
	ctx, actions, sources := start(t, app)
	ref := sources.Database.Ref("/v")

	ons, _ := backend.counts()
	assert.Empty(t, ons, "no listener before the first subscriber")

	firstCtx, stopFirst := context.WithCancel(ctx)
	first := ref.Value().Subscribe(firstCtx)
	expectSilent(t, first)

	write(t, ctx, actions, sources, domain.Ref("/v").Set(1))
	assert.Equal(t, 1.0, recv(t, first).Value)

	secondCtx, stopSecond := context.WithCancel(ctx)
	second := ref.Value().Subscribe(secondCtx)
	assert.Equal(t, 1.0, recv(t, second).Value, "late subscriber gets the latest value")

	ons, _ = backend.counts()
	assert.Len(t, ons, 1, "second subscriber shares the listener")

	stopFirst()
	stopSecond()
	assert.Eventually(t, func() bool {
		_, offs := backend.counts()
		return len(offs) == 1
	}, waitTimeout, tick)
	ons, offs := backend.counts()
	assert.Equal(t, ons, offs, "listener released with its own token")

	write(t, ctx, actions, sources, domain.Ref("/v").Set(2))

	third := ref.Value().Subscribe(ctx)
	assert.Equal(t, 2.0, recv(t, third).Value, "resubscribing reflects the backend, not the old value")
	ons, _ = backend.counts()
	assert.Len(t, ons, 2)
}

func TestReference_EventsAreMemoized(t *testing.T) {
	app := newApp(t)
	_, _, sources := start(t, app)

	ref := sources.Database.Ref("/users")
	assert.Same(t, ref.Value(), ref.Events(domain.EventValue))
	assert.NotSame(t, ref.Events(domain.EventChildAdded), ref.Value())
	assert.NotSame(t, ref.Child("ada"), ref.Child("ada"), "children are independent nodes")
}

func TestReference_ChildNavigation(t *testing.T) {
	app := newApp(t)
	ctx, actions, sources := start(t, app)

	write(t, ctx, actions, sources, domain.Ref("/users/ada/name").Set("Ada"))

	child := sources.Database.Ref("users").Child("ada/name")
	assert.Equal(t, "/users/ada/name", child.Path())
	assert.Equal(t, "name", child.Key())
	assert.Equal(t, "Ada", recv(t, child.Value().Subscribe(ctx)).Value)

	assert.Equal(t, "", sources.Database.Ref("").Key())
}

func TestReference_ChildAdded(t *testing.T) {
	app := newApp(t)
	ctx, actions, sources := start(t, app)

	write(t, ctx, actions, sources, domain.Ref("/list").Push("one"))

	added := sources.Database.Ref("/list").Events(domain.EventChildAdded).Subscribe(ctx)
	assert.Equal(t, "one", recv(t, added).Value, "existing child")

	write(t, ctx, actions, sources, domain.Ref("/list").Push("two"))
	assert.Equal(t, "two", recv(t, added).Value)
}

func TestReference_UnknownEventFails(t *testing.T) {
	app := newApp(t)
	ctx, _, sources := start(t, app)

	ch := sources.Database.Ref("/x").Events("bogus").Subscribe(ctx)
	assert.ErrorIs(t, recv(t, ch).Err, domain.ErrUnknownEvent)
	expectClosed(t, ch)
}

func TestDatabase_RefFromURL(t *testing.T) {
	app := newApp(t)
	_, _, sources := start(t, app)

	ref, err := sources.Database.RefFromURL(testURL + "/users/ada")
	require.NoError(t, err)
	assert.Equal(t, "/users/ada", ref.Path())

	_, err = sources.Database.RefFromURL("https://elsewhere.example.com/users")
	assert.ErrorIs(t, err, domain.ErrForeignURL)

	_, err = sources.Database.RefFromURL("::not a url")
	assert.ErrorIs(t, err, domain.ErrForeignURL)
}

func TestReference_SourceHooks(t *testing.T) {
	events := make(chan string, 4)
	hooks := domain.Hooks{
		OnSourceStart: func(e *domain.SourceEvent) { events <- "start " + e.Source },
		OnSourceStop:  func(e *domain.SourceEvent) { events <- "stop " + e.Source },
	}
	app := newApp(t, firestream.WithHooks(hooks))
	ctx, _, sources := start(t, app)

	subCtx, cancel := context.WithCancel(ctx)
	sources.Database.Ref("/h").Value().Subscribe(subCtx)
	assert.Equal(t, "start ref:value", <-events)
	cancel()
	assert.Equal(t, "stop ref:value", <-events)
}

func TestReference_ReleaseErrorIsLogged(t *testing.T) {
	backend := &countingBackend{Backend: memory.New(), offErr: errors.New("connection reset")}
	var logs lockedBuffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	app := newApp(t, firestream.WithBackend(backend), firestream.WithLogger(logger))
	ctx, _, sources := start(t, app)

	subCtx, cancel := context.WithCancel(ctx)
	values := sources.Database.Ref("/flaky").Value().Subscribe(subCtx)
	cancel()
	expectClosed(t, values)

	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "listener release failed")
	}, waitTimeout, tick)
	assert.Contains(t, logs.String(), "connection reset")
	assert.Contains(t, logs.String(), "path=/flaky")
}
