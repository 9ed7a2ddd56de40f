package firestream_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/firestream"
	"github.com/aretw0/firestream/pkg/adapters/memory"
	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/ports"
	"github.com/aretw0/firestream/pkg/stream"
)

const (
	waitTimeout = 2 * time.Second
	quiet       = 50 * time.Millisecond
	tick        = 5 * time.Millisecond
)

const testURL = "https://demo.example.com"

// newApp opens an App named after the test, closed at cleanup.
func newApp(t *testing.T, opts ...firestream.Option) *firestream.App {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	app, err := firestream.New(domain.Config{DatabaseURL: testURL}, name, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

// start runs the driver of app until the test ends.
func start(t *testing.T, app *firestream.App) (context.Context, chan<- domain.Action, *firestream.Sources) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	actions := make(chan domain.Action)
	return ctx, actions, app.Driver()(ctx, actions)
}

func push(t *testing.T, actions chan<- domain.Action, a domain.Action) {
	t.Helper()
	select {
	case actions <- a:
	case <-time.After(waitTimeout):
		t.Fatalf("driver did not accept %s", a)
	}
}

func recv[T any](t *testing.T, ch <-chan stream.Notification[T]) stream.Notification[T] {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "channel closed")
		return n
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a notification")
	}
	return stream.Notification[T]{}
}

func expectSilent[T any](t *testing.T, ch <-chan stream.Notification[T]) {
	t.Helper()
	select {
	case n, ok := <-ch:
		if ok {
			t.Fatalf("unexpected notification %+v", n)
		}
		t.Fatal("channel closed unexpectedly")
	case <-time.After(quiet):
	}
}

func expectClosed[T any](t *testing.T, ch <-chan stream.Notification[T]) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel never closed")
		}
	}
}

// slowBackend delays Set on some paths and records the order in which
// writes complete.
type slowBackend struct {
	*memory.Backend
	delays map[string]time.Duration

	mu   sync.Mutex
	done []string
}

func (b *slowBackend) Database() ports.Database {
	return slowDatabase{Database: b.Backend.Database(), b: b}
}

func (b *slowBackend) completed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.done...)
}

type slowDatabase struct {
	ports.Database
	b *slowBackend
}

func (d slowDatabase) Ref(path string) ports.Reference {
	return slowReference{Reference: d.Database.Ref(path), b: d.b}
}

type slowReference struct {
	ports.Reference
	b *slowBackend
}

func (r slowReference) Set(ctx context.Context, value any) error {
	time.Sleep(r.b.delays[r.Path()])
	err := r.Reference.Set(ctx, value)
	r.b.mu.Lock()
	r.b.done = append(r.b.done, r.Path())
	r.b.mu.Unlock()
	return err
}

// countingBackend records the listeners opened and released on the database.
type countingBackend struct {
	*memory.Backend

	mu     sync.Mutex
	ons    []stream.Token
	offs   []stream.Token
	offErr error
}

func (b *countingBackend) Database() ports.Database {
	return countingDatabase{Database: b.Backend.Database(), b: b}
}

func (b *countingBackend) counts() (ons, offs []stream.Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]stream.Token(nil), b.ons...), append([]stream.Token(nil), b.offs...)
}

type countingDatabase struct {
	ports.Database
	b *countingBackend
}

func (d countingDatabase) Ref(path string) ports.Reference {
	return countingReference{Reference: d.Database.Ref(path), b: d.b}
}

type countingReference struct {
	ports.Reference
	b *countingBackend
}

func (r countingReference) Child(path string) ports.Reference {
	return countingReference{Reference: r.Reference.Child(path), b: r.b}
}

func (r countingReference) On(event domain.EventType, e stream.Emitter[*domain.Snapshot]) (stream.Token, error) {
	token, err := r.Reference.On(event, e)
	if err == nil {
		r.b.mu.Lock()
		r.b.ons = append(r.b.ons, token)
		r.b.mu.Unlock()
	}
	return token, err
}

func (r countingReference) Off(event domain.EventType, token stream.Token) error {
	r.b.mu.Lock()
	r.b.offs = append(r.b.offs, token)
	offErr := r.b.offErr
	r.b.mu.Unlock()
	if err := r.Reference.Off(event, token); err != nil {
		return err
	}
	return offErr
}

// lockedBuffer is a bytes.Buffer safe to write from the driver goroutines
// while a test reads it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
