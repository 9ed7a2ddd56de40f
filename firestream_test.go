package firestream_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/firestream"
	"github.com/aretw0/firestream/pkg/adapters/memory"
	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/registry"
)

func TestNew_NamesAreUnique(t *testing.T) {
	app := newApp(t)

	_, err := firestream.New(domain.Config{}, app.Name())
	assert.ErrorIs(t, err, registry.ErrDuplicateApp)

	found, ok := firestream.Lookup(app.Name())
	require.True(t, ok)
	assert.Same(t, app, found)

	require.NoError(t, app.Close())
	_, ok = firestream.Lookup(app.Name())
	assert.False(t, ok)

	again, err := firestream.New(domain.Config{}, app.Name())
	require.NoError(t, err)
	assert.NoError(t, again.Close())
}

func TestNew_DefaultsToMemoryBackend(t *testing.T) {
	app := newApp(t)
	assert.IsType(t, &memory.Backend{}, app.Backend())
	assert.Equal(t, testURL, app.Config().DatabaseURL)
}

func TestNew_EmptyNameIsDefault(t *testing.T) {
	app, err := firestream.New(domain.Config{}, "")
	require.NoError(t, err)
	defer app.Close()
	assert.Equal(t, firestream.DefaultName, app.Name())
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := firestream.New(domain.Config{Backend: "carrier-pigeon"}, "pigeon")
	assert.ErrorContains(t, err, "unknown backend")

	_, ok := firestream.Lookup("pigeon")
	assert.False(t, ok, "failed instance must not keep its name")
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, firestream.Version)
}

func TestNew_InjectedBackendIsShared(t *testing.T) {
	backend := memory.New()
	app := newApp(t, firestream.WithBackend(backend))
	ctx, actions, sources := start(t, app)

	results := sources.Responses(ctx, "op")
	push(t, actions, domain.Ref("/shared").Set("yes").As("op"))
	require.NoError(t, recv(t, results).Err)

	snap, err := backend.Database().Ref("/shared").Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "yes", snap.Value)
}
