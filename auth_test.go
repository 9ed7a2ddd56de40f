package firestream_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/firestream/pkg/domain"
)

func TestAuth_StateFollowsSignInAndOut(t *testing.T) {
	app := newApp(t)
	ctx, actions, sources := start(t, app)

	state := sources.Auth.AuthState().Subscribe(ctx)
	assert.Nil(t, recv(t, state).Value, "signed out")

	write(t, ctx, actions, sources, domain.SignInAnonymously())
	user := recv(t, state).Value
	require.NotNil(t, user)
	assert.True(t, user.Anonymous)

	write(t, ctx, actions, sources, domain.SignOut())
	assert.Nil(t, recv(t, state).Value)
}

func TestAuth_CurrentUserSkipsInitialSignedOut(t *testing.T) {
	app := newApp(t)
	ctx, actions, sources := start(t, app)

	current := sources.Auth.CurrentUser().Subscribe(ctx)
	expectSilent(t, current)

	write(t, ctx, actions, sources, domain.SignInAnonymously())
	user := recv(t, current).Value
	require.NotNil(t, user)
	assert.Same(t, app.Backend().Auth().CurrentUser(), user)
}

func TestAuth_IDTokenFollowsProfileChanges(t *testing.T) {
	app := newApp(t)
	ctx, actions, sources := start(t, app)

	tokens := sources.Auth.IDToken().Subscribe(ctx)
	assert.Nil(t, recv(t, tokens).Value)

	write(t, ctx, actions, sources, domain.SignInAnonymously())
	require.NotNil(t, recv(t, tokens).Value)

	name := "Ada"
	write(t, ctx, actions, sources, domain.UpdateProfile(domain.ProfilePayload{DisplayName: &name}))
	updated := recv(t, tokens).Value
	require.NotNil(t, updated)
	assert.Equal(t, "Ada", updated.DisplayName)
}

func TestAuth_ProvidersForEmail(t *testing.T) {
	app := newApp(t)
	ctx, actions, sources := start(t, app)

	write(t, ctx, actions, sources, domain.CreateUserWithEmailAndPassword("ada@example.com", "s3cret!"))

	src := sources.Auth.ProvidersForEmail("ada@example.com")
	assert.Same(t, src, sources.Auth.ProvidersForEmail("ada@example.com"))

	ch := src.Subscribe(ctx)
	assert.Equal(t, []string{domain.ProviderPassword}, recv(t, ch).Value)
	expectClosed(t, ch)

	unknown := sources.Auth.ProvidersForEmail("nobody@example.com").Subscribe(ctx)
	assert.Empty(t, recv(t, unknown).Value)
}

func TestAuth_RedirectResult(t *testing.T) {
	app := newApp(t)
	ctx, actions, sources := start(t, app)

	write(t, ctx, actions, sources, domain.SignInWithRedirect(domain.Provider{ProviderID: "github.com"}))

	ch := sources.Auth.RedirectResult().Subscribe(ctx)
	result := recv(t, ch).Value
	require.NotNil(t, result)
	assert.Equal(t, "github.com", result.Credential.ProviderID)
	expectClosed(t, ch)

	again := sources.Auth.RedirectResult().Subscribe(context.Background())
	assert.Nil(t, recv(t, again).Value, "a redirect result is handed out once")
}
