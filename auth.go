package firestream

import (
	"context"
	"sync"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/ports"
	"github.com/aretw0/firestream/pkg/stream"
)

// AuthSources exposes the account state of the backend as lazy sources.
// Each accessor returns the same source on every call.
type AuthSources struct {
	factory *factory
	auth    ports.Auth

	authState   *stream.Memory[*domain.User]
	currentUser *stream.Memory[*domain.User]
	idToken     *stream.Memory[*domain.User]

	mu        sync.Mutex
	providers map[string]*stream.Memory[[]string]
	redirect  *stream.Memory[*domain.UserCredential]
}

func newAuthSources(f *factory, auth ports.Auth) *AuthSources {
	onIDToken := stream.ProducerFuncs[*domain.User]{
		StartFunc: auth.OnIDTokenChanged,
		StopFunc:  auth.Unsubscribe,
	}
	return &AuthSources{
		factory: f,
		auth:    auth,
		authState: source(f, "auth_state", stream.Producer[*domain.User](stream.ProducerFuncs[*domain.User]{
			StartFunc: auth.OnAuthStateChanged,
			StopFunc:  auth.Unsubscribe,
		})),
		currentUser: source(f, "current_user", stream.Producer[*domain.User](stream.ProducerFuncs[*domain.User]{
			StartFunc: func(e stream.Emitter[*domain.User]) (stream.Token, error) {
				return auth.OnIDTokenChanged(&userTracker{auth: auth, next: e})
			},
			StopFunc: auth.Unsubscribe,
		})),
		idToken:   source(f, "id_token", stream.DropRepeats[*domain.User](onIDToken, stream.Same[*domain.User])),
		providers: make(map[string]*stream.Memory[[]string]),
	}
}

// AuthState emits the signed-in user (nil when signed out) on every sign-in
// and sign-out.
func (s *AuthSources) AuthState() *stream.Memory[*domain.User] {
	return s.authState
}

// CurrentUser emits the signed-in user whenever it changes. Nothing is
// emitted while nobody has signed in yet.
func (s *AuthSources) CurrentUser() *stream.Memory[*domain.User] {
	return s.currentUser
}

// IDToken emits the user whose ID token changed. A token refresh for the
// same user object is reported once.
func (s *AuthSources) IDToken() *stream.Memory[*domain.User] {
	return s.idToken
}

// ProvidersForEmail emits the sign-in providers registered for email, then
// completes. A later subscriber looks them up again.
func (s *AuthSources) ProvidersForEmail(email string) *stream.Memory[[]string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.providers[email]; ok {
		return m
	}
	m := source(s.factory, "providers_for_email", stream.Producer[[]string](newLookup(s.factory.ctx,
		func(ctx context.Context) ([]string, error) {
			return s.auth.FetchProvidersForEmail(ctx, email)
		})))
	s.providers[email] = m
	return m
}

// RedirectResult emits the outcome of the last redirect sign-in (nil when
// there is none), then completes.
func (s *AuthSources) RedirectResult() *stream.Memory[*domain.UserCredential] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.redirect == nil {
		s.redirect = source(s.factory, "redirect_result", stream.Producer[*domain.UserCredential](newLookup(s.factory.ctx,
			s.auth.GetRedirectResult)))
	}
	return s.redirect
}

// userTracker reads the backend's current user on every token notification
// and forwards it only when it is a different user than last time.
type userTracker struct {
	auth ports.Auth
	next stream.Emitter[*domain.User]

	mu   sync.Mutex
	last *domain.User
}

func (c *userTracker) Next(*domain.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.auth.CurrentUser()
	if u == c.last {
		return
	}
	c.last = u
	c.next.Next(u)
}

func (c *userTracker) Error(err error) { c.next.Error(err) }

func (c *userTracker) Complete() { c.next.Complete() }
