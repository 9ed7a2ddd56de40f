package memory

import (
	"crypto/rand"
	"time"

	"github.com/aretw0/firestream/pkg/ports"
)

// Backend bundles the in-memory Auth and Database.
type Backend struct {
	auth *Auth
	db   *Database
}

// Option configures a Backend.
type Option func(*options)

type options struct {
	secret   []byte
	tokenTTL time.Duration
}

// WithSecret sets the HS256 key used for ID and custom tokens.
// By default a random key is generated per backend.
func WithSecret(secret []byte) Option {
	return func(o *options) {
		o.secret = secret
	}
}

// WithTokenTTL sets the lifetime of issued tokens. Default is one hour.
func WithTokenTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.tokenTTL = ttl
	}
}

// New creates an empty in-memory backend.
func New(opts ...Option) *Backend {
	o := options{tokenTTL: time.Hour}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.secret) == 0 {
		o.secret = make([]byte, 32)
		_, _ = rand.Read(o.secret)
	}
	return &Backend{
		auth: newAuth(o.secret, o.tokenTTL),
		db:   NewDatabase(),
	}
}

func (b *Backend) Auth() ports.Auth         { return b.auth }
func (b *Backend) Database() ports.Database { return b.db }

// Accounts exposes the concrete Auth for test helpers such as Outbox.
func (b *Backend) Accounts() *Auth { return b.auth }

var _ ports.Backend = (*Backend)(nil)
