package firestream

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/firestream/pkg/adapters/memory"
	"github.com/aretw0/firestream/pkg/adapters/redis"
	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/executor"
	"github.com/aretw0/firestream/pkg/ports"
	"github.com/aretw0/firestream/pkg/registry"
)

// DefaultName is the instance name used when New is given an empty one.
const DefaultName = "[DEFAULT]"

var apps = registry.New[*App]()

// App is one named driver instance bound to a backend.
type App struct {
	name     string
	config   domain.Config
	backend  ports.Backend
	executor *executor.Executor
	hooks    domain.Hooks
	logger   *slog.Logger
	closers  []func() error
}

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithBackend injects the backend, bypassing the one selected by Config.Backend.
func WithBackend(b ports.Backend) Option {
	return func(a *App) {
		a.backend = b
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithHooks registers observability hooks for actions and sources.
func WithHooks(hooks domain.Hooks) Option {
	return func(a *App) {
		a.hooks = hooks
	}
}

// New initializes the instance called name.
// Names are unique in the process until the App is closed.
func New(cfg domain.Config, name string, opts ...Option) (*App, error) {
	if name == "" {
		name = DefaultName
	}
	app := &App{name: name, config: cfg}
	for _, opt := range opts {
		opt(app)
	}

	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	app.logger = app.logger.With("app", name)

	if app.backend == nil {
		b, closer, err := openBackend(cfg)
		if err != nil {
			return nil, err
		}
		app.backend = b
		if closer != nil {
			app.closers = append(app.closers, closer)
		}
	}

	if err := apps.Register(name, app); err != nil {
		app.closeBackend()
		return nil, err
	}

	app.executor = executor.New(app.backend,
		executor.WithLogger(app.logger),
		executor.WithHooks(app.hooks),
	)
	return app, nil
}

// Lookup returns the open App called name.
func Lookup(name string) (*App, bool) {
	return apps.Lookup(name)
}

// Name returns the instance name.
func (a *App) Name() string { return a.name }

// Config returns the configuration the App was created with.
func (a *App) Config() domain.Config { return a.config }

// Backend returns the backend shared by every action and source of the App.
func (a *App) Backend() ports.Backend { return a.backend }

// Driver returns the driver function of the App.
func (a *App) Driver() Driver {
	return a.drive
}

// Close releases the instance name and the backend connections the App opened.
// Drivers already running keep working until their context ends.
func (a *App) Close() error {
	apps.Remove(a.name)
	return a.closeBackend()
}

func (a *App) closeBackend() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

type backend struct {
	auth ports.Auth
	db   ports.Database
}

func (b backend) Auth() ports.Auth         { return b.auth }
func (b backend) Database() ports.Database { return b.db }

// openBackend builds the backend named by cfg.Backend.
// With Redis, accounts still live in memory: only the database is shared.
func openBackend(cfg domain.Config) (ports.Backend, func() error, error) {
	switch cfg.Backend {
	case "", domain.BackendMemory:
		return memory.New(), nil, nil
	case domain.BackendRedis:
		var opts []redis.Option
		if cfg.RedisPrefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.RedisPrefix))
		}
		db, err := redis.Open(cfg.RedisURL, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis database: %w", err)
		}
		if err := db.Ping(context.Background()); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		return backend{auth: memory.New().Auth(), db: db}, db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
