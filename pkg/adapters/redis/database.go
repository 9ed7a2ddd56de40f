package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/ports"
	"github.com/aretw0/firestream/pkg/stream"
	"github.com/aretw0/firestream/pkg/tree"
)

const (
	defaultPrefix     = "firestream:"
	defaultMaxRetries = 16
)

// Database implements ports.Database on Redis.
//
// The whole tree is one JSON document. Writes are optimistic WATCH/MULTI
// transactions and announce the changed path on a pub/sub channel, which
// every listener subscribes to.
type Database struct {
	client     *backend.Client
	owned      bool
	prefix     string
	maxRetries int

	mu        sync.Mutex
	offline   bool
	listeners map[stream.Token]*listener
}

type Option func(*Database)

// WithPrefix sets the key prefix for the document and the change channel.
func WithPrefix(prefix string) Option {
	return func(d *Database) {
		d.prefix = prefix
	}
}

// WithMaxRetries sets how many times a conflicting write is retried before
// failing with domain.ErrTransactionAborted.
func WithMaxRetries(n int) Option {
	return func(d *Database) {
		d.maxRetries = n
	}
}

// New creates a Redis database with options.
func New(address, password string, db int, opts ...Option) *Database {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	d := NewFromClient(rdb, opts...)
	d.owned = true
	return d
}

// Open creates a Redis database from a redis:// URL.
func Open(url string, opts ...Option) (*Database, error) {
	options, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	d := NewFromClient(backend.NewClient(options), opts...)
	d.owned = true
	return d, nil
}

// NewFromClient creates a Redis database from an existing client.
// Close leaves the client open.
func NewFromClient(client *backend.Client, opts ...Option) *Database {
	d := &Database{
		client:     client,
		prefix:     defaultPrefix,
		maxRetries: defaultMaxRetries,
		listeners:  make(map[stream.Token]*listener),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Database) treeKey() string {
	return d.prefix + "tree"
}

func (d *Database) channel() string {
	return d.prefix + "changes"
}

// Ping checks the connection.
func (d *Database) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Close releases every listener, and the client if the Database created it.
func (d *Database) Close() error {
	d.mu.Lock()
	listeners := d.listeners
	d.listeners = make(map[stream.Token]*listener)
	d.mu.Unlock()

	for _, l := range listeners {
		l.close()
	}
	if d.owned {
		return d.client.Close()
	}
	return nil
}

func (d *Database) Ref(path string) ports.Reference {
	return &reference{db: d, path: tree.Clean(path)}
}

func (d *Database) GoOffline(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offline = true
	return nil
}

func (d *Database) GoOnline(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offline = false
	return nil
}

func (d *Database) isOffline() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.offline
}

type getter interface {
	Get(ctx context.Context, key string) *backend.StringCmd
}

// load reads the document. A missing key is an empty tree.
func load(ctx context.Context, c getter, key string) (any, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tree: %w", err)
	}
	return root, nil
}

// write applies change in an optimistic transaction and publishes path.
// change may run several times when other writers interfere.
func (d *Database) write(ctx context.Context, path string, change func(root any) (any, error)) error {
	if d.isOffline() {
		return domain.ErrOffline
	}
	key := d.treeKey()

	txf := func(tx *backend.Tx) error {
		root, err := load(ctx, tx, key)
		if err != nil {
			return err
		}
		after, err := change(root)
		if err != nil {
			return err
		}
		data, err := json.Marshal(after)
		if err != nil {
			return fmt.Errorf("failed to marshal tree: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			if after == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, data, 0)
			}
			pipe.Publish(ctx, d.channel(), path)
			return nil
		})
		return err
	}

	for i := 0; i < d.maxRetries; i++ {
		err := d.client.Watch(ctx, txf, key)
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %s after %d attempts", domain.ErrTransactionAborted, path, d.maxRetries)
}

type reference struct {
	db   *Database
	path string
}

func (r *reference) Path() string { return r.path }
func (r *reference) Key() string  { return tree.Base(r.path) }

func (r *reference) Child(path string) ports.Reference {
	return &reference{db: r.db, path: tree.Join(r.path, path)}
}

func (r *reference) Get(ctx context.Context) (*domain.Snapshot, error) {
	root, err := load(ctx, r.db.client, r.db.treeKey())
	if err != nil {
		return nil, err
	}
	return tree.Snapshot(root, r.path), nil
}

func (r *reference) Set(ctx context.Context, value any) error {
	return r.db.write(ctx, r.path, func(root any) (any, error) {
		return tree.Set(root, r.path, value)
	})
}

func (r *reference) SetPriority(ctx context.Context, priority domain.Priority) error {
	return r.db.write(ctx, r.path, func(root any) (any, error) {
		return tree.SetPriority(root, r.path, priority)
	})
}

func (r *reference) SetWithPriority(ctx context.Context, value any, priority domain.Priority) error {
	return r.db.write(ctx, r.path, func(root any) (any, error) {
		return tree.SetWithPriority(root, r.path, value, priority)
	})
}

func (r *reference) Update(ctx context.Context, values map[string]any) error {
	return r.db.write(ctx, r.path, func(root any) (any, error) {
		return tree.Update(root, r.path, values)
	})
}

func (r *reference) Remove(ctx context.Context) error {
	return r.Set(ctx, nil)
}

func (r *reference) Push(ctx context.Context, value any) (ports.Reference, error) {
	child := r.Child(ulid.Make().String())
	if err := child.Set(ctx, value); err != nil {
		return nil, err
	}
	return child, nil
}

func (r *reference) Transaction(ctx context.Context, fn domain.UpdateFunc) (domain.TransactionResult, error) {
	var result domain.TransactionResult
	err := r.db.write(ctx, r.path, func(root any) (after any, err error) {
		after, result, err = tree.Transact(root, r.path, fn)
		return after, err
	})
	return result, err
}

// On subscribes to the change channel before reading the current tree, so
// no write can fall between the initial events and the live ones.
func (r *reference) On(event domain.EventType, e stream.Emitter[*domain.Snapshot]) (stream.Token, error) {
	if _, err := domain.ParseEventType(string(event)); err != nil {
		return "", err
	}
	d := r.db
	ctx := context.Background()

	sub := d.client.Subscribe(ctx, d.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return "", fmt.Errorf("failed to subscribe: %w", err)
	}
	root, err := load(ctx, d.client, d.treeKey())
	if err != nil {
		_ = sub.Close()
		return "", err
	}

	l := &listener{path: r.path, event: event, emitter: e, sub: sub}
	token := stream.NewToken()
	d.mu.Lock()
	d.listeners[token] = l
	d.mu.Unlock()

	l.emit(tree.Events(event, r.path, nil, root))
	go l.run(d, root)
	return token, nil
}

func (r *reference) Off(event domain.EventType, token stream.Token) error {
	d := r.db
	d.mu.Lock()
	l, ok := d.listeners[token]
	if ok && l.event == event {
		delete(d.listeners, token)
	}
	d.mu.Unlock()

	if ok && l.event == event {
		l.close()
	}
	return nil
}

// listener owns one pub/sub connection.
type listener struct {
	path    string
	event   domain.EventType
	emitter stream.Emitter[*domain.Snapshot]
	sub     *backend.PubSub

	mu     sync.Mutex
	closed bool
}

// run diffs the tree against the last version seen on every related change.
func (l *listener) run(d *Database, prev any) {
	ctx := context.Background()
	for msg := range l.sub.Channel() {
		if !tree.Related(l.path, msg.Payload) {
			continue
		}
		root, err := load(ctx, d.client, d.treeKey())
		if err != nil {
			l.fail(err)
			return
		}
		l.emit(tree.Events(l.event, l.path, prev, root))
		prev = root
	}
}

func (l *listener) emit(snaps []*domain.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	for _, s := range snaps {
		l.emitter.Next(s)
	}
}

func (l *listener) fail(err error) {
	l.mu.Lock()
	closed := l.closed
	l.closed = true
	l.mu.Unlock()
	if !closed {
		l.emitter.Error(err)
	}
}

// close stops delivery. Nothing is emitted once close returns.
func (l *listener) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	_ = l.sub.Close()
}
