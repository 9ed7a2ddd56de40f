package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/ports"
	"github.com/aretw0/firestream/pkg/stream"
	"github.com/aretw0/firestream/pkg/tree"
)

type listener struct {
	path    string
	event   domain.EventType
	emitter stream.Emitter[*domain.Snapshot]
}

// Database implements ports.Database in memory.
// Safe for concurrent use. Events are delivered synchronously by the
// goroutine performing the write, after the write is visible.
type Database struct {
	mu        sync.Mutex
	root      any
	offline   bool
	listeners map[stream.Token]*listener

	delivery dispatcher
}

// NewDatabase creates an empty in-memory database.
func NewDatabase() *Database {
	return &Database{listeners: make(map[stream.Token]*listener)}
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

// write applies change to the tree and notifies the listeners affected by a
// change at path. change runs with the lock held.
func (d *Database) write(path string, change func(root any) (any, error)) error {
	d.mu.Lock()
	if d.offline {
		d.mu.Unlock()
		return domain.ErrOffline
	}
	before := d.root
	after, err := change(before)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	d.root = after
	d.notifyLocked(path, before, after)
	return nil
}

// notifyLocked releases d.mu.
func (d *Database) notifyLocked(path string, before, after any) {
	var calls []func()
	for _, l := range d.listeners {
		if !tree.Related(l.path, path) {
			continue
		}
		for _, snap := range tree.Events(l.event, l.path, before, after) {
			calls = append(calls, func() { l.emitter.Next(snap) })
		}
	}
	d.delivery.run(d.mu.Unlock, calls)
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
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return tree.Snapshot(r.db.root, r.path), nil
}

func (r *reference) Set(ctx context.Context, value any) error {
	return r.db.write(r.path, func(root any) (any, error) {
		return tree.Set(root, r.path, value)
	})
}

func (r *reference) SetPriority(ctx context.Context, priority domain.Priority) error {
	return r.db.write(r.path, func(root any) (any, error) {
		return tree.SetPriority(root, r.path, priority)
	})
}

func (r *reference) SetWithPriority(ctx context.Context, value any, priority domain.Priority) error {
	return r.db.write(r.path, func(root any) (any, error) {
		return tree.SetWithPriority(root, r.path, value, priority)
	})
}

func (r *reference) Update(ctx context.Context, values map[string]any) error {
	return r.db.write(r.path, func(root any) (any, error) {
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

// Transaction runs fn under the database lock, so it sees no concurrent writes.
func (r *reference) Transaction(ctx context.Context, fn domain.UpdateFunc) (domain.TransactionResult, error) {
	var result domain.TransactionResult
	err := r.db.write(r.path, func(root any) (after any, err error) {
		after, result, err = tree.Transact(root, r.path, fn)
		return after, err
	})
	return result, err
}

func (r *reference) On(event domain.EventType, e stream.Emitter[*domain.Snapshot]) (stream.Token, error) {
	if _, err := domain.ParseEventType(string(event)); err != nil {
		return "", err
	}
	token := stream.NewToken()

	d := r.db
	d.mu.Lock()
	d.listeners[token] = &listener{path: r.path, event: event, emitter: e}
	var calls []func()
	for _, snap := range tree.Events(event, r.path, nil, d.root) {
		calls = append(calls, func() { e.Next(snap) })
	}
	d.delivery.run(d.mu.Unlock, calls)
	return token, nil
}

func (r *reference) Off(event domain.EventType, token stream.Token) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if l, ok := r.db.listeners[token]; ok && l.event == event {
		delete(r.db.listeners, token)
	}
	return nil
}

