package ports

import (
	"context"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/stream"
)

// Database is the realtime tree database.
type Database interface {
	// Ref returns the reference for a slash-separated path. "" is the root.
	Ref(path string) Reference

	// GoOffline makes writes fail with domain.ErrOffline until GoOnline.
	GoOffline(ctx context.Context) error
	GoOnline(ctx context.Context) error
}

// Reference is one location of the database.
type Reference interface {
	Path() string
	// Key is the last segment of Path, "" for the root.
	Key() string
	Child(path string) Reference

	Get(ctx context.Context) (*domain.Snapshot, error)
	Set(ctx context.Context, value any) error
	SetPriority(ctx context.Context, priority domain.Priority) error
	SetWithPriority(ctx context.Context, value any, priority domain.Priority) error
	Update(ctx context.Context, values map[string]any) error
	Remove(ctx context.Context) error
	// Push writes value under a new, time-ordered child key and returns its reference.
	Push(ctx context.Context, value any) (Reference, error)
	// Transaction applies fn atomically. An aborted update resolves with
	// Committed false and a nil error.
	Transaction(ctx context.Context, fn domain.UpdateFunc) (domain.TransactionResult, error)

	// On registers e for event. A value listener receives the current
	// snapshot right away if data exists; a child_added listener receives
	// every existing child.
	On(event domain.EventType, e stream.Emitter[*domain.Snapshot]) (stream.Token, error)
	// Off releases the listener registered under token. Unknown tokens are ignored.
	Off(event domain.EventType, token stream.Token) error
}

// Backend is the handle shared by every command and every state source.
type Backend interface {
	Auth() Auth
	Database() Database
}
