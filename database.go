package firestream

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/ports"
	"github.com/aretw0/firestream/pkg/stream"
)

// DatabaseSources is the entry to the state source tree.
type DatabaseSources struct {
	factory *factory
	db      ports.Database
	url     string
}

// Ref returns the node for path. "" and "/" are the root.
func (d *DatabaseSources) Ref(path string) *Reference {
	return newReference(d.factory, d.db.Ref(path))
}

// RefFromURL returns the node for an absolute URL of the configured database.
func (d *DatabaseSources) RefFromURL(raw string) (*Reference, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrForeignURL, err)
	}
	base, err := url.Parse(d.url)
	if err != nil || d.url == "" {
		return nil, fmt.Errorf("%w: no database url configured", domain.ErrForeignURL)
	}
	if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return nil, fmt.Errorf("%w: %s", domain.ErrForeignURL, raw)
	}
	return d.Ref(u.Path), nil
}

// Reference is one node of the state source tree.
//
// Events returns one memoized source per category, so every subscriber of
// the same category on the same node shares a single backend listener.
// Nodes returned by Child are independent of their parent.
type Reference struct {
	factory *factory
	ref     ports.Reference

	mu     sync.Mutex
	events map[domain.EventType]*stream.Memory[any]
}

func newReference(f *factory, ref ports.Reference) *Reference {
	return &Reference{
		factory: f,
		ref:     ref,
		events:  make(map[domain.EventType]*stream.Memory[any]),
	}
}

// Path returns the normalized path of the node.
func (r *Reference) Path() string { return r.ref.Path() }

// Key returns the last segment of the path, "" for the root.
func (r *Reference) Key() string { return r.ref.Key() }

// Child returns the node at the relative path below r.
func (r *Reference) Child(path string) *Reference {
	return newReference(r.factory, r.ref.Child(path))
}

// Value is Events(domain.EventValue).
func (r *Reference) Value() *stream.Memory[any] {
	return r.Events(domain.EventValue)
}

// Events returns the source emitting the snapshot values of event.
// An unknown event name surfaces as an error on the first subscription.
func (r *Reference) Events(event domain.EventType) *stream.Memory[any] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.events[event]; ok {
		return m
	}
	m := source(r.factory, "ref:"+string(event), stream.Producer[any](&listen{ref: r.ref, event: event, logger: r.factory.logger}),
		"path", r.ref.Path())
	r.events[event] = m
	return m
}

// listen registers a backend listener per Start and releases it with the
// token the backend handed out.
type listen struct {
	ref    ports.Reference
	event  domain.EventType
	logger *slog.Logger
}

func (l *listen) Start(e stream.Emitter[any]) (stream.Token, error) {
	return l.ref.On(l.event, stream.EmitterFuncs[*domain.Snapshot]{
		NextFunc: func(s *domain.Snapshot) {
			if s != nil {
				e.Next(s.Value)
			}
		},
		ErrorFunc:    e.Error,
		CompleteFunc: e.Complete,
	})
}

func (l *listen) Stop(token stream.Token) {
	if err := l.ref.Off(l.event, token); err != nil {
		l.logger.Debug("listener release failed", "path", l.ref.Path(), "event", l.event, "err", err)
	}
}
