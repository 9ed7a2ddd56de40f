package domain

import (
	"context"
	"time"
)

// ActionEvent describes one executed action.
type ActionEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Kind      Kind          `json:"kind"`
	Key       string        `json:"key,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"` // Set on completion only.
	Err       error         `json:"-"`
}

// SourceEvent describes a lazy source starting or stopping its backend subscription.
type SourceEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // e.g. "auth_state", "ref:value"
}

// Hooks defines callbacks for driver observability. Nil fields are skipped.
type Hooks struct {
	OnActionStart func(context.Context, *ActionEvent)
	OnActionDone  func(context.Context, *ActionEvent)
	OnSourceStart func(*SourceEvent)
	OnSourceStop  func(*SourceEvent)
}

// MergeHooks returns Hooks calling each of hooks in order.
func MergeHooks(hooks ...Hooks) Hooks {
	return Hooks{
		OnActionStart: func(ctx context.Context, e *ActionEvent) {
			for _, h := range hooks {
				if h.OnActionStart != nil {
					h.OnActionStart(ctx, e)
				}
			}
		},
		OnActionDone: func(ctx context.Context, e *ActionEvent) {
			for _, h := range hooks {
				if h.OnActionDone != nil {
					h.OnActionDone(ctx, e)
				}
			}
		},
		OnSourceStart: func(e *SourceEvent) {
			for _, h := range hooks {
				if h.OnSourceStart != nil {
					h.OnSourceStart(e)
				}
			}
		},
		OnSourceStop: func(e *SourceEvent) {
			for _, h := range hooks {
				if h.OnSourceStop != nil {
					h.OnSourceStop(e)
				}
			}
		},
	}
}
