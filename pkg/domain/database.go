package domain

import (
	"fmt"
	"math"
)

// EventType is a category of database notifications.
type EventType string

const (
	EventValue        EventType = "value"
	EventChildAdded   EventType = "child_added"
	EventChildChanged EventType = "child_changed"
	EventChildRemoved EventType = "child_removed"
	EventChildMoved   EventType = "child_moved"
)

// ParseEventType validates an event category name.
func ParseEventType(name string) (EventType, error) {
	switch e := EventType(name); e {
	case EventValue, EventChildAdded, EventChildChanged, EventChildRemoved, EventChildMoved:
		return e, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// Snapshot is the content of a database location at one point in time.
type Snapshot struct {
	Key      string   `json:"key"`
	Path     string   `json:"path"`
	Value    any      `json:"value"`
	Priority Priority `json:"priority,omitempty"`
	Exists   bool     `json:"exists"`
	// PrevKey is the key of the preceding sibling for child events.
	PrevKey string `json:"prev_key,omitempty"`
}

// Priority orders children. It is nil, a string or a float64.
type Priority any

// NormalizePriority converts numeric priorities to float64 and rejects
// anything that is not nil, a number or a string.
func NormalizePriority(p Priority) (Priority, error) {
	switch v := p.(type) {
	case nil, string:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("priority must be finite")
		}
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	}
	return nil, fmt.Errorf("priority must be a string, a number or nil, got %T", p)
}

// UpdateFunc computes the new value of a location from its current value.
// Returning false aborts the transaction.
type UpdateFunc func(current any) (any, bool)

// TransactionResult is the outcome of a Transaction.
type TransactionResult struct {
	Committed bool      `json:"committed"`
	Snapshot  *Snapshot `json:"snapshot"`
}
