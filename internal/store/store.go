// ABOUTME: Store interface and ledger event type for the lifecycle ledger.

package store

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidEvent is returned when an event is missing its kind.
var ErrInvalidEvent = errors.New("invalid lifecycle event")

const (
	// DefaultListLimit applies when ListEvents is called with a non-positive limit.
	DefaultListLimit = 50

	// MaxListLimit caps ListEvents.
	MaxListLimit = 500
)

// Event is one recorded lifecycle transition.
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	HostID    string    `json:"host_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the lifecycle ledger.
type Store interface {
	// RecordEvent appends an event. An empty ID is filled with a new UUID and
	// a zero CreatedAt with the current time.
	RecordEvent(ctx context.Context, e *Event) error

	// ListEvents returns the most recent events, newest first.
	ListEvents(ctx context.Context, limit int) ([]*Event, error)

	Close() error
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
