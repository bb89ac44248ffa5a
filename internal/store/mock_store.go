// ABOUTME: Mock Store implementation for testing
// ABOUTME: Keeps lifecycle events in memory

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrStoreClosed is returned by MockStore after Close.
var ErrStoreClosed = errors.New("store closed")

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu     sync.RWMutex
	events []*Event
	closed bool
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// RecordEvent appends a copy of e.
func (m *MockStore) RecordEvent(ctx context.Context, e *Event) error {
	if e.Kind == "" {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	// Make a copy to avoid external modification
	c := *e
	m.events = append(m.events, &c)
	return nil
}

// ListEvents returns copies of the newest events first.
func (m *MockStore) ListEvents(ctx context.Context, limit int) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	limit = clampLimit(limit)
	var out []*Event
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		c := *m.events[i]
		out = append(out, &c)
	}
	return out, nil
}

// Close marks the store closed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
