// ABOUTME: Tests for the SQLite lifecycle ledger
// ABOUTME: Covers schema creation, ordering, limits and validation

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "ledger.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
}

func TestSQLiteStore_RecordAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, kind := range []string{"attach", "start", "stop"} {
		require.NoError(t, s.RecordEvent(ctx, &Event{
			Kind:      kind,
			HostID:    "surface-1",
			CreatedAt: base.Add(time.Duration(i) * 500 * time.Millisecond),
		}))
	}

	events, err := s.ListEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "stop", events[0].Kind)
	assert.Equal(t, "start", events[1].Kind)
	assert.Equal(t, "attach", events[2].Kind)
	assert.Equal(t, "surface-1", events[0].HostID)
	assert.True(t, base.Add(time.Second).Equal(events[0].CreatedAt))
	assert.NotEmpty(t, events[0].ID)
}

func TestSQLiteStore_ListLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordEvent(ctx, &Event{Kind: "start"}))
	}

	events, err := s.ListEvents(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = s.ListEvents(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestSQLiteStore_FillsIDAndTime(t *testing.T) {
	s := newTestStore(t)

	e := &Event{Kind: "shutdown", Detail: "instances_closed=2"}
	require.NoError(t, s.RecordEvent(context.Background(), e))

	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestSQLiteStore_RejectsEmptyKind(t *testing.T) {
	s := newTestStore(t)
	err := s.RecordEvent(context.Background(), &Event{HostID: "x"})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordEvent(ctx, &Event{ID: "same", Kind: "start"}))
	assert.Error(t, s.RecordEvent(ctx, &Event{ID: "same", Kind: "stop"}))
}

func TestSQLiteStore_Persists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.RecordEvent(ctx, &Event{Kind: "attach", HostID: "a"}))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	events, err := s.ListEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].HostID)
}
