// ABOUTME: Tests for MockStore

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_NewestFirst(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	require.NoError(t, m.RecordEvent(ctx, &Event{Kind: "attach"}))
	require.NoError(t, m.RecordEvent(ctx, &Event{Kind: "start"}))

	events, err := m.ListEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "start", events[0].Kind)
}

func TestMockStore_Closed(t *testing.T) {
	m := NewMockStore()
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.RecordEvent(context.Background(), &Event{Kind: "x"}), ErrStoreClosed)
	_, err := m.ListEvents(context.Background(), 1)
	assert.ErrorIs(t, err, ErrStoreClosed)
}
