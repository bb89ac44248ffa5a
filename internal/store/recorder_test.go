// ABOUTME: Tests for Recorder wiring coordinator events into a Store.

package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/shell-bridge/internal/shell"
)

func TestRecorder_RecordsEvent(t *testing.T) {
	m := NewMockStore()
	r := NewRecorder(m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	at := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	r.OnLifecycleEvent(shell.LifecycleEvent{
		Kind:   shell.EventDestroy,
		HostID: "surface-1",
		Detail: "true",
		At:     at,
	})

	events, err := m.ListEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "destroy", events[0].Kind)
	assert.Equal(t, "surface-1", events[0].HostID)
	assert.Equal(t, "true", events[0].Detail)
	assert.Equal(t, at, events[0].CreatedAt)
}

func TestRecorder_StoreErrorIsSwallowed(t *testing.T) {
	m := NewMockStore()
	require.NoError(t, m.Close())
	r := NewRecorder(m, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.NotPanics(t, func() {
		r.OnLifecycleEvent(shell.LifecycleEvent{Kind: shell.EventStart})
	})
}

func TestRecorder_WithCoordinator(t *testing.T) {
	s := newTestStore(t)
	host := shell.NewHost(func([]string, string) shell.Options {
		return shell.Options{
			Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
			Observers: []shell.Observer{NewRecorder(s, nil)},
		}
	})

	coord, _, err := host.OnHostAttach(shell.HostRef{ID: "main"}, nil, "")
	require.NoError(t, err)
	require.NoError(t, host.OnUiStart(shell.HostRef{ID: "main"}))
	coord.OnUiDestroy(shell.HostRef{ID: "main", Finishing: true})

	events, err := s.ListEvents(context.Background(), 10)
	require.NoError(t, err)

	var kinds []string
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.ElementsMatch(t, []string{"attach", "start", "destroy", "shutdown"}, kinds)
}
