// ABOUTME: Recorder writes coordinator lifecycle events into a Store.

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/2389/shell-bridge/internal/shell"
)

const recordTimeout = 2 * time.Second

// Recorder adapts a Store into a shell.Observer.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

var _ shell.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder writing into s.
func NewRecorder(s Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  s,
		logger: logger.With("component", "ledger"),
	}
}

// OnLifecycleEvent records e. Failures are logged, never returned to the
// coordinator.
func (r *Recorder) OnLifecycleEvent(e shell.LifecycleEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	err := r.store.RecordEvent(ctx, &Event{
		Kind:      string(e.Kind),
		HostID:    e.HostID,
		Detail:    e.Detail,
		CreatedAt: e.At,
	})
	if err != nil {
		r.logger.Error("failed to record lifecycle event", "kind", e.Kind, "error", err)
	}
}
