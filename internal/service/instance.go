// ABOUTME: Instance wraps a running service with its Open/Closing/Closed state.
// ABOUTME: Close and SendToClient share one mutex so no push is delivered after close.

package service

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/2389/shell-bridge/internal/relay"
)

// State is the lifecycle state of an instance.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Instance is one running platform service.
type Instance struct {
	name   string
	handle relay.Handle
	gen    uint64 // factory generation that produced this instance
	relay  *relay.Relay
	logger *slog.Logger

	// svc is set once by the registry before the instance is published.
	svc Service

	closeMu sync.Mutex   // serializes state transitions out of Open with pushes
	state   atomic.Int32 // State; written under closeMu, read lock-free by requests
	done    chan struct{}
}

func newInstance(name string, handle relay.Handle, gen uint64, rl *relay.Relay, logger *slog.Logger) *Instance {
	return &Instance{
		name:   name,
		handle: handle,
		gen:    gen,
		relay:  rl,
		logger: logger.With("service", name, "handle", int64(handle)),
		done:   make(chan struct{}),
	}
}

// Name returns the service name the instance was resolved under.
func (i *Instance) Name() string { return i.name }

// Handle returns the runtime-assigned handle.
func (i *Instance) Handle() relay.Handle { return i.handle }

// State returns the current lifecycle state.
func (i *Instance) State() State { return State(i.state.Load()) }

// Done is closed once the instance reaches StateClosed.
func (i *Instance) Done() <-chan struct{} { return i.done }

// ReceiveFromClient forwards a synchronous request to the service.
// Non-open instances answer with InvalidState and no data.
func (i *Instance) ReceiveFromClient(data []byte) Response {
	if i.State() != StateOpen {
		return invalidState()
	}
	return i.svc.ReceiveFromClient(data)
}

// SendToClient pushes data to the runtime through the relay.
// Once the instance has left StateOpen the push is dropped.
func (i *Instance) SendToClient(data []byte) {
	i.closeMu.Lock()
	defer i.closeMu.Unlock()

	if i.State() != StateOpen {
		i.relay.Drop()
		i.logger.Warn("push dropped, service already closed")
		return
	}
	i.relay.Deliver(i.handle, data)
}

// BeforeStartOrResume forwards the resume hook to an open service.
func (i *Instance) BeforeStartOrResume() {
	if i.State() == StateOpen {
		i.svc.BeforeStartOrResume()
	}
}

// BeforeSuspend forwards the suspend hook to an open service.
func (i *Instance) BeforeSuspend() {
	if i.State() == StateOpen {
		i.svc.BeforeSuspend()
	}
}

// AfterStopped forwards the stopped hook to an open service.
func (i *Instance) AfterStopped() {
	if i.State() == StateOpen {
		i.svc.AfterStopped()
	}
}

// Close moves the instance to Closing, tears the service down, then marks it
// Closed. Safe to call multiple times; later calls wait for the first to finish.
func (i *Instance) Close() {
	i.closeMu.Lock()
	if i.State() != StateOpen {
		i.closeMu.Unlock()
		<-i.done
		return
	}
	i.state.Store(int32(StateClosing))
	i.closeMu.Unlock()

	if i.svc != nil {
		i.svc.Close()
	}

	i.state.Store(int32(StateClosed))
	close(i.done)
	i.logger.Info("service closed")
}

// abandon closes an instance whose factory failed. Pushes from goroutines the
// factory may have started are dropped from here on.
func (i *Instance) abandon() {
	i.svc = nil
	i.Close()
}
