// ABOUTME: Relay channel that forwards service pushes to the embedded runtime.
// ABOUTME: Holds the single installable delivery function and base64-encodes payloads.

package relay

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
)

// ErrDeliveryInstalled indicates a delivery function was already installed.
var ErrDeliveryInstalled = errors.New("delivery function already installed")

// Handle is the opaque numeric identity the runtime assigns to a service
// instance. It correlates pushes back to the originating instance.
type Handle int64

// String returns the decimal form used on the wire.
func (h Handle) String() string {
	return strconv.FormatInt(int64(h), 10)
}

// ParseHandle parses the decimal wire form of a Handle.
func ParseHandle(s string) (Handle, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return Handle(n), nil
}

// DeliverFunc receives an encoded push for the given handle.
// It is called while the sending instance holds its push lock, so it must not
// block and must not call back into the instance.
type DeliverFunc func(handle Handle, payload string)

// Stats is a snapshot of relay counters.
type Stats struct {
	Delivered uint64
	Dropped   uint64
}

// Relay forwards pushes to the installed delivery function.
type Relay struct {
	deliver   atomic.Pointer[DeliverFunc]
	delivered atomic.Uint64
	dropped   atomic.Uint64
	logger    *slog.Logger
}

// New creates a Relay with no delivery function installed. Pass nil logger for default.
func New(logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{logger: logger.With("component", "relay")}
}

// Install sets the delivery function. It may only be called once; later
// calls return ErrDeliveryInstalled and leave the first function in place.
func (r *Relay) Install(fn DeliverFunc) error {
	if fn == nil {
		return errors.New("delivery function is nil")
	}
	if !r.deliver.CompareAndSwap(nil, &fn) {
		return ErrDeliveryInstalled
	}
	r.logger.Info("delivery function installed")
	return nil
}

// Installed reports whether a delivery function has been installed.
func (r *Relay) Installed() bool {
	return r.deliver.Load() != nil
}

// Deliver encodes data and hands it to the delivery function.
// Returns false when no delivery function is installed yet; the push is dropped.
func (r *Relay) Deliver(handle Handle, data []byte) bool {
	fn := r.deliver.Load()
	if fn == nil {
		r.dropped.Add(1)
		r.logger.Warn("push dropped, no delivery function installed", "handle", int64(handle))
		return false
	}

	(*fn)(handle, Encode(data))
	r.delivered.Add(1)
	return true
}

// Drop records a push that was refused before reaching the relay, such as a
// push from an instance that is no longer open.
func (r *Relay) Drop() {
	r.dropped.Add(1)
}

// Stats returns the current counters.
func (r *Relay) Stats() Stats {
	return Stats{
		Delivered: r.delivered.Load(),
		Dropped:   r.dropped.Load(),
	}
}

// Encode is the byte-to-text transform used at the runtime boundary.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode.
func Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
