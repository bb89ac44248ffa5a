// ABOUTME: Factory list for the built-in services, driven by the services config section.

package builtins

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/2389/shell-bridge/internal/service"
)

const (
	EchoName  = "echo"
	ClockName = "clock"

	// DefaultClockInterval is used when Options.ClockInterval is zero.
	DefaultClockInterval = time.Second
)

// Options selects which built-in services are registered.
type Options struct {
	Echo          bool
	Clock         bool
	ClockInterval time.Duration

	// Time source for the clock service; the wall clock when nil.
	Time   clock.Clock
	Logger *slog.Logger
}

// Factories returns the factories enabled by opts, in registration order.
func Factories(opts Options) []service.Factory {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Time == nil {
		opts.Time = clock.New()
	}
	if opts.ClockInterval <= 0 {
		opts.ClockInterval = DefaultClockInterval
	}

	var factories []service.Factory
	if opts.Echo {
		factories = append(factories, EchoFactory())
	}
	if opts.Clock {
		factories = append(factories, ClockFactory(opts.Time, opts.ClockInterval, opts.Logger))
	}
	return factories
}
