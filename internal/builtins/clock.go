// ABOUTME: Clock service: answers with the current time and pushes ticks while the UI runs.
// ABOUTME: The push worker is paused on suspend and stopped (and awaited) on close.

package builtins

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/2389/shell-bridge/internal/relay"
	"github.com/2389/shell-bridge/internal/service"
)

// ClockFactory returns the factory for the clock service.
func ClockFactory(clk clock.Clock, interval time.Duration, logger *slog.Logger) service.Factory {
	return service.NewFactory(ClockName, func(handle relay.Handle, client service.Client) (service.Service, error) {
		return newClockService(clk, interval, client, logger.With(
			"component", "clock-service",
			"handle", handle,
		)), nil
	})
}

type clockService struct {
	clk    clock.Clock
	client service.Client
	logger *slog.Logger

	ticker *clock.Ticker
	pause  chan bool
	stop   chan struct{}
	done   chan struct{}

	stopOnce sync.Once
}

func newClockService(clk clock.Clock, interval time.Duration, client service.Client, logger *slog.Logger) *clockService {
	s := &clockService{
		clk:    clk,
		client: client,
		logger: logger,
		ticker: clk.Ticker(interval),
		pause:  make(chan bool),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *clockService) run() {
	defer close(s.done)
	defer s.ticker.Stop()

	paused := false
	for {
		select {
		case <-s.stop:
			return
		case p := <-s.pause:
			paused = p
		case now := <-s.ticker.C:
			if paused {
				continue
			}
			s.client.SendToClient([]byte(formatTime(now)))
		}
	}
}

func (s *clockService) setPaused(p bool) {
	select {
	case s.pause <- p:
	case <-s.done:
	}
}

func (s *clockService) BeforeStartOrResume() {
	s.setPaused(false)
	s.logger.Debug("clock resumed")
}

func (s *clockService) BeforeSuspend() {
	s.setPaused(true)
	s.logger.Debug("clock paused")
}

func (s *clockService) AfterStopped() {}

func (s *clockService) ReceiveFromClient([]byte) service.Response {
	return service.Response{Data: []byte(formatTime(s.clk.Now()))}
}

// Close stops the worker and waits for it. A push the worker is making
// concurrently is dropped by the instance.
func (s *clockService) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
