// ABOUTME: Lifecycle event types delivered to coordinator observers.

package shell

import "time"

// EventKind names a coordinator transition.
type EventKind string

const (
	EventAttach            EventKind = "attach"
	EventStart             EventKind = "start"
	EventStop              EventKind = "stop"
	EventDestroy           EventKind = "destroy"
	EventRuntimeReady      EventKind = "runtime_ready"
	EventDeepLinkBuffered  EventKind = "deep_link_buffered"
	EventDeepLinkDelivered EventKind = "deep_link_delivered"
	EventShutdown          EventKind = "shutdown"
)

// LifecycleEvent describes one transition.
type LifecycleEvent struct {
	Kind   EventKind
	HostID string
	Detail string
	At     time.Time
}

// Observer receives lifecycle events. The cold-start attach event is delivered
// while the Host is locked, so observers must not call back into the Host.
type Observer interface {
	OnLifecycleEvent(LifecycleEvent)
}

// ObserverFunc adapts a function into an Observer.
type ObserverFunc func(LifecycleEvent)

// OnLifecycleEvent calls f.
func (f ObserverFunc) OnLifecycleEvent(e LifecycleEvent) { f(e) }

// Navigator acts on deep links once the embedded runtime is ready.
// Navigate must not call back into the coordinator.
type Navigator interface {
	Navigate(url string)
}

// NavigatorFunc adapts a function into a Navigator.
type NavigatorFunc func(url string)

// Navigate calls f.
func (f NavigatorFunc) Navigate(url string) { f(url) }
