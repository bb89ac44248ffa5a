// ABOUTME: Shell coordinator owning the service registry, relay wiring, and deep-link slot.
// ABOUTME: Fans UI lifecycle transitions out to every live service instance.

package shell

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/2389/shell-bridge/internal/relay"
	"github.com/2389/shell-bridge/internal/service"
)

// ErrShutdown indicates the coordinator has been shut down.
var ErrShutdown = errors.New("shell coordinator shut down")

// HostRef identifies the UI surface reporting a lifecycle transition.
type HostRef struct {
	ID string

	// Finishing marks the final surface: its destroy shuts the shell down.
	Finishing bool
}

// Options configures a coordinator at cold start.
type Options struct {
	// Args are the process arguments handed over by the UI host.
	Args []string

	// DeepLink is the initial deep link; it is held until the runtime is ready.
	DeepLink string

	// Services are registered before the coordinator becomes visible.
	Services []service.Factory

	// Observers are added before the attach event is emitted.
	Observers []Observer

	// Relay carries pushes; a fresh one is created when nil.
	Relay *relay.Relay

	Clock  clock.Clock
	Logger *slog.Logger
}

// Coordinator is the long-lived shell core.
type Coordinator struct {
	registry  *service.Registry
	relay     *relay.Relay
	clock     clock.Clock
	logger    *slog.Logger
	startedAt time.Time
	args      []string

	// lifeMu guards shutdown against concurrent registration and resolution.
	lifeMu   sync.RWMutex
	shutdown bool

	// navMu serializes navigation so a replay cannot overtake a newer link.
	navMu      sync.Mutex
	mu         sync.Mutex
	navigator  Navigator
	ready      bool
	pending    string
	hasPending bool

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObsID int
}

func newCoordinator(opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	logger := opts.Logger.With("component", "shell")
	if opts.Relay == nil {
		opts.Relay = relay.New(opts.Logger)
	}

	c := &Coordinator{
		registry:  service.NewRegistry(opts.Relay, opts.Logger.With("component", "service-registry")),
		relay:     opts.Relay,
		clock:     opts.Clock,
		logger:    logger,
		startedAt: opts.Clock.Now(),
		args:      append([]string(nil), opts.Args...),
		observers: make(map[int]Observer),
	}

	for _, f := range opts.Services {
		c.registry.Register(f)
	}
	for _, o := range opts.Observers {
		c.AddObserver(o)
	}

	c.logger.Info("shell coordinator created",
		"args", len(c.args),
		"services", len(opts.Services),
		"started_at", c.startedAt,
	)
	return c
}

// StartedAt returns the time the coordinator was created.
func (c *Coordinator) StartedAt() time.Time { return c.startedAt }

// Args returns a copy of the process arguments.
func (c *Coordinator) Args() []string { return append([]string(nil), c.args...) }

// Registry returns the service registry.
func (c *Coordinator) Registry() *service.Registry { return c.registry }

// Relay returns the relay channel.
func (c *Coordinator) Relay() *relay.Relay { return c.relay }

// InstallDelivery installs the function that carries pushes to the runtime.
func (c *Coordinator) InstallDelivery(fn relay.DeliverFunc) error {
	return c.relay.Install(fn)
}

// RegisterService stores a factory in the registry. Instances already
// resolved under the same name are not replaced.
func (c *Coordinator) RegisterService(f service.Factory) error {
	c.lifeMu.RLock()
	defer c.lifeMu.RUnlock()

	if c.shutdown {
		return ErrShutdown
	}
	c.registry.Register(f)
	return nil
}

// ResolveService returns the instance for name, creating it on first use.
func (c *Coordinator) ResolveService(name string, handle relay.Handle) (*service.Instance, error) {
	c.lifeMu.RLock()
	defer c.lifeMu.RUnlock()

	if c.shutdown {
		return nil, ErrShutdown
	}
	return c.registry.Resolve(name, handle)
}

// Send forwards a synchronous request to the instance bound to handle.
func (c *Coordinator) Send(handle relay.Handle, data []byte) service.Response {
	return c.registry.Send(handle, data)
}

// CloseService closes the instance bound to handle.
func (c *Coordinator) CloseService(handle relay.Handle) bool {
	return c.registry.CloseInstance(handle)
}

// HandleDeepLink delivers url to the navigator, or keeps it as the single
// pending link until the runtime is ready. Empty links are ignored.
func (c *Coordinator) HandleDeepLink(url string) {
	if url == "" {
		return
	}

	c.navMu.Lock()
	defer c.navMu.Unlock()

	c.mu.Lock()
	if !c.ready {
		overwritten := c.hasPending
		c.pending = url
		c.hasPending = true
		c.mu.Unlock()

		c.logger.Info("deep link buffered until runtime is ready",
			"url", url,
			"overwrote_pending", overwritten,
		)
		c.emit(EventDeepLinkBuffered, "", url)
		return
	}
	nav := c.navigator
	c.mu.Unlock()

	nav.Navigate(url)
	c.logger.Info("deep link delivered", "url", url)
	c.emit(EventDeepLinkDelivered, "", url)
}

// OnRuntimeReady marks the shell ready to navigate. The pending deep link,
// if any, is replayed exactly once. Later calls replace the navigator.
func (c *Coordinator) OnRuntimeReady(nav Navigator) error {
	if nav == nil {
		return errors.New("navigator is nil")
	}

	c.navMu.Lock()
	defer c.navMu.Unlock()

	c.mu.Lock()
	wasReady := c.ready
	c.ready = true
	c.navigator = nav
	url, replay := c.pending, c.hasPending
	c.pending, c.hasPending = "", false
	c.mu.Unlock()

	if !wasReady {
		c.logger.Info("embedded runtime ready")
		c.emit(EventRuntimeReady, "", "")
	}

	if replay {
		nav.Navigate(url)
		c.logger.Info("replayed pending deep link", "url", url)
		c.emit(EventDeepLinkDelivered, "", url)
	}
	return nil
}

// Ready reports whether the runtime has reported ready.
func (c *Coordinator) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// PendingDeepLink returns the buffered deep link, if any.
func (c *Coordinator) PendingDeepLink() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, c.hasPending
}

// OnUiStart runs the resume hook on every live instance.
func (c *Coordinator) OnUiStart(ref HostRef) {
	instances := c.registry.Instances()
	for _, inst := range instances {
		inst.BeforeStartOrResume()
	}
	c.logger.Debug("ui started", "host_id", ref.ID, "instances", len(instances))
	c.emit(EventStart, ref.ID, "")
}

// OnUiStop runs the suspend hook on every live instance.
func (c *Coordinator) OnUiStop(ref HostRef) {
	instances := c.registry.Instances()
	for _, inst := range instances {
		inst.BeforeSuspend()
	}
	c.logger.Debug("ui stopped", "host_id", ref.ID, "instances", len(instances))
	c.emit(EventStop, ref.ID, "")
}

// OnUiDestroy runs the stopped hook on every live instance. When ref is the
// finishing surface the coordinator is shut down afterwards.
func (c *Coordinator) OnUiDestroy(ref HostRef) {
	instances := c.registry.Instances()
	for _, inst := range instances {
		inst.AfterStopped()
	}
	c.logger.Debug("ui destroyed",
		"host_id", ref.ID,
		"finishing", ref.Finishing,
		"instances", len(instances),
	)
	c.emit(EventDestroy, ref.ID, strconv.FormatBool(ref.Finishing))

	if ref.Finishing {
		c.Shutdown()
	}
}

// OnNewDeepLink handles a deep link arriving while a surface is attached.
func (c *Coordinator) OnNewDeepLink(url string) {
	c.HandleDeepLink(url)
}

// Shutdown closes every service instance and releases the registry.
// Safe to call multiple times.
func (c *Coordinator) Shutdown() {
	c.lifeMu.Lock()
	if c.shutdown {
		c.lifeMu.Unlock()
		return
	}
	c.shutdown = true
	c.lifeMu.Unlock()

	closed := c.registry.CloseAll()
	c.logger.Info("shell coordinator shut down", "instances_closed", closed)
	c.emit(EventShutdown, "", fmt.Sprintf("instances_closed=%d", closed))
}

// IsShutdown reports whether Shutdown has run.
func (c *Coordinator) IsShutdown() bool {
	c.lifeMu.RLock()
	defer c.lifeMu.RUnlock()
	return c.shutdown
}

// AddObserver registers o and returns a function that removes it.
func (c *Coordinator) AddObserver(o Observer) (remove func()) {
	c.obsMu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = o
	c.obsMu.Unlock()

	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

func (c *Coordinator) emit(kind EventKind, hostID, detail string) {
	c.obsMu.RLock()
	targets := make([]Observer, 0, len(c.observers))
	for _, o := range c.observers {
		targets = append(targets, o)
	}
	c.obsMu.RUnlock()

	if len(targets) == 0 {
		return
	}

	event := LifecycleEvent{
		Kind:   kind,
		HostID: hostID,
		Detail: detail,
		At:     c.clock.Now(),
	}
	for _, o := range targets {
		o.OnLifecycleEvent(event)
	}
}
