// ABOUTME: Host holds at most one shell coordinator and routes UI host calls to it.
// ABOUTME: Distinguishes cold start (build the coordinator) from warm start (reuse it).

package shell

import (
	"errors"
	"sync"
)

// ErrDuplicateCoordinator indicates an attempt to build a second coordinator.
var ErrDuplicateCoordinator = errors.New("shell coordinator already exists")

// ErrNotPresent indicates a UI host call arrived before any coordinator exists.
var ErrNotPresent = errors.New("shell coordinator not present")

// Start reports which kind of attach happened.
type Start int

const (
	ColdStart Start = iota + 1
	WarmStart
)

func (s Start) String() string {
	switch s {
	case ColdStart:
		return "cold"
	case WarmStart:
		return "warm"
	default:
		return "unknown"
	}
}

// OptionsFunc builds coordinator options from the attach arguments.
type OptionsFunc func(args []string, deepLink string) Options

// Host holds the coordinator across UI surface recreation.
type Host struct {
	mu      sync.Mutex
	coord   *Coordinator
	options OptionsFunc
}

var (
	processOnce sync.Once
	processHost *Host
)

// Process returns the process-wide host.
func Process() *Host {
	processOnce.Do(func() {
		processHost = NewHost(nil)
	})
	return processHost
}

// NewHost creates a host with no coordinator. A nil fn builds coordinators
// with only args and the initial deep link set.
func NewHost(fn OptionsFunc) *Host {
	return &Host{options: fn}
}

// Configure sets how the coordinator is built at cold start.
func (h *Host) Configure(fn OptionsFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.options = fn
}

// Current returns the coordinator, or nil before the first cold start.
func (h *Host) Current() *Coordinator {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.coord
}

// Create builds the coordinator. It fails with ErrDuplicateCoordinator when
// one already exists.
func (h *Host) Create(args []string, deepLink string) (*Coordinator, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.coord != nil {
		return nil, ErrDuplicateCoordinator
	}
	opts := h.buildOptions(args, deepLink)
	h.coord = newCoordinator(opts)
	h.coord.HandleDeepLink(opts.DeepLink)
	return h.coord, nil
}

func (h *Host) buildOptions(args []string, deepLink string) Options {
	if h.options == nil {
		return Options{Args: args, DeepLink: deepLink}
	}
	opts := h.options(args, deepLink)
	if opts.Args == nil {
		opts.Args = args
	}
	if opts.DeepLink == "" {
		opts.DeepLink = deepLink
	}
	return opts
}

// OnHostAttach is called each time a UI surface is created. The first call
// builds the coordinator; later calls forward deepLink to the running shell.
func (h *Host) OnHostAttach(ref HostRef, args []string, deepLink string) (*Coordinator, Start, error) {
	h.mu.Lock()
	if h.coord == nil {
		// The attach event and the initial deep link are applied before the
		// lock is released so a concurrent warm attach cannot slip in between.
		opts := h.buildOptions(args, deepLink)
		coord := newCoordinator(opts)
		h.coord = coord
		coord.logger.Info("cold start", "host_id", ref.ID)
		coord.emit(EventAttach, ref.ID, ColdStart.String())
		coord.HandleDeepLink(opts.DeepLink)
		h.mu.Unlock()
		return coord, ColdStart, nil
	}
	coord := h.coord
	h.mu.Unlock()

	if coord.IsShutdown() {
		return nil, 0, ErrShutdown
	}

	coord.logger.Info("warm start", "host_id", ref.ID, "deep_link", deepLink)
	coord.emit(EventAttach, ref.ID, WarmStart.String())
	coord.HandleDeepLink(deepLink)
	return coord, WarmStart, nil
}

func (h *Host) present() (*Coordinator, error) {
	coord := h.Current()
	if coord == nil {
		return nil, ErrNotPresent
	}
	return coord, nil
}

// OnUiStart forwards a surface start to the coordinator.
func (h *Host) OnUiStart(ref HostRef) error {
	coord, err := h.present()
	if err != nil {
		return err
	}
	coord.OnUiStart(ref)
	return nil
}

// OnUiStop forwards a surface stop to the coordinator.
func (h *Host) OnUiStop(ref HostRef) error {
	coord, err := h.present()
	if err != nil {
		return err
	}
	coord.OnUiStop(ref)
	return nil
}

// OnUiDestroy forwards a surface destroy to the coordinator.
func (h *Host) OnUiDestroy(ref HostRef) error {
	coord, err := h.present()
	if err != nil {
		return err
	}
	coord.OnUiDestroy(ref)
	return nil
}

// OnNewDeepLink forwards a runtime deep link to the coordinator.
func (h *Host) OnNewDeepLink(url string) error {
	coord, err := h.present()
	if err != nil {
		return err
	}
	coord.OnNewDeepLink(url)
	return nil
}
