// ABOUTME: Thread-safe registry of service factories and the instances they produced.
// ABOUTME: Resolves names lazily, routes requests by handle, and closes everything on teardown.

package service

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/2389/shell-bridge/internal/relay"
)

type factoryEntry struct {
	factory Factory
	gen     uint64
}

// Registry maps service names to factories and handles to live instances.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]*factoryEntry   // by service name
	byName    map[string]*Instance       // most recent instance per name
	byHandle  map[relay.Handle]*Instance // every instance not yet closed through the registry
	nextGen   uint64
	relay     *relay.Relay
	logger    *slog.Logger
}

// NewRegistry creates an empty Registry whose instances push through rl.
func NewRegistry(rl *relay.Relay, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factories: make(map[string]*factoryEntry),
		byName:    make(map[string]*Instance),
		byHandle:  make(map[relay.Handle]*Instance),
		relay:     rl,
		logger:    logger,
	}
}

// Register stores a factory under its name, replacing any previous factory
// with the same name. No instance is created.
func (r *Registry) Register(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := f.Name()
	if _, exists := r.factories[name]; exists {
		r.logger.Debug("replacing service factory", "service", name)
	}

	r.nextGen++
	r.factories[name] = &factoryEntry{factory: f, gen: r.nextGen}

	r.logger.Info("service registered",
		"service", name,
		"total_services", len(r.factories),
	)
}

// Resolve returns the instance for name, creating it with the registered
// factory on first use. While that instance is open and its factory has not
// been replaced, repeated calls with the same handle return it; a different
// handle gets ErrAlreadyOpen.
func (r *Registry) Resolve(name string, handle relay.Handle) (*Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	if inst, ok := r.byName[name]; ok && inst.gen == entry.gen && inst.State() == StateOpen {
		if inst.Handle() != handle {
			return nil, fmt.Errorf("%w: %s is bound to handle %d", ErrAlreadyOpen, name, int64(inst.Handle()))
		}
		return inst, nil
	}

	if other, ok := r.byHandle[handle]; ok && other.State() == StateOpen {
		return nil, fmt.Errorf("%w: handle %d is bound to %s", ErrHandleInUse, int64(handle), other.Name())
	}

	inst := newInstance(name, handle, entry.gen, r.relay, r.logger)
	svc, err := entry.factory.Create(handle, inst)
	if err != nil {
		inst.abandon()
		return nil, fmt.Errorf("%w: %s: %v", ErrFactoryFailed, name, err)
	}
	if svc == nil {
		inst.abandon()
		return nil, fmt.Errorf("%w: %s returned no service", ErrFactoryFailed, name)
	}
	inst.svc = svc

	r.byName[name] = inst
	r.byHandle[handle] = inst

	r.logger.Info("service instance created",
		"service", name,
		"handle", int64(handle),
		"live_instances", len(r.byHandle),
	)
	return inst, nil
}

// Lookup returns the instance bound to handle.
func (r *Registry) Lookup(handle relay.Handle) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.byHandle[handle]
	return inst, ok
}

// Send forwards a request to the instance bound to handle. Unknown handles
// answer with InvalidState, the same as a closed instance.
func (r *Registry) Send(handle relay.Handle, data []byte) Response {
	inst, ok := r.Lookup(handle)
	if !ok {
		return invalidState()
	}
	return inst.ReceiveFromClient(data)
}

// CloseInstance closes the instance bound to handle and forgets it.
// Returns false if no instance is bound to handle.
func (r *Registry) CloseInstance(handle relay.Handle) bool {
	r.mu.Lock()
	inst, ok := r.byHandle[handle]
	if ok {
		delete(r.byHandle, handle)
		if r.byName[inst.Name()] == inst {
			delete(r.byName, inst.Name())
		}
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	inst.Close()
	return true
}

// Instances returns a snapshot of all open instances.
func (r *Registry) Instances() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Instance, 0, len(r.byHandle))
	for _, inst := range r.byHandle {
		if inst.State() == StateOpen {
			out = append(out, inst)
		}
	}
	return out
}

// CloseAll closes every instance exactly once, in no particular order, and
// clears the registry's instance maps. Factories stay registered.
// Returns the number of instances closed.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	instances := make([]*Instance, 0, len(r.byHandle))
	for _, inst := range r.byHandle {
		instances = append(instances, inst)
	}
	r.byHandle = make(map[relay.Handle]*Instance)
	r.byName = make(map[string]*Instance)
	r.mu.Unlock()

	for _, inst := range instances {
		inst.Close()
	}

	r.logger.Info("registry closed", "instances_closed", len(instances))
	return len(instances)
}

// InstanceInfo describes a live instance for display.
type InstanceInfo struct {
	Name   string
	Handle relay.Handle
	State  State
}

// Services returns registered factory names, sorted.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns information about every tracked instance, ordered by handle.
func (r *Registry) List() []InstanceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]InstanceInfo, 0, len(r.byHandle))
	for _, inst := range r.byHandle {
		infos = append(infos, InstanceInfo{
			Name:   inst.Name(),
			Handle: inst.Handle(),
			State:  inst.State(),
		})
	}
	sort.Slice(infos, func(a, b int) bool { return infos[a].Handle < infos[b].Handle })
	return infos
}

// LiveCount returns the number of open instances.
func (r *Registry) LiveCount() int {
	return len(r.Instances())
}
