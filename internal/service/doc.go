// Package service defines platform services and the registry that creates
// them on demand for the embedded content runtime.
//
// # Overview
//
// A platform service is anything that implements Service: it answers
// synchronous requests, reacts to UI lifecycle hooks, and releases its
// resources on Close. Services are never constructed directly. A Factory is
// registered under a name, and the Registry invokes it the first time the
// runtime resolves that name, handing it the runtime-assigned handle and a
// Client for pushes.
//
// # Instance lifecycle
//
// Every created service is wrapped in an Instance that owns its state:
//
//	Open -> Closing -> Closed
//
// The state only moves forward. Requests against a non-open instance return
// a Response with InvalidState set; they are not errors. Pushes from a
// non-open instance are dropped.
//
// # Close vs push
//
// SendToClient and Close share one mutex. A push checks the state and hands
// the payload to the relay inside that critical section; Close moves the
// state to Closing inside it. Once Close returns, no push for the instance's
// handle can reach the runtime. Service teardown runs after the state flip
// and outside the lock, so a service may stop and wait for worker goroutines
// that are in the middle of pushing.
//
// # Registry
//
//	registry := service.NewRegistry(rl, logger)
//	registry.Register(service.NewFactory("echo", newEcho))
//
//	inst, err := registry.Resolve("echo", 1)
//	resp := inst.ReceiveFromClient([]byte("ping"))
//
// Registering a factory under an existing name replaces the factory.
// Instances it already produced stay live and addressable by handle.
package service
