// ABOUTME: Service capability, factory, and response types for platform services.
// ABOUTME: A Factory builds one Service per resolve; the Client lets a service push.

package service

import (
	"errors"

	"github.com/2389/shell-bridge/internal/relay"
)

// ErrServiceNotFound indicates no factory is registered under the requested name.
var ErrServiceNotFound = errors.New("service not found")

// ErrHandleInUse indicates the handle already addresses a different live instance.
var ErrHandleInUse = errors.New("handle already in use")

// ErrAlreadyOpen indicates the service is already open under a different handle.
var ErrAlreadyOpen = errors.New("service already open")

// ErrFactoryFailed indicates the factory returned an error or no service.
var ErrFactoryFailed = errors.New("service factory failed")

// Response is the synchronous reply to a runtime request.
type Response struct {
	// InvalidState is set when the service could not take the request
	// because it is not open. It means "unavailable", not failure.
	InvalidState bool

	// Data is the opaque response payload.
	Data []byte
}

// invalidState is returned for requests against non-open or unknown instances.
func invalidState() Response {
	return Response{InvalidState: true, Data: []byte{}}
}

// Service is implemented by every platform service.
//
// Lifecycle hooks are called synchronously on the goroutine driving the UI
// and must return quickly. They must not call back into the shell
// coordinator.
type Service interface {
	// BeforeStartOrResume prepares the service for start or resume.
	BeforeStartOrResume()

	// BeforeSuspend prepares the service for suspend.
	BeforeSuspend()

	// AfterStopped is called once the UI surface has stopped.
	AfterStopped()

	// ReceiveFromClient answers a synchronous request from the runtime.
	ReceiveFromClient(data []byte) Response

	// Close releases service resources. Called exactly once.
	Close()
}

// Client is the push side of an instance, handed to the service at creation.
// SendToClient is safe to call from any goroutine, before or after close.
type Client interface {
	SendToClient(data []byte)
}

// Factory creates service instances for one service name.
type Factory interface {
	// Name returns the service name the runtime resolves.
	Name() string

	// Create builds a new service bound to the given handle.
	Create(handle relay.Handle, client Client) (Service, error)
}

// CreateFunc builds a service for a handle.
type CreateFunc func(handle relay.Handle, client Client) (Service, error)

type funcFactory struct {
	name   string
	create CreateFunc
}

// NewFactory adapts a function into a Factory.
func NewFactory(name string, create CreateFunc) Factory {
	return &funcFactory{name: name, create: create}
}

func (f *funcFactory) Name() string { return f.name }

func (f *funcFactory) Create(handle relay.Handle, client Client) (Service, error) {
	return f.create(handle, client)
}
