// ABOUTME: Echo service: every request is answered with its own bytes.

package builtins

import (
	"github.com/2389/shell-bridge/internal/relay"
	"github.com/2389/shell-bridge/internal/service"
)

// EchoFactory returns the factory for the echo service.
func EchoFactory() service.Factory {
	return service.NewFactory(EchoName, func(relay.Handle, service.Client) (service.Service, error) {
		return echoService{}, nil
	})
}

type echoService struct{}

func (echoService) BeforeStartOrResume() {}
func (echoService) BeforeSuspend()       {}
func (echoService) AfterStopped()        {}
func (echoService) Close()               {}

func (echoService) ReceiveFromClient(data []byte) service.Response {
	out := make([]byte, len(data))
	copy(out, data)
	return service.Response{Data: out}
}
