// ABOUTME: Typed client for the runtime bridge, used by tests and the CLI.

package gateway

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/shell-bridge/internal/relay"
	"github.com/2389/shell-bridge/internal/service"
)

// BridgeClient calls shellbridge.v1.Bridge over a client connection.
type BridgeClient struct {
	cc grpc.ClientConnInterface
}

// NewBridgeClient wraps cc.
func NewBridgeClient(cc grpc.ClientConnInterface) *BridgeClient {
	return &BridgeClient{cc: cc}
}

// Resolve binds service name to handle.
func (c *BridgeClient) Resolve(ctx context.Context, name string, handle relay.Handle, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, bridgeResolveMethod, resolveRequest(name, handle), new(emptypb.Empty), opts...)
}

// Send issues a synchronous request to the instance bound to handle.
func (c *BridgeClient) Send(ctx context.Context, handle relay.Handle, data []byte, opts ...grpc.CallOption) (service.Response, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, bridgeSendMethod, sendRequest(handle, data), out, opts...); err != nil {
		return service.Response{}, err
	}
	return responseFromStruct(out)
}

// Close closes the instance bound to handle.
func (c *BridgeClient) Close(ctx context.Context, handle relay.Handle, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, bridgeCloseMethod, closeRequest(handle), new(emptypb.Empty), opts...)
}

// Subscription receives hub messages from the bridge.
type Subscription struct {
	stream grpc.ServerStreamingClient[structpb.Struct]
}

// Recv blocks for the next message.
func (s *Subscription) Recv() (relay.Message, error) {
	out, err := s.stream.Recv()
	if err != nil {
		return relay.Message{}, err
	}
	return messageFromStruct(out)
}

// Subscribe opens the push stream. Cancel ctx to end it.
func (c *BridgeClient) Subscribe(ctx context.Context, opts ...grpc.CallOption) (*Subscription, error) {
	desc := &bridgeServiceDesc.Streams[0]
	stream, err := c.cc.NewStream(ctx, desc, bridgeSubscribeMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return &Subscription{stream: x}, nil
}
