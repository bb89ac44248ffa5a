// ABOUTME: Hand-written gRPC service descriptor for shellbridge.v1.Bridge.
// ABOUTME: Uses protobuf well-known types for every message.

package gateway

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// BridgeServiceName is the fully qualified gRPC service name.
const BridgeServiceName = "shellbridge.v1.Bridge"

const (
	bridgeResolveMethod   = "/" + BridgeServiceName + "/Resolve"
	bridgeSendMethod      = "/" + BridgeServiceName + "/Send"
	bridgeCloseMethod     = "/" + BridgeServiceName + "/Close"
	bridgeSubscribeMethod = "/" + BridgeServiceName + "/Subscribe"
)

// BridgeServer is the server API for the runtime bridge.
type BridgeServer interface {
	Resolve(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Send(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Close(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Subscribe(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// RegisterBridgeServer registers srv on s.
func RegisterBridgeServer(s grpc.ServiceRegistrar, srv BridgeServer) {
	s.RegisterService(&bridgeServiceDesc, srv)
}

func bridgeResolveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BridgeServer).Resolve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: bridgeResolveMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BridgeServer).Resolve(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func bridgeSendHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BridgeServer).Send(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: bridgeSendMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BridgeServer).Send(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func bridgeCloseHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BridgeServer).Close(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: bridgeCloseMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BridgeServer).Close(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func bridgeSubscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(BridgeServer).Subscribe(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

var bridgeServiceDesc = grpc.ServiceDesc{
	ServiceName: BridgeServiceName,
	HandlerType: (*BridgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Resolve", Handler: bridgeResolveHandler},
		{MethodName: "Send", Handler: bridgeSendHandler},
		{MethodName: "Close", Handler: bridgeCloseHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       bridgeSubscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "shellbridge/v1/bridge.proto",
}
