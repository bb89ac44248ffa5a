// ABOUTME: Runtime-facing gRPC bridge: service resolution, requests, close and push stream.
// ABOUTME: Maps shell and service sentinel errors onto gRPC status codes.

package gateway

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/shell-bridge/internal/auth"
	"github.com/2389/shell-bridge/internal/relay"
	"github.com/2389/shell-bridge/internal/service"
	"github.com/2389/shell-bridge/internal/shell"
)

type bridgeServer struct {
	gw     *Gateway
	logger *slog.Logger
}

var _ BridgeServer = (*bridgeServer)(nil)

// toStatus maps domain errors to gRPC status errors.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrServiceNotFound):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, service.ErrHandleInUse), errors.Is(err, service.ErrAlreadyOpen):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, shell.ErrShutdown), errors.Is(err, shell.ErrNotPresent):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func (b *bridgeServer) coordinator() (*shell.Coordinator, error) {
	coord := b.gw.host.Current()
	if coord == nil {
		return nil, toStatus(shell.ErrNotPresent)
	}
	return coord, nil
}

func (b *bridgeServer) handle(req *structpb.Struct) (relay.Handle, error) {
	h, err := handleFrom(req)
	if err != nil {
		return 0, status.Error(codes.InvalidArgument, err.Error())
	}
	return h, nil
}

func subject(ctx context.Context) string {
	if a := auth.FromContext(ctx); a != nil {
		return a.Subject
	}
	return ""
}

// Resolve binds a service instance to the caller's handle.
func (b *bridgeServer) Resolve(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	name := stringFrom(req, fieldName)
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "missing name")
	}
	h, err := b.handle(req)
	if err != nil {
		return nil, err
	}
	coord, err := b.coordinator()
	if err != nil {
		return nil, err
	}

	if _, err := coord.ResolveService(name, h); err != nil {
		b.logger.Warn("resolve failed", "name", name, "handle", h, "subject", subject(ctx), "error", err)
		return nil, toStatus(err)
	}
	b.logger.Debug("service resolved", "name", name, "handle", h, "subject", subject(ctx))
	return &emptypb.Empty{}, nil
}

// Send forwards a request to the instance bound to handle.
func (b *bridgeServer) Send(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	h, err := b.handle(req)
	if err != nil {
		return nil, err
	}
	data, err := relay.Decode(stringFrom(req, fieldData))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "data is not valid base64")
	}
	coord, err := b.coordinator()
	if err != nil {
		return nil, err
	}

	return responseToStruct(coord.Send(h, data)), nil
}

// Close closes the instance bound to handle. Unknown handles are not an error.
func (b *bridgeServer) Close(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	h, err := b.handle(req)
	if err != nil {
		return nil, err
	}
	coord, err := b.coordinator()
	if err != nil {
		return nil, err
	}

	if !coord.CloseService(h) {
		b.logger.Debug("close for unknown handle", "handle", h)
	}
	return &emptypb.Empty{}, nil
}

// Subscribe streams pushes and navigations until the client goes away or the
// gateway shuts down. Subscribing marks the runtime ready.
func (b *bridgeServer) Subscribe(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	coord, err := b.coordinator()
	if err != nil {
		return err
	}

	ctx := stream.Context()
	msgs, subID := b.gw.hub.Subscribe(ctx)
	defer b.gw.hub.Unsubscribe(subID)

	if err := coord.InstallDelivery(b.gw.hub.PublishPush); err != nil && !errors.Is(err, relay.ErrDeliveryInstalled) {
		return toStatus(err)
	}
	if err := coord.OnRuntimeReady(shell.NavigatorFunc(b.gw.hub.PublishNavigate)); err != nil {
		return toStatus(err)
	}

	b.logger.Info("runtime subscribed", "sub_id", subID, "subject", subject(ctx))

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("runtime unsubscribed", "sub_id", subID)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := stream.Send(messageToStruct(msg)); err != nil {
				b.logger.Warn("subscribe send failed", "sub_id", subID, "error", err)
				return err
			}
		}
	}
}
