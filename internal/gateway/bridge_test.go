// ABOUTME: Tests for the runtime bridge over an in-memory gRPC transport.

package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/2389/shell-bridge/internal/auth"
	"github.com/2389/shell-bridge/internal/config"
	"github.com/2389/shell-bridge/internal/relay"
)

func TestBridge_EchoEndToEnd(t *testing.T) {
	tg := newTestGateway(t, nil)
	tg.attach(t, "main", "")
	client := tg.dialBridge(t)
	ctx := context.Background()

	require.NoError(t, client.Resolve(ctx, "echo", 1))

	resp, err := client.Send(ctx, 1, []byte("ping"))
	require.NoError(t, err)
	assert.False(t, resp.InvalidState)
	assert.Equal(t, []byte("ping"), resp.Data)

	require.NoError(t, client.Close(ctx, 1))

	resp, err = client.Send(ctx, 1, []byte("ping"))
	require.NoError(t, err)
	assert.True(t, resp.InvalidState)
	assert.Empty(t, resp.Data)
}

func TestBridge_ResolveErrors(t *testing.T) {
	tg := newTestGateway(t, nil)
	client := tg.dialBridge(t)
	ctx := context.Background()

	err := client.Resolve(ctx, "echo", 1)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err), "no coordinator yet")

	tg.attach(t, "main", "")

	err = client.Resolve(ctx, "missing", 1)
	assert.Equal(t, codes.Unavailable, status.Code(err))

	require.NoError(t, client.Resolve(ctx, "echo", 2))
	require.NoError(t, client.Resolve(ctx, "echo", 2), "same name and handle is idempotent")

	err = client.Resolve(ctx, "clock", 2)
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	err = client.Resolve(ctx, "echo", 3)
	assert.Equal(t, codes.AlreadyExists, status.Code(err), "echo is already open under handle 2")
	resp, err := client.Send(ctx, 3, []byte("ping"))
	require.NoError(t, err)
	assert.True(t, resp.InvalidState)

	err = client.Resolve(ctx, "", 3)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestBridge_ResolveAfterShutdown(t *testing.T) {
	tg := newTestGateway(t, nil)
	tg.attach(t, "main", "")
	client := tg.dialBridge(t)

	require.NoError(t, tg.Host().OnUiDestroy(shellRef("main", true)))

	err := client.Resolve(context.Background(), "echo", 1)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestBridge_CloseUnknownHandle(t *testing.T) {
	tg := newTestGateway(t, nil)
	tg.attach(t, "main", "")
	client := tg.dialBridge(t)

	assert.NoError(t, client.Close(context.Background(), 99))
}

func TestBridge_SubscribeReplaysLatestDeepLink(t *testing.T) {
	tg := newTestGateway(t, nil)
	tg.attach(t, "main", "app://first")
	tg.post(t, "/host/deeplink", DeepLinkRequest{URL: "app://second"})

	client := tg.dialBridge(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := client.Subscribe(ctx)
	require.NoError(t, err)

	msg, err := sub.Recv()
	require.NoError(t, err)
	assert.Equal(t, relay.KindNavigate, msg.Kind)
	assert.Equal(t, "app://second", msg.URL)

	require.Eventually(t, func() bool { return tg.Host().Current().Ready() }, time.Second, 5*time.Millisecond)

	tg.post(t, "/host/deeplink", DeepLinkRequest{URL: "app://third"})
	msg, err = sub.Recv()
	require.NoError(t, err)
	assert.Equal(t, "app://third", msg.URL)
}

func TestBridge_SubscribeReceivesClockPushes(t *testing.T) {
	tg := newTestGateway(t, nil)
	tg.attach(t, "main", "")
	client := tg.dialBridge(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := client.Subscribe(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return tg.Host().Current().Ready() }, time.Second, 5*time.Millisecond)

	require.NoError(t, client.Resolve(ctx, "clock", 7))
	tg.mock.Add(time.Second)

	msg, err := sub.Recv()
	require.NoError(t, err)
	assert.Equal(t, relay.KindPush, msg.Kind)
	assert.Equal(t, relay.Handle(7), msg.Handle)

	payload, err := relay.Decode(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, tg.mock.Now().UTC().Format(time.RFC3339Nano), string(payload))
}

func TestBridge_SubscribeEndsOnShutdown(t *testing.T) {
	tg := newTestGateway(t, nil)
	tg.attach(t, "main", "")
	client := tg.dialBridge(t)

	sub, err := client.Subscribe(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return tg.hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, tg.Shutdown(context.Background()))

	_, err = sub.Recv()
	assert.Error(t, err)
}

func TestBridge_Auth(t *testing.T) {
	tg := newTestGateway(t, func(c *config.Config) {
		c.Auth.JWTSecret = testSecret
	})
	tg.attach(t, "main", "")

	verifier, err := auth.NewJWTVerifier([]byte(testSecret))
	require.NoError(t, err)
	token, err := verifier.Generate("runtime", time.Hour)
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		client := tg.dialBridge(t)
		err := client.Resolve(context.Background(), "echo", 1)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("valid token", func(t *testing.T) {
		client := tg.dialBridge(t, grpc.WithPerRPCCredentials(auth.BearerCredentials{Token: token, Insecure: true}))
		require.NoError(t, client.Resolve(context.Background(), "echo", 1))

		resp, err := client.Send(context.Background(), 1, []byte("hi"))
		require.NoError(t, err)
		assert.Equal(t, []byte("hi"), resp.Data)
	})
}
